package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Remote backends selectable through REMOTE_BACKEND.
const (
	BackendRedis    = "redis"
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Port           string
	Environment    string   // ENV: production, development, etc.
	AllowedOrigins []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL

	RemoteBackend string
	MongoURI      string
	PostgresURI   string
	RedisURI      string

	CachePath     string // SQLite file holding this profile's local cache
	EncryptionKey string // base64 AES-256 key for the local cache; empty stores plaintext

	AdminUsername string
	AdminPassword string

	PullTimeout  time.Duration
	PushRetries  int
	TypingTTL    time.Duration
	Heartbeat    time.Duration
	OnlineWindow time.Duration

	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{getEnv("FRONTEND_URL", "http://localhost:3000")}
	}

	backend := strings.ToLower(strings.TrimSpace(getEnv("REMOTE_BACKEND", BackendRedis)))
	switch backend {
	case BackendRedis, BackendMongo, BackendPostgres, BackendMemory:
	default:
		log.Printf("⚠️  Unknown REMOTE_BACKEND %q, falling back to %s", backend, BackendRedis)
		backend = BackendRedis
	}

	return &Config{
		Port:                getEnv("PORT", "8080"),
		Environment:         env,
		AllowedOrigins:      allowedOrigins,
		RemoteBackend:       backend,
		MongoURI:            getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017/chatsync")),
		PostgresURI:         getEnv("POSTGRES_URI", "postgres://localhost:5432/chatsync?sslmode=disable"),
		RedisURI:            getEnv("REDIS_URI", "redis://localhost:6379/0"),
		CachePath:           getEnv("CACHE_PATH", "data/profile.db"),
		EncryptionKey:       getEnv("ENCRYPTION_KEY", ""),
		AdminUsername:       getEnv("ADMIN_USERNAME", "Jade"),
		AdminPassword:       getEnv("ADMIN_PASSWORD", ""),
		PullTimeout:         getEnvMillis("PULL_TIMEOUT_MS", 3000),
		PushRetries:         getEnvInt("PUSH_RETRIES", 3),
		TypingTTL:           getEnvMillis("TYPING_TTL_MS", 1500),
		Heartbeat:           getEnvMillis("HEARTBEAT_MS", 2000),
		OnlineWindow:        getEnvMillis("ONLINE_WINDOW_MS", 120000),
		CloudinaryName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
	}
}

// HasCloudinary reports whether all Cloudinary credentials are present.
func (c *Config) HasCloudinary() bool {
	return c.CloudinaryName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" && !containsOrigin(out, part) {
			out = append(out, part)
		}
	}
	return out
}

func containsOrigin(list []string, o string) bool {
	o = strings.TrimSpace(strings.ToLower(o))
	for _, v := range list {
		if strings.TrimSpace(strings.ToLower(v)) == o {
			return true
		}
	}
	return false
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		log.Printf("⚠️  Invalid %s=%q, using %d", key, raw, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvMillis(key string, defaultMillis int) time.Duration {
	n := getEnvInt(key, defaultMillis)
	if n == 0 {
		n = defaultMillis
	}
	return time.Duration(n) * time.Millisecond
}
