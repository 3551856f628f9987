package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/AnshRaj112/salvioris-chatsync/internal/cache"
	"github.com/AnshRaj112/salvioris-chatsync/internal/config"
	"github.com/AnshRaj112/salvioris-chatsync/internal/database"
	"github.com/AnshRaj112/salvioris-chatsync/internal/handlers"
	"github.com/AnshRaj112/salvioris-chatsync/internal/middleware"
	"github.com/AnshRaj112/salvioris-chatsync/internal/remote"
	"github.com/AnshRaj112/salvioris-chatsync/internal/routes"
	"github.com/AnshRaj112/salvioris-chatsync/internal/services"
	"github.com/AnshRaj112/salvioris-chatsync/pkg/utils"
	"github.com/go-chi/chi/v5"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()

	if cfg.AdminPassword == "" {
		log.Println("⚠️  WARNING: ADMIN_PASSWORD not set. The admin account cannot sign in.")
	}

	// Local profile cache
	var cipher *utils.Cipher
	if cfg.EncryptionKey == "" {
		log.Println("⚠️  WARNING: ENCRYPTION_KEY not set. The profile cache is stored unencrypted.")
		log.Println("   To generate a key, run: openssl rand -base64 32")
	} else {
		c, err := utils.NewCipher(cfg.EncryptionKey)
		if err != nil {
			log.Fatalf("ENCRYPTION_KEY is invalid: %v", err)
		}
		cipher = c
		log.Println("✅ Encryption key configured")
	}

	if err := database.OpenProfile(cfg.CachePath); err != nil {
		log.Fatal("Failed to open profile cache:", err)
	}
	defer database.CloseProfile()

	local, err := cache.NewSQLite(database.ProfileDB, cipher)
	if err != nil {
		log.Fatal("Failed to prepare profile cache:", err)
	}

	// Shared remote store
	store, closeStore, err := openRemoteStore(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to the %s remote store: %v", cfg.RemoteBackend, err)
	}
	defer closeStore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	// outlives the signal so queued pushes can still drain during shutdown
	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	adapter := remote.NewAdapter(store, local, remote.Options{
		PullTimeout: cfg.PullTimeout,
		PushRetries: cfg.PushRetries,
	})
	adapter.Start(runCtx)

	// Attachments are inlined when Cloudinary is not configured
	var uploader services.Uploader
	if cfg.HasCloudinary() {
		svc, err := services.NewCloudinaryService(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			log.Printf("Warning: Failed to initialize Cloudinary: %v", err)
			log.Println("Attachments will be stored inline")
		} else {
			uploader = svc
			log.Println("✅ Cloudinary service initialized")
		}
	} else {
		log.Println("Warning: Cloudinary credentials not found. Attachments will be stored inline")
	}

	engine := services.NewEngine(services.Config{
		AdminUsername: cfg.AdminUsername,
		AdminPassword: cfg.AdminPassword,
		TypingTTL:     cfg.TypingTTL,
		Heartbeat:     cfg.Heartbeat,
		OnlineWindow:  cfg.OnlineWindow,
	}, local, adapter, uploader)
	engine.Start(runCtx)
	handlers.Init(engine)

	// Setup router
	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity() {
			r.Use(mw)
		}
		log.Println("✅ Production security enabled (security headers, per-IP, login and message rate limiting)")
	} else {
		r.Use(middleware.MessageRateLimit)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	routes.SetupRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("🚀 chatsync agent running on :%s (remote: %s)", cfg.Port, cfg.RemoteBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  HTTP shutdown: %v", err)
	}
	if err := engine.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  some remote writes were not delivered: %v", err)
	}
}

// openRemoteStore connects the configured backend. The returned func closes it.
func openRemoteStore(cfg *config.Config) (remote.Store, func(), error) {
	switch cfg.RemoteBackend {
	case config.BackendRedis:
		log.Printf("Connecting to Redis at %s...", database.MaskURI(cfg.RedisURI))
		if err := database.ConnectRedis(cfg.RedisURI); err != nil {
			return nil, nil, err
		}
		return remote.NewRedisStore(database.RedisClient), func() { database.DisconnectRedis() }, nil

	case config.BackendMongo:
		log.Printf("Connecting to MongoDB at %s...", database.MaskURI(cfg.MongoURI))
		if err := database.Connect(cfg.MongoURI); err != nil {
			log.Println("Troubleshooting tips:")
			log.Println("1. Check if your IP is whitelisted in MongoDB Atlas")
			log.Println("2. Change streams need a replica set or an Atlas cluster")
			return nil, nil, err
		}
		return remote.NewMongoStore(database.DB), func() { database.Disconnect() }, nil

	case config.BackendPostgres:
		log.Printf("Connecting to PostgreSQL at %s...", database.MaskURI(cfg.PostgresURI))
		if err := database.ConnectPostgres(cfg.PostgresURI); err != nil {
			return nil, nil, err
		}
		return remote.NewPostgresStore(database.PostgresDB, cfg.PostgresURI), func() { database.DisconnectPostgres() }, nil

	case config.BackendMemory:
		log.Println("⚠️  Using the in-process memory store; state is not shared with other profiles")
		return remote.NewMemoryStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown remote backend %q", cfg.RemoteBackend)
}
