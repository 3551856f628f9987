package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"REMOTE_BACKEND", "ADMIN_USERNAME", "PULL_TIMEOUT_MS", "PUSH_RETRIES", "TYPING_TTL_MS", "HEARTBEAT_MS", "ALLOWED_ORIGINS", "FRONTEND_URL", "ENV"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	if cfg.RemoteBackend != BackendRedis {
		t.Errorf("backend GOT[%s], EXPECTED[%s]", cfg.RemoteBackend, BackendRedis)
	}
	if cfg.AdminUsername != "Jade" {
		t.Errorf("admin GOT[%s], EXPECTED[Jade]", cfg.AdminUsername)
	}
	if cfg.PullTimeout != 3*time.Second || cfg.TypingTTL != 1500*time.Millisecond || cfg.Heartbeat != 2*time.Second {
		t.Errorf("timings GOT[%v %v %v]", cfg.PullTimeout, cfg.TypingTTL, cfg.Heartbeat)
	}
	if cfg.PushRetries != 3 {
		t.Errorf("retries GOT[%d], EXPECTED[3]", cfg.PushRetries)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:3000" {
		t.Errorf("origins GOT[%v]", cfg.AllowedOrigins)
	}
	if cfg.IsProduction() {
		t.Error("default environment should not be production")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REMOTE_BACKEND", "Postgres")
	t.Setenv("PULL_TIMEOUT_MS", "250")
	t.Setenv("PUSH_RETRIES", "oops")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,https://A.example")
	t.Setenv("ENV", "Production")
	cfg := Load()

	if cfg.RemoteBackend != BackendPostgres {
		t.Errorf("backend GOT[%s], EXPECTED[%s]", cfg.RemoteBackend, BackendPostgres)
	}
	if cfg.PullTimeout != 250*time.Millisecond {
		t.Errorf("pull timeout GOT[%v], EXPECTED[250ms]", cfg.PullTimeout)
	}
	if cfg.PushRetries != 3 {
		t.Errorf("invalid retries should fall back, GOT[%d]", cfg.PushRetries)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Errorf("origins GOT[%v], EXPECTED[2 unique]", cfg.AllowedOrigins)
	}
	if !cfg.IsProduction() {
		t.Error("expected production")
	}
}

func TestUnknownBackendFallsBack(t *testing.T) {
	t.Setenv("REMOTE_BACKEND", "etcd")
	if got := Load().RemoteBackend; got != BackendRedis {
		t.Errorf("GOT[%s], EXPECTED[%s]", got, BackendRedis)
	}
}
