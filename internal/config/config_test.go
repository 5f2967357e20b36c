package config

import (
	"testing"
	"time"
)

func TestLoadServerDefaults(t *testing.T) {
	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.WSWriteTimeout != 5*time.Second || cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("unexpected timeouts: %+v", cfg)
	}
	if len(cfg.WSAllowedOrigins) != 0 {
		t.Fatalf("origins = %v", cfg.WSAllowedOrigins)
	}
}

func TestLoadServerOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("WS_ALLOWED_ORIGINS", "localhost:4200,example.com")
	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.HTTPAddr != ":9090" || len(cfg.WSAllowedOrigins) != 2 || cfg.WSAllowedOrigins[1] != "example.com" {
		t.Fatalf("unexpected server config: %+v", cfg)
	}
}

func TestLoadStoreRequiresRedisURL(t *testing.T) {
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("REDIS_URL", "")
	if _, err := LoadStore(); err == nil {
		t.Fatalf("expected REDIS_URL error")
	}
}

func TestLoadStoreMemory(t *testing.T) {
	t.Setenv("STORE_BACKEND", " Memory ")
	cfg, err := LoadStore()
	if err != nil {
		t.Fatalf("LoadStore() error = %v", err)
	}
	if cfg.Backend != BackendMemory || cfg.GameTTL != 0 {
		t.Fatalf("unexpected store config: %+v", cfg)
	}
}

func TestLoadStoreRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "etcd")
	if _, err := LoadStore(); err == nil {
		t.Fatalf("expected backend error")
	}
}

func TestLoadAuthDefaults(t *testing.T) {
	cfg, err := LoadAuth()
	if err != nil {
		t.Fatalf("LoadAuth() error = %v", err)
	}
	if cfg.TokenTTL != 168*time.Hour || cfg.BcryptCost != 10 {
		t.Fatalf("unexpected auth config: %+v", cfg)
	}
}

func TestLoadApp(t *testing.T) {
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("LOG_FORMAT", "json")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.RedisURL != "redis://localhost:6379/0" || cfg.Log.Format != "json" {
		t.Fatalf("unexpected app config: %+v", cfg)
	}
}
