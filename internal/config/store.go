package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type StoreConfig struct {
	Backend     string        `env:"STORE_BACKEND" envDefault:"redis"`
	RedisURL    string        `env:"REDIS_URL"`
	GameTTL     time.Duration `env:"GAME_TTL" envDefault:"0s"`
	DatabaseURL string        `env:"DATABASE_URL"`
}

func LoadStore() (StoreConfig, error) {
	var cfg StoreConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	cfg.RedisURL = strings.TrimSpace(cfg.RedisURL)
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	switch cfg.Backend {
	case BackendRedis:
		if cfg.RedisURL == "" {
			return cfg, fmt.Errorf("REDIS_URL is required when STORE_BACKEND=redis")
		}
	case BackendMemory:
	default:
		return cfg, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendRedis, BackendMemory, cfg.Backend)
	}
	if cfg.GameTTL < 0 {
		return cfg, fmt.Errorf("GAME_TTL must not be negative")
	}
	return cfg, nil
}
