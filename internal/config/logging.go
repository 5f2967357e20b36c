package config

import "github.com/caarlos0/env/v11"

type LogConfig struct {
	Level   string `env:"LOG_LEVEL" envDefault:"info"`
	Console bool   `env:"LOG_TO_CONSOLE" envDefault:"true"`
	ToFile  bool   `env:"LOG_TO_FILE" envDefault:"false"`
	Caller  bool   `env:"LOG_CALLER" envDefault:"false"`
	// legacy, json or console.
	Format string `env:"LOG_FORMAT" envDefault:"legacy"`
	File   string `env:"LOG_FILE" envDefault:"logs/chess-server.log"`
}

func LoadLog() (LogConfig, error) {
	var cfg LogConfig
	err := env.Parse(&cfg)
	return cfg, err
}
