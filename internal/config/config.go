package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`

	APIPort  int    `env:"API_PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`

	HTTPTimeoutSeconds int `env:"HTTP_TIMEOUT_SECONDS,default=30"`
	RateLimitPerSec    int `env:"RATE_LIMIT_PER_SEC,default=10"`

	DrainIntervalSeconds int `env:"DRAIN_INTERVAL_SECONDS,default=60"`
	DrainBatchSize       int `env:"DRAIN_BATCH_SIZE,default=30"`

	DLRIntervalSeconds int `env:"DLR_INTERVAL_SECONDS,default=300"`
	DLRBatchSize       int `env:"DLR_BATCH_SIZE,default=30"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
