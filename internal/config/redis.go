package config

import (
	"context"

	"github.com/sethvargo/go-envconfig"
)

// RedisConfig is optional. Without REDIS_ADDR the stream blocklist is kept
// in memory.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
}

func NewRedisConfigFromEnv() (*RedisConfig, error) {
	return newRedisConfig(context.Background(), nil)
}

func newRedisConfig(ctx context.Context, lookuper envconfig.Lookuper) (*RedisConfig, error) {
	var cfg RedisConfig
	if err := process(ctx, &cfg, lookuper); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *RedisConfig) Enabled() bool {
	return c.Addr != ""
}
