package redisdb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	Enable   bool   `yaml:"enable" envconfig:"REDIS_ENABLE"`
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Username string `yaml:"username" envconfig:"REDIS_USERNAME"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD" json:"-"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
}

// NewRedisClient returns nil when redis is disabled.
func NewRedisClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	if !cfg.Enable {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  time.Second * 5,
		ReadTimeout:  time.Second * 2,
		WriteTimeout: time.Second * 2,
	})

	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "redis ping")
	}
	return client, nil
}
