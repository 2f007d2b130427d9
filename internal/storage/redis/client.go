package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/open-apime/zapdash/internal/config"
)

// Client é a conexão compartilhada por lock, guard, fila de onboarding e
// rate limiter.
type Client struct {
	rdb *redis.Client
	log *zap.Logger
}

func New(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: falha ao conectar em %s: %w", cfg.Addr, err)
	}

	log.Info("redis: conectado", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	return &Client{rdb: rdb, log: log.Named("redis")}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	c.log.Debug("fechando conexão")
	return c.rdb.Close()
}

func (c *Client) RDB() *redis.Client {
	return c.rdb
}
