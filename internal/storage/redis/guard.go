package redis

import (
	"context"
	"fmt"
	"time"
)

// Guard marca chaves de uso único com SET NX e expiração.
type Guard struct {
	client *Client
	prefix string
}

func NewGuard(client *Client, prefix string) *Guard {
	return &Guard{client: client, prefix: prefix}
}

func (g *Guard) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := g.client.rdb.SetNX(ctx, g.prefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("guard redis: %s: %w", key, err)
	}
	return ok, nil
}
