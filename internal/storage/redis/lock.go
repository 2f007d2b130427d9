package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/open-apime/zapdash/internal/pkg/lock"
)

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Locker usa SET NX com um valor único por dono.
type Locker struct {
	client *Client
	prefix string
}

func NewLocker(client *Client, prefix string) *Locker {
	return &Locker{client: client, prefix: prefix}
}

func (l *Locker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (lock.Release, bool, error) {
	fullKey := l.prefix + key
	owner := uuid.New().String()

	acquired, err := l.client.rdb.SetNX(ctx, fullKey, owner, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("lock redis: adquirir %s: %w", key, err)
	}
	if !acquired {
		return nil, false, nil
	}

	return func(ctx context.Context) error {
		err := releaseScript.Run(ctx, l.client.rdb, []string{fullKey}, owner).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("lock redis: liberar %s: %w", key, err)
		}
		return nil
	}, true, nil
}
