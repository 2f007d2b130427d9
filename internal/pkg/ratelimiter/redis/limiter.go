package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/open-apime/zapdash/internal/pkg/ratelimiter"
)

// INCR e PEXPIRE no mesmo script para que a primeira requisição da janela
// sempre deixe TTL na chave.
var incrWithTTL = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
    redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

var errBadReply = errors.New("limiter redis: resposta inválida")

// Limiter compartilha as janelas entre réplicas da API.
type Limiter struct {
	rdb *redis.Client
}

func NewLimiter(rdb *redis.Client) *Limiter {
	return &Limiter{rdb: rdb}
}

func (l *Limiter) Allow(ctx context.Context, key string, p ratelimiter.Policy) (ratelimiter.Result, error) {
	reply, err := incrWithTTL.Run(ctx, l.rdb, []string{key}, p.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return ratelimiter.Result{}, fmt.Errorf("limiter redis: %w", err)
	}
	if len(reply) != 2 {
		return ratelimiter.Result{}, errBadReply
	}
	ttl := time.Duration(reply[1]) * time.Millisecond
	return p.Evaluate(int(reply[0]), time.Now(), ttl), nil
}
