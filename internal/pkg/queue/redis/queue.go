package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/open-apime/zapdash/internal/pkg/queue"
)

// List é uma fila LPUSH/BRPOP compartilhada entre réplicas. Entradas que não
// decodificam vão para "<key>:dead" em vez de sumirem.
type List struct {
	rdb     *redis.Client
	key     string
	deadKey string
}

func NewQueue(rdb *redis.Client, key string) *List {
	return &List{rdb: rdb, key: key, deadKey: key + ":dead"}
}

func (l *List) Enqueue(ctx context.Context, ev queue.Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("fila redis: serializar %s: %w", ev.Kind, err)
	}
	return wrap("enfileirar", l.rdb.LPush(ctx, l.key, raw).Err())
}

func (l *List) Dequeue(ctx context.Context, timeout time.Duration) (*queue.Event, error) {
	reply, err := l.rdb.BRPop(ctx, timeout, l.key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, wrap("consumir", err)
	case len(reply) != 2:
		return nil, errors.New("fila redis: resposta inválida do BRPOP")
	}

	var ev queue.Event
	if err := json.Unmarshal([]byte(reply[1]), &ev); err != nil {
		if dlErr := l.rdb.LPush(ctx, l.deadKey, reply[1]).Err(); dlErr != nil {
			return nil, fmt.Errorf("fila redis: evento inválido (%v) e falha ao mover para %s: %w", err, l.deadKey, dlErr)
		}
		return nil, fmt.Errorf("fila redis: evento inválido movido para %s: %w", l.deadKey, err)
	}
	return &ev, nil
}

func (l *List) Size(ctx context.Context) (int64, error) {
	n, err := l.rdb.LLen(ctx, l.key).Result()
	return n, wrap("tamanho", err)
}

// Close é no-op: o client pertence ao storage/redis.
func (l *List) Close() error { return nil }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("fila redis: %s: %w", op, err)
}
