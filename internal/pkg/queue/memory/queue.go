package memory

import (
	"context"
	"sync"
	"time"

	"github.com/open-apime/zapdash/internal/pkg/queue"
)

// Buffer é a fila em processo usada quando não há Redis. Eventos pendentes
// se perdem num restart.
type Buffer struct {
	ch chan queue.Event

	mu     sync.RWMutex
	closed bool
}

const defaultCapacity = 1000

func NewQueue(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Buffer{ch: make(chan queue.Event, capacity)}
}

// Enqueue nunca bloqueia: com o buffer cheio devolve queue.ErrFull.
func (b *Buffer) Enqueue(ctx context.Context, ev queue.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return queue.ErrClosed
	}

	select {
	case b.ch <- ev:
		return nil
	default:
		return queue.ErrFull
	}
}

func (b *Buffer) Dequeue(ctx context.Context, timeout time.Duration) (*queue.Event, error) {
	wait := time.NewTimer(timeout)
	defer wait.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-wait.C:
		return nil, nil
	case ev, ok := <-b.ch:
		if !ok {
			return nil, queue.ErrClosed
		}
		return &ev, nil
	}
}

func (b *Buffer) Size(context.Context) (int64, error) {
	return int64(len(b.ch)), nil
}

// Close recusa novos eventos; os já enfileirados continuam disponíveis
// para Dequeue.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	close(b.ch)
	return nil
}
