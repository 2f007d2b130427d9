package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrClosed = errors.New("fila encerrada")
	ErrFull   = errors.New("fila cheia")
)

// Event é uma tarefa assíncrona. Kind identifica o consumidor; Payload é
// decodificado por ele.
type Event struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Queue entrega eventos a workers. Dequeue devolve (nil, nil) quando o
// timeout expira sem eventos.
type Queue interface {
	Enqueue(ctx context.Context, event Event) error
	Dequeue(ctx context.Context, timeout time.Duration) (*Event, error)
	Size(ctx context.Context) (int64, error)
	Close() error
}
