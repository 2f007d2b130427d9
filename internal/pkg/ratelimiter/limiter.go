package ratelimiter

import (
	"context"
	"time"
)

// Policy é uma janela fixa: Limit requisições a cada Window.
type Policy struct {
	Limit  int
	Window time.Duration
}

// Result descreve a janela após contabilizar uma requisição.
type Result struct {
	Allowed    bool
	Remaining  int
	Reset      time.Time
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string, p Policy) (Result, error)
}

// Evaluate monta o Result a partir do contador da janela e do tempo que
// falta para ela expirar.
func (p Policy) Evaluate(count int, now time.Time, resetAfter time.Duration) Result {
	if resetAfter <= 0 {
		resetAfter = p.Window
	}
	res := Result{
		Allowed:   count <= p.Limit,
		Remaining: max(p.Limit-count, 0),
		Reset:     now.Add(resetAfter),
	}
	if !res.Allowed {
		res.RetryAfter = resetAfter
	}
	return res
}
