package memory

import (
	"context"
	"sync"
	"time"

	"github.com/open-apime/zapdash/internal/pkg/ratelimiter"
)

type counter struct {
	hits    int
	expires time.Time
}

// Limiter guarda as janelas no processo. Serve para instalações com uma
// única réplica da API.
type Limiter struct {
	mu       sync.Mutex
	counters map[string]*counter
	clock    func() time.Time
	done     chan struct{}
	stopOnce sync.Once
}

func NewLimiter() *Limiter {
	l := &Limiter{
		counters: make(map[string]*counter),
		clock:    time.Now,
		done:     make(chan struct{}),
	}
	go l.sweep(time.Minute)
	return l
}

func (l *Limiter) Allow(_ context.Context, key string, p ratelimiter.Policy) (ratelimiter.Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	c := l.counters[key]
	if c == nil || !now.Before(c.expires) {
		c = &counter{expires: now.Add(p.Window)}
		l.counters[key] = c
	}
	c.hits++
	return p.Evaluate(c.hits, now, c.expires.Sub(now)), nil
}

// Stop encerra a varredura de janelas expiradas.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

func (l *Limiter) sweep(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-t.C:
		}
		l.mu.Lock()
		now := l.clock()
		for key, c := range l.counters {
			if !now.Before(c.expires) {
				delete(l.counters, key)
			}
		}
		l.mu.Unlock()
	}
}
