package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/open-apime/zapdash/internal/pkg/lock"
)

type entry struct {
	owner     string
	expiresAt time.Time
}

// Locker mantém os locks no processo; serve para uma única réplica.
type Locker struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func NewLocker() *Locker {
	return &Locker{entries: make(map[string]entry), now: time.Now}
}

func (l *Locker) TryAcquire(_ context.Context, key string, ttl time.Duration) (lock.Release, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.entries[key]; ok && now.Before(e.expiresAt) {
		return nil, false, nil
	}

	owner := uuid.New().String()
	l.entries[key] = entry{owner: owner, expiresAt: now.Add(ttl)}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if e, ok := l.entries[key]; ok && e.owner == owner {
			delete(l.entries, key)
		}
		return nil
	}, true, nil
}

// Guard registra chaves já reivindicadas até expirarem.
type Guard struct {
	mu      sync.Mutex
	claimed map[string]time.Time
	now     func() time.Time
}

func NewGuard() *Guard {
	return &Guard{claimed: make(map[string]time.Time), now: time.Now}
}

func (g *Guard) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for k, exp := range g.claimed {
		if !now.Before(exp) {
			delete(g.claimed, k)
		}
	}
	if _, ok := g.claimed[key]; ok {
		return false, nil
	}
	g.claimed[key] = now.Add(ttl)
	return true, nil
}
