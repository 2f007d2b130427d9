package lock

import (
	"context"
	"time"
)

// Release libera um lock obtido. Liberar um lock já expirado não é erro.
type Release func(ctx context.Context) error

// Locker serializa operações por chave, inclusive entre réplicas quando
// apoiado em Redis.
type Locker interface {
	// TryAcquire não bloqueia: ok=false indica que outro dono detém a chave.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (release Release, ok bool, err error)
}

// Guard marca chaves de uso único. Claim devolve true apenas para o primeiro
// chamador dentro do ttl.
type Guard interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
