package factory

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/open-apime/zapdash/internal/config"
	"github.com/open-apime/zapdash/internal/pkg/lock"
	lock_memory "github.com/open-apime/zapdash/internal/pkg/lock/memory"
	"github.com/open-apime/zapdash/internal/pkg/queue"
	queue_memory "github.com/open-apime/zapdash/internal/pkg/queue/memory"
	queue_redis "github.com/open-apime/zapdash/internal/pkg/queue/redis"
	"github.com/open-apime/zapdash/internal/pkg/ratelimiter"
	limiter_memory "github.com/open-apime/zapdash/internal/pkg/ratelimiter/memory"
	limiter_redis "github.com/open-apime/zapdash/internal/pkg/ratelimiter/redis"
	"github.com/open-apime/zapdash/internal/storage"
	"github.com/open-apime/zapdash/internal/storage/postgres"
	storage_redis "github.com/open-apime/zapdash/internal/storage/redis"
	"github.com/open-apime/zapdash/internal/storage/sqlite"
)

const (
	onboardingQueueKey = "zapdash:onboarding"
	lockPrefix         = "zapdash:lock:"
	guardPrefix        = "zapdash:guard:"
)

type Repositories struct {
	Users    storage.UserRepository
	Profiles storage.ProfileRepository

	Locker          lock.Locker
	Guard           lock.Guard
	OnboardingQueue queue.Queue
	RateLimiter     ratelimiter.Limiter
	RedisClient     *storage_redis.Client // nil quando o Redis está desabilitado

	closers []func() error
	checks  map[string]func(ctx context.Context) error
}

// Ping verifica banco e Redis. O erro identifica o primeiro componente fora do ar.
func (r *Repositories) Ping(ctx context.Context) error {
	for _, name := range []string{"database", "redis"} {
		check, ok := r.checks[name]
		if !ok {
			continue
		}
		if err := check(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Close libera banco, Redis e fila na ordem inversa da criação.
func (r *Repositories) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type migrator interface {
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

func NewRepositories(ctx context.Context, cfg config.Config, log *zap.Logger) (*Repositories, error) {
	log.Info("inicializando repositórios", zap.String("driver", cfg.Storage.Driver))

	repos := &Repositories{checks: make(map[string]func(ctx context.Context) error)}

	if cfg.Redis.Enabled {
		log.Info("inicializando Redis...")
		client, err := storage_redis.New(ctx, cfg.Redis, log)
		if err != nil {
			log.Error("erro ao conectar com Redis", zap.Error(err))
			return nil, err
		}
		repos.RedisClient = client
		repos.closers = append(repos.closers, client.Close)
		repos.checks["redis"] = client.Ping

		repos.Locker = storage_redis.NewLocker(client, lockPrefix)
		repos.Guard = storage_redis.NewGuard(client, guardPrefix)
		repos.OnboardingQueue = queue_redis.NewQueue(client.RDB(), onboardingQueueKey)
		repos.RateLimiter = limiter_redis.NewLimiter(client.RDB())
		log.Info("Redis conectado, lock, fila e limiter configurados")
	} else {
		log.Info("usando implementações em memória (Redis desabilitado)")
		memLimiter := limiter_memory.NewLimiter()
		repos.Locker = lock_memory.NewLocker()
		repos.Guard = lock_memory.NewGuard()
		repos.OnboardingQueue = queue_memory.NewQueue(cfg.Onboarding.QueueSize)
		repos.RateLimiter = memLimiter
		repos.closers = append(repos.closers, func() error {
			memLimiter.Stop()
			return nil
		})
	}
	repos.closers = append(repos.closers, repos.OnboardingQueue.Close)

	var db migrator
	switch cfg.Storage.Driver {
	case "sqlite", "":
		sq, err := sqlite.New(cfg.Storage.DataDir, log)
		if err != nil {
			log.Error("erro ao conectar com SQLite", zap.Error(err))
			_ = repos.Close()
			return nil, err
		}
		db = sq
		repos.Users = sqlite.NewUserRepository(sq)
		repos.Profiles = sqlite.NewProfileRepository(sq)

	case "postgres":
		pg, err := postgres.New(ctx, cfg.DB, log)
		if err != nil {
			log.Error("erro ao conectar com PostgreSQL", zap.Error(err))
			_ = repos.Close()
			return nil, err
		}
		db = pg
		repos.Users = postgres.NewUserRepository(pg)
		repos.Profiles = postgres.NewProfileRepository(pg)

	default:
		log.Error("driver de storage desconhecido", zap.String("driver", cfg.Storage.Driver))
		_ = repos.Close()
		return nil, &ErrUnknownDriver{Driver: cfg.Storage.Driver}
	}
	repos.closers = append(repos.closers, db.Close)
	repos.checks["database"] = db.Ping

	if err := db.Migrate(ctx); err != nil {
		log.Error("erro ao aplicar migrations", zap.Error(err))
		_ = repos.Close()
		return nil, err
	}

	log.Info("repositórios criados com sucesso", zap.String("driver", cfg.Storage.Driver))
	return repos, nil
}

type ErrUnknownDriver struct {
	Driver string
}

func (e *ErrUnknownDriver) Error() string {
	return "storage: driver desconhecido: " + e.Driver
}
