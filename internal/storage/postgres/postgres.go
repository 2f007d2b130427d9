package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/open-apime/zapdash/internal/config"
	"github.com/open-apime/zapdash/internal/storage/migrations"
)

type DB struct {
	Pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*DB, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("postgres: falha ao conectar: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: falha ao ping: %w", err)
	}

	log.Info("postgres: conectado com sucesso",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Name),
	)

	return &DB{Pool: pool, log: log}, nil
}

// Migrate aplica o schema embutido usando o próprio pool.
func (db *DB) Migrate(ctx context.Context) error {
	sqlDB := stdlib.OpenDBFromPool(db.Pool)
	defer sqlDB.Close()

	applied, err := migrations.Apply(ctx, sqlDB, migrations.Postgres, db.log)
	if err != nil {
		return err
	}
	if applied > 0 {
		db.log.Info("postgres: migrations aplicadas", zap.Int("count", applied))
	}
	return nil
}

func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

func (db *DB) Close() error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	return nil
}
