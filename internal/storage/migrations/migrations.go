package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// List devolve os arquivos de migration do dialeto em ordem de aplicação.
func List(dialect Dialect) ([]string, error) {
	entries, err := fs.ReadDir(files, string(dialect))
	if err != nil {
		return nil, fmt.Errorf("migrations: dialeto desconhecido %q: %w", dialect, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Apply executa as migrations pendentes, cada uma em sua própria transação,
// e devolve quantas foram aplicadas.
func Apply(ctx context.Context, db *sql.DB, dialect Dialect, log *zap.Logger) (int, error) {
	if err := ensureTable(ctx, db, dialect); err != nil {
		return 0, fmt.Errorf("migrations: preparar schema_migrations: %w", err)
	}

	names, err := List(dialect)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, name := range names {
		done, err := isApplied(ctx, db, dialect, name)
		if err != nil {
			return applied, err
		}
		if done {
			continue
		}

		stmt, err := fs.ReadFile(files, path.Join(string(dialect), name))
		if err != nil {
			return applied, fmt.Errorf("migrations: ler %s: %w", name, err)
		}

		log.Info("migrations: aplicando", zap.String("version", name), zap.String("dialect", string(dialect)))
		if err := applyOne(ctx, db, dialect, name, string(stmt)); err != nil {
			return applied, fmt.Errorf("migrations: executar %s: %w", name, err)
		}
		applied++
	}
	return applied, nil
}

func ensureTable(ctx context.Context, db *sql.DB, dialect Dialect) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`
	if dialect == Postgres {
		query = `
			CREATE TABLE IF NOT EXISTS schema_migrations (
				version TEXT PRIMARY KEY,
				applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)
		`
	}
	_, err := db.ExecContext(ctx, query)
	return err
}

func isApplied(ctx context.Context, db *sql.DB, dialect Dialect, version string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM schema_migrations WHERE version = ` + placeholder(dialect)
	if err := db.QueryRowContext(ctx, query, version).Scan(&count); err != nil {
		return false, fmt.Errorf("migrations: verificar %s: %w", version, err)
	}
	return count > 0, nil
}

func applyOne(ctx context.Context, db *sql.DB, dialect Dialect, version, stmt string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (`+placeholder(dialect)+`)`, version); err != nil {
		return err
	}
	return tx.Commit()
}

func placeholder(dialect Dialect) string {
	if dialect == Postgres {
		return "$1"
	}
	return "?"
}
