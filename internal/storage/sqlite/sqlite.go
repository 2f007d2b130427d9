package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/open-apime/zapdash/internal/storage/migrations"
)

const fileName = "zapdash.db"

type DB struct {
	Conn *sql.DB
	path string
	log  *zap.Logger
}

// Open abre o arquivo do banco em dataDir, criando o diretório se preciso.
// Também é usado pelo cmd/migrate.
func Open(dataDir string) (*sql.DB, string, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("sqlite: criar diretório: %w", err)
	}
	path := filepath.Join(dataDir, fileName)
	conn, err := sql.Open("sqlite3", "file:"+path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, "", fmt.Errorf("sqlite: falha ao abrir %s: %w", path, err)
	}
	// uma conexão só: o SQLite serializa escritas de qualquer forma
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	return conn, path, nil
}

func New(dataDir string, log *zap.Logger) (*DB, error) {
	conn, path, err := Open(dataDir)
	if err != nil {
		return nil, err
	}
	db := &DB{Conn: conn, path: path, log: log.Named("sqlite")}
	if err := db.Ping(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("sqlite: banco inacessível: %w", err)
	}
	db.log.Info("banco aberto", zap.String("path", path))
	return db, nil
}

// Migrate aplica o schema embutido.
func (db *DB) Migrate(ctx context.Context) error {
	applied, err := migrations.Apply(ctx, db.Conn, migrations.SQLite, db.log)
	if err != nil {
		return err
	}
	if applied > 0 {
		db.log.Info("migrations aplicadas", zap.Int("count", applied), zap.String("path", db.path))
	}
	return nil
}

func (db *DB) Ping(ctx context.Context) error {
	return db.Conn.PingContext(ctx)
}

func (db *DB) Close() error {
	if db.Conn == nil {
		return nil
	}
	return db.Conn.Close()
}
