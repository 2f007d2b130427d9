package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"

	"github.com/open-apime/zapdash/internal/config"
	"github.com/open-apime/zapdash/internal/logger"
	"github.com/open-apime/zapdash/internal/storage/migrations"
	"github.com/open-apime/zapdash/internal/storage/sqlite"
)

func main() {
	list := flag.Bool("list", false, "Lista as migrations embutidas e sai")
	flag.Parse()

	cfg := config.Load()

	logr, err := logger.New(cfg.App.Env, cfg.Log.Level)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logr.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var (
		db      *sql.DB
		dialect migrations.Dialect
	)
	switch cfg.Storage.Driver {
	case "sqlite", "":
		dialect = migrations.SQLite
		db, _, err = sqlite.Open(cfg.Storage.DataDir)
	case "postgres":
		dialect = migrations.Postgres
		db, err = sql.Open("postgres", cfg.DB.DSN())
	default:
		log.Fatalf("migrate: driver desconhecido: %s", cfg.Storage.Driver)
	}
	if err != nil {
		log.Fatalf("migrate: falha ao abrir banco: %v", err)
	}
	defer db.Close()

	if *list {
		names, err := migrations.List(dialect)
		if err != nil {
			log.Fatalf("migrate: %v", err)
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return
	}

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("migrate: banco indisponível: %v", err)
	}

	applied, err := migrations.Apply(ctx, db, dialect, logr)
	if err != nil {
		log.Fatalf("migrate: erro ao aplicar migrations: %v", err)
	}
	log.Printf("migrate: concluído com sucesso (%d aplicadas).", applied)
}
