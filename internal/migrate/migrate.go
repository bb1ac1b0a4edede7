// Package migrate applies embedded SQL migrations on startup.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/and161185/wordshelf/migrations"
)

// goose keeps its settings in package globals.
var mu sync.Mutex

// Up runs pending API server migrations.
func Up(ctx context.Context, dsn string) error {
	return run(ctx, dsn, migrations.ServerDir, "goose_db_version")
}

// UpClient creates the client session table in a local database.
// It tracks versions separately so it can share a database with the server schema.
func UpClient(ctx context.Context, dsn string) error {
	return run(ctx, dsn, migrations.ClientDir, "goose_client_version")
}

func run(ctx context.Context, dsn, dir, table string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	mu.Lock()
	defer mu.Unlock()
	goose.SetBaseFS(migrations.FS)
	goose.SetTableName(table)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("migrate %s: %w", dir, err)
	}
	return nil
}
