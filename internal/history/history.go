// Package history keeps a local SQLite log of executed runs.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/dmitrijs2005/subreport/internal/common"
	"github.com/dmitrijs2005/subreport/internal/dbx"
	"github.com/dmitrijs2005/subreport/internal/filex"
	"github.com/dmitrijs2005/subreport/internal/history/migrations"
	"github.com/dmitrijs2005/subreport/internal/models"
	"github.com/dmitrijs2005/subreport/internal/repositories/runs"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}

	return gooseUpContext(ctx, db, ".")
}

// Open creates the database file (and its directory) if needed and applies
// pending migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if _, err := filex.EnsureDir(filepath.Dir(path)); err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrPersistence, err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: open history: %w", common.ErrPersistence, err)
	}
	// one writer at a time; also keeps :memory: on a single connection
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: migrate history: %w", common.ErrPersistence, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Record stores run with its steps in one transaction.
func (s *Store) Record(ctx context.Context, run *models.Run) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return runs.NewSQLiteRepository(tx).Insert(ctx, run)
	})
	if err != nil {
		return fmt.Errorf("%w: record run %s: %w", common.ErrPersistence, run.ID, err)
	}
	return nil
}

// Recent lists the last n runs, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]models.Run, error) {
	return runs.NewSQLiteRepository(s.db).Recent(ctx, n)
}
