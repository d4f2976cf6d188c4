package source

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/subreport/internal/dbx"
	"github.com/dmitrijs2005/subreport/internal/logging"
	"github.com/dmitrijs2005/subreport/internal/models"
	"github.com/dmitrijs2005/subreport/internal/repositories/assets"
	"github.com/dmitrijs2005/subreport/internal/repositories/repomanager"
)

// Postgres reads straight from the application database.
type Postgres struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	assets assets.Repository
	opts   Options
	log    logging.Logger
}

var newRepositoryManager = repomanager.NewPostgresRepositoryManager

// OpenPostgres connects with retries and binds the repositories.
func OpenPostgres(ctx context.Context, opts Options, log logging.Logger) (*Postgres, error) {
	m := newRepositoryManager()

	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	var db *sql.DB
	err := do(ctx, opts.Retries, func(ctx context.Context) error {
		var err error
		db, err = m.Open(ctx, opts.DatabaseDSN)
		if err != nil {
			log.Warn(ctx, "database not reachable", "error", err)
		}
		return transient(ctx, err)
	})
	if err != nil {
		return nil, unavailable(err)
	}

	return NewPostgres(db, m, opts, log), nil
}

func NewPostgres(db *sql.DB, m repomanager.RepositoryManager, opts Options, log logging.Logger) *Postgres {
	return &Postgres{
		db:     db,
		repos:  m,
		assets: m.Assets(db),
		opts:   opts,
		log:    log,
	}
}

func (p *Postgres) Kind() string { return "postgres" }

func (p *Postgres) Close() error { return p.db.Close() }

// snapshotTx makes users and subscriptions come from one consistent view.
var snapshotTx = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

func (p *Postgres) Fetch(ctx context.Context) (*Dataset, error) {
	ctx, cancel := withTimeout(ctx, p.opts.Timeout)
	defer cancel()

	var ds Dataset
	err := do(ctx, p.opts.Retries, func(ctx context.Context) error {
		err := dbx.WithTx(ctx, p.db, snapshotTx, func(ctx context.Context, tx dbx.DBTX) error {
			u, err := p.repos.Users(tx).All(ctx)
			if err != nil {
				return err
			}
			s, err := p.repos.Subscriptions(tx).All(ctx)
			if err != nil {
				return err
			}
			ds = Dataset{Users: u, Subscriptions: s}
			return nil
		})
		return transient(ctx, err)
	})
	if err != nil {
		return nil, unavailable(err)
	}

	p.log.Debug(ctx, "fetched dataset", "users", len(ds.Users), "subscriptions", len(ds.Subscriptions))
	return &ds, nil
}

func (p *Postgres) Sheets(ctx context.Context, userIDs []string) ([]models.Sheet, error) {
	return retried(ctx, p.opts, func(ctx context.Context) ([]models.Sheet, error) {
		return p.assets.ActiveSheets(ctx, userIDs)
	})
}

func (p *Postgres) Menus(ctx context.Context, userIDs []string) ([]models.Menu, error) {
	return retried(ctx, p.opts, func(ctx context.Context) ([]models.Menu, error) {
		return p.assets.Menus(ctx, userIDs)
	})
}

func (p *Postgres) CSVFiles(ctx context.Context, userIDs []string) ([]models.CSVFile, error) {
	return retried(ctx, p.opts, func(ctx context.Context) ([]models.CSVFile, error) {
		return p.assets.CSVFiles(ctx, userIDs)
	})
}

func retried[T any](ctx context.Context, opts Options, fn func(context.Context) ([]T, error)) ([]T, error) {
	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	var out []T
	err := do(ctx, opts.Retries, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return transient(ctx, err)
	})
	if err != nil {
		return nil, unavailable(err)
	}
	return out, nil
}
