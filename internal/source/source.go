// Package source reads users, subscriptions and per-user assets from the
// backend. Two backends exist: a direct PostgreSQL connection and the
// Supabase PostgREST API.
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/subreport/internal/common"
	"github.com/dmitrijs2005/subreport/internal/logging"
	"github.com/dmitrijs2005/subreport/internal/models"
)

// Dataset is everything one extract run needs, in source order.
type Dataset struct {
	Users         []models.User
	Subscriptions []models.Subscription
}

type Source interface {
	Fetch(ctx context.Context) (*Dataset, error)
}

// AssetSource loads auxiliary records for a set of user ids. Sheets only
// returns active sheets.
type AssetSource interface {
	Sheets(ctx context.Context, userIDs []string) ([]models.Sheet, error)
	Menus(ctx context.Context, userIDs []string) ([]models.Menu, error)
	CSVFiles(ctx context.Context, userIDs []string) ([]models.CSVFile, error)
}

// Backend is an opened source. Close releases connections.
type Backend interface {
	Source
	AssetSource
	Close() error
	Kind() string
}

type Options struct {
	DatabaseDSN string
	SupabaseURL string
	SupabaseKey string
	Timeout     time.Duration
	Retries     uint64
	PageSize    int
}

// seams for tests
var (
	openPostgres = func(ctx context.Context, opts Options, log logging.Logger) (Backend, error) {
		p, err := OpenPostgres(ctx, opts, log)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	openREST = func(ctx context.Context, opts Options, log logging.Logger) (Backend, error) {
		r, err := NewREST(opts, log)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
)

// Open picks the backend: a database DSN wins over Supabase credentials.
// With neither configured it returns an error wrapping common.ErrConfig.
func Open(ctx context.Context, opts Options, log logging.Logger) (Backend, error) {
	switch {
	case opts.DatabaseDSN != "":
		return openPostgres(ctx, opts, log)
	case opts.SupabaseURL != "" && opts.SupabaseKey != "":
		return openREST(ctx, opts, log)
	case opts.SupabaseURL != "" || opts.SupabaseKey != "":
		return nil, fmt.Errorf("%w: SUPABASE_URL and SUPABASE_ANON_KEY (or SUPABASE_SERVICE_ROLE_KEY) must both be set", common.ErrConfig)
	default:
		return nil, fmt.Errorf("%w: set DATABASE_DSN or SUPABASE_URL with SUPABASE_ANON_KEY", common.ErrConfig)
	}
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", common.ErrSourceUnavailable, err)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
