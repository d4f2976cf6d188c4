package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/subreport/internal/dbx"
	"github.com/dmitrijs2005/subreport/internal/repositories/assets"
	"github.com/dmitrijs2005/subreport/internal/repositories/subscriptions"
	"github.com/dmitrijs2005/subreport/internal/repositories/users"
)

type RepositoryManager interface {
	Open(ctx context.Context, dsn string) (*sql.DB, error)
	Users(db dbx.DBTX) users.Repository
	Subscriptions(db dbx.DBTX) subscriptions.Repository
	Assets(db dbx.DBTX) assets.Repository
}
