// Package assets reads the per-user auxiliary records (sheets, menus and CSV
// uploads) that the enrichment step attaches to entitled users.
package assets

import (
	"context"

	"github.com/dmitrijs2005/subreport/internal/models"
)

// Repository loads auxiliary records for a set of user ids. An empty id set
// yields no rows and no query.
type Repository interface {
	// ActiveSheets returns sheets with is_active = true.
	ActiveSheets(ctx context.Context, userIDs []string) ([]models.Sheet, error)
	Menus(ctx context.Context, userIDs []string) ([]models.Menu, error)
	CSVFiles(ctx context.Context, userIDs []string) ([]models.CSVFile, error)
}
