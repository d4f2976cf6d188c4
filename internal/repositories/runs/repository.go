// Package runs stores executed runs and their steps in the local history
// database.
package runs

import (
	"context"

	"github.com/dmitrijs2005/subreport/internal/models"
)

type Repository interface {
	// Insert writes the run and all of its steps.
	Insert(ctx context.Context, run *models.Run) error
	// Recent returns up to limit runs, newest first, steps in order.
	Recent(ctx context.Context, limit int) ([]models.Run, error)
}
