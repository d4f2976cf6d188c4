package subscriptions

import (
	"context"

	"github.com/dmitrijs2005/subreport/internal/models"
)

// Repository reads subscription rows from the backend.
type Repository interface {
	// All returns every subscription row, including rows of unknown users.
	All(ctx context.Context) ([]models.Subscription, error)
}
