package users

import (
	"context"

	"github.com/dmitrijs2005/subreport/internal/models"
)

// Repository reads users from the backend.
type Repository interface {
	// All returns every user in the table's natural order.
	All(ctx context.Context) ([]models.User, error)
}
