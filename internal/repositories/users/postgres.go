package users

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/subreport/internal/dbx"
	"github.com/dmitrijs2005/subreport/internal/models"
	"github.com/dmitrijs2005/subreport/internal/timex"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// All selects every user. Timestamps come back as text and are parsed
// leniently so one malformed value does not fail the whole read.
func (r *PostgresRepository) All(ctx context.Context) ([]models.User, error) {
	query :=
		`SELECT id::text, name, email, google_id, has_claimed_trial, stripe_customer_id, created_at::text
		 FROM users
		 ORDER BY created_at, id
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.User
	for rows.Next() {
		var (
			u         models.User
			name      *string
			trial     *bool
			createdAt *string
		)
		if err := rows.Scan(&u.ID, &name, &u.Email, &u.GoogleID, &trial, &u.StripeCustomerID, &createdAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if name != nil {
			u.Name = *name
		}
		u.HasClaimedTrial = trial != nil && *trial
		u.CreatedAt = timex.ParseNullTimestamp(createdAt)
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
