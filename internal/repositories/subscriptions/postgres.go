package subscriptions

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

func (r *PostgresRepository) All(ctx context.Context) ([]models.Subscription, error) {
	query :=
		`SELECT id::text, stripe_subscription_id, user_id::text, stripe_customer_id, status,
		        current_period_start::text, current_period_end::text, trial_end::text,
		        created_at::text, updated_at::text
		 FROM subscriptions
		 ORDER BY id
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Subscription
	for rows.Next() {
		var (
			s                                models.Subscription
			stripeID, status                 *string
			periodStart, periodEnd, trialEnd *string
			createdAt, updatedAt             *string
		)
		if err := rows.Scan(&s.ID, &stripeID, &s.UserID, &s.StripeCustomerID, &status,
			&periodStart, &periodEnd, &trialEnd, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if stripeID != nil {
			s.StripeSubscriptionID = *stripeID
		}
		if status != nil {
			s.Status = *status
		}
		s.CurrentPeriodStart = timex.ParseNullTimestamp(periodStart)
		s.CurrentPeriodEnd = timex.ParseNullTimestamp(periodEnd)
		s.TrialEnd = timex.ParseNullTimestamp(trialEnd)
		s.CreatedAt = timex.ParseNullTimestamp(createdAt)
		s.UpdatedAt = timex.ParseNullTimestamp(updatedAt)
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
