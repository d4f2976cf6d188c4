package models

import "time"

// Subscription is a row of the subscriptions table. Status is the billing
// provider's raw vocabulary (active, trialing, past_due, canceled, ...).
type Subscription struct {
	ID                   string
	StripeSubscriptionID string
	UserID               string
	StripeCustomerID     *string
	Status               string
	CurrentPeriodStart   *time.Time
	CurrentPeriodEnd     *time.Time
	TrialEnd             *time.Time
	CreatedAt            *time.Time
	UpdatedAt            *time.Time
}
