// Package models defines the rows subreport reads from the backend and the
// records it keeps locally.
package models

import "time"

// User is a row of the users table. Nullable columns are pointers.
type User struct {
	ID               string
	Name             string
	Email            string
	GoogleID         *string
	HasClaimedTrial  bool
	StripeCustomerID *string
	CreatedAt        *time.Time
}
