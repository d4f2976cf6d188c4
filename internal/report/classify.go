package report

import (
	"time"

	"github.com/dmitrijs2005/subreport/internal/models"
)

// ClassifiedUser is a user joined with its chosen subscription (if any) and
// the resulting normalized status.
type ClassifiedUser struct {
	User   models.User
	Status Status

	// RawStatus is the chosen subscription's status exactly as the source
	// returned it; nil when the user has no subscription.
	RawStatus *string

	SubscriptionID       *string
	StripeSubscriptionID *string
	CurrentPeriodStart   *time.Time
	CurrentPeriodEnd     *time.Time
	TrialEnd             *time.Time
	SubscriptionCreated  *time.Time
}

// Normalize maps a raw provider status to its bucket. Matching ignores case
// and surrounding whitespace.
func Normalize(raw string) Status {
	switch canonical(raw) {
	case "active":
		return StatusActive
	case "trialing":
		return StatusTrialing
	case "past_due":
		return StatusPastDue
	default:
		return StatusCanceled
	}
}

// Classify joins u with its chosen subscription. sub may be nil.
func Classify(u models.User, sub *models.Subscription) ClassifiedUser {
	cu := ClassifiedUser{User: cloneUser(u), Status: StatusNoSubscription}
	if sub == nil {
		return cu
	}

	raw := sub.Status
	id := sub.ID
	stripeID := sub.StripeSubscriptionID

	cu.Status = Normalize(raw)
	cu.RawStatus = &raw
	cu.SubscriptionID = &id
	cu.StripeSubscriptionID = &stripeID
	cu.CurrentPeriodStart = clonePtr(sub.CurrentPeriodStart)
	cu.CurrentPeriodEnd = clonePtr(sub.CurrentPeriodEnd)
	cu.TrialEnd = clonePtr(sub.TrialEnd)
	cu.SubscriptionCreated = clonePtr(sub.CreatedAt)

	return cu
}

// clone copies u with every pointer field detached from the original.
func (u ClassifiedUser) clone() ClassifiedUser {
	u.User = cloneUser(u.User)
	u.RawStatus = clonePtr(u.RawStatus)
	u.SubscriptionID = clonePtr(u.SubscriptionID)
	u.StripeSubscriptionID = clonePtr(u.StripeSubscriptionID)
	u.CurrentPeriodStart = clonePtr(u.CurrentPeriodStart)
	u.CurrentPeriodEnd = clonePtr(u.CurrentPeriodEnd)
	u.TrialEnd = clonePtr(u.TrialEnd)
	u.SubscriptionCreated = clonePtr(u.SubscriptionCreated)
	return u
}

func cloneUser(u models.User) models.User {
	u.GoogleID = clonePtr(u.GoogleID)
	u.StripeCustomerID = clonePtr(u.StripeCustomerID)
	u.CreatedAt = clonePtr(u.CreatedAt)
	return u
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneAll(users []ClassifiedUser) []ClassifiedUser {
	if users == nil {
		return nil
	}
	out := make([]ClassifiedUser, len(users))
	for i, u := range users {
		out[i] = u.clone()
	}
	return out
}
