package report

import (
	"github.com/dmitrijs2005/subreport/internal/models"
)

// Reconciliation is the outcome of matching subscriptions to users.
type Reconciliation struct {
	// Chosen maps user id to the subscription representing that user's
	// entitlement. Users without subscriptions have no entry.
	Chosen map[string]*models.Subscription

	// Orphans are subscriptions whose user id is not among the users.
	Orphans []models.Subscription
}

// Reconcile indexes subs by owning user once and picks one subscription per
// user: an active one if any, else a trialing one, else the newest. Ties
// within a rank go to the newer created_at (unknown creation time ranks
// oldest), then the smaller stripe subscription id, then the smaller id, so
// the choice does not depend on input order.
func Reconcile(users []models.User, subs []models.Subscription) Reconciliation {
	known := make(map[string]struct{}, len(users))
	for _, u := range users {
		known[u.ID] = struct{}{}
	}

	r := Reconciliation{Chosen: make(map[string]*models.Subscription)}

	index := make(map[string][]*models.Subscription)
	for i := range subs {
		s := &subs[i]
		if _, ok := known[s.UserID]; !ok {
			r.Orphans = append(r.Orphans, *s)
			continue
		}
		index[s.UserID] = append(index[s.UserID], s)
	}

	for userID, candidates := range index {
		best := candidates[0]
		for _, c := range candidates[1:] {
			if outranks(c, best) {
				best = c
			}
		}
		chosen := *best
		r.Chosen[userID] = &chosen
	}

	return r
}

func rank(status string) int {
	switch canonical(status) {
	case "active":
		return 0
	case "trialing":
		return 1
	default:
		return 2
	}
}

// outranks reports whether a should be chosen over b.
func outranks(a, b *models.Subscription) bool {
	if ra, rb := rank(a.Status), rank(b.Status); ra != rb {
		return ra < rb
	}

	switch {
	case a.CreatedAt != nil && b.CreatedAt == nil:
		return true
	case a.CreatedAt == nil && b.CreatedAt != nil:
		return false
	case a.CreatedAt != nil && b.CreatedAt != nil && !a.CreatedAt.Equal(*b.CreatedAt):
		return a.CreatedAt.After(*b.CreatedAt)
	}

	if a.StripeSubscriptionID != b.StripeSubscriptionID {
		return a.StripeSubscriptionID < b.StripeSubscriptionID
	}
	return a.ID < b.ID
}
