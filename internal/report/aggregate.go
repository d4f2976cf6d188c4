package report

import "fmt"

// Summary holds the counters of one snapshot.
type Summary struct {
	TotalUsers            int `json:"total_users"`
	ActiveSubscriptions   int `json:"active_subscriptions"`
	CanceledSubscriptions int `json:"canceled_subscriptions"`
	TrialingSubscriptions int `json:"trialing_subscriptions"`
	PastDueSubscriptions  int `json:"past_due_subscriptions"`
	NoSubscriptions       int `json:"no_subscriptions"`
	ClaimedTrials         int `json:"claimed_trials"`
}

// Summarize counts users per normalized status and claimed trials in one
// pass. A user with an unknown status is counted as canceled so that the
// buckets always add up to TotalUsers.
func Summarize(users []ClassifiedUser) Summary {
	var s Summary
	for _, u := range users {
		s.TotalUsers++
		switch u.Status {
		case StatusActive:
			s.ActiveSubscriptions++
		case StatusTrialing:
			s.TrialingSubscriptions++
		case StatusPastDue:
			s.PastDueSubscriptions++
		case StatusNoSubscription:
			s.NoSubscriptions++
		default:
			s.CanceledSubscriptions++
		}
		if u.User.HasClaimedTrial {
			s.ClaimedTrials++
		}
	}
	return s
}

// Count returns the counter for status.
func (s Summary) Count(status Status) int {
	switch status {
	case StatusActive:
		return s.ActiveSubscriptions
	case StatusTrialing:
		return s.TrialingSubscriptions
	case StatusPastDue:
		return s.PastDueSubscriptions
	case StatusCanceled:
		return s.CanceledSubscriptions
	case StatusNoSubscription:
		return s.NoSubscriptions
	default:
		return 0
	}
}

// Validate checks that the status buckets add up to TotalUsers and that
// claimed trials do not exceed it.
func (s Summary) Validate() error {
	sum := s.ActiveSubscriptions + s.CanceledSubscriptions + s.TrialingSubscriptions +
		s.PastDueSubscriptions + s.NoSubscriptions
	if sum != s.TotalUsers {
		return fmt.Errorf("status counts sum to %d, total users is %d", sum, s.TotalUsers)
	}
	if s.ClaimedTrials < 0 || s.ClaimedTrials > s.TotalUsers {
		return fmt.Errorf("claimed trials %d out of range for %d users", s.ClaimedTrials, s.TotalUsers)
	}
	return nil
}
