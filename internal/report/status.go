package report

import "strings"

// Status is the normalized subscription state of a user. It is a closed set;
// any raw provider status outside the known ones lands in StatusCanceled.
type Status string

const (
	StatusActive         Status = "active"
	StatusTrialing       Status = "trialing"
	StatusPastDue        Status = "past_due"
	StatusCanceled       Status = "canceled"
	StatusNoSubscription Status = "no_subscription"
)

// Statuses lists every normalized status in report order.
var Statuses = []Status{
	StatusActive,
	StatusCanceled,
	StatusTrialing,
	StatusPastDue,
	StatusNoSubscription,
}

// Valid reports whether s is one of the normalized statuses.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Entitled reports whether users in this state get downstream processing.
func (s Status) Entitled() bool {
	return s == StatusActive || s == StatusTrialing
}

// Label is the human-readable name used by the presentation tables.
func (s Status) Label() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusTrialing:
		return "Trialing"
	case StatusPastDue:
		return "Past Due"
	case StatusCanceled:
		return "Canceled"
	case StatusNoSubscription:
		return "No Subscription"
	default:
		return string(s)
	}
}

func canonical(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
