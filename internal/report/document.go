package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/subreport/internal/common"
	"github.com/dmitrijs2005/subreport/internal/models"
)

// Document is the persisted JSON shape of a Snapshot.
type Document struct {
	ExportInfo ExportInfo   `json:"export_info"`
	Summary    Summary      `json:"summary"`
	Users      []UserRecord `json:"users"`
}

type ExportInfo struct {
	Timestamp    time.Time `json:"timestamp"`
	TotalRecords int       `json:"total_records"`
}

// UserRecord is one entry of Document.Users.
type UserRecord struct {
	UserID               string     `json:"user_id"`
	Name                 string     `json:"name"`
	Email                string     `json:"email"`
	GoogleID             *string    `json:"google_id"`
	StripeCustomerID     *string    `json:"stripe_customer_id"`
	HasClaimedTrial      bool       `json:"has_claimed_trial"`
	UserCreated          *time.Time `json:"user_created"`
	SubscriptionID       *string    `json:"subscription_id"`
	StripeSubscriptionID *string    `json:"stripe_subscription_id"`
	SubscriptionStatus   Status     `json:"subscription_status"`
	OriginalStatus       *string    `json:"original_status"`
	CurrentPeriodStart   *time.Time `json:"current_period_start"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end"`
	TrialEnd             *time.Time `json:"trial_end"`
	SubscriptionCreated  *time.Time `json:"subscription_created"`
}

// Document converts the snapshot to its persisted form.
func (s *Snapshot) Document() Document {
	d := Document{
		ExportInfo: ExportInfo{Timestamp: s.exportedAt, TotalRecords: len(s.users)},
		Summary:    s.summary,
		Users:      make([]UserRecord, 0, len(s.users)),
	}
	for _, u := range cloneAll(s.users) {
		d.Users = append(d.Users, UserRecord{
			UserID:               u.User.ID,
			Name:                 u.User.Name,
			Email:                u.User.Email,
			GoogleID:             u.User.GoogleID,
			StripeCustomerID:     u.User.StripeCustomerID,
			HasClaimedTrial:      u.User.HasClaimedTrial,
			UserCreated:          u.User.CreatedAt,
			SubscriptionID:       u.SubscriptionID,
			StripeSubscriptionID: u.StripeSubscriptionID,
			SubscriptionStatus:   u.Status,
			OriginalStatus:       u.RawStatus,
			CurrentPeriodStart:   u.CurrentPeriodStart,
			CurrentPeriodEnd:     u.CurrentPeriodEnd,
			TrialEnd:             u.TrialEnd,
			SubscriptionCreated:  u.SubscriptionCreated,
		})
	}
	return d
}

// MarshalIndent encodes the snapshot document with two-space indentation.
func (s *Snapshot) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(s.Document(), "", "  ")
}

// FromDocument rebuilds a Snapshot from its persisted form. The stored
// summary must agree with the one recomputed from the users.
func FromDocument(d Document) (*Snapshot, error) {
	users := make([]ClassifiedUser, 0, len(d.Users))
	for _, r := range d.Users {
		users = append(users, ClassifiedUser{
			User: models.User{
				ID:               r.UserID,
				Name:             r.Name,
				Email:            r.Email,
				GoogleID:         r.GoogleID,
				HasClaimedTrial:  r.HasClaimedTrial,
				StripeCustomerID: r.StripeCustomerID,
				CreatedAt:        r.UserCreated,
			},
			Status:               r.SubscriptionStatus,
			RawStatus:            r.OriginalStatus,
			SubscriptionID:       r.SubscriptionID,
			StripeSubscriptionID: r.StripeSubscriptionID,
			CurrentPeriodStart:   r.CurrentPeriodStart,
			CurrentPeriodEnd:     r.CurrentPeriodEnd,
			TrialEnd:             r.TrialEnd,
			SubscriptionCreated:  r.SubscriptionCreated,
		})
	}

	s, err := NewSnapshot(d.ExportInfo.Timestamp, users)
	if err != nil {
		return nil, err
	}
	if d.ExportInfo.TotalRecords != s.TotalRecords() {
		return nil, fmt.Errorf("%w: total_records %d, users %d", common.ErrInvalidSnapshot, d.ExportInfo.TotalRecords, s.TotalRecords())
	}
	if d.Summary != s.summary {
		return nil, fmt.Errorf("%w: stored summary %+v does not match users %+v", common.ErrInvalidSnapshot, d.Summary, s.summary)
	}
	return s, nil
}

// Unmarshal parses a persisted snapshot document.
func Unmarshal(b []byte) (*Snapshot, error) {
	var d Document
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidSnapshot, err)
	}
	return FromDocument(d)
}
