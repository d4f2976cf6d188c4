// Package report turns raw user and subscription rows into a Snapshot: one
// normalized status per user plus summary counters. Everything here is a
// pure function of its inputs; callers own fetching and writing.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/subreport/internal/common"
	"github.com/dmitrijs2005/subreport/internal/models"
)

// Snapshot is the immutable result of one run. Its fields are reachable
// only through accessors, and Users and Entitled return deep copies.
type Snapshot struct {
	exportedAt time.Time
	summary    Summary
	users      []ClassifiedUser
}

// Quality lists the data-quality findings of a Build. None of them is
// fatal; the caller logs and counts them. DuplicateUsers were dropped;
// DuplicateEmails are kept in the snapshot and only reported.
type Quality struct {
	Orphans         []models.Subscription
	DuplicateUsers  []models.User
	DuplicateEmails []models.User
}

// NewSnapshot assembles a snapshot from already classified users, keeping
// their order. exportedAt is taken as given, once for the whole snapshot.
func NewSnapshot(exportedAt time.Time, users []ClassifiedUser) (*Snapshot, error) {
	s := &Snapshot{
		exportedAt: exportedAt,
		summary:    Summarize(users),
		users:      cloneAll(users),
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Build runs the whole core: drop duplicate user ids (first wins), reconcile
// subscriptions, classify every user in source order and assemble the
// snapshot.
func Build(exportedAt time.Time, users []models.User, subs []models.Subscription) (*Snapshot, Quality, error) {
	var q Quality

	seen := make(map[string]struct{}, len(users))
	emails := make(map[string]struct{}, len(users))
	unique := make([]models.User, 0, len(users))
	for _, u := range users {
		if _, dup := seen[u.ID]; dup {
			q.DuplicateUsers = append(q.DuplicateUsers, u)
			continue
		}
		seen[u.ID] = struct{}{}
		unique = append(unique, u)

		if key := strings.ToLower(strings.TrimSpace(u.Email)); key != "" {
			if _, dup := emails[key]; dup {
				q.DuplicateEmails = append(q.DuplicateEmails, u)
			}
			emails[key] = struct{}{}
		}
	}

	rec := Reconcile(unique, subs)
	q.Orphans = rec.Orphans

	classified := make([]ClassifiedUser, 0, len(unique))
	for _, u := range unique {
		classified = append(classified, Classify(u, rec.Chosen[u.ID]))
	}

	s, err := NewSnapshot(exportedAt, classified)
	if err != nil {
		return nil, q, err
	}
	return s, q, nil
}

func (s *Snapshot) validate() error {
	if s.summary.TotalUsers != len(s.users) {
		return fmt.Errorf("%w: total users %d, records %d", common.ErrInvalidSnapshot, s.summary.TotalUsers, len(s.users))
	}
	if err := s.summary.Validate(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidSnapshot, err)
	}
	for i, u := range s.users {
		if !u.Status.Valid() {
			return fmt.Errorf("%w: user %q has status %q", common.ErrInvalidSnapshot, u.User.ID, u.Status)
		}
		if (u.Status == StatusNoSubscription) != (u.RawStatus == nil) {
			return fmt.Errorf("%w: user %d (%q) raw status does not match %q", common.ErrInvalidSnapshot, i, u.User.ID, u.Status)
		}
	}
	return nil
}

func (s *Snapshot) ExportedAt() time.Time { return s.exportedAt }

func (s *Snapshot) TotalRecords() int { return len(s.users) }

func (s *Snapshot) Summary() Summary { return s.summary }

// Users returns the classified users in snapshot order.
func (s *Snapshot) Users() []ClassifiedUser {
	return cloneAll(s.users)
}

// Entitled returns the users whose status is active or trialing, in
// snapshot order. This is the hand-off to the auxiliary data fetch.
func (s *Snapshot) Entitled() []ClassifiedUser {
	var out []ClassifiedUser
	for _, u := range s.users {
		if u.Status.Entitled() {
			out = append(out, u.clone())
		}
	}
	return out
}
