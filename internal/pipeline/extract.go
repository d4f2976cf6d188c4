// Package pipeline wires sources, the report core and the sinks into the
// steps of a run (extract, enrich, filter) and sequences them.
package pipeline

import (
	"context"
	"time"

	"github.com/dmitrijs2005/subreport/internal/logging"
	"github.com/dmitrijs2005/subreport/internal/metrics"
	"github.com/dmitrijs2005/subreport/internal/output"
	"github.com/dmitrijs2005/subreport/internal/report"
	"github.com/dmitrijs2005/subreport/internal/source"
)

type Presenter interface {
	Render(s *report.Snapshot) error
}

// Uploader mirrors a written document; output.S3Mirror implements it.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) error
}

type Extractor struct {
	Source    source.Source
	Presenter Presenter
	Path      string
	Mirror    Uploader
	Metrics   *metrics.Metrics
	Log       logging.Logger

	now func() time.Time
}

// Run fetches the dataset, builds the snapshot, shows it and persists it.
// A source failure returns before anything is written. A persistence
// failure still returns the snapshot along with the error.
func (e *Extractor) Run(ctx context.Context) (*report.Snapshot, error) {
	ds, err := e.Source.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	snap, q, err := report.Build(e.clock(), ds.Users, ds.Subscriptions)
	if err != nil {
		return nil, err
	}
	e.logQuality(ctx, q)
	e.Metrics.SetSnapshot(snap.Summary(), q)

	if e.Presenter != nil {
		if err := e.Presenter.Render(snap); err != nil {
			e.Log.Warn(ctx, "could not render tables", "error", err)
		}
	}

	data, err := output.WriteSnapshot(e.Path, snap)
	if err != nil {
		return snap, err
	}
	if e.Mirror != nil {
		if err := e.Mirror.Upload(ctx, e.Path, data); err != nil {
			return snap, err
		}
	}

	sum := snap.Summary()
	e.Log.Info(ctx, "snapshot written",
		"path", e.Path,
		"total_users", sum.TotalUsers,
		"active", sum.ActiveSubscriptions,
		"trialing", sum.TrialingSubscriptions,
		"past_due", sum.PastDueSubscriptions,
		"canceled", sum.CanceledSubscriptions,
		"no_subscription", sum.NoSubscriptions,
		"claimed_trials", sum.ClaimedTrials)
	return snap, nil
}

func (e *Extractor) logQuality(ctx context.Context, q report.Quality) {
	for _, s := range q.Orphans {
		e.Log.Warn(ctx, "subscription references unknown user",
			"subscription_id", s.ID,
			"stripe_subscription_id", s.StripeSubscriptionID,
			"user_id", s.UserID)
	}
	for _, u := range q.DuplicateUsers {
		e.Log.Warn(ctx, "duplicate user id dropped", "user_id", u.ID, "email", u.Email)
	}
	for _, u := range q.DuplicateEmails {
		e.Log.Warn(ctx, "email shared by several users", "user_id", u.ID, "email", u.Email)
	}
}

func (e *Extractor) clock() time.Time {
	if e.now != nil {
		return e.now()
	}
	return time.Now()
}
