// Package metrics exposes run outcomes and the latest snapshot counters to
// Prometheus.
package metrics

import (
	"time"

	"github.com/dmitrijs2005/subreport/internal/report"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "subreport"

// Metrics holds the collectors on a private registry. All methods are safe
// on a nil *Metrics, which records nothing.
type Metrics struct {
	registry *prometheus.Registry

	runs          *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	users         *prometheus.GaugeVec
	claimedTrials prometheus.Gauge
	orphans       prometheus.Gauge
	duplicates    prometheus.Gauge
	dupEmails     prometheus.Gauge
	lastSuccess   prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Step executions by step and result",
			},
			[]string{"step", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Step execution time",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"step"},
		),
		users: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "snapshot_users",
				Help:      "Users per normalized status in the latest snapshot",
			},
			[]string{"status"},
		),
		claimedTrials: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "claimed_trials",
			Help:      "Users that claimed a trial in the latest snapshot",
		}),
		orphans: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "orphan_subscriptions",
			Help:      "Subscriptions whose user does not exist, latest snapshot",
		}),
		duplicates: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "duplicate_users",
			Help:      "Duplicate user ids dropped from the latest snapshot",
		}),
		dupEmails: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "duplicate_emails",
			Help:      "Users whose email repeats an earlier user, latest snapshot",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last fully successful run",
		}),
	}

	m.registry.MustRegister(
		m.runs, m.duration, m.users, m.claimedTrials, m.orphans, m.duplicates, m.dupEmails, m.lastSuccess,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveStep counts one step execution.
func (m *Metrics) ObserveStep(step string, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.runs.WithLabelValues(step, result).Inc()
	m.duration.WithLabelValues(step).Observe(d.Seconds())
}

// SetSnapshot publishes the counters of the latest snapshot.
func (m *Metrics) SetSnapshot(sum report.Summary, q report.Quality) {
	if m == nil {
		return
	}
	for _, st := range report.Statuses {
		m.users.WithLabelValues(string(st)).Set(float64(sum.Count(st)))
	}
	m.claimedTrials.Set(float64(sum.ClaimedTrials))
	m.orphans.Set(float64(len(q.Orphans)))
	m.duplicates.Set(float64(len(q.DuplicateUsers)))
	m.dupEmails.Set(float64(len(q.DuplicateEmails)))
}

func (m *Metrics) MarkSuccess(t time.Time) {
	if m == nil {
		return
	}
	m.lastSuccess.Set(float64(t.Unix()))
}
