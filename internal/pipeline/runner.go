package pipeline

import (
	"context"
	"time"

	"github.com/dmitrijs2005/subreport/internal/logging"
	"github.com/dmitrijs2005/subreport/internal/metrics"
	"github.com/dmitrijs2005/subreport/internal/models"
	"github.com/google/uuid"
)

const (
	StepExtract = "extract"
	StepEnrich  = "enrich"
	StepFilter  = "filter"
)

// Step is one named unit of a run.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Recorder keeps finished runs; history.Store implements it.
type Recorder interface {
	Record(ctx context.Context, run *models.Run) error
}

type Runner struct {
	steps   []Step
	history Recorder
	metrics *metrics.Metrics
	log     logging.Logger

	now   func() time.Time
	newID func() string
}

func NewRunner(steps []Step, history Recorder, m *metrics.Metrics, log logging.Logger) *Runner {
	return &Runner{
		steps:   steps,
		history: history,
		metrics: m,
		log:     log,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Steps builds the extract, enrich, filter sequence.
func Steps(x *Extractor, e *Enricher, f *Filter) []Step {
	return []Step{
		{Name: StepExtract, Run: func(ctx context.Context) error { _, err := x.Run(ctx); return err }},
		{Name: StepEnrich, Run: func(ctx context.Context) error { _, err := e.Run(ctx); return err }},
		{Name: StepFilter, Run: func(ctx context.Context) error { _, err := f.Run(ctx); return err }},
	}
}

// Run executes the steps in order and stops at the first failure. The run is
// recorded whatever its outcome; a recording failure is only logged. The
// returned error is the failing step's error.
func (r *Runner) Run(ctx context.Context, trigger models.RunTrigger) (*models.Run, error) {
	run := &models.Run{
		ID:        r.newID(),
		Trigger:   trigger,
		StartedAt: r.now(),
		Status:    models.RunSucceeded,
	}
	log := r.log.With("run_id", run.ID, "trigger", string(trigger))
	log.Info(ctx, "run started", "steps", len(r.steps))

	var runErr error
	for _, step := range r.steps {
		start := r.now()
		err := step.Run(ctx)
		d := r.now().Sub(start)
		r.metrics.ObserveStep(step.Name, err, d)

		res := models.StepResult{Name: step.Name, Status: models.RunSucceeded, Duration: d}
		if err != nil {
			res.Status = models.RunFailed
			res.Error = err.Error()
			log.Error(ctx, "step failed", "step", step.Name, "duration", d, "error", err)
		} else {
			log.Info(ctx, "step finished", "step", step.Name, "duration", d)
		}
		run.Steps = append(run.Steps, res)

		if err != nil {
			runErr = err
			run.Status = models.RunFailed
			run.Error = step.Name + ": " + err.Error()
			break
		}
	}
	run.FinishedAt = r.now()

	attempted := len(run.Steps)
	succeeded := run.Succeeded()
	rate := 0.0
	if attempted > 0 {
		rate = float64(succeeded) / float64(attempted) * 100
	}
	log.Info(ctx, "execution summary",
		"status", string(run.Status),
		"attempted", attempted,
		"succeeded", succeeded,
		"failed", attempted-succeeded,
		"success_rate", rate,
		"duration", run.FinishedAt.Sub(run.StartedAt))

	if runErr == nil {
		r.metrics.MarkSuccess(run.FinishedAt)
	}

	if r.history != nil {
		if err := r.history.Record(context.WithoutCancel(ctx), run); err != nil {
			log.Warn(ctx, "could not record run", "error", err)
		}
	}
	return run, runErr
}
