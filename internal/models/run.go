package models

import "time"

type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

type RunTrigger string

const (
	TriggerManual    RunTrigger = "manual"
	TriggerScheduled RunTrigger = "scheduled"
)

// Run is one execution of the step sequence, as kept in the local history.
type Run struct {
	ID         string
	Trigger    RunTrigger
	StartedAt  time.Time
	FinishedAt time.Time
	Status     RunStatus
	Steps      []StepResult
	Error      string
}

// StepResult records the outcome of one step of a run.
type StepResult struct {
	Name     string
	Status   RunStatus
	Duration time.Duration
	Error    string
}

// Succeeded counts the steps that succeeded.
func (r *Run) Succeeded() int {
	n := 0
	for _, s := range r.Steps {
		if s.Status == RunSucceeded {
			n++
		}
	}
	return n
}
