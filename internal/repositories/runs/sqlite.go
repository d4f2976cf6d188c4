package runs

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/subreport/internal/dbx"
	"github.com/dmitrijs2005/subreport/internal/models"
)

// timeLayout is fixed width so that text order is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, run *models.Run) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO runs (id, trigger, started_at, finished_at, status, error)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Trigger), run.StartedAt.UTC().Format(timeLayout), run.FinishedAt.UTC().Format(timeLayout),
		string(run.Status), run.Error)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	for i, s := range run.Steps {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO run_steps (run_id, position, name, status, duration_ms, error)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, i, s.Name, string(s.Status), s.Duration.Milliseconds(), s.Error)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRepository) Recent(ctx context.Context, limit int) ([]models.Run, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, trigger, started_at, finished_at, status, error
		 FROM runs
		 ORDER BY started_at DESC, id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Run
	for rows.Next() {
		var (
			run               models.Run
			trigger, status   string
			started, finished string
		)
		if err := rows.Scan(&run.ID, &trigger, &started, &finished, &status, &run.Error); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		run.Trigger = models.RunTrigger(trigger)
		run.Status = models.RunStatus(status)
		if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("started_at of run %s: %w", run.ID, err)
		}
		if run.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return nil, fmt.Errorf("finished_at of run %s: %w", run.ID, err)
		}
		result = append(result, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	rows.Close()

	for i := range result {
		steps, err := r.steps(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Steps = steps
	}
	return result, nil
}

func (r *SQLiteRepository) steps(ctx context.Context, runID string) ([]models.StepResult, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, status, duration_ms, error
		 FROM run_steps
		 WHERE run_id = ?
		 ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.StepResult
	for rows.Next() {
		var (
			s      models.StepResult
			status string
			ms     int64
		)
		if err := rows.Scan(&s.Name, &status, &ms, &s.Error); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		s.Status = models.RunStatus(status)
		s.Duration = time.Duration(ms) * time.Millisecond
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
