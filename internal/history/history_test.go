package history

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/subreport/internal/common"
	"github.com/dmitrijs2005/subreport/internal/models"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func run(id string, start time.Time, status models.RunStatus, steps ...models.StepResult) *models.Run {
	return &models.Run{
		ID:         id,
		Trigger:    models.TriggerManual,
		StartedAt:  start,
		FinishedAt: start.Add(time.Second),
		Status:     status,
		Steps:      steps,
	}
}

func TestOpen_CreatesSchema(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	defer s.Close()

	assert.True(t, tableExists(t, s.db, "goose_db_version"))
	assert.True(t, tableExists(t, s.db, "runs"))
	assert.True(t, tableExists(t, s.db, "run_steps"))
}

func TestOpen_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, run("r1", time.Now(), models.RunSucceeded)))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer s.Close()

	base := time.Date(2024, 3, 1, 7, 30, 0, 0, time.UTC)
	require.NoError(t, s.Record(ctx, run("r1", base, models.RunSucceeded,
		models.StepResult{Name: "extract", Status: models.RunSucceeded, Duration: 2 * time.Second},
		models.StepResult{Name: "enrich", Status: models.RunSucceeded, Duration: time.Second},
	)))
	require.NoError(t, s.Record(ctx, run("r2", base.AddDate(0, 0, 1), models.RunFailed,
		models.StepResult{Name: "extract", Status: models.RunFailed, Error: "down"},
	)))
	require.NoError(t, s.Record(ctx, run("r3", base.Add(150*time.Millisecond), models.RunSucceeded)))

	got, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "r2", got[0].ID)
	assert.Equal(t, "r3", got[1].ID)
	assert.Equal(t, "down", got[0].Steps[0].Error)
	assert.True(t, got[0].StartedAt.Equal(base.AddDate(0, 0, 1)))

	all, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"extract", "enrich"}, []string{all[2].Steps[0].Name, all[2].Steps[1].Name})
	assert.Equal(t, 2, all[2].Succeeded())
}

func TestRecord_DuplicateRollsBack(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer s.Close()

	r := run("dup", time.Now(), models.RunSucceeded, models.StepResult{Name: "extract", Status: models.RunSucceeded})
	require.NoError(t, s.Record(ctx, r))

	err = s.Record(ctx, r)
	require.ErrorIs(t, err, common.ErrPersistence)

	var steps int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM run_steps WHERE run_id = 'dup'`).Scan(&steps))
	assert.Equal(t, 1, steps)
}

func TestOpen_MigrationError(t *testing.T) {
	orig := gooseUpContext
	gooseUpContext = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	require.ErrorIs(t, err, common.ErrPersistence)
	assert.Contains(t, err.Error(), "boom")
}
