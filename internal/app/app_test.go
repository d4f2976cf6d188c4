package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/subreport/internal/common"
	"github.com/dmitrijs2005/subreport/internal/config"
	"github.com/dmitrijs2005/subreport/internal/enrich"
	"github.com/dmitrijs2005/subreport/internal/history"
	"github.com/dmitrijs2005/subreport/internal/logging"
	"github.com/dmitrijs2005/subreport/internal/models"
	"github.com/dmitrijs2005/subreport/internal/output"
	"github.com/dmitrijs2005/subreport/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	ds     *source.Dataset
	err    error
	closed bool
}

func (f *fakeBackend) Fetch(context.Context) (*source.Dataset, error) { return f.ds, f.err }
func (f *fakeBackend) Sheets(_ context.Context, ids []string) ([]models.Sheet, error) {
	return []models.Sheet{{ID: "sh-1", UserID: "u-1", Name: "Stock", URL: "https://docs.google.com/s"}}, nil
}
func (f *fakeBackend) Menus(context.Context, []string) ([]models.Menu, error) { return nil, nil }
func (f *fakeBackend) CSVFiles(context.Context, []string) ([]models.CSVFile, error) {
	return nil, nil
}
func (f *fakeBackend) Close() error { f.closed = true; return nil }
func (f *fakeBackend) Kind() string { return "fake" }

func dataset() *source.Dataset {
	return &source.Dataset{
		Users: []models.User{
			{ID: "u-1", Name: "Ann", Email: "ann@example.com"},
			{ID: "u-2", Name: "Bob", Email: "bob@example.com"},
		},
		Subscriptions: []models.Subscription{{ID: "s-1", UserID: "u-1", Status: "active"}},
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.LoadDefaults()
	dir := t.TempDir()
	c.OutputDir = filepath.Join(dir, "out")
	c.HistoryPath = filepath.Join(dir, "runs.db")
	c.DatabaseDSN = "postgres://fake"
	return c
}

func stubSource(t *testing.T, b *fakeBackend, opened *source.Options) {
	t.Helper()
	orig := openSource
	openSource = func(_ context.Context, opts source.Options, _ logging.Logger) (source.Backend, error) {
		if opened != nil {
			*opened = opts
		}
		return b, nil
	}
	t.Cleanup(func() { openSource = orig })
}

func TestExtract(t *testing.T) {
	c := testConfig(t)
	b := &fakeBackend{ds: dataset()}
	var opts source.Options
	stubSource(t, b, &opts)

	var out bytes.Buffer
	a := NewApp(c, &out, io.Discard)
	require.NoError(t, a.Extract(context.Background()))
	require.NoError(t, a.Close())

	assert.True(t, b.closed)
	assert.Equal(t, "postgres://fake", opts.DatabaseDSN)
	assert.Equal(t, c.SourceRetries, opts.Retries)
	assert.Contains(t, out.String(), "Subscription Summary")

	snap, err := output.ReadSnapshot(c.SnapshotPath())
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Summary().TotalUsers)
	assert.Equal(t, 1, snap.Summary().ActiveSubscriptions)
}

func TestExtract_SourceError(t *testing.T) {
	c := testConfig(t)
	orig := openSource
	openSource = func(context.Context, source.Options, logging.Logger) (source.Backend, error) {
		return nil, common.ErrConfig
	}
	t.Cleanup(func() { openSource = orig })

	a := NewApp(c, io.Discard, io.Discard)
	require.ErrorIs(t, a.Extract(context.Background()), common.ErrConfig)
	assert.NoError(t, a.Close())
}

func TestFilter_WithoutEnrichment(t *testing.T) {
	c := testConfig(t)
	a := NewApp(c, io.Discard, io.Discard)
	err := a.Filter(context.Background())
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestRun_RecordsHistory(t *testing.T) {
	c := testConfig(t)
	stubSource(t, &fakeBackend{ds: dataset()}, nil)

	a := NewApp(c, io.Discard, io.Discard)
	run, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.RunSucceeded, run.Status)
	assert.Equal(t, 3, run.Succeeded())

	var filtered enrich.Filtered
	require.NoError(t, output.ReadJSON(c.FilteredPath(), &filtered))
	assert.Equal(t, 1, filtered.Count)

	var out bytes.Buffer
	a.out = &out
	require.NoError(t, a.History(context.Background(), 5))
	assert.Contains(t, out.String(), "manual")
	assert.Contains(t, out.String(), "3/3")
	require.NoError(t, a.Close())

	store, err := history.Open(context.Background(), c.HistoryPath)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}

func TestRun_FailureIsRecorded(t *testing.T) {
	c := testConfig(t)
	boom := errors.Join(common.ErrSourceUnavailable, errors.New("timeout"))
	stubSource(t, &fakeBackend{err: boom}, nil)

	a := NewApp(c, io.Discard, io.Discard)
	run, err := a.Run(context.Background())
	require.ErrorIs(t, err, common.ErrSourceUnavailable)
	assert.Equal(t, models.RunFailed, run.Status)
	require.Len(t, run.Steps, 1)

	var out bytes.Buffer
	a.out = &out
	require.NoError(t, a.History(context.Background(), 5))
	assert.Contains(t, out.String(), "failed")
	require.NoError(t, a.Close())
}

func TestRun_HistoryUnavailable(t *testing.T) {
	c := testConfig(t)
	stubSource(t, &fakeBackend{ds: dataset()}, nil)
	orig := openHistory
	openHistory = func(context.Context, string) (*history.Store, error) { return nil, common.ErrPersistence }
	t.Cleanup(func() { openHistory = orig })

	a := NewApp(c, io.Discard, io.Discard)
	run, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.RunSucceeded, run.Status)
}

func TestSchedule_BadTime(t *testing.T) {
	c := testConfig(t)
	c.ScheduleAt = "25:00"
	a := NewApp(c, io.Discard, io.Discard)
	require.ErrorIs(t, a.Schedule(context.Background()), common.ErrConfig)
}

func TestSchedule_RunOnStartThenStop(t *testing.T) {
	c := testConfig(t)
	c.RunOnStart = true
	c.MetricsAddr = "127.0.0.1:0"
	stubSource(t, &fakeBackend{ds: dataset()}, nil)

	a := NewApp(c, io.Discard, io.Discard)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Schedule(ctx) }()

	require.Eventually(t, func() bool {
		_, err := output.ReadFile(c.FilteredPath())
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("schedule did not stop")
	}
	require.NoError(t, a.Close())
}
