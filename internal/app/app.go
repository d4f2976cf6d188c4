// Package app wires configuration, sources, sinks and the pipeline into the
// operations exposed by the subreport command.
package app

import (
	"context"
	"io"

	"github.com/dmitrijs2005/subreport/internal/config"
	"github.com/dmitrijs2005/subreport/internal/enrich"
	"github.com/dmitrijs2005/subreport/internal/history"
	"github.com/dmitrijs2005/subreport/internal/logging"
	"github.com/dmitrijs2005/subreport/internal/metrics"
	"github.com/dmitrijs2005/subreport/internal/models"
	"github.com/dmitrijs2005/subreport/internal/output"
	"github.com/dmitrijs2005/subreport/internal/pipeline"
	"github.com/dmitrijs2005/subreport/internal/scheduler"
	"github.com/dmitrijs2005/subreport/internal/source"
	"golang.org/x/sync/errgroup"
)

// seams for tests
var (
	openSource  = source.Open
	openHistory = history.Open
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	out     io.Writer
	metrics *metrics.Metrics
	mirror  *output.S3Mirror

	backend source.Backend
	store   *history.Store
}

// NewApp builds an App writing tables to out and logs to logOut. Nothing is
// opened until an operation needs it.
func NewApp(c *config.Config, out, logOut io.Writer) *App {
	return &App{
		config:  c,
		logger:  logging.New(logOut, c.LogFormat, c.LogLevel),
		out:     out,
		metrics: metrics.New(),
		mirror: output.NewS3Mirror(output.S3Options{
			Bucket:       c.S3Bucket,
			Prefix:       c.S3Prefix,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			AccessKey:    c.S3AccessKey,
			SecretKey:    c.S3SecretKey,
		}),
	}
}

func (a *App) Logger() logging.Logger { return a.logger }

// Close releases the backend and the history database.
func (a *App) Close() error {
	var err error
	if a.backend != nil {
		err = a.backend.Close()
		a.backend = nil
	}
	if a.store != nil {
		if cerr := a.store.Close(); err == nil {
			err = cerr
		}
		a.store = nil
	}
	return err
}

func (a *App) openBackend(ctx context.Context) (source.Backend, error) {
	if a.backend != nil {
		return a.backend, nil
	}
	b, err := openSource(ctx, source.Options{
		DatabaseDSN: a.config.DatabaseDSN,
		SupabaseURL: a.config.SupabaseURL,
		SupabaseKey: a.config.SupabaseKey,
		Timeout:     a.config.SourceTimeout,
		Retries:     a.config.SourceRetries,
	}, a.logger)
	if err != nil {
		return nil, err
	}
	a.logger.Debug(ctx, "source opened", "kind", b.Kind())
	a.backend = b
	return b, nil
}

func (a *App) openStore(ctx context.Context) (*history.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	s, err := openHistory(ctx, a.config.HistoryPath)
	if err != nil {
		return nil, err
	}
	a.store = s
	return s, nil
}

// mirror is nil without a bucket; keep the interface nil too.
func (a *App) uploader() pipeline.Uploader {
	if a.mirror == nil {
		return nil
	}
	return a.mirror
}

func (a *App) extractor(src source.Source) *pipeline.Extractor {
	return &pipeline.Extractor{
		Source:    src,
		Presenter: output.NewPresenter(a.out),
		Path:      a.config.SnapshotPath(),
		Mirror:    a.uploader(),
		Metrics:   a.metrics,
		Log:       a.logger.With("step", pipeline.StepExtract),
	}
}

func (a *App) enricher(assets source.AssetSource) *pipeline.Enricher {
	log := a.logger.With("step", pipeline.StepEnrich)
	return &pipeline.Enricher{
		Enricher:     enrich.NewEnricher(assets, log),
		SnapshotPath: a.config.SnapshotPath(),
		Path:         a.config.EnrichedPath(),
		Mirror:       a.uploader(),
		Log:          log,
	}
}

func (a *App) filter() *pipeline.Filter {
	return &pipeline.Filter{
		EnrichedPath: a.config.EnrichedPath(),
		Path:         a.config.FilteredPath(),
		Mirror:       a.uploader(),
		Log:          a.logger.With("step", pipeline.StepFilter),
	}
}

// Extract runs the core once: fetch, classify, print the tables and write
// the snapshot document.
func (a *App) Extract(ctx context.Context) error {
	b, err := a.openBackend(ctx)
	if err != nil {
		return err
	}
	_, err = a.extractor(b).Run(ctx)
	return err
}

// Enrich attaches assets to the entitled users of the last snapshot.
func (a *App) Enrich(ctx context.Context) error {
	b, err := a.openBackend(ctx)
	if err != nil {
		return err
	}
	_, err = a.enricher(b).Run(ctx)
	return err
}

// Filter needs no backend: it only reads the enrichment document.
func (a *App) Filter(ctx context.Context) error {
	_, err := a.filter().Run(ctx)
	return err
}

func (a *App) runner(ctx context.Context) (*pipeline.Runner, error) {
	b, err := a.openBackend(ctx)
	if err != nil {
		return nil, err
	}

	var rec pipeline.Recorder
	if store, err := a.openStore(ctx); err != nil {
		a.logger.Warn(ctx, "run history disabled", "path", a.config.HistoryPath, "error", err)
	} else {
		rec = store
	}

	steps := pipeline.Steps(a.extractor(b), a.enricher(b), a.filter())
	return pipeline.NewRunner(steps, rec, a.metrics, a.logger), nil
}

// Run executes one manual extract, enrich, filter sequence.
func (a *App) Run(ctx context.Context) (*models.Run, error) {
	r, err := a.runner(ctx)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, models.TriggerManual)
}

// Schedule runs the sequence daily until ctx is done, serving metrics
// alongside when an address is configured.
func (a *App) Schedule(ctx context.Context) error {
	hour, minute, err := a.config.DailyAt()
	if err != nil {
		return err
	}
	r, err := a.runner(ctx)
	if err != nil {
		return err
	}

	s := scheduler.New(hour, minute, a.config.RunOnStart, func(ctx context.Context) error {
		_, err := r.Run(ctx, models.TriggerScheduled)
		return err
	}, a.logger)

	g, gctx := errgroup.WithContext(ctx)
	if a.config.MetricsAddr != "" {
		g.Go(func() error { return a.metrics.Serve(gctx, a.config.MetricsAddr, a.logger) })
	}
	g.Go(func() error { return s.Run(gctx) })

	a.logger.Info(ctx, "scheduler started", "at", a.config.ScheduleAt, "run_on_start", a.config.RunOnStart)
	return g.Wait()
}

// History prints the n most recent runs.
func (a *App) History(ctx context.Context, n int) error {
	s, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	runs, err := s.Recent(ctx, n)
	if err != nil {
		return err
	}
	return output.NewPresenter(a.out).RenderRuns(runs)
}
