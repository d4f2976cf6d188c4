package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dmitrijs2005/subreport/internal/common"
	"github.com/dmitrijs2005/subreport/internal/enrich"
	"github.com/dmitrijs2005/subreport/internal/logging"
	"github.com/dmitrijs2005/subreport/internal/output"
)

// Enricher reads the snapshot document, attaches assets to entitled users
// and writes the enrichment document.
type Enricher struct {
	Enricher     *enrich.Enricher
	SnapshotPath string
	Path         string
	Mirror       Uploader
	Log          logging.Logger
}

func (e *Enricher) Run(ctx context.Context) (*enrich.Document, error) {
	snap, err := output.ReadSnapshot(e.SnapshotPath)
	if err != nil {
		return nil, missingInput(err, "extract")
	}

	doc, err := e.Enricher.Enrich(ctx, snap.Users(), filepath.Base(e.SnapshotPath))
	if err != nil {
		return nil, err
	}

	data, err := output.WriteJSON(e.Path, doc)
	if err != nil {
		return doc, err
	}
	if e.Mirror != nil {
		if err := e.Mirror.Upload(ctx, e.Path, data); err != nil {
			return doc, err
		}
	}

	st := doc.Summary.SetupStatus
	e.Log.Info(ctx, "enrichment written",
		"path", e.Path,
		"subscribed_users", doc.ExportInfo.TotalSubscribedUsers,
		"fully_setup", st.FullySetup,
		"need_menu_only", st.NeedMenuOnly,
		"need_data_only", st.NeedDataOnly,
		"need_both", st.NeedBoth)
	return doc, nil
}

// Filter keeps users with inventory data from the enrichment document.
type Filter struct {
	EnrichedPath string
	Path         string
	Mirror       Uploader
	Log          logging.Logger
}

func (f *Filter) Run(ctx context.Context) (*enrich.Filtered, error) {
	var doc enrich.Document
	if err := output.ReadJSON(f.EnrichedPath, &doc); err != nil {
		return nil, missingInput(err, "enrich")
	}

	filtered := enrich.Filter(&doc)

	data, err := output.WriteJSON(f.Path, filtered)
	if err != nil {
		return &filtered, err
	}
	if f.Mirror != nil {
		if err := f.Mirror.Upload(ctx, f.Path, data); err != nil {
			return &filtered, err
		}
	}

	if filtered.Count == 0 {
		f.Log.Warn(ctx, "no users with Google Sheets or CSV files", "path", f.Path)
	} else {
		names := make([]string, len(filtered.Users))
		for i, u := range filtered.Users {
			names[i] = u.Name
		}
		f.Log.Info(ctx, "filtered users written", "path", f.Path, "count", filtered.Count, "users", names)
	}
	return &filtered, nil
}

// missingInput adds the command that produces a missing input document.
func missingInput(err error, producer string) error {
	if errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("%w; run `subreport %s` first", err, producer)
	}
	return err
}
