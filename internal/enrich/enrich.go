// Package enrich attaches uploaded assets to entitled users and derives the
// filtered list of users that have inventory data.
package enrich

import (
	"context"
	"sort"
	"time"

	"github.com/dmitrijs2005/subreport/internal/logging"
	"github.com/dmitrijs2005/subreport/internal/models"
	"github.com/dmitrijs2005/subreport/internal/report"
	"github.com/dmitrijs2005/subreport/internal/source"
	"golang.org/x/sync/errgroup"
)

// MaxPerKind caps sheets and CSV files kept per user, newest first.
const MaxPerKind = 3

const (
	NoteComplete = "Great! You have uploaded both your menu and inventory data. The AI can now provide comprehensive suggestions and alerts."
	NoteNeedMenu = "Please upload your menu for better AI suggestions."
	NoteNeedData = "Please upload at least one Google sheet or CSV file so the AI can do data analysis and provide you with alerts."
	NoteNeedBoth = "Please upload your menu and your inventory items in the AI memories section."
)

type Enricher struct {
	assets source.AssetSource
	log    logging.Logger
	now    func() time.Time
}

func NewEnricher(assets source.AssetSource, log logging.Logger) *Enricher {
	return &Enricher{assets: assets, log: log, now: time.Now}
}

// Enrich keeps the entitled users of users (active or trialing), loads
// their sheets, menus and CSV files concurrently and builds the document.
// Any failing fetch fails the whole call.
func (e *Enricher) Enrich(ctx context.Context, users []report.ClassifiedUser, sourceFile string) (*Document, error) {
	var entitled []report.ClassifiedUser
	for _, u := range users {
		if u.Status.Entitled() {
			entitled = append(entitled, u)
		}
	}

	ids := make([]string, len(entitled))
	for i, u := range entitled {
		ids[i] = u.User.ID
	}

	var (
		sheets []models.Sheet
		menus  []models.Menu
		files  []models.CSVFile
	)
	if len(ids) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			sheets, err = e.assets.Sheets(gctx, ids)
			return err
		})
		g.Go(func() error {
			var err error
			menus, err = e.assets.Menus(gctx, ids)
			return err
		})
		g.Go(func() error {
			var err error
			files, err = e.assets.CSVFiles(gctx, ids)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		e.log.Warn(ctx, "no active or trialing users to enrich")
	}

	bySheet := groupSheets(sheets)
	byMenu := groupMenus(menus)
	byCSV := groupCSV(files)

	out := make([]User, 0, len(entitled))
	for _, cu := range entitled {
		id := cu.User.ID
		u := User{
			UserID:             id,
			Name:               cu.User.Name,
			Email:              cu.User.Email,
			SubscriptionStatus: cu.Status,
			CurrentPeriodStart: cu.CurrentPeriodStart,
			CurrentPeriodEnd:   cu.CurrentPeriodEnd,
			TrialEnd:           cu.TrialEnd,
			UserCreated:        cu.User.CreatedAt,
			GoogleSheets:       orEmpty(bySheet[id]),
			MenuFiles:          orEmpty(byMenu[id]),
			CSVFiles:           orEmpty(byCSV[id]),
		}
		u.SheetsCount = len(u.GoogleSheets)
		u.MenusCount = len(u.MenuFiles)
		u.CSVCount = len(u.CSVFiles)
		u.Notes = Notes(u.SheetsCount, u.MenusCount, u.CSVCount)
		out = append(out, u)
	}

	doc := &Document{
		ExportInfo: ExportInfo{
			Timestamp:            e.now(),
			SourceFile:           sourceFile,
			TotalSubscribedUsers: len(out),
		},
		Summary: summarize(out),
		Users:   out,
	}

	e.log.Info(ctx, "enrichment done",
		"users", len(out),
		"sheets", doc.Summary.TotalSheets,
		"menus", doc.Summary.TotalMenus,
		"csv_files", doc.Summary.TotalCSVFiles)
	return doc, nil
}

// Notes picks the guidance shown to a user based on what they uploaded.
func Notes(sheets, menus, csv int) string {
	hasData := sheets > 0 || csv > 0
	switch {
	case hasData && menus > 0:
		return NoteComplete
	case hasData:
		return NoteNeedMenu
	case menus > 0:
		return NoteNeedData
	default:
		return NoteNeedBoth
	}
}

func groupSheets(rows []models.Sheet) map[string][]Sheet {
	sorted := append([]models.Sheet(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return newer(sorted[i].CreatedAt, sorted[j].CreatedAt) })

	m := make(map[string][]Sheet)
	for _, s := range sorted {
		if len(m[s.UserID]) == MaxPerKind {
			continue
		}
		m[s.UserID] = append(m[s.UserID], Sheet{
			SheetID:     s.ID,
			SheetName:   s.Name,
			SheetURL:    s.URL,
			Description: s.Description,
			CreatedAt:   s.CreatedAt,
			UpdatedAt:   s.UpdatedAt,
		})
	}
	return m
}

func groupMenus(rows []models.Menu) map[string][]Menu {
	m := make(map[string][]Menu)
	for _, r := range rows {
		m[r.UserID] = append(m[r.UserID], Menu{MenuID: r.ID, FileName: r.FileName, FileURL: r.FileURL})
	}
	return m
}

func groupCSV(rows []models.CSVFile) map[string][]CSVFile {
	sorted := append([]models.CSVFile(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return newer(sorted[i].CreatedAt, sorted[j].CreatedAt) })

	m := make(map[string][]CSVFile)
	for _, c := range sorted {
		if len(m[c.UserID]) == MaxPerKind {
			continue
		}
		m[c.UserID] = append(m[c.UserID], CSVFile{
			CSVID:     c.ID,
			FileName:  c.FileName,
			FileURL:   c.FileURL,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		})
	}
	return m
}

// newer orders by creation time descending; missing times sort last.
func newer(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return a.After(*b)
	}
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
