package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dmitrijs2005/subreport/internal/models"
	"github.com/dmitrijs2005/subreport/internal/report"
	"github.com/dmitrijs2005/subreport/internal/timex"
	"golang.org/x/term"
)

const tableTimeLayout = "2006-01-02 15:04"

var isTerminal = term.IsTerminal

// Presenter renders a snapshot as two tables. Colors are only used when the
// writer is a terminal.
type Presenter struct {
	w      io.Writer
	styles styles
}

type styles struct {
	title, header, cell, muted lipgloss.Style
	status                     map[report.Status]lipgloss.Style
}

func NewPresenter(w io.Writer) *Presenter {
	color := false
	if f, ok := w.(*os.File); ok {
		color = isTerminal(int(f.Fd()))
	}
	return &Presenter{w: w, styles: newStyles(w, color)}
}

func newStyles(w io.Writer, color bool) styles {
	r := lipgloss.NewRenderer(w)
	plain := r.NewStyle()
	s := styles{
		title:  plain,
		header: plain.Padding(0, 1),
		cell:   plain.Padding(0, 1),
		muted:  plain,
		status: map[report.Status]lipgloss.Style{},
	}
	if !color {
		return s
	}

	s.title = s.title.Bold(true).Foreground(lipgloss.Color("#8BC34A"))
	s.header = s.header.Bold(true).Foreground(lipgloss.Color("5"))
	s.muted = s.muted.Faint(true)
	s.status[report.StatusActive] = plain.Foreground(lipgloss.Color("2"))
	s.status[report.StatusTrialing] = plain.Foreground(lipgloss.Color("4"))
	s.status[report.StatusPastDue] = plain.Foreground(lipgloss.Color("3"))
	s.status[report.StatusCanceled] = plain.Foreground(lipgloss.Color("1"))
	s.status[report.StatusNoSubscription] = plain.Faint(true)
	return s
}

// Render writes the summary table followed by the users table.
func (p *Presenter) Render(s *report.Snapshot) error {
	if _, err := fmt.Fprintf(p.w, "%s\n%s\n\n", p.styles.title.Render("Subscription Summary"), p.SummaryTable(s.Summary())); err != nil {
		return err
	}
	_, err := fmt.Fprintf(p.w, "%s\n%s\n", p.styles.title.Render("Users and Subscription Status"), p.UsersTable(s.Users()))
	return err
}

func (p *Presenter) SummaryTable(sum report.Summary) string {
	rows := [][]string{
		{"Total Users", strconv.Itoa(sum.TotalUsers)},
		{"Active Subscriptions", strconv.Itoa(sum.ActiveSubscriptions)},
		{"Canceled Subscriptions", strconv.Itoa(sum.CanceledSubscriptions)},
		{"Trialing Subscriptions", strconv.Itoa(sum.TrialingSubscriptions)},
		{"Past Due Subscriptions", strconv.Itoa(sum.PastDueSubscriptions)},
		{"No Subscriptions", strconv.Itoa(sum.NoSubscriptions)},
		{"Claimed Trials", strconv.Itoa(sum.ClaimedTrials)},
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(p.styles.muted).
		Headers("Metric", "Count").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			st := p.styles.cell
			if row == table.HeaderRow {
				st = p.styles.header
			}
			if col == 1 {
				st = st.Align(lipgloss.Right)
			}
			return st
		})
	return t.String()
}

func (p *Presenter) UsersTable(users []report.ClassifiedUser) string {
	statuses := make([]report.Status, len(users))
	rows := make([][]string, len(users))
	for i, u := range users {
		statuses[i] = u.Status
		rows[i] = []string{
			u.User.Name,
			u.User.Email,
			trialMark(u.User.HasClaimedTrial),
			statusText(u),
			timex.Format(u.CurrentPeriodStart, tableTimeLayout, "N/A"),
			timex.Format(u.CurrentPeriodEnd, tableTimeLayout, "N/A"),
			timex.Format(u.TrialEnd, tableTimeLayout, "N/A"),
			timex.Format(u.User.CreatedAt, tableTimeLayout, "N/A"),
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(p.styles.muted).
		BorderRow(true).
		Headers("Name", "Email", "Has Trial", "Subscription Status", "Period Start", "Period End", "Trial End", "User Created").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.styles.header
			}
			st := p.styles.cell
			switch col {
			case 2:
				st = st.Align(lipgloss.Center)
			case 3:
				if c, ok := p.styles.status[statuses[row]]; ok {
					st = c.Padding(0, 1)
				}
				st = st.Align(lipgloss.Center)
			}
			return st
		})
	return t.String()
}

// RenderRuns writes recent runs, newest first.
func (p *Presenter) RenderRuns(runs []models.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(p.w, "No runs recorded yet.")
		return err
	}
	_, err := fmt.Fprintf(p.w, "%s\n%s\n", p.styles.title.Render("Recent Runs"), p.RunsTable(runs))
	return err
}

func (p *Presenter) RunsTable(runs []models.Run) string {
	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			r.StartedAt.Local().Format(tableTimeLayout),
			string(r.Trigger),
			string(r.Status),
			fmt.Sprintf("%d/%d", r.Succeeded(), len(r.Steps)),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
			r.Error,
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(p.styles.muted).
		Headers("Started", "Trigger", "Status", "Steps", "Duration", "Error").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.styles.header
			}
			st := p.styles.cell
			if col == 2 {
				key := report.StatusActive
				if runs[row].Status == models.RunFailed {
					key = report.StatusCanceled
				}
				if c, ok := p.styles.status[key]; ok {
					st = c.Padding(0, 1)
				}
			}
			return st
		})
	return t.String()
}

func trialMark(claimed bool) string {
	if claimed {
		return "✓"
	}
	return "✗"
}

// statusText is the status label, with the raw provider value appended when
// it is not simply the normalized one.
func statusText(u report.ClassifiedUser) string {
	label := u.Status.Label()
	if u.RawStatus == nil {
		return label
	}
	raw := strings.TrimSpace(*u.RawStatus)
	if strings.EqualFold(raw, string(u.Status)) {
		return label
	}
	return fmt.Sprintf("%s (was %s)", label, raw)
}
