package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/subreport/internal/common"
	"github.com/dmitrijs2005/subreport/internal/logging"
	"github.com/dmitrijs2005/subreport/internal/models"
	"github.com/dmitrijs2005/subreport/internal/timex"
)

const (
	defaultPageSize = 1000
	// inBatch bounds the number of ids in one in.(...) filter to keep URLs short.
	inBatch = 100
)

// REST reads through the Supabase PostgREST endpoint (/rest/v1).
type REST struct {
	base     *url.URL
	key      string
	client   *http.Client
	opts     Options
	log      logging.Logger
	pageSize int
}

var timeNow = time.Now

// NewREST validates the URL and inspects the API key. An anon key works but
// row level security may hide rows, which is logged as a warning.
func NewREST(opts Options, log logging.Logger) (*REST, error) {
	u, err := url.Parse(strings.TrimRight(opts.SupabaseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: SUPABASE_URL %q is not an absolute URL", common.ErrConfig, opts.SupabaseURL)
	}

	info, err := InspectKey(opts.SupabaseKey, timeNow())
	if err != nil {
		return nil, err
	}
	if info.Anon() {
		log.Warn(context.Background(), "using the anon key; row level security may hide users, set SUPABASE_SERVICE_ROLE_KEY for a complete report")
	}

	size := opts.PageSize
	if size <= 0 {
		size = defaultPageSize
	}

	return &REST{
		base:     u,
		key:      opts.SupabaseKey,
		client:   &http.Client{},
		opts:     opts,
		log:      log,
		pageSize: size,
	}, nil
}

func (r *REST) Kind() string { return "supabase" }

func (r *REST) Close() error {
	r.client.CloseIdleConnections()
	return nil
}

type userRow struct {
	ID               text    `json:"id"`
	Name             *string `json:"name"`
	Email            *string `json:"email"`
	GoogleID         *string `json:"google_id"`
	HasClaimedTrial  *bool   `json:"has_claimed_trial"`
	StripeCustomerID *string `json:"stripe_customer_id"`
	CreatedAt        *string `json:"created_at"`
}

type subscriptionRow struct {
	ID                   text    `json:"id"`
	StripeSubscriptionID *string `json:"stripe_subscription_id"`
	UserID               text    `json:"user_id"`
	StripeCustomerID     *string `json:"stripe_customer_id"`
	Status               *string `json:"status"`
	CurrentPeriodStart   *string `json:"current_period_start"`
	CurrentPeriodEnd     *string `json:"current_period_end"`
	TrialEnd             *string `json:"trial_end"`
	CreatedAt            *string `json:"created_at"`
	UpdatedAt            *string `json:"updated_at"`
}

type sheetRow struct {
	ID          text    `json:"id"`
	UserID      text    `json:"user_id"`
	Name        *string `json:"sheet_name"`
	URL         *string `json:"sheet_url"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
	CreatedAt   *string `json:"created_at"`
	UpdatedAt   *string `json:"updated_at"`
}

type menuRow struct {
	ID       text    `json:"id"`
	UserID   text    `json:"user_id"`
	FileName *string `json:"file_name"`
	FileURL  *string `json:"file_url"`
}

type csvRow struct {
	ID        text    `json:"id"`
	UserID    text    `json:"user_id"`
	FileName  *string `json:"file_name"`
	FileURL   *string `json:"file_url"`
	CreatedAt *string `json:"created_at"`
	UpdatedAt *string `json:"updated_at"`
}

func (r *REST) Fetch(ctx context.Context) (*Dataset, error) {
	ctx, cancel := withTimeout(ctx, r.opts.Timeout)
	defer cancel()

	userRows, err := fetchAll[userRow](ctx, r, "users", url.Values{"order": {"created_at.asc,id.asc"}})
	if err != nil {
		return nil, unavailable(fmt.Errorf("users: %w", err))
	}
	subRows, err := fetchAll[subscriptionRow](ctx, r, "subscriptions", url.Values{"order": {"id.asc"}})
	if err != nil {
		return nil, unavailable(fmt.Errorf("subscriptions: %w", err))
	}

	ds := &Dataset{
		Users:         make([]models.User, 0, len(userRows)),
		Subscriptions: make([]models.Subscription, 0, len(subRows)),
	}
	for _, u := range userRows {
		ds.Users = append(ds.Users, models.User{
			ID:               string(u.ID),
			Name:             deref(u.Name),
			Email:            deref(u.Email),
			GoogleID:         u.GoogleID,
			HasClaimedTrial:  u.HasClaimedTrial != nil && *u.HasClaimedTrial,
			StripeCustomerID: u.StripeCustomerID,
			CreatedAt:        timex.ParseNullTimestamp(u.CreatedAt),
		})
	}
	for _, s := range subRows {
		ds.Subscriptions = append(ds.Subscriptions, models.Subscription{
			ID:                   string(s.ID),
			StripeSubscriptionID: deref(s.StripeSubscriptionID),
			UserID:               string(s.UserID),
			StripeCustomerID:     s.StripeCustomerID,
			Status:               deref(s.Status),
			CurrentPeriodStart:   timex.ParseNullTimestamp(s.CurrentPeriodStart),
			CurrentPeriodEnd:     timex.ParseNullTimestamp(s.CurrentPeriodEnd),
			TrialEnd:             timex.ParseNullTimestamp(s.TrialEnd),
			CreatedAt:            timex.ParseNullTimestamp(s.CreatedAt),
			UpdatedAt:            timex.ParseNullTimestamp(s.UpdatedAt),
		})
	}

	r.log.Debug(ctx, "fetched dataset", "users", len(ds.Users), "subscriptions", len(ds.Subscriptions))
	return ds, nil
}

func (r *REST) Sheets(ctx context.Context, userIDs []string) ([]models.Sheet, error) {
	rows, err := fetchByUsers[sheetRow](ctx, r, "sheet_table", userIDs, url.Values{"is_active": {"eq.true"}})
	if err != nil {
		return nil, unavailable(fmt.Errorf("sheet_table: %w", err))
	}
	out := make([]models.Sheet, 0, len(rows))
	for _, s := range rows {
		out = append(out, models.Sheet{
			ID:          string(s.ID),
			UserID:      string(s.UserID),
			Name:        deref(s.Name),
			URL:         deref(s.URL),
			Description: s.Description,
			IsActive:    s.IsActive == nil || *s.IsActive,
			CreatedAt:   timex.ParseNullTimestamp(s.CreatedAt),
			UpdatedAt:   timex.ParseNullTimestamp(s.UpdatedAt),
		})
	}
	return out, nil
}

func (r *REST) Menus(ctx context.Context, userIDs []string) ([]models.Menu, error) {
	rows, err := fetchByUsers[menuRow](ctx, r, "menu", userIDs, nil)
	if err != nil {
		return nil, unavailable(fmt.Errorf("menu: %w", err))
	}
	out := make([]models.Menu, 0, len(rows))
	for _, m := range rows {
		out = append(out, models.Menu{
			ID:       string(m.ID),
			UserID:   string(m.UserID),
			FileName: deref(m.FileName),
			FileURL:  deref(m.FileURL),
		})
	}
	return out, nil
}

func (r *REST) CSVFiles(ctx context.Context, userIDs []string) ([]models.CSVFile, error) {
	rows, err := fetchByUsers[csvRow](ctx, r, "csv", userIDs, nil)
	if err != nil {
		return nil, unavailable(fmt.Errorf("csv: %w", err))
	}
	out := make([]models.CSVFile, 0, len(rows))
	for _, c := range rows {
		out = append(out, models.CSVFile{
			ID:        string(c.ID),
			UserID:    string(c.UserID),
			FileName:  deref(c.FileName),
			FileURL:   deref(c.FileURL),
			CreatedAt: timex.ParseNullTimestamp(c.CreatedAt),
			UpdatedAt: timex.ParseNullTimestamp(c.UpdatedAt),
		})
	}
	return out, nil
}

// fetchByUsers runs one paged query per batch of user ids.
func fetchByUsers[T any](ctx context.Context, r *REST, table string, userIDs []string, filter url.Values) ([]T, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	ctx, cancel := withTimeout(ctx, r.opts.Timeout)
	defer cancel()

	var out []T
	for start := 0; start < len(userIDs); start += inBatch {
		end := min(start+inBatch, len(userIDs))

		q := url.Values{"order": {"id.asc"}, "user_id": {inFilter(userIDs[start:end])}}
		for k, v := range filter {
			q[k] = v
		}
		rows, err := fetchAll[T](ctx, r, table, q)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

// inFilter renders a PostgREST in.(...) filter with every value quoted.
func inFilter(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = `"` + strings.ReplaceAll(id, `"`, `\"`) + `"`
	}
	return "in.(" + strings.Join(quoted, ",") + ")"
}

// fetchAll pages through a table with Range headers. The server may return
// fewer rows than asked for (max-rows), so paging advances by the rows
// received and stops once the Content-Range total is reached, or on an
// empty page when the total is unknown.
func fetchAll[T any](ctx context.Context, r *REST, table string, q url.Values) ([]T, error) {
	var out []T
	for offset := 0; ; {
		var (
			page  []T
			total int
		)
		err := do(ctx, r.opts.Retries, func(ctx context.Context) error {
			var err error
			page, total, err = getPage[T](ctx, r, table, q, offset)
			if err != nil {
				r.log.Debug(ctx, "request failed", "table", table, "offset", offset, "error", err)
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		offset += len(page)
		if len(page) == 0 || (total >= 0 && offset >= total) {
			return out, nil
		}
	}
}

// getPage performs one GET and returns the rows with the total row count
// from Content-Range (-1 when not reported). Network errors, 429 and 5xx
// are retryable; other failures are returned as is.
func getPage[T any](ctx context.Context, r *REST, table string, q url.Values, offset int) ([]T, int, error) {
	u := r.base.JoinPath("rest", "v1", table)
	params := url.Values{"select": {"*"}}
	for k, v := range q {
		params[k] = v
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, -1, err
	}
	req.Header.Set("apikey", r.key)
	req.Header.Set("Authorization", "Bearer "+r.key)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Prefer", "count=exact")
	req.Header.Set("Range-Unit", "items")
	req.Header.Set("Range", strconv.Itoa(offset)+"-"+strconv.Itoa(offset+r.pageSize-1))

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, -1, transient(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, -1, transient(ctx, err)
	}
	total := contentRangeTotal(resp.Header.Get("Content-Range"))

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusPartialContent:
	case resp.StatusCode == http.StatusRequestedRangeNotSatisfiable:
		// offset past the last row
		return nil, total, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, -1, fmt.Errorf("status %d: %s: check the Supabase API key", resp.StatusCode, apiMessage(body))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, -1, transient(ctx, fmt.Errorf("status %d: %s", resp.StatusCode, apiMessage(body)))
	default:
		return nil, -1, fmt.Errorf("status %d: %s", resp.StatusCode, apiMessage(body))
	}

	var rows []T
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, -1, fmt.Errorf("decode %s: %w", table, err)
	}
	return rows, total, nil
}

// contentRangeTotal reads the total from "0-24/573" or "*/0"; -1 when the
// header is missing or the total is "*".
func contentRangeTotal(h string) int {
	_, total, ok := strings.Cut(h, "/")
	if !ok {
		return -1
	}
	n, err := strconv.Atoi(strings.TrimSpace(total))
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// apiMessage extracts the PostgREST error message, or a trimmed body.
func apiMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
		Hint    string `json:"hint"`
	}
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		if e.Hint != "" {
			return e.Message + " (" + e.Hint + ")"
		}
		return e.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		return "empty response"
	}
	return msg
}

// text accepts a JSON string or number, since ids may be uuid or bigint.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("id must be a string or number")
	}
	*t = text(n.String())
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
