package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/subreport/internal/common"
	"github.com/dmitrijs2005/subreport/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestREST(t *testing.T, h http.Handler, pageSize int) *REST {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	r, err := NewREST(Options{
		SupabaseURL: srv.URL + "/",
		SupabaseKey: "sb_secret_test",
		Retries:     2,
		Timeout:     5 * time.Second,
		PageSize:    pageSize,
	}, logging.Nop())
	require.NoError(t, err)
	return r
}

// rangeStart parses the offset from a "from-to" Range header.
func rangeStart(t *testing.T, r *http.Request) int {
	from, _, ok := strings.Cut(r.Header.Get("Range"), "-")
	require.True(t, ok)
	n, err := strconv.Atoi(from)
	require.NoError(t, err)
	return n
}

// serveRows answers like PostgREST: the requested Range, capped at maxRows
// when positive, with a Content-Range carrying the exact total.
func serveRows(t *testing.T, w http.ResponseWriter, r *http.Request, rows []string, maxRows int) {
	from, to := 0, len(rows)-1
	if r.Header.Get("Range") != "" {
		from = rangeStart(t, r)
		_, last, _ := strings.Cut(r.Header.Get("Range"), "-")
		n, err := strconv.Atoi(last)
		require.NoError(t, err)
		to = n
	}
	end := min(to+1, len(rows))
	if maxRows > 0 {
		end = min(end, from+maxRows)
	}
	if from >= end {
		w.Header().Set("Content-Range", fmt.Sprintf("*/%d", len(rows)))
		if from > 0 && from >= len(rows) {
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return
		}
		fmt.Fprint(w, `[]`)
		return
	}
	w.Header().Set("Content-Range", fmt.Sprintf("%d-%d/%d", from, end-1, len(rows)))
	w.WriteHeader(http.StatusPartialContent)
	fmt.Fprintf(w, "[%s]", strings.Join(rows[from:end], ","))
}

func TestREST_FetchPagesAndMaps(t *testing.T) {
	users := []string{
		`{"id":"u-1","name":"Ann","email":"ann@x","google_id":null,"has_claimed_trial":true,"stripe_customer_id":"cus_1","created_at":"2024-01-01T00:00:00+00:00"}`,
		`{"id":"u-2","name":null,"email":"bob@x","google_id":"g-2","has_claimed_trial":null,"stripe_customer_id":null,"created_at":"garbage"}`,
		`{"id":"u-3","name":"Cy","email":"cy@x","has_claimed_trial":false,"created_at":null}`,
	}
	var userCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/rest/v1/users", func(w http.ResponseWriter, r *http.Request) {
		userCalls.Add(1)
		assert.Equal(t, "sb_secret_test", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer sb_secret_test", r.Header.Get("Authorization"))
		assert.Equal(t, "*", r.URL.Query().Get("select"))
		assert.Equal(t, "created_at.asc,id.asc", r.URL.Query().Get("order"))

		assert.Equal(t, "count=exact", r.Header.Get("Prefer"))
		serveRows(t, w, r, users, 0)
	})
	mux.HandleFunc("/rest/v1/subscriptions", func(w http.ResponseWriter, r *http.Request) {
		serveRows(t, w, r, []string{`{"id":7,"stripe_subscription_id":"sub_1","user_id":"u-1","status":"active","current_period_end":"2024-02-01 00:00:00+00","created_at":"2024-01-01T00:00:00Z"}`}, 0)
	})

	ds, err := newTestREST(t, mux, 2).Fetch(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 2, userCalls.Load())
	require.Len(t, ds.Users, 3)
	assert.Equal(t, "u-1", ds.Users[0].ID)
	assert.True(t, ds.Users[0].HasClaimedTrial)
	assert.NotNil(t, ds.Users[0].CreatedAt)
	assert.Equal(t, "", ds.Users[1].Name)
	assert.False(t, ds.Users[1].HasClaimedTrial)
	assert.Nil(t, ds.Users[1].CreatedAt)

	require.Len(t, ds.Subscriptions, 1)
	s := ds.Subscriptions[0]
	assert.Equal(t, "7", s.ID)
	assert.Equal(t, "active", s.Status)
	assert.NotNil(t, s.CurrentPeriodEnd)
	assert.Nil(t, s.TrialEnd)
}

func TestREST_FollowsServerRowCap(t *testing.T) {
	users := make([]string, 5)
	for i := range users {
		users[i] = fmt.Sprintf(`{"id":"u-%d","email":"u%d@x"}`, i+1, i+1)
	}
	var offsets []int
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/v1/users", func(w http.ResponseWriter, r *http.Request) {
		offsets = append(offsets, rangeStart(t, r))
		serveRows(t, w, r, users, 2)
	})
	mux.HandleFunc("/rest/v1/subscriptions", func(w http.ResponseWriter, r *http.Request) {
		serveRows(t, w, r, nil, 2)
	})

	ds, err := newTestREST(t, mux, 3).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, ds.Users, 5)
	assert.Equal(t, "u-5", ds.Users[4].ID)
	assert.Equal(t, []int{0, 2, 4}, offsets)
}

func TestREST_PagesUntilEmptyWithoutTotal(t *testing.T) {
	users := []string{`{"id":"u-1"}`, `{"id":"u-2"}`, `{"id":"u-3"}`}
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/v1/users", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		from := rangeStart(t, r)
		end := min(from+1, len(users))
		fmt.Fprintf(w, "[%s]", strings.Join(users[min(from, end):end], ","))
	})
	mux.HandleFunc("/rest/v1/subscriptions", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})

	ds, err := newTestREST(t, mux, 10).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, ds.Users, 3)
	assert.EqualValues(t, 4, calls.Load())
}

func TestContentRangeTotal(t *testing.T) {
	assert.Equal(t, 573, contentRangeTotal("0-24/573"))
	assert.Equal(t, 0, contentRangeTotal("*/0"))
	assert.Equal(t, -1, contentRangeTotal("0-24/*"))
	assert.Equal(t, -1, contentRangeTotal(""))
}

func TestREST_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/v1/users", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `[]`)
	})
	mux.HandleFunc("/rest/v1/subscriptions", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})

	ds, err := newTestREST(t, mux, 10).Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ds.Users)
	assert.EqualValues(t, 2, calls.Load())
}

func TestREST_UnauthorizedIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/v1/users", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"Invalid API key","hint":"Double check your Supabase anon or service_role API key."}`)
	})

	_, err := newTestREST(t, mux, 10).Fetch(context.Background())
	require.ErrorIs(t, err, common.ErrSourceUnavailable)
	assert.Contains(t, err.Error(), "Invalid API key")
	assert.EqualValues(t, 1, calls.Load())
}

func TestREST_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/v1/users", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := newTestREST(t, mux, 10).Fetch(context.Background())
	require.ErrorIs(t, err, common.ErrSourceUnavailable)
	assert.EqualValues(t, 3, calls.Load())
}

func TestREST_AssetFilters(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/v1/sheet_table", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, `in.("u-1","u-2")`, q.Get("user_id"))
		assert.Equal(t, "eq.true", q.Get("is_active"))
		serveRows(t, w, r, []string{`{"id":1,"user_id":"u-1","sheet_name":"Stock","sheet_url":"https://s","description":null,"is_active":true,"created_at":"2024-01-01T00:00:00Z"}`}, 0)
	})
	mux.HandleFunc("/rest/v1/menu", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("is_active"))
		serveRows(t, w, r, []string{`{"id":2,"user_id":"u-2","file_name":"menu.pdf","file_url":"https://m"}`}, 0)
	})
	mux.HandleFunc("/rest/v1/csv", func(w http.ResponseWriter, r *http.Request) {
		serveRows(t, w, r, []string{`{"id":3,"user_id":"u-1","file_name":"a.csv","file_url":"https://c","created_at":"2024-03-01T00:00:00Z"}`}, 0)
	})

	r := newTestREST(t, mux, 10)
	ids := []string{"u-1", "u-2"}

	sheets, err := r.Sheets(context.Background(), ids)
	require.NoError(t, err)
	require.Len(t, sheets, 1)
	assert.Equal(t, "Stock", sheets[0].Name)
	assert.True(t, sheets[0].IsActive)

	menus, err := r.Menus(context.Background(), ids)
	require.NoError(t, err)
	require.Len(t, menus, 1)
	assert.Equal(t, "u-2", menus[0].UserID)

	files, err := r.CSVFiles(context.Background(), ids)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.NotNil(t, files[0].CreatedAt)

	none, err := r.Menus(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestNewREST_RejectsBadURLAndExpiredKey(t *testing.T) {
	_, err := NewREST(Options{SupabaseURL: "not a url", SupabaseKey: "k"}, logging.Nop())
	require.ErrorIs(t, err, common.ErrConfig)

	key := signKey(t, "anon", time.Now().Add(-time.Minute))
	_, err = NewREST(Options{SupabaseURL: "https://p.supabase.co", SupabaseKey: key}, logging.Nop())
	require.ErrorIs(t, err, common.ErrConfig)
}

func TestInFilter_QuotesValues(t *testing.T) {
	assert.Equal(t, `in.("a","b\"c")`, inFilter([]string{"a", `b"c`}))
}
