package output

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/subreport/internal/common"
	"github.com/dmitrijs2005/subreport/internal/models"
	"github.com/dmitrijs2005/subreport/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func sampleSnapshot(t *testing.T) *report.Snapshot {
	t.Helper()
	created := time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC)
	users := []models.User{
		{ID: "u-1", Name: "Ann", Email: "ann@example.com", HasClaimedTrial: true, CreatedAt: &created},
		{ID: "u-2", Name: "Bob", Email: "bob@example.com"},
		{ID: "u-3", Name: "Cy", Email: "cy@example.com"},
	}
	subs := []models.Subscription{
		{ID: "s-1", UserID: "u-1", StripeSubscriptionID: "sub_1", Status: "active", CurrentPeriodEnd: ptr(created.AddDate(0, 1, 0))},
		{ID: "s-2", UserID: "u-2", StripeSubscriptionID: "sub_2", Status: "unpaid"},
	}
	s, _, err := report.Build(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), users, subs)
	require.NoError(t, err)
	return s
}

func TestWriteSnapshot_RoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out", "extract_users_subscriptions.json")
	s := sampleSnapshot(t)

	b, err := WriteSnapshot(p, s)
	require.NoError(t, err)

	onDisk, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, b, onDisk)
	assert.Contains(t, string(onDisk), "\n  \"export_info\": {")

	back, err := ReadSnapshot(p)
	require.NoError(t, err)
	assert.Equal(t, s.Summary(), back.Summary())
	assert.True(t, s.ExportedAt().Equal(back.ExportedAt()))
	assert.Equal(t, s.TotalRecords(), back.TotalRecords())
}

func TestReadSnapshot_Missing(t *testing.T) {
	_, err := ReadSnapshot(filepath.Join(t.TempDir(), "nope.json"))
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestReadSnapshot_Invalid(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"export_info":{"total_records":5},"users":[]}`), 0o644))

	_, err := ReadSnapshot(p)
	require.ErrorIs(t, err, common.ErrInvalidSnapshot)
}

func TestWriteJSON_PersistenceError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := WriteJSON(filepath.Join(blocker, "doc.json"), map[string]int{"a": 1})
	require.ErrorIs(t, err, common.ErrPersistence)
}

func TestMarshal_DoesNotEscapeURLs(t *testing.T) {
	b, err := Marshal(map[string]string{"u": "https://x/?a=1&b=2"})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"u\": \"https://x/?a=1&b=2\"\n}\n", string(b))
}

func TestReadJSON(t *testing.T) {
	p := filepath.Join(t.TempDir(), "doc.json")
	_, err := WriteJSON(p, map[string]int{"n": 3})
	require.NoError(t, err)

	var v map[string]int
	require.NoError(t, ReadJSON(p, &v))
	assert.Equal(t, 3, v["n"])

	require.NoError(t, os.WriteFile(p, []byte("{"), 0o644))
	assert.Error(t, ReadJSON(p, &v))
	assert.ErrorIs(t, ReadJSON(p+".missing", &v), common.ErrorNotFound)
}
