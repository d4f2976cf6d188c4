package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter(t *testing.T) {
	doc := &Document{Users: []User{
		{
			UserID: "a", Name: "Ann", Email: "ann@x",
			GoogleSheets: []Sheet{{SheetURL: " `https://docs/1` "}, {SheetURL: "https://docs/2"}, {SheetURL: "https://docs/3"}, {SheetURL: "https://docs/4"}},
			MenuFiles:    []Menu{{FileName: "menu.pdf", FileURL: "https://m/1 "}},
		},
		{
			UserID: "b", Name: "Bob",
			MenuFiles: []Menu{{FileName: "menu.pdf", FileURL: "https://m/2"}},
		},
		{
			UserID: "c", Name: "Cy",
			GoogleSheets: []Sheet{{SheetURL: " `` "}},
		},
		{
			UserID: "d", Name: "Di",
			CSVFiles: []CSVFile{{FileName: "stock.csv", FileURL: "`https://c/1`"}},
		},
	}}

	got := Filter(doc)
	require.Equal(t, 2, got.Count)
	require.Len(t, got.Users, 2)

	a := got.Users[0]
	assert.Equal(t, "a", a.UserID)
	assert.Equal(t, []string{"https://docs/1", "https://docs/2", "https://docs/3"}, a.GoogleSheetsURLs)
	assert.Equal(t, []FileURL{{FileName: "menu.pdf", FileURL: "https://m/1"}}, a.MenuFileURLs)
	assert.Empty(t, a.CSVFileURLs)
	assert.NotNil(t, a.CSVFileURLs)

	d := got.Users[1]
	assert.Equal(t, "d", d.UserID)
	assert.Equal(t, []FileURL{{FileName: "stock.csv", FileURL: "https://c/1"}}, d.CSVFileURLs)
}

func TestFilter_Empty(t *testing.T) {
	got := Filter(&Document{})
	assert.Zero(t, got.Count)
	assert.NotNil(t, got.Users)
}

func TestCleanURL(t *testing.T) {
	assert.Equal(t, "https://x", CleanURL("  `https://x`  "))
	assert.Equal(t, "", CleanURL(" ` ` "))
}
