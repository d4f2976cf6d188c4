package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const selectAll = `(?s)^SELECT\s+id::text,\s*name,\s*email,\s*google_id,\s*has_claimed_trial,\s*stripe_customer_id,\s*created_at::text\s+FROM\s+users\s+ORDER\s+BY\s+created_at,\s*id\s*$`

var columns = []string{"id", "name", "email", "google_id", "has_claimed_trial", "stripe_customer_id", "created_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestAll_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(columns).
		AddRow("u-1", "John", "j@x.com", "g-1", true, "cus_1", "2024-03-01 10:00:00+00").
		AddRow("u-2", nil, "k@x.com", nil, nil, nil, nil)
	mock.ExpectQuery(selectAll).WillReturnRows(rows)

	got, err := repo.All(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "u-1", got[0].ID)
	assert.Equal(t, "John", got[0].Name)
	assert.True(t, got[0].HasClaimedTrial)
	require.NotNil(t, got[0].GoogleID)
	assert.Equal(t, "g-1", *got[0].GoogleID)
	require.NotNil(t, got[0].CreatedAt)
	assert.True(t, got[0].CreatedAt.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))

	assert.Equal(t, "", got[1].Name)
	assert.False(t, got[1].HasClaimedTrial)
	assert.Nil(t, got[1].StripeCustomerID)
	assert.Nil(t, got[1].CreatedAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAll_MalformedTimestampIsNull(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(columns).AddRow("u-1", "A", "a@x.com", nil, false, nil, "not a date")
	mock.ExpectQuery(selectAll).WillReturnRows(rows)

	got, err := repo.All(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].CreatedAt)
}

func TestAll_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectAll).WillReturnError(errors.New("db down"))

	_, err := repo.All(context.Background())
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestAll_RowError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(columns).
		AddRow("u-1", "A", "a@x.com", nil, false, nil, nil).
		RowError(0, errors.New("broken row"))
	mock.ExpectQuery(selectAll).WillReturnRows(rows)

	_, err := repo.All(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken row")
}
