package assets

import (
	"context"
	"fmt"
	"slices"

	"github.com/dmitrijs2005/subreport/internal/dbx"
	"github.com/dmitrijs2005/subreport/internal/models"
	"github.com/dmitrijs2005/subreport/internal/timex"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ActiveSheets(ctx context.Context, userIDs []string) ([]models.Sheet, error) {
	return inBatches(userIDs, func(ids []string) ([]models.Sheet, error) {
		return r.activeSheets(ctx, ids)
	})
}

func (r *PostgresRepository) activeSheets(ctx context.Context, userIDs []string) ([]models.Sheet, error) {
	in, args := dbx.InPlaceholders(userIDs)

	query := fmt.Sprintf(
		`SELECT id::text, user_id::text, sheet_name, sheet_url, description, created_at::text, updated_at::text
		 FROM sheet_table
		 WHERE is_active = true AND user_id::text IN (%s)
		 ORDER BY id
		 `, in)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Sheet
	for rows.Next() {
		var (
			s                    models.Sheet
			name, url            *string
			createdAt, updatedAt *string
		)
		if err := rows.Scan(&s.ID, &s.UserID, &name, &url, &s.Description, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		s.Name = deref(name)
		s.URL = deref(url)
		s.IsActive = true
		s.CreatedAt = timex.ParseNullTimestamp(createdAt)
		s.UpdatedAt = timex.ParseNullTimestamp(updatedAt)
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Menus(ctx context.Context, userIDs []string) ([]models.Menu, error) {
	return inBatches(userIDs, func(ids []string) ([]models.Menu, error) {
		return r.menus(ctx, ids)
	})
}

func (r *PostgresRepository) menus(ctx context.Context, userIDs []string) ([]models.Menu, error) {
	in, args := dbx.InPlaceholders(userIDs)

	query := fmt.Sprintf(
		`SELECT id::text, user_id::text, file_name, file_url
		 FROM menu
		 WHERE user_id::text IN (%s)
		 ORDER BY id
		 `, in)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Menu
	for rows.Next() {
		var (
			m             models.Menu
			fileName, url *string
		)
		if err := rows.Scan(&m.ID, &m.UserID, &fileName, &url); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		m.FileName = deref(fileName)
		m.FileURL = deref(url)
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) CSVFiles(ctx context.Context, userIDs []string) ([]models.CSVFile, error) {
	return inBatches(userIDs, func(ids []string) ([]models.CSVFile, error) {
		return r.csvFiles(ctx, ids)
	})
}

func (r *PostgresRepository) csvFiles(ctx context.Context, userIDs []string) ([]models.CSVFile, error) {
	in, args := dbx.InPlaceholders(userIDs)

	query := fmt.Sprintf(
		`SELECT id::text, user_id::text, file_name, file_url, created_at::text, updated_at::text
		 FROM csv
		 WHERE user_id::text IN (%s)
		 ORDER BY id
		 `, in)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.CSVFile
	for rows.Next() {
		var (
			c                    models.CSVFile
			fileName, url        *string
			createdAt, updatedAt *string
		)
		if err := rows.Scan(&c.ID, &c.UserID, &fileName, &url, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		c.FileName = deref(fileName)
		c.FileURL = deref(url)
		c.CreatedAt = timex.ParseNullTimestamp(createdAt)
		c.UpdatedAt = timex.ParseNullTimestamp(updatedAt)
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

// inBatchSize bounds the number of parameters in one IN list.
const inBatchSize = 100

// inBatches runs fn over ids in chunks of inBatchSize and concatenates the
// results in chunk order.
func inBatches[T any](ids []string, fn func([]string) ([]T, error)) ([]T, error) {
	var out []T
	for batch := range slices.Chunk(ids, inBatchSize) {
		part, err := fn(batch)
		if err != nil {
			return nil, err
		}
		out = append(out, part...)
	}
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
