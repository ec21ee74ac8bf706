package marketplace

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// Store loads templates from the database
type Store struct {
	db *sql.DB
}

// NewStore creates a template store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// List loads every template. Narrowing and ordering happen in Filter so
// listings stay consistent with the in-memory path used by tests.
func (s *Store) List(ctx context.Context) ([]Template, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, author_id, category, status,
		       price_cents, downloads, rating, rating_count, preview_url, tags,
		       created_at, updated_at
		FROM marketplace_templates
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	templates := []Template{}
	for rows.Next() {
		var (
			t    Template
			tags pq.StringArray
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.AuthorID, &t.Category, &t.Status,
			&t.PriceCents, &t.Downloads, &t.Rating, &t.RatingCount, &t.PreviewURL, &tags,
			&t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		t.Tags = tags
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read templates: %w", err)
	}
	return templates, nil
}

// RecordDownload bumps a template's download counter
func (s *Store) RecordDownload(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE marketplace_templates SET downloads = downloads + 1 WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to record download: %w", err)
	}
	return nil
}
