package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/friendhotline/hotline/internal/database/models"
)

// hotlineRepo implements HotlineRepository.
type hotlineRepo struct {
	db *DB
}

// NewHotlineRepository creates a new HotlineRepository.
func NewHotlineRepository(db *DB) HotlineRepository {
	return &hotlineRepo{db: db}
}

// Create inserts a new hotline.
func (r *hotlineRepo) Create(ctx context.Context, h *models.Hotline) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO hotlines (name, slug, primary_number, country, voice_greeting,
		 created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, datetime('now'), datetime('now'))`,
		h.Name, h.Slug, h.PrimaryNumber, h.Country, h.VoiceGreeting,
	)
	if err != nil {
		return fmt.Errorf("inserting hotline: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}
	h.ID = id
	return nil
}

// GetByID returns a hotline by ID.
func (r *hotlineRepo) GetByID(ctx context.Context, id int64) (*models.Hotline, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, name, slug, primary_number, country, voice_greeting,
		 created_at, updated_at
		 FROM hotlines WHERE id = ?`, id,
	))
}

// GetBySlug returns a hotline by its URL slug.
func (r *hotlineRepo) GetBySlug(ctx context.Context, slug string) (*models.Hotline, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, name, slug, primary_number, country, voice_greeting,
		 created_at, updated_at
		 FROM hotlines WHERE slug = ?`, slug,
	))
}

// GetByNumber returns the hotline owning the given primary number.
func (r *hotlineRepo) GetByNumber(ctx context.Context, number string) (*models.Hotline, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, name, slug, primary_number, country, voice_greeting,
		 created_at, updated_at
		 FROM hotlines WHERE primary_number = ? AND primary_number != ''`, number,
	))
}

// List returns all hotlines ordered by name.
func (r *hotlineRepo) List(ctx context.Context) ([]models.Hotline, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, slug, primary_number, country, voice_greeting,
		 created_at, updated_at
		 FROM hotlines ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying hotlines: %w", err)
	}
	defer rows.Close()

	var hotlines []models.Hotline
	for rows.Next() {
		var h models.Hotline
		if err := rows.Scan(&h.ID, &h.Name, &h.Slug, &h.PrimaryNumber, &h.Country,
			&h.VoiceGreeting, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning hotline row: %w", err)
		}
		hotlines = append(hotlines, h)
	}
	return hotlines, rows.Err()
}

// Update modifies an existing hotline.
func (r *hotlineRepo) Update(ctx context.Context, h *models.Hotline) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE hotlines SET name = ?, slug = ?, primary_number = ?, country = ?,
		 voice_greeting = ?, updated_at = datetime('now')
		 WHERE id = ?`,
		h.Name, h.Slug, h.PrimaryNumber, h.Country, h.VoiceGreeting, h.ID,
	)
	if err != nil {
		return fmt.Errorf("updating hotline: %w", err)
	}
	return nil
}

// Delete removes a hotline by ID.
func (r *hotlineRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM hotlines WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting hotline: %w", err)
	}
	return nil
}

func (r *hotlineRepo) scanOne(row *sql.Row) (*models.Hotline, error) {
	var h models.Hotline
	err := row.Scan(&h.ID, &h.Name, &h.Slug, &h.PrimaryNumber, &h.Country,
		&h.VoiceGreeting, &h.CreatedAt, &h.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning hotline: %w", err)
	}
	return &h, nil
}
