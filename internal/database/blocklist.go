package database

import (
	"context"
	"fmt"

	"github.com/friendhotline/hotline/internal/database/models"
)

// blockListRepo implements BlockListRepository.
type blockListRepo struct {
	db *DB
}

// NewBlockListRepository creates a new BlockListRepository.
func NewBlockListRepository(db *DB) BlockListRepository {
	return &blockListRepo{db: db}
}

// Create inserts a new blocklist entry.
func (r *blockListRepo) Create(ctx context.Context, e *models.BlockListEntry) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO blocklist (hotline_id, number, blocked_by, created_at)
		 VALUES (?, ?, ?, datetime('now'))`,
		e.HotlineID, e.Number, e.BlockedBy,
	)
	if err != nil {
		return fmt.Errorf("inserting blocklist entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}
	e.ID = id
	return nil
}

// Exists reports whether a caller number is blocked on a hotline.
func (r *blockListRepo) Exists(ctx context.Context, hotlineID int64, number string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM blocklist WHERE hotline_id = ? AND number = ?`,
		hotlineID, number,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking blocklist: %w", err)
	}
	return count > 0, nil
}

// List returns a hotline's blocklist, newest first.
func (r *blockListRepo) List(ctx context.Context, hotlineID int64) ([]models.BlockListEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, hotline_id, number, blocked_by, created_at
		 FROM blocklist WHERE hotline_id = ? ORDER BY created_at DESC, id DESC`,
		hotlineID)
	if err != nil {
		return nil, fmt.Errorf("querying blocklist: %w", err)
	}
	defer rows.Close()

	var entries []models.BlockListEntry
	for rows.Next() {
		var e models.BlockListEntry
		if err := rows.Scan(&e.ID, &e.HotlineID, &e.Number, &e.BlockedBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning blocklist row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes a blocklist entry by ID.
func (r *blockListRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM blocklist WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting blocklist entry: %w", err)
	}
	return nil
}
