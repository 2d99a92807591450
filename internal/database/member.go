package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/friendhotline/hotline/internal/database/models"
)

// memberRepo implements MemberRepository.
type memberRepo struct {
	db *DB
}

// NewMemberRepository creates a new MemberRepository.
func NewMemberRepository(db *DB) MemberRepository {
	return &memberRepo{db: db}
}

// Create inserts a new member.
func (r *memberRepo) Create(ctx context.Context, m *models.Member) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO members (hotline_id, name, number, verified, created_at, updated_at)
		 VALUES (?, ?, ?, ?, datetime('now'), datetime('now'))`,
		m.HotlineID, m.Name, m.Number, m.Verified,
	)
	if err != nil {
		return fmt.Errorf("inserting member: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}
	m.ID = id
	return nil
}

// GetByID returns a member by ID.
func (r *memberRepo) GetByID(ctx context.Context, id int64) (*models.Member, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, hotline_id, name, number, verified, created_at, updated_at
		 FROM members WHERE id = ?`, id,
	))
}

// GetByNumber returns the member with the given number on a hotline.
// Verified records win over pending ones when the number is duplicated.
func (r *memberRepo) GetByNumber(ctx context.Context, hotlineID int64, number string) (*models.Member, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, hotline_id, name, number, verified, created_at, updated_at
		 FROM members WHERE hotline_id = ? AND number = ?
		 ORDER BY verified DESC, id LIMIT 1`, hotlineID, number,
	))
}

// GetPendingByNumber returns an unverified member with the given number,
// regardless of hotline. Oldest pending record wins.
func (r *memberRepo) GetPendingByNumber(ctx context.Context, number string) (*models.Member, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, hotline_id, name, number, verified, created_at, updated_at
		 FROM members WHERE number = ? AND verified = 0
		 ORDER BY id LIMIT 1`, number,
	))
}

// List returns all members of a hotline in insertion order.
func (r *memberRepo) List(ctx context.Context, hotlineID int64) ([]models.Member, error) {
	return r.list(ctx,
		`SELECT id, hotline_id, name, number, verified, created_at, updated_at
		 FROM members WHERE hotline_id = ? ORDER BY id`, hotlineID)
}

// ListVerified returns a hotline's verified members in insertion order.
// Fan-out dials members in exactly this order.
func (r *memberRepo) ListVerified(ctx context.Context, hotlineID int64) ([]models.Member, error) {
	return r.list(ctx,
		`SELECT id, hotline_id, name, number, verified, created_at, updated_at
		 FROM members WHERE hotline_id = ? AND verified = 1 ORDER BY id`, hotlineID)
}

// Update modifies an existing member.
func (r *memberRepo) Update(ctx context.Context, m *models.Member) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE members SET hotline_id = ?, name = ?, number = ?, verified = ?,
		 updated_at = datetime('now')
		 WHERE id = ?`,
		m.HotlineID, m.Name, m.Number, m.Verified, m.ID,
	)
	if err != nil {
		return fmt.Errorf("updating member: %w", err)
	}
	return nil
}

// Delete removes a member by ID.
func (r *memberRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM members WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting member: %w", err)
	}
	return nil
}

func (r *memberRepo) list(ctx context.Context, query string, args ...any) ([]models.Member, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying members: %w", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.ID, &m.HotlineID, &m.Name, &m.Number, &m.Verified,
			&m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning member row: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *memberRepo) scanOne(row *sql.Row) (*models.Member, error) {
	var m models.Member
	err := row.Scan(&m.ID, &m.HotlineID, &m.Name, &m.Number, &m.Verified,
		&m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning member: %w", err)
	}
	return &m, nil
}
