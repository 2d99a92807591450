package database

import (
	"context"

	"github.com/friendhotline/hotline/internal/database/models"
)

// HotlineRepository manages hotline records. Lookups that miss return
// (nil, nil) so callers branch on explicit absence rather than errors.
type HotlineRepository interface {
	Create(ctx context.Context, h *models.Hotline) error
	GetByID(ctx context.Context, id int64) (*models.Hotline, error)
	GetBySlug(ctx context.Context, slug string) (*models.Hotline, error)
	GetByNumber(ctx context.Context, number string) (*models.Hotline, error)
	List(ctx context.Context) ([]models.Hotline, error)
	Update(ctx context.Context, h *models.Hotline) error
	Delete(ctx context.Context, id int64) error
}

// MemberRepository manages hotline members.
type MemberRepository interface {
	Create(ctx context.Context, m *models.Member) error
	GetByID(ctx context.Context, id int64) (*models.Member, error)
	// GetByNumber returns the member with the given number on a specific
	// hotline, preferring a verified record when duplicates exist.
	GetByNumber(ctx context.Context, hotlineID int64, number string) (*models.Member, error)
	// GetPendingByNumber returns an unverified member with the given number
	// on any hotline. Verification state is part of the lookup key because
	// the same number may appear verified on one hotline and pending on
	// another.
	GetPendingByNumber(ctx context.Context, number string) (*models.Member, error)
	List(ctx context.Context, hotlineID int64) ([]models.Member, error)
	// ListVerified returns a hotline's verified members in insertion order.
	ListVerified(ctx context.Context, hotlineID int64) ([]models.Member, error)
	Update(ctx context.Context, m *models.Member) error
	Delete(ctx context.Context, id int64) error
}

// BlockListRepository manages per-hotline blocked caller numbers.
type BlockListRepository interface {
	Create(ctx context.Context, e *models.BlockListEntry) error
	Exists(ctx context.Context, hotlineID int64, number string) (bool, error)
	List(ctx context.Context, hotlineID int64) ([]models.BlockListEntry, error)
	Delete(ctx context.Context, id int64) error
}

// AdminUserRepository manages admin API users.
type AdminUserRepository interface {
	Create(ctx context.Context, user *models.AdminUser) error
	GetByUsername(ctx context.Context, username string) (*models.AdminUser, error)
	Count(ctx context.Context) (int64, error)
}
