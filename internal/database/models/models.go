package models

import "time"

// Hotline represents a configured hotline: one published phone number and
// a roster of members who get rung when that number is called.
type Hotline struct {
	ID            int64
	Name          string
	Slug          string
	PrimaryNumber string // E.164, empty until a number is assigned
	Country       string
	VoiceGreeting string // custom greeting, empty means use the default
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Member represents a person belonging to exactly one hotline. Members are
// created unverified and must confirm their number over SMS before they
// can be dialed.
type Member struct {
	ID        int64
	HotlineID int64
	Name      string
	Number    string // E.164
	Verified  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BlockListEntry records a caller number barred from reaching a hotline's
// members. Presence of a matching entry suppresses all call handling for
// that caller on that hotline.
type BlockListEntry struct {
	ID        int64
	HotlineID int64
	Number    string // E.164
	BlockedBy string
	CreatedAt time.Time
}

// AdminUser represents an organizer account for the admin API.
type AdminUser struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
