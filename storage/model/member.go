package model

import (
	"strings"
	"time"
)

// Member is a single roster entry.
// Username is unique case-insensitively; RankIndex points into the rank ladder.
type Member struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`

	// Username is the handle on the external platform, as entered by the admin
	Username string `gorm:"size:255;not null" json:"username"`
	// UsernameKey is the lower-cased Username and carries the unique index
	UsernameKey string `gorm:"size:255;uniqueIndex;not null" json:"-"`
	// RankIndex is the position in the rank ladder, 0 being the lowest rank
	RankIndex int `gorm:"not null;default:0" json:"rank_index"`
}

// UsernameKey returns the normalized form used for uniqueness checks and
// cache keys
func UsernameKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// RosterStore abstracts the persistence of roster members.
// Implementations must treat usernames case-insensitively.
type RosterStore interface {
	// Create stores a new member and assigns its ID. It returns an
	// AlreadyExistsError if the username is taken.
	Create(m *Member) error
	// List returns all members ordered by ID
	List() ([]Member, error)
	// Get returns a member by ID or a NotFoundError
	Get(id uint) (*Member, error)
	// GetByUsername returns a member by username (case-insensitive) or a NotFoundError
	GetByUsername(username string) (*Member, error)
	// Upsert stores m under its ID, replacing an existing member with the same
	// ID. It is used to copy members between backends.
	Upsert(m *Member) error
	// UpdateRank sets the rank index of a member
	UpdateRank(id uint, rankIndex int) error
	// Delete removes a member; returns a NotFoundError if it does not exist
	Delete(id uint) error
	// Count returns the number of members
	Count() (int64, error)
}
