package model

import (
	"time"

	"gorm.io/datatypes"
)

// Audit actions
const (
	AuditActionLogin   = "login"
	AuditActionLogout  = "logout"
	AuditActionAdd     = "add"
	AuditActionPromote = "promote"
	AuditActionDemote  = "demote"
	AuditActionDelete  = "delete"
)

// DefaultAuditMaxEntries is the number of audit entries kept when nothing
// else is configured
const DefaultAuditMaxEntries = 500

// AuditEntry records a single administrative action.
type AuditEntry struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	At      time.Time `gorm:"index;not null" json:"at"`
	Admin   string    `gorm:"size:255;not null" json:"admin"`
	Action  string    `gorm:"size:64;not null" json:"action"`
	Details string    `gorm:"type:text" json:"details"`
	// Meta holds structured details, e.g. the member id and the rank change
	Meta datatypes.JSON `json:"meta,omitempty"`
}

// AuditStore is an append-only log of administrative actions that keeps
// only the most recent entries.
type AuditStore interface {
	// Append adds an entry and drops the oldest entries beyond the retention limit
	Append(e *AuditEntry) error
	// List returns at most limit entries, newest first; limit <= 0 means all
	List(limit int) ([]AuditEntry, error)
}

// Backends groups all storage interfaces used by the application.
type Backends struct {
	Members RosterStore
	Audit   AuditStore
	// Pinger is set if the backend supports health checks
	Pinger Pinger
	// Closer releases the underlying resources, may be nil
	Closer func() error
}

// Pinger is implemented by backends that can check their connection
type Pinger interface {
	Ping() error
}

// Close releases the resources held by the backends
func (b Backends) Close() error {
	if b.Closer == nil {
		return nil
	}
	return b.Closer()
}
