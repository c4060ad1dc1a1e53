package storage

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/pnp-roster/roster/storage/model"
)

// AuditStorage implements model.AuditStore using GORM
type AuditStorage struct {
	db  *gorm.DB
	max int
}

// Append stores e and removes the oldest entries beyond the retention limit
func (s *AuditStorage) Append(e *model.AuditEntry) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	return s.db.Transaction(
		func(tx *gorm.DB) error {
			if err := tx.Create(e).Error; err != nil {
				return errors.WithStack(err)
			}
			var ids []uint
			if err := tx.Model(&model.AuditEntry{}).
				Order("at desc, id desc").
				Pluck("id", &ids).Error; err != nil {
				return errors.WithStack(err)
			}
			if len(ids) <= s.max {
				return nil
			}
			return errors.WithStack(tx.Delete(&model.AuditEntry{}, ids[s.max:]).Error)
		},
	)
}

// List returns at most limit entries, newest first
func (s *AuditStorage) List(limit int) ([]model.AuditEntry, error) {
	var entries []model.AuditEntry
	q := s.db.Order("at desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, errors.WithStack(err)
	}
	return entries, nil
}
