package storage

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pnp-roster/roster/storage/model"
)

// MembersStorage implements model.RosterStore using GORM
type MembersStorage struct {
	db *gorm.DB
}

// Count returns the number of members
func (s *MembersStorage) Count() (int64, error) {
	var count int64
	if err := s.db.Model(&model.Member{}).Count(&count).Error; err != nil {
		return 0, errors.WithStack(err)
	}
	return count, nil
}

// List returns all members ordered by id
func (s *MembersStorage) List() ([]model.Member, error) {
	var members []model.Member
	if err := s.db.Order("id").Find(&members).Error; err != nil {
		return nil, errors.WithStack(err)
	}
	return members, nil
}

// Get returns a member by id
func (s *MembersStorage) Get(id uint) (*model.Member, error) {
	var m model.Member
	if err := s.db.First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.NotFoundErrorFmt("member not found: %d", id)
		}
		return nil, errors.WithStack(err)
	}
	return &m, nil
}

// GetByUsername returns a member by its case-insensitive username
func (s *MembersStorage) GetByUsername(username string) (*model.Member, error) {
	var m model.Member
	if err := s.db.Where("username_key = ?", model.UsernameKey(username)).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.NotFoundErrorFmt("member not found: %s", username)
		}
		return nil, errors.WithStack(err)
	}
	return &m, nil
}

// Create stores a new member
func (s *MembersStorage) Create(m *model.Member) error {
	m.UsernameKey = model.UsernameKey(m.Username)
	return s.db.Transaction(
		func(tx *gorm.DB) error {
			var existing int64
			if err := tx.Model(&model.Member{}).
				Where("username_key = ?", m.UsernameKey).
				Count(&existing).Error; err != nil {
				return errors.WithStack(err)
			}
			if existing > 0 {
				return model.AlreadyExistsErrorFmt("member already exists: %s", m.Username)
			}
			return errors.WithStack(tx.Create(m).Error)
		},
	)
}

// Upsert stores m under its id, replacing an existing member. A username held
// by another id is rejected.
func (s *MembersStorage) Upsert(m *model.Member) error {
	m.UsernameKey = model.UsernameKey(m.Username)
	var taken int64
	if err := s.db.Model(&model.Member{}).
		Where("username_key = ? AND id <> ?", m.UsernameKey, m.ID).
		Count(&taken).Error; err != nil {
		return errors.WithStack(err)
	}
	if taken > 0 {
		return model.AlreadyExistsErrorFmt("member already exists: %s", m.Username)
	}
	err := s.db.Clauses(
		clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(
				[]string{
					"username",
					"username_key",
					"rank_index",
					"created_at",
					"updated_at",
				},
			),
		},
	).Create(m).Error
	if err != nil {
		return errors.WithStack(err)
	}
	if s.db.Dialector.Name() == string(DriverPostgres) {
		// explicit ids do not advance the serial sequence
		return errors.WithStack(
			s.db.Exec(
				"SELECT setval(pg_get_serial_sequence('members', 'id'), (SELECT MAX(id) FROM members))",
			).Error,
		)
	}
	return nil
}

// UpdateRank sets the rank index of a member
func (s *MembersStorage) UpdateRank(id uint, rankIndex int) error {
	res := s.db.Model(&model.Member{}).Where("id = ?", id).Update("rank_index", rankIndex)
	if res.Error != nil {
		return errors.WithStack(res.Error)
	}
	if res.RowsAffected == 0 {
		return model.NotFoundErrorFmt("member not found: %d", id)
	}
	return nil
}

// Delete deletes a member by id
func (s *MembersStorage) Delete(id uint) error {
	res := s.db.Delete(&model.Member{}, id)
	if res.Error != nil {
		return errors.WithStack(res.Error)
	}
	if res.RowsAffected == 0 {
		return model.NotFoundErrorFmt("member not found: %d", id)
	}
	return nil
}
