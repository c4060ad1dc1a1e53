package storage

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/pnp-roster/roster/storage/model"
)

// Storage is a GORM-based storage implementation
type Storage struct {
	db       *gorm.DB
	auditMax int
}

var models = []any{
	&model.Member{},
	&model.AuditEntry{},
}

// NewStorage creates a new GORM-based storage
func NewStorage(config Config) (*Storage, error) {
	db, err := Connect(config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	// Auto migrate the schemas
	if err = db.AutoMigrate(models...); err != nil {
		return nil, errors.Wrap(err, "failed to migrate database")
	}

	return &Storage{
		db:       db,
		auditMax: config.auditMax(),
	}, nil
}

// DB returns the underlying *gorm.DB
func (s *Storage) DB() *gorm.DB {
	return s.db
}

// MembersStorage returns a MembersStorage
func (s *Storage) MembersStorage() *MembersStorage {
	return &MembersStorage{db: s.db}
}

// AuditStorage returns an AuditStorage
func (s *Storage) AuditStorage() *AuditStorage {
	return &AuditStorage{
		db:  s.db,
		max: s.auditMax,
	}
}

// Ping checks the database connection
func (s *Storage) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(sqlDB.Ping())
}

// Close closes the database connection
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.WithStack(err)
	}
	return sqlDB.Close()
}
