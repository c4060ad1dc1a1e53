package storage

import (
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pnp-roster/roster/storage/model"
)

// DriverType represents the type of storage driver
type DriverType string

const (
	// DriverSQLite is the SQLite driver
	DriverSQLite DriverType = "sqlite"
	// DriverMySQL is the MySQL driver
	DriverMySQL DriverType = "mysql"
	// DriverPostgres is the PostgreSQL driver
	DriverPostgres DriverType = "postgres"
	// DriverJSON stores everything in a single JSON file
	DriverJSON DriverType = "json"
	// DriverBadger is the badger key-value store
	DriverBadger DriverType = "badger"
	// DriverMemory keeps everything in memory; nothing survives a restart
	DriverMemory DriverType = "memory"
)

// SupportedDrivers lists all DriverType values LoadStorageBackends accepts
var SupportedDrivers = []DriverType{
	DriverSQLite,
	DriverMySQL,
	DriverPostgres,
	DriverJSON,
	DriverBadger,
	DriverMemory,
}

// Default file names below Config.DataDir
const (
	DefaultSQLiteFile = "roster.db"
	DefaultJSONFile   = "players.json"
	DefaultBadgerDir  = "badger"
)

// IsRelational reports whether the driver is backed by GORM
func (d DriverType) IsRelational() bool {
	switch d {
	case DriverSQLite, DriverMySQL, DriverPostgres:
		return true
	default:
		return false
	}
}

// DSN creates and returns a dsn connection string for the passed DriverType and DSNConf
func DSN(driver DriverType, conf DSNConf) (string, error) {
	switch driver {
	case DriverMySQL:
		if conf.Port == 0 {
			conf.Port = 3306
		}
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True", conf.User, conf.Password, conf.Host, conf.Port,
			conf.DB,
		), nil
	case DriverPostgres:
		if conf.Port == 0 {
			conf.Port = 5432
		}
		return fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%d",
			conf.Host, conf.User, conf.Password, conf.DB, conf.Port,
		), nil
	case DriverSQLite, DriverJSON, DriverBadger, DriverMemory:
		return "", errors.Errorf("driver %s does not use dsn", driver)
	default:
		return "", errors.Errorf("unsupported driver '%s'", driver)
	}
}

// DSNConf provides configuration options for database connection strings
// of the MySQL and PostgreSQL drivers.
type DSNConf struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       string `yaml:"db"`
}

// Config represents the storage configuration
type Config struct {
	// Driver is the storage driver type
	Driver DriverType `yaml:"driver"`
	// DSN is the data source name (connection string)
	// For SQLite, this is the database file path
	// For MySQL, this is the connection string: user:pass@tcp(127.0.0.1:3306)/dbname?charset=utf8mb4&parseTime=True&loc=Local
	// For PostgreSQL, this is the connection string: host=localhost user=roster password=roster dbname=roster port=5432 sslmode=disable
	DSN string `yaml:"dsn"`
	// DataDir is the directory where file based backends store their data
	DataDir string `yaml:"data_dir"`
	// File is the path of the JSON file for the json driver; defaults to
	// DataDir/players.json
	File string `yaml:"file"`
	// Debug enables debug logging
	Debug bool `yaml:"debug"`
	// AuditMaxEntries is the number of audit entries that are retained
	AuditMaxEntries int `yaml:"-"`
}

func (cfg Config) auditMax() int {
	if cfg.AuditMaxEntries <= 0 {
		return model.DefaultAuditMaxEntries
	}
	return cfg.AuditMaxEntries
}

// Connect establishes a connection to the database based on the configuration
func Connect(cfg Config) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case DriverSQLite:
		// If DSN is not provided, use the default database file in DataDir
		dsn := cfg.DSN
		if dsn == "" {
			dsn = filepath.Join(cfg.DataDir, DefaultSQLiteFile)
		}
		dialector = sqlite.Open(dsn)
	case DriverMySQL:
		dialector = mysql.Open(cfg.DSN)
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, errors.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	logMode := logger.Silent
	if cfg.Debug {
		logMode = logger.Info
	}

	return gorm.Open(
		dialector, &gorm.Config{
			Logger: logger.Default.LogMode(logMode),
		},
	)
}

// LoadStorageBackends initializes the configured storage and returns grouped
// backends.
func LoadStorageBackends(cfg Config) (model.Backends, error) {
	switch cfg.Driver {
	case DriverSQLite, DriverMySQL, DriverPostgres:
		warehouse, err := NewStorage(cfg)
		if err != nil {
			return model.Backends{}, err
		}
		return model.Backends{
			Members: warehouse.MembersStorage(),
			Audit:   warehouse.AuditStorage(),
			Pinger:  warehouse,
			Closer:  warehouse.Close,
		}, nil
	case DriverJSON:
		path := cfg.File
		if path == "" {
			path = filepath.Join(cfg.DataDir, DefaultJSONFile)
		}
		store, err := NewFileStorage(path, cfg.auditMax())
		if err != nil {
			return model.Backends{}, err
		}
		return model.Backends{
			Members: store.MembersStorage(),
			Audit:   store.AuditStorage(),
			Pinger:  store,
		}, nil
	case DriverBadger:
		store, err := NewBadgerStorage(filepath.Join(cfg.DataDir, DefaultBadgerDir), cfg.auditMax())
		if err != nil {
			return model.Backends{}, err
		}
		return model.Backends{
			Members: store.MembersStorage(),
			Audit:   store.AuditStorage(),
			Closer:  store.Close,
		}, nil
	case DriverMemory:
		store := NewMemoryStorage(cfg.auditMax())
		return model.Backends{
			Members: store.MembersStorage(),
			Audit:   store.AuditStorage(),
		}, nil
	default:
		return model.Backends{}, errors.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}
