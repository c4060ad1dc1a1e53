package config

import (
	"slices"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/pnp-roster/roster/storage"
	"github.com/pnp-roster/roster/storage/model"
)

type storageConf struct {
	Driver  storage.DriverType `yaml:"driver"`
	DataDir string             `yaml:"data_dir"`
	DSN     string             `yaml:"dsn"`
	// File is the data file of the json driver
	File            string `yaml:"file"`
	storage.DSNConf `yaml:",inline"`
	Debug           bool `yaml:"debug"`
}

func (c *storageConf) validate() error {
	if !slices.Contains(storage.SupportedDrivers, c.Driver) {
		return errors.Errorf("unsupported storage driver '%s'", c.Driver)
	}
	if c.Driver.IsRelational() && c.Driver != storage.DriverSQLite {
		var err error
		if c.DSN == "" {
			c.DSN, err = storage.DSN(c.Driver, c.DSNConf)
		}
		return err
	}
	if c.Driver == storage.DriverMemory {
		return nil
	}
	if c.DataDir == "" && !(c.Driver == storage.DriverJSON && c.File != "") &&
		!(c.Driver == storage.DriverSQLite && c.DSN != "") {
		return errors.New("data_dir must be specified")
	}
	return nil
}

var defaultStorageConf = storageConf{
	Driver:  storage.DriverJSON,
	DataDir: ".",
	DSNConf: storage.DSNConf{
		User: "roster",
		Host: "localhost",
		DB:   "roster",
	},
}

// StorageConfig returns the storage.Config for the passed storage section
// and audit retention
func StorageConfig(c storageConf, audit auditConf) storage.Config {
	return storage.Config{
		Driver:          c.Driver,
		DSN:             c.DSN,
		DataDir:         c.DataDir,
		File:            c.File,
		Debug:           c.Debug,
		AuditMaxEntries: audit.MaxEntries,
	}
}

// LoadStorageBackends loads and returns the storage backends for the passed Config
func LoadStorageBackends(c *Config) (model.Backends, error) {
	backs, err := storage.LoadStorageBackends(StorageConfig(c.Storage, c.Audit))
	if err != nil {
		return model.Backends{}, err
	}
	log.WithField("driver", c.Storage.Driver).Info("Loaded storage backend")
	return backs, nil
}
