// Package config loads the configuration of the roster server from a YAML
// file and the environment.
package config

import (
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zachmann/go-utils/fileutils"
	"gopkg.in/yaml.v3"

	"github.com/pnp-roster/roster"
)

// Config holds the complete server configuration
type Config struct {
	Server  roster.ServerConf `yaml:"server"`
	Admin   adminConf         `yaml:"admin"`
	Ranks   ranksConf         `yaml:"ranks"`
	Storage storageConf       `yaml:"storage"`
	Avatar  avatarConf        `yaml:"avatar"`
	Caching cachingConf       `yaml:"caching"`
	Audit   auditConf         `yaml:"audit"`
	Seed    seedConf          `yaml:"seed"`
	Metrics metricsConf       `yaml:"metrics"`
	Logging loggingConf       `yaml:"logging"`
}

var conf *Config

// Get returns the loaded Config
func Get() *Config {
	return conf
}

var possibleConfigLocations = []string{
	"config.yaml",
	"config/config.yaml",
	"/config/config.yaml",
	"/roster/config/config.yaml",
	"/etc/roster/config.yaml",
}

func defaultConfig() *Config {
	return &Config{
		Server:  defaultServerConf,
		Admin:   defaultAdminConf,
		Ranks:   defaultRanksConf(),
		Storage: defaultStorageConf,
		Avatar:  defaultAvatarConf,
		Caching: defaultCachingConf,
		Audit:   defaultAuditConf,
		Seed:    defaultSeedConf(),
		Metrics: defaultMetricsConf,
		Logging: defaultLoggingConf,
	}
}

func findConfigFile() string {
	for _, f := range possibleConfigLocations {
		if fileutils.FileExists(f) {
			return f
		}
	}
	return ""
}

// Load reads the config file at filename, applies environment overrides and
// validates the result. If filename is empty the default locations are
// searched; without any config file the defaults and the environment are used.
func Load(filename string) (*Config, error) {
	c, err := load(filename)
	if err != nil {
		return nil, err
	}
	conf = c
	return c, nil
}

func load(filename string) (*Config, error) {
	if filename == "" {
		filename = findConfigFile()
	}
	c := defaultConfig()
	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, errors.Wrapf(err, "could not read config file '%s'", filename)
		}
		if err = yaml.Unmarshal(data, c); err != nil {
			return nil, errors.Wrapf(err, "could not parse config file '%s'", filename)
		}
		log.WithField("file", filename).Debug("read config file")
	}
	if err := applyEnv(c); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	validators := []struct {
		section  string
		validate func() error
	}{
		{"server", c.validateServer},
		{"admin", c.Admin.validate},
		{"ranks", c.Ranks.validate},
		{"storage", c.Storage.validate},
		{"avatar", c.Avatar.validate},
		{"caching", c.Caching.validate},
		{"audit", c.Audit.validate},
		{"logging", c.Logging.validate},
	}
	for _, v := range validators {
		if err := v.validate(); err != nil {
			return errors.Wrapf(err, "invalid %s config", v.section)
		}
	}
	ladder, err := c.Ranks.Ladder()
	if err != nil {
		return err
	}
	if err = c.Seed.validate(ladder); err != nil {
		return errors.Wrap(err, "invalid seed config")
	}
	return nil
}
