package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/zachmann/go-utils/duration"

	"github.com/pnp-roster/roster/storage"
)

// EnvPrefix is the prefix of all environment variables read by Load
const EnvPrefix = "ROSTER"

// envOverrides are the settings that can be overridden from the environment.
// Each variable is read as ROSTER_<NAME>, falling back to the bare name
// (e.g. ROSTER_ADMIN_PASSWORD, then ADMIN_PASSWORD). Unset variables keep the
// value from the config file.
type envOverrides struct {
	IPListen          string        `envconfig:"IP_LISTEN"`
	Port              int           `envconfig:"PORT"`
	AdminUsername     string        `envconfig:"ADMIN_USERNAME"`
	AdminPassword     string        `envconfig:"ADMIN_PASSWORD"`
	AdminPasswordHash string        `envconfig:"ADMIN_PASSWORD_HASH"`
	SecretKey         string        `envconfig:"SECRET_KEY"`
	StorageDriver     string        `envconfig:"STORAGE_DRIVER"`
	DataDir           string        `envconfig:"DATA_DIR"`
	DatabaseURL       string        `envconfig:"DATABASE_URL"`
	AvatarTTL         envDuration   `envconfig:"AVATAR_TTL"`
	AvatarSweep       envDuration   `envconfig:"AVATAR_CLEAN_INTERVAL"`
	AvatarSize        string        `envconfig:"AVATAR_SIZE"`
	RedisAddr         string        `envconfig:"REDIS_ADDR"`
	LogLevel          string        `envconfig:"LOG_LEVEL"`
}

// envDuration accepts Go duration syntax as well as a bare number of seconds
// (AVATAR_TTL=3600)
type envDuration time.Duration

// Decode implements the envconfig.Decoder interface
func (d *envDuration) Decode(value string) error {
	value = strings.TrimSpace(value)
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		*d = envDuration(time.Duration(secs) * time.Second)
		return nil
	}
	v, err := time.ParseDuration(value)
	if err != nil {
		return errors.Wrapf(err, "invalid duration '%s'", value)
	}
	*d = envDuration(v)
	return nil
}

func applyEnv(c *Config) error {
	env := envOverrides{
		IPListen:          c.Server.IPListen,
		Port:              c.Server.Port,
		AdminUsername:     c.Admin.Username,
		AdminPassword:     c.Admin.Password,
		AdminPasswordHash: c.Admin.PasswordHash,
		SecretKey:         c.Admin.Session.Secret,
		StorageDriver:     string(c.Storage.Driver),
		DataDir:           c.Storage.DataDir,
		DatabaseURL:       c.Storage.DSN,
		AvatarTTL:         envDuration(c.Avatar.TTL.Duration()),
		AvatarSweep:       envDuration(c.Avatar.SweepInterval.Duration()),
		AvatarSize:        c.Avatar.Size,
		RedisAddr:         c.Caching.RedisAddr,
		LogLevel:          c.Logging.Internal.Level,
	}
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return errors.Wrap(err, "could not read environment")
	}
	c.Server.IPListen = env.IPListen
	c.Server.Port = env.Port
	c.Admin.Username = env.AdminUsername
	c.Admin.Password = env.AdminPassword
	c.Admin.PasswordHash = env.AdminPasswordHash
	c.Admin.Session.Secret = env.SecretKey
	c.Storage.Driver = storage.DriverType(env.StorageDriver)
	c.Storage.DataDir = env.DataDir
	c.Storage.DSN = env.DatabaseURL
	c.Avatar.TTL = duration.DurationOption(env.AvatarTTL)
	c.Avatar.SweepInterval = duration.DurationOption(env.AvatarSweep)
	c.Avatar.Size = env.AvatarSize
	c.Caching.RedisAddr = env.RedisAddr
	c.Logging.Internal.Level = env.LogLevel
	return nil
}
