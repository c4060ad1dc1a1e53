package config

import (
	"github.com/pkg/errors"

	"github.com/pnp-roster/roster/avatar"
)

// cachingConf configures the optional redis tier of the avatar cache, shared
// between several roster instances
type cachingConf struct {
	RedisAddr string `yaml:"redis_addr"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	RedisDB   int    `yaml:"redis_db"`
	Prefix    string `yaml:"prefix"`
	Disabled  bool   `yaml:"disabled"`
}

var defaultCachingConf = cachingConf{
	Prefix: avatar.DefaultRedisPrefix,
}

func (c *cachingConf) validate() error {
	if c.RedisDB < 0 {
		return errors.Errorf("invalid redis_db %d", c.RedisDB)
	}
	return nil
}

// Enabled reports whether the redis tier should be used
func (c cachingConf) Enabled() bool {
	return !c.Disabled && c.RedisAddr != ""
}

// RedisConfig returns the avatar.RedisConfig of this section
func (c cachingConf) RedisConfig() avatar.RedisConfig {
	return avatar.RedisConfig{
		Addr:     c.RedisAddr,
		Username: c.Username,
		Password: c.Password,
		DB:       c.RedisDB,
		Prefix:   c.Prefix,
	}
}
