package config

import (
	"time"

	"github.com/zachmann/go-utils/duration"

	"github.com/pnp-roster/roster"
	"github.com/pnp-roster/roster/internal/credentials"
)

// adminConf holds the administrator credential and the session settings of
// the web interface.
//
// YAML example:
//
//	admin:
//	  username: admin
//	  password_hash: $argon2id$v=19$m=65536,t=1,p=4$...
//	  session:
//	    secret: change-me
//	    expiration: 12h
//	    cookie_secure: true
type adminConf struct {
	Username     string      `yaml:"username"`
	Password     string      `yaml:"password"`
	PasswordHash string      `yaml:"password_hash"`
	Session      sessionConf `yaml:"session"`
}

type sessionConf struct {
	Secret       string                  `yaml:"secret"`
	Expiration   duration.DurationOption `yaml:"expiration"`
	CookieSecure bool                    `yaml:"cookie_secure"`
}

var defaultAdminConf = adminConf{
	Username: "admin",
	Session: sessionConf{
		Expiration: duration.DurationOption(12 * time.Hour),
	},
}

func (c *adminConf) validate() error {
	return c.Credentials().Validate()
}

// Credentials returns the configured admin credential
func (c adminConf) Credentials() credentials.Admin {
	return credentials.Admin{
		Username:     c.Username,
		Password:     c.Password,
		PasswordHash: c.PasswordHash,
	}
}

// SessionConf returns the session configuration for the roster server
func (c adminConf) SessionConf() roster.SessionConf {
	return roster.SessionConf{
		Secret:       c.Session.Secret,
		Expiration:   c.Session.Expiration.Duration(),
		CookieSecure: c.Session.CookieSecure,
	}
}
