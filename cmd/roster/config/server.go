package config

import (
	"github.com/pkg/errors"
	"github.com/zachmann/go-utils/fileutils"

	"github.com/pnp-roster/roster"
)

var defaultServerConf = roster.ServerConf{
	Port: 5000,
}

func (c *Config) validateServer() error {
	s := &c.Server
	if s.Port <= 0 || s.Port > 65535 {
		return errors.Errorf("invalid port %d", s.Port)
	}
	if s.TLS.Enabled {
		if s.TLS.Cert == "" || s.TLS.Key == "" {
			return errors.New("tls is enabled but cert or key is not set")
		}
		for _, f := range []string{s.TLS.Cert, s.TLS.Key} {
			if !fileutils.FileExists(f) {
				return errors.Errorf("tls file '%s' does not exist", f)
			}
		}
	}
	return nil
}
