package config

import (
	"github.com/pkg/errors"

	"github.com/pnp-roster/roster/storage/model"
)

type auditConf struct {
	MaxEntries int `yaml:"max_entries"`
}

var defaultAuditConf = auditConf{
	MaxEntries: model.DefaultAuditMaxEntries,
}

func (c *auditConf) validate() error {
	if c.MaxEntries <= 0 {
		return errors.Errorf("max_entries must be positive, got %d", c.MaxEntries)
	}
	return nil
}
