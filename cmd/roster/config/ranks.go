package config

import (
	"github.com/pnp-roster/roster/ranks"
)

// ranksConf is the rank ladder, lowest rank first
type ranksConf []string

func defaultRanksConf() ranksConf {
	return append(ranksConf(nil), ranks.DefaultNames...)
}

func (c ranksConf) validate() error {
	_, err := c.Ladder()
	return err
}

// Ladder builds the rank ladder
func (c ranksConf) Ladder() (*ranks.Ladder, error) {
	return ranks.NewLadder(c)
}
