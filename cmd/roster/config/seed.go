package config

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/pnp-roster/roster/ranks"
	"github.com/pnp-roster/roster/storage/model"
)

// seedConf lists members that are created when the roster is empty on
// startup
//
// YAML example:
//
//	seed:
//	  members:
//	    - username: Roblox
//	      rank: Police Colonel
type seedConf struct {
	Members []seedMember `yaml:"members"`
}

type seedMember struct {
	Username string `yaml:"username"`
	// Rank is the rank name; takes precedence over RankIndex
	Rank      string `yaml:"rank"`
	RankIndex int    `yaml:"rank_index"`
}

func defaultSeedConf() seedConf {
	return seedConf{
		Members: []seedMember{
			{
				Username:  "Roblox",
				RankIndex: 11,
			},
		},
	}
}

func (m seedMember) rankIndex(ladder *ranks.Ladder) (int, error) {
	if m.Rank == "" {
		return ladder.Clamp(m.RankIndex), nil
	}
	i, ok := ladder.Index(m.Rank)
	if !ok {
		return 0, errors.Errorf("unknown rank '%s' for seed member '%s'", m.Rank, m.Username)
	}
	return i, nil
}

func (c seedConf) validate(ladder *ranks.Ladder) error {
	_, err := c.Build(ladder)
	return err
}

// Build returns the seed members with their rank resolved against ladder
func (c seedConf) Build(ladder *ranks.Ladder) ([]model.Member, error) {
	members := make([]model.Member, 0, len(c.Members))
	seen := make(map[string]struct{}, len(c.Members))
	for _, m := range c.Members {
		name := strings.TrimSpace(m.Username)
		if name == "" {
			return nil, errors.New("seed member without username")
		}
		key := model.UsernameKey(name)
		if _, ok := seen[key]; ok {
			return nil, errors.Errorf("duplicate seed member '%s'", name)
		}
		seen[key] = struct{}{}
		i, err := m.rankIndex(ladder)
		if err != nil {
			return nil, err
		}
		members = append(
			members, model.Member{
				Username:  name,
				RankIndex: i,
			},
		)
	}
	return members, nil
}
