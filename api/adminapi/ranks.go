package adminapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pnp-roster/roster/ranks"
)

type rankInfo struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

func registerRanks(r fiber.Router, ladder *ranks.Ladder) {
	names := ladder.Names()
	list := make([]rankInfo, len(names))
	for i, n := range names {
		list[i] = rankInfo{
			Index: i,
			Name:  n,
		}
	}
	r.Get(
		"/ranks", func(c *fiber.Ctx) error {
			return c.JSON(list)
		},
	)
}
