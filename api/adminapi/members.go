package adminapi

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/pnp-roster/roster/ranks"
	"github.com/pnp-roster/roster/storage/model"
)

type addMemberReq struct {
	Username  string `json:"username"`
	RankIndex *int   `json:"rank_index"`
	// Rank is the rank name; used if RankIndex is not set
	Rank string `json:"rank"`
}

func (req addMemberReq) rankIndex(ladder *ranks.Ladder) (int, error) {
	if req.RankIndex != nil {
		return *req.RankIndex, nil
	}
	if req.Rank == "" {
		return ladder.Lowest(), nil
	}
	i, ok := ladder.Index(req.Rank)
	if !ok {
		return 0, model.ValidationErrorFmt("unknown rank '%s'", req.Rank)
	}
	return i, nil
}

func memberID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 0)
	if err != nil || id == 0 {
		return 0, model.ValidationErrorFmt("invalid member id '%s'", c.Params("id"))
	}
	return uint(id), nil
}

func registerMembers(r fiber.Router, roster Roster) {
	g := r.Group("/members")

	g.Get(
		"/", func(c *fiber.Ctx) error {
			list, err := roster.List(c.UserContext())
			if err != nil {
				return writeError(c, err)
			}
			return c.JSON(list)
		},
	)

	g.Post(
		"/", func(c *fiber.Ctx) error {
			var req addMemberReq
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(ErrorInvalidRequest("invalid body"))
			}
			if strings.TrimSpace(req.Username) == "" {
				return c.Status(fiber.StatusBadRequest).JSON(ErrorInvalidRequest("username is required"))
			}
			rankIndex, err := req.rankIndex(roster.Ladder())
			if err != nil {
				return writeError(c, err)
			}
			res, err := roster.Add(c.UserContext(), adminUser(c), req.Username, rankIndex)
			if err != nil {
				return writeError(c, err)
			}
			return c.Status(fiber.StatusCreated).JSON(res)
		},
	)

	g.Get(
		"/:id", func(c *fiber.Ctx) error {
			id, err := memberID(c)
			if err != nil {
				return writeError(c, err)
			}
			v, err := roster.Get(c.UserContext(), id)
			if err != nil {
				return writeError(c, err)
			}
			return c.JSON(v)
		},
	)

	g.Post(
		"/:id/promote", func(c *fiber.Ctx) error {
			id, err := memberID(c)
			if err != nil {
				return writeError(c, err)
			}
			res, err := roster.Promote(c.UserContext(), adminUser(c), id)
			if err != nil {
				return writeError(c, err)
			}
			return c.JSON(res)
		},
	)

	g.Post(
		"/:id/demote", func(c *fiber.Ctx) error {
			id, err := memberID(c)
			if err != nil {
				return writeError(c, err)
			}
			res, err := roster.Demote(c.UserContext(), adminUser(c), id)
			if err != nil {
				return writeError(c, err)
			}
			return c.JSON(res)
		},
	)

	g.Delete(
		"/:id", func(c *fiber.Ctx) error {
			id, err := memberID(c)
			if err != nil {
				return writeError(c, err)
			}
			if err = roster.Delete(c.UserContext(), adminUser(c), id); err != nil {
				return writeError(c, err)
			}
			return c.SendStatus(fiber.StatusNoContent)
		},
	)
}
