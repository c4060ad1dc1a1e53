package adminapi

import (
	"github.com/gofiber/fiber/v2"
)

const defaultAuditLimit = 50

func registerAudit(r fiber.Router, roster Roster) {
	r.Get(
		"/audit", func(c *fiber.Ctx) error {
			limit := c.QueryInt("limit", defaultAuditLimit)
			if limit < 0 {
				return c.Status(fiber.StatusBadRequest).JSON(ErrorInvalidRequest("limit must not be negative"))
			}
			entries, err := roster.Audit(limit)
			if err != nil {
				return writeError(c, err)
			}
			return c.JSON(entries)
		},
	)
}
