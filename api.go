package roster

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/pnp-roster/roster/internal/version"
)

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) registerAPI() {
	s.app.Get(
		"/api/roster", func(c *fiber.Ctx) error {
			members, err := s.service.List(c.UserContext())
			if err != nil {
				return err
			}
			return c.JSON(members)
		},
	)
	s.app.Get(
		"/health", func(c *fiber.Ctx) error {
			res := healthResponse{
				Status:  "ok",
				Version: version.VERSION,
			}
			if s.opts.Pinger != nil {
				if err := s.opts.Pinger.Ping(); err != nil {
					log.WithError(err).Warn("storage health check failed")
					res.Status = "unavailable"
					res.Error = err.Error()
					return c.Status(fiber.StatusServiceUnavailable).JSON(res)
				}
			}
			return c.JSON(res)
		},
	)
	if s.opts.Gatherer != nil {
		s.app.Get(
			"/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})),
		)
	}
}
