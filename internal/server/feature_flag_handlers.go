package server

import (
	"accessdesk/internal/authz"

	"github.com/gofiber/fiber/v2"
)

// GetFeatureFlags returns configured feature flags and their evaluated state for the caller.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	a := actor(c)
	if _, err := authz.Authorize(a, 0, authz.ActionViewFeatureFlags); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(a.ID),
	})
}
