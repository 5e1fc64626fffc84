package server

import (
	"net/url"

	"accessdesk/internal/service"

	"github.com/gofiber/fiber/v2"
)

type softwareBody struct {
	Name         string   `json:"name" validate:"required,max=120"`
	Description  string   `json:"description" validate:"max=2000"`
	AccessLevels []string `json:"accessLevels" validate:"required,min=1,dive,access_level"`
}

// softwarePatch leaves absent fields unchanged.
type softwarePatch struct {
	Name         *string  `json:"name" validate:"omitempty,max=120"`
	Description  *string  `json:"description" validate:"omitempty,max=2000"`
	AccessLevels []string `json:"accessLevels" validate:"omitempty,dive,access_level"`
}

// ListSoftware handles GET /api/software
func (s *Server) ListSoftware(c *fiber.Ctx) error {
	list, err := s.catalogService.List(c.UserContext(), actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(list)
}

// SearchSoftware handles GET /api/software/search?q=
func (s *Server) SearchSoftware(c *fiber.Ctx) error {
	list, err := s.catalogService.Search(c.UserContext(), actor(c), c.Query("q"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(list)
}

// ListSoftwareByAccessLevel handles GET /api/software/access-level/:level
func (s *Server) ListSoftwareByAccessLevel(c *fiber.Ctx) error {
	list, err := s.catalogService.FindByAccessLevel(c.UserContext(), actor(c), c.Params("level"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(list)
}

// GetSoftwareByName handles GET /api/software/name/:name
func (s *Server) GetSoftwareByName(c *fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil {
		name = c.Params("name")
	}
	sw, err := s.catalogService.GetByName(c.UserContext(), actor(c), name)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sw)
}

// GetSoftware handles GET /api/software/:id
func (s *Server) GetSoftware(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	sw, err := s.catalogService.GetByID(c.UserContext(), actor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sw)
}

// SoftwareStats handles GET /api/software/:id/stats
func (s *Server) SoftwareStats(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	stats, err := s.catalogService.SoftwareStats(c.UserContext(), actor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// CreateSoftware handles POST /api/software
func (s *Server) CreateSoftware(c *fiber.Ctx) error {
	var body softwareBody
	if err := bind(c, &body); err != nil {
		return nil
	}
	sw, err := s.catalogService.Create(c.UserContext(), actor(c), service.CreateSoftwareInput{
		Name:         body.Name,
		Description:  body.Description,
		AccessLevels: body.AccessLevels,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sw)
}

// UpdateSoftware handles PUT /api/software/:id
func (s *Server) UpdateSoftware(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var body softwarePatch
	if err := bind(c, &body); err != nil {
		return nil
	}
	sw, err := s.catalogService.Update(c.UserContext(), actor(c), service.UpdateSoftwareInput{
		ID:           id,
		Name:         body.Name,
		Description:  body.Description,
		AccessLevels: body.AccessLevels,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sw)
}

// DeleteSoftware handles DELETE /api/software/:id
func (s *Server) DeleteSoftware(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.catalogService.Delete(c.UserContext(), actor(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
