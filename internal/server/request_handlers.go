package server

import (
	"accessdesk/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createRequestBody struct {
	SoftwareID uint   `json:"softwareId" validate:"required,gt=0"`
	AccessType string `json:"accessType" validate:"required"`
	Reason     string `json:"reason" validate:"required,max=2000"`
}

// Status is checked by the service after the request is loaded, so a missing
// or decided request is reported before a bad status value.
type updateStatusBody struct {
	Status         string `json:"status" validate:"required"`
	ReviewComments string `json:"reviewComments" validate:"max=2000"`
}

// ListRequests handles GET /api/requests
func (s *Server) ListRequests(c *fiber.Ctx) error {
	views, err := s.requestService.ListRequests(c.UserContext(), actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(views)
}

// ListPendingRequests handles GET /api/requests/pending
func (s *Server) ListPendingRequests(c *fiber.Ctx) error {
	views, err := s.requestService.ListPending(c.UserContext(), actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(views)
}

// ListRequestsByStatus handles GET /api/requests/status/:status
func (s *Server) ListRequestsByStatus(c *fiber.Ctx) error {
	views, err := s.requestService.ListByStatus(c.UserContext(), actor(c), c.Params("status"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(views)
}

// ListRequestsByDateRange handles GET /api/requests/date-range?start=&end=
func (s *Server) ListRequestsByDateRange(c *fiber.Ctx) error {
	views, err := s.requestService.FindByDateRange(c.UserContext(), actor(c), c.Query("start"), c.Query("end"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(views)
}

// ListUserRequests handles GET /api/requests/user/:userId
func (s *Server) ListUserRequests(c *fiber.Ctx) error {
	userID, err := parseID(c, "userId")
	if err != nil {
		return nil
	}
	views, err := s.requestService.ListByUser(c.UserContext(), actor(c), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(views)
}

// ListSoftwareRequests handles GET /api/requests/software/:softwareId
func (s *Server) ListSoftwareRequests(c *fiber.Ctx) error {
	softwareID, err := parseID(c, "softwareId")
	if err != nil {
		return nil
	}
	views, err := s.requestService.ListBySoftware(c.UserContext(), actor(c), softwareID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(views)
}

// GetRequest handles GET /api/requests/:id
func (s *Server) GetRequest(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	view, err := s.requestService.GetByID(c.UserContext(), actor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}

// CreateRequest handles POST /api/requests
func (s *Server) CreateRequest(c *fiber.Ctx) error {
	var body createRequestBody
	if err := bind(c, &body); err != nil {
		return nil
	}
	view, err := s.requestService.Create(c.UserContext(), actor(c), service.CreateAccessRequestInput{
		SoftwareID: body.SoftwareID,
		AccessType: body.AccessType,
		Reason:     body.Reason,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(view)
}

// UpdateRequestStatus handles PATCH /api/requests/:id
func (s *Server) UpdateRequestStatus(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var body updateStatusBody
	if err := bind(c, &body); err != nil {
		return nil
	}
	view, err := s.requestService.UpdateStatus(c.UserContext(), actor(c), service.UpdateStatusInput{
		ID:       id,
		Status:   body.Status,
		Comments: body.ReviewComments,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}

// DeleteRequest handles DELETE /api/requests/:id
func (s *Server) DeleteRequest(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.requestService.Delete(c.UserContext(), actor(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GlobalStats handles GET /api/requests/stats
func (s *Server) GlobalStats(c *fiber.Ctx) error {
	stats, err := s.requestService.StatsGlobal(c.UserContext(), actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// MyStats handles GET /api/requests/stats/user
func (s *Server) MyStats(c *fiber.Ctx) error {
	a := actor(c)
	stats, err := s.requestService.StatsForUser(c.UserContext(), a, a.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}
