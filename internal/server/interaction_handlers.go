package server

import (
	"strings"

	"newsdesk/internal/models"
	"newsdesk/internal/service"

	"github.com/gofiber/fiber/v2"
)

type interactionRequest struct {
	UserID   string                 `json:"user_id"`
	TargetID string                 `json:"target_id"`
	Type     models.InteractionType `json:"type"`
	Metadata struct {
		// Active is the desired end state; absent means activate.
		Active *bool `json:"active"`
	} `json:"metadata"`
}

// Interact handles POST /api/interactions
func (s *Server) Interact(c *fiber.Ctx) error {
	var req interactionRequest
	if err := c.BodyParser(&req); err != nil {
		return bodyError(c)
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = viewerID(c)
	}
	active := true
	if req.Metadata.Active != nil {
		active = *req.Metadata.Active
	}

	outcome, err := s.interactionService.Interact(c.UserContext(), service.InteractionInput{
		UserID:   userID,
		TargetID: req.TargetID,
		Type:     models.InteractionType(strings.ToLower(strings.TrimSpace(string(req.Type)))),
		Active:   active,
	})
	if err != nil {
		return respondError(c, err)
	}

	if outcome.Changed {
		s.publishContentEvent(models.EventInteractionUpdated, outcome.Item.Kind, outcome.Item.ID, 0, outcome.Item)
	}
	return c.JSON(outcome.Result)
}

// GetUserPoints handles GET /api/users/:id/points
func (s *Server) GetUserPoints(c *fiber.Ctx) error {
	userID := c.Params("id")
	points, err := s.interactionService.UserPoints(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"user_id": userID,
		"points":  points,
	})
}
