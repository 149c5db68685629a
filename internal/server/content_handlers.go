package server

import (
	"encoding/json"
	"sort"
	"strings"

	"newsdesk/internal/listing"
	"newsdesk/internal/models"
	"newsdesk/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListContent handles GET /api/:resource
// Query: q (or search), status, category, sort, limit, offset.
func (s *Server) ListContent(c *fiber.Ctx) error {
	page := parsePagination(c, 0)
	search := c.Query("q")
	if search == "" {
		search = c.Query("search")
	}

	result, err := s.contentService.ListContent(c.UserContext(), service.ListContentInput{
		Kind: contentKind(c),
		Criteria: listing.Criteria{
			SearchTerm: search,
			Status:     c.Query("status"),
			Category:   c.Query("category"),
		},
		Sort:     c.Query("sort"),
		Limit:    page.Limit,
		Offset:   page.Offset,
		ViewerID: viewerID(c),
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"items":   result.Items,
		"version": result.Version,
		"total":   result.Total,
	})
}

// GetContent handles GET /api/:resource/:id
func (s *Server) GetContent(c *fiber.Ctx) error {
	item, err := s.contentService.GetContent(c.UserContext(), contentKind(c), c.Params("id"), viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}

// CreateContent handles POST /api/:resource
func (s *Server) CreateContent(c *fiber.Ctx) error {
	var draft models.ContentItem
	if err := c.BodyParser(&draft); err != nil {
		return bodyError(c)
	}

	kind := contentKind(c)
	if draft.Kind != "" && draft.Kind != kind {
		return respondError(c, models.NewValidationError("Body kind does not match the resource"))
	}

	item, err := s.contentService.CreateContent(c.UserContext(), kind, draft)
	if err != nil {
		return respondError(c, err)
	}

	s.publishContentEvent(models.EventContentCreated, kind, item.ID, 0, item)
	return c.Status(fiber.StatusCreated).JSON(item)
}

// UpdateContent handles PATCH /api/:resource/:id
func (s *Server) UpdateContent(c *fiber.Ctx) error {
	var patch service.ContentPatch
	if err := c.BodyParser(&patch); err != nil {
		return bodyError(c)
	}

	kind := contentKind(c)
	item, err := s.contentService.UpdateContent(c.UserContext(), kind, c.Params("id"), patch)
	if err != nil {
		return respondError(c, err)
	}

	s.publishContentEvent(models.EventContentUpdated, kind, item.ID, 0, item)
	return c.JSON(item)
}

// ReplaceContent handles PUT /api/:resource/:id
func (s *Server) ReplaceContent(c *fiber.Ctx) error {
	var next models.ContentItem
	if err := c.BodyParser(&next); err != nil {
		return bodyError(c)
	}

	kind := contentKind(c)
	item, err := s.contentService.ReplaceContent(c.UserContext(), kind, c.Params("id"), next)
	if err != nil {
		return respondError(c, err)
	}

	s.publishContentEvent(models.EventContentUpdated, kind, item.ID, 0, item)
	return c.JSON(item)
}

// DeleteContent handles DELETE /api/:resource/:id
func (s *Server) DeleteContent(c *fiber.Ctx) error {
	kind := contentKind(c)
	id := c.Params("id")

	version, err := s.contentService.DeleteContent(c.UserContext(), kind, id)
	if err != nil {
		return respondError(c, err)
	}

	s.publishContentEvent(models.EventContentDeleted, kind, id, version, nil)
	return c.JSON(fiber.Map{"success": true, "version": version})
}

// reorderRequest accepts items either as bare ids in display order or as
// {"id", "order"} entries, which are placed by ascending order.
type reorderRequest struct {
	Items   []json.RawMessage `json:"items"`
	Version *int64            `json:"version"`
}

type reorderEntry struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}

func (r reorderRequest) ids() ([]string, error) {
	entries := make([]reorderEntry, 0, len(r.Items))
	for i, raw := range r.Items {
		var id string
		if err := json.Unmarshal(raw, &id); err == nil {
			entries = append(entries, reorderEntry{ID: id, Order: i + 1})
			continue
		}
		var e reorderEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, models.NewValidationError("items must be ids or {id, order} objects")
		}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Order < entries[j].Order })

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = strings.TrimSpace(e.ID)
	}
	return ids, nil
}

// ReorderContent handles POST /api/:resource/reorder
func (s *Server) ReorderContent(c *fiber.Ctx) error {
	var req reorderRequest
	if err := c.BodyParser(&req); err != nil {
		return bodyError(c)
	}
	ids, err := req.ids()
	if err != nil {
		return respondError(c, err)
	}
	expected, err := optionalVersion(c, req.Version)
	if err != nil {
		return nil
	}

	kind := contentKind(c)
	version, err := s.contentService.ReorderContent(c.UserContext(), kind, ids, expected)
	if err != nil {
		return respondError(c, err)
	}

	s.publishContentEvent(models.EventListReordered, kind, "", version, nil)
	return c.JSON(fiber.Map{"success": true, "version": version})
}

type moveRequest struct {
	Position int    `json:"position"`
	Version  *int64 `json:"version"`
}

// MoveContent handles POST /api/:resource/:id/move
func (s *Server) MoveContent(c *fiber.Ctx) error {
	var req moveRequest
	if err := c.BodyParser(&req); err != nil {
		return bodyError(c)
	}
	expected, err := optionalVersion(c, req.Version)
	if err != nil {
		return nil
	}

	kind := contentKind(c)
	id := c.Params("id")
	version, err := s.contentService.MoveContent(c.UserContext(), kind, id, req.Position, expected)
	if err != nil {
		return respondError(c, err)
	}

	s.publishContentEvent(models.EventListReordered, kind, id, version, nil)
	return c.JSON(fiber.Map{"success": true, "version": version})
}
