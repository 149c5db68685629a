package server

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"newsdesk/internal/middleware"
	"newsdesk/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const (
	maxPaginationLimit = 100
	kindLocal          = "contentKind"
)

// parsePagination extracts limit and offset query parameters with the given
// default limit. A zero default means "no limit unless asked for".
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{
		Limit:  limit,
		Offset: offset,
	}
}

// ResolveResource maps the :resource segment to a content kind and stores it
// in locals. Unknown resources are 404s.
func (s *Server) ResolveResource(c *fiber.Ctx) error {
	resource := c.Params("resource")
	kind, ok := models.KindForResource(resource)
	if !ok {
		return models.RespondWithError(c, fiber.StatusNotFound,
			&models.AppError{Code: models.CodeNotFound, Message: "Unknown resource " + resource})
	}
	c.Locals(kindLocal, kind)
	return c.Next()
}

func contentKind(c *fiber.Ctx) models.ContentKind {
	kind, _ := c.Locals(kindLocal).(models.ContentKind)
	return kind
}

// viewerID returns the optional viewer id set by ViewerMiddleware.
func viewerID(c *fiber.Ctx) string {
	uid, _ := c.Locals("userID").(string)
	return uid
}

// respondError renders err with the status its AppError code maps to.
// Errors that are not AppErrors are logged and hidden behind a 500.
func respondError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
		appErr = &models.AppError{Code: models.CodeInternal, Message: "Internal server error"}
	}
	return models.RespondWithError(c, models.StatusFor(appErr), appErr)
}

// bodyError writes a 400 for an unparsable request body.
func bodyError(c *fiber.Ctx) error {
	return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
}

// optionalVersion reads an expected list version from the body value or the
// If-Match header. Neither present means the write is unconditional.
func optionalVersion(c *fiber.Ctx, body *int64) (*int64, error) {
	if body != nil {
		return body, nil
	}
	raw := strings.Trim(strings.TrimSpace(c.Get(fiber.HeaderIfMatch)), `"`)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("If-Match must be a list version"))
		return nil, errResponseWritten
	}
	return &v, nil
}
