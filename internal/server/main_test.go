package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"newsdesk/internal/cache"
	"newsdesk/internal/config"
	"newsdesk/internal/database"
	"newsdesk/internal/middleware"
	"newsdesk/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

// newTestServer builds a server on a private in-memory SQLite database with
// Redis disabled.
func newTestServer(t *testing.T, flags string) (*Server, *fiber.App) {
	t.Helper()
	cache.SetClient(nil)

	db, err := database.OpenTestDB()
	require.NoError(t, err)

	s, err := NewServerWithDeps(&config.Config{Env: "test", FeatureFlags: flags}, db, nil)
	require.NoError(t, err)
	app := s.NewApp()

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return s, app
}

// doJSON sends body as JSON and decodes the response into out when non-nil.
func doJSON(t *testing.T, app *fiber.App, method, path string, body any, out any, headers ...string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func asViewer(id string) []string {
	return []string{middleware.ViewerHeader, id}
}

type listBody struct {
	Items   []models.ContentItem `json:"items"`
	Version int64                `json:"version"`
	Total   int                  `json:"total"`
}

type ackBody struct {
	Success bool  `json:"success"`
	Version int64 `json:"version"`
}

// createItems posts one item per title and returns them in creation order.
func createItems(t *testing.T, app *fiber.App, resource string, titles ...string) []models.ContentItem {
	t.Helper()
	out := make([]models.ContentItem, 0, len(titles))
	for _, title := range titles {
		var item models.ContentItem
		resp := doJSON(t, app, http.MethodPost, "/api/"+resource, map[string]any{"title": title}, &item)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		out = append(out, item)
	}
	return out
}

func titlesOf(items []models.ContentItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}
