package repository

import (
	"context"
	"testing"
	"time"

	"newsdesk/internal/cache"
	"newsdesk/internal/database"
	"newsdesk/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newTestDB returns a fresh migrated in-memory SQLite database with the
// shared cache disabled.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cache.SetClient(nil)
	db, err := database.OpenTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	cache.SetClient(nil)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// seedItems creates items of kind with the given titles through the repository
// so each gets the next order. Creation times are spaced so newest/oldest
// sorts are deterministic.
func seedItems(t *testing.T, repo ContentRepository, kind models.ContentKind, titles ...string) []models.ContentItem {
	t.Helper()
	out := make([]models.ContentItem, 0, len(titles))
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	for i, title := range titles {
		item := &models.ContentItem{
			Kind:      kind,
			Title:     title,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(context.Background(), item))
		out = append(out, *item)
	}
	return out
}

func titles(items []models.ContentItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}

func orders(items []models.ContentItem) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.Order
	}
	return out
}
