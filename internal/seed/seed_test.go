package seed

import (
	"context"
	"testing"

	"newsdesk/internal/cache"
	"newsdesk/internal/database"
	"newsdesk/internal/models"
	"newsdesk/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

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

func TestFactory_BuildItem(t *testing.T) {
	f := NewFactory(42, 10)

	for _, kind := range []models.ContentKind{models.KindBlock, models.KindBulletin, models.KindArticle} {
		item := f.BuildItem(kind)
		assert.Equal(t, kind, item.Kind)
		assert.NoError(t, validation.ValidateTitle(item.Title))
		assert.NoError(t, validation.ValidateCategory(item.Category))
		assert.True(t, item.Status.Valid())
		assert.False(t, item.CreatedAt.IsZero())
		if kind == models.KindBulletin {
			assert.NoError(t, validation.ValidateAudioURL(item.AudioURL))
			assert.Positive(t, item.DurationSeconds)
		} else {
			assert.Empty(t, item.AudioURL)
		}
	}

	item := f.BuildItem(models.KindArticle, func(it *models.ContentItem) { it.Title = "Fixed" })
	assert.Equal(t, "Fixed", item.Title)
}

func TestFactory_SameSeedSameOutput(t *testing.T) {
	a := NewFactory(7, 10).BuildItem(models.KindArticle)
	b := NewFactory(7, 10).BuildItem(models.KindArticle)
	assert.Equal(t, a.Title, b.Title)
	assert.Equal(t, a.Category, b.Category)
}

func TestSeeder_Run(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	s := NewSeeder(db, Options{PerKind: 4, Viewers: 3, Interactions: 10, Seed: 42})
	summary, err := s.Run(ctx)
	require.NoError(t, err)

	for _, kind := range []models.ContentKind{models.KindBlock, models.KindBulletin, models.KindArticle} {
		assert.Equal(t, 4, summary.Items[kind])

		var orders []int
		require.NoError(t, db.Model(&models.ContentItem{}).
			Where("kind = ?", kind).
			Order("sort_order").
			Pluck("sort_order", &orders).Error)
		assert.Equal(t, []int{1, 2, 3, 4}, orders)
	}
	assert.Positive(t, summary.Interactions)
	assert.LessOrEqual(t, summary.Interactions, 10)

	var interactions int64
	require.NoError(t, db.Model(&models.Interaction{}).Count(&interactions).Error)
	assert.Equal(t, int64(summary.Interactions), interactions)

	var likes, bookmarks, shares int64
	require.NoError(t, db.Model(&models.ContentItem{}).Select("COALESCE(SUM(likes), 0)").Scan(&likes).Error)
	require.NoError(t, db.Model(&models.ContentItem{}).Select("COALESCE(SUM(bookmarks), 0)").Scan(&bookmarks).Error)
	require.NoError(t, db.Model(&models.ContentItem{}).Select("COALESCE(SUM(shares), 0)").Scan(&shares).Error)
	assert.Equal(t, interactions, likes+bookmarks+shares)
}

func TestSeeder_ClearAll(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	s := NewSeeder(db, Options{PerKind: 2, Interactions: 3, Seed: 1})
	_, err := s.Run(ctx)
	require.NoError(t, err)

	require.NoError(t, s.ClearAll(ctx))

	for _, model := range []any{&models.ContentItem{}, &models.Interaction{}, &models.PointsAward{}, &models.ListVersion{}} {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		assert.Zero(t, n, "%T", model)
	}
}
