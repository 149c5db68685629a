package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"newsdesk/internal/listing"
	"newsdesk/internal/models"
	"newsdesk/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }

func sampleList() []models.ContentItem {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	return []models.ContentItem{
		{ID: "a", Kind: models.KindArticle, Title: "Budget vote", Status: models.StatusPublished, Order: 1, Views: 10, CreatedAt: base},
		{ID: "b", Kind: models.KindArticle, Title: "Harbor fire", Status: models.StatusDraft, Order: 2, Views: 50, CreatedAt: base.Add(time.Hour)},
		{ID: "c", Kind: models.KindArticle, Title: "Budget hearing", Status: models.StatusPublished, Order: 3, Views: 30, CreatedAt: base.Add(2 * time.Hour)},
	}
}

func TestListContent(t *testing.T) {
	repo := noopContentRepo()
	repo.listFn = func(_ context.Context, _ models.ContentKind) ([]models.ContentItem, error) { return sampleList(), nil }
	repo.versionFn = func(_ context.Context, _ models.ContentKind) (int64, error) { return 4, nil }

	tests := []struct {
		name      string
		in        ListContentInput
		wantIDs   []string
		wantTotal int
	}{
		{"default is manual order", ListContentInput{}, []string{"a", "b", "c"}, 3},
		{"newest", ListContentInput{Sort: "newest"}, []string{"c", "b", "a"}, 3},
		{"most viewed", ListContentInput{Sort: "most-viewed"}, []string{"b", "c", "a"}, 3},
		{"search and status", ListContentInput{Criteria: listing.Criteria{SearchTerm: "budget", Status: "published"}}, []string{"a", "c"}, 2},
		{"paged", ListContentInput{Limit: 1, Offset: 1}, []string{"b"}, 3},
		{"offset past end", ListContentInput{Offset: 9}, []string{}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewContentService(repo, noopInteractionRepo())
			tt.in.Kind = models.KindArticle
			res, err := svc.ListContent(context.Background(), tt.in)
			require.NoError(t, err)
			ids := make([]string, len(res.Items))
			for i, it := range res.Items {
				ids[i] = it.ID
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, tt.wantTotal, res.Total)
			assert.Equal(t, int64(4), res.Version)
		})
	}
}

func TestListContent_Invalid(t *testing.T) {
	svc := NewContentService(noopContentRepo(), noopInteractionRepo())

	_, err := svc.ListContent(context.Background(), ListContentInput{Kind: models.KindBlock, Sort: "alphabetical"})
	assertValidationError(t, err)

	_, err = svc.ListContent(context.Background(), ListContentInput{Kind: models.KindBlock, Limit: -1})
	assertValidationError(t, err)
}

func TestListContent_ViewerFlags(t *testing.T) {
	repo := noopContentRepo()
	repo.listFn = func(_ context.Context, _ models.ContentKind) ([]models.ContentItem, error) { return sampleList(), nil }

	interactions := noopInteractionRepo()
	var askedFor []string
	interactions.activeTypesFn = func(_ context.Context, userID string, ids []string) (map[string]map[models.InteractionType]bool, error) {
		assert.Equal(t, "reader-1", userID)
		askedFor = ids
		return map[string]map[models.InteractionType]bool{
			"b": {models.InteractionLike: true, models.InteractionBookmark: true},
		}, nil
	}

	svc := NewContentService(repo, interactions)
	res, err := svc.ListContent(context.Background(), ListContentInput{Kind: models.KindArticle, ViewerID: "reader-1", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, askedFor, "only the page is looked up")
	assert.False(t, res.Items[0].Liked)
	assert.True(t, res.Items[1].Liked)
	assert.True(t, res.Items[1].Bookmarked)
	assert.False(t, res.Items[1].Shared)

	// Lookup failures degrade to unflagged items.
	interactions.activeTypesFn = func(_ context.Context, _ string, _ []string) (map[string]map[models.InteractionType]bool, error) {
		return nil, errors.New("db down")
	}
	res, err = svc.ListContent(context.Background(), ListContentInput{Kind: models.KindArticle, ViewerID: "reader-1"})
	require.NoError(t, err)
	assert.False(t, res.Items[1].Liked)
}

func TestListContent_RepoError(t *testing.T) {
	repo := noopContentRepo()
	repo.listFn = func(_ context.Context, _ models.ContentKind) ([]models.ContentItem, error) {
		return nil, errors.New("timeout")
	}
	svc := NewContentService(repo, nil)
	_, err := svc.ListContent(context.Background(), ListContentInput{Kind: models.KindArticle})
	assert.EqualError(t, err, "timeout")
}

func TestCreateContent(t *testing.T) {
	tests := []struct {
		name    string
		kind    models.ContentKind
		draft   models.ContentItem
		wantErr bool
	}{
		{"minimal", models.KindArticle, models.ContentItem{Title: "Tide tables"}, false},
		{"blank title", models.KindArticle, models.ContentItem{Title: "   "}, true},
		{"title too long", models.KindArticle, models.ContentItem{Title: strings.Repeat("x", 301)}, true},
		{"bad status", models.KindArticle, models.ContentItem{Title: "x", Status: "live"}, true},
		{"bad category", models.KindArticle, models.ContentItem{Title: "x", Category: "Local News"}, true},
		{"bulletin audio", models.KindBulletin, models.ContentItem{Title: "Noon", AudioURL: "https://cdn.example.com/noon.mp3", DurationSeconds: 90}, false},
		{"audio on article", models.KindArticle, models.ContentItem{Title: "x", AudioURL: "https://cdn.example.com/a.mp3"}, true},
		{"relative audio url", models.KindBulletin, models.ContentItem{Title: "x", AudioURL: "/a.mp3"}, true},
		{"negative duration", models.KindBulletin, models.ContentItem{Title: "x", DurationSeconds: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := noopContentRepo()
			var created *models.ContentItem
			repo.createFn = func(_ context.Context, item *models.ContentItem) error {
				created = item
				item.ID = "new-id"
				item.Order = 7
				return nil
			}
			svc := NewContentService(repo, nil)

			got, err := svc.CreateContent(context.Background(), tt.kind, tt.draft)
			if tt.wantErr {
				assertValidationError(t, err)
				assert.Nil(t, created, "invalid drafts never reach the repository")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "new-id", got.ID)
			assert.Equal(t, 7, got.Order)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, models.StatusDraft, got.Status)
		})
	}
}

func TestUpdateContent(t *testing.T) {
	repo := noopContentRepo()
	stored := &models.ContentItem{ID: "a", Kind: models.KindArticle, Title: "Old", Category: "local", Status: models.StatusDraft, Views: 12}
	repo.getByIDFn = func(_ context.Context, _ models.ContentKind, _ string) (*models.ContentItem, error) {
		cp := *stored
		return &cp, nil
	}
	repo.updateFn = func(_ context.Context, item *models.ContentItem) error {
		stored = item
		return nil
	}
	svc := NewContentService(repo, nil)

	published := models.StatusPublished
	got, err := svc.UpdateContent(context.Background(), models.KindArticle, "a", ContentPatch{
		Title:  strPtr("  New  "),
		Status: &published,
	})
	require.NoError(t, err)
	assert.Equal(t, "New", got.Title)
	assert.Equal(t, models.StatusPublished, got.Status)
	assert.Equal(t, "local", got.Category, "untouched fields survive")
	assert.Equal(t, 12, got.Views)

	_, err = svc.UpdateContent(context.Background(), models.KindArticle, "a", ContentPatch{})
	assertValidationError(t, err)

	_, err = svc.UpdateContent(context.Background(), models.KindArticle, "a", ContentPatch{Title: strPtr("")})
	assertValidationError(t, err)
}

func TestUpdateContent_NotFound(t *testing.T) {
	repo := noopContentRepo()
	repo.getByIDFn = func(_ context.Context, _ models.ContentKind, _ string) (*models.ContentItem, error) {
		return nil, gorm.ErrRecordNotFound
	}
	svc := NewContentService(repo, nil)

	_, err := svc.UpdateContent(context.Background(), models.KindBlock, "zz", ContentPatch{Title: strPtr("x")})
	assertAppError(t, err, models.CodeNotFound)
	assert.Contains(t, err.Error(), "Block with ID zz")
}

func TestReplaceContent(t *testing.T) {
	repo := noopContentRepo()
	stored := &models.ContentItem{ID: "a", Kind: models.KindArticle, Title: "Old", Category: "local", Featured: true, Likes: 3, Order: 2}
	repo.getByIDFn = func(_ context.Context, _ models.ContentKind, _ string) (*models.ContentItem, error) {
		cp := *stored
		return &cp, nil
	}
	repo.updateFn = func(_ context.Context, item *models.ContentItem) error {
		stored = item
		return nil
	}
	svc := NewContentService(repo, nil)

	got, err := svc.ReplaceContent(context.Background(), models.KindArticle, "a", models.ContentItem{Title: "New", Likes: 99, Order: 9})
	require.NoError(t, err)
	assert.Equal(t, "New", got.Title)
	assert.Empty(t, got.Category, "full update clears omitted fields")
	assert.False(t, got.Featured)
	assert.Equal(t, models.StatusDraft, got.Status)
	assert.Equal(t, 3, got.Likes, "aggregates are server-owned")
	assert.Equal(t, 2, got.Order, "order changes only through reorder")

	_, err = svc.ReplaceContent(context.Background(), models.KindArticle, "a", models.ContentItem{ID: "b", Title: "x"})
	assertValidationError(t, err)
}

func TestReorderContent(t *testing.T) {
	t.Run("passes ids and version through", func(t *testing.T) {
		repo := noopContentRepo()
		repo.reorderFn = func(_ context.Context, kind models.ContentKind, ids []string, expected *int64) (int64, error) {
			assert.Equal(t, models.KindBlock, kind)
			assert.Equal(t, []string{"c", "a"}, ids)
			require.NotNil(t, expected)
			assert.Equal(t, int64(3), *expected)
			return 4, nil
		}
		svc := NewContentService(repo, nil)
		expected := int64(3)
		v, err := svc.ReorderContent(context.Background(), models.KindBlock, []string{"c", "a"}, &expected)
		require.NoError(t, err)
		assert.Equal(t, int64(4), v)
	})

	errCases := []struct {
		name     string
		ids      []string
		repoErr  error
		wantCode string
	}{
		{"empty", nil, nil, models.CodeValidation},
		{"blank id", []string{"a", " "}, nil, models.CodeValidation},
		{"stale version", []string{"a"}, repository.ErrVersionConflict, models.CodeConflict},
		{"unknown id", []string{"zz"}, fmt.Errorf("%w: zz", repository.ErrUnknownItem), models.CodeValidation},
		{"duplicate id", []string{"a", "a"}, fmt.Errorf("%w: a", repository.ErrDuplicateItem), models.CodeValidation},
	}
	for _, tt := range errCases {
		t.Run(tt.name, func(t *testing.T) {
			repo := noopContentRepo()
			repo.reorderFn = func(_ context.Context, _ models.ContentKind, _ []string, _ *int64) (int64, error) {
				return 0, tt.repoErr
			}
			svc := NewContentService(repo, nil)
			_, err := svc.ReorderContent(context.Background(), models.KindBlock, tt.ids, nil)
			assertAppError(t, err, tt.wantCode)
		})
	}
}

func TestMoveContent(t *testing.T) {
	repo := noopContentRepo()
	repo.moveFn = func(_ context.Context, _ models.ContentKind, id string, position int, _ *int64) (int64, error) {
		if id == "missing" {
			return 0, gorm.ErrRecordNotFound
		}
		assert.Equal(t, 2, position)
		return 9, nil
	}
	svc := NewContentService(repo, nil)

	v, err := svc.MoveContent(context.Background(), models.KindArticle, "a", 2, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(9), v)

	_, err = svc.MoveContent(context.Background(), models.KindArticle, "a", 0, nil)
	assertValidationError(t, err)

	_, err = svc.MoveContent(context.Background(), models.KindArticle, "missing", 2, nil)
	assertAppError(t, err, models.CodeNotFound)
}

func TestDeleteContent(t *testing.T) {
	repo := noopContentRepo()
	repo.deleteFn = func(_ context.Context, _ models.ContentKind, id string) (int64, error) {
		if id == "gone" {
			return 0, gorm.ErrRecordNotFound
		}
		return 5, nil
	}
	svc := NewContentService(repo, nil)

	v, err := svc.DeleteContent(context.Background(), models.KindBulletin, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)

	_, err = svc.DeleteContent(context.Background(), models.KindBulletin, "gone")
	assertAppError(t, err, models.CodeNotFound)
}
