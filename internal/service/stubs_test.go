package service

import (
	"context"
	"errors"
	"testing"

	"newsdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contentRepoStub is a stub for repository.ContentRepository.
type contentRepoStub struct {
	listFn    func(context.Context, models.ContentKind) ([]models.ContentItem, error)
	getByIDFn func(context.Context, models.ContentKind, string) (*models.ContentItem, error)
	createFn  func(context.Context, *models.ContentItem) error
	updateFn  func(context.Context, *models.ContentItem) error
	deleteFn  func(context.Context, models.ContentKind, string) (int64, error)
	reorderFn func(context.Context, models.ContentKind, []string, *int64) (int64, error)
	moveFn    func(context.Context, models.ContentKind, string, int, *int64) (int64, error)
	versionFn func(context.Context, models.ContentKind) (int64, error)
}

func (s *contentRepoStub) List(ctx context.Context, kind models.ContentKind) ([]models.ContentItem, error) {
	return s.listFn(ctx, kind)
}
func (s *contentRepoStub) GetByID(ctx context.Context, kind models.ContentKind, id string) (*models.ContentItem, error) {
	return s.getByIDFn(ctx, kind, id)
}
func (s *contentRepoStub) Create(ctx context.Context, item *models.ContentItem) error {
	return s.createFn(ctx, item)
}
func (s *contentRepoStub) Update(ctx context.Context, item *models.ContentItem) error {
	return s.updateFn(ctx, item)
}
func (s *contentRepoStub) Delete(ctx context.Context, kind models.ContentKind, id string) (int64, error) {
	return s.deleteFn(ctx, kind, id)
}
func (s *contentRepoStub) Reorder(ctx context.Context, kind models.ContentKind, ids []string, expected *int64) (int64, error) {
	return s.reorderFn(ctx, kind, ids, expected)
}
func (s *contentRepoStub) Move(ctx context.Context, kind models.ContentKind, id string, position int, expected *int64) (int64, error) {
	return s.moveFn(ctx, kind, id, position, expected)
}
func (s *contentRepoStub) Version(ctx context.Context, kind models.ContentKind) (int64, error) {
	return s.versionFn(ctx, kind)
}

func noopContentRepo() *contentRepoStub {
	return &contentRepoStub{
		listFn: func(_ context.Context, _ models.ContentKind) ([]models.ContentItem, error) { return nil, nil },
		getByIDFn: func(_ context.Context, kind models.ContentKind, id string) (*models.ContentItem, error) {
			return &models.ContentItem{ID: id, Kind: kind, Title: "stored", Status: models.StatusDraft}, nil
		},
		createFn:  func(_ context.Context, _ *models.ContentItem) error { return nil },
		updateFn:  func(_ context.Context, _ *models.ContentItem) error { return nil },
		deleteFn:  func(_ context.Context, _ models.ContentKind, _ string) (int64, error) { return 1, nil },
		reorderFn: func(_ context.Context, _ models.ContentKind, _ []string, _ *int64) (int64, error) { return 1, nil },
		moveFn:    func(_ context.Context, _ models.ContentKind, _ string, _ int, _ *int64) (int64, error) { return 1, nil },
		versionFn: func(_ context.Context, _ models.ContentKind) (int64, error) { return 0, nil },
	}
}

// interactionRepoStub is a stub for repository.InteractionRepository.
type interactionRepoStub struct {
	setFn         func(context.Context, string, string, models.InteractionType, bool) (*models.ContentItem, bool, error)
	awardFn       func(context.Context, string, string, models.InteractionType, int) (bool, error)
	totalPointsFn func(context.Context, string) (int, error)
	activeTypesFn func(context.Context, string, []string) (map[string]map[models.InteractionType]bool, error)
}

func (s *interactionRepoStub) Set(ctx context.Context, userID, targetID string, typ models.InteractionType, active bool) (*models.ContentItem, bool, error) {
	return s.setFn(ctx, userID, targetID, typ, active)
}
func (s *interactionRepoStub) Award(ctx context.Context, userID, targetID string, typ models.InteractionType, points int) (bool, error) {
	return s.awardFn(ctx, userID, targetID, typ, points)
}
func (s *interactionRepoStub) TotalPoints(ctx context.Context, userID string) (int, error) {
	return s.totalPointsFn(ctx, userID)
}
func (s *interactionRepoStub) ActiveTypes(ctx context.Context, userID string, targetIDs []string) (map[string]map[models.InteractionType]bool, error) {
	return s.activeTypesFn(ctx, userID, targetIDs)
}

func noopInteractionRepo() *interactionRepoStub {
	return &interactionRepoStub{
		setFn: func(_ context.Context, _, targetID string, _ models.InteractionType, _ bool) (*models.ContentItem, bool, error) {
			return &models.ContentItem{ID: targetID, Kind: models.KindArticle}, true, nil
		},
		awardFn:       func(_ context.Context, _, _ string, _ models.InteractionType, _ int) (bool, error) { return true, nil },
		totalPointsFn: func(_ context.Context, _ string) (int, error) { return 0, nil },
		activeTypesFn: func(_ context.Context, _ string, _ []string) (map[string]map[models.InteractionType]bool, error) {
			return map[string]map[models.InteractionType]bool{}, nil
		},
	}
}

func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertAppError(t, err, models.CodeValidation)
}
