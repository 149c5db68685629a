// Package service holds the business rules between the HTTP handlers and the
// repositories: validation, version checks, viewer flags and points.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"newsdesk/internal/listing"
	"newsdesk/internal/models"
	"newsdesk/internal/observability"
	"newsdesk/internal/repository"
	"newsdesk/internal/validation"

	"gorm.io/gorm"
)

type ContentService struct {
	contentRepo     repository.ContentRepository
	interactionRepo repository.InteractionRepository
}

// ListContentInput narrows and pages one content list.
type ListContentInput struct {
	Kind     models.ContentKind
	Criteria listing.Criteria
	// Sort is a listing sort key; empty means manual order.
	Sort     string
	Limit    int
	Offset   int
	ViewerID string
}

// ListContentResult is one page of a list plus the list version token.
type ListContentResult struct {
	Items   []models.ContentItem
	Version int64
	// Total counts the filtered items before paging.
	Total int
}

// ContentPatch is a partial update. Nil fields are left alone.
type ContentPatch struct {
	Title           *string               `json:"title"`
	Content         *string               `json:"content"`
	AuthorName      *string               `json:"author_name"`
	Category        *string               `json:"category"`
	Status          *models.ContentStatus `json:"status"`
	Featured        *bool                 `json:"featured"`
	AudioURL        *string               `json:"audio_url"`
	DurationSeconds *int                  `json:"duration_seconds"`
}

// Empty reports whether the patch changes nothing.
func (p ContentPatch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.AuthorName == nil && p.Category == nil &&
		p.Status == nil && p.Featured == nil && p.AudioURL == nil && p.DurationSeconds == nil
}

func NewContentService(
	contentRepo repository.ContentRepository,
	interactionRepo repository.InteractionRepository,
) *ContentService {
	return &ContentService{
		contentRepo:     contentRepo,
		interactionRepo: interactionRepo,
	}
}

// ListContent returns the filtered, sorted and paged view of a list.
func (s *ContentService) ListContent(ctx context.Context, in ListContentInput) (*ListContentResult, error) {
	ctx, span := observability.StartServiceSpan(ctx, "ContentService", "ListContent")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	key := listing.SortManual
	if strings.TrimSpace(in.Sort) != "" {
		key, err = listing.ParseSortKey(in.Sort)
		if err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}
	if in.Limit < 0 || in.Offset < 0 {
		err = models.NewValidationError("limit and offset must not be negative")
		return nil, err
	}

	items, err := s.contentRepo.List(ctx, in.Kind)
	if err != nil {
		return nil, err
	}
	version, err := s.contentRepo.Version(ctx, in.Kind)
	if err != nil {
		return nil, err
	}

	view := listing.Apply(items, in.Criteria, key)
	page := listing.Paginate(view, in.Offset, in.Limit)
	s.applyViewerFlags(ctx, in.ViewerID, page)

	return &ListContentResult{Items: page, Version: version, Total: len(view)}, nil
}

func (s *ContentService) GetContent(ctx context.Context, kind models.ContentKind, id, viewerID string) (*models.ContentItem, error) {
	item, err := s.contentRepo.GetByID(ctx, kind, id)
	if err != nil {
		return nil, mapRepoError(err, kind, id)
	}
	one := []models.ContentItem{*item}
	s.applyViewerFlags(ctx, viewerID, one)
	return &one[0], nil
}

// CreateContent validates a draft and appends it to the end of its list.
func (s *ContentService) CreateContent(ctx context.Context, kind models.ContentKind, draft models.ContentItem) (*models.ContentItem, error) {
	item := models.ContentItem{
		Kind:            kind,
		Title:           strings.TrimSpace(draft.Title),
		Content:         draft.Content,
		AuthorName:      strings.TrimSpace(draft.AuthorName),
		Category:        strings.TrimSpace(draft.Category),
		Status:          draft.Status,
		Featured:        draft.Featured,
		AudioURL:        strings.TrimSpace(draft.AudioURL),
		DurationSeconds: draft.DurationSeconds,
	}
	if item.Status == "" {
		item.Status = models.StatusDraft
	}
	if err := validateItem(&item); err != nil {
		return nil, err
	}
	if err := s.contentRepo.Create(ctx, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateContent applies a partial update.
func (s *ContentService) UpdateContent(ctx context.Context, kind models.ContentKind, id string, patch ContentPatch) (*models.ContentItem, error) {
	if patch.Empty() {
		return nil, models.NewValidationError("No fields to update")
	}
	item, err := s.contentRepo.GetByID(ctx, kind, id)
	if err != nil {
		return nil, mapRepoError(err, kind, id)
	}

	if patch.Title != nil {
		item.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Content != nil {
		item.Content = *patch.Content
	}
	if patch.AuthorName != nil {
		item.AuthorName = strings.TrimSpace(*patch.AuthorName)
	}
	if patch.Category != nil {
		item.Category = strings.TrimSpace(*patch.Category)
	}
	if patch.Status != nil {
		item.Status = *patch.Status
	}
	if patch.Featured != nil {
		item.Featured = *patch.Featured
	}
	if patch.AudioURL != nil {
		item.AudioURL = strings.TrimSpace(*patch.AudioURL)
	}
	if patch.DurationSeconds != nil {
		item.DurationSeconds = *patch.DurationSeconds
	}

	return s.save(ctx, item)
}

// ReplaceContent overwrites every editable field. Order and aggregates are
// kept from the stored item.
func (s *ContentService) ReplaceContent(ctx context.Context, kind models.ContentKind, id string, next models.ContentItem) (*models.ContentItem, error) {
	if next.ID != "" && next.ID != id {
		return nil, models.NewValidationError("Body id does not match the URL")
	}
	item, err := s.contentRepo.GetByID(ctx, kind, id)
	if err != nil {
		return nil, mapRepoError(err, kind, id)
	}

	item.Title = strings.TrimSpace(next.Title)
	item.Content = next.Content
	item.AuthorName = strings.TrimSpace(next.AuthorName)
	item.Category = strings.TrimSpace(next.Category)
	item.Status = next.Status
	if item.Status == "" {
		item.Status = models.StatusDraft
	}
	item.Featured = next.Featured
	item.AudioURL = strings.TrimSpace(next.AudioURL)
	item.DurationSeconds = next.DurationSeconds

	return s.save(ctx, item)
}

func (s *ContentService) save(ctx context.Context, item *models.ContentItem) (*models.ContentItem, error) {
	if err := validateItem(item); err != nil {
		return nil, err
	}
	if err := s.contentRepo.Update(ctx, item); err != nil {
		return nil, mapRepoError(err, item.Kind, item.ID)
	}
	// Re-read for the stored timestamps.
	return s.GetContent(ctx, item.Kind, item.ID, "")
}

// DeleteContent removes an item and returns the new list version.
func (s *ContentService) DeleteContent(ctx context.Context, kind models.ContentKind, id string) (int64, error) {
	version, err := s.contentRepo.Delete(ctx, kind, id)
	if err != nil {
		return 0, mapRepoError(err, kind, id)
	}
	return version, nil
}

// ReorderContent places ids first in the given order; the rest keep their
// relative order after them. A non-nil expected version must match.
func (s *ContentService) ReorderContent(ctx context.Context, kind models.ContentKind, ids []string, expected *int64) (int64, error) {
	if len(ids) == 0 {
		return 0, models.NewValidationError("items must not be empty")
	}
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return 0, models.NewValidationError("items must not contain empty ids")
		}
	}
	version, err := s.contentRepo.Reorder(ctx, kind, ids, expected)
	if err != nil {
		return 0, s.reorderError(err, kind, "")
	}
	observability.ReordersTotal.WithLabelValues(kind.Resource(), "full").Inc()
	return version, nil
}

// MoveContent places one item at a 1-based position.
func (s *ContentService) MoveContent(ctx context.Context, kind models.ContentKind, id string, position int, expected *int64) (int64, error) {
	if position < 1 {
		return 0, models.NewValidationError("position must be at least 1")
	}
	version, err := s.contentRepo.Move(ctx, kind, id, position, expected)
	if err != nil {
		return 0, s.reorderError(err, kind, id)
	}
	observability.ReordersTotal.WithLabelValues(kind.Resource(), "move").Inc()
	return version, nil
}

func (s *ContentService) reorderError(err error, kind models.ContentKind, id string) error {
	if errors.Is(err, repository.ErrVersionConflict) {
		observability.ReorderConflicts.WithLabelValues(kind.Resource()).Inc()
	}
	return mapRepoError(err, kind, id)
}

// applyViewerFlags marks the items the viewer has liked, bookmarked or
// shared. Lookup failures leave the flags unset.
func (s *ContentService) applyViewerFlags(ctx context.Context, viewerID string, items []models.ContentItem) {
	if viewerID == "" || len(items) == 0 || s.interactionRepo == nil {
		return
	}
	ids := make([]string, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	active, err := s.interactionRepo.ActiveTypes(ctx, viewerID, ids)
	if err != nil {
		return
	}
	for i := range items {
		types := active[items[i].ID]
		items[i].Liked = types[models.InteractionLike]
		items[i].Bookmarked = types[models.InteractionBookmark]
		items[i].Shared = types[models.InteractionShare]
	}
}

func validateItem(item *models.ContentItem) error {
	if err := validation.ValidateTitle(item.Title); err != nil {
		return models.NewValidationError(err.Error())
	}
	if err := validation.ValidateContent(item.Content); err != nil {
		return models.NewValidationError(err.Error())
	}
	if err := validation.ValidateAuthor(item.AuthorName); err != nil {
		return models.NewValidationError(err.Error())
	}
	if err := validation.ValidateCategory(item.Category); err != nil {
		return models.NewValidationError(err.Error())
	}
	if !item.Status.Valid() {
		return models.NewValidationError(fmt.Sprintf("Invalid status %q", item.Status))
	}
	if item.AudioURL != "" {
		if item.Kind != models.KindBulletin {
			return models.NewValidationError("audio_url is only allowed on bulletins")
		}
		if err := validation.ValidateAudioURL(item.AudioURL); err != nil {
			return models.NewValidationError(err.Error())
		}
	}
	if item.DurationSeconds < 0 {
		return models.NewValidationError("duration_seconds must not be negative")
	}
	return nil
}

// mapRepoError turns repository sentinels into AppErrors. Anything else is
// returned unchanged and rendered as an internal error.
func mapRepoError(err error, kind models.ContentKind, id string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return models.NewNotFoundError(kindLabel(kind), id)
	case errors.Is(err, repository.ErrVersionConflict):
		return models.NewConflictError("List version is stale; reload and retry")
	case errors.Is(err, repository.ErrUnknownItem), errors.Is(err, repository.ErrDuplicateItem):
		return models.NewValidationError(err.Error())
	default:
		return err
	}
}

func kindLabel(kind models.ContentKind) string {
	switch kind {
	case models.KindBlock:
		return "Block"
	case models.KindBulletin:
		return "Bulletin"
	case models.KindArticle:
		return "Article"
	}
	return "Content"
}
