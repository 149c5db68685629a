// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"newsdesk/internal/cache"
	"newsdesk/internal/models"
	"newsdesk/internal/observability"
	"newsdesk/internal/reorder"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrVersionConflict reports that the caller's list version is stale.
	ErrVersionConflict = errors.New("list version conflict")
	// ErrUnknownItem reports a reorder naming an id that is not in the list.
	ErrUnknownItem = errors.New("item not in list")
	// ErrDuplicateItem reports a reorder naming the same id twice.
	ErrDuplicateItem = errors.New("item listed more than once")
)

const contentTable = "content_items"

// ContentRepository defines the interface for content list data operations
type ContentRepository interface {
	List(ctx context.Context, kind models.ContentKind) ([]models.ContentItem, error)
	GetByID(ctx context.Context, kind models.ContentKind, id string) (*models.ContentItem, error)
	Create(ctx context.Context, item *models.ContentItem) error
	Update(ctx context.Context, item *models.ContentItem) error
	Delete(ctx context.Context, kind models.ContentKind, id string) (int64, error)
	Reorder(ctx context.Context, kind models.ContentKind, ids []string, expected *int64) (int64, error)
	Move(ctx context.Context, kind models.ContentKind, id string, position int, expected *int64) (int64, error)
	Version(ctx context.Context, kind models.ContentKind) (int64, error)
}

// contentRepository implements ContentRepository
type contentRepository struct {
	db *gorm.DB
}

// NewContentRepository creates a new content repository
func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepository{db: db}
}

// List returns every item of kind ordered by manual order, then creation time.
func (r *contentRepository) List(ctx context.Context, kind models.ContentKind) ([]models.ContentItem, error) {
	ctx, span := observability.StartRepositorySpan(ctx, "List", contentTable)
	defer observability.TrackQuery("list", contentTable)()

	items := []models.ContentItem{}
	err := cache.Aside(ctx, cache.ContentListKey(string(kind)), &items, cache.ContentListTTL, func() error {
		return orderedItems(r.db.WithContext(ctx), kind, &items)
	})
	observability.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func orderedItems(db *gorm.DB, kind models.ContentKind, dest *[]models.ContentItem) error {
	return db.Where("kind = ?", kind).
		Order("sort_order ASC").
		Order("created_at ASC").
		Order("id ASC").
		Find(dest).Error
}

func (r *contentRepository) GetByID(ctx context.Context, kind models.ContentKind, id string) (*models.ContentItem, error) {
	defer observability.TrackQuery("get", contentTable)()

	var item models.ContentItem
	err := cache.Aside(ctx, cache.ContentItemKey(id), &item, cache.ContentItemTTL, func() error {
		return r.db.WithContext(ctx).First(&item, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	if item.Kind != kind {
		return nil, gorm.ErrRecordNotFound
	}
	return &item, nil
}

// Create appends item at the end of its list (order = max + 1) and assigns a
// UUID when the item has none. It does not bump the list version.
func (r *contentRepository) Create(ctx context.Context, item *models.ContentItem) error {
	ctx, span := observability.StartRepositorySpan(ctx, "Create", contentTable)
	defer observability.TrackQuery("create", contentTable)()

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Status == "" {
		item.Status = models.StatusDraft
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Serialize appends on the list's version row.
		if _, err := lockVersion(tx, item.Kind); err != nil {
			return err
		}
		var maxOrder int
		if err := tx.Model(&models.ContentItem{}).
			Where("kind = ?", item.Kind).
			Select("COALESCE(MAX(sort_order), 0)").
			Scan(&maxOrder).Error; err != nil {
			return err
		}
		item.Order = maxOrder + 1
		return tx.Create(item).Error
	})
	observability.EndSpan(span, err)
	if err == nil {
		cache.InvalidateContent(ctx, string(item.Kind))
	}
	return err
}

// Update saves every column of item except its order and creation time.
func (r *contentRepository) Update(ctx context.Context, item *models.ContentItem) error {
	defer observability.TrackQuery("update", contentTable)()

	res := r.db.WithContext(ctx).
		Model(&models.ContentItem{}).
		Where("id = ? AND kind = ?", item.ID, item.Kind).
		Updates(map[string]any{
			"title":            item.Title,
			"content":          item.Content,
			"author_name":      item.AuthorName,
			"category":         item.Category,
			"status":           item.Status,
			"featured":         item.Featured,
			"audio_url":        item.AudioURL,
			"duration_seconds": item.DurationSeconds,
			"views":            item.Views,
			"comments":         item.Comments,
			"updated_at":       time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	cache.InvalidateContent(ctx, string(item.Kind), item.ID)
	return nil
}

// Delete removes the item, closes the gap in the manual order and bumps the
// list version, which it returns.
func (r *contentRepository) Delete(ctx context.Context, kind models.ContentKind, id string) (int64, error) {
	ctx, span := observability.StartRepositorySpan(ctx, "Delete", contentTable)
	defer observability.TrackQuery("delete", contentTable)()

	var version int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := lockVersion(tx, kind)
		if err != nil {
			return err
		}
		res := tx.Where("id = ? AND kind = ?", id, kind).Delete(&models.ContentItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("target_id = ?", id).Delete(&models.Interaction{}).Error; err != nil {
			return err
		}

		var rest []models.ContentItem
		if err := orderedItems(tx, kind, &rest); err != nil {
			return err
		}
		renumbered := models.CloneItems(rest)
		reorder.Renumber(renumbered)
		if err := saveOrder(tx, rest, renumbered); err != nil {
			return err
		}

		version, err = setVersion(tx, kind, current+1)
		return err
	})
	observability.EndSpan(span, err)
	if err != nil {
		return 0, err
	}
	cache.InvalidateContent(ctx, string(kind), id)
	return version, nil
}

// Reorder places the listed ids first, in the given order, followed by the
// remaining items in their current relative order. When expected is set it
// must equal the current list version.
func (r *contentRepository) Reorder(ctx context.Context, kind models.ContentKind, ids []string, expected *int64) (int64, error) {
	return r.rearrange(ctx, "Reorder", kind, expected, func(current []models.ContentItem) ([]models.ContentItem, error) {
		known := make(map[string]struct{}, len(current))
		for _, it := range current {
			known[it.ID] = struct{}{}
		}
		seen := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			if _, ok := known[id]; !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownItem, id)
			}
			if _, dup := seen[id]; dup {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateItem, id)
			}
			seen[id] = struct{}{}
		}
		return reorder.Arrange(current, ids), nil
	})
}

// Move relocates one item to a 1-based position, clamped to the list bounds.
func (r *contentRepository) Move(ctx context.Context, kind models.ContentKind, id string, position int, expected *int64) (int64, error) {
	return r.rearrange(ctx, "Move", kind, expected, func(current []models.ContentItem) ([]models.ContentItem, error) {
		if models.IndexOf(current, id) < 0 {
			return nil, gorm.ErrRecordNotFound
		}
		out, _ := reorder.MoveTo(current, id, position)
		// MoveTo leaves a no-op list untouched; still repair stray orders.
		reorder.Renumber(out)
		return out, nil
	})
}

func (r *contentRepository) rearrange(
	ctx context.Context,
	op string,
	kind models.ContentKind,
	expected *int64,
	plan func(current []models.ContentItem) ([]models.ContentItem, error),
) (int64, error) {
	ctx, span := observability.StartRepositorySpan(ctx, op, contentTable)
	defer observability.TrackQuery("reorder", contentTable)()

	var version int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := lockVersion(tx, kind)
		if err != nil {
			return err
		}
		if expected != nil && *expected != current {
			return ErrVersionConflict
		}

		var items []models.ContentItem
		if err := orderedItems(tx, kind, &items); err != nil {
			return err
		}
		next, err := plan(items)
		if err != nil {
			return err
		}
		if err := saveOrder(tx, items, next); err != nil {
			return err
		}

		version, err = setVersion(tx, kind, current+1)
		return err
	})
	observability.EndSpan(span, err)
	if err != nil {
		return 0, err
	}
	cache.InvalidateContent(ctx, string(kind))
	return version, nil
}

// saveOrder writes sort_order for every item whose order differs from before.
func saveOrder(tx *gorm.DB, before, after []models.ContentItem) error {
	old := make(map[string]int, len(before))
	for _, it := range before {
		old[it.ID] = it.Order
	}
	for _, it := range after {
		if prev, ok := old[it.ID]; ok && prev == it.Order {
			continue
		}
		if err := tx.Model(&models.ContentItem{}).
			Where("id = ?", it.ID).
			UpdateColumn("sort_order", it.Order).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *contentRepository) Version(ctx context.Context, kind models.ContentKind) (int64, error) {
	var v models.ListVersion
	err := r.db.WithContext(ctx).Where("kind = ?", kind).Limit(1).Find(&v).Error
	return v.Version, err
}

// lockVersion returns the current list version, creating the row on first use
// and holding a row lock for the rest of the transaction.
func lockVersion(tx *gorm.DB, kind models.ContentKind) (int64, error) {
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.ListVersion{Kind: kind}).Error; err != nil {
		return 0, err
	}
	var v models.ListVersion
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("kind = ?", kind).
		First(&v).Error; err != nil {
		return 0, err
	}
	return v.Version, nil
}

func setVersion(tx *gorm.DB, kind models.ContentKind, version int64) (int64, error) {
	err := tx.Model(&models.ListVersion{}).
		Where("kind = ?", kind).
		Updates(map[string]any{"version": version, "updated_at": time.Now().UTC()}).Error
	return version, err
}
