package repository

import (
	"context"
	"fmt"

	"newsdesk/internal/cache"
	"newsdesk/internal/models"
	"newsdesk/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const interactionTable = "interactions"

// InteractionRepository defines the interface for interaction and points data operations
type InteractionRepository interface {
	// Set makes the (user, target, type) interaction active or inactive and
	// keeps the item's counter in step. Setting the current state is a no-op.
	// It returns the item as stored after the call.
	Set(ctx context.Context, userID, targetID string, typ models.InteractionType, active bool) (item *models.ContentItem, changed bool, err error)
	// Award grants points once per (user, target, type). It reports whether
	// this call granted them.
	Award(ctx context.Context, userID, targetID string, typ models.InteractionType, points int) (bool, error)
	TotalPoints(ctx context.Context, userID string) (int, error)
	// ActiveTypes returns, per target id, the interaction types the user has active.
	ActiveTypes(ctx context.Context, userID string, targetIDs []string) (map[string]map[models.InteractionType]bool, error)
}

type interactionRepository struct {
	db *gorm.DB
}

// NewInteractionRepository creates a new interaction repository
func NewInteractionRepository(db *gorm.DB) InteractionRepository {
	return &interactionRepository{db: db}
}

func (r *interactionRepository) Set(ctx context.Context, userID, targetID string, typ models.InteractionType, active bool) (*models.ContentItem, bool, error) {
	ctx, span := observability.StartRepositorySpan(ctx, "Set", interactionTable)
	defer observability.TrackQuery("set", interactionTable)()

	column := typ.CounterColumn()
	if column == "" {
		return nil, false, fmt.Errorf("unknown interaction type %q", typ)
	}

	var (
		changed bool
		item    models.ContentItem
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&item, "id = ?", targetID).Error; err != nil {
			return err
		}
		if err := applyInteraction(tx, userID, targetID, typ, column, active, &changed); err != nil {
			return err
		}
		return tx.First(&item, "id = ?", targetID).Error
	})
	observability.EndSpan(span, err)
	if err != nil {
		return nil, false, err
	}
	if changed {
		cache.InvalidateContent(ctx, string(item.Kind), targetID)
	}
	return &item, changed, nil
}

func applyInteraction(tx *gorm.DB, userID, targetID string, typ models.InteractionType, column string, active bool, changed *bool) error {
	if active {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Interaction{
			UserID:   userID,
			TargetID: targetID,
			Type:     typ,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		*changed = true
		return tx.Model(&models.ContentItem{}).
			Where("id = ?", targetID).
			UpdateColumn(column, gorm.Expr(column+" + 1")).Error
	}

	res := tx.Where("user_id = ? AND target_id = ? AND type = ?", userID, targetID, typ).
		Delete(&models.Interaction{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil
	}
	*changed = true
	// Clamp at zero in case the counter drifted below the row count.
	return tx.Model(&models.ContentItem{}).
		Where("id = ?", targetID).
		UpdateColumn(column, gorm.Expr("CASE WHEN "+column+" > 0 THEN "+column+" - 1 ELSE 0 END")).Error
}

func (r *interactionRepository) Award(ctx context.Context, userID, targetID string, typ models.InteractionType, points int) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&models.PointsAward{
		UserID:   userID,
		TargetID: targetID,
		Type:     typ,
		Points:   points,
	})
	if res.Error != nil {
		return false, res.Error
	}
	awarded := res.RowsAffected > 0
	if awarded {
		cache.InvalidateUserPoints(ctx, userID)
	}
	return awarded, nil
}

func (r *interactionRepository) TotalPoints(ctx context.Context, userID string) (int, error) {
	var total int
	err := cache.Aside(ctx, cache.UserPointsKey(userID), &total, cache.UserPointsTTL, func() error {
		return r.db.WithContext(ctx).
			Model(&models.PointsAward{}).
			Where("user_id = ?", userID).
			Select("COALESCE(SUM(points), 0)").
			Scan(&total).Error
	})
	return total, err
}

func (r *interactionRepository) ActiveTypes(ctx context.Context, userID string, targetIDs []string) (map[string]map[models.InteractionType]bool, error) {
	out := make(map[string]map[models.InteractionType]bool)
	if userID == "" || len(targetIDs) == 0 {
		return out, nil
	}

	var rows []models.Interaction
	if err := r.db.WithContext(ctx).
		Select("target_id", "type").
		Where("user_id = ? AND target_id IN ?", userID, targetIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		if out[row.TargetID] == nil {
			out[row.TargetID] = make(map[models.InteractionType]bool)
		}
		out[row.TargetID][row.Type] = true
	}
	return out, nil
}
