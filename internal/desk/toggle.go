package desk

import (
	"context"
	"errors"
	"log/slog"

	"newsdesk/internal/apiclient"
	"newsdesk/internal/models"
	"newsdesk/internal/observability"
	"newsdesk/internal/reconcile"
)

// Toggle flips a boolean field optimistically. Engagement fields go through
// the interactions endpoint; featured and published are PATCHed. A failed
// call restores the field and its counter; a call superseded by a newer
// toggle of the same field returns StaleStateError and changes nothing.
func (d *Desk) Toggle(ctx context.Context, id string, field reconcile.Field, value bool) (reconcile.Outcome, error) {
	persist, err := d.persistFor(id, field, value)
	if err != nil {
		return reconcile.Outcome{}, err
	}

	out, err := d.rec.Toggle(ctx, id, field, value, persist)
	switch {
	case err == nil:
		if out.PointsEarned > 0 {
			d.notifier.Notify(ctx, Notification{
				Level:   LevelInfo,
				Op:      "toggle " + string(field),
				ItemID:  id,
				Message: "Points earned",
			})
		}
		d.saveSnapshot(ctx)
		return out, nil
	case errors.Is(err, reconcile.ErrSuperseded):
		d.logger.DebugContext(ctx, "toggle superseded",
			slog.String("item_id", id), slog.String("field", string(field)))
		return out, &apiclient.StaleStateError{Op: "toggle " + string(field)}
	case errors.Is(err, reconcile.ErrUnknownItem):
		return out, &apiclient.ValidationError{Field: "id", Message: "unknown item " + id}
	default:
		if out.RolledBack {
			observability.OptimisticRollbacks.WithLabelValues("toggle").Inc()
		}
		d.fail(ctx, "toggle "+string(field), id, err)
		return out, err
	}
}

func (d *Desk) persistFor(id string, field reconcile.Field, value bool) (reconcile.PersistFunc, error) {
	if typ, ok := field.Interaction(); ok {
		if d.userID == "" {
			return nil, &apiclient.ValidationError{Field: "user_id", Message: "a user is required for " + string(field)}
		}
		return func(ctx context.Context) (reconcile.Canonical, error) {
			res, err := d.api.Interact(ctx, apiclient.InteractionRequest{
				UserID:   d.userID,
				TargetID: id,
				Type:     typ,
				Active:   value,
			})
			if err != nil {
				return reconcile.Canonical{}, err
			}
			return canonicalFor(typ, res), nil
		}, nil
	}

	var patch map[string]any
	switch field {
	case reconcile.FieldFeatured:
		patch = map[string]any{"featured": value}
	case reconcile.FieldPublished:
		status := models.StatusDraft
		if value {
			status = models.StatusPublished
		}
		patch = map[string]any{"status": string(status)}
	default:
		return nil, &apiclient.ValidationError{Field: "field", Message: "unknown field " + string(field)}
	}
	return func(ctx context.Context) (reconcile.Canonical, error) {
		item, err := d.api.Update(ctx, d.kind, id, patch)
		if err != nil {
			return reconcile.Canonical{}, err
		}
		return reconcile.Canonical{Item: &item}, nil
	}, nil
}

func canonicalFor(typ models.InteractionType, res models.InteractionResult) reconcile.Canonical {
	var (
		value   bool
		counter int
	)
	switch typ {
	case models.InteractionLike:
		value, counter = res.IsLiked, res.Likes
	case models.InteractionBookmark:
		value, counter = res.IsBookmarked, res.Bookmarks
	case models.InteractionShare:
		value, counter = res.IsShared, res.Shares
	}
	return reconcile.Canonical{Value: &value, Counter: &counter, PointsEarned: res.PointsEarned}
}
