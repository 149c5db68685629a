package desk

import (
	"context"
	"errors"
	"log/slog"

	"newsdesk/internal/apiclient"
	"newsdesk/internal/models"
	"newsdesk/internal/observability"
	"newsdesk/internal/reorder"
)

// Move swaps the item with its neighbour, shows the new order immediately
// and ships the full list to the server. Boundary moves do nothing and send
// nothing.
func (d *Desk) Move(ctx context.Context, id string, dir reorder.Direction) error {
	d.mu.Lock()
	after, moved := reorder.Move(d.items, id, dir)
	if !moved {
		d.mu.Unlock()
		return nil
	}
	if !d.isKnownLocked(id) {
		d.applyOrderLocked(after)
		d.mu.Unlock()
		d.saveSnapshot(ctx)
		return nil
	}
	payload := d.serverOrderLocked(after)
	gen := d.applyOrderLocked(after)
	d.mu.Unlock()

	return d.submitOrder(ctx, "move", id, gen, payload, func(ctx context.Context, version int64) (int64, error) {
		return d.api.Reorder(ctx, d.kind, payload, version)
	})
}

// MoveTo places the item at a 1-based position using the server's delta
// endpoint instead of shipping the whole list. While the list is dirty the
// full order is sent so the server catches up with the unsaved moves too.
func (d *Desk) MoveTo(ctx context.Context, id string, position int) error {
	d.mu.Lock()
	after, moved := reorder.MoveTo(d.items, id, position)
	if !moved {
		d.mu.Unlock()
		return nil
	}
	if !d.isKnownLocked(id) {
		d.applyOrderLocked(after)
		d.mu.Unlock()
		d.saveSnapshot(ctx)
		return nil
	}
	payload := d.serverOrderLocked(after)
	full := d.dirty
	gen := d.applyOrderLocked(after)
	target := models.IndexOf(payload, id) + 1
	d.mu.Unlock()

	return d.submitOrder(ctx, "move", id, gen, payload, func(ctx context.Context, version int64) (int64, error) {
		if full {
			return d.api.Reorder(ctx, d.kind, payload, version)
		}
		return d.api.Move(ctx, d.kind, id, target, version)
	})
}

// RetryReorder resubmits the local order after a failure under the sticky
// policy. It is a no-op when the list is not dirty.
func (d *Desk) RetryReorder(ctx context.Context) error {
	d.mu.Lock()
	if !d.dirty {
		d.mu.Unlock()
		return nil
	}
	current := models.CloneItems(d.items)
	reorder.Renumber(current)
	payload := d.serverOrderLocked(current)
	gen := d.applyOrderLocked(current)
	d.mu.Unlock()

	return d.submitOrder(ctx, "retry reorder", "", gen, payload, func(ctx context.Context, version int64) (int64, error) {
		return d.api.Reorder(ctx, d.kind, payload, version)
	})
}

func (d *Desk) isKnownLocked(id string) bool {
	_, ok := d.known[id]
	return ok
}

// serverOrderLocked returns the items the server has, in the order of items,
// numbered from 1. Local-only items never leave the desk.
func (d *Desk) serverOrderLocked(items []models.ContentItem) []models.ContentItem {
	out := make([]models.ContentItem, 0, len(items))
	for _, it := range items {
		if d.isKnownLocked(it.ID) {
			out = append(out, it)
		}
	}
	reorder.Renumber(out)
	return out
}

func (d *Desk) applyOrderLocked(after []models.ContentItem) uint64 {
	d.items = after
	d.moveGen++
	return d.moveGen
}

func (d *Desk) submitOrder(ctx context.Context, op, id string, gen uint64, after []models.ContentItem, send reorder.SubmitFunc) error {
	err := d.seq.Submit(ctx, d.list(), send)
	if err == nil {
		d.mu.Lock()
		d.confirmed = ids(after)
		if gen == d.moveGen {
			d.items = reorder.Arrange(d.items, d.confirmed)
			d.dirty = false
		}
		d.mu.Unlock()
		d.saveSnapshot(ctx)
		return nil
	}

	var stale *apiclient.StaleStateError
	if errors.As(err, &stale) {
		// Someone else changed the list; take the server's order.
		d.fail(ctx, op, id, err)
		if _, loadErr := d.Load(ctx); loadErr != nil {
			d.logger.WarnContext(ctx, "resync after conflict failed", slog.String("error", loadErr.Error()))
		}
		return err
	}

	d.mu.Lock()
	if gen == d.moveGen {
		switch d.policy {
		case PolicySticky:
			d.dirty = true
		default:
			d.items = reorder.Arrange(d.items, d.confirmed)
			observability.OptimisticRollbacks.WithLabelValues("reorder").Inc()
		}
	}
	d.mu.Unlock()
	d.fail(ctx, op, id, err)
	return err
}
