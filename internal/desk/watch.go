package desk

import (
	"context"
	"log/slog"

	"newsdesk/internal/models"
)

// Watch subscribes to server events and resyncs the list whenever another
// client changes it. It returns when ctx is cancelled or the stream ends.
func (d *Desk) Watch(ctx context.Context) error {
	events, err := d.api.Subscribe(ctx)
	if err != nil {
		d.fail(ctx, "watch", "", err)
		return err
	}
	for ev := range events {
		if !d.relevant(ev) {
			continue
		}
		d.logger.DebugContext(ctx, "remote change, resyncing",
			slog.String("event", ev.Type), slog.String("item_id", ev.Payload.ID))
		// Load notifies on failure itself.
		_, _ = d.Load(ctx)
	}
	return ctx.Err()
}

// relevant reports whether ev describes a change this desk has not seen.
func (d *Desk) relevant(ev models.ContentEvent) bool {
	if ev.Type == models.EventEventsDropped {
		return true
	}
	if ev.Payload.Resource != d.list() {
		return false
	}
	if ev.Type == models.EventListReordered || ev.Type == models.EventContentDeleted {
		return ev.Payload.Version == 0 || ev.Payload.Version > d.Version()
	}
	if ev.Payload.Item != nil {
		if local, ok := d.Get(ev.Payload.ID); ok && local.UpdatedAt.Equal(ev.Payload.Item.UpdatedAt) {
			return false
		}
	}
	return true
}
