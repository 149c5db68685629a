// Package realtime fans content events out to websocket subscribers, across
// server instances through Redis pub/sub.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"

	"newsdesk/internal/middleware"
	"newsdesk/internal/models"
	"newsdesk/internal/observability"

	"github.com/redis/go-redis/v9"
)

// EventsChannel is the Redis channel carrying every content event.
const EventsChannel = "content:events"

// Notifier publishes content events into Redis.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether events leave this process.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishEvent marshals ev and publishes it on EventsChannel.
func (n *Notifier) PublishEvent(ctx context.Context, ev models.ContentEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}
	return n.PublishBroadcast(ctx, string(payload))
}

// PublishBroadcast sends a raw payload to every subscribed instance.
func (n *Notifier) PublishBroadcast(ctx context.Context, payload string) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, EventsChannel, payload).Err()
}

// StartBroadcastSubscriber subscribes to EventsChannel and calls onMessage for
// each payload until ctx is cancelled.
func (n *Notifier) StartBroadcastSubscriber(ctx context.Context, onMessage func(payload string)) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, EventsChannel)
	// Wait for the subscription so publishes right after return are seen.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", EventsChannel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in broadcast subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// Publish delivers ev to subscribers: through Redis when available, so every
// instance (this one included) receives it once, otherwise straight to hub.
func Publish(ctx context.Context, n *Notifier, hub *Hub, ev models.ContentEvent) {
	observability.EventsPublished.WithLabelValues(ev.Type).Inc()

	if n.Enabled() {
		err := n.PublishEvent(ctx, ev)
		if err == nil {
			return
		}
		middleware.Logger.WarnContext(ctx, "failed to publish event, delivering locally",
			slog.String("event", ev.Type), slog.String("error", err.Error()))
	}
	if hub == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to marshal event",
			slog.String("event", ev.Type), slog.String("error", err.Error()))
		return
	}
	hub.BroadcastAll(string(payload))
}
