package server

import (
	"context"

	"newsdesk/internal/models"
	"newsdesk/internal/realtime"
)

// publishContentEvent fans a change out to every desk subscriber. Viewer
// flags on item belong to the caller and are stripped before broadcast.
func (s *Server) publishContentEvent(eventType string, kind models.ContentKind, id string, version int64, item *models.ContentItem) {
	payload := models.EventPayload{
		Resource: kind.Resource(),
		ID:       id,
		Version:  version,
	}
	if item != nil {
		shared := *item
		shared.Liked, shared.Bookmarked, shared.Shared = false, false, false
		payload.Item = &shared
	}
	ctx := context.Background()
	if s.shutdownCtx != nil {
		ctx = s.shutdownCtx
	}
	realtime.Publish(ctx, s.notifier, s.hub, models.ContentEvent{Type: eventType, Payload: payload})
}
