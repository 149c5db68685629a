package models

// Realtime event types broadcast to desk subscribers.
const (
	EventContentCreated     = "content_created"
	EventContentUpdated     = "content_updated"
	EventContentDeleted     = "content_deleted"
	EventListReordered      = "list_reordered"
	EventInteractionUpdated = "interaction_updated"
	// EventEventsDropped tells a lagging subscriber to resync every list.
	EventEventsDropped      = "events_dropped"
)

// ContentEvent is the envelope written to websocket subscribers and to the
// Redis broadcast channel.
type ContentEvent struct {
	Type    string       `json:"type"`
	Payload EventPayload `json:"payload"`
}

// EventPayload describes what changed. Item is set for create and update
// events; Version is the list version after the change.
type EventPayload struct {
	Resource string       `json:"resource"`
	ID       string       `json:"id,omitempty"`
	Version  int64        `json:"version,omitempty"`
	Item     *ContentItem `json:"item,omitempty"`
}
