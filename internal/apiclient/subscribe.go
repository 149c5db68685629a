package apiclient

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"newsdesk/internal/models"

	"github.com/gorilla/websocket"
)

const handshakeTimeout = 5 * time.Second

// Subscribe opens the server's event stream. Events arrive on the returned
// channel until ctx is cancelled or the connection drops; the channel is
// closed either way. Frames that do not decode are skipped.
func (c *Client) Subscribe(ctx context.Context) (<-chan models.ContentEvent, error) {
	wsURL := *c.baseURL
	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}
	wsURL.Path = "/api/ws"

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, wsURL.String(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, classifyTransport(ctx, "subscribe", err)
	}

	events := make(chan models.ContentEvent, 32)
	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
		}
	}()

	go func() {
		defer close(events)
		defer close(done)
		defer func() { _ = conn.Close() }()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.logger.WarnContext(ctx, "event stream closed", slog.String("error", err.Error()))
				}
				return
			}
			var ev models.ContentEvent
			if err := json.Unmarshal(data, &ev); err != nil || ev.Type == "" {
				c.logger.DebugContext(ctx, "skipping malformed event", slog.Int("bytes", len(data)))
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}
