package server

import (
	"log/slog"

	"newsdesk/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RequireUpgrade rejects plain HTTP requests to the event stream. Browsers
// cannot set headers on a websocket handshake, so the viewer id may also come
// from the user_id query parameter.
func (s *Server) RequireUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if viewerID(c) == "" {
		if uid := c.Query("user_id"); uid != "" {
			c.Locals("userID", uid)
		}
	}
	return c.Next()
}

// EventsHandler streams content events to a desk. Subscribers only listen;
// anything they send besides control frames is discarded.
func (s *Server) EventsHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		uid, _ := conn.Locals("userID").(string)

		client, err := s.hub.Register(uid, conn)
		if err != nil {
			middleware.Logger.Warn("websocket register failed",
				slog.String("viewer_id", uid),
				slog.String("error", err.Error()),
			)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})
}
