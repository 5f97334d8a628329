package server

import (
	"log/slog"

	"socially/internal/featureflags"
	"socially/internal/middleware"
	"socially/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebsocketHandler upgrades GET /api/ws and streams the user's realtime
// notification events. Must run after Authenticated.
func (s *Server) WebsocketHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals(userIDLocalsKey).(string)
		if userID == "" {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("websocket registration rejected",
				slog.String("user_id", userID), slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})

	return func(c *fiber.Ctx) error {
		if !s.flags.Enabled(featureflags.Realtime, currentUserID(c)) {
			return models.RespondWithAppError(c, &models.AppError{Code: models.CodeNotFound, Message: "Realtime notifications are not enabled"})
		}
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return upgrade(c)
	}
}
