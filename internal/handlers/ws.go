package handlers

import (
	"log/slog"

	"petreunite-chat/internal/models"
	"petreunite-chat/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// WebSocketHandler keeps a connection registered with the hub until the
// client goes away. Clients only receive; anything they send other than
// a ping is ignored.
func WebSocketHandler(hub *Hub) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		// Retrieve user info from locals (set by middleware)
		userID, _ := c.Locals("user_id").(models.ID)

		// Generate a unique ID for this connection
		connID := uuid.New().String()
		hub.Register(connID, userID, c)
		log := slog.With("conn_id", connID, "user_id", userID)
		log.Debug("websocket connected")

		defer func() {
			hub.Unregister(connID)
			c.Close()
			log.Debug("websocket disconnected")
		}()

		utils.LogError(hub.SendToConn(connID, map[string]string{
			"event":   "connected",
			"message": "Welcome to the chat server",
		}), "websocket welcome")

		for {
			msgType, msg, err := c.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Warn("websocket read failed", "error", err)
				}
				return
			}
			if msgType != websocket.TextMessage {
				continue
			}
			var in struct {
				Event string `json:"event"`
			}
			if err := utils.SafeJSONParse(msg, &in); err != nil {
				utils.LogError(err, "JSON Parse")
				continue
			}
			if in.Event == "ping" {
				utils.LogError(hub.SendToConn(connID, map[string]string{"event": "pong"}), "websocket pong")
			}
		}
	})
}

// WSUpgradeMiddleware upgrades the connection to WebSocket
func WSUpgradeMiddleware(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}
