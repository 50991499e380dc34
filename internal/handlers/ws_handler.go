package handlers

import (
	"github.com/fileportal/server/internal/ws"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// UpgradeMiddleware rejects plain HTTP requests on websocket routes.
func UpgradeMiddleware(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// UploadSocketHandler registers the client's duplex connection under its
// upload id and holds it open until the client goes away. Events are pushed
// by the registry; the read loop only exists to observe the close.
func UploadSocketHandler(registry *ws.Registry) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		uploadID := conn.Params("upload_id")
		if uploadID == "" {
			conn.Close()
			return
		}

		registry.Register(uploadID, conn)
		defer registry.Unregister(uploadID)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
}
