package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/ordengo-kiosk/hub"
)

// HubHandler -> endpoint WebSocket for the UI shells on this device.
func HubHandler(h *hub.Hub, allowedOrigin string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || origin == allowedOrigin
		},
	}

	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		name := c.Query("client")
		if name == "" {
			name = c.Request.UserAgent()
		}
		h.Register(ws, name)

		// The shell never sends anything meaningful; reading only detects
		// the disconnect.
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		h.Unregister(ws)
	}
}
