package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"autodocvision/internal/logger"
	hub "autodocvision/internal/service/websocket"
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ViewWebsocketHandler registers the browser in the hub, which sends it the
// page snapshot and every later patch. Incoming messages are discarded.
func ViewWebsocketHandler(h *hub.HubService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		id := h.Register(connection)
		defer h.Unregister(connection)

		logger.Info("Viewer %s connected", id)

		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Viewer %s disconnected normally", id)
				} else {
					logger.Warning("Viewer %s disconnected with error: %v", id, err)
				}
				return
			}
		}
	}
}
