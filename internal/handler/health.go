package handler

import (
	"net/http"

	"autodocvision/internal/dto"
	"autodocvision/internal/service"
	hub "autodocvision/internal/service/websocket"
)

// HealthzHandler reports local liveness, the camera state and the viewer count.
func HealthzHandler(manager *service.Manager, h *hub.HubService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, dto.HealthzResponse{
			Status:  "ok",
			Camera:  manager.CameraState().String(),
			Viewers: h.GetClientCount(),
		}, http.StatusOK)
	}
}
