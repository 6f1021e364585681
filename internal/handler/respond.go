package handler

import (
	"encoding/json"
	"net/http"

	"autodocvision/internal/dto"
)

func respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, dto.ErrorResponse{Success: false, Error: message}, status)
}

func respondStatus(w http.ResponseWriter, status string) {
	respondJSON(w, dto.StatusResponse{Success: true, Status: status}, http.StatusOK)
}
