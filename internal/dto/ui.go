package dto

import "autodocvision/internal/model"

// ErrorResponse is returned by the local UI endpoints on failure.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// StatusResponse is returned by the local UI endpoints on success.
type StatusResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status,omitempty"`
}

// ThresholdResponse is returned after the slider moved.
type ThresholdResponse struct {
	Success   bool `json:"success"`
	Threshold int  `json:"threshold"`
}

// DetectionResponse wraps a single-shot result for the browser.
type DetectionResponse struct {
	Success bool                   `json:"success"`
	Result  *model.DetectionResult `json:"result"`
}

// HistoryResponse lists the history entries, newest first.
type HistoryResponse struct {
	Success bool                 `json:"success"`
	Entries []model.HistoryEntry `json:"entries"`
	Count   int                  `json:"count"`
}

// HealthzResponse reports the local process state.
type HealthzResponse struct {
	Status  string `json:"status"`
	Camera  string `json:"camera"`
	Viewers int    `json:"viewers"`
}
