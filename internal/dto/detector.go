// Package dto holds the wire payloads exchanged with the remote detector and
// the browser.
package dto

import "autodocvision/internal/model"

// DetectResponse is the body of POST /api/detect.
type DetectResponse struct {
	Success        bool    `json:"success"`
	Class          string  `json:"class,omitempty"`
	Confidence     float64 `json:"confidence,omitempty"`
	AboveThreshold bool    `json:"above_threshold,omitempty"`
	ProcessingTime float64 `json:"processing_time,omitempty"`
	Error          string  `json:"error,omitempty"`
}

// Result converts a successful response into the domain result.
func (r *DetectResponse) Result() *model.DetectionResult {
	return &model.DetectionResult{
		Class:          r.Class,
		Confidence:     r.Confidence,
		AboveThreshold: r.AboveThreshold,
		ProcessingTime: r.ProcessingTime,
	}
}

// CameraFrameRequest is the body sent to POST /api/detect-camera.
type CameraFrameRequest struct {
	FrameData string `json:"frame_data"` // JPEG data URL
}

// CameraResponse is the body of POST /api/detect-camera.
type CameraResponse struct {
	Success    bool    `json:"success"`
	Class      string  `json:"class,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// Result converts a successful response into the domain result.
func (r *CameraResponse) Result() *model.CameraResult {
	return &model.CameraResult{Class: r.Class, Confidence: r.Confidence}
}

// ClassesResponse is the body of GET /api/classes.
type ClassesResponse struct {
	Success bool     `json:"success"`
	Classes []string `json:"classes"`
	Count   int      `json:"count"`
	Error   string   `json:"error,omitempty"`
}

// ModelInfoResponse is the body of GET /api/model-info.
type ModelInfoResponse struct {
	Success   bool                   `json:"success"`
	ModelInfo map[string]interface{} `json:"model_info,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	ModelLoaded bool   `json:"model_loaded"`
}
