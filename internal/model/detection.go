package model

// DetectionResult is a successful single-shot detection.
type DetectionResult struct {
	Class          string  `json:"class"`
	Confidence     float64 `json:"confidence"`
	AboveThreshold bool    `json:"above_threshold"`
	ProcessingTime float64 `json:"processing_time"` // seconds
}

// CameraResult is a successful camera frame detection.
type CameraResult struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}
