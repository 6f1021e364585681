package model

// HistoryEntry is one persisted past detection.
type HistoryEntry struct {
	ID         int64   `json:"id"`
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	Timestamp  string  `json:"timestamp"` // time of day
	Date       string  `json:"date"`
}
