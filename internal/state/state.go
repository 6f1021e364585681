// Package state holds the mutable application state shared by the
// intake, the upload flow and the view.
package state

import (
	"sync"

	"autodocvision/internal/model"
)

// AppState is safe for concurrent use.
type AppState struct {
	mu        sync.RWMutex
	selected  *model.SelectedImage
	selection uint64
	threshold int
	activeTab string
}

// New creates the state with the initial slider value and tab.
func New(threshold int, tab string) *AppState {
	return &AppState{
		threshold: clamp(threshold),
		activeTab: tab,
	}
}

// SetSelected replaces the selected image and returns its selection number.
func (s *AppState) SetSelected(img *model.SelectedImage) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = img
	s.selection++
	return s.selection
}

// Selected returns the current image, or nil.
func (s *AppState) Selected() *model.SelectedImage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// IsCurrent reports whether seq is still the latest selection.
func (s *AppState) IsCurrent(seq uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return seq == s.selection
}

// Threshold returns the confidence threshold in percent.
func (s *AppState) Threshold() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.threshold
}

// SetThreshold stores a percent value clamped to [0, 100] and returns it.
func (s *AppState) SetThreshold(percent int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threshold = clamp(percent)
	return s.threshold
}

func (s *AppState) ActiveTab() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeTab
}

func (s *AppState) SetActiveTab(tab string) {
	s.mu.Lock()
	s.activeTab = tab
	s.mu.Unlock()
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
