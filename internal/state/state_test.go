package state

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"autodocvision/internal/model"
)

func TestAppState_Selection(t *testing.T) {
	s := New(70, "upload")
	assert.Nil(t, s.Selected())

	first := s.SetSelected(&model.SelectedImage{Name: "a.jpg"})
	assert.True(t, s.IsCurrent(first))

	second := s.SetSelected(&model.SelectedImage{Name: "b.jpg"})
	assert.False(t, s.IsCurrent(first))
	assert.True(t, s.IsCurrent(second))
	assert.Equal(t, "b.jpg", s.Selected().Name)
}

func TestAppState_ThresholdClamped(t *testing.T) {
	s := New(120, "upload")
	assert.Equal(t, 100, s.Threshold())

	assert.Equal(t, 0, s.SetThreshold(-3))
	assert.Equal(t, 85, s.SetThreshold(85))
	assert.Equal(t, 85, s.Threshold())
}

func TestAppState_ActiveTab(t *testing.T) {
	s := New(70, "upload")
	s.SetActiveTab("history")
	assert.Equal(t, "history", s.ActiveTab())
}
