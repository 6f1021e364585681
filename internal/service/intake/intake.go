// Package intake validates user supplied images and renders their preview.
package intake

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"autodocvision/internal/config"
	"autodocvision/internal/logger"
	"autodocvision/internal/model"
	"autodocvision/internal/state"
)

var (
	ErrInvalidType = errors.New("Por favor selecciona un archivo de imagen válido")
	ErrTooLarge    = errors.New("El archivo es demasiado grande (máximo 16MB)")
)

// Candidate is a file offered for selection, from an upload or a camera
// capture.
type Candidate struct {
	Name     string
	MIMEType string
	Data     []byte
}

// View is the part of the page the intake renders to.
type View interface {
	ShowPreview(dataURL string)
	ShowError(message string)
}

type Service struct {
	state  *state.AppState
	view   View
	logger *logger.Logger
}

func NewService(st *state.AppState, view View, logger *logger.Logger) *Service {
	return &Service{
		state:  st,
		view:   view,
		logger: logger,
	}
}

// Validate checks the candidate without touching any state.
func Validate(c Candidate) error {
	if !model.IsImageType(c.MIMEType) {
		return ErrInvalidType
	}
	if len(c.Data) > config.MaxUploadBytes {
		return ErrTooLarge
	}
	return nil
}

// Select validates c and makes it the current image. A rejected candidate
// is reported in the error panel and leaves the current selection alone.
// The preview is encoded in the background and dropped if another image was
// selected in the meantime.
func (s *Service) Select(ctx context.Context, c Candidate) error {
	if err := Validate(c); err != nil {
		s.logger.Warning("Rejected %q (%s, %d bytes): %v", c.Name, c.MIMEType, len(c.Data), err)
		s.view.ShowError(err.Error())
		return err
	}

	img := &model.SelectedImage{
		Name:     c.Name,
		MIMEType: c.MIMEType,
		Size:     int64(len(c.Data)),
		Data:     c.Data,
	}
	seq := s.state.SetSelected(img)
	s.logger.Info("Selected %q (%s, %d bytes)", img.Name, img.MIMEType, img.Size)

	go s.preview(seq, img)
	return nil
}

func (s *Service) preview(seq uint64, img *model.SelectedImage) {
	url := DataURL(img.MIMEType, img.Data)
	if !s.state.IsCurrent(seq) {
		return
	}
	s.view.ShowPreview(url)
}

// DataURL encodes data as a base64 data URL of the given MIME type.
func DataURL(mimeType string, data []byte) string {
	var b strings.Builder
	b.Grow(len("data:;base64,") + len(mimeType) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(mimeType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}
