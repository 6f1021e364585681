package service

import (
	"context"
	"errors"

	"autodocvision/internal/logger"
	"autodocvision/internal/model"
	"autodocvision/internal/service/camera"
	"autodocvision/internal/service/detect"
	"autodocvision/internal/service/history"
	"autodocvision/internal/service/intake"
	"autodocvision/internal/service/view"
	"autodocvision/internal/state"
)

// ErrNoImage is returned by Upload when nothing has been selected yet.
var ErrNoImage = errors.New("Por favor selecciona una imagen primero")

const connectionErrorPrefix = "Error de conexión: "

// Manager ties the intake, the detection client, the camera, the history
// and the view together. Handlers only talk to the Manager.
type Manager struct {
	state    *state.AppState
	view     *view.Controller
	intake   *intake.Service
	detector *detect.Client
	history  *history.Store
	camera   *camera.Controller
	logger   *logger.Logger
}

func NewManager(st *state.AppState, v *view.Controller, in *intake.Service, detector *detect.Client, store *history.Store, cam *camera.Controller, logger *logger.Logger) *Manager {
	m := &Manager{
		state:    st,
		view:     v,
		intake:   in,
		detector: detector,
		history:  store,
		camera:   cam,
		logger:   logger,
	}

	v.OnTab(view.TabHistory, store.Render)
	v.SetThreshold(st.Threshold())
	return m
}

// Select offers a new image to the intake.
func (m *Manager) Select(ctx context.Context, c intake.Candidate) error {
	return m.intake.Select(ctx, c)
}

// ReportError shows err in the error panel. Handlers use it for failures
// that never reach a service, such as a request body over the limit.
func (m *Manager) ReportError(err error) {
	m.logger.Warning("Request rejected: %v", err)
	m.view.ShowError(err.Error())
}

// Upload runs single-shot detection on the selected image. The loader is
// visible for the duration of the call and hidden on every exit path.
func (m *Manager) Upload(ctx context.Context) (*model.DetectionResult, error) {
	img := m.state.Selected()
	if img == nil {
		m.view.ShowError(ErrNoImage.Error())
		return nil, ErrNoImage
	}

	release := m.view.BeginLoading()
	defer release()

	result, err := m.detector.Upload(ctx, img, m.state.Threshold())
	if err != nil {
		var appErr *detect.AppError
		if errors.As(err, &appErr) {
			m.logger.Warning("Detection rejected %q: %s", img.Name, appErr.Message)
			m.view.ShowError(appErr.Message)
		} else {
			m.logger.Error("Detection request for %q failed: %v", img.Name, err)
			m.view.ShowError(connectionErrorPrefix + err.Error())
		}
		return nil, err
	}

	m.logger.Info("🔍 %q detected as %s (%.2f)", img.Name, result.Class, result.Confidence)
	m.view.ShowResult(result)
	if _, err := m.history.Record(ctx, result); err != nil {
		m.logger.Error("Error saving history: %v", err)
	}
	return result, nil
}

// SetThreshold stores the slider value and updates its label.
func (m *Manager) SetThreshold(percent int) int {
	v := m.state.SetThreshold(percent)
	m.view.SetThreshold(v)
	return v
}

// SwitchTab activates tab.
func (m *Manager) SwitchTab(tab string) error {
	if err := m.view.SwitchTab(tab); err != nil {
		return err
	}
	m.state.SetActiveTab(tab)
	return nil
}

func (m *Manager) StartCamera(ctx context.Context) error {
	return m.camera.Start(ctx)
}

func (m *Manager) StopCamera() {
	m.camera.Stop()
}

func (m *Manager) CaptureFrame(ctx context.Context) error {
	return m.camera.Capture(ctx)
}

func (m *Manager) CameraState() camera.State {
	return m.camera.State()
}

func (m *Manager) History() []model.HistoryEntry {
	return m.history.Entries()
}

// ClearHistory clears the history when the user confirmed the prompt.
func (m *Manager) ClearHistory(ctx context.Context, confirmed bool) (bool, error) {
	return m.history.Clear(ctx, func(prompt string) bool {
		if !confirmed {
			m.logger.Info("History clear not confirmed (%s)", prompt)
		}
		return confirmed
	})
}

func (m *Manager) Classes(ctx context.Context) ([]string, error) {
	return m.detector.Classes(ctx)
}

func (m *Manager) ModelInfo(ctx context.Context) (map[string]interface{}, error) {
	return m.detector.ModelInfo(ctx)
}

// Stop releases the camera and waits for frames still in flight.
func (m *Manager) Stop() {
	m.camera.Stop()
	m.camera.Wait()
	m.logger.Info("🛑 Manager stopped")
}
