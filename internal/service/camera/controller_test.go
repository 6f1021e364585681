package camera

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/jpeg"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autodocvision/internal/dto"
	"autodocvision/internal/logger"
	"autodocvision/internal/metrics"
	"autodocvision/internal/model"
	"autodocvision/internal/service/intake"
)

type fakeDevice struct {
	width, height int
	reads         atomic.Int32
	closed        atomic.Bool
}

func (d *fakeDevice) Dimensions() (int, int) { return d.width, d.height }

func (d *fakeDevice) Read() (image.Image, error) {
	if d.closed.Load() {
		return nil, errors.New("closed")
	}
	d.reads.Add(1)
	return image.NewRGBA(image.Rect(0, 0, d.width, d.height)), nil
}

func (d *fakeDevice) Close() error {
	d.closed.Store(true)
	return nil
}

type fakeDetector struct {
	fn    func(dataURL string) (*dto.CameraResponse, error)
	calls atomic.Int32
}

func (f *fakeDetector) Frame(ctx context.Context, dataURL string) (*dto.CameraResponse, error) {
	f.calls.Add(1)
	return f.fn(dataURL)
}

type fakeView struct {
	mu       sync.Mutex
	frame    string
	frames   int
	results  []model.CameraResult
	controls []bool
	errors   []string
}

func (v *fakeView) ShowCameraFrame(dataURL string) {
	v.mu.Lock()
	v.frame = dataURL
	v.frames++
	v.mu.Unlock()
}

func (v *fakeView) HideCameraFrame() {
	v.mu.Lock()
	v.frame = ""
	v.mu.Unlock()
}

func (v *fakeView) preview() (frame string, frames int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frame, v.frames
}

func (v *fakeView) ShowCameraResult(r *model.CameraResult) {
	v.mu.Lock()
	v.results = append(v.results, *r)
	v.mu.Unlock()
}

func (v *fakeView) SetCameraControls(active bool) {
	v.mu.Lock()
	v.controls = append(v.controls, active)
	v.mu.Unlock()
}

func (v *fakeView) ShowError(message string) {
	v.mu.Lock()
	v.errors = append(v.errors, message)
	v.mu.Unlock()
}

func (v *fakeView) get() (results []model.CameraResult, controls []bool, errs []string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]model.CameraResult(nil), v.results...), append([]bool(nil), v.controls...), append([]string(nil), v.errors...)
}

type fakeSelector struct {
	mu     sync.Mutex
	picked []intake.Candidate
}

func (s *fakeSelector) Select(ctx context.Context, c intake.Candidate) error {
	s.mu.Lock()
	s.picked = append(s.picked, c)
	s.mu.Unlock()
	return nil
}

func opener(dev Device) Opener {
	return func(ctx context.Context) (Device, error) { return dev, nil }
}

func testOptions() Options {
	return Options{Interval: 5 * time.Millisecond, StartTimeout: 100 * time.Millisecond, JPEGQuality: 80}
}

func succeed(dataURL string) (*dto.CameraResponse, error) {
	return &dto.CameraResponse{Success: true, Class: "soat", Confidence: 0.8123}, nil
}

func TestStartStop(t *testing.T) {
	dev := &fakeDevice{width: 64, height: 48}
	det := &fakeDetector{fn: succeed}
	view := &fakeView{}
	c := NewController(opener(dev), det, &fakeSelector{}, view, testOptions(), logger.NewNop(), nil)

	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, Active, c.State())

	assert.Eventually(t, func() bool { return det.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)

	c.Stop()
	c.Wait()
	assert.Equal(t, Idle, c.State())
	assert.True(t, dev.closed.Load())

	results, controls, errs := view.get()
	assert.NotEmpty(t, results)
	assert.Equal(t, model.CameraResult{Class: "soat", Confidence: 0.8123}, results[0])
	assert.Equal(t, []bool{true, false}, controls)
	assert.Empty(t, errs)

	// no new iterations after stop
	calls := det.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, det.calls.Load())

	c.Stop()
	_, controls, _ = view.get()
	assert.Len(t, controls, 2, "second stop is a no-op")
}

func TestLoop_PushesPreviewFrames(t *testing.T) {
	view := &fakeView{}
	det := &fakeDetector{fn: succeed}
	c := NewController(opener(&fakeDevice{width: 64, height: 48}), det, &fakeSelector{}, view, testOptions(), logger.NewNop(), nil)

	require.NoError(t, c.Start(context.Background()))
	require.Eventually(t, func() bool {
		_, frames := view.preview()
		return frames >= 1
	}, 2*time.Second, 5*time.Millisecond)

	frame, _ := view.preview()
	require.True(t, strings.HasPrefix(frame, "data:image/jpeg;base64,"))
	_, err := jpeg.Decode(base64.NewDecoder(base64.StdEncoding, strings.NewReader(strings.TrimPrefix(frame, "data:image/jpeg;base64,"))))
	require.NoError(t, err)

	c.Stop()
	c.Wait()
	frame, frames := view.preview()
	assert.Empty(t, frame, "stop hides the preview")

	time.Sleep(30 * time.Millisecond)
	_, after := view.preview()
	assert.Equal(t, frames, after, "no frames after stop")
}

func TestStart_StaleFailureKeepsNewerSession(t *testing.T) {
	gate := make(chan struct{})
	dev := &fakeDevice{width: 32, height: 32}
	var opens atomic.Int32
	open := func(ctx context.Context) (Device, error) {
		if opens.Add(1) == 1 {
			<-gate
			return nil, errors.New("permission denied")
		}
		return dev, nil
	}
	view := &fakeView{}
	c := NewController(open, &fakeDetector{fn: succeed}, &fakeSelector{}, view, testOptions(), logger.NewNop(), nil)

	first := make(chan error, 1)
	go func() { first <- c.Start(context.Background()) }()
	require.Eventually(t, func() bool { return opens.Load() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, Starting, c.State())

	c.Stop()
	assert.Equal(t, Idle, c.State())
	_, controls, _ := view.get()
	assert.Equal(t, []bool{false}, controls, "stop while starting resets the controls")

	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, Active, c.State())

	close(gate)
	assert.ErrorIs(t, <-first, ErrAccess)
	assert.Equal(t, Active, c.State())
	_, _, errs := view.get()
	assert.Empty(t, errs)

	c.Stop()
	c.Wait()
	assert.True(t, dev.closed.Load())
}

func TestStart_WhileActiveIsNoop(t *testing.T) {
	opens := 0
	dev := &fakeDevice{width: 64, height: 48}
	open := func(ctx context.Context) (Device, error) {
		opens++
		return dev, nil
	}
	c := NewController(open, &fakeDetector{fn: succeed}, &fakeSelector{}, &fakeView{}, testOptions(), logger.NewNop(), nil)

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, 1, opens)

	c.Stop()
	c.Wait()
}

func TestStart_AccessDenied(t *testing.T) {
	view := &fakeView{}
	open := func(ctx context.Context) (Device, error) { return nil, errors.New("permission denied") }
	c := NewController(open, &fakeDetector{fn: succeed}, &fakeSelector{}, view, testOptions(), logger.NewNop(), nil)

	err := c.Start(context.Background())
	assert.ErrorIs(t, err, ErrAccess)
	assert.Equal(t, Idle, c.State())

	_, controls, errs := view.get()
	assert.Empty(t, controls)
	assert.Equal(t, []string{"No se pudo acceder a la cámara: permission denied"}, errs)
}

func TestStart_StreamNeverReady(t *testing.T) {
	dev := &fakeDevice{}
	view := &fakeView{}
	c := NewController(opener(dev), &fakeDetector{fn: succeed}, &fakeSelector{}, view, testOptions(), logger.NewNop(), nil)

	err := c.Start(context.Background())
	assert.ErrorIs(t, err, ErrAccess)
	assert.Equal(t, Idle, c.State())
	assert.True(t, dev.closed.Load())

	_, _, errs := view.get()
	require.Len(t, errs, 1)
	assert.True(t, strings.HasPrefix(errs[0], "No se pudo acceder a la cámara: "))
}

func TestLoop_IgnoresFailures(t *testing.T) {
	var n atomic.Int32
	det := &fakeDetector{fn: func(string) (*dto.CameraResponse, error) {
		if n.Add(1)%2 == 0 {
			return nil, errors.New("connection refused")
		}
		return &dto.CameraResponse{Success: false}, nil
	}}
	view := &fakeView{}
	m := metrics.New()
	c := NewController(opener(&fakeDevice{width: 32, height: 32}), det, &fakeSelector{}, view, testOptions(), logger.NewNop(), m)

	require.NoError(t, c.Start(context.Background()))
	assert.Eventually(t, func() bool { return det.calls.Load() >= 4 }, 2*time.Second, 5*time.Millisecond)
	c.Stop()
	c.Wait()

	results, _, errs := view.get()
	assert.Empty(t, results)
	assert.Empty(t, errs)
	assert.Greater(t, testutil.ToFloat64(m.CameraFrames.WithLabelValues(metrics.FrameFailed)), 0.0)
	assert.Greater(t, testutil.ToFloat64(m.CameraFrames.WithLabelValues(metrics.FrameSent)), 0.0)
}

// blockingDetector holds every request until release is closed.
func blockingDetector(release <-chan struct{}, inflight, peak *atomic.Int32) *fakeDetector {
	return &fakeDetector{fn: func(string) (*dto.CameraResponse, error) {
		cur := inflight.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		<-release
		inflight.Add(-1)
		return &dto.CameraResponse{Success: true, Class: "soat", Confidence: 0.9}, nil
	}}
}

func TestLoop_AllowsOverlapByDefault(t *testing.T) {
	release := make(chan struct{})
	var inflight, peak atomic.Int32
	det := blockingDetector(release, &inflight, &peak)
	c := NewController(opener(&fakeDevice{width: 32, height: 32}), det, &fakeSelector{}, &fakeView{}, testOptions(), logger.NewNop(), nil)

	require.NoError(t, c.Start(context.Background()))
	assert.Eventually(t, func() bool { return peak.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	c.Stop()
	close(release)
	c.Wait()
}

func TestLoop_SingleFlightSkipsBusyIterations(t *testing.T) {
	release := make(chan struct{})
	var inflight, peak atomic.Int32
	det := blockingDetector(release, &inflight, &peak)
	opts := testOptions()
	opts.SingleFlight = true
	m := metrics.New()
	c := NewController(opener(&fakeDevice{width: 32, height: 32}), det, &fakeSelector{}, &fakeView{}, opts, logger.NewNop(), m)

	require.NoError(t, c.Start(context.Background()))
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(m.CameraFrames.WithLabelValues(metrics.FrameSkipped)) >= 3
	}, 2*time.Second, 5*time.Millisecond)

	c.Stop()
	close(release)
	c.Wait()
	assert.Equal(t, int32(1), peak.Load())
	assert.Equal(t, int32(1), det.calls.Load())
}

func TestCapture_RoutesThroughIntake(t *testing.T) {
	sel := &fakeSelector{}
	c := NewController(opener(&fakeDevice{width: 64, height: 48}), &fakeDetector{fn: succeed}, sel, &fakeView{}, testOptions(), logger.NewNop(), nil)

	assert.ErrorIs(t, c.Capture(context.Background()), ErrNotActive)

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Capture(context.Background()))
	c.Stop()
	c.Wait()

	sel.mu.Lock()
	defer sel.mu.Unlock()
	require.Len(t, sel.picked, 1)
	picked := sel.picked[0]
	assert.Equal(t, "camera-capture.jpg", picked.Name)
	assert.Equal(t, "image/jpeg", picked.MIMEType)

	img, err := jpeg.Decode(bytes.NewReader(picked.Data))
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx(), "captures keep native resolution")
}

func TestEncode_Downscales(t *testing.T) {
	c := NewController(nil, nil, nil, nil, Options{}, logger.NewNop(), nil)

	data, err := c.encode(image.NewRGBA(image.Rect(0, 0, 64, 48)), 32)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 24, img.Bounds().Dy())
}
