// Package camera drives the live camera session: it owns the video device
// and runs the repeating capture-and-detect loop.
package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"sync"
	"time"

	"github.com/nfnt/resize"
	"golang.org/x/sync/semaphore"

	"autodocvision/internal/config"
	"autodocvision/internal/dto"
	"autodocvision/internal/logger"
	"autodocvision/internal/metrics"
	"autodocvision/internal/model"
	"autodocvision/internal/service/intake"
)

// CaptureName and CaptureMIMEType label stills taken from the live camera.
const (
	CaptureName     = "camera-capture.jpg"
	CaptureMIMEType = "image/jpeg"

	readyPoll = 20 * time.Millisecond
)

var (
	// ErrAccess wraps every failure to start the camera.
	ErrAccess = errors.New("camera access failed")
	// ErrNotActive is returned by Capture outside an active session.
	ErrNotActive = errors.New("camera is not active")
)

type State int

const (
	Idle State = iota
	Starting
	Active
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Active:
		return "active"
	default:
		return "idle"
	}
}

// FrameDetector sends one frame for detection.
type FrameDetector interface {
	Frame(ctx context.Context, dataURL string) (*dto.CameraResponse, error)
}

// Selector receives captured stills.
type Selector interface {
	Select(ctx context.Context, c intake.Candidate) error
}

// View is the part of the page the camera renders to.
type View interface {
	ShowCameraFrame(dataURL string)
	HideCameraFrame()
	ShowCameraResult(r *model.CameraResult)
	SetCameraControls(active bool)
	ShowError(message string)
}

type Options struct {
	Interval     time.Duration
	StartTimeout time.Duration
	// SingleFlight skips an iteration while the previous frame is still
	// being detected. Without it requests may overlap.
	SingleFlight bool
	MaxWidth     int
	JPEGQuality  int
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Interval:     cfg.CameraInterval,
		StartTimeout: cfg.CameraStartTimeout,
		SingleFlight: cfg.CameraSingleFlight,
		MaxWidth:     cfg.CameraMaxWidth,
		JPEGQuality:  cfg.JPEGQuality,
	}
}

type Controller struct {
	open     Opener
	frames   FrameDetector
	selector Selector
	view     View
	opts     Options
	logger   *logger.Logger
	metrics  *metrics.Metrics
	inflight *semaphore.Weighted

	mu       sync.Mutex
	state    State
	attempt  uint64
	device   Device
	stop     chan struct{}
	loopDone chan struct{}

	// readMu serializes device reads between the loop, Capture and Close.
	readMu sync.Mutex
	wg     sync.WaitGroup
}

// NewController creates an idle controller. m may be nil.
func NewController(open Opener, frames FrameDetector, selector Selector, view View, opts Options, logger *logger.Logger, m *metrics.Metrics) *Controller {
	if opts.Interval <= 0 {
		opts.Interval = 500 * time.Millisecond
	}
	if opts.StartTimeout <= 0 {
		opts.StartTimeout = 5 * time.Second
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = jpeg.DefaultQuality
	}
	return &Controller{
		open:     open,
		frames:   frames,
		selector: selector,
		view:     view,
		opts:     opts,
		logger:   logger,
		metrics:  m,
		inflight: semaphore.NewWeighted(1),
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start opens the device and begins the detection loop. It is a no-op
// unless the camera is idle. On failure the access error is rendered and the
// camera stays idle.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Idle {
		c.mu.Unlock()
		return nil
	}
	c.state = Starting
	c.attempt++
	attempt := c.attempt
	c.mu.Unlock()

	dev, err := c.open(ctx)
	if err != nil {
		return c.fail(attempt, err)
	}
	if err := c.waitReady(ctx, dev); err != nil {
		dev.Close()
		return c.fail(attempt, err)
	}

	c.mu.Lock()
	if c.state != Starting || c.attempt != attempt {
		// stopped or superseded while starting
		c.mu.Unlock()
		dev.Close()
		return nil
	}
	c.state = Active
	c.device = dev
	c.stop = make(chan struct{})
	c.loopDone = make(chan struct{})
	stop, done := c.stop, c.loopDone
	c.mu.Unlock()

	w, h := dev.Dimensions()
	c.logger.Info("📷 Camera started (%dx%d, every %v, single-flight=%t)", w, h, c.opts.Interval, c.opts.SingleFlight)
	c.view.SetCameraControls(true)

	go c.loop(context.WithoutCancel(ctx), dev, stop, done)
	return nil
}

// fail resets the state only while attempt is still the one starting. A
// start that was already stopped or superseded fails silently.
func (c *Controller) fail(attempt uint64, cause error) error {
	c.mu.Lock()
	current := c.state == Starting && c.attempt == attempt
	if current {
		c.state = Idle
	}
	c.mu.Unlock()

	c.logger.Error("Camera access failed: %v", cause)
	if current {
		c.view.ShowError(fmt.Sprintf("No se pudo acceder a la cámara: %v", cause))
	}
	return fmt.Errorf("%w: %v", ErrAccess, cause)
}

func (c *Controller) waitReady(ctx context.Context, dev Device) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.StartTimeout)
	defer cancel()

	ticker := time.NewTicker(readyPoll)
	defer ticker.Stop()
	for {
		if w, h := dev.Dimensions(); w > 0 && h > 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("video stream not ready: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Stop ends the session and releases the device. Frames already sent are
// not cancelled. Stop is idempotent.
func (c *Controller) Stop() {
	c.mu.Lock()
	switch c.state {
	case Idle:
		c.mu.Unlock()
		return
	case Starting:
		c.state = Idle
		c.mu.Unlock()
		c.view.SetCameraControls(false)
		return
	}
	close(c.stop)
	dev, done := c.device, c.loopDone
	c.device = nil
	c.state = Idle
	c.mu.Unlock()

	<-done
	c.readMu.Lock()
	if err := dev.Close(); err != nil {
		c.logger.Warning("Error closing camera: %v", err)
	}
	c.readMu.Unlock()

	c.view.HideCameraFrame()
	c.view.SetCameraControls(false)
	c.logger.Info("📷 Camera stopped")
}

// Wait blocks until every dispatched frame request has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Capture takes one still from the live camera and selects it as the image
// for single-shot detection.
func (c *Controller) Capture(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Active {
		c.mu.Unlock()
		return ErrNotActive
	}
	img, err := c.read(c.device)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("capture frame: %w", err)
	}
	data, err := c.encode(img, 0)
	if err != nil {
		return fmt.Errorf("encode capture: %w", err)
	}
	return c.selector.Select(ctx, intake.Candidate{Name: CaptureName, MIMEType: CaptureMIMEType, Data: data})
}

func (c *Controller) loop(ctx context.Context, dev Device, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-stop:
			return
		case <-timer.C:
		}

		c.tick(ctx, dev)
		timer.Reset(c.opts.Interval)
	}
}

func (c *Controller) tick(ctx context.Context, dev Device) {
	if c.opts.SingleFlight && !c.inflight.TryAcquire(1) {
		c.countFrame(metrics.FrameSkipped)
		return
	}
	release := func() {
		if c.opts.SingleFlight {
			c.inflight.Release(1)
		}
	}

	img, err := c.read(dev)
	if err != nil {
		release()
		c.countFrame(metrics.FrameFailed)
		c.logger.Warning("Error reading camera frame: %v", err)
		return
	}
	data, err := c.encode(img, c.opts.MaxWidth)
	if err != nil {
		release()
		c.countFrame(metrics.FrameFailed)
		c.logger.Error("Error encoding camera frame: %v", err)
		return
	}

	dataURL := intake.DataURL(CaptureMIMEType, data)
	c.view.ShowCameraFrame(dataURL)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer release()
		c.detect(ctx, dataURL)
	}()
}

func (c *Controller) detect(ctx context.Context, dataURL string) {
	resp, err := c.frames.Frame(ctx, dataURL)
	if err != nil {
		c.countFrame(metrics.FrameFailed)
		c.logger.Error("Camera frame detection failed: %v", err)
		return
	}
	c.countFrame(metrics.FrameSent)
	if !resp.Success {
		return
	}
	c.view.ShowCameraResult(resp.Result())
}

func (c *Controller) read(dev Device) (image.Image, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()
	return dev.Read()
}

// encode renders img as JPEG, downscaled to maxWidth when it is wider.
func (c *Controller) encode(img image.Image, maxWidth int) ([]byte, error) {
	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		img = resize.Resize(uint(maxWidth), 0, img, resize.Bilinear)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: c.opts.JPEGQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Controller) countFrame(outcome string) {
	if c.metrics != nil {
		c.metrics.CameraFrames.WithLabelValues(outcome).Inc()
	}
}
