// Package view renders application state into a server-side mirror of the
// page and streams the resulting patches to the browser.
package view

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"autodocvision/internal/logger"
	"autodocvision/internal/model"
)

const (
	activeClass = "active"
	// maxOutbox bounds queued messages while no pump is draining them.
	maxOutbox = 4096
)

// Sink receives encoded view messages.
type Sink interface {
	Broadcast(message []byte)
}

type message struct {
	Type     string                  `json:"type"`
	Patches  []Patch                 `json:"patches,omitempty"`
	Elements map[string]ElementState `json:"elements,omitempty"`
}

// Controller owns the page mirror. All methods are safe for concurrent use.
// Mutations never block on the sink: encoded patches are queued and
// delivered in order by Run.
type Controller struct {
	mu       sync.Mutex
	bindings Bindings
	doc      document
	sink     Sink
	outbox   [][]byte
	wake     chan struct{}
	logger   *logger.Logger
	hooks    map[string][]func()
}

// NewController builds the initial page: upload tab active, panels hidden.
func NewController(b Bindings, logger *logger.Logger) *Controller {
	c := &Controller{
		bindings: b,
		doc:      make(document),
		wake:     make(chan struct{}, 1),
		logger:   logger,
		hooks:    make(map[string][]func()),
	}

	var initial []Patch
	for _, el := range []Element{PreviewSection, ResultSection, ErrorSection, Loader, CameraPreview, CameraResultSection, StopCameraButton, CaptureButton} {
		initial = append(initial, c.display(el, DisplayNone))
	}
	initial = append(initial, c.display(StartCameraButton, DisplayBlock))
	initial = append(initial, c.tabPatches(b.TabOrder[0])...)
	for _, p := range initial {
		c.doc.apply(p)
	}
	return c
}

// SetSink attaches the message sink. Patches produced earlier are part of
// the snapshot and are not queued.
func (c *Controller) SetSink(s Sink) {
	c.mu.Lock()
	c.sink = s
	c.mu.Unlock()
}

// Run delivers queued patches to the sink until ctx is done.
func (c *Controller) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.wake:
		}

		c.mu.Lock()
		pending, sink := c.outbox, c.sink
		c.outbox = nil
		c.mu.Unlock()
		if sink == nil {
			continue
		}

		for _, data := range pending {
			sink.Broadcast(data)
		}
	}
}

// OnTab registers fn to run whenever tab becomes active.
func (c *Controller) OnTab(tab string, fn func()) {
	c.mu.Lock()
	c.hooks[tab] = append(c.hooks[tab], fn)
	c.mu.Unlock()
}

// Snapshot encodes the whole page mirror.
func (c *Controller) Snapshot() []byte {
	c.mu.Lock()
	msg := message{Type: "snapshot", Elements: c.doc.snapshot()}
	c.mu.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("Error encoding view snapshot: %v", err)
		return []byte(`{"type":"snapshot"}`)
	}
	return data
}

// State returns a copy of the mirrored element.
func (c *Controller) State(el Element) ElementState {
	return c.stateByID(c.bindings.ID(el))
}

// TabState returns the mirrored content pane and button of a tab.
func (c *Controller) TabState(tab string) (content, button ElementState) {
	tb := c.bindings.Tabs[tab]
	return c.stateByID(tb.Content), c.stateByID(tb.Button)
}

func (c *Controller) stateByID(id string) ElementState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.doc[id]; ok {
		return el.clone()
	}
	return ElementState{}
}

// SwitchTab activates exactly one tab and runs its hooks.
func (c *Controller) SwitchTab(tab string) error {
	if _, ok := c.bindings.Tabs[tab]; !ok {
		return fmt.Errorf("unknown tab %q", tab)
	}

	c.mu.Lock()
	c.commit(c.tabPatches(tab))
	hooks := append([]func(){}, c.hooks[tab]...)
	c.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	return nil
}

// ShowPreview shows the chosen image and hides stale result and error panels.
func (c *Controller) ShowPreview(dataURL string) {
	c.apply(
		Patch{ID: c.bindings.ID(PreviewImage), Op: OpSrc, Value: dataURL},
		c.display(PreviewSection, DisplayBlock),
		c.display(ResultSection, DisplayNone),
		c.display(ErrorSection, DisplayNone),
	)
}

// ShowResult renders a detection result and hides the error panel.
func (c *Controller) ShowResult(r *model.DetectionResult) {
	percent := r.Confidence * 100
	bar := c.bindings.ID(ConfidenceBar)

	c.apply(
		c.text(ResultClass, r.Class),
		c.text(ResultConfidence, Percent(r.Confidence)),
		c.text(ResultStatus, Status(r)),
		c.text(ResultTime, Millis(r.ProcessingTime)),
		Patch{ID: bar, Op: OpStyle, Key: "width", Value: barWidth(percent)},
		Patch{ID: bar, Op: OpStyle, Key: "background", Value: BarColor(percent)},
		Patch{ID: bar, Op: OpText, Value: fmt.Sprintf("%.1f%%", percent)},
		c.display(ErrorSection, DisplayNone),
		c.display(ResultSection, DisplayBlock),
	)
}

// ShowError shows message in the error panel, displacing any result.
func (c *Controller) ShowError(message string) {
	c.apply(
		c.text(ErrorMessage, message),
		c.display(ErrorSection, DisplayBlock),
		c.display(ResultSection, DisplayNone),
	)
}

// SetLoader shows or hides the loading overlay.
func (c *Controller) SetLoader(show bool) {
	v := DisplayNone
	if show {
		v = DisplayFlex
	}
	c.apply(c.display(Loader, v))
}

// BeginLoading shows the loader and returns the func that hides it again.
// The returned func is safe to call more than once.
func (c *Controller) BeginLoading() (release func()) {
	c.SetLoader(true)
	var once sync.Once
	return func() {
		once.Do(func() { c.SetLoader(false) })
	}
}

// ShowCameraResult updates the live camera result panel.
func (c *Controller) ShowCameraResult(r *model.CameraResult) {
	c.apply(
		c.text(CameraResultClass, r.Class),
		c.text(CameraResultConfidence, Percent(r.Confidence)),
		c.display(CameraResultSection, DisplayBlock),
	)
}

// ShowCameraFrame shows the latest live camera frame.
func (c *Controller) ShowCameraFrame(dataURL string) {
	c.apply(
		Patch{ID: c.bindings.ID(CameraPreview), Op: OpSrc, Value: dataURL},
		c.display(CameraPreview, DisplayBlock),
	)
}

// HideCameraFrame hides the live preview and drops the last frame.
func (c *Controller) HideCameraFrame() {
	c.apply(
		c.display(CameraPreview, DisplayNone),
		Patch{ID: c.bindings.ID(CameraPreview), Op: OpSrc, Value: ""},
	)
}

// SetCameraControls toggles start/stop/capture visibility.
func (c *Controller) SetCameraControls(active bool) {
	on, off := DisplayBlock, DisplayNone
	if active {
		on, off = off, on
	}
	c.apply(
		c.display(StartCameraButton, on),
		c.display(StopCameraButton, off),
		c.display(CaptureButton, off),
	)
}

// SetThreshold updates the slider position and its label.
func (c *Controller) SetThreshold(percent int) {
	c.apply(
		Patch{ID: c.bindings.ID(ThresholdSlider), Op: OpValue, Value: strconv.Itoa(percent)},
		c.text(ThresholdValue, fmt.Sprintf("%d%%", percent)),
	)
}

// SetHistoryHTML replaces the history list markup.
func (c *Controller) SetHistoryHTML(html string) {
	c.apply(Patch{ID: c.bindings.ID(HistoryContainer), Op: OpHTML, Value: html})
}

func (c *Controller) tabPatches(active string) []Patch {
	patches := make([]Patch, 0, 2*len(c.bindings.TabOrder))
	for _, name := range c.bindings.TabOrder {
		tb := c.bindings.Tabs[name]
		op := OpRemoveClass
		if name == active {
			op = OpAddClass
		}
		patches = append(patches,
			Patch{ID: tb.Content, Op: op, Value: activeClass},
			Patch{ID: tb.Button, Op: op, Value: activeClass},
		)
	}
	return patches
}

func (c *Controller) text(el Element, v string) Patch {
	return Patch{ID: c.bindings.ID(el), Op: OpText, Value: v}
}

func (c *Controller) display(el Element, v string) Patch {
	return Patch{ID: c.bindings.ID(el), Op: OpDisplay, Value: v}
}

func (c *Controller) apply(patches ...Patch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commit(patches)
}

// commit must be called with c.mu held.
func (c *Controller) commit(patches []Patch) {
	for _, p := range patches {
		c.doc.apply(p)
	}
	if c.sink == nil {
		return
	}

	data, err := json.Marshal(message{Type: "patch", Patches: patches})
	if err != nil {
		c.logger.Error("Error encoding view patch: %v", err)
		return
	}
	if len(c.outbox) >= maxOutbox {
		c.logger.Warning("View outbox full, dropping %d queued patches", len(c.outbox))
		c.outbox = nil
	}
	c.outbox = append(c.outbox, data)

	select {
	case c.wake <- struct{}{}:
	default:
	}
}
