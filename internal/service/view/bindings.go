package view

// Element is the logical name of a UI element. Rendering code only uses
// logical names; Bindings resolves them to DOM ids.
type Element string

const (
	PreviewSection         Element = "preview.section"
	PreviewImage           Element = "preview.image"
	ResultSection          Element = "result.section"
	ResultClass            Element = "result.class"
	ResultConfidence       Element = "result.confidence"
	ResultStatus           Element = "result.status"
	ResultTime             Element = "result.time"
	ConfidenceBar          Element = "result.bar"
	ErrorSection           Element = "error.section"
	ErrorMessage           Element = "error.message"
	Loader                 Element = "loader"
	ThresholdValue         Element = "threshold.value"
	ThresholdSlider        Element = "threshold.slider"
	CameraPreview          Element = "camera.preview"
	CameraResultSection    Element = "camera.result.section"
	CameraResultClass      Element = "camera.result.class"
	CameraResultConfidence Element = "camera.result.confidence"
	StartCameraButton      Element = "camera.start"
	StopCameraButton       Element = "camera.stop"
	CaptureButton          Element = "camera.capture"
	HistoryContainer       Element = "history.container"
)

// Tab names.
const (
	TabUpload  = "upload"
	TabCamera  = "camera"
	TabHistory = "history"
)

// TabBinding holds the DOM ids of a tab's content pane and button.
type TabBinding struct {
	Content string
	Button  string
}

// Bindings maps logical names to DOM ids.
type Bindings struct {
	Elements map[Element]string
	Tabs     map[string]TabBinding
	TabOrder []string
}

// DefaultBindings matches static/index.html.
func DefaultBindings() Bindings {
	return Bindings{
		Elements: map[Element]string{
			PreviewSection:         "previewSection",
			PreviewImage:           "previewImage",
			ResultSection:          "resultSection",
			ResultClass:            "resultClass",
			ResultConfidence:       "resultConfidence",
			ResultStatus:           "resultStatus",
			ResultTime:             "resultTime",
			ConfidenceBar:          "confidenceBar",
			ErrorSection:           "errorSection",
			ErrorMessage:           "errorMessage",
			Loader:                 "loader",
			ThresholdValue:         "confidenceValue",
			ThresholdSlider:        "confidenceSlider",
			CameraPreview:          "cameraPreview",
			CameraResultSection:    "cameraResultSection",
			CameraResultClass:      "cameraResultClass",
			CameraResultConfidence: "cameraResultConfidence",
			StartCameraButton:      "startCameraBtn",
			StopCameraButton:       "stopCameraBtn",
			CaptureButton:          "captureBtn",
			HistoryContainer:       "historyContainer",
		},
		Tabs: map[string]TabBinding{
			TabUpload:  {Content: "upload", Button: "uploadTabBtn"},
			TabCamera:  {Content: "camera", Button: "cameraTabBtn"},
			TabHistory: {Content: "history", Button: "historyTabBtn"},
		},
		TabOrder: []string{TabUpload, TabCamera, TabHistory},
	}
}

// ID returns the DOM id bound to el, or the logical name when unbound.
func (b Bindings) ID(el Element) string {
	if id, ok := b.Elements[el]; ok {
		return id
	}
	return string(el)
}
