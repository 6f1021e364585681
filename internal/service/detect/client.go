// Package detect talks to the remote document detection service.
package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"

	"github.com/google/uuid"

	"autodocvision/internal/dto"
	"autodocvision/internal/logger"
	"autodocvision/internal/metrics"
	"autodocvision/internal/model"
)

const (
	endpointDetect    = "/api/detect"
	endpointCamera    = "/api/detect-camera"
	endpointClasses   = "/api/classes"
	endpointModelInfo = "/api/model-info"
	endpointHealth    = "/health"

	// FallbackMessage is shown when the service fails without a reason.
	FallbackMessage = "Error al procesar imagen"

	statusSuccess   = "success"
	statusAppError  = "app_error"
	statusTransport = "transport_error"
)

// ErrTransport marks failures to reach the service or to read its answer.
var ErrTransport = errors.New("detector unreachable")

// AppError is a failure reported by the service itself (success=false).
type AppError struct {
	StatusCode int
	Message    string
}

func (e *AppError) Error() string {
	return e.Message
}

func newAppError(status int, message string) *AppError {
	if message == "" {
		message = FallbackMessage
	}
	return &AppError{StatusCode: status, Message: message}
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewClient creates a client for the service at baseURL. m may be nil.
func NewClient(baseURL string, timeout time.Duration, logger *logger.Logger, m *metrics.Metrics) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
		metrics: m,
	}
}

// Upload sends img for single-shot detection with the threshold given in
// percent.
func (c *Client) Upload(ctx context.Context, img *model.SelectedImage, thresholdPercent int) (*model.DetectionResult, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	name := img.Name
	if name == "" {
		name = "image"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{"name": "image", "filename": name}))
	header.Set("Content-Type", img.MIMEType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("create image part: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, fmt.Errorf("write image part: %w", err)
	}
	confidence := strconv.FormatFloat(float64(thresholdPercent)/100, 'f', -1, 64)
	if err := writer.WriteField("confidence", confidence); err != nil {
		return nil, fmt.Errorf("write confidence field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpointDetect, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var resp dto.DetectResponse
	status, err := c.do(req, endpointDetect, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		c.observe(endpointDetect, statusAppError)
		return nil, newAppError(status, resp.Error)
	}
	c.observe(endpointDetect, statusSuccess)
	return resp.Result(), nil
}

// Frame sends one camera frame. A success=false answer is returned as is;
// only transport failures produce an error.
func (c *Client) Frame(ctx context.Context, dataURL string) (*dto.CameraResponse, error) {
	payload, err := json.Marshal(dto.CameraFrameRequest{FrameData: dataURL})
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpointCamera, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp dto.CameraResponse
	if _, err := c.do(req, endpointCamera, &resp); err != nil {
		return nil, err
	}
	if resp.Success {
		c.observe(endpointCamera, statusSuccess)
	} else {
		c.observe(endpointCamera, statusAppError)
	}
	return &resp, nil
}

// Classes lists the labels the model can detect.
func (c *Client) Classes(ctx context.Context) ([]string, error) {
	var resp dto.ClassesResponse
	status, err := c.get(ctx, endpointClasses, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		c.observe(endpointClasses, statusAppError)
		return nil, newAppError(status, resp.Error)
	}
	c.observe(endpointClasses, statusSuccess)
	return resp.Classes, nil
}

// ModelInfo returns the metadata of the loaded model.
func (c *Client) ModelInfo(ctx context.Context) (map[string]interface{}, error) {
	var resp dto.ModelInfoResponse
	status, err := c.get(ctx, endpointModelInfo, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		c.observe(endpointModelInfo, statusAppError)
		return nil, newAppError(status, resp.Error)
	}
	c.observe(endpointModelInfo, statusSuccess)
	return resp.ModelInfo, nil
}

// Health probes the service.
func (c *Client) Health(ctx context.Context) (*dto.HealthResponse, error) {
	var resp dto.HealthResponse
	status, err := c.get(ctx, endpointHealth, &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK || resp.Status != "ok" {
		c.observe(endpointHealth, statusAppError)
		return &resp, fmt.Errorf("detector unhealthy: status %d", status)
	}
	c.observe(endpointHealth, statusSuccess)
	return &resp, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	return c.do(req, endpoint, out)
}

// do sends req and decodes the JSON body into out whatever the status code,
// since the service reports its own failures as JSON.
func (c *Client) do(req *http.Request, endpoint string, out interface{}) (int, error) {
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if c.metrics != nil {
		c.metrics.RequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		c.observe(endpoint, statusTransport)
		return 0, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.observe(endpoint, statusTransport)
		return resp.StatusCode, fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.observe(endpoint, statusTransport)
		c.logger.Warning("Request %s to %s returned non-JSON body (status %d)", requestID, endpoint, resp.StatusCode)
		return resp.StatusCode, fmt.Errorf("%w: invalid response (status %d): %v", ErrTransport, resp.StatusCode, err)
	}
	return resp.StatusCode, nil
}

func (c *Client) observe(endpoint, status string) {
	if c.metrics != nil {
		c.metrics.RequestsTotal.WithLabelValues(endpoint, status).Inc()
	}
}
