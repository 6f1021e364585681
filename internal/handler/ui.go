package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"

	"autodocvision/internal/config"
	"autodocvision/internal/dto"
	"autodocvision/internal/logger"
	"autodocvision/internal/service"
	"autodocvision/internal/service/camera"
	"autodocvision/internal/service/detect"
	"autodocvision/internal/service/intake"
)

// maxSelectBody bounds the request body of /ui/select. Files between
// MaxUploadBytes and this size still reach the intake and are rejected there.
const maxSelectBody = 4 * config.MaxUploadBytes

// SelectImageHandler reads the multipart "image" field and offers it to the
// intake.
func SelectImageHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxSelectBody)

		file, header, err := r.FormFile("image")
		if err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				manager.ReportError(intake.ErrTooLarge)
				respondError(w, intake.ErrTooLarge.Error(), http.StatusRequestEntityTooLarge)
				return
			}
			respondError(w, "missing image field", http.StatusBadRequest)
			return
		}
		defer file.Close()

		candidate, err := readCandidate(file, header)
		if err != nil {
			logger.Error("Error reading uploaded file: %v", err)
			respondError(w, "could not read image", http.StatusBadRequest)
			return
		}

		if err := manager.Select(r.Context(), candidate); err != nil {
			respondError(w, err.Error(), http.StatusBadRequest)
			return
		}
		respondStatus(w, "selected")
	}
}

// readCandidate keeps at most one byte more than the upload limit, which is
// enough for the intake to reject oversized files. The part's declared
// Content-Type is taken as is; a missing one is rejected by the intake.
func readCandidate(file multipart.File, header *multipart.FileHeader) (intake.Candidate, error) {
	data, err := io.ReadAll(io.LimitReader(file, config.MaxUploadBytes+1))
	if err != nil {
		return intake.Candidate{}, err
	}
	return intake.Candidate{
		Name:     filepath.Base(header.Filename),
		MIMEType: header.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

// DetectHandler runs single-shot detection on the selected image.
func DetectHandler(manager *service.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := manager.Upload(r.Context())
		if err != nil {
			var appErr *detect.AppError
			switch {
			case errors.Is(err, service.ErrNoImage):
				respondError(w, err.Error(), http.StatusBadRequest)
			case errors.As(err, &appErr):
				respondError(w, appErr.Message, http.StatusUnprocessableEntity)
			default:
				respondError(w, err.Error(), http.StatusBadGateway)
			}
			return
		}
		respondJSON(w, dto.DetectionResponse{Success: true, Result: result}, http.StatusOK)
	}
}

// ThresholdHandler sets the confidence threshold from the "value" field.
func ThresholdHandler(manager *service.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		value, err := strconv.Atoi(r.FormValue("value"))
		if err != nil {
			respondError(w, "value must be an integer percentage", http.StatusBadRequest)
			return
		}
		respondJSON(w, dto.ThresholdResponse{Success: true, Threshold: manager.SetThreshold(value)}, http.StatusOK)
	}
}

// TabHandler activates the tab named by the "name" field.
func TabHandler(manager *service.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := manager.SwitchTab(r.FormValue("name")); err != nil {
			respondError(w, err.Error(), http.StatusBadRequest)
			return
		}
		respondStatus(w, "ok")
	}
}

func StartCameraHandler(manager *service.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := manager.StartCamera(r.Context()); err != nil {
			respondError(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		respondStatus(w, manager.CameraState().String())
	}
}

func StopCameraHandler(manager *service.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		manager.StopCamera()
		respondStatus(w, manager.CameraState().String())
	}
}

// CaptureHandler selects a still from the live camera.
func CaptureHandler(manager *service.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := manager.CaptureFrame(r.Context())
		switch {
		case err == nil:
			respondStatus(w, "captured")
		case errors.Is(err, camera.ErrNotActive):
			respondError(w, err.Error(), http.StatusConflict)
		case errors.Is(err, intake.ErrInvalidType), errors.Is(err, intake.ErrTooLarge):
			respondError(w, err.Error(), http.StatusBadRequest)
		default:
			respondError(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

func HistoryHandler(manager *service.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries := manager.History()
		respondJSON(w, dto.HistoryResponse{Success: true, Entries: entries, Count: len(entries)}, http.StatusOK)
	}
}

// ClearHistoryHandler clears the history when "confirm" is true, which is
// the browser's answer to the confirmation prompt.
func ClearHistoryHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		confirmed, _ := strconv.ParseBool(r.FormValue("confirm"))

		cleared, err := manager.ClearHistory(r.Context(), confirmed)
		if err != nil {
			logger.Error("Error clearing history: %v", err)
			respondError(w, "could not clear history", http.StatusInternalServerError)
			return
		}
		if !cleared {
			respondStatus(w, "cancelled")
			return
		}
		respondStatus(w, "cleared")
	}
}

func ClassesHandler(manager *service.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		classes, err := manager.Classes(r.Context())
		if err != nil {
			respondDetectorError(w, err)
			return
		}
		respondJSON(w, dto.ClassesResponse{Success: true, Classes: classes, Count: len(classes)}, http.StatusOK)
	}
}

func ModelInfoHandler(manager *service.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := manager.ModelInfo(r.Context())
		if err != nil {
			respondDetectorError(w, err)
			return
		}
		respondJSON(w, dto.ModelInfoResponse{Success: true, ModelInfo: info}, http.StatusOK)
	}
}

func respondDetectorError(w http.ResponseWriter, err error) {
	var appErr *detect.AppError
	if errors.As(err, &appErr) && appErr.StatusCode >= 400 {
		respondError(w, appErr.Message, appErr.StatusCode)
		return
	}
	respondError(w, err.Error(), http.StatusBadGateway)
}
