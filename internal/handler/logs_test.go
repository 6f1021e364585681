package handler

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autodocvision/internal/config"
	"autodocvision/internal/logger"
)

func TestLogsHandlers(t *testing.T) {
	dir := t.TempDir()
	log, err := logger.NewLogger(dir)
	require.NoError(t, err)
	defer log.Close()
	cfg := &config.Config{LogDirectory: dir}

	log.Warning("detector slow")

	rec := httptest.NewRecorder()
	ShowLogsHandler(cfg, logger.LevelWarning)(rec, httptest.NewRequest(http.MethodGet, "/logs/warning", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "detector slow")
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	rec = httptest.NewRecorder()
	ClearLogsHandler(log, logger.LevelWarning)(rec, httptest.NewRequest(http.MethodPost, "/logs/warning/clear", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	data, err := os.ReadFile(logger.FilePath(dir, logger.LevelWarning))
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestShowLogsHandler_Missing(t *testing.T) {
	cfg := &config.Config{LogDirectory: t.TempDir()}

	rec := httptest.NewRecorder()
	ShowLogsHandler(cfg, logger.LevelError)(rec, httptest.NewRequest(http.MethodGet, "/logs/error", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "error.log")
}
