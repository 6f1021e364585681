package route

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autodocvision/internal/config"
	"autodocvision/internal/logger"
	"autodocvision/internal/metrics"
	"autodocvision/internal/repository/memory"
	"autodocvision/internal/service"
	"autodocvision/internal/service/camera"
	"autodocvision/internal/service/detect"
	"autodocvision/internal/service/history"
	"autodocvision/internal/service/intake"
	"autodocvision/internal/service/view"
	hub "autodocvision/internal/service/websocket"
	"autodocvision/internal/state"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<h1>AutoDocVision</h1>"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(static, "js"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(static, "js", "app.js"), []byte("// app"), 0644))

	cfg := &config.Config{StaticDir: static, LogDirectory: t.TempDir()}
	log := logger.NewNop()
	m := metrics.New()

	st := state.New(70, view.TabUpload)
	v := view.NewController(view.DefaultBindings(), log)
	h := hub.NewHubService(log, m, v.Snapshot)
	v.SetSink(h)

	in := intake.NewService(st, v, log)
	client := detect.NewClient("http://127.0.0.1:1", time.Second, log, m)
	store := history.NewStore(memory.New(), v, log, history.WithMetrics(m))
	cam := camera.NewController(camera.OpenDevice(0, 0, 0), client, in, v, camera.Options{}, log, m)
	manager := service.NewManager(st, v, in, client, store, cam, log)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)
	go v.Run(ctx)

	srv := httptest.NewServer(SetupRoutes(manager, h, m, cfg, log))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestSetupRoutes_StaticAndPages(t *testing.T) {
	srv := newServer(t)

	status, body := get(t, srv.URL+"/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "AutoDocVision")

	status, body = get(t, srv.URL+"/static/js/app.js")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "// app", body)

	status, _ = get(t, srv.URL+"/missing")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSetupRoutes_MetricsAndHealth(t *testing.T) {
	srv := newServer(t)

	status, body := get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"camera":"idle"`)

	status, body = get(t, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "autodoc_history_entries")
}

func TestSetupRoutes_MethodMismatch(t *testing.T) {
	srv := newServer(t)

	status, _ := get(t, srv.URL+"/ui/detect")
	assert.Equal(t, http.StatusMethodNotAllowed, status)
}

func TestSetupRoutes_ViewStream(t *testing.T) {
	srv := newServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"snapshot"`)

	resp, err := http.PostForm(srv.URL+"/ui/threshold", map[string][]string{"value": {"80"}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// earlier patches may still be in flight; wait for the slider label
	for {
		_, data, err = conn.ReadMessage()
		require.NoError(t, err)
		if strings.Contains(string(data), `80%`) {
			assert.Contains(t, string(data), `"type":"patch"`)
			return
		}
	}
}
