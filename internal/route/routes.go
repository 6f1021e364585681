package route

import (
	"net/http"
	"os"
	"path/filepath"

	"autodocvision/internal/config"
	"autodocvision/internal/handler"
	"autodocvision/internal/logger"
	"autodocvision/internal/metrics"
	"autodocvision/internal/service"
	hub "autodocvision/internal/service/websocket"
)

// pageHandler serves / as index.html and /name as name.html from staticDir;
// anything else is a 404.
func pageHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/" {
			path = "/index"
		}

		filePath := filepath.Join(staticDir, filepath.Clean(path)+".html")
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

// SetupRoutes registers the static UI shell, the view stream, the UI
// gesture endpoints, logs and metrics.
func SetupRoutes(manager *service.Manager, h *hub.HubService, m *metrics.Metrics, cfg *config.Config, log *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))

	// View stream
	mux.HandleFunc("GET /ws", handler.ViewWebsocketHandler(h, log))

	// UI gestures
	mux.HandleFunc("POST /ui/select", handler.SelectImageHandler(manager, log))
	mux.HandleFunc("POST /ui/detect", handler.DetectHandler(manager))
	mux.HandleFunc("POST /ui/threshold", handler.ThresholdHandler(manager))
	mux.HandleFunc("POST /ui/tab", handler.TabHandler(manager))
	mux.HandleFunc("POST /ui/camera/start", handler.StartCameraHandler(manager))
	mux.HandleFunc("POST /ui/camera/stop", handler.StopCameraHandler(manager))
	mux.HandleFunc("POST /ui/camera/capture", handler.CaptureHandler(manager))
	mux.HandleFunc("GET /ui/history", handler.HistoryHandler(manager))
	mux.HandleFunc("POST /ui/history/clear", handler.ClearHistoryHandler(manager, log))
	mux.HandleFunc("GET /ui/classes", handler.ClassesHandler(manager))
	mux.HandleFunc("GET /ui/model-info", handler.ModelInfoHandler(manager))

	// Log endpoints
	for _, level := range []string{logger.LevelInfo, logger.LevelWarning, logger.LevelError} {
		mux.HandleFunc("GET /logs/"+level, handler.ShowLogsHandler(cfg, level))
		mux.HandleFunc("POST /logs/"+level+"/clear", handler.ClearLogsHandler(log, level))
	}

	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("GET /healthz", handler.HealthzHandler(manager, h))

	// /about -> <static>/about.html
	mux.HandleFunc("GET /", pageHandler(cfg.StaticDir))

	return mux
}
