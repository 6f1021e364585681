package handler

import (
	"net/http"
	"os"

	"autodocvision/internal/config"
	"autodocvision/internal/logger"
)

// ShowLogsHandler serves the log file of level as text/plain.
func ShowLogsHandler(cfg *config.Config, level string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filePath := logger.FilePath(cfg.LogDirectory, level)

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("Log file not found: " + level + ".log"))
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")

		http.ServeFile(w, r, filePath)
	}
}

// ClearLogsHandler truncates the log file of level.
func ClearLogsHandler(log *logger.Logger, level string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := log.CleanLogs(level); err != nil {
			log.Error("Error clearing %s logs: %v", level, err)
			respondError(w, "could not clear logs", http.StatusInternalServerError)
			return
		}
		respondStatus(w, "cleared")
	}
}
