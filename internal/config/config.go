package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// MaxUploadBytes is the largest image accepted by the intake (16 MiB).
	MaxUploadBytes = 16 * 1024 * 1024
	// HistoryLimit caps the number of persisted history entries.
	HistoryLimit = 50
	// HistoryKey is the storage key holding the serialized history.
	HistoryKey = "detectionHistory"
)

type Config struct {
	Port           int
	DetectorURL    string        // Base URL of the remote detection service
	RequestTimeout time.Duration // Timeout for a single detection request
	StaticDir      string
	LogDirectory   string

	StorageBackend string // sqlite, redis or memory
	DatabasePath   string
	RedisAddr      string
	RedisPrefix    string
	RedisTTL       time.Duration // Expiry of stored values (0 = never)

	DefaultThreshold int // Initial slider value, in percent

	CameraDevice       int
	CameraWidth        int
	CameraHeight       int
	CameraInterval     time.Duration // Delay between two frame detections
	CameraSingleFlight bool          // Skip a frame while the previous one is in flight
	CameraMaxWidth     int           // Downscale frames wider than this (0 = native)
	CameraStartTimeout time.Duration
	JPEGQuality        int
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:           getEnvAsInt("PORT", 8080),
		DetectorURL:    strings.TrimRight(getEnv("DETECTOR_URL", "http://localhost:5000"), "/"),
		RequestTimeout: getEnvAsMillis("REQUEST_TIMEOUT_MS", 30000),
		StaticDir:      getEnv("STATIC_DIR", filepath.Join(".", "static")),
		LogDirectory:   getEnv("LOG_DIR", filepath.Join(".", "logs")),

		StorageBackend: getEnv("STORAGE_BACKEND", "sqlite"),
		DatabasePath:   getEnv("DB_PATH", filepath.Join(".", "data", "autodoc.db")),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPrefix:    getEnv("REDIS_PREFIX", "autodoc"),
		RedisTTL:       time.Duration(max(getEnvAsInt("REDIS_TTL_SECONDS", 0), 0)) * time.Second,

		DefaultThreshold: clampPercent(getEnvAsInt("DEFAULT_THRESHOLD", 70)),

		CameraDevice:       getEnvAsInt("CAMERA_DEVICE", 0),
		CameraWidth:        getEnvAsInt("CAMERA_WIDTH", 1280),
		CameraHeight:       getEnvAsInt("CAMERA_HEIGHT", 720),
		CameraInterval:     getEnvAsMillis("CAMERA_INTERVAL_MS", 500),
		CameraSingleFlight: getEnvAsBool("CAMERA_SINGLE_FLIGHT", false),
		CameraMaxWidth:     getEnvAsInt("CAMERA_MAX_WIDTH", 0),
		CameraStartTimeout: getEnvAsMillis("CAMERA_START_TIMEOUT_MS", 5000),
		JPEGQuality:        getEnvAsInt("JPEG_QUALITY", 92),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsMillis(key string, defaultValue int) time.Duration {
	ms := getEnvAsInt(key, defaultValue)
	if ms <= 0 {
		ms = defaultValue
	}
	return time.Duration(ms) * time.Millisecond
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
