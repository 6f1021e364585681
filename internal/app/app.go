package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"autodocvision/internal/config"
	"autodocvision/internal/logger"
	"autodocvision/internal/metrics"
	"autodocvision/internal/repository"
	"autodocvision/internal/repository/memory"
	"autodocvision/internal/repository/redisstore"
	"autodocvision/internal/repository/sqlite"
	"autodocvision/internal/route"
	"autodocvision/internal/service"
	"autodocvision/internal/service/camera"
	"autodocvision/internal/service/detect"
	"autodocvision/internal/service/history"
	"autodocvision/internal/service/intake"
	"autodocvision/internal/service/view"
	"autodocvision/internal/service/websocket"
	"autodocvision/internal/state"
)

const (
	shutdownTimeout = 5 * time.Second
	probeTimeout    = 5 * time.Second
)

type App struct {
	config     *config.Config
	logger     *logger.Logger
	metrics    *metrics.Metrics
	store      repository.KeyValueStore
	hubService *websocket.HubService
	view       *view.Controller
	history    *history.Store
	detector   *detect.Client
	manager    *service.Manager
}

func NewApp() (*App, error) {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.LogDirectory)
	if err != nil {
		return nil, err
	}
	m := metrics.New()

	store, err := OpenStore(context.Background(), cfg)
	if err != nil {
		log.Close()
		return nil, err
	}

	st := state.New(cfg.DefaultThreshold, view.TabUpload)
	v := view.NewController(view.DefaultBindings(), log)
	hub := websocket.NewHubService(log, m, v.Snapshot)
	v.SetSink(hub)

	in := intake.NewService(st, v, log)
	detector := detect.NewClient(cfg.DetectorURL, cfg.RequestTimeout, log, m)
	hist := history.NewStore(store, v, log, history.WithMetrics(m))
	cam := camera.NewController(
		camera.OpenDevice(cfg.CameraDevice, cfg.CameraWidth, cfg.CameraHeight),
		detector, in, v, camera.OptionsFromConfig(cfg), log, m,
	)

	mng := service.NewManager(st, v, in, detector, hist, cam, log)

	return &App{
		config:     cfg,
		logger:     log,
		metrics:    m,
		store:      store,
		hubService: hub,
		view:       v,
		history:    hist,
		detector:   detector,
		manager:    mng,
	}, nil
}

// OpenStore opens the key-value store selected by cfg.StorageBackend.
func OpenStore(ctx context.Context, cfg *config.Config) (repository.KeyValueStore, error) {
	switch cfg.StorageBackend {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		db, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		return db, nil
	case "redis":
		rs, err := redisstore.Dial(ctx, cfg.RedisAddr,
			redisstore.WithPrefix(cfg.RedisPrefix),
			redisstore.WithTTL(cfg.RedisTTL),
		)
		if err != nil {
			return nil, err
		}
		return rs, nil
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// Run serves the UI until SIGINT or SIGTERM, then stops the camera and
// shuts the server down.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer a.close()

	if err := a.history.Load(ctx); err != nil {
		a.logger.Warning("Could not load history: %v", err)
	}
	a.history.Render()

	// Start background services
	go a.hubService.Run(ctx)
	go a.view.Run(ctx)
	go a.probeDetector(ctx)

	router := route.SetupRoutes(a.manager, a.hubService, a.metrics, a.config, a.logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Printf("🚀 AutoDocVision\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("🤖 Detector: %s\n", a.config.DetectorURL)
	fmt.Printf("💾 Storage: %s\n", a.config.StorageBackend)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		a.manager.Stop()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	a.manager.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}

// probeDetector warns once at startup when the detector cannot be reached.
func (a *App) probeDetector(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	health, err := a.detector.Health(ctx)
	if err != nil {
		a.logger.Warning("Detection service at %s is not available: %v", a.config.DetectorURL, err)
		return
	}
	if !health.ModelLoaded {
		a.logger.Warning("Detection service is up but has no model loaded")
		return
	}
	a.logger.Info("Detection service at %s is healthy", a.config.DetectorURL)
}

func (a *App) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("Error closing store: %v", err)
	}
	a.logger.Close()
}
