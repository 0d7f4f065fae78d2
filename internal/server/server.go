package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"soundshelf/internal/config"
	"soundshelf/internal/database"
	"soundshelf/internal/ingest"
	"soundshelf/internal/metrics"
	"soundshelf/internal/ngrok"
	"soundshelf/internal/storage"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// MusicServer serves the catalog API
type MusicServer struct {
	db            *database.Database
	config        *config.Config
	local         *storage.Local
	ingester      *ingest.Ingester
	metrics       *metrics.Metrics
	ngrokService  *ngrok.Service
	uploadLimiter *rate.Limiter
	watcher       *fsnotify.Watcher
	logger        *logrus.Logger

	handler http.Handler
}

// Option customizes a MusicServer
type Option func(*MusicServer)

// WithMetrics enables request and upload metrics and the metrics endpoint
func WithMetrics(m *metrics.Metrics) Option {
	return func(ms *MusicServer) {
		ms.metrics = m
	}
}

// WithTunnel starts svc alongside the HTTP listener
func WithTunnel(svc *ngrok.Service) Option {
	return func(ms *MusicServer) {
		ms.ngrokService = svc
	}
}

// NewMusicServer wires the routes. The database, store and ingester are
// owned by the caller.
func NewMusicServer(cfg *config.Config, db *database.Database, local *storage.Local, ingester *ingest.Ingester, logger *logrus.Logger, opts ...Option) *MusicServer {
	ms := &MusicServer{
		db:            db,
		config:        cfg,
		local:         local,
		ingester:      ingester,
		uploadLimiter: rate.NewLimiter(rate.Limit(cfg.Storage.UploadsPerSecond), cfg.Storage.UploadBurst),
		logger:        logger,
	}
	for _, opt := range opts {
		opt(ms)
	}

	ms.handler = ms.requestLoggingMiddleware(ms.panicRecoveryMiddleware(ms.corsMiddleware(ms.setupRoutes())))
	return ms
}

// Handler returns the fully wrapped HTTP handler
func (ms *MusicServer) Handler() http.Handler {
	return ms.handler
}

func (ms *MusicServer) setupRoutes() *mux.Router {
	router := mux.NewRouter()
	if ms.metrics != nil {
		router.Use(ms.metricsMiddleware)
	}

	router.HandleFunc("/tracks", ms.handleUploadTrack).Methods(http.MethodPost)
	router.HandleFunc("/tracks", ms.handleGetTracks).Methods(http.MethodGet)
	router.HandleFunc("/tracks/{externalName}", ms.handleGetTrack).Methods(http.MethodGet)
	router.HandleFunc("/tracks/{externalName}", ms.handleDeleteTrack).Methods(http.MethodDelete)

	// Membership routes first so "tracks" is not taken for a playlist id
	router.HandleFunc("/playlists/tracks", ms.handleAddTrackToPlaylist).Methods(http.MethodPost)
	router.HandleFunc("/playlists/tracks/remove", ms.handleRemoveTrackFromPlaylist).Methods(http.MethodPost)
	router.HandleFunc("/playlists", ms.handleCreatePlaylist).Methods(http.MethodPost)
	router.HandleFunc("/playlists", ms.handleGetPlaylists).Methods(http.MethodGet)
	router.HandleFunc("/playlists/{id}", ms.handleGetPlaylist).Methods(http.MethodGet)
	router.HandleFunc("/playlists/{id}", ms.handleDeletePlaylist).Methods(http.MethodDelete)

	router.HandleFunc("/users", ms.handleCreateUser).Methods(http.MethodPost)
	router.HandleFunc("/users/session", ms.handleAuthenticateUser).Methods(http.MethodGet, http.MethodPost)

	router.HandleFunc("/health", ms.handleHealthCheck).Methods(http.MethodGet)
	if ms.metrics != nil && ms.config.Metrics.Enabled {
		router.Handle(ms.config.Metrics.Path, ms.metrics.Handler()).Methods(http.MethodGet)
	}

	if ms.config.Storage.ServeMedia {
		router.PathPrefix("/media/audio/").Handler(
			http.StripPrefix("/media/audio/", mediaFileServer(ms.config.Storage.AudioDir))).Methods(http.MethodGet, http.MethodHead)
		router.PathPrefix("/media/images/").Handler(
			http.StripPrefix("/media/images/", mediaFileServer(ms.config.Storage.ImageDir))).Methods(http.MethodGet, http.MethodHead)
	}

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ms.respondMessage(w, http.StatusNotFound, "Not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ms.respondMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return router
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully
func (ms *MusicServer) Run(ctx context.Context) error {
	if ms.config.Storage.WatchForChanges {
		if err := ms.startFileWatcher(); err != nil {
			ms.logger.WithError(err).Warn("Could not start file watcher")
		} else {
			defer ms.stopFileWatcher()
		}
	}

	server := &http.Server{
		Addr:         ms.config.GetAddress(),
		Handler:      ms.handler,
		ReadTimeout:  time.Duration(ms.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(ms.config.Server.WriteTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	localAddress := fmt.Sprintf("http://%s", ms.config.GetAddress())
	fields := logrus.Fields{
		"address":  localAddress,
		"driver":   ms.config.Database.Driver,
		"audioDir": ms.config.Storage.AudioDir,
	}
	if stats, err := ms.db.Stats(ctx); err == nil {
		fields["tracks"] = stats.Tracks
		fields["playlists"] = stats.Playlists
	}
	ms.logger.WithFields(fields).Info("Soundshelf server starting")

	if ms.ngrokService != nil {
		if err := ms.ngrokService.StartTunnel(ctx, localAddress); err != nil {
			ms.logger.WithError(err).Warn("Could not start ngrok tunnel")
		} else {
			defer ms.ngrokService.Stop()
		}
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	ms.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	ms.logger.Info("Server shutdown complete")
	return nil
}
