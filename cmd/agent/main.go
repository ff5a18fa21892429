package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/foliokit/media-agent/internal/config"
	"github.com/foliokit/media-agent/internal/domain/library"
	"github.com/foliokit/media-agent/internal/domain/staging"
	"github.com/foliokit/media-agent/internal/domain/uploads"
	"github.com/foliokit/media-agent/internal/middleware"
	"github.com/foliokit/media-agent/internal/pkg/backend"
	"github.com/foliokit/media-agent/internal/pkg/logger"
	"github.com/foliokit/media-agent/internal/pkg/preview"
	"github.com/foliokit/media-agent/internal/pkg/response"
	"github.com/foliokit/media-agent/internal/pkg/thumbnail"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Str("backend", cfg.BackendBaseURL).
		Msg("Starting media agent")

	previews, err := preview.NewStore(cfg.PreviewDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create preview store")
	}
	defer previews.Close()

	client := backend.NewClient(backend.Config{
		BaseURL: cfg.BackendBaseURL,
		Token:   cfg.BackendToken,
		Timeout: cfg.BackendTimeout,
	})

	generator := thumbnail.NewGenerator(thumbnail.Config{
		MaxSide:     cfg.ThumbMaxSide,
		JPEGQuality: cfg.ThumbJPEGQuality,
		FFmpegPath:  cfg.FFmpegPath,
		VideoWait:   cfg.VideoProbeWait,
	})

	spoolCleanup := staging.SpoolCleanup(cfg.SpoolDir)

	uploadQueue := uploads.NewQueue(
		uploads.NewBackendTransport(client),
		previews,
		uploads.Options{
			DismissAfter: cfg.SuccessDismissAfter,
			MaxImageSize: cfg.MaxImageSize,
			MaxVideoSize: cfg.MaxVideoSize,
			Cleanup:      spoolCleanup,
		},
		func(m backend.Media) {
			log.Info().Int64("media_id", m.ID).Str("url", m.URL).Msg("Media uploaded")
		},
	)

	stagingQueue := staging.NewQueue(generator, previews, cfg.MaxFiles, uploadQueue.InFlight, spoolCleanup)

	stagingHandler := staging.NewHandler(stagingQueue, uploadQueue, cfg.SpoolDir)
	uploadsHandler := uploads.NewHandler(uploadQueue)
	libraryHandler := library.NewHandler(library.NewPicker(client), client)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Get("/previews/{handle}", func(w http.ResponseWriter, r *http.Request) {
		path, ok := previews.Path(chi.URLParam(r, "handle"))
		if !ok {
			response.NotFound(w, "Preview not found")
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		http.ServeFile(w, r, path)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/staging", stagingHandler.Routes())
		r.Mount("/uploads", uploadsHandler.Routes())
		r.Mount("/library", libraryHandler.Routes())
		r.Mount("/media", libraryHandler.MediaRoutes())
	})

	server := &http.Server{
		Addr:         "127.0.0.1:" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down agent...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Agent exited properly")
}
