// Command ytcourier serves the video acquisition pipeline over HTTP.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/famomatic/ytcourier/courier"
	"github.com/famomatic/ytcourier/internal/api"
	"github.com/famomatic/ytcourier/internal/config"
	"github.com/famomatic/ytcourier/internal/deliver"
	"github.com/famomatic/ytcourier/internal/engine"
	"github.com/famomatic/ytcourier/internal/executor"
	"github.com/famomatic/ytcourier/internal/muxer"
)

func main() {
	// .env is a dev convenience; production injects real env vars.
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	settings := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(settings.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	fs := afero.NewOsFs()
	ffm := muxer.NewFFmpegMuxer(settings.FFmpegPath)
	if !ffm.Available() {
		logger.Warn("ffmpeg not found; merge selections will fail")
	}

	eng := engine.NewYouTube(nil, fs, ffm, settings.FetchTimeout, logger)

	pipeline, err := courier.New(courier.Config{
		Engine:      eng,
		Fs:          fs,
		ScratchBase: settings.ScratchDir,
		Limits: deliver.Limits{
			MaxDurationSeconds: settings.MaxDurationSeconds,
			MaxAttachmentBytes: settings.MaxAttachmentBytes,
			MaxStorageBytes:    settings.MaxStorageBytes,
		},
		Retry: executor.Config{
			MaxAttempts:   settings.DownloadRetries,
			RateLimitBase: settings.RetryBaseDelay,
			TransientBase: settings.TransientBaseDelay,
			Identities:    settings.UserAgents,
		},
		MinArtifactBytes: settings.MinArtifactBytes,
		Logger:           logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("pipeline wiring failed")
	}

	handler := api.NewHandler(pipeline, settings.DefaultResolution, logger)

	cors := gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(settings.AllowedOrigins),
		gorillahandlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type"}),
	)

	srv := &http.Server{
		Addr:        ":" + settings.Port,
		Handler:     cors(handler.Router()),
		ReadTimeout: 10 * time.Second,
		// Downloads can take several retry rounds; leave write headroom.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.WithField("port", settings.Port).Info("ytcourier listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server error")
		}
	}()

	<-quit
	logger.Info("shutdown signal received, draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Fatal("forced shutdown")
	}
	logger.Info("server stopped")
}
