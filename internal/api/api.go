// Package api exposes the acquisition pipeline over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/famomatic/ytcourier/courier"
	"github.com/famomatic/ytcourier/internal/types"
)

// minStreamBytes rejects implausibly small downloads before streaming.
const minStreamBytes = 100 << 10

// Handler serves the /info, /download and /health endpoints.
type Handler struct {
	pipeline       *courier.Pipeline
	defaultQuality types.Quality
	logger         logrus.FieldLogger
}

// NewHandler builds the HTTP surface over pipeline.
func NewHandler(pipeline *courier.Pipeline, defaultQuality types.Quality, logger logrus.FieldLogger) *Handler {
	if defaultQuality == "" {
		defaultQuality = types.Quality360p
	}
	return &Handler{pipeline: pipeline, defaultQuality: defaultQuality, logger: logger}
}

// Router wires the routes.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", h.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/info", h.handleInfo).Methods(http.MethodGet)
	r.HandleFunc("/download", h.handleDownload).Methods(http.MethodPost)
	return r
}

func (h *Handler) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "video courier API",
		"endpoints": map[string]string{
			"health":   "/health",
			"info":     "/info?url=...",
			"download": "/download (POST)",
		},
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "healthy",
		"downloader": "ytcourier",
		"version":    "1.0",
	})
}

type infoResponse struct {
	Success         bool   `json:"success"`
	Title           string `json:"title,omitempty"`
	Author          string `json:"author,omitempty"`
	DurationSeconds int64  `json:"durationSeconds,omitempty"`
	ThumbnailURL    string `json:"thumbnailUrl,omitempty"`
	CanDownload     bool   `json:"canDownload"`
	Error           string `json:"error,omitempty"`
}

func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeJSON(w, http.StatusBadRequest, infoResponse{Success: false, Error: "missing url"})
		return
	}

	meta, canDownload, err := h.pipeline.Info(r.Context(), url)
	if err != nil {
		writeJSON(w, statusFor(err), infoResponse{Success: false, Error: courier.Summarize(err)})
		return
	}

	writeJSON(w, http.StatusOK, infoResponse{
		Success:         true,
		Title:           meta.Title,
		Author:          meta.Author,
		DurationSeconds: meta.DurationSeconds,
		ThumbnailURL:    meta.ThumbnailURL,
		CanDownload:     canDownload,
	})
}

type downloadRequest struct {
	URL        string `json:"url"`
	Resolution string `json:"resolution"`
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "missing url")
		return
	}

	quality := h.defaultQuality
	if req.Resolution != "" {
		q, err := types.ParseQuality(req.Resolution)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unsupported resolution")
			return
		}
		quality = q
	}

	res, err := h.pipeline.Run(r.Context(), types.VideoRequest{
		SourceURL: req.URL,
		Quality:   quality,
	})
	if err != nil {
		if h.logger != nil {
			h.logger.WithError(err).WithField("url", req.URL).Error("download failed")
		}
		writeError(w, statusFor(err), courier.Summarize(err))
		return
	}

	if res.Decision.Channel == types.ChannelReject {
		writeError(w, http.StatusRequestEntityTooLarge, res.Decision.Reason)
		return
	}
	if len(res.Payload) < minStreamBytes {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("file too small: %d bytes", len(res.Payload)))
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Payload)))
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Payload); err != nil && h.logger != nil {
		h.logger.WithError(err).Warn("response write interrupted")
	}
}

// statusFor maps pipeline errors onto response codes: invalid input and
// permanent upstream failures are the caller's fault, everything else is a
// pipeline failure.
func statusFor(err error) int {
	if errors.Is(err, types.ErrInvalidInput) {
		return http.StatusBadRequest
	}
	var ue *types.UpstreamError
	if errors.As(err, &ue) && ue.Class == types.ClassPermanent {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
