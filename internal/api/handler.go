package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	apperrors "github.com/rajasatyajit/FeedMonitor/internal/errors"
	"github.com/rajasatyajit/FeedMonitor/internal/logger"
	"github.com/rajasatyajit/FeedMonitor/internal/models"
	"github.com/rajasatyajit/FeedMonitor/internal/monitor"
	"github.com/rajasatyajit/FeedMonitor/internal/store"
)

const (
	defaultFeedResults = 50
	defaultAllResults  = 100
	maxResults         = 500
)

// Controller starts and stops feed monitors
type Controller interface {
	Start(ctx context.Context, feedID int64) error
	Stop(ctx context.Context, feedID int64) error
}

// Hub serves a live connection until the peer goes away
type Hub interface {
	ServeConn(ctx context.Context, conn *websocket.Conn)
}

// Handler handles HTTP requests for the API
type Handler struct {
	store      store.Store
	controller Controller
	hub        Hub
	upgrader   websocket.Upgrader
	version    string
	buildTime  string
	gitCommit  string
	startTime  time.Time
}

// NewHandler creates a new API handler
func NewHandler(store store.Store, controller Controller, hub Hub, version, buildTime, gitCommit string) *Handler {
	return &Handler{
		store:      store,
		controller: controller,
		hub:        hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		version:   version,
		buildTime: buildTime,
		gitCommit: gitCommit,
		startTime: time.Now(),
	}
}

// RegisterRoutes registers the request/response routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		// Health check endpoints
		r.Get("/health", h.healthHandler)
		r.Get("/health/ready", h.readinessHandler)
		r.Get("/health/live", h.livenessHandler)

		r.Get("/feeds", h.listFeedsHandler)
		r.Post("/feeds", h.createFeedHandler)
		r.Get("/feeds/{id}", h.getFeedHandler)
		r.Patch("/feeds/{id}/status", h.setFeedStatusHandler)
		r.Delete("/feeds/{id}", h.deleteFeedHandler)
		r.Get("/feeds/{id}/transcriptions", h.feedTranscriptionsHandler)
		r.Get("/transcriptions", h.transcriptionsHandler)

		// System info
		r.Get("/version", h.versionHandler)
	})

	// Root health check
	r.Get("/health", h.healthHandler)
}

// RegisterStream registers the websocket route. It is kept apart from
// RegisterRoutes so that request timeouts do not apply to it.
func (h *Handler) RegisterStream(r chi.Router) {
	r.Get("/v1/ws", h.wsHandler)
}

// healthHandler provides basic health check
func (h *Handler) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"version":   h.version,
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// readinessHandler checks if the application is ready to serve traffic
func (h *Handler) readinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := map[string]string{
		"store": "ok",
	}

	statusCode := http.StatusOK

	if err := h.store.Health(ctx); err != nil {
		checks["store"] = "error: " + err.Error()
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	}

	h.writeJSONResponse(w, statusCode, response)
}

// livenessHandler checks if the application is alive
func (h *Handler) livenessHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// versionHandler returns version information
func (h *Handler) versionHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"version":    h.version,
		"build_time": h.buildTime,
		"git_commit": h.gitCommit,
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// listFeedsHandler handles GET /feeds
func (h *Handler) listFeedsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	feeds, err := h.store.ListFeeds(ctx)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to list feeds", "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	if feeds == nil {
		feeds = []models.Feed{}
	}

	response := map[string]interface{}{
		"data":      feeds,
		"count":     len(feeds),
		"timestamp": time.Now().UTC(),
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

type createFeedRequest struct {
	Name         string   `json:"name"`
	URL          string   `json:"url"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	ThumbnailURL string   `json:"thumbnail_url"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	City         string   `json:"city"`
}

func (req createFeedRequest) validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return apperrors.ValidationError{Field: "name", Message: "is required"}
	}
	if strings.TrimSpace(req.URL) == "" {
		return apperrors.ValidationError{Field: "url", Message: "is required"}
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return apperrors.ValidationError{Field: "latitude", Message: "latitude and longitude must be given together"}
	}
	return nil
}

// createFeedHandler handles POST /feeds
func (h *Handler) createFeedHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createFeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.validate(); err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	feed, err := h.store.CreateFeed(ctx, &models.Feed{
		Name:         strings.TrimSpace(req.Name),
		URL:          strings.TrimSpace(req.URL),
		Description:  req.Description,
		Category:     req.Category,
		ThumbnailURL: req.ThumbnailURL,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		City:         req.City,
		Status:       models.StatusInactive,
	})
	if err != nil {
		logger.WithContext(ctx).Error("Failed to create feed", "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	logger.WithContext(ctx).Info("Feed created", "feed_id", feed.ID, "name", feed.Name)
	h.writeJSONResponse(w, http.StatusCreated, feed)
}

// getFeedHandler handles GET /feeds/{id}
func (h *Handler) getFeedHandler(w http.ResponseWriter, r *http.Request) {
	feed, ok := h.loadFeed(w, r)
	if !ok {
		return
	}
	h.writeJSONResponse(w, http.StatusOK, feed)
}

type statusRequest struct {
	Status models.FeedStatus `json:"status"`
}

// setFeedStatusHandler handles PATCH /feeds/{id}/status
func (h *Handler) setFeedStatusHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Status != models.StatusActive && req.Status != models.StatusInactive {
		h.writeErrorResponse(w, r, http.StatusBadRequest,
			fmt.Sprintf("status must be %q or %q", models.StatusActive, models.StatusInactive))
		return
	}

	feed, ok := h.loadFeed(w, r)
	if !ok {
		return
	}

	var err error
	if req.Status == models.StatusActive {
		err = h.controller.Start(ctx, feed.ID)
	} else {
		err = h.controller.Stop(ctx, feed.ID)
	}
	if err != nil {
		h.writeControlError(w, r, feed.ID, err)
		return
	}

	updated, err := h.store.GetFeed(ctx, feed.ID)
	if err != nil || updated == nil {
		logger.WithContext(ctx).Error("Failed to reload feed", "error", err, "feed_id", feed.ID)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	h.writeJSONResponse(w, http.StatusOK, updated)
}

// deleteFeedHandler handles DELETE /feeds/{id}
func (h *Handler) deleteFeedHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	feed, ok := h.loadFeed(w, r)
	if !ok {
		return
	}

	if err := h.controller.Stop(ctx, feed.ID); err != nil {
		h.writeControlError(w, r, feed.ID, err)
		return
	}

	if err := h.store.DeleteFeed(ctx, feed.ID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			h.writeErrorResponse(w, r, http.StatusNotFound, "Feed not found")
			return
		}
		logger.WithContext(ctx).Error("Failed to delete feed", "error", err, "feed_id", feed.ID)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	logger.WithContext(ctx).Info("Feed deleted", "feed_id", feed.ID)
	w.WriteHeader(http.StatusNoContent)
}

// feedTranscriptionsHandler handles GET /feeds/{id}/transcriptions
func (h *Handler) feedTranscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, defaultFeedResults)
	if err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	feed, ok := h.loadFeed(w, r)
	if !ok {
		return
	}

	h.writeResults(w, r, models.ResultQuery{FeedID: feed.ID, Limit: limit})
}

// transcriptionsHandler handles GET /transcriptions
func (h *Handler) transcriptionsHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, defaultAllResults)
	if err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	q := models.ResultQuery{Limit: limit}
	if v := r.URL.Query().Get("withLocation"); v != "" {
		withLocation, err := strconv.ParseBool(v)
		if err != nil {
			h.writeErrorResponse(w, r, http.StatusBadRequest, fmt.Sprintf("invalid withLocation: %s", v))
			return
		}
		q.WithLocation = withLocation
	}

	h.writeResults(w, r, q)
}

func (h *Handler) writeResults(w http.ResponseWriter, r *http.Request, q models.ResultQuery) {
	ctx := r.Context()

	results, err := h.store.QueryResults(ctx, q)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to query transcriptions", "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	if results == nil {
		results = []models.TranscriptionResult{}
	}

	response := map[string]interface{}{
		"data":      results,
		"count":     len(results),
		"timestamp": time.Now().UTC(),
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// wsHandler upgrades the request and hands the connection to the hub
func (h *Handler) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		logger.WithContext(r.Context()).Debug("Websocket upgrade failed", "error", err)
		return
	}
	h.hub.ServeConn(r.Context(), conn)
}

// loadFeed resolves the {id} URL parameter, writing the error response
// itself when the feed cannot be returned
func (h *Handler) loadFeed(w http.ResponseWriter, r *http.Request) (*models.Feed, bool) {
	ctx := r.Context()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "feed ID must be a positive integer")
		return nil, false
	}

	feed, err := h.store.GetFeed(ctx, id)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to get feed", "error", err, "feed_id", id)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return nil, false
	}
	if feed == nil {
		h.writeErrorResponse(w, r, http.StatusNotFound, "Feed not found")
		return nil, false
	}
	return feed, true
}

func (h *Handler) writeControlError(w http.ResponseWriter, r *http.Request, feedID int64, err error) {
	switch {
	case errors.Is(err, monitor.ErrShutdown):
		h.writeErrorResponse(w, r, http.StatusServiceUnavailable, "Service is shutting down")
	case errors.Is(err, apperrors.ErrNotFound):
		h.writeErrorResponse(w, r, http.StatusNotFound, "Feed not found")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.writeErrorResponse(w, r, http.StatusGatewayTimeout, "Timed out waiting for monitor")
	default:
		logger.WithContext(r.Context()).Error("Failed to change monitor state", "error", err, "feed_id", feedID)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
	}
}

// parseLimit reads ?limit=, applying def when absent
func parseLimit(r *http.Request, def int) (int, error) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return def, nil
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return 0, fmt.Errorf("invalid limit: %s", limitStr)
	}
	if limit < 1 || limit > maxResults {
		return 0, fmt.Errorf("limit must be between 1 and %d", maxResults)
	}
	return limit, nil
}

// writeJSONResponse writes a JSON response
func (h *Handler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeErrorResponse writes a standardized error response
func (h *Handler) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	response := ErrorResponse{
		Error:     http.StatusText(statusCode),
		Message:   message,
		Timestamp: time.Now().UTC(),
		RequestID: r.Header.Get("X-Request-ID"),
	}

	h.writeJSONResponse(w, statusCode, response)
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}
