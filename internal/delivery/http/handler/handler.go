package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/user/contact-scraper/internal/delivery/http/response"
	"github.com/user/contact-scraper/internal/entity"
)

const (
	defaultTopQueries = 5
	maxTopQueries     = 100
)

// RunStats exposes the counters of the run in progress.
type RunStats interface {
	RunID() string
	Snapshot() entity.RunSnapshot
}

// StoreStats is the read side of the store used by the status endpoints.
type StoreStats interface {
	Ping(ctx context.Context) error
	GetStats(ctx context.Context, topN int) (entity.StoreStats, error)
}

type Handler struct {
	dataset string
	run     RunStats
	store   StoreStats
	now     func() time.Time
}

// NewHandler builds the status handler. run may be nil when no scrape is running.
func NewHandler(dataset string, run RunStats, store StoreStats) *Handler {
	return &Handler{
		dataset: dataset,
		run:     run,
		store:   store,
		now:     time.Now,
	}
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		slog.Warn("Store health check failed", "error", err)
		h.writeJSON(w, http.StatusServiceUnavailable, response.HealthResponse{Status: "degraded", Store: "unreachable"})
		return
	}
	h.writeJSON(w, http.StatusOK, response.HealthResponse{Status: "ok", Store: "ok"})
}

func (h *Handler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	top := defaultTopQueries
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > maxTopQueries {
			h.writeJSONError(w, "top must be an integer between 0 and 100", http.StatusBadRequest)
			return
		}
		top = n
	}

	stored, err := h.store.GetStats(r.Context(), top)
	if err != nil {
		slog.Error("Failed to get store stats", "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := response.StatsResponse{Dataset: h.dataset, Store: stored}
	if h.run != nil {
		s := h.run.Snapshot()
		resp.Run = &response.RunResponse{
			RunID:         h.run.RunID(),
			TotalQueries:  s.TotalQueries,
			Completed:     s.Completed,
			Failed:        s.Failed,
			Blocked:       s.Blocked,
			TotalContacts: s.TotalContacts,
			Duplicates:    s.Duplicates,
			StartTime:     s.StartTime,
			Elapsed:       h.now().Sub(s.StartTime).Round(time.Second).String(),
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, response.ErrorResponse{Error: message})
}
