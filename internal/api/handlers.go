package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"compass.dev/tracker/internal/core"
	"compass.dev/tracker/internal/metrics"
)

const (
	defaultTrendDays = 30
	maxTrendDays     = 365
)

type APIHandler struct {
	tracker   *core.TrackerService
	summaries *core.SummaryService
	logger    *zap.Logger
}

func NewAPIHandler(tracker *core.TrackerService, summaries *core.SummaryService, logger *zap.Logger) *APIHandler {
	return &APIHandler{tracker: tracker, summaries: summaries, logger: logger}
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *APIHandler) ListMetricsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tracker.Catalog())
}

type CreateUserRequest struct {
	Name string `json:"name"`
}

func (h *APIHandler) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.tracker.CreateUser(r.Context(), req.Name)
	if err != nil {
		h.fail(w, r, "Failed to create user", err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *APIHandler) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.tracker.ListUsers(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list users", err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *APIHandler) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	user, err := h.tracker.GetUser(r.Context(), userID)
	if err != nil {
		h.fail(w, r, "Failed to get user", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *APIHandler) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	view, err := h.tracker.Dashboard(r.Context(), userID)
	if err != nil {
		h.fail(w, r, "Failed to build dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type SubmitEntriesRequest struct {
	Values map[string]any `json:"values"`
	// Timestamp is optional, RFC 3339. Defaults to now.
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type SubmitEntriesResponse struct {
	Results []core.SubmitResult `json:"results"`
}

func (h *APIHandler) SubmitEntriesHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	var req SubmitEntriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Values == nil {
		req.Values = map[string]any{}
	}

	results, err := h.tracker.Submit(r.Context(), userID, req.Values, req.Timestamp)
	if err != nil {
		h.fail(w, r, "Failed to record entries", err)
		return
	}
	if results == nil {
		results = []core.SubmitResult{}
	}
	writeJSON(w, http.StatusOK, SubmitEntriesResponse{Results: results})
}

func (h *APIHandler) TrendsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	days, ok := daysParam(w, r)
	if !ok {
		return
	}

	trends, err := h.tracker.Trends(r.Context(), userID, days)
	if err != nil {
		h.fail(w, r, "Failed to compute trends", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": days, "metrics": trends})
}

type SetMetricRequest struct {
	Enabled bool `json:"enabled"`
}

func (h *APIHandler) SetMetricHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	metricName := chi.URLParam(r, "metricName")

	var req SetMetricRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.tracker.SetMetricEnabled(r.Context(), userID, metricName, req.Enabled); err != nil {
		h.fail(w, r, "Failed to update metric", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type AskRequest struct {
	Question string `json:"question"`
}

func (h *APIHandler) AskHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		http.Error(w, "Question cannot be empty", http.StatusBadRequest)
		return
	}
	if _, err := h.tracker.GetUser(r.Context(), userID); err != nil {
		h.fail(w, r, "Failed to answer question", err)
		return
	}

	writeJSON(w, http.StatusOK, h.summaries.AnswerQuestion(r.Context(), userID, req.Question))
}

func (h *APIHandler) AnalysisHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	days, ok := daysParam(w, r)
	if !ok {
		return
	}
	if _, err := h.tracker.GetUser(r.Context(), userID); err != nil {
		h.fail(w, r, "Failed to analyze trend", err)
		return
	}

	answer, err := h.summaries.AnalyzeTrend(r.Context(), userID, chi.URLParam(r, "metricName"), days)
	if err != nil {
		h.fail(w, r, "Failed to analyze trend", err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

// fail maps domain errors onto status codes. Anything unrecognized is logged
// and reported as a 500 with msg.
func (h *APIHandler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, core.ErrUserNotFound), errors.Is(err, metrics.ErrMetricNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, core.ErrUserExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, core.ErrInvalidUserName), errors.Is(err, metrics.ErrInvalidValue):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error(msg, zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, msg, http.StatusInternalServerError)
	}
}

func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func daysParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return defaultTrendDays, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 || days > maxTrendDays {
		http.Error(w, "days must be between 1 and 365", http.StatusBadRequest)
		return 0, false
	}
	return days, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
