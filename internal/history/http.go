package history

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-practice/internal/auth"
	"github.com/gokatarajesh/quiz-practice/internal/metrics"
	httperrors "github.com/gokatarajesh/quiz-practice/pkg/http/errors"
)

// HTTPHandlers serves the history endpoints.
type HTTPHandlers struct {
	repo        *Repository
	metrics     *metrics.Collector
	logger      zerolog.Logger
	requireAuth bool
}

// Option configures HTTPHandlers.
type Option func(*HTTPHandlers)

// WithRequiredAuth rejects requests that carry no verified token with 401.
func WithRequiredAuth() Option {
	return func(h *HTTPHandlers) {
		h.requireAuth = true
	}
}

func NewHTTPHandlers(repo *Repository, collector *metrics.Collector, logger zerolog.Logger, opts ...Option) *HTTPHandlers {
	h := &HTTPHandlers{
		repo:    repo,
		metrics: collector,
		logger:  logger.With().Str("component", "history_http").Logger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the history routes on mux.
func (h *HTTPHandlers) Register(mux *http.ServeMux) {
	mux.Handle("POST /api/quiz/save-history", h.guard(h.Save))
	mux.Handle("GET /api/quiz/history/{userId}", h.guard(h.List))
}

func (h *HTTPHandlers) guard(fn http.HandlerFunc) http.Handler {
	if h.requireAuth {
		return auth.RequireAuth(fn)
	}
	return fn
}

// SaveRequest is the POST /api/quiz/save-history payload.
type SaveRequest struct {
	UserID         string `json:"userId"`
	Topic          string `json:"topic"`
	Score          int    `json:"score"`
	TotalQuestions int    `json:"totalQuestions"`
	TimeSpent      int    `json:"timeSpent"`
	Difficulty     string `json:"difficulty"`
	UserAnswers    []*int `json:"userAnswers"`
}

// Save handles POST /api/quiz/save-history.
func (h *HTTPHandlers) Save(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if uid := auth.UserID(r.Context()); uid != "" {
		req.UserID = uid
	}

	var invalidErr *InvalidRecordError
	_, err := h.repo.Save(r.Context(), Record{
		UserID:           req.UserID,
		Topic:            req.Topic,
		Difficulty:       req.Difficulty,
		Score:            req.Score,
		TotalQuestions:   req.TotalQuestions,
		TimeSpentSeconds: req.TimeSpent,
		UserAnswers:      req.UserAnswers,
	})
	switch {
	case errors.As(err, &invalidErr):
		h.metrics.HistoryWrite(metrics.OutcomeInvalid)
		httperrors.RespondBadRequest(w, httperrors.ErrCodeValidationFailed, invalidErr.Message)
		return
	case err != nil:
		h.metrics.HistoryWrite(metrics.OutcomeError)
		h.logger.Error().Err(err).Str("user_id", req.UserID).Msg("failed to save history")
		httperrors.RespondErrorWithDetails(w, http.StatusInternalServerError, httperrors.ErrCodeHistorySaveFailed, "", err.Error())
		return
	}

	h.metrics.HistoryWrite(metrics.OutcomeOK)
	respondJSON(w, http.StatusOK, map[string]string{"message": "History saved successfully!"})
}

// List handles GET /api/quiz/history/{userId}?limit=n.
func (h *HTTPHandlers) List(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if uid := auth.UserID(r.Context()); uid != "" && uid != userID {
		httperrors.RespondError(w, http.StatusForbidden, httperrors.ErrCodeForbidden, "Cannot read another user's history")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "limit must be a non-negative integer", "limit")
			return
		}
		limit = n
	}

	records, err := h.repo.ListByUser(r.Context(), userID, limit)
	switch {
	case errors.Is(err, ErrInvalidRecord):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeValidationFailed, "userId is required")
		return
	case err != nil:
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to fetch history")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeHistoryFetchFailed, "Failed to fetch history")
		return
	}
	respondJSON(w, http.StatusOK, records)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
