package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-practice/internal/auth"
	"github.com/gokatarajesh/quiz-practice/internal/logging"
	"github.com/gokatarajesh/quiz-practice/internal/question"
	"github.com/gokatarajesh/quiz-practice/internal/session/scoring"
	httperrors "github.com/gokatarajesh/quiz-practice/pkg/http/errors"
	"github.com/gokatarajesh/quiz-practice/pkg/http/ws"
)

// QuizResolver looks up the question set a session runs over.
type QuizResolver interface {
	Resolve(ctx context.Context, src question.Source) (question.Quiz, error)
}

// HTTPHandlers provides REST endpoints for practice sessions.
type HTTPHandlers struct {
	manager *Manager
	quizzes QuizResolver
	logger  zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for session endpoints.
func NewHTTPHandlers(manager *Manager, quizzes QuizResolver, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		manager: manager,
		quizzes: quizzes,
		logger:  logger.With().Str("component", "session_http").Logger(),
	}
}

// Register mounts the session routes on mux.
func (h *HTTPHandlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/sessions", h.Start)
	mux.HandleFunc("GET /v1/sessions/{id}", h.Get)
	mux.HandleFunc("POST /v1/sessions/{id}/select", h.Select)
	mux.HandleFunc("POST /v1/sessions/{id}/advance", h.Advance)
	mux.HandleFunc("DELETE /v1/sessions/{id}", h.Abort)
	mux.HandleFunc("GET /v1/sessions/{id}/result", h.Result)
}

// StartRequestBody is the POST /v1/sessions payload.
type StartRequestBody struct {
	SubjectID          string `json:"subject_id"`
	QuizID             string `json:"quiz_id"`
	PerQuestionSeconds int    `json:"per_question_seconds"`
	UserID             string `json:"user_id"`
	Difficulty         string `json:"difficulty"`
}

// SelectRequestBody is the POST /v1/sessions/{id}/select payload.
type SelectRequestBody struct {
	Index *int `json:"index"`
}

// SessionView is a session snapshot plus the question being answered.
type SessionView struct {
	SessionID string `json:"session_id"`
	QuizID    string `json:"quiz_id"`
	Topic     string `json:"topic"`
	State
	Question *ws.QuestionPayload `json:"question,omitempty"`
}

// ResultView is the final result with per-question review.
type ResultView struct {
	SessionID string `json:"session_id"`
	Result
	Percentage int                  `json:"percentage"`
	Motivation string               `json:"motivation"`
	Review     []scoring.ReviewItem `json:"review"`
}

// Start handles POST /v1/sessions
func (h *HTTPHandlers) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if req.PerQuestionSeconds < 0 {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "per_question_seconds must be positive", "per_question_seconds")
		return
	}
	if req.Difficulty != "" && !question.ValidDifficulty(req.Difficulty) {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "difficulty must be easy, medium, hard or god", "difficulty")
		return
	}

	quiz, err := h.quizzes.Resolve(r.Context(), question.Source{SubjectID: req.SubjectID, QuizID: req.QuizID})
	if err != nil {
		h.respondQuizError(w, r, err)
		return
	}

	userID := auth.UserID(r.Context())
	if userID == "" {
		userID = req.UserID
	}

	id, _, err := h.manager.Start(r.Context(), StartRequest{
		Quiz:               quiz,
		PerQuestionSeconds: req.PerQuestionSeconds,
		Meta: Meta{
			UserID:     userID,
			Difficulty: req.Difficulty,
		},
	})
	if err != nil {
		h.respondSessionError(w, r, err)
		return
	}

	view, err := h.view(id)
	if err != nil {
		h.respondSessionError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, view)
}

// Get handles GET /v1/sessions/{id}
func (h *HTTPHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	view, err := h.view(id)
	if err != nil {
		h.respondSessionError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Select handles POST /v1/sessions/{id}/select
func (h *HTTPHandlers) Select(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	var req SelectRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if req.Index == nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "index is required", "index")
		return
	}

	if _, err := h.manager.Select(id, *req.Index); err != nil {
		h.respondSessionError(w, r, err)
		return
	}
	view, err := h.view(id)
	if err != nil {
		h.respondSessionError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Advance handles POST /v1/sessions/{id}/advance
func (h *HTTPHandlers) Advance(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	if _, err := h.manager.Advance(id); err != nil {
		h.respondSessionError(w, r, err)
		return
	}
	view, err := h.view(id)
	if err != nil {
		h.respondSessionError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Abort handles DELETE /v1/sessions/{id}
func (h *HTTPHandlers) Abort(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	if err := h.manager.Abort(id); err != nil {
		h.respondSessionError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Result handles GET /v1/sessions/{id}/result
func (h *HTTPHandlers) Result(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	res, err := h.manager.Result(id)
	if err != nil {
		h.respondSessionError(w, r, err)
		return
	}
	questions, _, err := h.manager.Questions(id)
	if err != nil {
		h.respondSessionError(w, r, err)
		return
	}
	review, err := scoring.Review(questions, res.AnswerTrail)
	if err != nil {
		h.respondSessionError(w, r, err)
		return
	}

	pct := scoring.Percentage(res.Score, res.TotalQuestions)
	respondJSON(w, http.StatusOK, ResultView{
		SessionID:  id.String(),
		Result:     res,
		Percentage: pct,
		Motivation: scoring.Motivation(pct),
		Review:     review,
	})
}

func (h *HTTPHandlers) view(id uuid.UUID) (SessionView, error) {
	st, err := h.manager.State(id)
	if err != nil {
		return SessionView{}, err
	}
	questions, meta, err := h.manager.Questions(id)
	if err != nil {
		return SessionView{}, err
	}
	return SessionView{
		SessionID: id.String(),
		QuizID:    meta.QuizID,
		Topic:     meta.Topic,
		State:     st,
		Question:  currentQuestion(st, questions),
	}, nil
}

// currentQuestion returns the question on screen, or nil once submitted.
func currentQuestion(st State, questions []question.Question) *ws.QuestionPayload {
	if st.Phase != PhaseActive || st.Aborted || st.CurrentIndex >= len(questions) {
		return nil
	}
	q := questions[st.CurrentIndex]
	return &ws.QuestionPayload{
		Index:   st.CurrentIndex,
		Text:    q.Text,
		Options: q.Options,
	}
}

func sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidSessionID, "Invalid session id")
		return uuid.Nil, false
	}
	return id, true
}

// ownedSession parses the path id and rejects callers who do not own the
// session.
func (h *HTTPHandlers) ownedSession(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := sessionID(w, r)
	if !ok {
		return uuid.Nil, false
	}
	if err := h.manager.Authorize(id, auth.UserID(r.Context())); err != nil {
		h.respondSessionError(w, r, err)
		return uuid.Nil, false
	}
	return id, true
}

func (h *HTTPHandlers) respondSessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, "Session not found")
	case errors.Is(err, ErrForbidden):
		httperrors.RespondError(w, http.StatusForbidden, httperrors.ErrCodeForbidden, "Session belongs to another user")
	case errors.Is(err, ErrInvalidInput), errors.Is(err, scoring.ErrInvalidInput):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeValidationFailed, err.Error())
	case errors.Is(err, ErrInvalidState):
		httperrors.RespondConflict(w, httperrors.ErrCodeInvalidState, err.Error())
	case errors.Is(err, ErrClosed):
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeServiceUnavailable, "Server is shutting down")
	default:
		logger := logging.FromContext(r.Context())
		logger.Error().Err(err).Msg("session request failed")
		httperrors.RespondInternalError(w, "Session request failed")
	}
}

func (h *HTTPHandlers) respondQuizError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, question.ErrInvalidSource):
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, err.Error(), "subject_id")
	case errors.Is(err, question.ErrSubjectNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeSubjectNotFound, "Subject not found")
	case errors.Is(err, question.ErrQuizNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeQuizNotFound, "Quiz not found or expired")
	default:
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("failed to resolve quiz")
		httperrors.RespondError(w, http.StatusBadGateway, httperrors.ErrCodeUpstreamError, "Failed to load quiz")
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
