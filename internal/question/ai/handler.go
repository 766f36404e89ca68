package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-practice/internal/logging"
	"github.com/gokatarajesh/quiz-practice/internal/question"
	httperrors "github.com/gokatarajesh/quiz-practice/pkg/http/errors"
)

// QuizStore keeps generated quizzes so a session can be started from their id.
type QuizStore interface {
	Store(ctx context.Context, quiz question.Quiz) error
}

// Handler serves POST /api/quiz/generate.
type Handler struct {
	generator *Generator
	store     QuizStore
	logger    zerolog.Logger
}

// NewHandler creates the generate endpoint. store may be nil.
func NewHandler(generator *Generator, store QuizStore, logger zerolog.Logger) *Handler {
	return &Handler{
		generator: generator,
		store:     store,
		logger:    logger.With().Str("component", "ai_http").Logger(),
	}
}

// GenerateResponse is the 200 body. ID is empty when the quiz could not be cached.
type GenerateResponse struct {
	ID        string              `json:"id,omitempty"`
	Questions []question.Question `json:"questions"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	quiz, err := h.generator.Generate(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	resp := GenerateResponse{Questions: quiz.Questions}
	if h.store != nil {
		id := uuid.NewString()
		stored := question.Quiz{
			ID:         id,
			Topic:      req.Topic,
			Difficulty: req.Difficulty,
			Questions:  quiz.Questions,
		}
		if err := h.store.Store(r.Context(), stored); err != nil {
			logger := logging.FromContext(r.Context())
			logger.Warn().Err(err).Msg("failed to cache generated quiz")
		} else {
			resp.ID = id
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *ValidationError
	var fe *FormatError
	switch {
	case errors.As(err, &ve):
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, ve.Message, ve.Field)
	case errors.Is(err, ErrGeneratorUnavailable):
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeGeneratorUnavailable, "Quiz generation is not configured")
	case errors.As(err, &fe):
		httperrors.RespondErrorWithDetails(w, http.StatusInternalServerError, httperrors.ErrCodeGenerationFormat, "", fe.Detail)
	default:
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("quiz generation failed")
		httperrors.RespondErrorWithDetails(w, http.StatusInternalServerError, httperrors.ErrCodeGenerationFailed, "", err.Error())
	}
}
