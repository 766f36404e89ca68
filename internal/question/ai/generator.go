package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-practice/internal/metrics"
	"github.com/gokatarajesh/quiz-practice/internal/question"
)

var (
	ErrInvalidRequest       = errors.New("invalid generation request")
	ErrGeneratorUnavailable = errors.New("quiz generator not configured")
)

// ValidationError names the request field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// TextGenerator is the text-generation backend.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Request asks for a quiz on a topic.
type Request struct {
	Topic      string `json:"topic"`
	Count      int    `json:"count"`
	Difficulty string `json:"difficulty"`
}

// GeneratedQuiz is a validated question set.
type GeneratedQuiz struct {
	Questions []question.Question `json:"questions"`
}

// Config bounds generation requests.
type Config struct {
	MinQuestions int
	MaxQuestions int
	ExamName     string
}

// Generator turns a Request into a validated question set using one backend call.
type Generator struct {
	backend TextGenerator
	cfg     Config
	metrics *metrics.Collector
	logger  zerolog.Logger
}

// NewGenerator builds a generator. A nil backend makes every Generate call
// fail with ErrGeneratorUnavailable.
func NewGenerator(backend TextGenerator, cfg Config, collector *metrics.Collector, logger zerolog.Logger) *Generator {
	if cfg.MinQuestions <= 0 {
		cfg.MinQuestions = 5
	}
	if cfg.MaxQuestions < cfg.MinQuestions {
		cfg.MaxQuestions = 50
	}
	if cfg.ExamName == "" {
		cfg.ExamName = "JEE Advanced"
	}
	return &Generator{
		backend: backend,
		cfg:     cfg,
		metrics: collector,
		logger:  logger.With().Str("component", "ai_generator").Logger(),
	}
}

// Available reports whether a backend is configured.
func (g *Generator) Available() bool {
	return g.backend != nil
}

// Validate checks req against the configured bounds.
func (g *Generator) Validate(req Request) error {
	if strings.TrimSpace(req.Topic) == "" {
		return &ValidationError{Field: "topic", Message: "topic is required"}
	}
	if req.Count < g.cfg.MinQuestions || req.Count > g.cfg.MaxQuestions {
		return &ValidationError{
			Field:   "count",
			Message: fmt.Sprintf("count must be between %d and %d", g.cfg.MinQuestions, g.cfg.MaxQuestions),
		}
	}
	if !question.ValidDifficulty(req.Difficulty) {
		return &ValidationError{Field: "difficulty", Message: "difficulty must be easy, medium, hard or god"}
	}
	return nil
}

// Prompt renders the generation prompt for req.
func (g *Generator) Prompt(req Request) string {
	return fmt.Sprintf(
		"Generate a %s quiz on \"%s\". Difficulty: %s. Questions: %d. Ensure all mathematical notation uses standard text or LaTeX.",
		g.cfg.ExamName, strings.TrimSpace(req.Topic), req.Difficulty, req.Count,
	)
}

// Generate validates req, calls the backend once, and parses the reply.
func (g *Generator) Generate(ctx context.Context, req Request) (GeneratedQuiz, error) {
	if err := g.Validate(req); err != nil {
		g.metrics.Generation(metrics.OutcomeInvalid, 0)
		return GeneratedQuiz{}, err
	}
	if g.backend == nil {
		return GeneratedQuiz{}, ErrGeneratorUnavailable
	}

	start := time.Now()
	text, err := g.backend.GenerateText(ctx, g.Prompt(req))
	took := time.Since(start)
	if err != nil {
		g.metrics.Generation(metrics.OutcomeBackendErr, took)
		return GeneratedQuiz{}, fmt.Errorf("generate quiz: %w", err)
	}

	questions, err := Parse(text)
	if err != nil {
		g.metrics.Generation(metrics.OutcomeFormatError, took)
		g.logger.Warn().Err(err).
			Str("topic", req.Topic).
			Int("response_bytes", len(text)).
			Msg("generated quiz rejected")
		return GeneratedQuiz{}, err
	}

	g.metrics.Generation(metrics.OutcomeOK, took)
	if len(questions) != req.Count {
		g.logger.Debug().Int("requested", req.Count).Int("received", len(questions)).Msg("question count differs from request")
	}
	return GeneratedQuiz{Questions: questions}, nil
}
