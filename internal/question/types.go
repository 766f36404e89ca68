package question

import (
	"errors"
	"fmt"
	"strings"
)

// Difficulty constants for readability.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
	DifficultyGod    = "god"
)

var (
	ErrSubjectNotFound = errors.New("subject not found")
	ErrQuizNotFound    = errors.New("quiz not found")
	ErrInvalidSource   = errors.New("exactly one of subject_id or quiz_id is required")
	ErrInvalidQuestion = errors.New("invalid question")
)

// ValidDifficulty reports whether d is one of the supported difficulty levels.
func ValidDifficulty(d string) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyGod:
		return true
	default:
		return false
	}
}

// Question is a single multiple-choice item. The JSON shape matches the
// generation schema so catalog and generated questions share one wire form.
type Question struct {
	Text         string   `json:"q" yaml:"q"`
	Options      []string `json:"options" yaml:"options"`
	CorrectIndex int      `json:"correct" yaml:"correct"`
	Feedback     string   `json:"feedback,omitempty" yaml:"feedback,omitempty"`
	Fact         string   `json:"fact,omitempty" yaml:"fact,omitempty"`
}

// Validate checks the question is answerable.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: empty text", ErrInvalidQuestion)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: need at least 2 options, got %d", ErrInvalidQuestion, len(q.Options))
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return fmt.Errorf("%w: correct index %d outside [0,%d)", ErrInvalidQuestion, q.CorrectIndex, len(q.Options))
	}
	return nil
}

// ValidateAll validates every question, reporting the first failing position.
func ValidateAll(questions []Question) error {
	for i, q := range questions {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i, err)
		}
	}
	return nil
}

// Quiz is an ordered question set ready to be played.
type Quiz struct {
	ID         string     `json:"id"`
	Topic      string     `json:"topic"`
	Difficulty string     `json:"difficulty,omitempty"`
	Questions  []Question `json:"questions"`
}

// Source selects where a quiz comes from: the static catalog or the generated cache.
type Source struct {
	SubjectID string
	QuizID    string
}
