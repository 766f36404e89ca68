package history

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPersistence   = errors.New("history persistence failed")
	ErrInvalidRecord = errors.New("invalid history record")
)

const (
	DefaultTopic      = "AI Generated Quiz"
	DefaultDifficulty = "Advanced"
)

// Record is one completed quiz attempt.
type Record struct {
	ID               uuid.UUID `json:"id"`
	UserID           string    `json:"userId"`
	Topic            string    `json:"topic"`
	Difficulty       string    `json:"difficulty"`
	Score            int       `json:"score"`
	TotalQuestions   int       `json:"totalQuestions"`
	TimeSpentSeconds int       `json:"timeSpent"`
	UserAnswers      []*int    `json:"userAnswers"`
	CreatedAt        time.Time `json:"date"`
}

// Validate reports the first field that makes r unwritable. Counts are
// stored as int4, so values above math.MaxInt32 are rejected.
func (r Record) Validate() error {
	switch {
	case strings.TrimSpace(r.UserID) == "":
		return invalid("userId is required")
	case strings.TrimSpace(r.Topic) == "":
		return invalid("topic is required")
	case r.TotalQuestions < 0:
		return invalid("totalQuestions must not be negative")
	case r.TotalQuestions > math.MaxInt32:
		return invalid("totalQuestions is too large")
	case r.Score < 0 || r.Score > r.TotalQuestions:
		return invalid("score must be between 0 and totalQuestions")
	case r.TimeSpentSeconds < 0:
		return invalid("timeSpent must not be negative")
	case r.TimeSpentSeconds > math.MaxInt32:
		return invalid("timeSpent is too large")
	}
	return nil
}

// InvalidRecordError carries the validation message. It matches ErrInvalidRecord.
type InvalidRecordError struct {
	Message string
}

func (e *InvalidRecordError) Error() string {
	return ErrInvalidRecord.Error() + ": " + e.Message
}

func (e *InvalidRecordError) Is(target error) bool {
	return target == ErrInvalidRecord
}

func invalid(msg string) error {
	return &InvalidRecordError{Message: msg}
}
