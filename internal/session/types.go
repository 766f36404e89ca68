package session

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/gokatarajesh/quiz-practice/internal/question"
	"github.com/gokatarajesh/quiz-practice/internal/session/scoring"
)

// Phase is the coarse lifecycle stage of a session.
type Phase string

const (
	PhaseActive     Phase = "active"
	PhaseSubmitting Phase = "submitting"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidState = errors.New("invalid state")
	ErrNotFound     = errors.New("session not found")
	ErrForbidden    = errors.New("session belongs to another user")
)

// Trail re-exports the scorer's answer trail.
type Trail = scoring.Trail

// State is a point-in-time copy of a runner's session state.
type State struct {
	CurrentIndex       int   `json:"current_index"`
	SelectedIndex      *int  `json:"selected_index"`
	SecondsRemaining   int   `json:"seconds_remaining"`
	Trail              Trail `json:"trail"`
	Phase              Phase `json:"phase"`
	QuestionCount      int   `json:"question_count"`
	PerQuestionSeconds int   `json:"per_question_seconds"`
	Aborted            bool  `json:"aborted"`
}

// Result is emitted once, at the active to submitting transition.
type Result struct {
	Score            int   `json:"score"`
	TotalQuestions   int   `json:"total_questions"`
	AnswerTrail      Trail `json:"answer_trail"`
	TimeSpentSeconds int   `json:"time_spent_seconds"`
}

// EventType names a runner state change.
type EventType string

const (
	EventTick      EventType = "tick"
	EventSelected  EventType = "selected"
	EventAdvanced  EventType = "advanced"
	EventCompleted EventType = "completed"
	EventAborted   EventType = "aborted"
)

// Event describes one state change. Result is set only for EventCompleted.
// TimedOut marks advances and completions triggered by the deadline.
type Event struct {
	Type     EventType
	State    State
	Result   *Result
	TimedOut bool
}

// Meta is caller-supplied context carried through to persistence.
type Meta struct {
	UserID     string `json:"user_id,omitempty"`
	QuizID     string `json:"quiz_id"`
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty,omitempty"`
}

// StartRequest describes a new session.
type StartRequest struct {
	Quiz               question.Quiz
	PerQuestionSeconds int
	Meta               Meta
}

// Completion is handed to the Recorder when a session finishes.
type Completion struct {
	SessionID   uuid.UUID
	Meta        Meta
	Result      Result
	CompletedAt time.Time
}
