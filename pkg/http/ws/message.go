package ws

import "encoding/json"

// MessageType constants for WebSocket protocol.
const (
	// Client -> Server
	TypeSelectOption = "select_option"
	TypeAdvance      = "advance"
	TypeAbort        = "abort"
	TypePing         = "ping"

	// Server -> Client
	TypeSessionState     = "session_state"
	TypeQuestionTick     = "question_tick"
	TypeAnswerSelected   = "answer_selected"
	TypeQuestionAdvanced = "question_advanced"
	TypeSessionComplete  = "session_complete"
	TypeSessionAborted   = "session_aborted"
	TypeError            = "error"
	TypePong             = "pong"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage encodes payload into a typed envelope. A nil payload is omitted.
func NewMessage(msgType string, payload interface{}) (Message, error) {
	msg := Message{Type: msgType}
	if payload == nil {
		return msg, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	msg.Payload = raw
	return msg, nil
}

// Client Messages (incoming)

type SelectOptionPayload struct {
	Index *int `json:"index"`
}

// Server Messages (outgoing)

// QuestionPayload is a question as shown to the player; the answer key stays server-side.
type QuestionPayload struct {
	Index   int      `json:"index"`
	Text    string   `json:"q"`
	Options []string `json:"options"`
}

type SessionStatePayload struct {
	SessionID          string           `json:"session_id"`
	Phase              string           `json:"phase"`
	CurrentIndex       int              `json:"current_index"`
	SelectedIndex      *int             `json:"selected_index"`
	SecondsRemaining   int              `json:"seconds_remaining"`
	QuestionCount      int              `json:"question_count"`
	PerQuestionSeconds int              `json:"per_question_seconds"`
	Answered           int              `json:"answered"`
	Question           *QuestionPayload `json:"question,omitempty"`
}

type QuestionTickPayload struct {
	SessionID        string `json:"session_id"`
	QuestionIndex    int    `json:"question_index"`
	RemainingSeconds int    `json:"remaining_seconds"`
}

type AnswerSelectedPayload struct {
	SessionID     string `json:"session_id"`
	QuestionIndex int    `json:"question_index"`
	SelectedIndex int    `json:"selected_index"`
}

type QuestionAdvancedPayload struct {
	SessionID        string          `json:"session_id"`
	QuestionIndex    int             `json:"question_index"`
	RemainingSeconds int             `json:"remaining_seconds"`
	TimedOut         bool            `json:"timed_out"`
	Question         QuestionPayload `json:"question"`
}

type SessionCompletePayload struct {
	SessionID        string `json:"session_id"`
	Score            int    `json:"score"`
	TotalQuestions   int    `json:"total_questions"`
	Percentage       int    `json:"percentage"`
	AnswerTrail      []*int `json:"answer_trail"`
	TimeSpentSeconds int    `json:"time_spent_seconds"`
	TimedOut         bool   `json:"timed_out"`
}

type SessionAbortedPayload struct {
	SessionID string `json:"session_id"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
