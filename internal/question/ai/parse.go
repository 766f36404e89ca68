package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/gokatarajesh/quiz-practice/internal/question"
)

// ErrGenerationFormat marks generated text that is not a usable question set.
var ErrGenerationFormat = errors.New("generation format error")

// FormatError carries the parse or validation detail for a rejected
// generation. errors.Is(err, ErrGenerationFormat) holds for it.
type FormatError struct {
	Detail string
	cause  error
}

func (e *FormatError) Error() string {
	return ErrGenerationFormat.Error() + ": " + e.Detail
}

func (e *FormatError) Is(target error) bool {
	return target == ErrGenerationFormat
}

func (e *FormatError) Unwrap() error {
	return e.cause
}

func formatErr(cause error, format string, args ...interface{}) *FormatError {
	return &FormatError{Detail: fmt.Sprintf(format, args...), cause: cause}
}

// Sanitize strips C0 and C1 control characters (U+0000-U+001F, U+007F-U+009F).
func Sanitize(text string) string {
	return strings.Map(func(r rune) rune {
		if r <= 0x1F || (r >= 0x7F && r <= 0x9F) {
			return -1
		}
		return r
	}, text)
}

type wireQuiz struct {
	Questions *[]wireQuestion `json:"questions"`
}

// correct is decoded as a number so that "2.0" from the model is accepted.
type wireQuestion struct {
	Q        string   `json:"q"`
	Options  []string `json:"options"`
	Correct  *float64 `json:"correct"`
	Feedback string   `json:"feedback"`
	Fact     string   `json:"fact"`
}

// Parse sanitizes text, decodes it as a question set, and validates every
// question. Any failure rejects the whole set with a *FormatError.
func Parse(text string) ([]question.Question, error) {
	clean := Sanitize(text)

	dec := json.NewDecoder(bytes.NewReader([]byte(clean)))
	var quiz wireQuiz
	if err := dec.Decode(&quiz); err != nil {
		return nil, formatErr(err, "%v", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, formatErr(err, "unexpected data after JSON object")
	}
	if quiz.Questions == nil {
		return nil, formatErr(nil, "missing questions")
	}
	if len(*quiz.Questions) == 0 {
		return nil, formatErr(nil, "empty question list")
	}

	out := make([]question.Question, len(*quiz.Questions))
	for i, w := range *quiz.Questions {
		if w.Correct == nil {
			return nil, formatErr(nil, "question %d: missing correct index", i)
		}
		c := *w.Correct
		if c != math.Trunc(c) || c < 0 || c > math.MaxInt32 {
			return nil, formatErr(nil, "question %d: correct index %v is not a valid index", i, c)
		}
		q := question.Question{
			Text:         w.Q,
			Options:      w.Options,
			CorrectIndex: int(c),
			Feedback:     w.Feedback,
			Fact:         w.Fact,
		}
		if err := q.Validate(); err != nil {
			return nil, formatErr(err, "question %d: %v", i, err)
		}
		out[i] = q
	}
	return out, nil
}
