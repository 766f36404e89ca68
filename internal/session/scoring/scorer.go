package scoring

import (
	"errors"
	"fmt"
	"math"

	"github.com/gokatarajesh/quiz-practice/internal/question"
)

// ErrInvalidInput is returned when the trail does not line up with the question list.
var ErrInvalidInput = errors.New("invalid input")

// Trail is the ordered record of committed answers, one per question.
// A nil entry means the question was skipped or timed out.
type Trail []*int

// Choice returns a trail entry for option index i.
func Choice(i int) *int {
	return &i
}

// Clone returns a deep copy so callers cannot mutate a frozen trail.
func (t Trail) Clone() Trail {
	if t == nil {
		return nil
	}
	out := make(Trail, len(t))
	for i, v := range t {
		if v != nil {
			out[i] = Choice(*v)
		}
	}
	return out
}

// Score counts positions where the committed answer equals the correct index.
// Unanswered entries never count. No partial credit or negative marking.
func Score(questions []question.Question, trail Trail) (int, error) {
	if len(questions) != len(trail) {
		return 0, fmt.Errorf("%w: %d questions but %d answers", ErrInvalidInput, len(questions), len(trail))
	}
	score := 0
	for i, ans := range trail {
		if ans != nil && *ans == questions[i].CorrectIndex {
			score++
		}
	}
	return score, nil
}

// Percentage rounds score/total to the nearest whole percent.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(total) * 100))
}

// Motivation picks the closing message shown with a result.
func Motivation(percentage int) string {
	switch {
	case percentage >= 100:
		return "Perfect score! You've mastered these concepts. Keep up this incredible momentum!"
	case percentage >= 70:
		return "Great job! You have a solid grasp of the material, just a few small gaps to plug."
	default:
		return "Don't worry, everyone starts somewhere. Understanding these fundamental blocks is the first step toward mastery."
	}
}
