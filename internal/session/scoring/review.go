package scoring

import (
	"fmt"

	"github.com/gokatarajesh/quiz-practice/internal/question"
)

// ReviewItem is the per-question feedback rendered on the results page.
type ReviewItem struct {
	Index     int      `json:"index"`
	Question  string   `json:"question"`
	Options   []string `json:"options"`
	Selected  *int     `json:"selected"`
	Correct   int      `json:"correct"`
	IsCorrect bool     `json:"is_correct"`
	Feedback  string   `json:"feedback"`
	Fact      string   `json:"fact,omitempty"`
}

// Review pairs every question with the committed answer.
func Review(questions []question.Question, trail Trail) ([]ReviewItem, error) {
	if len(questions) != len(trail) {
		return nil, fmt.Errorf("%w: %d questions but %d answers", ErrInvalidInput, len(questions), len(trail))
	}
	items := make([]ReviewItem, len(questions))
	for i, q := range questions {
		var selected *int
		if trail[i] != nil {
			selected = Choice(*trail[i])
		}
		isCorrect := selected != nil && *selected == q.CorrectIndex
		items[i] = ReviewItem{
			Index:     i,
			Question:  q.Text,
			Options:   q.Options,
			Selected:  selected,
			Correct:   q.CorrectIndex,
			IsCorrect: isCorrect,
			Feedback:  feedbackFor(q, selected, isCorrect),
			Fact:      q.Fact,
		}
	}
	return items, nil
}

func feedbackFor(q question.Question, selected *int, isCorrect bool) string {
	if q.Feedback != "" {
		return q.Feedback
	}
	correct := optionText(q, q.CorrectIndex)
	if isCorrect {
		return fmt.Sprintf("Correct. %s is the right answer.", correct)
	}
	picked := "nothing"
	if selected != nil {
		picked = optionText(q, *selected)
	}
	return fmt.Sprintf("Not quite. You selected %s, but the correct answer is %s.", picked, correct)
}

func optionText(q question.Question, i int) string {
	if i < 0 || i >= len(q.Options) {
		return fmt.Sprintf("option %d", i)
	}
	return q.Options[i]
}
