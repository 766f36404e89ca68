package scoring

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/quiz-practice/internal/question"
)

func questionsWithKeys(keys ...int) []question.Question {
	qs := make([]question.Question, len(keys))
	for i, k := range keys {
		qs[i] = question.Question{
			Text:         "q",
			Options:      []string{"a", "b", "c", "d"},
			CorrectIndex: k,
		}
	}
	return qs
}

func TestScoreScenario(t *testing.T) {
	qs := questionsWithKeys(1, 0, 2)
	trail := Trail{Choice(1), Choice(0), nil}

	score, err := Score(qs, trail)
	require.NoError(t, err)
	assert.Equal(t, 2, score)
}

func TestScoreUnansweredNeverCounts(t *testing.T) {
	qs := questionsWithKeys(0, 0, 0)
	score, err := Score(qs, Trail{nil, nil, nil})
	require.NoError(t, err)
	assert.Zero(t, score)
}

func TestScoreLengthMismatch(t *testing.T) {
	_, err := Score(questionsWithKeys(0, 1), Trail{Choice(0)})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestScoreBoundsAndDeterminism(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 200; round++ {
		n := 1 + rng.Intn(20)
		keys := make([]int, n)
		trail := make(Trail, n)
		for i := range keys {
			keys[i] = rng.Intn(4)
			if rng.Intn(3) > 0 {
				trail[i] = Choice(rng.Intn(4))
			}
		}
		qs := questionsWithKeys(keys...)

		first, err := Score(qs, trail)
		require.NoError(t, err)
		second, err := Score(qs, trail.Clone())
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.GreaterOrEqual(t, first, 0)
		assert.LessOrEqual(t, first, n)
	}
}

func TestTrailCloneIsDeep(t *testing.T) {
	trail := Trail{Choice(1), nil}
	clone := trail.Clone()
	*clone[0] = 3

	assert.Equal(t, 1, *trail[0])
	assert.Nil(t, clone[1])
}

func TestPercentageAndMotivation(t *testing.T) {
	assert.Equal(t, 67, Percentage(2, 3))
	assert.Equal(t, 0, Percentage(0, 0))
	assert.Equal(t, 100, Percentage(5, 5))

	assert.Contains(t, Motivation(100), "Perfect")
	assert.Contains(t, Motivation(70), "Great job")
	assert.Contains(t, Motivation(69), "everyone starts somewhere")
}

func TestReview(t *testing.T) {
	qs := questionsWithKeys(1, 0)
	qs[0].Feedback = "Because b."
	qs[1].Fact = "Fun fact"

	items, err := Review(qs, Trail{Choice(1), nil})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.True(t, items[0].IsCorrect)
	assert.Equal(t, "Because b.", items[0].Feedback)

	assert.False(t, items[1].IsCorrect)
	assert.Nil(t, items[1].Selected)
	assert.Contains(t, items[1].Feedback, "You selected nothing")
	assert.Equal(t, "Fun fact", items[1].Fact)

	_, err = Review(qs, Trail{nil})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
