package ai

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/quiz-practice/internal/question"
)

func TestSanitizeRemovesControlCharacters(t *testing.T) {
	in := "a\u0000b\u001Fc\u007Fd\u0085e\u009Ff\nline\ttab"
	assert.Equal(t, "abcdeflinetab", Sanitize(in))
}

func TestSanitizeKeepsPrintableUnicode(t *testing.T) {
	in := "Δx · ∫f(x)dx = π²  \\frac{1}{2}"
	assert.Equal(t, in, Sanitize(in))
}

func TestSanitizeIsIdempotent(t *testing.T) {
	in := "{\"q\":\"x\u0007y\"}\r\n"
	once := Sanitize(in)
	assert.Equal(t, once, Sanitize(once))
}

func TestParseAcceptsControlCharacterNoise(t *testing.T) {
	raw := "{\n\t\"questions\": [{\"q\": \"What is 2+2?\u0002\", \"options\": [\"3\",\"4\"], \"correct\": 1, \"feedback\": \"f\", \"fact\": \"x\"}]\n}"

	qs, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, question.Question{
		Text:         "What is 2+2?",
		Options:      []string{"3", "4"},
		CorrectIndex: 1,
		Feedback:     "f",
		Fact:         "x",
	}, qs[0])
}

func TestParseAcceptsIntegralFloatIndex(t *testing.T) {
	qs, err := Parse(`{"questions":[{"q":"q","options":["a","b","c"],"correct":2.0,"feedback":"","fact":""}]}`)
	require.NoError(t, err)
	assert.Equal(t, 2, qs[0].CorrectIndex)
}

func TestParseRejections(t *testing.T) {
	cases := map[string]string{
		"not json":          `Sure! Here is your quiz:`,
		"truncated":         `{"questions":[{"q":"x"`,
		"missing questions": `{"items":[]}`,
		"empty list":        `{"questions":[]}`,
		"out of range":      `{"questions":[{"q":"q","options":["a","b"],"correct":2}]}`,
		"negative":          `{"questions":[{"q":"q","options":["a","b"],"correct":-1}]}`,
		"fractional":        `{"questions":[{"q":"q","options":["a","b"],"correct":0.5}]}`,
		"missing correct":   `{"questions":[{"q":"q","options":["a","b"]}]}`,
		"one option":        `{"questions":[{"q":"q","options":["a"],"correct":0}]}`,
		"empty text":        `{"questions":[{"q":" ","options":["a","b"],"correct":0}]}`,
		"trailing data":     `{"questions":[{"q":"q","options":["a","b"],"correct":0}]} {}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			qs, err := Parse(raw)
			assert.Nil(t, qs)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrGenerationFormat)

			var fe *FormatError
			require.True(t, errors.As(err, &fe))
			assert.NotEmpty(t, fe.Detail)
		})
	}
}

func TestParseIsAllOrNothing(t *testing.T) {
	raw := `{"questions":[
		{"q":"good","options":["a","b"],"correct":0},
		{"q":"bad","options":["a","b"],"correct":5}
	]}`
	qs, err := Parse(raw)
	assert.Nil(t, qs)
	assert.ErrorIs(t, err, ErrGenerationFormat)
}
