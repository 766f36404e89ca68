package history

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/quiz-practice/internal/metrics"
	"github.com/gokatarajesh/quiz-practice/internal/session"
)

func completion(userID, topic string) session.Completion {
	return session.Completion{
		SessionID: uuid.New(),
		Meta:      session.Meta{UserID: userID, QuizID: "subject:physics", Topic: topic, Difficulty: "medium"},
		Result: session.Result{
			Score:            2,
			TotalQuestions:   3,
			AnswerTrail:      session.Trail{intp(1), nil, intp(0)},
			TimeSpentSeconds: 17,
		},
		CompletedAt: time.Now(),
	}
}

func TestFromCompletion(t *testing.T) {
	c := completion("user-1", "")
	rec := FromCompletion(c)

	assert.Equal(t, "user-1", rec.UserID)
	assert.Equal(t, DefaultTopic, rec.Topic)
	assert.Equal(t, "medium", rec.Difficulty)
	assert.Equal(t, 2, rec.Score)
	assert.Equal(t, 3, rec.TotalQuestions)
	assert.Equal(t, 17, rec.TimeSpentSeconds)
	require.Len(t, rec.UserAnswers, 3)
	assert.Nil(t, rec.UserAnswers[1])
	assert.Equal(t, 1, *rec.UserAnswers[0])
}

func TestRecorder_SavesSignedInSessions(t *testing.T) {
	store := new(mockStore)
	reg := prometheus.NewRegistry()
	rec := NewRecorder(newTestRepository(store), metrics.New(reg), zerolog.Nop())

	store.On("Insert", mock.Anything, mock.MatchedBy(func(r Record) bool {
		return r.UserID == "user-1" && r.Topic == "Physics" && r.Score == 2
	})).Return(nil).Once()

	require.NoError(t, rec.Record(context.Background(), completion("user-1", "Physics")))
	store.AssertExpectations(t)
	assertHistoryWrites(t, reg, metrics.OutcomeOK)
}

func TestRecorder_SkipsGuests(t *testing.T) {
	store := new(mockStore)
	rec := NewRecorder(newTestRepository(store), nil, zerolog.Nop())

	assert.NoError(t, rec.Record(context.Background(), completion("", "Physics")))
	store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestRecorder_ReportsStoreFailure(t *testing.T) {
	store := new(mockStore)
	reg := prometheus.NewRegistry()
	rec := NewRecorder(newTestRepository(store), metrics.New(reg), zerolog.Nop())
	store.On("Insert", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()

	err := rec.Record(context.Background(), completion("user-1", "Physics"))
	assert.ErrorIs(t, err, ErrPersistence)
	assertHistoryWrites(t, reg, metrics.OutcomeError)
}

func assertHistoryWrites(t *testing.T, reg *prometheus.Registry, outcome string) {
	t.Helper()
	expected := `
# HELP quiz_practice_history_writes_total History record writes, by outcome.
# TYPE quiz_practice_history_writes_total counter
quiz_practice_history_writes_total{outcome="` + outcome + `"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "quiz_practice_history_writes_total"))
}
