package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/quiz-practice/internal/metrics"
	"github.com/gokatarajesh/quiz-practice/internal/question"
)

type mockRecorder struct {
	mock.Mock
	done chan Completion
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{done: make(chan Completion, 4)}
}

func (m *mockRecorder) Record(ctx context.Context, c Completion) error {
	args := m.Called(ctx, c)
	m.done <- c
	return args.Error(0)
}

func testQuiz(keys ...int) question.Quiz {
	return question.Quiz{
		ID:         "subject:physics",
		Topic:      "Physics",
		Difficulty: question.DifficultyMedium,
		Questions:  keyedQuestions(keys...),
	}
}

func newTestManager(t *testing.T, opts ManagerOptions, rec Recorder) *Manager {
	t.Helper()
	m := NewManager(opts, rec, metrics.New(prometheus.NewRegistry()), zerolog.Nop())
	t.Cleanup(m.Close)
	return m
}

func TestManagerAppliesDefaultDeadline(t *testing.T) {
	m := newTestManager(t, ManagerOptions{PerQuestionSeconds: 45, TickInterval: time.Hour}, nil)

	_, st, err := m.Start(context.Background(), StartRequest{Quiz: testQuiz(0)})
	require.NoError(t, err)
	assert.Equal(t, 45, st.SecondsRemaining)
	assert.Equal(t, 45, st.PerQuestionSeconds)
}

func TestManagerStartRejectsEmptyQuiz(t *testing.T) {
	m := newTestManager(t, ManagerOptions{}, nil)

	_, _, err := m.Start(context.Background(), StartRequest{Quiz: question.Quiz{ID: "empty"}})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 0, m.Len())
}

func TestManagerCompletionIsRecorded(t *testing.T) {
	rec := newMockRecorder()
	rec.On("Record", mock.Anything, mock.Anything).Return(nil).Once()
	m := newTestManager(t, ManagerOptions{PerQuestionSeconds: 30, TickInterval: time.Hour}, rec)

	id, _, err := m.Start(context.Background(), StartRequest{
		Quiz: testQuiz(1, 0),
		Meta: Meta{UserID: "user-1"},
	})
	require.NoError(t, err)

	_, err = m.Result(id)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = m.Select(id, 1)
	require.NoError(t, err)
	_, err = m.Advance(id)
	require.NoError(t, err)
	st, err := m.Advance(id)
	require.NoError(t, err)
	assert.Equal(t, PhaseSubmitting, st.Phase)

	res, err := m.Result(id)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Score)
	assert.Equal(t, 2, res.TotalQuestions)

	select {
	case c := <-rec.done:
		assert.Equal(t, id, c.SessionID)
		assert.Equal(t, "user-1", c.Meta.UserID)
		assert.Equal(t, "Physics", c.Meta.Topic)
		assert.Equal(t, "subject:physics", c.Meta.QuizID)
		assert.Equal(t, question.DifficultyMedium, c.Meta.Difficulty)
		assert.Equal(t, res, c.Result)
	case <-time.After(time.Second):
		t.Fatal("recorder was not called")
	}
	rec.AssertExpectations(t)
}

func TestManagerRecorderFailureLeavesSessionIntact(t *testing.T) {
	rec := newMockRecorder()
	rec.On("Record", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()
	m := newTestManager(t, ManagerOptions{TickInterval: time.Hour}, rec)

	id, _, err := m.Start(context.Background(), StartRequest{Quiz: testQuiz(0)})
	require.NoError(t, err)
	_, err = m.Advance(id)
	require.NoError(t, err)

	select {
	case <-rec.done:
	case <-time.After(time.Second):
		t.Fatal("recorder was not called")
	}

	res, err := m.Result(id)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Score)
}

func TestManagerTickerAutoAdvances(t *testing.T) {
	m := newTestManager(t, ManagerOptions{PerQuestionSeconds: 1, TickInterval: 5 * time.Millisecond}, nil)

	id, _, err := m.Start(context.Background(), StartRequest{Quiz: testQuiz(0, 1, 2)})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := m.Result(id)
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)

	res, err := m.Result(id)
	require.NoError(t, err)
	assert.Equal(t, Trail{nil, nil, nil}, res.AnswerTrail)
	assert.Equal(t, 3, res.TimeSpentSeconds)
}

func TestManagerEvictsAfterRetention(t *testing.T) {
	m := newTestManager(t, ManagerOptions{TickInterval: time.Hour, Retention: 20 * time.Millisecond}, nil)

	id, _, err := m.Start(context.Background(), StartRequest{Quiz: testQuiz(0)})
	require.NoError(t, err)
	_, err = m.Advance(id)
	require.NoError(t, err)

	_, err = m.Result(id)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)
	_, err = m.State(id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManagerAbortRemovesSession(t *testing.T) {
	rec := newMockRecorder()
	m := newTestManager(t, ManagerOptions{TickInterval: time.Hour}, rec)

	id, _, err := m.Start(context.Background(), StartRequest{Quiz: testQuiz(0, 0)})
	require.NoError(t, err)

	require.NoError(t, m.Abort(id))
	_, err = m.State(id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.Abort(id), ErrNotFound)
	rec.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}

func TestManagerUnknownSession(t *testing.T) {
	m := newTestManager(t, ManagerOptions{}, nil)
	id := uuid.New()

	_, err := m.State(id)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Select(id, 0)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Advance(id)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Subscribe(id, func(Event) {})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManagerAuthorize(t *testing.T) {
	m := newTestManager(t, ManagerOptions{TickInterval: time.Hour}, nil)

	owned, _, err := m.Start(context.Background(), StartRequest{Quiz: testQuiz(0), Meta: Meta{UserID: "alice"}})
	require.NoError(t, err)
	guest, _, err := m.Start(context.Background(), StartRequest{Quiz: testQuiz(0)})
	require.NoError(t, err)

	assert.NoError(t, m.Authorize(owned, "alice"))
	assert.NoError(t, m.Authorize(owned, ""))
	assert.ErrorIs(t, m.Authorize(owned, "mallory"), ErrForbidden)
	assert.NoError(t, m.Authorize(guest, "mallory"))
	assert.ErrorIs(t, m.Authorize(uuid.New(), "alice"), ErrNotFound)
}

func TestManagerSubscribeFansOutEvents(t *testing.T) {
	m := newTestManager(t, ManagerOptions{TickInterval: time.Hour}, nil)

	id, _, err := m.Start(context.Background(), StartRequest{Quiz: testQuiz(0, 0)})
	require.NoError(t, err)

	var (
		mu  sync.Mutex
		got []EventType
	)
	cancel, err := m.Subscribe(id, func(ev Event) {
		mu.Lock()
		got = append(got, ev.Type)
		mu.Unlock()
	})
	require.NoError(t, err)

	_, err = m.Select(id, 0)
	require.NoError(t, err)
	_, err = m.Advance(id)
	require.NoError(t, err)

	cancel()
	_, err = m.Advance(id)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []EventType{EventSelected, EventAdvanced}, got)
}

func TestManagerCloseRejectsNewSessions(t *testing.T) {
	m := NewManager(ManagerOptions{TickInterval: time.Millisecond}, nil, nil, zerolog.Nop())

	_, _, err := m.Start(context.Background(), StartRequest{Quiz: testQuiz(0)})
	require.NoError(t, err)

	m.Close()
	assert.Equal(t, 0, m.Len())

	_, _, err = m.Start(context.Background(), StartRequest{Quiz: testQuiz(0)})
	assert.ErrorIs(t, err, ErrClosed)
}
