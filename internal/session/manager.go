package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-practice/internal/metrics"
	"github.com/gokatarajesh/quiz-practice/internal/question"
	"github.com/gokatarajesh/quiz-practice/internal/session/scoring"
)

// ErrClosed is returned by Start once the manager has been closed.
var ErrClosed = errors.New("session manager closed")

// Recorder persists finished sessions.
type Recorder interface {
	Record(ctx context.Context, c Completion) error
}

// ManagerOptions configures session timing and retention.
type ManagerOptions struct {
	PerQuestionSeconds int
	TickInterval       time.Duration
	Retention          time.Duration
	RecordTimeout      time.Duration
}

func (o ManagerOptions) withDefaults() ManagerOptions {
	if o.PerQuestionSeconds <= 0 {
		o.PerQuestionSeconds = 30
	}
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.Retention <= 0 {
		o.Retention = 10 * time.Minute
	}
	if o.RecordTimeout <= 0 {
		o.RecordTimeout = 5 * time.Second
	}
	return o
}

// Manager owns the live sessions of this process. Each session gets one
// ticker goroutine that drives Runner.Tick.
type Manager struct {
	opts     ManagerOptions
	recorder Recorder
	metrics  *metrics.Collector
	logger   zerolog.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*entry
	closed   bool

	wg sync.WaitGroup
}

type entry struct {
	id     uuid.UUID
	meta   Meta
	runner *Runner

	resetC   chan struct{}
	stopC    chan struct{}
	stopOnce sync.Once

	subMu   sync.Mutex
	subs    map[uint64]func(Event)
	nextSub uint64

	// set once the session is submitted; guarded by Manager.mu
	evict *time.Timer
}

// NewManager builds a manager. recorder and collector may be nil.
func NewManager(opts ManagerOptions, recorder Recorder, collector *metrics.Collector, logger zerolog.Logger) *Manager {
	return &Manager{
		opts:     opts.withDefaults(),
		recorder: recorder,
		metrics:  collector,
		logger:   logger.With().Str("component", "session_manager").Logger(),
		sessions: make(map[uuid.UUID]*entry),
	}
}

// Start creates a session over req.Quiz and starts its deadline ticker.
func (m *Manager) Start(ctx context.Context, req StartRequest) (uuid.UUID, State, error) {
	perQ := req.PerQuestionSeconds
	if perQ == 0 {
		perQ = m.opts.PerQuestionSeconds
	}

	meta := req.Meta
	if meta.QuizID == "" {
		meta.QuizID = req.Quiz.ID
	}
	if meta.Topic == "" {
		meta.Topic = req.Quiz.Topic
	}
	if meta.Difficulty == "" {
		meta.Difficulty = req.Quiz.Difficulty
	}

	e := &entry{
		id:     uuid.New(),
		meta:   meta,
		resetC: make(chan struct{}, 1),
		stopC:  make(chan struct{}),
		subs:   make(map[uint64]func(Event)),
	}
	runner, err := Start(req.Quiz.Questions, perQ,
		WithListener(func(ev Event) { m.onEvent(e, ev) }),
		WithCompletion(func(res Result) { m.onComplete(e, res) }),
	)
	if err != nil {
		return uuid.Nil, State{}, err
	}
	e.runner = runner

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return uuid.Nil, State{}, ErrClosed
	}
	m.sessions[e.id] = e
	m.wg.Add(1)
	m.mu.Unlock()

	go m.tick(e)
	m.metrics.SessionStarted()

	m.logger.Info().
		Str("session_id", e.id.String()).
		Str("quiz_id", meta.QuizID).
		Str("user_id", meta.UserID).
		Int("questions", len(req.Quiz.Questions)).
		Int("per_question_seconds", perQ).
		Msg("session started")

	return e.id, runner.Snapshot(), nil
}

// Select records a pending choice for the session's current question.
func (m *Manager) Select(id uuid.UUID, index int) (State, error) {
	e, err := m.get(id)
	if err != nil {
		return State{}, err
	}
	if err := e.runner.Select(index); err != nil {
		return State{}, err
	}
	return e.runner.Snapshot(), nil
}

// Advance commits the current question and restarts the tick phase so the
// next question gets full seconds.
func (m *Manager) Advance(id uuid.UUID) (State, error) {
	e, err := m.get(id)
	if err != nil {
		return State{}, err
	}
	if err := e.runner.Advance(); err != nil {
		return State{}, err
	}
	select {
	case e.resetC <- struct{}{}:
	default:
	}
	return e.runner.Snapshot(), nil
}

// Abort ends the session without a result and forgets it.
func (m *Manager) Abort(id uuid.UUID) error {
	e, err := m.get(id)
	if err != nil {
		return err
	}
	if err := e.runner.Abort(); err != nil {
		return err
	}
	m.metrics.SessionAborted()
	m.remove(e)
	m.logger.Info().Str("session_id", id.String()).Msg("session aborted")
	return nil
}

// State returns the session's current snapshot.
func (m *Manager) State(id uuid.UUID) (State, error) {
	e, err := m.get(id)
	if err != nil {
		return State{}, err
	}
	return e.runner.Snapshot(), nil
}

// Questions returns the question set and metadata a session runs over.
func (m *Manager) Questions(id uuid.UUID) ([]question.Question, Meta, error) {
	e, err := m.get(id)
	if err != nil {
		return nil, Meta{}, err
	}
	return e.runner.Questions(), e.meta, nil
}

// Authorize returns ErrForbidden when userID and the session owner are both
// known and differ. Anonymous callers and guest sessions are not checked.
func (m *Manager) Authorize(id uuid.UUID, userID string) error {
	e, err := m.get(id)
	if err != nil {
		return err
	}
	if userID != "" && e.meta.UserID != "" && userID != e.meta.UserID {
		return ErrForbidden
	}
	return nil
}

// Result returns the final result, or ErrInvalidState while still active.
func (m *Manager) Result(id uuid.UUID) (Result, error) {
	e, err := m.get(id)
	if err != nil {
		return Result{}, err
	}
	res, ok := e.runner.Result()
	if !ok {
		return Result{}, fmt.Errorf("%w: session not submitted", ErrInvalidState)
	}
	return res, nil
}

// Subscribe registers fn for every event of the session. fn runs on the
// session's serialization point and must not block or call back into the
// manager for the same session.
func (m *Manager) Subscribe(id uuid.UUID, fn func(Event)) (func(), error) {
	e, err := m.get(id)
	if err != nil {
		return nil, err
	}
	e.subMu.Lock()
	key := e.nextSub
	e.nextSub++
	e.subs[key] = fn
	e.subMu.Unlock()

	return func() {
		e.subMu.Lock()
		delete(e.subs, key)
		e.subMu.Unlock()
	}, nil
}

// Len reports how many sessions are held.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops every ticker and waits for pending history writes.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	entries := make([]*entry, 0, len(m.sessions))
	for _, e := range m.sessions {
		entries = append(entries, e)
		if e.evict != nil {
			e.evict.Stop()
		}
	}
	m.sessions = make(map[uuid.UUID]*entry)
	m.mu.Unlock()

	for _, e := range entries {
		e.stop()
	}
	m.wg.Wait()
}

func (m *Manager) get(id uuid.UUID) (*entry, error) {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

func (m *Manager) remove(e *entry) {
	m.mu.Lock()
	if cur, ok := m.sessions[e.id]; ok && cur == e {
		delete(m.sessions, e.id)
	}
	if e.evict != nil {
		e.evict.Stop()
	}
	m.mu.Unlock()
	e.stop()
}

func (m *Manager) tick(e *entry) {
	defer m.wg.Done()

	t := time.NewTicker(m.opts.TickInterval)
	defer t.Stop()

	for {
		select {
		case <-e.stopC:
			return
		case <-e.resetC:
			t.Reset(m.opts.TickInterval)
		case <-t.C:
			if e.runner.Tick() {
				return
			}
		}
	}
}

func (m *Manager) onEvent(e *entry, ev Event) {
	if ev.TimedOut {
		m.metrics.QuestionTimedOut()
	}

	e.subMu.Lock()
	subs := make([]func(Event), 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	e.subMu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

func (m *Manager) onComplete(e *entry, res Result) {
	e.stop()
	m.metrics.SessionCompleted(scoring.Percentage(res.Score, res.TotalQuestions))

	m.logger.Info().
		Str("session_id", e.id.String()).
		Int("score", res.Score).
		Int("total", res.TotalQuestions).
		Int("time_spent_seconds", res.TimeSpentSeconds).
		Msg("session completed")

	completion := Completion{
		SessionID:   e.id,
		Meta:        e.meta,
		Result:      res,
		CompletedAt: time.Now().UTC(),
	}

	m.mu.Lock()
	closed := m.closed
	if _, ok := m.sessions[e.id]; ok && !closed {
		e.evict = time.AfterFunc(m.opts.Retention, func() { m.remove(e) })
	}
	if m.recorder != nil && !closed {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.record(completion)
		}()
	}
	m.mu.Unlock()

	// closing managers still persist, inline
	if m.recorder != nil && closed {
		m.record(completion)
	}
}

func (m *Manager) record(c Completion) {
	ctx, cancel := context.WithTimeout(context.Background(), m.opts.RecordTimeout)
	defer cancel()
	if err := m.recorder.Record(ctx, c); err != nil {
		m.logger.Error().Err(err).
			Str("session_id", c.SessionID.String()).
			Str("user_id", c.Meta.UserID).
			Msg("failed to record session history")
	}
}

func (e *entry) stop() {
	e.stopOnce.Do(func() { close(e.stopC) })
}
