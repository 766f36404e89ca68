package session

import (
	"fmt"
	"sync"

	"github.com/gokatarajesh/quiz-practice/internal/question"
	"github.com/gokatarajesh/quiz-practice/internal/session/scoring"
)

// Runner drives one timed quiz attempt. Every mutation (select, advance,
// tick, abort) goes through mu, so a deadline tick racing a user advance
// commits the current question exactly once.
type Runner struct {
	mu sync.Mutex

	questions          []question.Question
	perQuestionSeconds int

	currentIndex     int
	selected         *int
	secondsRemaining int
	trail            Trail
	phase            Phase
	aborted          bool

	// seconds left on the clock at each commit, summed
	unspent int
	result  *Result

	listener   func(Event)
	onComplete func(Result)
}

// Option configures a Runner.
type Option func(*Runner)

// WithListener registers fn for every state change. fn runs while the runner
// is locked and must not call back into it.
func WithListener(fn func(Event)) Option {
	return func(r *Runner) { r.listener = fn }
}

// WithCompletion registers fn to receive the result. It is called at most
// once, after the runner lock is released.
func WithCompletion(fn func(Result)) Option {
	return func(r *Runner) { r.onComplete = fn }
}

// Start begins a session over questions with a per-question deadline.
func Start(questions []question.Question, perQuestionSeconds int, opts ...Option) (*Runner, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: empty question set", ErrInvalidInput)
	}
	if perQuestionSeconds <= 0 {
		return nil, fmt.Errorf("%w: per-question seconds must be positive, got %d", ErrInvalidInput, perQuestionSeconds)
	}
	if err := question.ValidateAll(questions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	r := &Runner{
		questions:          questions,
		perQuestionSeconds: perQuestionSeconds,
		secondsRemaining:   perQuestionSeconds,
		trail:              make(Trail, 0, len(questions)),
		phase:              PhaseActive,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Select records a pending choice for the current question. A later call
// before advancing overwrites it.
func (r *Runner) Select(index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.activeLocked() {
		return ErrInvalidState
	}
	options := len(r.questions[r.currentIndex].Options)
	if index < 0 || index >= options {
		return fmt.Errorf("%w: option %d outside [0,%d)", ErrInvalidInput, index, options)
	}
	r.selected = scoring.Choice(index)
	r.emitLocked(Event{Type: EventSelected})
	return nil
}

// Advance commits the pending choice (or none) and moves on. On the last
// question it finalizes the session. Once finalized it returns ErrInvalidState
// and changes nothing.
func (r *Runner) Advance() error {
	r.mu.Lock()
	result, err := r.commitLocked(false)
	r.mu.Unlock()

	if err != nil {
		return err
	}
	r.complete(result)
	return nil
}

// Tick consumes one second of the current question's deadline and
// auto-advances when it runs out. It reports whether the session is over,
// and is a no-op once it is.
func (r *Runner) Tick() bool {
	r.mu.Lock()
	if !r.activeLocked() {
		r.mu.Unlock()
		return true
	}

	if r.secondsRemaining > 0 {
		r.secondsRemaining--
	}
	r.emitLocked(Event{Type: EventTick})
	if r.secondsRemaining > 0 {
		r.mu.Unlock()
		return false
	}

	result, _ := r.commitLocked(true)
	done := r.phase == PhaseSubmitting
	r.mu.Unlock()

	r.complete(result)
	return done
}

// Abort ends the session early without producing a result.
func (r *Runner) Abort() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.activeLocked() {
		return ErrInvalidState
	}
	r.aborted = true
	r.selected = nil
	r.emitLocked(Event{Type: EventAborted})
	return nil
}

// Snapshot returns a copy of the current state.
func (r *Runner) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Result returns the final result once the session has been submitted.
func (r *Runner) Result() (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.result == nil {
		return Result{}, false
	}
	return copyResult(*r.result), true
}

// Questions returns the question set the runner was started with.
func (r *Runner) Questions() []question.Question {
	return r.questions
}

func (r *Runner) activeLocked() bool {
	return r.phase == PhaseActive && !r.aborted
}

// commitLocked is the single "record answer and move on" step shared by
// Advance and the deadline tick. It returns the result when the session ends.
func (r *Runner) commitLocked(timedOut bool) (*Result, error) {
	if !r.activeLocked() {
		return nil, ErrInvalidState
	}

	r.trail = append(r.trail, r.selected)
	r.unspent += r.secondsRemaining

	if r.currentIndex+1 < len(r.questions) {
		r.currentIndex++
		r.selected = nil
		r.secondsRemaining = r.perQuestionSeconds
		r.emitLocked(Event{Type: EventAdvanced, TimedOut: timedOut})
		return nil, nil
	}

	r.phase = PhaseSubmitting
	r.selected = nil
	score, err := scoring.Score(r.questions, r.trail)
	if err != nil {
		// trail length equals question count by construction
		panic(fmt.Sprintf("session: %v", err))
	}
	spent := r.perQuestionSeconds*len(r.questions) - r.unspent
	if spent < 0 {
		spent = 0
	}
	r.result = &Result{
		Score:            score,
		TotalQuestions:   len(r.questions),
		AnswerTrail:      r.trail.Clone(),
		TimeSpentSeconds: spent,
	}
	res := copyResult(*r.result)
	r.emitLocked(Event{Type: EventCompleted, Result: &res, TimedOut: timedOut})
	return r.result, nil
}

func (r *Runner) complete(result *Result) {
	if result == nil || r.onComplete == nil {
		return
	}
	r.onComplete(copyResult(*result))
}

func (r *Runner) emitLocked(ev Event) {
	if r.listener == nil {
		return
	}
	ev.State = r.snapshotLocked()
	r.listener(ev)
}

func (r *Runner) snapshotLocked() State {
	var selected *int
	if r.selected != nil {
		selected = scoring.Choice(*r.selected)
	}
	return State{
		CurrentIndex:       r.currentIndex,
		SelectedIndex:      selected,
		SecondsRemaining:   r.secondsRemaining,
		Trail:              r.trail.Clone(),
		Phase:              r.phase,
		QuestionCount:      len(r.questions),
		PerQuestionSeconds: r.perQuestionSeconds,
		Aborted:            r.aborted,
	}
}

func copyResult(res Result) Result {
	res.AnswerTrail = res.AnswerTrail.Clone()
	return res
}
