package history

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-practice/internal/metrics"
	"github.com/gokatarajesh/quiz-practice/internal/session"
)

// Recorder persists finished sessions. It implements session.Recorder.
type Recorder struct {
	repo    *Repository
	metrics *metrics.Collector
	logger  zerolog.Logger
}

func NewRecorder(repo *Repository, collector *metrics.Collector, logger zerolog.Logger) *Recorder {
	return &Recorder{
		repo:    repo,
		metrics: collector,
		logger:  logger.With().Str("component", "history_recorder").Logger(),
	}
}

// Record writes c as a history record. Sessions without a user are skipped.
func (r *Recorder) Record(ctx context.Context, c session.Completion) error {
	if c.Meta.UserID == "" {
		r.logger.Debug().Str("session_id", c.SessionID.String()).Msg("guest session, history not saved")
		return nil
	}

	rec, err := r.repo.Save(ctx, FromCompletion(c))
	if err != nil {
		r.metrics.HistoryWrite(metrics.OutcomeError)
		return err
	}
	r.metrics.HistoryWrite(metrics.OutcomeOK)
	r.logger.Debug().
		Str("session_id", c.SessionID.String()).
		Str("record_id", rec.ID.String()).
		Msg("history saved")
	return nil
}

// FromCompletion maps a finished session onto a Record.
func FromCompletion(c session.Completion) Record {
	topic := c.Meta.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	answers := make([]*int, len(c.Result.AnswerTrail))
	copy(answers, c.Result.AnswerTrail)
	return Record{
		UserID:           c.Meta.UserID,
		Topic:            topic,
		Difficulty:       c.Meta.Difficulty,
		Score:            c.Result.Score,
		TotalQuestions:   c.Result.TotalQuestions,
		TimeSpentSeconds: c.Result.TimeSpentSeconds,
		UserAnswers:      answers,
	}
}
