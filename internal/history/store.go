package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const insertHistory = `
INSERT INTO quiz_history (id, user_id, topic, difficulty, score, total_questions, time_spent_seconds, user_answers, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

const listHistoryByUser = `
SELECT id, user_id, topic, difficulty, score, total_questions, time_spent_seconds, user_answers, created_at
FROM quiz_history
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2`

// PostgresStore reads and writes the quiz_history table.
type PostgresStore struct {
	db DBTX
}

func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// Insert writes one row.
func (s *PostgresStore) Insert(ctx context.Context, r Record) error {
	answers, err := json.Marshal(answersOrEmpty(r.UserAnswers))
	if err != nil {
		return fmt.Errorf("encode user answers: %w", err)
	}
	_, err = s.db.Exec(ctx, insertHistory,
		pgtype.UUID{Bytes: r.ID, Valid: true},
		r.UserID,
		r.Topic,
		r.Difficulty,
		int32(r.Score),
		int32(r.TotalQuestions),
		int32(r.TimeSpentSeconds),
		answers,
		r.CreatedAt,
	)
	return err
}

// ListByUser returns up to limit rows for userID, newest first.
func (s *PostgresStore) ListByUser(ctx context.Context, userID string, limit int) ([]Record, error) {
	rows, err := s.db.Query(ctx, listHistoryByUser, userID, int32(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			id                    pgtype.UUID
			score, total, seconds int32
			answers               []byte
			r                     Record
		)
		if err := rows.Scan(&id, &r.UserID, &r.Topic, &r.Difficulty, &score, &total, &seconds, &answers, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.ID = id.Bytes
		r.Score, r.TotalQuestions, r.TimeSpentSeconds = int(score), int(total), int(seconds)
		if len(answers) > 0 {
			if err := json.Unmarshal(answers, &r.UserAnswers); err != nil {
				return nil, fmt.Errorf("decode user answers: %w", err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func answersOrEmpty(a []*int) []*int {
	if a == nil {
		return []*int{}
	}
	return a
}
