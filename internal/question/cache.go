package question

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 30 * time.Minute

// QuizCache stores generated quizzes so a session can be started (or retried) from an id.
type QuizCache interface {
	Get(ctx context.Context, id string) (Quiz, error)
	Put(ctx context.Context, quiz Quiz) error
}

// Cache is the Redis-backed QuizCache.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ QuizCache = (*Cache)(nil)

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) key(id string) string {
	return "quiz:generated:" + id
}

// Get returns ErrQuizNotFound on miss or expiry.
func (c *Cache) Get(ctx context.Context, id string) (Quiz, error) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Quiz{}, fmt.Errorf("%w: %s", ErrQuizNotFound, id)
		}
		return Quiz{}, fmt.Errorf("get quiz: %w", err)
	}
	var quiz Quiz
	if err := json.Unmarshal(data, &quiz); err != nil {
		return Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}

func (c *Cache) Put(ctx context.Context, quiz Quiz) error {
	if quiz.ID == "" {
		return fmt.Errorf("quiz id required")
	}
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	return c.client.Set(ctx, c.key(quiz.ID), data, c.ttl).Err()
}
