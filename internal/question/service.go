package question

import (
	"context"
	"fmt"
)

// Service resolves a question set from the bundled catalog or the generated quiz cache.
type Service struct {
	catalog *Catalog
	cache   QuizCache
}

func NewService(catalog *Catalog, cache QuizCache) *Service {
	return &Service{catalog: catalog, cache: cache}
}

// Catalog exposes the bundled subjects.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// Resolve returns the quiz named by src. Exactly one of SubjectID and QuizID must be set.
func (s *Service) Resolve(ctx context.Context, src Source) (Quiz, error) {
	switch {
	case src.SubjectID != "" && src.QuizID == "":
		subject, err := s.catalog.Subject(src.SubjectID)
		if err != nil {
			return Quiz{}, err
		}
		return Quiz{
			ID:        "subject:" + subject.ID,
			Topic:     subject.Name,
			Questions: subject.Questions,
		}, nil
	case src.QuizID != "" && src.SubjectID == "":
		if s.cache == nil {
			return Quiz{}, fmt.Errorf("%w: %s", ErrQuizNotFound, src.QuizID)
		}
		quiz, err := s.cache.Get(ctx, src.QuizID)
		if err != nil {
			return Quiz{}, err
		}
		if len(quiz.Questions) == 0 {
			return Quiz{}, fmt.Errorf("%w: %s has no questions", ErrQuizNotFound, src.QuizID)
		}
		return quiz, nil
	default:
		return Quiz{}, ErrInvalidSource
	}
}

// Store saves a generated quiz for later sessions.
func (s *Service) Store(ctx context.Context, quiz Quiz) error {
	if s.cache == nil {
		return fmt.Errorf("quiz cache not configured")
	}
	return s.cache.Put(ctx, quiz)
}
