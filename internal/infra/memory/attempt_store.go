package memory

import (
	"context"
	"sort"
	"sync"

	"quiz-competition-service/internal/app"
	"quiz-competition-service/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptRepository.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]domain.Attempt
	answers  map[string][]domain.UserAnswer
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[string]domain.Attempt),
		answers:  make(map[string][]domain.UserAnswer),
	}
}

func (s *AttemptStore) CreateAttempt(_ context.Context, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt.Answers = nil
	s.attempts[attempt.ID] = attempt
	return nil
}

func (s *AttemptStore) GetAttempt(_ context.Context, attemptID string) (domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[attemptID]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	attempt.Answers = append([]domain.UserAnswer(nil), s.answers[attemptID]...)
	return attempt, nil
}

func (s *AttemptStore) HasCompletedAttempt(_ context.Context, quizID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, attempt := range s.attempts {
		if attempt.QuizID == quizID && attempt.UserID == userID && attempt.Completed {
			return true, nil
		}
	}
	return false, nil
}

// CompleteAttempt checks and transitions under one lock, so concurrent submits cannot both win.
func (s *AttemptStore) CompleteAttempt(_ context.Context, c domain.AttemptCompletion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[c.AttemptID]
	if !ok {
		return domain.ErrAttemptNotFound
	}
	if attempt.Completed {
		return domain.ErrAlreadyCompleted
	}
	endedAt, score, passed := c.EndedAt, c.Score, c.Passed
	attempt.EndedAt = &endedAt
	attempt.Score = &score
	attempt.Passed = &passed
	attempt.Completed = true
	s.attempts[c.AttemptID] = attempt
	s.answers[c.AttemptID] = append([]domain.UserAnswer(nil), c.Answers...)
	return nil
}

func (s *AttemptStore) ListAttempts(_ context.Context, filter app.AttemptFilter) ([]domain.Attempt, error) {
	s.mu.RLock()
	out := make([]domain.Attempt, 0)
	for _, attempt := range s.attempts {
		if filter.UserID != "" && attempt.UserID != filter.UserID {
			continue
		}
		if filter.QuizID != "" && attempt.QuizID != filter.QuizID {
			continue
		}
		if filter.Completed != nil && attempt.Completed != *filter.Completed {
			continue
		}
		out = append(out, attempt)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *AttemptStore) ListQuizAnswers(_ context.Context, quizID string) ([]domain.UserAnswer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.UserAnswer
	for attemptID, answers := range s.answers {
		if s.attempts[attemptID].QuizID == quizID {
			out = append(out, answers...)
		}
	}
	return out, nil
}

func (s *AttemptStore) CountQuizAttempts(_ context.Context, quizID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, attempt := range s.attempts {
		if attempt.QuizID == quizID {
			n++
		}
	}
	return n, nil
}

func (s *AttemptStore) QuestionAnswered(_ context.Context, questionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, answers := range s.answers {
		for _, answer := range answers {
			if answer.QuestionID == questionID {
				return true, nil
			}
		}
	}
	return false, nil
}
