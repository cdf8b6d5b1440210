package memory

import (
	"context"
	"strings"
	"sync"

	"quiz-competition-service/internal/domain"
)

// UserStore is an in-memory implementation of app.UserRepository.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]domain.User)}
}

func (s *UserStore) CreateUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == user.Username || strings.EqualFold(existing.Email, user.Email) {
			return domain.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *UserStore) GetUser(_ context.Context, userID string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *UserStore) GetUserByUsername(_ context.Context, username string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Username == username {
			return user, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (s *UserStore) UpdatePasswordHash(_ context.Context, userID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.PasswordHash = hash
	s.users[userID] = user
	return nil
}

func (s *UserStore) UsernamesByID(_ context.Context, userIDs []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(userIDs))
	for _, id := range userIDs {
		if user, ok := s.users[id]; ok {
			out[id] = user.Username
		}
	}
	return out, nil
}
