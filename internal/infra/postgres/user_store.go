package postgres

import (
	"context"

	"github.com/uptrace/bun"

	"quiz-competition-service/internal/domain"
)

// UserStore persists accounts with bun.
type UserStore struct {
	db *bun.DB
}

func NewUserStore(db *bun.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) CreateUser(ctx context.Context, user domain.User) error {
	if _, err := s.db.NewInsert().Model(newUserRow(user)).Exec(ctx); err != nil {
		return mapWriteError(err, nil)
	}
	return nil
}

func (s *UserStore) GetUser(ctx context.Context, userID string) (domain.User, error) {
	var row userRow
	if err := s.db.NewSelect().Model(&row).Where("id = ?", userID).Scan(ctx); err != nil {
		return domain.User{}, mapReadError(err, domain.ErrUserNotFound)
	}
	return row.toDomain(), nil
}

func (s *UserStore) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	var row userRow
	if err := s.db.NewSelect().Model(&row).Where("username = ?", username).Scan(ctx); err != nil {
		return domain.User{}, mapReadError(err, domain.ErrUserNotFound)
	}
	return row.toDomain(), nil
}

func (s *UserStore) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	res, err := s.db.NewUpdate().
		Model((*userRow)(nil)).
		Set("password_hash = ?", hash).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireRows(res, domain.ErrUserNotFound)
}

func (s *UserStore) UsernamesByID(ctx context.Context, userIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var rows []userRow
	err := s.db.NewSelect().
		Model(&rows).
		Column("id", "username").
		Where("id IN (?)", bun.In(userIDs)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row.Username
	}
	return out, nil
}
