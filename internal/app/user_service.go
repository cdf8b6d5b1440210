package app

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quiz-competition-service/internal/auth"
	"quiz-competition-service/internal/domain"
)

const (
	minUsernameLength = 3
	minPasswordLength = 8
)

// TokenIssuer issues access tokens for authenticated users.
type TokenIssuer interface {
	Issue(user domain.User) (string, error)
}

// Registration is the input of Register.
type Registration struct {
	Username string
	Email    string
	Password string
	Role     domain.Role
}

// UserService owns accounts, credentials and token issuance.
type UserService struct {
	users  UserRepository
	tokens TokenIssuer
	log    *zap.Logger
	now    func() time.Time
	newID  func() string
}

func NewUserService(users UserRepository, tokens TokenIssuer, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:  users,
		tokens: tokens,
		log:    logger.Named("users"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Register creates an account. Role defaults to participant.
func (s *UserService) Register(ctx context.Context, reg Registration) (domain.User, error) {
	username := strings.TrimSpace(reg.Username)
	if len(username) < minUsernameLength {
		return domain.User{}, domain.Invalidf("username must have at least %d characters", minUsernameLength)
	}
	addr, err := mail.ParseAddress(reg.Email)
	if err != nil || addr.Address != reg.Email {
		return domain.User{}, domain.Invalidf("invalid email address")
	}
	if len(reg.Password) < minPasswordLength {
		return domain.User{}, domain.Invalidf("password must have at least %d characters", minPasswordLength)
	}
	role := reg.Role
	if role == "" {
		role = domain.RoleParticipant
	}
	if role != domain.RoleParticipant && role != domain.RoleAdmin {
		return domain.User{}, domain.Invalidf("unknown role %q", role)
	}

	hash, err := auth.HashPassword(reg.Password)
	if err != nil {
		return domain.User{}, err
	}
	user := domain.User{
		ID:           s.newID(),
		Username:     username,
		Email:        strings.ToLower(reg.Email),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	s.log.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(role)))
	return user, nil
}

// Login verifies credentials and returns an access token.
func (s *UserService) Login(ctx context.Context, username, password string) (string, domain.User, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, domain.ErrUserNotFound) {
		return "", domain.User{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", domain.User{}, err
	}
	ok, err := auth.CheckPassword(user.PasswordHash, password)
	if err != nil {
		return "", domain.User{}, err
	}
	if !ok || !user.IsActive {
		return "", domain.User{}, domain.ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", domain.User{}, err
	}
	return token, user, nil
}

// Authenticate resolves the user behind verified token claims.
func (s *UserService) Authenticate(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if !user.IsActive {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, userID string) (domain.User, error) {
	return s.users.GetUser(ctx, userID)
}

// ChangePassword replaces the password after verifying the current one.
func (s *UserService) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	ok, err := auth.CheckPassword(user.PasswordHash, current)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidCredentials
	}
	if len(next) < minPasswordLength {
		return domain.Invalidf("password must have at least %d characters", minPasswordLength)
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	return s.users.UpdatePasswordHash(ctx, userID, hash)
}
