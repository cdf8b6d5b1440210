package app

import (
	"context"

	"quiz-competition-service/internal/domain"
)

// QuizRepository loads quiz definitions (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizCache is a QuizRepository whose entries can be dropped after content edits.
type QuizCache interface {
	QuizRepository
	Invalidate(ctx context.Context, quizIDs ...string) error
}

// AttemptFilter narrows ListAttempts. Empty fields match everything.
type AttemptFilter struct {
	UserID    string
	QuizID    string
	Completed *bool
}

// AttemptRepository is the attempt ledger.
type AttemptRepository interface {
	CreateAttempt(ctx context.Context, attempt domain.Attempt) error
	// GetAttempt returns the attempt with its answers loaded.
	GetAttempt(ctx context.Context, attemptID string) (domain.Attempt, error)
	HasCompletedAttempt(ctx context.Context, quizID, userID string) (bool, error)
	// CompleteAttempt persists the answers and terminal state as one unit. Exactly one
	// caller can transition an attempt; every other caller gets domain.ErrAlreadyCompleted.
	CompleteAttempt(ctx context.Context, completion domain.AttemptCompletion) error
	ListAttempts(ctx context.Context, filter AttemptFilter) ([]domain.Attempt, error)
	// ListQuizAnswers returns every answer submitted against the quiz.
	ListQuizAnswers(ctx context.Context, quizID string) ([]domain.UserAnswer, error)
	CountQuizAttempts(ctx context.Context, quizID string) (int, error)
	QuestionAnswered(ctx context.Context, questionID string) (bool, error)
}

// QuestionFilter narrows ListQuestions.
type QuestionFilter struct {
	CategoryID string
	Difficulty int
	Skip       int
	Limit      int
}

// QuizFilter narrows ListQuizzes.
type QuizFilter struct {
	Active *bool
	Skip   int
	Limit  int
}

// ContentRepository stores categories, questions and quizzes.
type ContentRepository interface {
	CreateCategory(ctx context.Context, category domain.Category) error
	GetCategory(ctx context.Context, categoryID string) (domain.Category, error)
	ListCategories(ctx context.Context, skip, limit int) ([]domain.Category, error)
	UpdateCategory(ctx context.Context, category domain.Category) error
	DeleteCategory(ctx context.Context, categoryID string) error

	CreateQuestion(ctx context.Context, question domain.Question) error
	GetQuestion(ctx context.Context, questionID string) (domain.Question, error)
	ListQuestions(ctx context.Context, filter QuestionFilter) ([]domain.Question, error)
	RandomQuestions(ctx context.Context, filter QuestionFilter) ([]domain.Question, error)
	// UpdateQuestion replaces the question fields; options are replaced only when replaceOptions is set.
	UpdateQuestion(ctx context.Context, question domain.Question, replaceOptions bool) error
	DeleteQuestion(ctx context.Context, questionID string) error
	QuizIDsForQuestion(ctx context.Context, questionID string) ([]string, error)

	// CreateQuiz stores the quiz and links Questions (only IDs are read) in order.
	CreateQuiz(ctx context.Context, quiz domain.Quiz) error
	// GetQuizHeader returns the quiz without questions.
	GetQuizHeader(ctx context.Context, quizID string) (domain.Quiz, error)
	ListQuizzes(ctx context.Context, filter QuizFilter) ([]domain.Quiz, error)
	// UpdateQuiz stores header fields; the question links are replaced only when relink is set.
	UpdateQuiz(ctx context.Context, quiz domain.Quiz, relink bool) error
}

// UserRepository stores user accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user domain.User) error
	GetUser(ctx context.Context, userID string) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
	UpdatePasswordHash(ctx context.Context, userID, hash string) error
	// UsernamesByID resolves display names; unknown IDs are omitted.
	UsernamesByID(ctx context.Context, userIDs []string) (map[string]string, error)
}

// AttemptObserver receives scoring engine events (metrics).
type AttemptObserver interface {
	AttemptStarted(quizID string)
	AttemptSubmitted(quizID string, passed bool)
	SubmissionRejected(reason string)
}

type nopObserver struct{}

func (nopObserver) AttemptStarted(string)         {}
func (nopObserver) AttemptSubmitted(string, bool) {}
func (nopObserver) SubmissionRejected(string)     {}
