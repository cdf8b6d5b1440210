package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizInactive is returned when beginning an attempt on a deactivated quiz.
	ErrQuizInactive = errors.New("quiz is not active")
	// ErrQuestionNotFound indicates a question ID is unknown.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrCategoryNotFound indicates a category ID is unknown.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrAttemptNotFound indicates an attempt ID is unknown.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrUserNotFound indicates a user ID or name is unknown.
	ErrUserNotFound = errors.New("user not found")

	// ErrNotAttemptOwner is returned when a caller acts on someone else's attempt.
	ErrNotAttemptOwner = errors.New("attempt belongs to another participant")
	// ErrForbidden is returned when the caller lacks the required role.
	ErrForbidden = errors.New("not enough permissions")
	// ErrInvalidCredentials is returned on a failed login or password change.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAlreadyCompleted is returned when submitting to a completed attempt.
	ErrAlreadyCompleted = errors.New("attempt already completed")
	// ErrAlreadyAttempted is returned when a quiz disallows a second attempt.
	ErrAlreadyAttempted = errors.New("quiz already attempted")

	// ErrInvalidReference indicates a submitted answer points outside the quiz.
	ErrInvalidReference = errors.New("invalid answer reference")
	// ErrDataIntegrity indicates quiz content that cannot be scored.
	ErrDataIntegrity = errors.New("quiz content integrity violation")

	// ErrConflict indicates a uniqueness violation (username, email, category name).
	ErrConflict = errors.New("resource already exists")
	// ErrContentLocked indicates content that attempts already depend on.
	ErrContentLocked = errors.New("content is referenced by attempts and cannot be changed")
	// ErrInvalidInput indicates a request that fails domain validation.
	ErrInvalidInput = errors.New("invalid input")
)

// InvalidReferenceError names the offending option or question of a rejected submission.
type InvalidReferenceError struct {
	OptionID   string
	QuestionID string
	Reason     string
}

func (e *InvalidReferenceError) Error() string {
	if e.OptionID != "" {
		return fmt.Sprintf("invalid option %q: %s", e.OptionID, e.Reason)
	}
	return fmt.Sprintf("invalid question %q: %s", e.QuestionID, e.Reason)
}

func (e *InvalidReferenceError) Is(target error) bool {
	return target == ErrInvalidReference
}

// DataIntegrityError reports a question that has no option marked correct.
type DataIntegrityError struct {
	QuizID     string
	QuestionID string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("question %q of quiz %q has no correct option", e.QuestionID, e.QuizID)
}

func (e *DataIntegrityError) Is(target error) bool {
	return target == ErrDataIntegrity
}

// Invalidf wraps ErrInvalidInput with a message.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
