package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quiz-competition-service/internal/domain"
)

// AttemptService is the scoring engine: it opens attempts and commits scored submissions.
type AttemptService struct {
	attempts AttemptRepository
	quizzes  QuizRepository
	log      *zap.Logger
	observer AttemptObserver
	now      func() time.Time
	newID    func() string
}

func NewAttemptService(attempts AttemptRepository, quizzes QuizRepository, logger *zap.Logger) *AttemptService {
	return NewAttemptServiceWithClock(attempts, quizzes, logger, time.Now)
}

// NewAttemptServiceWithClock allows deterministic timestamps in tests.
func NewAttemptServiceWithClock(attempts AttemptRepository, quizzes QuizRepository, logger *zap.Logger, now func() time.Time) *AttemptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttemptService{
		attempts: attempts,
		quizzes:  quizzes,
		log:      logger.Named("attempts"),
		observer: nopObserver{},
		now:      now,
		newID:    uuid.NewString,
	}
}

// ObserveWith routes engine events to o.
func (s *AttemptService) ObserveWith(o AttemptObserver) *AttemptService {
	if o != nil {
		s.observer = o
	}
	return s
}

// BeginAttempt opens an in-progress attempt for the participant.
func (s *AttemptService) BeginAttempt(ctx context.Context, quizID, userID string) (domain.Attempt, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Attempt{}, err
	}
	if !quiz.IsActive {
		return domain.Attempt{}, domain.ErrQuizInactive
	}

	if !quiz.AllowMultipleAttempts {
		done, err := s.attempts.HasCompletedAttempt(ctx, quizID, userID)
		if err != nil {
			return domain.Attempt{}, err
		}
		if done {
			return domain.Attempt{}, domain.ErrAlreadyAttempted
		}
	}

	attempt := domain.Attempt{
		ID:        s.newID(),
		QuizID:    quizID,
		UserID:    userID,
		StartedAt: s.now().UTC(),
	}
	if err := s.attempts.CreateAttempt(ctx, attempt); err != nil {
		return domain.Attempt{}, err
	}
	s.observer.AttemptStarted(quizID)
	s.log.Debug("attempt started",
		zap.String("attempt_id", attempt.ID),
		zap.String("quiz_id", quizID),
		zap.String("user_id", userID))
	return attempt, nil
}

// SubmitAttempt scores the answers and completes the attempt. A rejected submission leaves
// the attempt in progress; a completed attempt is never re-scored.
func (s *AttemptService) SubmitAttempt(ctx context.Context, attemptID, userID string, answers []domain.AnswerSubmission) (domain.Result, error) {
	attempt, err := s.attempts.GetAttempt(ctx, attemptID)
	if err != nil {
		return domain.Result{}, err
	}
	if attempt.UserID != userID {
		s.observer.SubmissionRejected("not_owner")
		return domain.Result{}, domain.ErrNotAttemptOwner
	}
	if attempt.Completed {
		s.observer.SubmissionRejected("already_completed")
		return domain.Result{}, domain.ErrAlreadyCompleted
	}

	// One read of the quiz definition is applied to the whole submission.
	quiz, err := s.quizzes.GetQuiz(ctx, attempt.QuizID)
	if err != nil {
		return domain.Result{}, err
	}

	graded, err := scoreSubmission(quiz, answers)
	if err != nil {
		s.reject(attempt, err)
		return domain.Result{}, err
	}

	endedAt := s.now().UTC()
	for i := range graded.answers {
		graded.answers[i].ID = s.newID()
		graded.answers[i].AttemptID = attempt.ID
	}
	err = s.attempts.CompleteAttempt(ctx, domain.AttemptCompletion{
		AttemptID: attempt.ID,
		EndedAt:   endedAt,
		Score:     graded.score,
		Passed:    graded.passed,
		Answers:   graded.answers,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyCompleted):
			s.observer.SubmissionRejected("already_completed")
		case errors.Is(err, domain.ErrInvalidReference):
			s.reject(attempt, err)
		}
		return domain.Result{}, err
	}

	s.observer.AttemptSubmitted(quiz.ID, graded.passed)
	s.log.Info("attempt completed",
		zap.String("attempt_id", attempt.ID),
		zap.String("quiz_id", quiz.ID),
		zap.Float64("score", graded.score),
		zap.Bool("passed", graded.passed))

	return domain.Result{
		AttemptID:    attempt.ID,
		QuizID:       quiz.ID,
		Score:        graded.score,
		Passed:       graded.passed,
		CorrectCount: graded.correctCount,
		TotalCount:   graded.totalCount,
		CompletedAt:  endedAt,
	}, nil
}

func (s *AttemptService) reject(attempt domain.Attempt, err error) {
	var integrity *domain.DataIntegrityError
	if errors.As(err, &integrity) {
		s.observer.SubmissionRejected("data_integrity")
		s.log.Error("quiz content cannot be scored",
			zap.String("quiz_id", integrity.QuizID),
			zap.String("question_id", integrity.QuestionID),
			zap.String("attempt_id", attempt.ID))
		return
	}
	s.observer.SubmissionRejected("invalid_reference")
	s.log.Debug("submission rejected",
		zap.String("attempt_id", attempt.ID),
		zap.Error(err))
}

// GetAttempt returns an attempt with its answers to its owner or an administrator.
func (s *AttemptService) GetAttempt(ctx context.Context, attemptID string, caller domain.User) (domain.Attempt, error) {
	attempt, err := s.attempts.GetAttempt(ctx, attemptID)
	if err != nil {
		return domain.Attempt{}, err
	}
	if attempt.UserID != caller.ID && !caller.IsAdmin() {
		return domain.Attempt{}, domain.ErrNotAttemptOwner
	}
	return attempt, nil
}

// ListAttempts lists the user's attempts, optionally narrowed by quiz and completion.
func (s *AttemptService) ListAttempts(ctx context.Context, userID, quizID string, completed *bool) ([]domain.Attempt, error) {
	return s.attempts.ListAttempts(ctx, AttemptFilter{UserID: userID, QuizID: quizID, Completed: completed})
}
