package postgres

import (
	"context"

	"github.com/uptrace/bun"

	"quiz-competition-service/internal/app"
	"quiz-competition-service/internal/domain"
)

// AttemptStore is the Postgres attempt ledger.
type AttemptStore struct {
	db *bun.DB
}

func NewAttemptStore(db *bun.DB) *AttemptStore {
	return &AttemptStore{db: db}
}

func (s *AttemptStore) CreateAttempt(ctx context.Context, attempt domain.Attempt) error {
	row := &attemptRow{
		ID:        attempt.ID,
		QuizID:    attempt.QuizID,
		UserID:    attempt.UserID,
		StartedAt: attempt.StartedAt,
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return mapWriteError(err, domain.ErrQuizNotFound)
	}
	return nil
}

func (s *AttemptStore) GetAttempt(ctx context.Context, attemptID string) (domain.Attempt, error) {
	var row attemptRow
	if err := s.db.NewSelect().Model(&row).Where("id = ?", attemptID).Scan(ctx); err != nil {
		return domain.Attempt{}, mapReadError(err, domain.ErrAttemptNotFound)
	}
	var answers []answerRow
	if err := s.db.NewSelect().Model(&answers).Where("attempt_id = ?", attemptID).Order("id ASC").Scan(ctx); err != nil {
		return domain.Attempt{}, err
	}
	attempt := row.toDomain()
	for _, a := range answers {
		attempt.Answers = append(attempt.Answers, a.toDomain())
	}
	return attempt, nil
}

func (s *AttemptStore) HasCompletedAttempt(ctx context.Context, quizID, userID string) (bool, error) {
	return s.db.NewSelect().
		Model((*attemptRow)(nil)).
		Where("quiz_id = ?", quizID).
		Where("user_id = ?", userID).
		Where("completed = TRUE").
		Exists(ctx)
}

// CompleteAttempt flips the attempt to completed only if it is still in progress and stores the
// answers in the same transaction. The conditional update serializes concurrent submits.
func (s *AttemptStore) CompleteAttempt(ctx context.Context, c domain.AttemptCompletion) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*attemptRow)(nil)).
			Set("ended_at = ?", c.EndedAt).
			Set("score = ?", c.Score).
			Set("passed = ?", c.Passed).
			Set("completed = TRUE").
			Where("id = ?", c.AttemptID).
			Where("completed = FALSE").
			Exec(ctx)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			exists, err := tx.NewSelect().Model((*attemptRow)(nil)).Where("id = ?", c.AttemptID).Exists(ctx)
			if err != nil {
				return err
			}
			if !exists {
				return domain.ErrAttemptNotFound
			}
			return domain.ErrAlreadyCompleted
		}
		if len(c.Answers) == 0 {
			return nil
		}
		rows := newAnswerRows(c.Answers)
		// A question or option removed after the quiz was read fails the foreign key.
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return mapWriteError(err, domain.ErrInvalidReference)
		}
		return nil
	})
}

func (s *AttemptStore) ListAttempts(ctx context.Context, filter app.AttemptFilter) ([]domain.Attempt, error) {
	var rows []attemptRow
	q := s.db.NewSelect().Model(&rows)
	if filter.UserID != "" {
		q.Where("user_id = ?", filter.UserID)
	}
	if filter.QuizID != "" {
		q.Where("quiz_id = ?", filter.QuizID)
	}
	if filter.Completed != nil {
		q.Where("completed = ?", *filter.Completed)
	}
	if err := q.Order("started_at ASC", "id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]domain.Attempt, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (s *AttemptStore) ListQuizAnswers(ctx context.Context, quizID string) ([]domain.UserAnswer, error) {
	var rows []answerRow
	err := s.db.NewSelect().
		Model(&rows).
		Join("JOIN quiz_attempts AS a ON a.id = ua.attempt_id").
		Where("a.quiz_id = ?", quizID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.UserAnswer, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (s *AttemptStore) CountQuizAttempts(ctx context.Context, quizID string) (int, error) {
	return s.db.NewSelect().Model((*attemptRow)(nil)).Where("quiz_id = ?", quizID).Count(ctx)
}

func (s *AttemptStore) QuestionAnswered(ctx context.Context, questionID string) (bool, error) {
	return s.db.NewSelect().Model((*answerRow)(nil)).Where("question_id = ?", questionID).Exists(ctx)
}
