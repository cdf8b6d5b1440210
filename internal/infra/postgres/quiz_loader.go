package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-competition-service/internal/domain"
)

// QuizLoader loads a quiz with its ordered questions and options from one snapshot.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var quiz domain.Quiz
	err = tx.QueryRow(ctx, `
		SELECT id, title, description, time_limit_seconds, is_active, created_by,
		       pass_percentage, allow_multiple_attempts, created_at
		FROM quizzes WHERE id = $1`, quizID).Scan(
		&quiz.ID, &quiz.Title, &quiz.Description, &quiz.TimeLimitSeconds, &quiz.IsActive, &quiz.CreatedBy,
		&quiz.PassPercentage, &quiz.AllowMultipleAttempts, &quiz.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}

	questions, err := loadQuizQuestions(ctx, tx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz.Questions = questions

	if err := tx.Commit(ctx); err != nil {
		return domain.Quiz{}, fmt.Errorf("commit snapshot: %w", err)
	}
	return quiz, nil
}

func loadQuizQuestions(ctx context.Context, tx pgx.Tx, quizID string) ([]domain.Question, error) {
	rows, err := tx.Query(ctx, `
		SELECT q.id, q.text, q.difficulty, q.explanation, q.category_id, q.created_by, q.created_at
		FROM quiz_questions qq
		JOIN questions q ON q.id = qq.question_id
		WHERE qq.quiz_id = $1
		ORDER BY qq.position`, quizID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	questions := make([]domain.Question, 0)
	index := make(map[string]int)
	for rows.Next() {
		var q domain.Question
		var categoryID *string
		if err := rows.Scan(&q.ID, &q.Text, &q.Difficulty, &q.Explanation, &categoryID, &q.CreatedBy, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if categoryID != nil {
			q.CategoryID = *categoryID
		}
		q.Options = []domain.Option{}
		index[q.ID] = len(questions)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(questions) == 0 {
		return questions, nil
	}

	ids := make([]string, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}
	optRows, err := tx.Query(ctx, `
		SELECT id, question_id, text, is_correct, position
		FROM options
		WHERE question_id = ANY($1)
		ORDER BY question_id, position`, ids)
	if err != nil {
		return nil, fmt.Errorf("load options: %w", err)
	}
	defer optRows.Close()

	for optRows.Next() {
		var opt domain.Option
		if err := optRows.Scan(&opt.ID, &opt.QuestionID, &opt.Text, &opt.Correct, &opt.Position); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		i := index[opt.QuestionID]
		questions[i].Options = append(questions[i].Options, opt)
	}
	if err := optRows.Err(); err != nil {
		return nil, fmt.Errorf("load options: %w", err)
	}
	return questions, nil
}
