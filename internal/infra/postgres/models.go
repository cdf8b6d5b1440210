package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"quiz-competition-service/internal/domain"
)

type userRow struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           string    `bun:"id,pk"`
	Username     string    `bun:"username"`
	Email        string    `bun:"email"`
	PasswordHash string    `bun:"password_hash"`
	Role         string    `bun:"role"`
	IsActive     bool      `bun:"is_active"`
	CreatedAt    time.Time `bun:"created_at"`
}

func newUserRow(u domain.User) *userRow {
	return &userRow{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
	}
}

func (r userRow) toDomain() domain.User {
	return domain.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         domain.Role(r.Role),
		IsActive:     r.IsActive,
		CreatedAt:    r.CreatedAt,
	}
}

type categoryRow struct {
	bun.BaseModel `bun:"table:categories,alias:c"`

	ID          string `bun:"id,pk"`
	Name        string `bun:"name"`
	Description string `bun:"description"`
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions,alias:q"`

	ID          string    `bun:"id,pk"`
	Text        string    `bun:"text"`
	Difficulty  int       `bun:"difficulty"`
	Explanation string    `bun:"explanation"`
	CategoryID  *string   `bun:"category_id"`
	CreatedBy   string    `bun:"created_by"`
	CreatedAt   time.Time `bun:"created_at"`
}

func newQuestionRow(q domain.Question) *questionRow {
	return &questionRow{
		ID:          q.ID,
		Text:        q.Text,
		Difficulty:  q.Difficulty,
		Explanation: q.Explanation,
		CategoryID:  nullable(q.CategoryID),
		CreatedBy:   q.CreatedBy,
		CreatedAt:   q.CreatedAt,
	}
}

func (r questionRow) toDomain(options []domain.Option) domain.Question {
	q := domain.Question{
		ID:          r.ID,
		Text:        r.Text,
		Difficulty:  r.Difficulty,
		Explanation: r.Explanation,
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt,
		Options:     options,
	}
	if r.CategoryID != nil {
		q.CategoryID = *r.CategoryID
	}
	if q.Options == nil {
		q.Options = []domain.Option{}
	}
	return q
}

type optionRow struct {
	bun.BaseModel `bun:"table:options,alias:o"`

	ID         string `bun:"id,pk"`
	QuestionID string `bun:"question_id"`
	Text       string `bun:"text"`
	IsCorrect  bool   `bun:"is_correct"`
	Position   int    `bun:"position"`
}

func newOptionRows(options []domain.Option) []optionRow {
	rows := make([]optionRow, 0, len(options))
	for _, opt := range options {
		rows = append(rows, optionRow{
			ID:         opt.ID,
			QuestionID: opt.QuestionID,
			Text:       opt.Text,
			IsCorrect:  opt.Correct,
			Position:   opt.Position,
		})
	}
	return rows
}

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes,alias:qz"`

	ID                    string    `bun:"id,pk"`
	Title                 string    `bun:"title"`
	Description           string    `bun:"description"`
	TimeLimitSeconds      *int      `bun:"time_limit_seconds"`
	IsActive              bool      `bun:"is_active"`
	CreatedBy             string    `bun:"created_by"`
	PassPercentage        float64   `bun:"pass_percentage"`
	AllowMultipleAttempts bool      `bun:"allow_multiple_attempts"`
	CreatedAt             time.Time `bun:"created_at"`
}

func newQuizRow(q domain.Quiz) *quizRow {
	return &quizRow{
		ID:                    q.ID,
		Title:                 q.Title,
		Description:           q.Description,
		TimeLimitSeconds:      q.TimeLimitSeconds,
		IsActive:              q.IsActive,
		CreatedBy:             q.CreatedBy,
		PassPercentage:        q.PassPercentage,
		AllowMultipleAttempts: q.AllowMultipleAttempts,
		CreatedAt:             q.CreatedAt,
	}
}

func (r quizRow) toDomain() domain.Quiz {
	return domain.Quiz{
		ID:                    r.ID,
		Title:                 r.Title,
		Description:           r.Description,
		TimeLimitSeconds:      r.TimeLimitSeconds,
		IsActive:              r.IsActive,
		CreatedBy:             r.CreatedBy,
		PassPercentage:        r.PassPercentage,
		AllowMultipleAttempts: r.AllowMultipleAttempts,
		CreatedAt:             r.CreatedAt,
	}
}

type quizQuestionRow struct {
	bun.BaseModel `bun:"table:quiz_questions,alias:qq"`

	QuizID     string `bun:"quiz_id,pk"`
	QuestionID string `bun:"question_id,pk"`
	Position   int    `bun:"position"`
}

type attemptRow struct {
	bun.BaseModel `bun:"table:quiz_attempts,alias:a"`

	ID        string     `bun:"id,pk"`
	QuizID    string     `bun:"quiz_id"`
	UserID    string     `bun:"user_id"`
	StartedAt time.Time  `bun:"started_at"`
	EndedAt   *time.Time `bun:"ended_at"`
	Score     *float64   `bun:"score"`
	Completed bool       `bun:"completed"`
	Passed    *bool      `bun:"passed"`
}

func (r attemptRow) toDomain() domain.Attempt {
	return domain.Attempt{
		ID:        r.ID,
		QuizID:    r.QuizID,
		UserID:    r.UserID,
		StartedAt: r.StartedAt,
		EndedAt:   r.EndedAt,
		Score:     r.Score,
		Completed: r.Completed,
		Passed:    r.Passed,
	}
}

type answerRow struct {
	bun.BaseModel `bun:"table:user_answers,alias:ua"`

	ID               string   `bun:"id,pk"`
	AttemptID        string   `bun:"attempt_id"`
	QuestionID       string   `bun:"question_id"`
	OptionID         *string  `bun:"option_id"`
	IsCorrect        bool     `bun:"is_correct"`
	TimeTakenSeconds *float64 `bun:"time_taken_seconds"`
}

func newAnswerRows(answers []domain.UserAnswer) []answerRow {
	rows := make([]answerRow, 0, len(answers))
	for _, a := range answers {
		rows = append(rows, answerRow{
			ID:               a.ID,
			AttemptID:        a.AttemptID,
			QuestionID:       a.QuestionID,
			OptionID:         nullable(a.OptionID),
			IsCorrect:        a.Correct,
			TimeTakenSeconds: a.TimeTakenSeconds,
		})
	}
	return rows
}

func (r answerRow) toDomain() domain.UserAnswer {
	a := domain.UserAnswer{
		ID:               r.ID,
		AttemptID:        r.AttemptID,
		QuestionID:       r.QuestionID,
		Correct:          r.IsCorrect,
		TimeTakenSeconds: r.TimeTakenSeconds,
	}
	if r.OptionID != nil {
		a.OptionID = *r.OptionID
	}
	return a
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
