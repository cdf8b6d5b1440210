package postgres

import (
	"context"

	"github.com/uptrace/bun"

	"quiz-competition-service/internal/app"
	"quiz-competition-service/internal/domain"
)

// ContentStore persists categories, questions and quizzes with bun.
type ContentStore struct {
	db *bun.DB
}

func NewContentStore(db *bun.DB) *ContentStore {
	return &ContentStore{db: db}
}

func (s *ContentStore) CreateCategory(ctx context.Context, category domain.Category) error {
	row := &categoryRow{ID: category.ID, Name: category.Name, Description: category.Description}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return mapWriteError(err, nil)
	}
	return nil
}

func (s *ContentStore) GetCategory(ctx context.Context, categoryID string) (domain.Category, error) {
	var row categoryRow
	if err := s.db.NewSelect().Model(&row).Where("id = ?", categoryID).Scan(ctx); err != nil {
		return domain.Category{}, mapReadError(err, domain.ErrCategoryNotFound)
	}
	return domain.Category{ID: row.ID, Name: row.Name, Description: row.Description}, nil
}

func (s *ContentStore) ListCategories(ctx context.Context, skip, limit int) ([]domain.Category, error) {
	var rows []categoryRow
	err := s.db.NewSelect().Model(&rows).Order("name ASC").Offset(skip).Limit(limit).Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Category{ID: row.ID, Name: row.Name, Description: row.Description})
	}
	return out, nil
}

func (s *ContentStore) UpdateCategory(ctx context.Context, category domain.Category) error {
	row := &categoryRow{ID: category.ID, Name: category.Name, Description: category.Description}
	res, err := s.db.NewUpdate().Model(row).Column("name", "description").WherePK().Exec(ctx)
	if err != nil {
		return mapWriteError(err, nil)
	}
	return requireRows(res, domain.ErrCategoryNotFound)
}

// DeleteCategory relies on ON DELETE SET NULL to detach the category's questions.
func (s *ContentStore) DeleteCategory(ctx context.Context, categoryID string) error {
	res, err := s.db.NewDelete().Model((*categoryRow)(nil)).Where("id = ?", categoryID).Exec(ctx)
	if err != nil {
		return err
	}
	return requireRows(res, domain.ErrCategoryNotFound)
}

func (s *ContentStore) CreateQuestion(ctx context.Context, question domain.Question) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(newQuestionRow(question)).Exec(ctx); err != nil {
			return mapWriteError(err, domain.ErrCategoryNotFound)
		}
		return insertOptions(ctx, tx, question.Options)
	})
}

func (s *ContentStore) GetQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	var row questionRow
	if err := s.db.NewSelect().Model(&row).Where("id = ?", questionID).Scan(ctx); err != nil {
		return domain.Question{}, mapReadError(err, domain.ErrQuestionNotFound)
	}
	options, err := loadOptions(ctx, s.db, []string{row.ID})
	if err != nil {
		return domain.Question{}, err
	}
	return row.toDomain(options[row.ID]), nil
}

func (s *ContentStore) ListQuestions(ctx context.Context, filter app.QuestionFilter) ([]domain.Question, error) {
	var rows []questionRow
	q := s.db.NewSelect().Model(&rows)
	applyQuestionFilter(q, filter)
	err := q.Order("created_at ASC", "id ASC").Offset(filter.Skip).Limit(filter.Limit).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return s.withOptions(ctx, rows)
}

func (s *ContentStore) RandomQuestions(ctx context.Context, filter app.QuestionFilter) ([]domain.Question, error) {
	var rows []questionRow
	q := s.db.NewSelect().Model(&rows)
	applyQuestionFilter(q, filter)
	if err := q.OrderExpr("random()").Limit(filter.Limit).Scan(ctx); err != nil {
		return nil, err
	}
	return s.withOptions(ctx, rows)
}

func applyQuestionFilter(q *bun.SelectQuery, filter app.QuestionFilter) {
	if filter.CategoryID != "" {
		q.Where("category_id = ?", filter.CategoryID)
	}
	if filter.Difficulty != 0 {
		q.Where("difficulty = ?", filter.Difficulty)
	}
}

func (s *ContentStore) withOptions(ctx context.Context, rows []questionRow) ([]domain.Question, error) {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	options, err := loadOptions(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Question, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain(options[row.ID]))
	}
	return out, nil
}

func (s *ContentStore) UpdateQuestion(ctx context.Context, question domain.Question, replaceOptions bool) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model(newQuestionRow(question)).
			Column("text", "difficulty", "explanation", "category_id").
			WherePK().
			Exec(ctx)
		if err != nil {
			return mapWriteError(err, domain.ErrCategoryNotFound)
		}
		if err := requireRows(res, domain.ErrQuestionNotFound); err != nil {
			return err
		}
		if !replaceOptions {
			return nil
		}
		if _, err := tx.NewDelete().Model((*optionRow)(nil)).Where("question_id = ?", question.ID).Exec(ctx); err != nil {
			// answers still point at the old options
			return mapWriteError(err, domain.ErrContentLocked)
		}
		return insertOptions(ctx, tx, question.Options)
	})
}

// DeleteQuestion removes the question; options and quiz links cascade.
func (s *ContentStore) DeleteQuestion(ctx context.Context, questionID string) error {
	res, err := s.db.NewDelete().Model((*questionRow)(nil)).Where("id = ?", questionID).Exec(ctx)
	if err != nil {
		return mapWriteError(err, domain.ErrContentLocked)
	}
	return requireRows(res, domain.ErrQuestionNotFound)
}

func (s *ContentStore) QuizIDsForQuestion(ctx context.Context, questionID string) ([]string, error) {
	var ids []string
	err := s.db.NewSelect().
		Model((*quizQuestionRow)(nil)).
		Column("quiz_id").
		Where("question_id = ?", questionID).
		Order("quiz_id ASC").
		Scan(ctx, &ids)
	return ids, err
}

func (s *ContentStore) CreateQuiz(ctx context.Context, quiz domain.Quiz) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(newQuizRow(quiz)).Exec(ctx); err != nil {
			return mapWriteError(err, nil)
		}
		return linkQuestions(ctx, tx, quiz)
	})
}

func (s *ContentStore) GetQuizHeader(ctx context.Context, quizID string) (domain.Quiz, error) {
	var row quizRow
	if err := s.db.NewSelect().Model(&row).Where("id = ?", quizID).Scan(ctx); err != nil {
		return domain.Quiz{}, mapReadError(err, domain.ErrQuizNotFound)
	}
	return row.toDomain(), nil
}

func (s *ContentStore) ListQuizzes(ctx context.Context, filter app.QuizFilter) ([]domain.Quiz, error) {
	var rows []quizRow
	q := s.db.NewSelect().Model(&rows)
	if filter.Active != nil {
		q.Where("is_active = ?", *filter.Active)
	}
	if err := q.Order("created_at ASC", "id ASC").Offset(filter.Skip).Limit(filter.Limit).Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]domain.Quiz, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (s *ContentStore) UpdateQuiz(ctx context.Context, quiz domain.Quiz, relink bool) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model(newQuizRow(quiz)).
			Column("title", "description", "time_limit_seconds", "is_active", "pass_percentage", "allow_multiple_attempts").
			WherePK().
			Exec(ctx)
		if err != nil {
			return err
		}
		if err := requireRows(res, domain.ErrQuizNotFound); err != nil {
			return err
		}
		if !relink {
			return nil
		}
		if _, err := tx.NewDelete().Model((*quizQuestionRow)(nil)).Where("quiz_id = ?", quiz.ID).Exec(ctx); err != nil {
			return err
		}
		return linkQuestions(ctx, tx, quiz)
	})
}

func insertOptions(ctx context.Context, db bun.IDB, options []domain.Option) error {
	if len(options) == 0 {
		return nil
	}
	rows := newOptionRows(options)
	_, err := db.NewInsert().Model(&rows).Exec(ctx)
	return err
}

func linkQuestions(ctx context.Context, db bun.IDB, quiz domain.Quiz) error {
	if len(quiz.Questions) == 0 {
		return nil
	}
	rows := make([]quizQuestionRow, 0, len(quiz.Questions))
	for i, question := range quiz.Questions {
		rows = append(rows, quizQuestionRow{QuizID: quiz.ID, QuestionID: question.ID, Position: i})
	}
	if _, err := db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return mapWriteError(err, domain.ErrQuestionNotFound)
	}
	return nil
}

func loadOptions(ctx context.Context, db bun.IDB, questionIDs []string) (map[string][]domain.Option, error) {
	out := make(map[string][]domain.Option, len(questionIDs))
	if len(questionIDs) == 0 {
		return out, nil
	}
	var rows []optionRow
	err := db.NewSelect().
		Model(&rows).
		Where("question_id IN (?)", bun.In(questionIDs)).
		Order("question_id ASC", "position ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.QuestionID] = append(out[row.QuestionID], domain.Option{
			ID:         row.ID,
			QuestionID: row.QuestionID,
			Text:       row.Text,
			Correct:    row.IsCorrect,
			Position:   row.Position,
		})
	}
	return out, nil
}
