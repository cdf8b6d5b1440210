package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quiz-competition-service/internal/domain"
)

const (
	defaultPageLimit      = 100
	defaultRandomCount    = 10
	minOptionsPerQuestion = 2
)

// OptionInput is an authored answer choice.
type OptionInput struct {
	Text    string
	Correct bool
}

// QuestionInput is the authored content of a new question.
type QuestionInput struct {
	Text        string
	Difficulty  int
	Explanation string
	CategoryID  string
	Options     []OptionInput
}

// QuestionUpdate carries the fields to change; nil fields are kept. A nil Options keeps the options.
type QuestionUpdate struct {
	Text        *string
	Difficulty  *int
	Explanation *string
	CategoryID  *string
	Options     []OptionInput
}

// QuizInput is the authored content of a new quiz.
type QuizInput struct {
	Title                 string
	Description           string
	TimeLimitSeconds      *int
	PassPercentage        float64
	IsActive              bool
	AllowMultipleAttempts bool
	QuestionIDs           []string
}

// QuizUpdate carries the fields to change; nil fields are kept. A nil QuestionIDs keeps the question list.
type QuizUpdate struct {
	Title                 *string
	Description           *string
	TimeLimitSeconds      *int
	PassPercentage        *float64
	IsActive              *bool
	AllowMultipleAttempts *bool
	QuestionIDs           []string
}

// CategoryUpdate carries the category fields to change.
type CategoryUpdate struct {
	Name        *string
	Description *string
}

// ContentService manages the content store used by the scoring engine.
type ContentService struct {
	content  ContentRepository
	attempts AttemptRepository
	quizzes  QuizCache
	log      *zap.Logger
	now      func() time.Time
	newID    func() string
}

func NewContentService(content ContentRepository, attempts AttemptRepository, quizzes QuizCache, logger *zap.Logger) *ContentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContentService{
		content:  content,
		attempts: attempts,
		quizzes:  quizzes,
		log:      logger.Named("content"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

func (s *ContentService) CreateCategory(ctx context.Context, name, description string) (domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Category{}, domain.Invalidf("category name is required")
	}
	category := domain.Category{ID: s.newID(), Name: name, Description: description}
	if err := s.content.CreateCategory(ctx, category); err != nil {
		return domain.Category{}, err
	}
	return category, nil
}

func (s *ContentService) GetCategory(ctx context.Context, categoryID string) (domain.Category, error) {
	return s.content.GetCategory(ctx, categoryID)
}

func (s *ContentService) ListCategories(ctx context.Context, skip, limit int) ([]domain.Category, error) {
	skip, limit = page(skip, limit)
	return s.content.ListCategories(ctx, skip, limit)
}

func (s *ContentService) UpdateCategory(ctx context.Context, categoryID string, update CategoryUpdate) (domain.Category, error) {
	category, err := s.content.GetCategory(ctx, categoryID)
	if err != nil {
		return domain.Category{}, err
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return domain.Category{}, domain.Invalidf("category name is required")
		}
		category.Name = name
	}
	if update.Description != nil {
		category.Description = *update.Description
	}
	if err := s.content.UpdateCategory(ctx, category); err != nil {
		return domain.Category{}, err
	}
	return category, nil
}

func (s *ContentService) DeleteCategory(ctx context.Context, categoryID string) error {
	return s.content.DeleteCategory(ctx, categoryID)
}

// CreateQuestion stores a question with its options.
func (s *ContentService) CreateQuestion(ctx context.Context, creatorID string, in QuestionInput) (domain.Question, error) {
	question := domain.Question{
		ID:          s.newID(),
		Text:        strings.TrimSpace(in.Text),
		Difficulty:  in.Difficulty,
		Explanation: in.Explanation,
		CategoryID:  in.CategoryID,
		CreatedBy:   creatorID,
		CreatedAt:   s.now().UTC(),
	}
	if question.Difficulty == 0 {
		question.Difficulty = 1
	}
	question.Options = s.buildOptions(question.ID, in.Options)
	if err := s.validateQuestion(ctx, question); err != nil {
		return domain.Question{}, err
	}
	if err := s.content.CreateQuestion(ctx, question); err != nil {
		return domain.Question{}, err
	}
	return question, nil
}

func (s *ContentService) GetQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	return s.content.GetQuestion(ctx, questionID)
}

func (s *ContentService) ListQuestions(ctx context.Context, filter QuestionFilter) ([]domain.Question, error) {
	filter.Skip, filter.Limit = page(filter.Skip, filter.Limit)
	return s.content.ListQuestions(ctx, filter)
}

// RandomQuestions picks up to filter.Limit random questions for quiz authoring.
func (s *ContentService) RandomQuestions(ctx context.Context, filter QuestionFilter) ([]domain.Question, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultRandomCount
	}
	filter.Skip = 0
	return s.content.RandomQuestions(ctx, filter)
}

// UpdateQuestion edits a question. Options of an answered question are frozen.
func (s *ContentService) UpdateQuestion(ctx context.Context, questionID string, update QuestionUpdate) (domain.Question, error) {
	question, err := s.content.GetQuestion(ctx, questionID)
	if err != nil {
		return domain.Question{}, err
	}
	if update.Text != nil {
		question.Text = strings.TrimSpace(*update.Text)
	}
	if update.Difficulty != nil {
		question.Difficulty = *update.Difficulty
	}
	if update.Explanation != nil {
		question.Explanation = *update.Explanation
	}
	if update.CategoryID != nil {
		question.CategoryID = *update.CategoryID
	}
	replaceOptions := update.Options != nil
	if replaceOptions {
		answered, err := s.attempts.QuestionAnswered(ctx, questionID)
		if err != nil {
			return domain.Question{}, err
		}
		if answered {
			return domain.Question{}, domain.ErrContentLocked
		}
		question.Options = s.buildOptions(questionID, update.Options)
	}
	if err := s.validateQuestion(ctx, question); err != nil {
		return domain.Question{}, err
	}
	if err := s.content.UpdateQuestion(ctx, question, replaceOptions); err != nil {
		return domain.Question{}, err
	}
	s.invalidateQuestion(ctx, questionID)
	return question, nil
}

// DeleteQuestion removes a question that no attempt depends on.
func (s *ContentService) DeleteQuestion(ctx context.Context, questionID string) error {
	if _, err := s.content.GetQuestion(ctx, questionID); err != nil {
		return err
	}
	answered, err := s.attempts.QuestionAnswered(ctx, questionID)
	if err != nil {
		return err
	}
	if answered {
		return domain.ErrContentLocked
	}
	quizIDs, err := s.content.QuizIDsForQuestion(ctx, questionID)
	if err != nil {
		return err
	}
	for _, quizID := range quizIDs {
		if err := s.ensureQuestionListEditable(ctx, quizID); err != nil {
			return err
		}
	}
	if err := s.content.DeleteQuestion(ctx, questionID); err != nil {
		return err
	}
	s.invalidate(ctx, quizIDs...)
	return nil
}

// CreateQuiz stores a quiz linking existing questions in the given order.
func (s *ContentService) CreateQuiz(ctx context.Context, creatorID string, in QuizInput) (domain.Quiz, error) {
	quiz := domain.Quiz{
		ID:                    s.newID(),
		Title:                 strings.TrimSpace(in.Title),
		Description:           in.Description,
		TimeLimitSeconds:      in.TimeLimitSeconds,
		IsActive:              in.IsActive,
		CreatedBy:             creatorID,
		PassPercentage:        in.PassPercentage,
		AllowMultipleAttempts: in.AllowMultipleAttempts,
		CreatedAt:             s.now().UTC(),
	}
	questions, err := s.resolveQuestions(ctx, in.QuestionIDs)
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz.Questions = questions
	if err := validateQuiz(quiz); err != nil {
		return domain.Quiz{}, err
	}
	if err := s.content.CreateQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

// GetQuiz returns the full quiz definition. Participants only see active quizzes and never
// see which options are correct.
func (s *ContentService) GetQuiz(ctx context.Context, quizID string, caller domain.User) (domain.Quiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if caller.IsAdmin() {
		return quiz, nil
	}
	if !quiz.IsActive {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return redactAnswers(quiz), nil
}

// ListQuizzes lists quiz headers. Participants only see active quizzes.
func (s *ContentService) ListQuizzes(ctx context.Context, filter QuizFilter, caller domain.User) ([]domain.Quiz, error) {
	if !caller.IsAdmin() {
		active := true
		filter.Active = &active
	}
	filter.Skip, filter.Limit = page(filter.Skip, filter.Limit)
	return s.content.ListQuizzes(ctx, filter)
}

// UpdateQuiz edits a quiz. The question list is frozen once any attempt exists.
// Header fields are read from the store, never from the definition cache.
func (s *ContentService) UpdateQuiz(ctx context.Context, quizID string, update QuizUpdate) (domain.Quiz, error) {
	quiz, err := s.content.GetQuizHeader(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if update.Title != nil {
		quiz.Title = strings.TrimSpace(*update.Title)
	}
	if update.Description != nil {
		quiz.Description = *update.Description
	}
	if update.TimeLimitSeconds != nil {
		quiz.TimeLimitSeconds = update.TimeLimitSeconds
	}
	if update.PassPercentage != nil {
		quiz.PassPercentage = *update.PassPercentage
	}
	if update.IsActive != nil {
		quiz.IsActive = *update.IsActive
	}
	if update.AllowMultipleAttempts != nil {
		quiz.AllowMultipleAttempts = *update.AllowMultipleAttempts
	}
	relink := update.QuestionIDs != nil
	if relink {
		if err := s.ensureQuestionListEditable(ctx, quizID); err != nil {
			return domain.Quiz{}, err
		}
		questions, err := s.resolveQuestions(ctx, update.QuestionIDs)
		if err != nil {
			return domain.Quiz{}, err
		}
		quiz.Questions = questions
	}
	if err := validateQuiz(quiz); err != nil {
		return domain.Quiz{}, err
	}
	if err := s.content.UpdateQuiz(ctx, quiz, relink); err != nil {
		return domain.Quiz{}, err
	}
	s.invalidate(ctx, quizID)
	return s.quizzes.GetQuiz(ctx, quizID)
}

// DeleteQuiz deactivates a quiz; its attempts and leaderboard are kept.
func (s *ContentService) DeleteQuiz(ctx context.Context, quizID string) error {
	quiz, err := s.content.GetQuizHeader(ctx, quizID)
	if err != nil {
		return err
	}
	quiz.IsActive = false
	if err := s.content.UpdateQuiz(ctx, quiz, false); err != nil {
		return err
	}
	s.invalidate(ctx, quizID)
	return nil
}

func (s *ContentService) ensureQuestionListEditable(ctx context.Context, quizID string) error {
	n, err := s.attempts.CountQuizAttempts(ctx, quizID)
	if err != nil {
		return err
	}
	if n > 0 {
		return domain.ErrContentLocked
	}
	return nil
}

func (s *ContentService) resolveQuestions(ctx context.Context, ids []string) ([]domain.Question, error) {
	seen := make(map[string]struct{}, len(ids))
	questions := make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return nil, domain.Invalidf("question %q listed twice", id)
		}
		seen[id] = struct{}{}
		question, err := s.content.GetQuestion(ctx, id)
		if err != nil {
			return nil, err
		}
		questions = append(questions, question)
	}
	return questions, nil
}

func (s *ContentService) validateQuestion(ctx context.Context, q domain.Question) error {
	if q.Text == "" {
		return domain.Invalidf("question text is required")
	}
	if q.Difficulty < 1 || q.Difficulty > 5 {
		return domain.Invalidf("difficulty must be between 1 and 5")
	}
	if len(q.Options) < minOptionsPerQuestion {
		return domain.Invalidf("a question needs at least %d options", minOptionsPerQuestion)
	}
	if len(q.CorrectOptions()) == 0 {
		return domain.Invalidf("at least one option must be marked correct")
	}
	for _, opt := range q.Options {
		if strings.TrimSpace(opt.Text) == "" {
			return domain.Invalidf("option text is required")
		}
	}
	if q.CategoryID != "" {
		if _, err := s.content.GetCategory(ctx, q.CategoryID); err != nil {
			return err
		}
	}
	return nil
}

func validateQuiz(q domain.Quiz) error {
	if q.Title == "" {
		return domain.Invalidf("quiz title is required")
	}
	if q.PassPercentage < 0 || q.PassPercentage > 100 {
		return domain.Invalidf("pass percentage must be between 0 and 100")
	}
	if q.TimeLimitSeconds != nil && *q.TimeLimitSeconds <= 0 {
		return domain.Invalidf("time limit must be positive")
	}
	return nil
}

func (s *ContentService) buildOptions(questionID string, inputs []OptionInput) []domain.Option {
	options := make([]domain.Option, 0, len(inputs))
	for i, in := range inputs {
		options = append(options, domain.Option{
			ID:         s.newID(),
			QuestionID: questionID,
			Text:       strings.TrimSpace(in.Text),
			Correct:    in.Correct,
			Position:   i,
		})
	}
	return options
}

func (s *ContentService) invalidateQuestion(ctx context.Context, questionID string) {
	quizIDs, err := s.content.QuizIDsForQuestion(ctx, questionID)
	if err != nil {
		s.log.Warn("lookup quizzes for question", zap.String("question_id", questionID), zap.Error(err))
		return
	}
	s.invalidate(ctx, quizIDs...)
}

func (s *ContentService) invalidate(ctx context.Context, quizIDs ...string) {
	if len(quizIDs) == 0 {
		return
	}
	if err := s.quizzes.Invalidate(ctx, quizIDs...); err != nil {
		s.log.Warn("invalidate cached quizzes", zap.Strings("quiz_ids", quizIDs), zap.Error(err))
	}
}

func redactAnswers(quiz domain.Quiz) domain.Quiz {
	questions := make([]domain.Question, len(quiz.Questions))
	for i, question := range quiz.Questions {
		options := make([]domain.Option, len(question.Options))
		for j, opt := range question.Options {
			opt.Correct = false
			options[j] = opt
		}
		question.Options = options
		question.Explanation = ""
		questions[i] = question
	}
	quiz.Questions = questions
	return quiz
}

func page(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > defaultPageLimit {
		limit = defaultPageLimit
	}
	return skip, limit
}
