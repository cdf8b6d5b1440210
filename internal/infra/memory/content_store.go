package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"quiz-competition-service/internal/app"
	"quiz-competition-service/internal/domain"
)

// ContentStore is an in-memory implementation of app.ContentRepository.
// It also serves as a QuizLoader for the quiz caches.
type ContentStore struct {
	mu            sync.RWMutex
	categories    map[string]domain.Category
	questions     map[string]domain.Question
	quizzes       map[string]domain.Quiz
	quizQuestions map[string][]string
	rnd           *rand.Rand
}

func NewContentStore() *ContentStore {
	return &ContentStore{
		categories:    make(map[string]domain.Category),
		questions:     make(map[string]domain.Question),
		quizzes:       make(map[string]domain.Quiz),
		quizQuestions: make(map[string][]string),
		rnd:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *ContentStore) CreateCategory(_ context.Context, category domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.categories {
		if existing.Name == category.Name {
			return domain.ErrConflict
		}
	}
	s.categories[category.ID] = category
	return nil
}

func (s *ContentStore) GetCategory(_ context.Context, categoryID string) (domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	category, ok := s.categories[categoryID]
	if !ok {
		return domain.Category{}, domain.ErrCategoryNotFound
	}
	return category, nil
}

func (s *ContentStore) ListCategories(_ context.Context, skip, limit int) ([]domain.Category, error) {
	s.mu.RLock()
	out := make([]domain.Category, 0, len(s.categories))
	for _, category := range s.categories {
		out = append(out, category)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, skip, limit), nil
}

func (s *ContentStore) UpdateCategory(_ context.Context, category domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[category.ID]; !ok {
		return domain.ErrCategoryNotFound
	}
	for id, existing := range s.categories {
		if id != category.ID && existing.Name == category.Name {
			return domain.ErrConflict
		}
	}
	s.categories[category.ID] = category
	return nil
}

func (s *ContentStore) DeleteCategory(_ context.Context, categoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[categoryID]; !ok {
		return domain.ErrCategoryNotFound
	}
	delete(s.categories, categoryID)
	for id, question := range s.questions {
		if question.CategoryID == categoryID {
			question.CategoryID = ""
			s.questions[id] = question
		}
	}
	return nil
}

func (s *ContentStore) CreateQuestion(_ context.Context, question domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[question.ID] = copyQuestion(question)
	return nil
}

func (s *ContentStore) GetQuestion(_ context.Context, questionID string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	question, ok := s.questions[questionID]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return copyQuestion(question), nil
}

func (s *ContentStore) ListQuestions(_ context.Context, filter app.QuestionFilter) ([]domain.Question, error) {
	out := s.filterQuestions(filter)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return paginate(out, filter.Skip, filter.Limit), nil
}

func (s *ContentStore) RandomQuestions(_ context.Context, filter app.QuestionFilter) ([]domain.Question, error) {
	out := s.filterQuestions(filter)
	s.mu.Lock()
	s.rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	s.mu.Unlock()
	return paginate(out, 0, filter.Limit), nil
}

func (s *ContentStore) filterQuestions(filter app.QuestionFilter) []domain.Question {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, 0, len(s.questions))
	for _, question := range s.questions {
		if filter.CategoryID != "" && question.CategoryID != filter.CategoryID {
			continue
		}
		if filter.Difficulty != 0 && question.Difficulty != filter.Difficulty {
			continue
		}
		out = append(out, copyQuestion(question))
	}
	return out
}

func (s *ContentStore) UpdateQuestion(_ context.Context, question domain.Question, replaceOptions bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.questions[question.ID]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	if !replaceOptions {
		question.Options = existing.Options
	}
	s.questions[question.ID] = copyQuestion(question)
	return nil
}

func (s *ContentStore) DeleteQuestion(_ context.Context, questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[questionID]; !ok {
		return domain.ErrQuestionNotFound
	}
	delete(s.questions, questionID)
	for quizID, ids := range s.quizQuestions {
		kept := ids[:0:0]
		for _, id := range ids {
			if id != questionID {
				kept = append(kept, id)
			}
		}
		s.quizQuestions[quizID] = kept
	}
	return nil
}

func (s *ContentStore) QuizIDsForQuestion(_ context.Context, questionID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for quizID, ids := range s.quizQuestions {
		for _, id := range ids {
			if id == questionID {
				out = append(out, quizID)
				break
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *ContentStore) CreateQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range quiz.QuestionIDs() {
		if _, ok := s.questions[id]; !ok {
			return domain.ErrQuestionNotFound
		}
	}
	s.quizQuestions[quiz.ID] = quiz.QuestionIDs()
	quiz.Questions = nil
	s.quizzes[quiz.ID] = quiz
	return nil
}

func (s *ContentStore) GetQuizHeader(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *ContentStore) ListQuizzes(_ context.Context, filter app.QuizFilter) ([]domain.Quiz, error) {
	s.mu.RLock()
	out := make([]domain.Quiz, 0, len(s.quizzes))
	for _, quiz := range s.quizzes {
		if filter.Active != nil && quiz.IsActive != *filter.Active {
			continue
		}
		out = append(out, quiz)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return paginate(out, filter.Skip, filter.Limit), nil
}

func (s *ContentStore) UpdateQuiz(_ context.Context, quiz domain.Quiz, relink bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quiz.ID]; !ok {
		return domain.ErrQuizNotFound
	}
	if relink {
		for _, id := range quiz.QuestionIDs() {
			if _, ok := s.questions[id]; !ok {
				return domain.ErrQuestionNotFound
			}
		}
		s.quizQuestions[quiz.ID] = quiz.QuestionIDs()
	}
	quiz.Questions = nil
	s.quizzes[quiz.ID] = quiz
	return nil
}

// LoadQuiz implements QuizLoader: the quiz with its questions and options in order.
func (s *ContentStore) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	ids := s.quizQuestions[quizID]
	quiz.Questions = make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		if question, ok := s.questions[id]; ok {
			quiz.Questions = append(quiz.Questions, copyQuestion(question))
		}
	}
	return quiz, nil
}

func copyQuestion(q domain.Question) domain.Question {
	q.Options = append([]domain.Option(nil), q.Options...)
	return q
}

func paginate[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return []T{}
	}
	items = items[skip:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
