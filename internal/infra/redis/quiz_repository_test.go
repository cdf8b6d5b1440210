package redis

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quiz-competition-service/internal/domain"
	"quiz-competition-service/internal/infra/memory"
)

func TestQuizRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{QuizLoader: seededContent(t)}
	repo := NewQuizRepository(newClient(mr), loader, time.Minute, nil)

	quiz, err := repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls.Load())
	}
	if !mr.Exists("quiz:quiz-1:definition") {
		t.Fatalf("expected definition key in redis")
	}

	// Second call should hit cache, loader not incremented.
	cached, err := repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get cached quiz: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls.Load())
	}
	if cached.Title != quiz.Title || len(cached.Questions) != 1 || !cached.Questions[0].Options[1].Correct {
		t.Fatalf("cached quiz lost content: %+v", cached)
	}
}

func TestQuizRepositoryInvalidateDeletesKey(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{QuizLoader: seededContent(t)}
	repo := NewQuizRepository(newClient(mr), loader, time.Minute, nil)
	ctx := context.Background()

	if _, err := repo.GetQuiz(ctx, "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if err := repo.Invalidate(ctx, "quiz-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("quiz:quiz-1:definition") {
		t.Fatalf("expected definition key removed")
	}
	if _, err := repo.GetQuiz(ctx, "quiz-1"); err != nil {
		t.Fatalf("get quiz after invalidate: %v", err)
	}
	if loader.calls.Load() != 2 {
		t.Fatalf("expected reload, loader calls=%d", loader.calls.Load())
	}
	if !mr.Exists("quiz:quiz-1:definition") {
		t.Fatalf("expected reloaded definition cached again")
	}
}

func TestQuizRepositoryDropsLoadOverlappingInvalidate(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := newGatedLoader(seededContent(t))
	repo := NewQuizRepository(newClient(mr), loader, time.Minute, nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := repo.GetQuiz(ctx, "quiz-1")
		done <- err
	}()

	<-loader.entered
	if err := repo.Invalidate(ctx, "quiz-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	close(loader.release)
	if err := <-done; err != nil {
		t.Fatalf("get quiz: %v", err)
	}

	if mr.Exists("quiz:quiz-1:definition") {
		t.Fatalf("definition loaded before the invalidation must not be cached")
	}
	if _, err := repo.GetQuiz(ctx, "quiz-1"); err != nil {
		t.Fatalf("get quiz after invalidate: %v", err)
	}
	if loader.calls.Load() != 2 {
		t.Fatalf("expected a fresh load, loader calls=%d", loader.calls.Load())
	}
	if !mr.Exists("quiz:quiz-1:definition") {
		t.Fatalf("expected the fresh definition cached")
	}
}

func TestQuizRepositoryExpiresEntries(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{QuizLoader: seededContent(t)}
	repo := NewQuizRepository(newClient(mr), loader, time.Minute, nil)
	ctx := context.Background()

	_, _ = repo.GetQuiz(ctx, "quiz-1")
	mr.FastForward(2 * time.Minute)
	_, _ = repo.GetQuiz(ctx, "quiz-1")
	if loader.calls.Load() != 2 {
		t.Fatalf("expected reload after expiry, loader calls=%d", loader.calls.Load())
	}
}

func TestQuizRepositoryFallsBackWhenRedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := newClient(mr)
	mr.Close()

	repo := NewQuizRepository(client, seededContent(t), time.Minute, nil)
	quiz, err := repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("expected loader result despite redis outage, got %v", err)
	}
	if quiz.ID != "quiz-1" {
		t.Fatalf("unexpected quiz %q", quiz.ID)
	}
}

type countingLoader struct {
	QuizLoader
	calls atomic.Int32
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.calls.Add(1)
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

// gatedLoader holds its first load until release is closed.
type gatedLoader struct {
	QuizLoader
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func newGatedLoader(inner QuizLoader) *gatedLoader {
	return &gatedLoader{QuizLoader: inner, entered: make(chan struct{}), release: make(chan struct{})}
}

func (l *gatedLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if l.calls.Add(1) == 1 {
		quiz, err := l.QuizLoader.LoadQuiz(ctx, quizID)
		close(l.entered)
		<-l.release
		return quiz, err
	}
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func seededContent(t *testing.T) *memory.ContentStore {
	t.Helper()
	store := memory.NewContentStore()
	ctx := context.Background()
	question := domain.Question{
		ID:         "q1",
		Text:       "What is 2 + 2?",
		Difficulty: 1,
		Options: []domain.Option{
			{ID: "o1", QuestionID: "q1", Text: "3", Correct: false},
			{ID: "o2", QuestionID: "q1", Text: "4", Correct: true, Position: 1},
		},
	}
	if err := store.CreateQuestion(ctx, question); err != nil {
		t.Fatalf("create question: %v", err)
	}
	quiz := domain.Quiz{
		ID:             "quiz-1",
		Title:          "Arithmetic",
		IsActive:       true,
		PassPercentage: 50,
		Questions:      []domain.Question{{ID: "q1"}},
	}
	if err := store.CreateQuiz(ctx, quiz); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	return store
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
