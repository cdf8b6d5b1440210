package app_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"quiz-competition-service/internal/app"
	"quiz-competition-service/internal/domain"
	"quiz-competition-service/internal/infra/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	content  *memory.ContentStore
	attempts *memory.AttemptStore
	users    *memory.UserStore
	quizzes  *memory.QuizRepository
	clock    *fakeClock
	engine   *app.AttemptService
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithLogger(t, zaptest.NewLogger(t))
}

func newHarnessWithLogger(t *testing.T, logger *zap.Logger) *harness {
	t.Helper()
	h := &harness{
		content:  memory.NewContentStore(),
		attempts: memory.NewAttemptStore(),
		users:    memory.NewUserStore(),
		clock:    newFakeClock(),
	}
	// ttl 0 disables caching so direct store edits are visible immediately.
	h.quizzes = memory.NewQuizRepository(h.content, 0)
	h.engine = app.NewAttemptServiceWithClock(h.attempts, h.quizzes, logger, h.clock.Now)
	return h
}

type quizFixture struct {
	id             string
	questions      int
	pass           float64
	allowMultiple  bool
	inactive       bool
	noCorrectIndex int // 1-based index of a question without a correct option; 0 for none
}

// seedQuiz creates a quiz whose question i has options "<qid>-right" and "<qid>-wrong".
func (h *harness) seedQuiz(t *testing.T, fx quizFixture) domain.Quiz {
	t.Helper()
	ctx := context.Background()
	quiz := domain.Quiz{
		ID:                    fx.id,
		Title:                 "Quiz " + fx.id,
		IsActive:              !fx.inactive,
		PassPercentage:        fx.pass,
		AllowMultipleAttempts: fx.allowMultiple,
		CreatedAt:             h.clock.Now(),
	}
	for i := 1; i <= fx.questions; i++ {
		qid := fmt.Sprintf("%s-q%d", fx.id, i)
		question := domain.Question{
			ID:         qid,
			Text:       fmt.Sprintf("Question %d", i),
			Difficulty: 1,
			Options: []domain.Option{
				{ID: qid + "-right", QuestionID: qid, Text: "right", Correct: i != fx.noCorrectIndex},
				{ID: qid + "-wrong", QuestionID: qid, Text: "wrong", Position: 1},
			},
		}
		if err := h.content.CreateQuestion(ctx, question); err != nil {
			t.Fatalf("create question: %v", err)
		}
		quiz.Questions = append(quiz.Questions, question)
	}
	if err := h.content.CreateQuiz(ctx, quiz); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	return quiz
}

func (h *harness) seedUser(t *testing.T, id, username string) domain.User {
	t.Helper()
	user := domain.User{
		ID:       id,
		Username: username,
		Email:    username + "@example.com",
		Role:     domain.RoleParticipant,
		IsActive: true,
	}
	if err := h.users.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// answer builds a submission for question i of quiz; right selects the correct option.
func answer(quizID string, i int, right bool) domain.AnswerSubmission {
	qid := fmt.Sprintf("%s-q%d", quizID, i)
	opt := qid + "-wrong"
	if right {
		opt = qid + "-right"
	}
	return domain.AnswerSubmission{QuestionID: qid, OptionID: opt}
}

// complete runs a full attempt taking elapsed time and returns the result.
func (h *harness) complete(t *testing.T, quizID, userID string, elapsed time.Duration, answers ...domain.AnswerSubmission) domain.Result {
	t.Helper()
	ctx := context.Background()
	attempt, err := h.engine.BeginAttempt(ctx, quizID, userID)
	if err != nil {
		t.Fatalf("begin attempt: %v", err)
	}
	h.clock.Advance(elapsed)
	result, err := h.engine.SubmitAttempt(ctx, attempt.ID, userID, answers)
	if err != nil {
		t.Fatalf("submit attempt: %v", err)
	}
	return result
}
