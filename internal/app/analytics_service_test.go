package app_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"quiz-competition-service/internal/app"
	"quiz-competition-service/internal/domain"
)

// scoring returns answers to the first n questions of quizID with the first correct of them right.
func scoring(quizID string, n, correct int) []domain.AnswerSubmission {
	out := make([]domain.AnswerSubmission, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, answer(quizID, i, i <= correct))
	}
	return out
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestLeaderboardBreaksTiesByElapsedTime(t *testing.T) {
	h := newHarness(t)
	h.seedQuiz(t, quizFixture{id: "quiz", questions: 10, pass: 50, allowMultiple: true})
	h.seedUser(t, "a", "alice")
	h.seedUser(t, "b", "bob")
	h.seedUser(t, "c", "carol")

	h.complete(t, "quiz", "a", 60*time.Second, scoring("quiz", 10, 8)...)
	h.complete(t, "quiz", "a", 120*time.Second, scoring("quiz", 10, 9)...)
	h.complete(t, "quiz", "b", 90*time.Second, scoring("quiz", 10, 9)...)
	h.complete(t, "quiz", "c", 30*time.Second, scoring("quiz", 10, 5)...)

	analytics := app.NewAnalyticsService(h.attempts, h.quizzes, h.users, 0)
	board, err := analytics.Leaderboard(context.Background(), "quiz", 0)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board.Entries) != 3 {
		t.Fatalf("expected one entry per participant, got %+v", board.Entries)
	}
	want := []struct {
		user    string
		name    string
		score   float64
		elapsed float64
	}{
		{"b", "bob", 90, 90},
		{"a", "alice", 90, 120},
		{"c", "carol", 50, 30},
	}
	for i, w := range want {
		got := board.Entries[i]
		if got.Rank != i+1 || got.UserID != w.user || got.Username != w.name || got.Score != w.score || got.TimeTakenSeconds != w.elapsed {
			t.Fatalf("entry %d: expected %+v, got %+v", i, w, got)
		}
	}

	top, err := analytics.Leaderboard(context.Background(), "quiz", 2)
	if err != nil {
		t.Fatalf("leaderboard limit: %v", err)
	}
	if len(top.Entries) != 2 || top.Entries[1].UserID != "a" {
		t.Fatalf("expected top two, got %+v", top.Entries)
	}
}

func TestLeaderboardUsesFastestBestScoringAttempt(t *testing.T) {
	h := newHarness(t)
	h.seedQuiz(t, quizFixture{id: "quiz", questions: 2, pass: 50, allowMultiple: true})
	h.seedUser(t, "a", "alice")

	h.complete(t, "quiz", "a", 200*time.Second, scoring("quiz", 2, 2)...)
	h.complete(t, "quiz", "a", 10*time.Second, scoring("quiz", 2, 1)...)
	h.complete(t, "quiz", "a", 150*time.Second, scoring("quiz", 2, 2)...)

	analytics := app.NewAnalyticsService(h.attempts, h.quizzes, h.users, 0)
	board, err := analytics.Leaderboard(context.Background(), "quiz", 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board.Entries) != 1 || board.Entries[0].Score != 100 || board.Entries[0].TimeTakenSeconds != 150 {
		t.Fatalf("expected best score 100 in 150s, got %+v", board.Entries)
	}
}

func TestLeaderboardEmptyAndUnknownQuiz(t *testing.T) {
	h := newHarness(t)
	h.seedQuiz(t, quizFixture{id: "quiz", questions: 1, pass: 50})
	ctx := context.Background()
	analytics := app.NewAnalyticsService(h.attempts, h.quizzes, h.users, 0)

	// In-progress attempts are not ranked.
	if _, err := h.engine.BeginAttempt(ctx, "quiz", "u1"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	board, err := analytics.Leaderboard(ctx, "quiz", 10)
	if err != nil || len(board.Entries) != 0 {
		t.Fatalf("expected empty leaderboard, got %+v %v", board.Entries, err)
	}
	if _, err := analytics.Leaderboard(ctx, "missing", 10); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestQuizAnalytics(t *testing.T) {
	h := newHarness(t)
	h.seedQuiz(t, quizFixture{id: "quiz", questions: 3, pass: 50})
	ctx := context.Background()

	h.complete(t, "quiz", "u1", time.Minute, answer("quiz", 1, true), answer("quiz", 2, true))
	h.complete(t, "quiz", "u2", time.Minute, answer("quiz", 1, true), answer("quiz", 2, false))
	h.complete(t, "quiz", "u3", time.Minute, answer("quiz", 1, false), domain.AnswerSubmission{QuestionID: "quiz-q2"})
	if _, err := h.engine.BeginAttempt(ctx, "quiz", "u4"); err != nil {
		t.Fatalf("begin: %v", err)
	}

	analytics := app.NewAnalyticsService(h.attempts, h.quizzes, h.users, 0)
	summary, err := analytics.QuizAnalytics(ctx, "quiz")
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if summary.TotalAttempts != 3 {
		t.Fatalf("expected 3 completed attempts, got %d", summary.TotalAttempts)
	}
	// scores: 66.67 (pass), 33.33, 0
	if !approx(summary.PassRate, 100.0/3) {
		t.Fatalf("expected pass rate 33.3, got %v", summary.PassRate)
	}
	if !approx(summary.AverageScore, 100.0/3) {
		t.Fatalf("expected average 33.3, got %v", summary.AverageScore)
	}
	if len(summary.QuestionStats) != 3 {
		t.Fatalf("expected stats for every question, got %+v", summary.QuestionStats)
	}
	q1, q2, q3 := summary.QuestionStats[0], summary.QuestionStats[1], summary.QuestionStats[2]
	if q1.Answered != 3 || q1.Correct != 2 || !approx(q1.CorrectRate, 200.0/3) {
		t.Fatalf("unexpected q1 stats: %+v", q1)
	}
	if q2.Answered != 3 || q2.Correct != 1 || !approx(q2.CorrectRate, 100.0/3) {
		t.Fatalf("unexpected q2 stats: %+v", q2)
	}
	if q3.Answered != 0 || q3.CorrectRate != 0 {
		t.Fatalf("expected unanswered q3 to report 0, got %+v", q3)
	}

	if _, err := analytics.QuizAnalytics(ctx, "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestQuizAnalyticsWithoutAttempts(t *testing.T) {
	h := newHarness(t)
	h.seedQuiz(t, quizFixture{id: "quiz", questions: 2, pass: 50})

	analytics := app.NewAnalyticsService(h.attempts, h.quizzes, h.users, 0)
	summary, err := analytics.QuizAnalytics(context.Background(), "quiz")
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if summary.TotalAttempts != 0 || summary.PassRate != 0 || summary.AverageScore != 0 {
		t.Fatalf("expected zeroed summary, got %+v", summary)
	}
}

func TestUserStatistics(t *testing.T) {
	h := newHarness(t)
	h.seedQuiz(t, quizFixture{id: "quiz", questions: 2, pass: 60, allowMultiple: true})
	h.seedUser(t, "u1", "alice")

	for i := 0; i < 6; i++ {
		correct := 1
		if i%2 == 0 {
			correct = 2
		}
		h.complete(t, "quiz", "u1", time.Minute, scoring("quiz", 2, correct)...)
	}

	analytics := app.NewAnalyticsService(h.attempts, h.quizzes, h.users, 0)
	stats, err := analytics.UserStatistics(context.Background(), "u1")
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats.Username != "alice" || stats.TotalAttempts != 6 || stats.PassedAttempts != 3 {
		t.Fatalf("unexpected totals: %+v", stats)
	}
	if stats.PassRate != 50 || stats.AverageScore != 75 {
		t.Fatalf("expected pass rate 50 and average 75, got %v %v", stats.PassRate, stats.AverageScore)
	}
	if len(stats.RecentAttempts) != 5 {
		t.Fatalf("expected five recent attempts, got %d", len(stats.RecentAttempts))
	}
	for i := 1; i < len(stats.RecentAttempts); i++ {
		if stats.RecentAttempts[i].CompletedAt.After(stats.RecentAttempts[i-1].CompletedAt) {
			t.Fatalf("recent attempts not newest first: %+v", stats.RecentAttempts)
		}
	}
	if stats.RecentAttempts[0].QuizTitle != "Quiz quiz" || stats.RecentAttempts[0].Score != 50 {
		t.Fatalf("unexpected latest attempt: %+v", stats.RecentAttempts[0])
	}

	if _, err := analytics.UserStatistics(context.Background(), "ghost"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
