package app

import (
	"context"
	"errors"
	"sort"
	"time"

	"quiz-competition-service/internal/domain"
)

const (
	DefaultLeaderboardLimit = 10
	recentAttemptsLimit     = 5
)

// AnalyticsService derives read-only reports from the attempt ledger.
type AnalyticsService struct {
	attempts     AttemptRepository
	quizzes      QuizRepository
	users        UserRepository
	defaultLimit int
}

func NewAnalyticsService(attempts AttemptRepository, quizzes QuizRepository, users UserRepository, defaultLimit int) *AnalyticsService {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLeaderboardLimit
	}
	return &AnalyticsService{
		attempts:     attempts,
		quizzes:      quizzes,
		users:        users,
		defaultLimit: defaultLimit,
	}
}

// QuizAnalytics summarizes the completed attempts of a quiz.
func (s *AnalyticsService) QuizAnalytics(ctx context.Context, quizID string) (domain.QuizAnalytics, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizAnalytics{}, err
	}
	completed := true
	attempts, err := s.attempts.ListAttempts(ctx, AttemptFilter{QuizID: quizID, Completed: &completed})
	if err != nil {
		return domain.QuizAnalytics{}, err
	}
	answers, err := s.attempts.ListQuizAnswers(ctx, quizID)
	if err != nil {
		return domain.QuizAnalytics{}, err
	}
	return summarizeQuiz(quiz, attempts, answers), nil
}

func summarizeQuiz(quiz domain.Quiz, attempts []domain.Attempt, answers []domain.UserAnswer) domain.QuizAnalytics {
	summary := domain.QuizAnalytics{
		QuizID:        quiz.ID,
		Title:         quiz.Title,
		QuestionStats: make([]domain.QuestionStat, 0, len(quiz.Questions)),
	}

	var passed int
	var scoreSum float64
	for _, attempt := range attempts {
		if !attempt.Completed {
			continue
		}
		summary.TotalAttempts++
		if attempt.Passed != nil && *attempt.Passed {
			passed++
		}
		if attempt.Score != nil {
			scoreSum += *attempt.Score
		}
	}
	if summary.TotalAttempts > 0 {
		summary.PassRate = float64(passed) / float64(summary.TotalAttempts) * 100
		summary.AverageScore = scoreSum / float64(summary.TotalAttempts)
	}

	type tally struct{ answered, correct int }
	perQuestion := make(map[string]*tally, len(quiz.Questions))
	for _, answer := range answers {
		t, ok := perQuestion[answer.QuestionID]
		if !ok {
			t = &tally{}
			perQuestion[answer.QuestionID] = t
		}
		t.answered++
		if answer.Correct {
			t.correct++
		}
	}
	for _, question := range quiz.Questions {
		stat := domain.QuestionStat{QuestionID: question.ID, Text: question.Text}
		if t, ok := perQuestion[question.ID]; ok {
			stat.Answered = t.answered
			stat.Correct = t.correct
			stat.CorrectRate = scorePercentage(t.correct, t.answered)
		}
		summary.QuestionStats = append(summary.QuestionStats, stat)
	}
	return summary
}

// Leaderboard ranks participants by their best score, then by the fastest best-scoring attempt.
func (s *AnalyticsService) Leaderboard(ctx context.Context, quizID string, limit int) (domain.Leaderboard, error) {
	if _, err := s.quizzes.GetQuiz(ctx, quizID); err != nil {
		return domain.Leaderboard{}, err
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}
	completed := true
	attempts, err := s.attempts.ListAttempts(ctx, AttemptFilter{QuizID: quizID, Completed: &completed})
	if err != nil {
		return domain.Leaderboard{}, err
	}

	entries := rankAttempts(attempts)
	if len(entries) > limit {
		entries = entries[:limit]
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.UserID)
	}
	names, err := s.users.UsernamesByID(ctx, ids)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	for i := range entries {
		entries[i].Username = names[entries[i].UserID]
	}
	return domain.Leaderboard{QuizID: quizID, Entries: entries}, nil
}

// rankAttempts keeps one entry per participant and orders them by score desc, elapsed asc.
func rankAttempts(attempts []domain.Attempt) []domain.LeaderboardEntry {
	type best struct {
		score   float64
		elapsed time.Duration
	}
	bestByUser := make(map[string]best)
	for _, attempt := range attempts {
		if !attempt.Completed || attempt.Score == nil {
			continue
		}
		candidate := best{score: *attempt.Score, elapsed: attempt.Elapsed()}
		current, seen := bestByUser[attempt.UserID]
		switch {
		case !seen, candidate.score > current.score:
			bestByUser[attempt.UserID] = candidate
		case candidate.score == current.score && candidate.elapsed < current.elapsed:
			bestByUser[attempt.UserID] = candidate
		}
	}

	entries := make([]domain.LeaderboardEntry, 0, len(bestByUser))
	elapsed := make(map[string]time.Duration, len(bestByUser))
	for userID, b := range bestByUser {
		elapsed[userID] = b.elapsed
		entries = append(entries, domain.LeaderboardEntry{
			UserID:           userID,
			Score:            b.score,
			TimeTakenSeconds: b.elapsed.Seconds(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		ei, ej := elapsed[entries[i].UserID], elapsed[entries[j].UserID]
		if ei != ej {
			return ei < ej
		}
		return entries[i].UserID < entries[j].UserID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// UserStatistics summarizes a participant's completed attempts across quizzes.
func (s *AnalyticsService) UserStatistics(ctx context.Context, userID string) (domain.UserStatistics, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return domain.UserStatistics{}, err
	}
	completed := true
	attempts, err := s.attempts.ListAttempts(ctx, AttemptFilter{UserID: userID, Completed: &completed})
	if err != nil {
		return domain.UserStatistics{}, err
	}

	stats := domain.UserStatistics{UserID: user.ID, Username: user.Username, RecentAttempts: []domain.RecentAttempt{}}
	var scoreSum float64
	for _, attempt := range attempts {
		stats.TotalAttempts++
		if attempt.Passed != nil && *attempt.Passed {
			stats.PassedAttempts++
		}
		if attempt.Score != nil {
			scoreSum += *attempt.Score
		}
	}
	if stats.TotalAttempts > 0 {
		stats.PassRate = float64(stats.PassedAttempts) / float64(stats.TotalAttempts) * 100
		stats.AverageScore = scoreSum / float64(stats.TotalAttempts)
	}

	sort.Slice(attempts, func(i, j int) bool {
		return endedAt(attempts[i]).After(endedAt(attempts[j]))
	})
	if len(attempts) > recentAttemptsLimit {
		attempts = attempts[:recentAttemptsLimit]
	}
	titles := make(map[string]string)
	for _, attempt := range attempts {
		title, ok := titles[attempt.QuizID]
		if !ok {
			quiz, err := s.quizzes.GetQuiz(ctx, attempt.QuizID)
			if err != nil && !errors.Is(err, domain.ErrQuizNotFound) {
				return domain.UserStatistics{}, err
			}
			title = quiz.Title
			titles[attempt.QuizID] = title
		}
		recent := domain.RecentAttempt{
			AttemptID:   attempt.ID,
			QuizID:      attempt.QuizID,
			QuizTitle:   title,
			CompletedAt: endedAt(attempt),
		}
		if attempt.Score != nil {
			recent.Score = *attempt.Score
		}
		if attempt.Passed != nil {
			recent.Passed = *attempt.Passed
		}
		stats.RecentAttempts = append(stats.RecentAttempts, recent)
	}
	return stats, nil
}

func endedAt(a domain.Attempt) time.Time {
	if a.EndedAt == nil {
		return time.Time{}
	}
	return *a.EndedAt
}
