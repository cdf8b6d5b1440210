package domain

import "time"

// Role distinguishes quiz participants from content administrators.
type Role string

const (
	RoleParticipant Role = "participant"
	RoleAdmin       Role = "admin"
)

// User is an authenticated identity.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

// IsAdmin reports whether the user may author content and read analytics.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Category groups questions by topic.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Option represents a possible answer for a question.
type Option struct {
	ID         string `json:"id"`
	QuestionID string `json:"questionId"`
	Text       string `json:"text"`
	Correct    bool   `json:"isCorrect"`
	Position   int    `json:"position"`
}

// Question models a multiple choice question. More than one option may be correct.
type Question struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	Difficulty  int       `json:"difficulty"`
	Explanation string    `json:"explanation"`
	CategoryID  string    `json:"categoryId,omitempty"`
	Options     []Option  `json:"options"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CorrectOptions returns the IDs of options flagged correct.
func (q Question) CorrectOptions() map[string]struct{} {
	correct := make(map[string]struct{})
	for _, opt := range q.Options {
		if opt.Correct {
			correct[opt.ID] = struct{}{}
		}
	}
	return correct
}

// Quiz is an ordered collection of questions with a pass threshold.
type Quiz struct {
	ID                    string     `json:"id"`
	Title                 string     `json:"title"`
	Description           string     `json:"description"`
	TimeLimitSeconds      *int       `json:"timeLimitSeconds,omitempty"` // advisory only
	IsActive              bool       `json:"isActive"`
	CreatedBy             string     `json:"createdBy"`
	PassPercentage        float64    `json:"passPercentage"`
	AllowMultipleAttempts bool       `json:"allowMultipleAttempts"`
	CreatedAt             time.Time  `json:"createdAt"`
	Questions             []Question `json:"questions"`
}

// QuestionIDs returns the quiz question IDs in order.
func (q Quiz) QuestionIDs() []string {
	ids := make([]string, 0, len(q.Questions))
	for _, question := range q.Questions {
		ids = append(ids, question.ID)
	}
	return ids
}

// Attempt is one participant's run through one quiz.
type Attempt struct {
	ID        string       `json:"id"`
	QuizID    string       `json:"quizId"`
	UserID    string       `json:"userId"`
	StartedAt time.Time    `json:"startedAt"`
	EndedAt   *time.Time   `json:"endedAt,omitempty"`
	Score     *float64     `json:"score,omitempty"`
	Completed bool         `json:"completed"`
	Passed    *bool        `json:"passed,omitempty"`
	Answers   []UserAnswer `json:"answers,omitempty"`
}

// Elapsed is the time between start and completion; zero while in progress.
func (a Attempt) Elapsed() time.Duration {
	if a.EndedAt == nil {
		return 0
	}
	return a.EndedAt.Sub(a.StartedAt)
}

// UserAnswer is one submitted answer. OptionID is empty when the question was skipped.
type UserAnswer struct {
	ID               string   `json:"id"`
	AttemptID        string   `json:"attemptId"`
	QuestionID       string   `json:"questionId"`
	OptionID         string   `json:"optionId,omitempty"`
	Correct          bool     `json:"isCorrect"`
	TimeTakenSeconds *float64 `json:"timeTakenSeconds,omitempty"`
}

// AnswerSubmission models one (question, option) pair sent by a participant.
type AnswerSubmission struct {
	QuestionID       string
	OptionID         string
	TimeTakenSeconds *float64
}

// AttemptCompletion is the terminal state committed for an attempt in one unit.
type AttemptCompletion struct {
	AttemptID string
	EndedAt   time.Time
	Score     float64
	Passed    bool
	Answers   []UserAnswer
}

// Result summarizes a scored submission.
type Result struct {
	AttemptID    string    `json:"attemptId"`
	QuizID       string    `json:"quizId"`
	Score        float64   `json:"scorePercentage"`
	Passed       bool      `json:"passed"`
	CorrectCount int       `json:"correctAnswers"`
	TotalCount   int       `json:"totalQuestions"`
	CompletedAt  time.Time `json:"completedAt"`
}

// QuestionStat is the correctness rate of one question across all submitted answers.
type QuestionStat struct {
	QuestionID  string  `json:"questionId"`
	Text        string  `json:"text"`
	Answered    int     `json:"answered"`
	Correct     int     `json:"correct"`
	CorrectRate float64 `json:"correctRate"`
}

// QuizAnalytics aggregates completed attempts of a quiz.
type QuizAnalytics struct {
	QuizID        string         `json:"quizId"`
	Title         string         `json:"title"`
	TotalAttempts int            `json:"totalAttempts"`
	PassRate      float64        `json:"passRate"`
	AverageScore  float64        `json:"averageScore"`
	QuestionStats []QuestionStat `json:"questionStats"`
}

// LeaderboardEntry is a participant's best result on a quiz.
type LeaderboardEntry struct {
	Rank             int     `json:"rank"`
	UserID           string  `json:"userId"`
	Username         string  `json:"username"`
	Score            float64 `json:"score"`
	TimeTakenSeconds float64 `json:"timeTakenSeconds"`
}

// Leaderboard captures the ordered scoreboard for a quiz.
type Leaderboard struct {
	QuizID  string             `json:"quizId"`
	Entries []LeaderboardEntry `json:"entries"`
}

// RecentAttempt is a short view of a completed attempt for user statistics.
type RecentAttempt struct {
	AttemptID   string    `json:"attemptId"`
	QuizID      string    `json:"quizId"`
	QuizTitle   string    `json:"quizTitle"`
	Score       float64   `json:"score"`
	Passed      bool      `json:"passed"`
	CompletedAt time.Time `json:"completedAt"`
}

// UserStatistics aggregates a participant's completed attempts across quizzes.
type UserStatistics struct {
	UserID         string          `json:"userId"`
	Username       string          `json:"username"`
	TotalAttempts  int             `json:"totalAttempts"`
	PassedAttempts int             `json:"passedAttempts"`
	PassRate       float64         `json:"passRate"`
	AverageScore   float64         `json:"averageScore"`
	RecentAttempts []RecentAttempt `json:"recentAttempts"`
}
