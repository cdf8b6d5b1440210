package http

import (
	"time"

	"quiz-competition-service/internal/app"
	"quiz-competition-service/internal/domain"
)

const defaultPassPercentage = 70

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// loginRequest accepts JSON or the OAuth2 password form fields.
type loginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

type categoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type categoryUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type optionRequest struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

type questionRequest struct {
	Text        string          `json:"text" binding:"required"`
	Difficulty  int             `json:"difficulty"`
	Explanation string          `json:"explanation"`
	CategoryID  string          `json:"categoryId"`
	Options     []optionRequest `json:"options" binding:"required"`
}

type questionUpdateRequest struct {
	Text        *string         `json:"text"`
	Difficulty  *int            `json:"difficulty"`
	Explanation *string         `json:"explanation"`
	CategoryID  *string         `json:"categoryId"`
	Options     []optionRequest `json:"options"`
}

type quizRequest struct {
	Title                 string   `json:"title" binding:"required"`
	Description           string   `json:"description"`
	TimeLimitSeconds      *int     `json:"timeLimitSeconds"`
	PassPercentage        *float64 `json:"passPercentage"`
	IsActive              *bool    `json:"isActive"`
	AllowMultipleAttempts bool     `json:"allowMultipleAttempts"`
	QuestionIDs           []string `json:"questionIds"`
}

type quizUpdateRequest struct {
	Title                 *string  `json:"title"`
	Description           *string  `json:"description"`
	TimeLimitSeconds      *int     `json:"timeLimitSeconds"`
	PassPercentage        *float64 `json:"passPercentage"`
	IsActive              *bool    `json:"isActive"`
	AllowMultipleAttempts *bool    `json:"allowMultipleAttempts"`
	QuestionIDs           []string `json:"questionIds"`
}

type answerRequest struct {
	QuestionID       string   `json:"questionId"`
	OptionID         string   `json:"optionId"`
	TimeTakenSeconds *float64 `json:"timeTakenSeconds"`
}

type submitRequest struct {
	Answers []answerRequest `json:"answers"`
}

// participantQuiz is the quiz as shown to someone taking it: no correctness, no explanations.
type participantQuiz struct {
	ID                    string                `json:"id"`
	Title                 string                `json:"title"`
	Description           string                `json:"description"`
	TimeLimitSeconds      *int                  `json:"timeLimitSeconds,omitempty"`
	PassPercentage        float64               `json:"passPercentage"`
	AllowMultipleAttempts bool                  `json:"allowMultipleAttempts"`
	CreatedAt             time.Time             `json:"createdAt"`
	Questions             []participantQuestion `json:"questions"`
}

type participantQuestion struct {
	ID         string              `json:"id"`
	Text       string              `json:"text"`
	Difficulty int                 `json:"difficulty"`
	CategoryID string              `json:"categoryId,omitempty"`
	Options    []participantOption `json:"options"`
}

type participantOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func newParticipantQuiz(q domain.Quiz) participantQuiz {
	view := participantQuiz{
		ID:                    q.ID,
		Title:                 q.Title,
		Description:           q.Description,
		TimeLimitSeconds:      q.TimeLimitSeconds,
		PassPercentage:        q.PassPercentage,
		AllowMultipleAttempts: q.AllowMultipleAttempts,
		CreatedAt:             q.CreatedAt,
		Questions:             make([]participantQuestion, 0, len(q.Questions)),
	}
	for _, question := range q.Questions {
		pq := participantQuestion{
			ID:         question.ID,
			Text:       question.Text,
			Difficulty: question.Difficulty,
			CategoryID: question.CategoryID,
			Options:    make([]participantOption, 0, len(question.Options)),
		}
		for _, opt := range question.Options {
			pq.Options = append(pq.Options, participantOption{ID: opt.ID, Text: opt.Text})
		}
		view.Questions = append(view.Questions, pq)
	}
	return view
}

func optionInputs(in []optionRequest) []app.OptionInput {
	if in == nil {
		return nil
	}
	out := make([]app.OptionInput, 0, len(in))
	for _, opt := range in {
		out = append(out, app.OptionInput{Text: opt.Text, Correct: opt.IsCorrect})
	}
	return out
}
