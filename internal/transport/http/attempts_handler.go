package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"quiz-competition-service/internal/domain"
)

func (h *Handler) BeginAttempt(c *gin.Context) {
	attempt, err := h.attempts.BeginAttempt(c.Request.Context(), c.Param("id"), currentUser(c).ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, attempt)
}

func (h *Handler) SubmitAttempt(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	answers := make([]domain.AnswerSubmission, 0, len(req.Answers))
	for _, a := range req.Answers {
		answers = append(answers, domain.AnswerSubmission{
			QuestionID:       a.QuestionID,
			OptionID:         a.OptionID,
			TimeTakenSeconds: a.TimeTakenSeconds,
		})
	}
	result, err := h.attempts.SubmitAttempt(c.Request.Context(), c.Param("id"), currentUser(c).ID, answers)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetAttempt(c *gin.Context) {
	attempt, err := h.attempts.GetAttempt(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempt)
}

func (h *Handler) ListAttempts(c *gin.Context) {
	var completed *bool
	if raw := c.Query("completed"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, err)
			return
		}
		completed = &v
	}
	attempts, err := h.attempts.ListAttempts(c.Request.Context(), currentUser(c).ID, c.Query("quiz_id"), completed)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempts)
}

func (h *Handler) Leaderboard(c *gin.Context) {
	limit, err := intQuery(c, "limit")
	if err != nil {
		badRequest(c, err)
		return
	}
	board, err := h.analytics.Leaderboard(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

func (h *Handler) QuizAnalytics(c *gin.Context) {
	summary, err := h.analytics.QuizAnalytics(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
