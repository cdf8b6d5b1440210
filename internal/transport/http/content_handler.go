package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"quiz-competition-service/internal/app"
	"quiz-competition-service/internal/domain"
)

func (h *Handler) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	category, err := h.content.CreateCategory(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *Handler) ListCategories(c *gin.Context) {
	skip, limit, err := pageParams(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	categories, err := h.content.ListCategories(c.Request.Context(), skip, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *Handler) GetCategory(c *gin.Context) {
	category, err := h.content.GetCategory(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (h *Handler) UpdateCategory(c *gin.Context) {
	var req categoryUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	category, err := h.content.UpdateCategory(c.Request.Context(), c.Param("id"), app.CategoryUpdate{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (h *Handler) DeleteCategory(c *gin.Context) {
	if err := h.content.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) CreateQuestion(c *gin.Context) {
	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	question, err := h.content.CreateQuestion(c.Request.Context(), currentUser(c).ID, app.QuestionInput{
		Text:        req.Text,
		Difficulty:  req.Difficulty,
		Explanation: req.Explanation,
		CategoryID:  req.CategoryID,
		Options:     optionInputs(req.Options),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, question)
}

func (h *Handler) ListQuestions(c *gin.Context) {
	filter, err := questionFilter(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	questions, err := h.content.ListQuestions(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, questions)
}

func (h *Handler) RandomQuestions(c *gin.Context) {
	filter, err := questionFilter(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	if raw := c.Query("count"); raw != "" {
		count, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, err)
			return
		}
		filter.Limit = count
	}
	questions, err := h.content.RandomQuestions(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, questions)
}

func (h *Handler) GetQuestion(c *gin.Context) {
	question, err := h.content.GetQuestion(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

func (h *Handler) UpdateQuestion(c *gin.Context) {
	var req questionUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	question, err := h.content.UpdateQuestion(c.Request.Context(), c.Param("id"), app.QuestionUpdate{
		Text:        req.Text,
		Difficulty:  req.Difficulty,
		Explanation: req.Explanation,
		CategoryID:  req.CategoryID,
		Options:     optionInputs(req.Options),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

func (h *Handler) DeleteQuestion(c *gin.Context) {
	if err := h.content.DeleteQuestion(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) CreateQuiz(c *gin.Context) {
	var req quizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	in := app.QuizInput{
		Title:                 req.Title,
		Description:           req.Description,
		TimeLimitSeconds:      req.TimeLimitSeconds,
		PassPercentage:        defaultPassPercentage,
		IsActive:              true,
		AllowMultipleAttempts: req.AllowMultipleAttempts,
		QuestionIDs:           req.QuestionIDs,
	}
	if req.PassPercentage != nil {
		in.PassPercentage = *req.PassPercentage
	}
	if req.IsActive != nil {
		in.IsActive = *req.IsActive
	}
	quiz, err := h.content.CreateQuiz(c.Request.Context(), currentUser(c).ID, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, quiz)
}

func (h *Handler) ListQuizzes(c *gin.Context) {
	skip, limit, err := pageParams(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	filter := app.QuizFilter{Skip: skip, Limit: limit}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, err)
			return
		}
		filter.Active = &active
	}
	quizzes, err := h.content.ListQuizzes(c.Request.Context(), filter, currentUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quizzes)
}

func (h *Handler) GetQuiz(c *gin.Context) {
	caller := currentUser(c)
	quiz, err := h.content.GetQuiz(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if caller.IsAdmin() {
		c.JSON(http.StatusOK, quiz)
		return
	}
	c.JSON(http.StatusOK, newParticipantQuiz(quiz))
}

func (h *Handler) UpdateQuiz(c *gin.Context) {
	var req quizUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	quiz, err := h.content.UpdateQuiz(c.Request.Context(), c.Param("id"), app.QuizUpdate{
		Title:                 req.Title,
		Description:           req.Description,
		TimeLimitSeconds:      req.TimeLimitSeconds,
		PassPercentage:        req.PassPercentage,
		IsActive:              req.IsActive,
		AllowMultipleAttempts: req.AllowMultipleAttempts,
		QuestionIDs:           req.QuestionIDs,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *Handler) DeleteQuiz(c *gin.Context) {
	if err := h.content.DeleteQuiz(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func pageParams(c *gin.Context) (int, int, error) {
	skip, err := intQuery(c, "skip")
	if err != nil {
		return 0, 0, err
	}
	limit, err := intQuery(c, "limit")
	if err != nil {
		return 0, 0, err
	}
	return skip, limit, nil
}

func questionFilter(c *gin.Context) (app.QuestionFilter, error) {
	skip, limit, err := pageParams(c)
	if err != nil {
		return app.QuestionFilter{}, err
	}
	difficulty, err := intQuery(c, "difficulty")
	if err != nil {
		return app.QuestionFilter{}, err
	}
	return app.QuestionFilter{
		CategoryID: c.Query("category_id"),
		Difficulty: difficulty,
		Skip:       skip,
		Limit:      limit,
	}, nil
}

func intQuery(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.Invalidf("query parameter %s must be an integer", key)
	}
	return v, nil
}
