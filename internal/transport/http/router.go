package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"quiz-competition-service/internal/app"
	"quiz-competition-service/internal/auth"
	"quiz-competition-service/internal/metrics"
)

// Deps are the services the HTTP API exposes.
type Deps struct {
	Users     *app.UserService
	Content   *app.ContentService
	Attempts  *app.AttemptService
	Analytics *app.AnalyticsService
	Tokens    *auth.TokenIssuer
	// Metrics is optional; without it /metrics is not mounted.
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

type Handler struct {
	users     *app.UserService
	content   *app.ContentService
	attempts  *app.AttemptService
	analytics *app.AnalyticsService
	tokens    *auth.TokenIssuer
	log       *zap.Logger
}

// NewRouter builds the gin engine serving /api/v1, /healthz and /metrics.
func NewRouter(deps Deps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		users:     deps.Users,
		content:   deps.Content,
		attempts:  deps.Attempts,
		analytics: deps.Analytics,
		tokens:    deps.Tokens,
		log:       logger.Named("http"),
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(h.log))
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
		router.GET("/metrics", deps.Metrics.Handler())
	}
	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	api := router.Group("/api/v1")
	{
		users := api.Group("/users")
		users.POST("/register", h.Register)
		users.POST("/token", h.Login)

		protected := api.Group("")
		protected.Use(h.authenticate())
		{
			protected.GET("/users/me", h.Me)
			protected.PUT("/users/me/password", h.ChangePassword)
			protected.GET("/users/me/statistics", h.MyStatistics)

			protected.GET("/categories", h.ListCategories)
			protected.GET("/categories/:id", h.GetCategory)

			protected.GET("/quizzes", h.ListQuizzes)
			protected.GET("/quizzes/:id", h.GetQuiz)
			protected.POST("/quizzes/:id/attempts", h.BeginAttempt)
			protected.GET("/quizzes/:id/leaderboard", h.Leaderboard)

			protected.GET("/attempts", h.ListAttempts)
			protected.GET("/attempts/:id", h.GetAttempt)
			protected.POST("/attempts/:id/submit", h.SubmitAttempt)
		}

		admin := api.Group("")
		admin.Use(h.authenticate(), requireAdmin())
		{
			admin.POST("/categories", h.CreateCategory)
			admin.PUT("/categories/:id", h.UpdateCategory)
			admin.DELETE("/categories/:id", h.DeleteCategory)

			admin.GET("/questions", h.ListQuestions)
			admin.GET("/questions/random", h.RandomQuestions)
			admin.POST("/questions", h.CreateQuestion)
			admin.GET("/questions/:id", h.GetQuestion)
			admin.PUT("/questions/:id", h.UpdateQuestion)
			admin.DELETE("/questions/:id", h.DeleteQuestion)

			admin.POST("/quizzes", h.CreateQuiz)
			admin.PUT("/quizzes/:id", h.UpdateQuiz)
			admin.DELETE("/quizzes/:id", h.DeleteQuiz)
			admin.GET("/quizzes/:id/analytics", h.QuizAnalytics)
		}
	}
	return router
}
