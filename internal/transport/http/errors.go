package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"quiz-competition-service/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrCategoryNotFound),
		errors.Is(err, domain.ErrAttemptNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotAttemptOwner), errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrAlreadyCompleted),
		errors.Is(err, domain.ErrAlreadyAttempted),
		errors.Is(err, domain.ErrQuizInactive),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrContentLocked):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidReference):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a service error to its status. Unexpected errors are logged and hidden.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status != http.StatusInternalServerError {
		c.AbortWithStatusJSON(status, errorResponse{Error: err.Error()})
		return
	}
	if errors.Is(err, domain.ErrDataIntegrity) {
		c.AbortWithStatusJSON(status, errorResponse{Error: "quiz content is inconsistent; contact an administrator"})
		return
	}
	h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.AbortWithStatusJSON(status, errorResponse{Error: "internal server error"})
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), errorResponse{Error: err.Error()})
}

func unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: msg})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}
