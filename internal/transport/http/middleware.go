package http

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"quiz-competition-service/internal/domain"
)

const userKey = "user"

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

// authenticate resolves the bearer token to an active user.
func (h *Handler) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if header == "" || token == "" || token == header {
			unauthorized(c, "missing bearer token")
			return
		}
		claims, err := h.tokens.Parse(token)
		if err != nil {
			unauthorized(c, err.Error())
			return
		}
		user, err := h.users.Authenticate(c.Request.Context(), claims.UserID())
		if err != nil {
			unauthorized(c, "could not validate credentials")
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentUser(c).IsAdmin() {
			abortWithError(c, domain.ErrForbidden)
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) domain.User {
	if v, ok := c.Get(userKey); ok {
		if user, ok := v.(domain.User); ok {
			return user
		}
	}
	return domain.User{}
}
