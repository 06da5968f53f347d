package api

import (
	"crypto/subtle"
	"net/http"
	"time"

	"dashsync/internal/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	sessionCookie   = "auth_session"
	testTokenHeader = "X-Test-Token"
)

// RequireSession admits requests carrying a non-empty auth_session cookie,
// or an X-Test-Token header equal to testToken when testToken is set.
func RequireSession(testToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cookie, err := c.Cookie(sessionCookie); err == nil && cookie != "" {
			c.Next()
			return
		}
		if token := c.GetHeader(testTokenHeader); testToken != "" && token != "" &&
			subtle.ConstantTimeCompare([]byte(token), []byte(testToken)) == 1 {
			c.Next()
			return
		}
		_ = c.Error(errors.Unauthorized("no session cookie or test token"))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		logger.Debug("request", fields...)
	}
}
