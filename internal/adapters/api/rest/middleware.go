package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// middlewareAuth пропускает только запросы с действующим токеном.
func (s *Server) middlewareAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := s.isAuthenticate(c)
		if err != nil {
			s.log.Debug("unauthorized request", zap.Error(err), zap.String("uri", c.Request.RequestURI))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set(ctxUserKey, user)
		c.Next()
	}
}

// middlewareRateLimit ограничивает частоту запросов с одного ip.
func (s *Server) middlewareRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
