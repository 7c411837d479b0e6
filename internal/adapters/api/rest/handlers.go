package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/neuralninjas/wellness/internal/adapters/apperror"
	"go.uber.org/zap"
)

func (s *Server) handlerHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handlerSignup(c *gin.Context) {
	var data signupRequest
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	_, err := s.auth.Register(c.Request.Context(), data.Username, data.Email, data.Password)
	switch {
	case errors.Is(err, apperror.ErrEmailNotUnique):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email already exists. Try logging in."})
		return
	case errors.Is(err, apperror.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	case err != nil:
		s.log.Error("failed register user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully!"})
}

func (s *Server) handlerLogin(c *gin.Context) {
	var data loginRequest
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := s.auth.Authenticate(c.Request.Context(), data.Email, data.Password)
	if errors.Is(err, apperror.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	if err != nil {
		s.log.Error("failed authenticate user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	token, err := s.auth.CreateJWT(user)
	if err != nil {
		s.log.Error("failed create token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed create token"})
		return
	}
	s.setCookie(c, token, int(s.auth.TokenTTL().Seconds()))

	c.JSON(http.StatusOK, gin.H{
		"message":  "Login successful!",
		"username": user.Username,
		"redirect": s.auth.HandoffLink(user.Username),
	})
}

func (s *Server) handlerLogout(c *gin.Context) {
	s.resetCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (s *Server) handlerUserMe(c *gin.Context) {
	user := currentUser(c)
	c.JSON(http.StatusOK, userResponse{ID: user.ID, Username: user.Username, Email: user.Email})
}

// handlerChatView пускает в чат только вошедших пользователей.
func (s *Server) handlerChatView(c *gin.Context) {
	user, err := s.isAuthenticate(c)
	if err != nil {
		s.log.Debug("unauthenticated chat view", zap.Error(err))
		c.Redirect(http.StatusTemporaryRedirect, s.baseLink(s.loginURL))
		return
	}

	link := s.auth.HandoffLink(user.Username)
	if link == "" {
		c.JSON(http.StatusOK, gin.H{"username": user.Username})
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, link)
}
