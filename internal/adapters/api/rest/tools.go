package rest

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/neuralninjas/wellness/internal/adapters/storage/models"
	"github.com/neuralninjas/wellness/internal/core/auth"
	"go.uber.org/zap"
)

// checkAuth возвращает id пользователя из токена в куке или в заголовке Authorization.
func (s *Server) checkAuth(c *gin.Context) (userID string, err error) {
	token := ""
	if cookie, err := c.Request.Cookie(CookieNameToken); err == nil {
		token = cookie.Value
	} else if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		token = strings.TrimPrefix(h, "Bearer ")
	}
	if token == "" {
		return "", fmt.Errorf("token not found: %w", errInvalidAuthCookie)
	}

	tknData, ok := s.auth.VerifyJWT(token)
	if !ok {
		return "", fmt.Errorf("unverify user token: %w", errInvalidAuthCookie)
	}
	if userID, ok = tknData[auth.ClaimUserID]; ok {
		return userID, nil
	}

	return "", fmt.Errorf("failed to read user id from token: %w", errInvalidAuthCookie)
}

// isAuthenticate возвращает пользователя запроса, сначала ищет его в кэше.
func (s *Server) isAuthenticate(c *gin.Context) (*models.User, error) {
	userID, err := s.checkAuth(c)
	if err != nil {
		return nil, err
	}
	id, err := strconv.ParseUint(userID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", userID, errInvalidAuthCookie)
	}

	key := "userid:" + userID
	user := &models.User{}
	if err = s.cache.GetH(c.Request.Context(), key, user); err == nil {
		return user, nil
	}

	user, err = s.auth.GetUserByID(c.Request.Context(), uint(id))
	if err != nil {
		return nil, fmt.Errorf("failed get user: %w", err)
	}
	if err = s.cache.SetH(c.Request.Context(), key, user, ttlCacheDefault); err != nil {
		s.log.Error("failed save user to cache", zap.Error(err))
	}
	return user, nil
}

func currentUser(c *gin.Context) *models.User {
	return c.MustGet(ctxUserKey).(*models.User)
}

func (s *Server) setCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	for _, domain := range s.domains() {
		c.SetCookie(CookieNameToken, token, maxAge, "/", domain, s.cookieSecure, true)
	}
}

func (s *Server) resetCookie(c *gin.Context) {
	for _, domain := range s.domains() {
		s.log.Debug("clear cookie", zap.String("host", domain))
		c.SetCookie(CookieNameToken, "", -1, "/", domain, s.cookieSecure, true)
	}
}

// domains - домены кук, пустой домен означает текущий хост.
func (s *Server) domains() []string {
	if len(s.cookieDomain) == 0 {
		return []string{""}
	}
	return s.cookieDomain
}

// baseLink дополняет относительную ссылку адресом сервера.
func (s *Server) baseLink(short string) string {
	if s.baseURL == "" || !strings.HasPrefix(short, "/") {
		return short
	}
	return strings.TrimRight(s.baseURL, "/") + short
}
