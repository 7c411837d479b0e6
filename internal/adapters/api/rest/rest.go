package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neuralninjas/wellness/internal/adapters/api/apiutil"
	"github.com/neuralninjas/wellness/internal/adapters/storage"
	"github.com/neuralninjas/wellness/internal/adapters/storage/models"
	"github.com/neuralninjas/wellness/pkg/companionclient"
	"github.com/neuralninjas/wellness/pkg/logger"
	"go.uber.org/zap"
)

const (
	CookieNameToken string = "token" // поле хранения токена

	ctxUserKey = "user"
)

var (
	errInvalidAuthCookie = errors.New("invalid authorization cookie")

	shutdownDelay   = time.Second * 5
	ttlCacheDefault = time.Minute * 10
)

type AuthManager interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	GetUserByID(ctx context.Context, userID uint) (*models.User, error)

	CreateJWT(user *models.User) (string, error)
	VerifyJWT(signedData string) (map[string]string, bool)
	TokenTTL() time.Duration
	HandoffLink(username string) string
}

// Companion - сервис диалогов, куда проксируются запросы вошедших пользователей.
type Companion interface {
	Chat(ctx context.Context, t companionclient.Turn) (*companionclient.Reply, error)
	History(ctx context.Context, username string) ([]string, error)
	DailyReport(ctx context.Context, username, date string) ([]byte, error)
	WeeklyReport(ctx context.Context, username string) ([]byte, error)
}

type Server struct {
	log          *logger.Logger
	auth         AuthManager
	cache        storage.Cache
	companion    Companion
	limiter      *ipLimiter
	baseURL      string
	staticDir    string
	loginURL     string
	corsOrigins  []string
	cookieDomain []string
	cookieSecure bool
	s            http.Server
}

type Option func(s *Server)

// New создает Server.
func New(auth AuthManager, cache storage.Cache, log *logger.Logger, options ...Option) *Server {
	srv := &Server{
		auth:     auth,
		cache:    cache,
		log:      log,
		loginURL: "/",
		limiter:  newIPLimiter(5, 10),
	}
	srv.s.Addr = "localhost:8080"

	for _, opt := range options {
		opt(srv)
	}

	return srv
}

func BaseURL(url string) Option {
	return func(s *Server) {
		s.baseURL = url
	}
}

// Addr - Настройка сервера, задает адрес сервера.
func Addr(addr string) Option {
	return func(s *Server) {
		s.s.Addr = addr
	}
}

// SetCookieDomain - домены, для которых ставится кука токена.
func SetCookieDomain(domains []string) Option {
	return func(s *Server) {
		s.cookieDomain = domains
	}
}

func SetCookieSecure(secure bool) Option {
	return func(s *Server) {
		s.cookieSecure = secure
	}
}

// LoginURL - куда отправлять неавторизованного пользователя.
func LoginURL(link string) Option {
	return func(s *Server) {
		if link != "" {
			s.loginURL = link
		}
	}
}

// StaticDir - каталог с index.html лендинга.
func StaticDir(dir string) Option {
	return func(s *Server) {
		s.staticDir = dir
	}
}

func CORSOrigins(origins []string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// RateLimit - ограничение запросов signup/login на один ip.
func RateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps > 0 && burst > 0 {
			s.limiter = newIPLimiter(rps, burst)
		}
	}
}

// WithCompanion включает прокси к сервису диалогов.
func WithCompanion(c Companion) Option {
	return func(s *Server) {
		s.companion = c
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		apiutil.Logger(s.log),
	)

	r.GET("/healthz", s.handlerHealth)
	if s.staticDir != "" {
		r.StaticFile("/", filepath.Join(s.staticDir, "index.html"))
		r.Static("/static", s.staticDir)
	}

	limited := r.Group("/")
	{
		limited.Use(s.middlewareRateLimit())
		limited.POST("/signup", s.handlerSignup)
		limited.POST("/login", s.handlerLogin)
	}
	r.POST("/logout", s.handlerLogout)
	r.GET("/chat", s.handlerChatView)

	api := r.Group("/api")
	{
		api.Use(s.middlewareAuth())
		api.GET("/user/me", s.handlerUserMe)

		if s.companion != nil {
			api.POST("/companion/chat", s.handlerCompanionChat)
			api.GET("/companion/history", s.handlerCompanionHistory)
			api.GET("/companion/report/:date", s.handlerCompanionReport)
			api.GET("/companion/report-weekly", s.handlerCompanionWeeklyReport)
		}
	}

	return r
}

// Handler - роутер с CORS.
func (s *Server) Handler() http.Handler {
	return apiutil.CORS(s.SetupRouter(), s.corsOrigins)
}

func (s *Server) Run() error {
	s.s.Handler = s.Handler()
	if err := s.s.ListenAndServe(); err != nil {
		return fmt.Errorf("server has failed: %w", err)
	}

	return nil
}

// Stop - остановка сервера.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownDelay)
	defer cancel()
	err := s.s.Shutdown(ctx)
	if err != nil {
		s.log.Error("failed shutdown server", zap.Error(err))
	}
	s.log.Info("Server exiting")
}
