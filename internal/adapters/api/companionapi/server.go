package companionapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neuralninjas/wellness/internal/adapters/api/apiutil"
	"github.com/neuralninjas/wellness/internal/adapters/archive"
	"github.com/neuralninjas/wellness/internal/adapters/types"
	"github.com/neuralninjas/wellness/internal/core/companion"
	"github.com/neuralninjas/wellness/internal/core/insights"
	"github.com/neuralninjas/wellness/internal/core/report"
	"github.com/neuralninjas/wellness/pkg/logger"
	"go.uber.org/zap"
)

var shutdownDelay = time.Second * 5

const defaultMaxUpload = 10 << 20

type Engine interface {
	Turn(ctx context.Context, req companion.TurnRequest) (*companion.TurnResult, error)
}

// Logs - журнал завершенных сессий.
type Logs interface {
	Dates(username string) ([]string, error)
	Latest(username, date string) (*types.SessionLog, error)
	All(username string) ([]types.SessionLog, error)
}

type Archive interface {
	Search(ctx context.Context, username, query string, limit int) ([]archive.Hit, error)
}

type Reporter interface {
	Daily(log *types.SessionLog) ([]byte, error)
	Weekly(in report.WeeklyInput) ([]byte, error)
}

type Narrator interface {
	Weekly(ctx context.Context, sessions []insights.SessionSummary, triggers, happies []string) insights.Narrative
}

type Server struct {
	log         *logger.Logger
	engine      Engine
	logs        Logs
	reporter    Reporter
	narrator    Narrator
	archive     Archive
	corsOrigins []string
	maxUpload   int64
	now         func() time.Time
	s           http.Server
}

type Option func(s *Server)

// Addr - адрес сервера.
func Addr(addr string) Option {
	return func(s *Server) {
		s.s.Addr = addr
	}
}

// WithArchive включает поиск по архиву сессий.
func WithArchive(a Archive) Option {
	return func(s *Server) {
		s.archive = a
	}
}

func CORSOrigins(origins []string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// MaxUpload - предельный размер аудио в байтах.
func MaxUpload(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

func New(log *logger.Logger, engine Engine, logs Logs, reporter Reporter, narrator Narrator, options ...Option) *Server {
	srv := &Server{
		log:       log,
		engine:    engine,
		logs:      logs,
		reporter:  reporter,
		narrator:  narrator,
		maxUpload: defaultMaxUpload,
		now:       time.Now,
	}
	srv.s.Addr = "localhost:8000"

	for _, opt := range options {
		opt(srv)
	}
	return srv
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = s.maxUpload
	r.Use(
		gin.Recovery(),
		apiutil.Logger(s.log),
	)

	r.GET("/healthz", s.handlerHealth)
	r.POST("/chat", s.handlerChat)
	r.GET("/history/:username", s.handlerHistory)
	r.GET("/download-pdf/:username/:date", s.handlerDailyPDF)
	r.GET("/download-weekly-pdf/:username", s.handlerWeeklyPDF)

	analytics := r.Group("/analytics/:username")
	{
		analytics.GET("/daily", s.handlerDailyAnalytics)
		analytics.GET("/weekly", s.handlerWeeklyAnalytics)
	}
	r.GET("/archive/:username", s.handlerArchive)

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
	if err := s.s.Shutdown(ctx); err != nil {
		s.log.Error("failed shutdown server", zap.Error(err))
	}
	s.log.Info("Server exiting")
}
