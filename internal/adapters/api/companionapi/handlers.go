package companionapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/neuralninjas/wellness/internal/adapters/api/apiutil"
	"github.com/neuralninjas/wellness/internal/adapters/apperror"
	"github.com/neuralninjas/wellness/internal/adapters/sessionlog"
	"github.com/neuralninjas/wellness/internal/core/companion"
	"github.com/neuralninjas/wellness/internal/core/insights"
	"github.com/neuralninjas/wellness/internal/core/report"
	"go.uber.org/zap"
)

const (
	defaultUsername = "Guest"
	archiveLimit    = 20
)

func (s *Server) handlerHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handlerChat(c *gin.Context) {
	sessionID := strings.TrimSpace(c.PostForm("session_id"))
	if sessionID == "" {
		detail(c, http.StatusBadRequest, "session_id is required")
		return
	}

	username := strings.TrimSpace(c.DefaultPostForm("username", defaultUsername))
	if username == "" {
		username = defaultUsername
	}
	if err := sessionlog.ValidUsername(username); err != nil {
		detail(c, http.StatusBadRequest, "invalid username")
		return
	}

	extra, err := apiutil.ParseFormBool(c.DefaultPostForm("is_extra_phase", "false"))
	if err != nil {
		detail(c, http.StatusBadRequest, "is_extra_phase must be a boolean")
		return
	}

	req := companion.TurnRequest{
		SessionID:  sessionID,
		Username:   username,
		Text:       c.PostForm("text"),
		ExtraPhase: extra,
	}

	if fh, err := c.FormFile("audio"); err == nil {
		if fh.Size > s.maxUpload {
			detail(c, http.StatusRequestEntityTooLarge, "audio is too large")
			return
		}
		f, err := fh.Open()
		if err != nil {
			detail(c, http.StatusBadRequest, "failed read audio")
			return
		}
		req.Audio, err = io.ReadAll(io.LimitReader(f, s.maxUpload))
		_ = f.Close()
		if err != nil {
			detail(c, http.StatusBadRequest, "failed read audio")
			return
		}
		req.AudioName = fh.Filename
	}

	res, err := s.engine.Turn(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, apperror.ErrInvalidInput):
			detail(c, http.StatusBadRequest, "text or audio is required")
		case errors.Is(err, apperror.ErrUpstream):
			s.log.Error("chat turn upstream failure", zap.Error(err), zap.String("session", sessionID))
			detail(c, http.StatusBadGateway, "language model unavailable")
		default:
			s.log.Error("chat turn failed", zap.Error(err), zap.String("session", sessionID))
			detail(c, http.StatusInternalServerError, "internal error")
		}
		return
	}

	c.JSON(http.StatusOK, res)
}

func (s *Server) handlerHistory(c *gin.Context) {
	username, ok := s.username(c)
	if !ok {
		return
	}

	dates, err := s.logs.Dates(username)
	if err != nil {
		s.log.Error("failed list session dates", zap.Error(err), zap.String("user", username))
		detail(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"dates": dates})
}

func (s *Server) handlerDailyPDF(c *gin.Context) {
	username, ok := s.username(c)
	if !ok {
		return
	}
	date := c.Param("date")
	if err := sessionlog.ValidDate(date); err != nil {
		detail(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	log, err := s.logs.Latest(username, date)
	if errors.Is(err, apperror.ErrNotFoundData) {
		detail(c, http.StatusNotFound, "No logs found for this date")
		return
	}
	if err != nil {
		s.log.Error("failed load session log", zap.Error(err), zap.String("user", username))
		detail(c, http.StatusInternalServerError, "internal error")
		return
	}

	pdf, err := s.reporter.Daily(log)
	if err != nil {
		s.log.Error("failed render daily report", zap.Error(err), zap.String("user", username))
		detail(c, http.StatusInternalServerError, "failed render report")
		return
	}
	sendPDF(c, fmt.Sprintf("Wellness_Report_%s.pdf", date), pdf)
}

func (s *Server) handlerWeeklyPDF(c *gin.Context) {
	username, ok := s.username(c)
	if !ok {
		return
	}

	logs, err := s.logs.All(username)
	if err != nil {
		s.log.Error("failed load session logs", zap.Error(err), zap.String("user", username))
		detail(c, http.StatusInternalServerError, "internal error")
		return
	}
	if len(logs) == 0 {
		detail(c, http.StatusNotFound, "No session logs found for this user")
		return
	}

	sessions := insights.Summaries(logs)
	triggers, happies := insights.Highlights(logs)
	narrative := s.narrator.Weekly(c.Request.Context(), sessions, triggers, happies)

	pdf, err := s.reporter.Weekly(report.WeeklyInput{
		Username:     username,
		Generated:    s.now(),
		Sessions:     sessions,
		Triggers:     triggers,
		HappyMoments: happies,
		Narrative:    narrative,
	})
	if err != nil {
		s.log.Error("failed render weekly report", zap.Error(err), zap.String("user", username))
		detail(c, http.StatusInternalServerError, "failed render report")
		return
	}
	sendPDF(c, fmt.Sprintf("Weekly_Wellness_Report_%s.pdf", username), pdf)
}

func (s *Server) handlerDailyAnalytics(c *gin.Context) {
	username, ok := s.username(c)
	if !ok {
		return
	}

	date := c.Query("date")
	if date == "" {
		dates, err := s.logs.Dates(username)
		if err != nil {
			s.log.Error("failed list session dates", zap.Error(err), zap.String("user", username))
			detail(c, http.StatusInternalServerError, "internal error")
			return
		}
		if len(dates) == 0 {
			detail(c, http.StatusNotFound, "No session logs found for this user")
			return
		}
		date = dates[0]
	}
	if err := sessionlog.ValidDate(date); err != nil {
		detail(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	log, err := s.logs.Latest(username, date)
	if errors.Is(err, apperror.ErrNotFoundData) {
		detail(c, http.StatusNotFound, "No logs found for this date")
		return
	}
	if err != nil {
		s.log.Error("failed load session log", zap.Error(err), zap.String("user", username))
		detail(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(http.StatusOK, insights.Daily(log))
}

func (s *Server) handlerWeeklyAnalytics(c *gin.Context) {
	username, ok := s.username(c)
	if !ok {
		return
	}

	logs, err := s.logs.All(username)
	if err != nil {
		s.log.Error("failed load session logs", zap.Error(err), zap.String("user", username))
		detail(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(http.StatusOK, insights.Weekly(logs))
}

func (s *Server) handlerArchive(c *gin.Context) {
	username, ok := s.username(c)
	if !ok {
		return
	}
	if s.archive == nil {
		detail(c, http.StatusServiceUnavailable, "archive is disabled")
		return
	}

	limit := archiveLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			detail(c, http.StatusBadRequest, "limit must be a positive number")
			return
		}
		limit = n
	}

	hits, err := s.archive.Search(c.Request.Context(), username, c.Query("q"), limit)
	if err != nil {
		s.log.Error("failed search archive", zap.Error(err), zap.String("user", username))
		detail(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": hits})
}

func (s *Server) username(c *gin.Context) (string, bool) {
	username := c.Param("username")
	if err := sessionlog.ValidUsername(username); err != nil {
		detail(c, http.StatusBadRequest, "invalid username")
		return "", false
	}
	return username, true
}
