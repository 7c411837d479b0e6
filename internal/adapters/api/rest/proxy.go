package rest

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/neuralninjas/wellness/internal/adapters/api/apiutil"
	"github.com/neuralninjas/wellness/pkg/companionclient"
	"go.uber.org/zap"
)

const maxAudioSize = 10 << 20

func (s *Server) handlerCompanionChat(c *gin.Context) {
	user := currentUser(c)

	extra, err := apiutil.ParseFormBool(c.DefaultPostForm("is_extra_phase", "false"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "is_extra_phase must be a boolean"})
		return
	}
	turn := companionclient.Turn{
		SessionID:  c.PostForm("session_id"),
		Username:   user.Username,
		Text:       c.PostForm("text"),
		ExtraPhase: extra,
	}
	if turn.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	if fh, err := c.FormFile("audio"); err == nil {
		if fh.Size > maxAudioSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "audio is too large"})
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed read audio"})
			return
		}
		turn.Audio, err = io.ReadAll(io.LimitReader(f, maxAudioSize))
		_ = f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed read audio"})
			return
		}
		turn.AudioName = fh.Filename
	}

	reply, err := s.companion.Chat(c.Request.Context(), turn)
	if err != nil {
		s.upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (s *Server) handlerCompanionHistory(c *gin.Context) {
	dates, err := s.companion.History(c.Request.Context(), currentUser(c).Username)
	if err != nil {
		s.upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dates": dates})
}

func (s *Server) handlerCompanionReport(c *gin.Context) {
	date := c.Param("date")
	pdf, err := s.companion.DailyReport(c.Request.Context(), currentUser(c).Username, date)
	if err != nil {
		s.upstreamError(c, err)
		return
	}
	sendPDF(c, fmt.Sprintf("Wellness_Report_%s.pdf", date), pdf)
}

func (s *Server) handlerCompanionWeeklyReport(c *gin.Context) {
	username := currentUser(c).Username
	pdf, err := s.companion.WeeklyReport(c.Request.Context(), username)
	if err != nil {
		s.upstreamError(c, err)
		return
	}
	sendPDF(c, fmt.Sprintf("Weekly_Wellness_Report_%s.pdf", username), pdf)
}

// upstreamError: 4xx сервиса передается клиенту с его описанием, прочие ошибки - 502.
func (s *Server) upstreamError(c *gin.Context, err error) {
	if se, ok := companionclient.AsClientError(err); ok {
		c.JSON(se.Code, gin.H{"error": se.Detail()})
		return
	}
	s.log.Error("companion request failed", zap.Error(err), zap.String("uri", c.Request.RequestURI))
	c.JSON(http.StatusBadGateway, gin.H{"error": "companion unavailable"})
}

func sendPDF(c *gin.Context, filename string, pdf []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
