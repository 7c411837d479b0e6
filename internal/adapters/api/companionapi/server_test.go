package companionapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neuralninjas/wellness/internal/adapters/apperror"
	"github.com/neuralninjas/wellness/internal/adapters/archive"
	"github.com/neuralninjas/wellness/internal/adapters/sessionlog"
	"github.com/neuralninjas/wellness/internal/adapters/types"
	"github.com/neuralninjas/wellness/internal/core/companion"
	"github.com/neuralninjas/wellness/internal/core/insights"
	"github.com/neuralninjas/wellness/internal/core/report"
	"github.com/neuralninjas/wellness/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	last companion.TurnRequest
	err  error
}

func (f *fakeEngine) Turn(_ context.Context, req companion.TurnRequest) (*companion.TurnResult, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &companion.TurnResult{Response: "Tell me more", Emotion: "neutral", CurrentTurn: 2, TranscribedText: req.Text}, nil
}

type fakeNarrator struct{}

func (fakeNarrator) Weekly(context.Context, []insights.SessionSummary, []string, []string) insights.Narrative {
	return insights.Narrative{Profile: "OVERALL EMOTIONAL STATE\nSteady.", Plan: "Walk more."}
}

type env struct {
	engine  *fakeEngine
	logs    *sessionlog.Store
	archive *archive.Store
	handler http.Handler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logs, err := sessionlog.New(sessionlog.Config{Dir: t.TempDir()})
	require.NoError(t, err)
	arch, err := archive.New(archive.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = arch.Close() })

	e := &env{engine: &fakeEngine{}, logs: logs, archive: arch}
	srv := New(logger.Nop(), e.engine, logs, report.New(report.WithCompression(false)), fakeNarrator{},
		WithArchive(arch),
		MaxUpload(64),
		WithClock(func() time.Time { return time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC) }),
	)
	e.handler = srv.Handler()
	return e
}

func (e *env) record(t *testing.T, user string, day int) {
	t.Helper()
	l := types.NewSessionLog(time.Date(2025, 3, day, 9, 0, 0, 0, time.UTC))
	l.Username = user
	l.SessionID = fmt.Sprintf("s%d", day)
	l.History = []types.Exchange{{User: "I walked the dog", Bot: "Lovely"}}
	l.EmoScores = []types.TurnScore{{Turn: 1, Emotion: "neutral"}, {Turn: 2, Emotion: "happiness", Scores: map[string]float64{"happiness": 0.9}}}
	l.AIInsights = types.Insights{Triggers: "rain", HappyMoments: "dog walk"}
	require.NoError(t, e.logs.Record(context.Background(), l))
	require.NoError(t, e.archive.Record(context.Background(), l))
}

func (e *env) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func chatForm(t *testing.T, fields map[string]string, audio []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if audio != nil {
		part, err := w.CreateFormFile("audio", "voice.webm")
		require.NoError(t, err)
		_, err = part.Write(audio)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/chat", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestChat(t *testing.T) {
	e := newEnv(t)

	w := e.do(chatForm(t, map[string]string{"session_id": "s1", "text": "hello", "username": "amy", "is_extra_phase": "True"}, []byte("RIFF")))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res companion.TurnResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "Tell me more", res.Response)
	assert.Equal(t, 2, res.CurrentTurn)
	assert.True(t, e.engine.last.ExtraPhase)
	assert.Equal(t, "amy", e.engine.last.Username)
	assert.Equal(t, []byte("RIFF"), e.engine.last.Audio)
	assert.Equal(t, "voice.webm", e.engine.last.AudioName)

	e.do(chatForm(t, map[string]string{"session_id": "s2", "text": "hi"}, nil))
	assert.Equal(t, "Guest", e.engine.last.Username)
	assert.False(t, e.engine.last.ExtraPhase)
}

func TestChatErrors(t *testing.T) {
	e := newEnv(t)

	cases := []struct {
		Name   string
		Fields map[string]string
		Audio  []byte
		Err    error
		Status int
	}{
		{Name: "no session", Fields: map[string]string{"text": "x"}, Status: http.StatusBadRequest},
		{Name: "bad username", Fields: map[string]string{"session_id": "s", "text": "x", "username": "../x"}, Status: http.StatusBadRequest},
		{Name: "bad flag", Fields: map[string]string{"session_id": "s", "text": "x", "is_extra_phase": "maybe"}, Status: http.StatusBadRequest},
		{Name: "audio too large", Fields: map[string]string{"session_id": "s"}, Audio: bytes.Repeat([]byte("a"), 65), Status: http.StatusRequestEntityTooLarge},
		{Name: "empty turn", Fields: map[string]string{"session_id": "s"}, Err: apperror.ErrInvalidInput, Status: http.StatusBadRequest},
		{Name: "llm down", Fields: map[string]string{"session_id": "s", "text": "x"}, Err: fmt.Errorf("reply: %w", apperror.ErrUpstream), Status: http.StatusBadGateway},
		{Name: "store down", Fields: map[string]string{"session_id": "s", "text": "x"}, Err: errors.New("redis down"), Status: http.StatusInternalServerError},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			e.engine.err = c.Err
			w := e.do(chatForm(t, c.Fields, c.Audio))
			assert.Equal(t, c.Status, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"detail"`)
		})
	}
}

func TestHistory(t *testing.T) {
	e := newEnv(t)
	e.record(t, "amy", 13)
	e.record(t, "amy", 14)

	w := e.do(httptest.NewRequest(http.MethodGet, "/history/amy", http.NoBody))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"dates": ["2025-03-14", "2025-03-13"]}`, w.Body.String())

	w = e.do(httptest.NewRequest(http.MethodGet, "/history/nobody", http.NoBody))
	assert.JSONEq(t, `{"dates": []}`, w.Body.String())
}

func TestDailyPDF(t *testing.T) {
	e := newEnv(t)
	e.record(t, "amy", 14)

	w := e.do(httptest.NewRequest(http.MethodGet, "/download-pdf/amy/2025-03-14", http.NoBody))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Wellness_Report_2025-03-14.pdf")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
	assert.Contains(t, w.Body.String(), "I walked the dog")

	w = e.do(httptest.NewRequest(http.MethodGet, "/download-pdf/amy/2025-03-01", http.NoBody))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"detail": "No logs found for this date"}`, w.Body.String())

	w = e.do(httptest.NewRequest(http.MethodGet, "/download-pdf/amy/14-03-2025", http.NoBody))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWeeklyPDF(t *testing.T) {
	e := newEnv(t)

	w := e.do(httptest.NewRequest(http.MethodGet, "/download-weekly-pdf/amy", http.NoBody))
	assert.Equal(t, http.StatusNotFound, w.Code)

	e.record(t, "amy", 14)
	w = e.do(httptest.NewRequest(http.MethodGet, "/download-weekly-pdf/amy", http.NoBody))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Weekly_Wellness_Report_amy.pdf")
	assert.Contains(t, w.Body.String(), "Generated: 16-03-2025")
	assert.Contains(t, w.Body.String(), "Walk more.")
}

func TestAnalytics(t *testing.T) {
	e := newEnv(t)

	w := e.do(httptest.NewRequest(http.MethodGet, "/analytics/amy/daily", http.NoBody))
	assert.Equal(t, http.StatusNotFound, w.Code)

	e.record(t, "amy", 12)
	e.record(t, "amy", 13)

	w = e.do(httptest.NewRequest(http.MethodGet, "/analytics/amy/daily", http.NoBody))
	require.Equal(t, http.StatusOK, w.Code)
	var daily insights.DailySnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &daily))
	assert.Equal(t, "2025-03-13", daily.Date)
	assert.Equal(t, "happiness", daily.DominantEmotion)
	assert.InDelta(t, 90.0, daily.MoodClarity, 1e-9)

	w = e.do(httptest.NewRequest(http.MethodGet, "/analytics/amy/daily?date=2025-03-12", http.NoBody))
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(httptest.NewRequest(http.MethodGet, "/analytics/amy/weekly", http.NoBody))
	require.Equal(t, http.StatusOK, w.Code)
	var weekly insights.WeeklyTrends
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &weekly))
	assert.False(t, weekly.Unlocked)
	assert.Equal(t, 1, weekly.Remaining)
}

func TestArchiveSearch(t *testing.T) {
	e := newEnv(t)
	e.record(t, "amy", 14)

	w := e.do(httptest.NewRequest(http.MethodGet, "/archive/amy?q=dog", http.NoBody))
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Results []archive.Hit `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out.Results, 1)
	assert.Equal(t, "s14", out.Results[0].SessionID)

	w = e.do(httptest.NewRequest(http.MethodGet, "/archive/amy?limit=-1", http.NoBody))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	w := newEnv(t).do(httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok": true}`, w.Body.String())
}
