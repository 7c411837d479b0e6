package companionclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/neuralninjas/wellness/internal/adapters/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat", r.URL.Path)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "s1", r.FormValue("session_id"))
		assert.Equal(t, "amy", r.FormValue("username"))
		assert.Equal(t, "hello", r.FormValue("text"))
		assert.Equal(t, "true", r.FormValue("is_extra_phase"))

		f, h, err := r.FormFile("audio")
		if !assert.NoError(t, err) {
			return
		}
		data, _ := io.ReadAll(f)
		assert.Equal(t, "voice", string(data))
		assert.Equal(t, "voice.webm", h.Filename)

		_, _ = w.Write([]byte(`{"response": "Hi", "emotion": "happiness", "current_turn": 2, "is_final": false, "transcribed_text": "hello"}`))
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	reply, err := c.Chat(context.Background(), Turn{SessionID: "s1", Username: "amy", Text: "hello", ExtraPhase: true, Audio: []byte("voice")})
	require.NoError(t, err)
	assert.Equal(t, "Hi", reply.Response)
	assert.Equal(t, 2, reply.CurrentTurn)
	assert.Equal(t, "happiness", reply.Emotion)
}

func TestHistoryAndReports(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.EscapedPath() {
		case "/history/amy%20b":
			_, _ = w.Write([]byte(`{"dates": ["2025-03-14", "2025-03-13"]}`))
		case "/history/new":
			_, _ = w.Write([]byte(`{"dates": null}`))
		case "/download-pdf/amy/2025-03-14":
			_, _ = w.Write([]byte("%PDF-1.3 daily"))
		case "/download-weekly-pdf/amy":
			_, _ = w.Write([]byte("%PDF-1.3 weekly"))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail": "No logs found for this date"}`))
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	c := New(srv.URL)

	dates, err := c.History(ctx, "amy b")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-03-14", "2025-03-13"}, dates)

	dates, err = c.History(ctx, "new")
	require.NoError(t, err)
	assert.NotNil(t, dates)

	pdf, err := c.DailyReport(ctx, "amy", "2025-03-14")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3 daily", string(pdf))

	pdf, err = c.WeeklyReport(ctx, "amy")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3 weekly", string(pdf))

	_, err = c.DailyReport(ctx, "amy", "2020-01-01")
	assert.True(t, IsNotFound(err))
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Contains(t, se.Body, "No logs found")
}

func TestUpstreamErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/chat" {
			_, _ = w.Write([]byte("not json"))
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	ctx := context.Background()
	c := New(srv.URL)

	_, err := c.History(ctx, "amy")
	assert.ErrorIs(t, err, apperror.ErrUpstream)
	assert.False(t, IsNotFound(err))

	_, err = c.Chat(ctx, Turn{SessionID: "s", Text: "x"})
	assert.ErrorIs(t, err, apperror.ErrUpstream)

	srv.Close()
	_, err = c.WeeklyReport(ctx, "amy")
	assert.ErrorIs(t, err, apperror.ErrUpstream)
}

func TestClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/chat":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"detail":"text or audio required"}`))
		default:
			http.Error(w, "audio is too large", http.StatusRequestEntityTooLarge)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	c := New(srv.URL)

	_, err := c.Chat(ctx, Turn{SessionID: "s"})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	assert.NotErrorIs(t, err, apperror.ErrUpstream)
	se, ok := AsClientError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Equal(t, "text or audio required", se.Detail())

	_, err = c.History(ctx, "amy")
	se, ok = AsClientError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusRequestEntityTooLarge, se.Code)
	assert.Equal(t, "audio is too large", se.Detail())

	_, ok = AsClientError(&StatusError{Code: http.StatusBadGateway})
	assert.False(t, ok)
}
