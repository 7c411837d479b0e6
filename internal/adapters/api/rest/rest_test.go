package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neuralninjas/wellness/internal/adapters/apperror"
	"github.com/neuralninjas/wellness/internal/adapters/storage"
	"github.com/neuralninjas/wellness/internal/adapters/storage/filestore"
	"github.com/neuralninjas/wellness/internal/core/auth"
	"github.com/neuralninjas/wellness/pkg/companionclient"
	"github.com/neuralninjas/wellness/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompanion struct {
	last companionclient.Turn
	err  error
}

func (f *fakeCompanion) Chat(_ context.Context, t companionclient.Turn) (*companionclient.Reply, error) {
	f.last = t
	if f.err != nil {
		return nil, f.err
	}
	return &companionclient.Reply{Response: "Hello", CurrentTurn: 2}, nil
}

func (f *fakeCompanion) History(context.Context, string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []string{"2026-10-19"}, nil
}

func (f *fakeCompanion) DailyReport(_ context.Context, _, date string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-" + date), nil
}

func (f *fakeCompanion) WeeklyReport(context.Context, string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-weekly"), nil
}

func newTestServer(t *testing.T, options ...Option) (http.Handler, *fakeCompanion) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := filestore.New(filestore.Config{Path: filepath.Join(t.TempDir(), "users.json")})
	require.NoError(t, err)
	a, err := auth.New(logger.Nop(), []byte("secret"), store, auth.SetChatAppURL("http://chat.local/"))
	require.NoError(t, err)

	comp := &fakeCompanion{}
	options = append([]Option{WithCompanion(comp), LoginURL("/login-page")}, options...)
	srv := New(a, storage.NopCache{}, logger.Nop(), options...)
	return srv.Handler(), comp
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func signupAndLogin(t *testing.T, h http.Handler) *http.Cookie {
	t.Helper()
	w := doJSON(t, h, http.MethodPost, "/signup", gin.H{"username": "alice", "email": "alice@example.com", "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, h, http.MethodPost, "/login", gin.H{"email": "Alice@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	for _, c := range w.Result().Cookies() {
		if c.Name == CookieNameToken {
			return c
		}
	}
	t.Fatal("token cookie not set")
	return nil
}

func TestSignupLogin(t *testing.T) {
	h, _ := newTestServer(t)

	w := doJSON(t, h, http.MethodPost, "/signup", gin.H{"username": "alice", "email": "alice@example.com", "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"message":"User registered successfully!"}`, w.Body.String())

	w = doJSON(t, h, http.MethodPost, "/login", gin.H{"email": "alice@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Message  string `json:"message"`
		Username string `json:"username"`
		Redirect string `json:"redirect"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Login successful!", resp.Message)
	assert.Equal(t, "alice", resp.Username)
	assert.Equal(t, "http://chat.local/?auth=success&user=alice", resp.Redirect)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieNameToken, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.NotEmpty(t, cookies[0].Value)
}

func TestSignupErrors(t *testing.T) {
	h, _ := newTestServer(t)
	signupAndLogin(t, h)

	w := doJSON(t, h, http.MethodPost, "/signup", gin.H{"username": "bob", "email": "ALICE@example.com", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Email already exists. Try logging in."}`, w.Body.String())

	w = doJSON(t, h, http.MethodPost, "/signup", gin.H{"username": "bob"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, h, http.MethodPost, "/signup", gin.H{"username": "  ", "email": "bob@example.com", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginInvalid(t *testing.T) {
	h, _ := newTestServer(t)
	signupAndLogin(t, h)

	w := doJSON(t, h, http.MethodPost, "/login", gin.H{"email": "alice@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid email or password"}`, w.Body.String())
	assert.Empty(t, w.Result().Cookies())

	w = doJSON(t, h, http.MethodPost, "/login", gin.H{"email": "nobody@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestChatView(t *testing.T) {
	h, _ := newTestServer(t, BaseURL("http://auth.local"))

	w := doJSON(t, h, http.MethodGet, "/chat", nil)
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "http://auth.local/login-page", w.Header().Get("Location"))

	cookie := signupAndLogin(t, h)
	w = doJSON(t, h, http.MethodGet, "/chat", nil, cookie)
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "http://chat.local/?auth=success&user=alice", w.Header().Get("Location"))
}

func TestUserMe(t *testing.T) {
	h, _ := newTestServer(t)

	w := doJSON(t, h, http.MethodGet, "/api/user/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	cookie := signupAndLogin(t, h)
	w = doJSON(t, h, http.MethodGet, "/api/user/me", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":1,"username":"alice","email":"alice@example.com"}`, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/user/me", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+cookie.Value)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, h, http.MethodGet, "/api/user/me", nil, &http.Cookie{Name: CookieNameToken, Value: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogout(t *testing.T) {
	h, _ := newTestServer(t)

	w := doJSON(t, h, http.MethodPost, "/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieNameToken, cookies[0].Name)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestCompanionChatProxy(t *testing.T) {
	h, comp := newTestServer(t)
	cookie := signupAndLogin(t, h)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("session_id", "s-1"))
	require.NoError(t, mw.WriteField("text", "hi"))
	require.NoError(t, mw.WriteField("username", "mallory"))
	require.NoError(t, mw.WriteField("is_extra_phase", "true"))
	fw, err := mw.CreateFormFile("audio", "voice.wav")
	require.NoError(t, err)
	_, err = fw.Write([]byte("RIFF"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/companion/chat", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "alice", comp.last.Username)
	assert.Equal(t, "s-1", comp.last.SessionID)
	assert.Equal(t, "hi", comp.last.Text)
	assert.True(t, comp.last.ExtraPhase)
	assert.Equal(t, []byte("RIFF"), comp.last.Audio)
	assert.Equal(t, "voice.wav", comp.last.AudioName)
	assert.Contains(t, w.Body.String(), `"response":"Hello"`)
}

func TestCompanionProxyErrors(t *testing.T) {
	h, comp := newTestServer(t)

	w := doJSON(t, h, http.MethodGet, "/api/companion/history", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	cookie := signupAndLogin(t, h)

	w = doJSON(t, h, http.MethodGet, "/api/companion/history", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"dates":["2026-10-19"]}`, w.Body.String())

	w = doJSON(t, h, http.MethodGet, "/api/companion/report/2026-10-19", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Disposition"), "attachment;"))

	comp.err = &companionclient.StatusError{Code: http.StatusNotFound, Body: "{}"}
	w = doJSON(t, h, http.MethodGet, "/api/companion/report/2026-01-01", nil, cookie)
	assert.Equal(t, http.StatusNotFound, w.Code)

	comp.err = errors.Join(errors.New("dial tcp"), apperror.ErrUpstream)
	w = doJSON(t, h, http.MethodGet, "/api/companion/report-weekly", nil, cookie)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"error":"companion unavailable"}`, w.Body.String())
}

func TestRateLimit(t *testing.T) {
	h, _ := newTestServer(t, RateLimit(1, 2))

	codes := make([]int, 0, 3)
	for range 3 {
		w := doJSON(t, h, http.MethodPost, "/login", gin.H{"email": "x@example.com", "password": "x"})
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, codes)
}

func TestIPLimiterPrune(t *testing.T) {
	now := time.Now()
	l := newIPLimiter(1, 1)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("1.1.1.1"))
	assert.False(t, l.Allow("1.1.1.1"))
	assert.True(t, l.Allow("2.2.2.2"))

	now = now.Add(visitorTTL + time.Minute)
	assert.True(t, l.Allow("3.3.3.3"))
	l.mu.Lock()
	assert.Len(t, l.visitors, 1)
	l.mu.Unlock()
}

func chatRequest(t *testing.T, fields map[string]string, audio []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if audio != nil {
		fw, err := mw.CreateFormFile("audio", "voice.wav")
		require.NoError(t, err)
		_, err = fw.Write(audio)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/companion/chat", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestSignupLongPassword(t *testing.T) {
	h, _ := newTestServer(t)
	password := strings.Repeat("x", 80)

	w := doJSON(t, h, http.MethodPost, "/signup", gin.H{"username": "alice", "email": "alice@example.com", "password": password})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, h, http.MethodPost, "/login", gin.H{"email": "alice@example.com", "password": password})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestCompanionChatClientErrors(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"text or audio required"}`))
	}))
	defer upstream.Close()

	h, _ := newTestServer(t, WithCompanion(companionclient.New(upstream.URL)))
	cookie := signupAndLogin(t, h)

	req := chatRequest(t, map[string]string{"session_id": "s-1", "text": ""}, nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"text or audio required"}`, w.Body.String())
}

func TestCompanionChatAudioTooLarge(t *testing.T) {
	h, comp := newTestServer(t)
	cookie := signupAndLogin(t, h)

	req := chatRequest(t, map[string]string{"session_id": "s-1"}, bytes.Repeat([]byte{1}, maxAudioSize+1))
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, comp.last.SessionID)
}

func TestCompanionChatExtraPhaseFlag(t *testing.T) {
	h, comp := newTestServer(t)
	cookie := signupAndLogin(t, h)

	req := chatRequest(t, map[string]string{"session_id": "s-1", "text": "hi", "is_extra_phase": "yes"}, nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, comp.last.ExtraPhase)

	req = chatRequest(t, map[string]string{"session_id": "s-2", "text": "hi", "is_extra_phase": "maybe"}, nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "s-1", comp.last.SessionID)
}
