// Package companionclient - http клиент сервиса диалогов.
package companionclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/neuralninjas/wellness/internal/adapters/apperror"
)

const (
	defaultTimeout = 2 * time.Minute
	maxErrorBody   = 4 << 10
)

// Turn - ход диалога, отправляется как multipart форма.
type Turn struct {
	SessionID  string
	Username   string
	Text       string
	ExtraPhase bool
	Audio      []byte
	AudioName  string
}

// Reply - ответ на ход.
type Reply struct {
	Response        string          `json:"response"`
	Emotion         string          `json:"emotion"`
	CurrentTurn     int             `json:"current_turn"`
	IsFinal         bool            `json:"is_final"`
	Concluded       bool            `json:"concluded"`
	TranscribedText string          `json:"transcribed_text"`
	Analytics       json.RawMessage `json:"analytics,omitempty"`
}

// StatusError - сервис ответил не 2xx.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("companion returned status %d: %s", e.Code, e.Body)
}

// Unwrap: 404 - apperror.ErrNotFoundData, прочие 4xx - apperror.ErrInvalidInput,
// остальное - apperror.ErrUpstream.
func (e *StatusError) Unwrap() error {
	switch {
	case e.Code == http.StatusNotFound:
		return apperror.ErrNotFoundData
	case e.ClientError():
		return apperror.ErrInvalidInput
	}
	return apperror.ErrUpstream
}

// ClientError - сервис отклонил запрос (4xx).
func (e *StatusError) ClientError() bool {
	return e.Code >= 400 && e.Code < 500
}

// Detail возвращает поле detail из json тела ответа, иначе тело целиком.
func (e *StatusError) Detail() string {
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal([]byte(e.Body), &body); err == nil && body.Detail != "" {
		return body.Detail
	}
	return e.Body
}

type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(c *Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Chat отправляет ход диалога.
func (c *Client) Chat(ctx context.Context, t Turn) (*Reply, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"session_id", t.SessionID},
		{"text", t.Text},
		{"username", t.Username},
		{"is_extra_phase", strconv.FormatBool(t.ExtraPhase)},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("failed write field %s: %w", f[0], err)
		}
	}
	if len(t.Audio) > 0 {
		name := t.AudioName
		if name == "" {
			name = "voice.webm"
		}
		part, err := w.CreateFormFile("audio", name)
		if err != nil {
			return nil, fmt.Errorf("failed create audio part: %w", err)
		}
		if _, err := part.Write(t.Audio); err != nil {
			return nil, fmt.Errorf("failed write audio: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var reply Reply
	if err := c.doJSON(req, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// History возвращает даты сессий пользователя, новые первыми.
func (c *Client) History(ctx context.Context, username string) ([]string, error) {
	req, err := c.get(ctx, "/history/"+url.PathEscape(username))
	if err != nil {
		return nil, err
	}

	var out struct {
		Dates []string `json:"dates"`
	}
	if err := c.doJSON(req, &out); err != nil {
		return nil, err
	}
	if out.Dates == nil {
		out.Dates = []string{}
	}
	return out.Dates, nil
}

// DailyReport возвращает pdf отчет за дату yyyy-mm-dd.
func (c *Client) DailyReport(ctx context.Context, username, date string) ([]byte, error) {
	req, err := c.get(ctx, "/download-pdf/"+url.PathEscape(username)+"/"+url.PathEscape(date))
	if err != nil {
		return nil, err
	}
	return c.doBytes(req)
}

// WeeklyReport возвращает недельный pdf отчет.
func (c *Client) WeeklyReport(ctx context.Context, username string) ([]byte, error) {
	req, err := c.get(ctx, "/download-weekly-pdf/"+url.PathEscape(username))
	if err != nil {
		return nil, err
	}
	return c.doBytes(req)
}

func (c *Client) get(ctx context.Context, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed create request: %w", err)
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("companion request failed: %w: %w", apperror.ErrUpstream, err)
	}
	if resp.StatusCode/100 != 2 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return resp, nil
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed decode companion response: %w: %w", apperror.ErrUpstream, err)
	}
	return nil
}

func (c *Client) doBytes(req *http.Request) ([]byte, error) {
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed read companion response: %w: %w", apperror.ErrUpstream, err)
	}
	return data, nil
}

// AsClientError возвращает ошибку сервиса, если он отклонил запрос (4xx).
func AsClientError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) && se.ClientError() {
		return se, true
	}
	return nil, false
}

// IsNotFound - ответ 404.
func IsNotFound(err error) bool {
	return errors.Is(err, apperror.ErrNotFoundData)
}
