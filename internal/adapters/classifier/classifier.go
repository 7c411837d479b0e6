// Package classifier - http клиенты внешних классификаторов эмоций.
//
// Текстовый: POST {"text": "..."} -> {"scores": {"happiness": 0.9, ...}}.
// Голосовой: POST multipart, поле "audio" -> {"scores": {...}, "transcript": "..."}.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/neuralninjas/wellness/internal/adapters/apperror"
	"github.com/neuralninjas/wellness/internal/core/companion"
)

type Config struct {
	TextURL  string        `env:"TEXT_CLASSIFIER_URL"`
	AudioURL string        `env:"AUDIO_CLASSIFIER_URL"`
	Timeout  time.Duration `env:"CLASSIFIER_TIMEOUT" envDefault:"15s"`
}

const maxResponseSize = 1 << 20

type Text struct {
	url    string
	client *http.Client
}

func NewText(url string, timeout time.Duration) *Text {
	return &Text{url: url, client: &http.Client{Timeout: timeout}}
}

func (t *Text) Classify(ctx context.Context, text string) (map[string]float64, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("failed encode classifier request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed create classifier request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var res companion.AudioResult
	if err := do(t.client, req, &res); err != nil {
		return nil, err
	}
	return res.Scores, nil
}

type Audio struct {
	url    string
	client *http.Client
}

func NewAudio(url string, timeout time.Duration) *Audio {
	return &Audio{url: url, client: &http.Client{Timeout: timeout}}
}

func (a *Audio) ClassifyAudio(ctx context.Context, audio []byte, filename string) (*companion.AudioResult, error) {
	if filename == "" {
		filename = "audio.wav"
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("audio", filename)
	if err != nil {
		return nil, fmt.Errorf("failed create audio part: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("failed write audio part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed create classifier request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var res companion.AudioResult
	if err := do(a.client, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func do(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("classifier request failed: %w: %w", apperror.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return fmt.Errorf("classifier returned status %d: %w", resp.StatusCode, apperror.ErrUpstream)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(out); err != nil {
		return fmt.Errorf("failed decode classifier response: %w", err)
	}
	return nil
}
