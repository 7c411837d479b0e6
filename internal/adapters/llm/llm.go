// Package llm - клиент Gemini/Gemma через google.golang.org/genai.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

type Config struct {
	APIKey  string        `env:"GEMINI_API_KEY"`
	Model   string        `env:"GEMINI_MODEL" envDefault:"gemma-3-27b-it"`
	Timeout time.Duration `env:"GEMINI_TIMEOUT" envDefault:"60s"`
}

var ErrEmptyResponse = errors.New("empty model response")

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Client struct {
	models  contentGenerator
	model   string
	timeout time.Duration
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed create genai client: %w", err)
	}

	return &Client{models: client.Models, model: cfg.Model, timeout: cfg.Timeout}, nil
}

// Generate возвращает текстовый ответ модели.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, prompt, nil)
}

// GenerateJSON просит модель ответить json. Модели gemma не поддерживают
// json режим, для них формат задается только промптом.
func (c *Client) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	var cfg *genai.GenerateContentConfig
	if !strings.HasPrefix(c.model, "gemma") {
		cfg = &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	}
	return c.generate(ctx, prompt, cfg)
}

func (c *Client) generate(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("failed generate content with %s: %w", c.model, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
