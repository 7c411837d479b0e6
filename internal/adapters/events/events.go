// Package events публикует события о завершенных сессиях в NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/neuralninjas/wellness/internal/adapters/types"
)

type Config struct {
	URL     string `env:"NATS_URL"`
	Subject string `env:"NATS_SUBJECT" envDefault:"wellness.session.completed"`
}

// SessionCompleted - тело события.
type SessionCompleted struct {
	Username        string    `json:"username"`
	SessionID       string    `json:"session_id"`
	Date            string    `json:"date"`
	DominantEmotion string    `json:"dominant_emotion"`
	Turns           int       `json:"turns"`
	Triggers        string    `json:"triggers"`
	PublishedAt     time.Time `json:"published_at"`
}

type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

type Publisher struct {
	conn    conn
	subject string
	now     func() time.Time
}

func Connect(cfg Config) (*Publisher, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("wellness-companion"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed connect to nats: %w", err)
	}
	return &Publisher{conn: nc, subject: cfg.Subject, now: time.Now}, nil
}

// NewEvent собирает событие из лога сессии.
func NewEvent(log *types.SessionLog, at time.Time) SessionCompleted {
	return SessionCompleted{
		Username:        log.Username,
		SessionID:       log.SessionID,
		Date:            log.DayOf(),
		DominantEmotion: log.DominantEmotion(),
		Turns:           len(log.DiagnosticTurns()),
		Triggers:        log.AIInsights.Triggers,
		PublishedAt:     at.UTC(),
	}
}

// Record публикует событие о завершенной сессии.
func (p *Publisher) Record(_ context.Context, log *types.SessionLog) error {
	data, err := json.Marshal(NewEvent(log, p.now()))
	if err != nil {
		return fmt.Errorf("failed encode event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed publish to %s: %w", p.subject, err)
	}
	return nil
}

// Close дожидается отправки буфера и закрывает соединение.
func (p *Publisher) Close() error {
	return p.conn.Drain()
}
