package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/neuralninjas/wellness/internal/adapters/api/companionapi"
	"github.com/neuralninjas/wellness/internal/adapters/api/rest"
	"github.com/neuralninjas/wellness/internal/adapters/archive"
	"github.com/neuralninjas/wellness/internal/adapters/classifier"
	"github.com/neuralninjas/wellness/internal/adapters/events"
	"github.com/neuralninjas/wellness/internal/adapters/llm"
	"github.com/neuralninjas/wellness/internal/adapters/sessionlog"
	"github.com/neuralninjas/wellness/internal/adapters/storage"
)

const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// Log - настройки логгера, общие для обоих сервисов.
type Log struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
	Path  string `env:"LOG_PATH"`
}

// Config конфигурация сервиса авторизации.
type Config struct {
	API          rest.Config
	Log          Log
	SecretKey    string        `env:"AUTH_SECRET_KEY"`
	TokenTTL     time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"24h"`
	ChatAppURL   string        `env:"CHAT_APP_URL"`
	CompanionURL string        `env:"COMPANION_URL"`
	Store        storage.Config
	Cache        storage.ConfigCache
}

// Companion конфигурация сервиса диалогов.
type Companion struct {
	API          companionapi.Config
	Log          Log
	LLM          llm.Config
	Classifier   classifier.Config
	SessionStore string        `env:"SESSION_STORE" envDefault:"memory"`
	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	PolicyFile   string        `env:"POLICY_FILE"`
	Logs         sessionlog.Config
	Archive      archive.Config
	Events       events.Config
	Cache        storage.ConfigCache
}

// Init инициализирует конфигурацию сервиса авторизации.
func Init() (*Config, error) {
	cfg := Config{}
	if err := parse(&cfg); err != nil {
		return nil, err
	}
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("AUTH_SECRET_KEY is required")
	}

	return &cfg, nil
}

// InitCompanion инициализирует конфигурацию сервиса диалогов.
func InitCompanion() (*Companion, error) {
	cfg := Companion{}
	if err := parse(&cfg); err != nil {
		return nil, err
	}

	switch cfg.SessionStore {
	case SessionStoreMemory:
	case SessionStoreRedis:
		if cfg.Cache.Redis.Address == "" {
			return nil, fmt.Errorf("SESSION_STORE=redis requires REDIS_ADDRESS")
		}
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
	}

	return &cfg, nil
}

func parse(cfg any) error {
	_ = godotenv.Load(".env")

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("error parse config %w", err)
	}
	return nil
}
