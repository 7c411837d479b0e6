package storage

import (
	"context"
	"encoding"
	"fmt"
	"time"

	"github.com/neuralninjas/wellness/internal/adapters/apperror"
	"github.com/neuralninjas/wellness/internal/adapters/storage/database"
	"github.com/neuralninjas/wellness/internal/adapters/storage/filestore"
	"github.com/neuralninjas/wellness/internal/adapters/storage/models"
	"github.com/neuralninjas/wellness/internal/adapters/storage/redisdb"
)

type Config struct {
	TypeStorage string `env:"AUTH_STORAGE" envDefault:"file"`
	Database    database.Config
	File        filestore.Config
}

type ConfigCache struct {
	Redis redisdb.Config
}

type Storage interface {
	CreateUser(ctx context.Context, username string, email string, passwordHash string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, userID uint) (*models.User, error)

	Close() error
}

type Cache interface {
	GetH(ctx context.Context, key string, obj encoding.BinaryUnmarshaler) error
	SetH(ctx context.Context, key string, value encoding.BinaryMarshaler, ttl time.Duration) error
	Close() error
}

func New(cfg Config) (Storage, error) {
	switch cfg.TypeStorage {
	case "file":
		store, err := filestore.New(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("failed init file storage: %w", err)
		}
		return store, nil
	case "database":
		store, err := database.New(cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed init databse storage: %w", err)
		}
		return store, nil
	}

	return nil, fmt.Errorf("unknown type storage %q", cfg.TypeStorage)
}

// NewCache возвращает redis кэш, если задан адрес, иначе кэш-заглушку.
func NewCache(ctx context.Context, cfg ConfigCache) (Cache, error) {
	if cfg.Redis.Address == "" {
		return NopCache{}, nil
	}

	r := redisdb.New(cfg.Redis)
	if err := r.Ping(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// NopCache никогда ничего не хранит.
type NopCache struct{}

func (NopCache) GetH(context.Context, string, encoding.BinaryUnmarshaler) error {
	return apperror.ErrNotFoundData
}

func (NopCache) SetH(context.Context, string, encoding.BinaryMarshaler, time.Duration) error {
	return nil
}

func (NopCache) Close() error {
	return nil
}
