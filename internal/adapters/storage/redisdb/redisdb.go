package redisdb

import (
	"context"
	"encoding"
	"errors"
	"fmt"
	"time"

	"github.com/neuralninjas/wellness/internal/adapters/apperror"
	"github.com/redis/go-redis/v9"
)

type RedisDB struct {
	Client *redis.Client
}

func New(cfg Config) *RedisDB {
	r := &RedisDB{
		Client: redis.NewClient(&redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}

	return r
}

// Ping проверяет соединение с redis.
func (r *RedisDB) Ping(ctx context.Context) error {
	if err := r.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed ping redis: %w", err)
	}
	return nil
}

func (r *RedisDB) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrNotFoundData
	}
	return data, err
}

func (r *RedisDB) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.Client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisDB) GetH(ctx context.Context, key string, obj encoding.BinaryUnmarshaler) error {
	err := r.Client.Get(ctx, key).Scan(obj)
	if errors.Is(err, redis.Nil) {
		return apperror.ErrNotFoundData
	}
	return err
}

func (r *RedisDB) SetH(ctx context.Context, key string, value encoding.BinaryMarshaler, ttl time.Duration) error {
	return r.Client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisDB) Close() error {
	return r.Client.Close()
}
