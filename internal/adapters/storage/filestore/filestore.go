package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/neuralninjas/wellness/internal/adapters/apperror"
	"github.com/neuralninjas/wellness/internal/adapters/storage/models"
)

type Config struct {
	Path string `env:"USER_FILE" envDefault:"./data/userdata.json"`
}

type userData struct {
	ID           uint
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

var (
	errNotFoundFile = errors.New("file not found")
)

// Filestore хранит пользователей в json файле. Подходит для локального запуска.
type Filestore struct {
	mu       sync.RWMutex
	path     string
	dataUser []userData
	lastID   uint
}

func New(cfg Config) (*Filestore, error) {
	s := &Filestore{
		path:     cfg.Path,
		dataUser: make([]userData, 0),
	}

	err := s.loadUsers()
	if err != nil && !errors.Is(err, errNotFoundFile) {
		return nil, err
	}

	for _, u := range s.dataUser {
		if u.ID > s.lastID {
			s.lastID = u.ID
		}
	}

	return s, nil
}

func (s *Filestore) Close() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.saveUsers(); err != nil {
		return fmt.Errorf("failed save user store: %w", err)
	}
	return nil
}

func (s *Filestore) saveUsers() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}

	data, err := json.Marshal(s.dataUser)
	if err != nil {
		return fmt.Errorf("error marshalling struct to JSON: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("error writing to file: %w", err)
	}

	return os.Rename(tmp, s.path)
}

func (s *Filestore) loadUsers() error {
	_, err := os.Stat(s.path)
	if os.IsNotExist(err) {
		return errNotFoundFile
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("error reading file: %w", err)
	}

	err = json.Unmarshal(data, &s.dataUser)
	if err != nil {
		return fmt.Errorf("error parsing file: %w", err)
	}

	return nil
}

func (s *Filestore) CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.dataUser {
		if u.Email == email {
			return nil, fmt.Errorf("email not unique: %w", apperror.ErrEmailNotUnique)
		}
	}

	s.lastID++
	now := time.Now()
	user := userData{
		ID:           s.lastID,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.dataUser = append(s.dataUser, user)

	if err := s.saveUsers(); err != nil {
		s.dataUser = s.dataUser[:len(s.dataUser)-1]
		s.lastID--
		return nil, fmt.Errorf("failed create user: %w", err)
	}

	return toModel(user), nil
}

func (s *Filestore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.dataUser {
		if user.Email == email {
			return toModel(user), nil
		}
	}

	return nil, apperror.ErrNotFoundData
}

func (s *Filestore) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.dataUser {
		if user.ID == userID {
			return toModel(user), nil
		}
	}

	return nil, apperror.ErrNotFoundData
}

func toModel(user userData) *models.User {
	return &models.User{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}
