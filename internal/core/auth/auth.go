package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/neuralninjas/wellness/internal/adapters/apperror"
	"github.com/neuralninjas/wellness/internal/adapters/storage/models"
	authtools "github.com/neuralninjas/wellness/pkg/authtools"
	"github.com/neuralninjas/wellness/pkg/logger"
	"github.com/neuralninjas/wellness/pkg/utils"
	"go.uber.org/zap"
)

const (
	ClaimUserID   = "userID"
	ClaimUsername = "username"
)

var (
	defaultTokenTTL = 24 * time.Hour
)

type Store interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, userID uint) (*models.User, error)
}

type Auth struct {
	log        *logger.Logger
	secretKey  []byte
	tokenTTL   time.Duration
	chatAppURL string
	store      Store
}

type Option func(a *Auth)

// SetTokenTTL - время жизни JWT.
func SetTokenTTL(ttl time.Duration) Option {
	return func(a *Auth) {
		if ttl > 0 {
			a.tokenTTL = ttl
		}
	}
}

// SetChatAppURL - адрес чат приложения, куда передается пользователь после входа.
func SetChatAppURL(link string) Option {
	return func(a *Auth) {
		a.chatAppURL = link
	}
}

func New(log *logger.Logger, secretKey []byte, store Store, opt ...Option) (*Auth, error) {
	if len(secretKey) == 0 {
		return nil, errors.New("secret key is empty")
	}

	a := &Auth{
		store:     store,
		secretKey: secretKey,
		log:       log,
		tokenTTL:  defaultTokenTTL,
	}
	for _, o := range opt {
		o(a)
	}

	return a, nil
}

// Register создает пользователя с хэшированным паролем.
func (a *Auth) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = NormalizeEmail(email)
	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("username, email and password required: %w", apperror.ErrInvalidInput)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := a.store.CreateUser(ctx, username, email, hash)
	if err != nil {
		return nil, err
	}

	a.log.Info("user registered", zap.Uint("userID", user.ID))
	return user, nil
}

// Authenticate проверяет email и пароль.
// Неизвестный email и неверный пароль неразличимы для вызывающего.
func (a *Auth) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := a.store.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFoundData) {
			return nil, apperror.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed get user: %w", err)
	}

	if !utils.CheckPasswordHash(user.PasswordHash, password) {
		return nil, apperror.ErrInvalidCredentials
	}

	return user, nil
}

func (a *Auth) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	return a.store.GetUserByID(ctx, userID)
}

// CreateJWT - Создает JWT ключ и записывает в него ID и имя пользователя.
func (a *Auth) CreateJWT(user *models.User) (string, error) {
	return authtools.CreateJWT(a.secretKey, map[string]string{
		ClaimUserID:   strconv.FormatUint(uint64(user.ID), 10),
		ClaimUsername: user.Username,
	}, a.tokenTTL)
}

// VerifyJWT - Проверяет JWT.
func (a *Auth) VerifyJWT(signedData string) (map[string]string, bool) {
	return authtools.VerifyJWT(a.secretKey, signedData)
}

// TokenTTL возвращает время жизни токена.
func (a *Auth) TokenTTL() time.Duration {
	return a.tokenTTL
}

// HandoffLink возвращает ссылку на чат приложение с параметрами входа.
func (a *Auth) HandoffLink(username string) string {
	if a.chatAppURL == "" {
		return ""
	}
	u, err := url.Parse(a.chatAppURL)
	if err != nil {
		a.log.Error("invalid chat app url", zap.Error(err), zap.String("url", a.chatAppURL))
		return ""
	}
	q := u.Query()
	q.Set("auth", "success")
	q.Set("user", username)
	u.RawQuery = q.Encode()
	return u.String()
}

// NormalizeEmail приводит email к нижнему регистру без пробелов.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
