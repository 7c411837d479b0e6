package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/neuralninjas/wellness/internal/adapters/api/rest"
	"github.com/neuralninjas/wellness/internal/adapters/config"
	"github.com/neuralninjas/wellness/internal/adapters/storage"
	"github.com/neuralninjas/wellness/internal/core/auth"
	"github.com/neuralninjas/wellness/pkg/companionclient"
	"github.com/neuralninjas/wellness/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	cfg, err := config.Init()
	if err != nil {
		return fmt.Errorf("failed initialize config: %w", err)
	}

	lgr, err := logger.New(ctx, logger.SetLevel(cfg.Log.Level), logger.SetLogPath(cfg.Log.Path))
	if err != nil {
		return fmt.Errorf("failed initialize logger: %w", err)
	}
	defer func() { _ = lgr.Close() }()
	defer stop()

	cache, err := storage.NewCache(ctx, cfg.Cache)
	if err != nil {
		lgr.Error("failed initialize cache", zap.Error(err))
		return fmt.Errorf("failed initialize cache: %w", err)
	}
	defer func() { _ = cache.Close() }()

	store, err := storage.New(cfg.Store)
	if err != nil {
		lgr.Error("failed initialize storage", zap.Error(err))
		return fmt.Errorf("failed initialize storage: %w", err)
	}

	authManager, err := auth.New(lgr, []byte(cfg.SecretKey), store,
		auth.SetTokenTTL(cfg.TokenTTL),
		auth.SetChatAppURL(cfg.ChatAppURL),
	)
	if err != nil {
		return fmt.Errorf("failed initialize auth manager: %w", err)
	}

	options := []rest.Option{
		rest.Addr(cfg.API.Addr),
		rest.BaseURL(cfg.API.BaseURL),
		rest.StaticDir(cfg.API.StaticDir),
		rest.LoginURL(cfg.API.LoginURL),
		rest.SetCookieDomain(cfg.API.CookieDomain),
		rest.SetCookieSecure(cfg.API.CookieSecure),
		rest.CORSOrigins(cfg.API.CORSOrigins),
		rest.RateLimit(cfg.API.RateLimitRPS, cfg.API.RateLimitBurst),
	}
	if cfg.CompanionURL != "" {
		options = append(options, rest.WithCompanion(companionclient.New(cfg.CompanionURL)))
	}
	httpServer := rest.New(authManager, cache, lgr, options...)

	lgr.Info("Starting", zap.String("address", cfg.API.Addr))
	go func() {
		if err := httpServer.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lgr.Error("stop http server", zap.Error(err))
			stop()
		}
	}()
	<-ctx.Done()
	lgr.Info("Stopping...")

	httpServer.Stop() // отключаем http сервер.
	if err := store.Close(); err != nil {
		lgr.Error("failed close storage", zap.Error(err))
	}

	lgr.Info("Service stopped")
	return nil
}
