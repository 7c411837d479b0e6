package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/neuralninjas/wellness/internal/adapters/api/companionapi"
	"github.com/neuralninjas/wellness/internal/adapters/archive"
	"github.com/neuralninjas/wellness/internal/adapters/classifier"
	"github.com/neuralninjas/wellness/internal/adapters/config"
	"github.com/neuralninjas/wellness/internal/adapters/events"
	"github.com/neuralninjas/wellness/internal/adapters/llm"
	"github.com/neuralninjas/wellness/internal/adapters/sessionlog"
	"github.com/neuralninjas/wellness/internal/adapters/storage/redisdb"
	"github.com/neuralninjas/wellness/internal/core/companion"
	"github.com/neuralninjas/wellness/internal/core/insights"
	"github.com/neuralninjas/wellness/internal/core/report"
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

	cfg, err := config.InitCompanion()
	if err != nil {
		return fmt.Errorf("failed initialize config: %w", err)
	}

	lgr, err := logger.New(ctx, logger.SetLevel(cfg.Log.Level), logger.SetLogPath(cfg.Log.Path))
	if err != nil {
		return fmt.Errorf("failed initialize logger: %w", err)
	}
	defer func() { _ = lgr.Close() }()
	defer stop()

	policy, err := companion.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return fmt.Errorf("failed load policy: %w", err)
	}

	gen, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed initialize llm: %w", err)
	}

	logs, err := sessionlog.New(cfg.Logs)
	if err != nil {
		return fmt.Errorf("failed initialize session logs: %w", err)
	}

	arch, err := archive.New(cfg.Archive)
	if err != nil {
		return fmt.Errorf("failed initialize archive: %w", err)
	}
	defer func() { _ = arch.Close() }()

	recorders := []companion.Recorder{logs, arch}
	if cfg.Events.URL != "" {
		pub, err := events.Connect(cfg.Events)
		if err != nil {
			return fmt.Errorf("failed initialize events: %w", err)
		}
		defer func() { _ = pub.Close() }()
		recorders = append(recorders, pub)
	}

	var sessions companion.SessionStore = companion.NewMemoryStore()
	if cfg.SessionStore == config.SessionStoreRedis {
		r := redisdb.New(cfg.Cache.Redis)
		if err := r.Ping(ctx); err != nil {
			return fmt.Errorf("failed initialize session store: %w", err)
		}
		defer func() { _ = r.Close() }()
		sessions = companion.NewKVStore(r, cfg.SessionTTL)
	}

	engineOptions := []companion.Option{
		companion.WithPolicy(policy),
		companion.WithRecorders(recorders...),
	}
	if cfg.Classifier.TextURL != "" {
		engineOptions = append(engineOptions,
			companion.WithTextClassifier(classifier.NewText(cfg.Classifier.TextURL, cfg.Classifier.Timeout)))
	}
	if cfg.Classifier.AudioURL != "" {
		engineOptions = append(engineOptions,
			companion.WithAudioClassifier(classifier.NewAudio(cfg.Classifier.AudioURL, cfg.Classifier.Timeout)))
	}
	engine, err := companion.New(lgr, gen, sessions, engineOptions...)
	if err != nil {
		return fmt.Errorf("failed initialize engine: %w", err)
	}

	httpServer := companionapi.New(lgr, engine, logs, report.New(), insights.NewNarrator(lgr, gen),
		companionapi.Addr(cfg.API.Addr),
		companionapi.CORSOrigins(cfg.API.CORSOrigins),
		companionapi.MaxUpload(cfg.API.MaxUpload),
		companionapi.WithArchive(arch),
	)

	lgr.Info("Starting", zap.String("address", cfg.API.Addr), zap.String("model", cfg.LLM.Model))
	go func() {
		if err := httpServer.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lgr.Error("stop http server", zap.Error(err))
			stop()
		}
	}()
	<-ctx.Done()
	lgr.Info("Stopping...")

	httpServer.Stop()

	lgr.Info("Service stopped")
	return nil
}
