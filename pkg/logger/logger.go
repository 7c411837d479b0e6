package logger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	modeDir  os.FileMode = 0o750
	modeFile os.FileMode = 0o600
)

type Logger struct {
	l     *zap.Logger
	file  *rotatingFile
	done  chan struct{}
	Info  func(msg string, fields ...zap.Field)
	Debug func(msg string, fields ...zap.Field)
	Warn  func(msg string, fields ...zap.Field)
	Error func(msg string, fields ...zap.Field)
}

type loggerConfigurator struct {
	level        string
	logDir       string
	isTerminal   bool
	isFile       bool
	isRotateFile bool
	prefix       string
}

type option func(*loggerConfigurator)

func SetLevel(level string) option {
	return func(l *loggerConfigurator) {
		if level != "" {
			l.level = level
		}
	}
}

// SetLogPath задает каталог логов и включает запись в файл.
func SetLogPath(path string) option {
	return func(l *loggerConfigurator) {
		if path != "" {
			l.logDir = path
			l.isFile = true
		}
	}
}

func SetEnableFileOutput(t bool) option {
	return func(lc *loggerConfigurator) {
		lc.isFile = t
	}
}

func SetEnableTerminalOutput(t bool) option {
	return func(lc *loggerConfigurator) {
		lc.isTerminal = t
	}
}

func SetRotateFile(t bool) option {
	return func(lc *loggerConfigurator) {
		lc.isRotateFile = t
	}
}

// New создает логгер. Горутина ротации файла живет, пока не отменен ctx.
func New(ctx context.Context, options ...option) (*Logger, error) {
	l := &Logger{done: make(chan struct{})}
	cfg := loggerConfigurator{
		level:        "info",
		logDir:       "./logs",
		isTerminal:   true,
		isFile:       false,
		isRotateFile: true,
		prefix:       "2006-01-02",
	}

	for _, opt := range options {
		opt(&cfg)
	}

	level, err := zap.ParseAtomicLevel(cfg.level)
	if err != nil {
		return nil, fmt.Errorf("failed parse level: %w", err)
	}

	if cfg.isFile {
		if err := os.MkdirAll(cfg.logDir, modeDir); err != nil {
			return nil, fmt.Errorf("failed create directory for logs: %w", err)
		}
		l.file = &rotatingFile{dir: cfg.logDir, prefix: cfg.prefix, rotate: cfg.isRotateFile}
		if err := l.file.open(time.Now()); err != nil {
			return nil, err
		}
	}

	l.l = l.prepareCore(cfg, level)

	if l.file == nil || !cfg.isRotateFile {
		close(l.done)
		return l, nil
	}

	go func() {
		defer close(l.done)
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case current := <-ticker.C:
				if current.Minute() == 0 && current.Hour() == 0 {
					_ = l.l.Sync()
					if err := l.file.open(current); err != nil {
						l.Error("failed rotate log file", zap.Error(err))
					}
				}
			}
		}
	}()

	return l, nil
}

func (l *Logger) prepareCore(cfg loggerConfigurator, level zap.AtomicLevel) *zap.Logger {
	productionCfg := zap.NewProductionEncoderConfig()
	productionCfg.TimeKey = "timestamp"
	productionCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	developmentCfg := zap.NewDevelopmentEncoderConfig()
	developmentCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	consoleEncoder := zapcore.NewConsoleEncoder(developmentCfg)
	fileEncoder := zapcore.NewJSONEncoder(productionCfg)

	ouputs := []zapcore.Core{}
	if l.file != nil {
		ouputs = append(ouputs, zapcore.NewCore(fileEncoder, l.file, level))
	}
	if cfg.isTerminal {
		ouputs = append(ouputs, zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), level))
	}

	core := zapcore.NewTee(ouputs...)
	z := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	l.Info = z.Info
	l.Debug = z.Debug
	l.Warn = z.Warn
	l.Error = z.Error
	return z
}

// Zap возвращает исходный zap логгер.
func (l *Logger) Zap() *zap.Logger {
	return l.l
}

func (l *Logger) Sync() {
	_ = l.l.Sync()
}

// Close ждет завершения горутины ротации и закрывает файл логов.
// Вызывать после отмены контекста, переданного в New.
func (l *Logger) Close() error {
	<-l.done
	l.Sync()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Nop возвращает логгер без вывода, удобен в тестах.
func Nop() *Logger {
	l := &Logger{l: zap.NewNop(), done: make(chan struct{})}
	close(l.done)
	l.Info = l.l.Info
	l.Debug = l.l.Debug
	l.Warn = l.l.Warn
	l.Error = l.l.Error
	return l
}

type rotatingFile struct {
	mu     sync.Mutex
	f      *os.File
	dir    string
	prefix string
	rotate bool
}

func (r *rotatingFile) name(t time.Time) string {
	if r.rotate {
		return filepath.Join(r.dir, "log_"+t.Format(r.prefix)+".log")
	}
	return filepath.Join(r.dir, "log.log")
}

func (r *rotatingFile) open(t time.Time) error {
	f, err := os.OpenFile(r.name(t), os.O_APPEND|os.O_CREATE|os.O_WRONLY, modeFile)
	if err != nil {
		return fmt.Errorf("failed create log file: %w", err)
	}

	r.mu.Lock()
	old := r.f
	r.f = f
	r.mu.Unlock()

	if old != nil {
		return old.Close()
	}
	return nil
}

func (r *rotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.f.Write(p)
}

func (r *rotatingFile) Sync() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.f.Sync()
}

func (r *rotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.f.Close()
}
