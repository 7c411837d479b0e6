// Package sessionlog хранит завершенные сессии в json файлах по пользователям:
// <dir>/<username>/Data_<username>_<yyyy-mm-dd>_<yyyymmdd_hhmmss>.json
package sessionlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/neuralninjas/wellness/internal/adapters/apperror"
	"github.com/neuralninjas/wellness/internal/adapters/types"
)

const (
	filePrefix = "Data_"
	fileSuffix = ".json"
)

type Config struct {
	Dir string `env:"LOGS_DIR" envDefault:"./patient_logs"`
}

type Store struct {
	dir string
}

type entry struct {
	name      string
	date      string
	timestamp string
}

func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed create logs directory: %w", err)
	}
	return &Store{dir: cfg.Dir}, nil
}

// ValidUsername отсекает имена, которые нельзя использовать как каталог.
func ValidUsername(username string) error {
	if username == "" || username == "." || username == ".." ||
		strings.ContainsAny(username, `/\`+"\x00") {
		return fmt.Errorf("%q: %w", username, apperror.ErrInvalidUsername)
	}
	return nil
}

// ValidDate проверяет формат yyyy-mm-dd.
func ValidDate(date string) error {
	if _, err := time.Parse(types.DateLayout, date); err != nil {
		return fmt.Errorf("date %q: %w", date, apperror.ErrInvalidInput)
	}
	return nil
}

// Record записывает лог сессии.
func (s *Store) Record(ctx context.Context, log *types.SessionLog) error {
	_, err := s.Write(log)
	return err
}

// Write записывает лог сессии и возвращает путь к файлу.
// При совпадении имени к файлу добавляется суффикс -N.
func (s *Store) Write(log *types.SessionLog) (string, error) {
	if err := ValidUsername(log.Username); err != nil {
		return "", err
	}
	dir := filepath.Join(s.dir, log.Username)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed create user directory: %w", err)
	}

	data, err := json.MarshalIndent(log, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed marshal session log: %w", err)
	}

	base := fmt.Sprintf("%s%s_%s_%s", filePrefix, log.Username, log.Date, log.Timestamp)
	for i := 0; ; i++ {
		name := base + fileSuffix
		if i > 0 {
			name = fmt.Sprintf("%s-%d%s", base, i, fileSuffix)
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed create session log: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			return "", fmt.Errorf("failed write session log: %w", err)
		}
		return path, f.Close()
	}
}

// Dates возвращает даты сессий пользователя, новые первыми.
func (s *Store) Dates(username string) ([]string, error) {
	entries, err := s.list(username)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	dates := make([]string, 0)
	for _, e := range entries {
		if _, ok := seen[e.date]; ok {
			continue
		}
		seen[e.date] = struct{}{}
		dates = append(dates, e.date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

// Latest возвращает последнюю сессию за дату.
func (s *Store) Latest(username, date string) (*types.SessionLog, error) {
	entries, err := s.list(username)
	if err != nil {
		return nil, err
	}

	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].date == date {
			return s.read(username, entries[i].name)
		}
	}
	return nil, fmt.Errorf("no logs for %s: %w", date, apperror.ErrNotFoundData)
}

// All возвращает все сессии пользователя, старые первыми. Битые файлы пропускаются.
func (s *Store) All(username string) ([]types.SessionLog, error) {
	entries, err := s.list(username)
	if err != nil {
		return nil, err
	}

	logs := make([]types.SessionLog, 0, len(entries))
	for _, e := range entries {
		l, err := s.read(username, e.name)
		if err != nil {
			continue
		}
		logs = append(logs, *l)
	}
	return logs, nil
}

// list возвращает файлы логов, отсортированные от старых к новым.
func (s *Store) list(username string) ([]entry, error) {
	if err := ValidUsername(username); err != nil {
		return nil, err
	}

	files, err := os.ReadDir(filepath.Join(s.dir, username))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed read logs directory: %w", err)
	}

	entries := make([]entry, 0, len(files))
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		if e, ok := parseName(f.Name()); ok {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].timestamp != entries[j].timestamp {
			return entries[i].timestamp < entries[j].timestamp
		}
		return entries[i].name < entries[j].name
	})
	return entries, nil
}

func (s *Store) read(username, name string) (*types.SessionLog, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, username, name))
	if err != nil {
		return nil, fmt.Errorf("failed read session log: %w", err)
	}
	var l types.SessionLog
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("failed parse session log %s: %w", name, err)
	}
	return &l, nil
}

// parseName разбирает имя файла с конца, имя пользователя может содержать "_".
func parseName(name string) (entry, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return entry{}, false
	}
	parts := strings.Split(strings.TrimSuffix(name, fileSuffix), "_")
	if len(parts) < 5 {
		return entry{}, false
	}
	date := parts[len(parts)-3]
	if ValidDate(date) != nil {
		return entry{}, false
	}
	return entry{
		name:      name,
		date:      date,
		timestamp: parts[len(parts)-2] + "_" + parts[len(parts)-1],
	}, true
}
