// Package archive хранит завершенные сессии в sqlite для поиска по тексту.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/neuralninjas/wellness/internal/adapters/types"
	_ "modernc.org/sqlite"
)

type Config struct {
	Path string `env:"ARCHIVE_PATH" envDefault:"./data/archive.db"`
}

const (
	defaultLimit = 20
	maxLimit     = 100
	snippetSize  = 160
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	session_id TEXT NOT NULL,
	date TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	dominant_emotion TEXT NOT NULL,
	document TEXT NOT NULL,
	payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_user_time ON sessions(username, timestamp);
`

// Hit - найденная сессия.
type Hit struct {
	ID              string `json:"id"`
	SessionID       string `json:"session_id"`
	Date            string `json:"date"`
	Timestamp       string `json:"timestamp"`
	DominantEmotion string `json:"dominant_emotion"`
	Snippet         string `json:"snippet"`
}

type Store struct {
	db *sql.DB
}

func New(cfg Config) (*Store, error) {
	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o750); err != nil {
			return nil, fmt.Errorf("failed create archive directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed open archive: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed migrate archive: %w", err)
	}
	return &Store{db: db}, nil
}

// Record сохраняет сессию в архив.
func (s *Store) Record(ctx context.Context, log *types.SessionLog) error {
	payload, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("failed encode session: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, username, session_id, date, timestamp, dominant_emotion, document, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), log.Username, log.SessionID, log.DayOf(), log.Timestamp,
		log.DominantEmotion(), document(log), string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed archive session: %w", err)
	}
	return nil
}

// Search ищет сессии пользователя, в тексте которых есть query, новые первыми.
// Пустой query возвращает последние сессии.
func (s *Store) Search(ctx context.Context, username, query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)

	query = strings.TrimSpace(query)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, date, timestamp, dominant_emotion, document FROM sessions
		WHERE username = ? AND document LIKE ? ESCAPE '\'
		ORDER BY timestamp DESC LIMIT ?`,
		username, "%"+escapeLike(query)+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed search archive: %w", err)
	}
	defer rows.Close()

	hits := make([]Hit, 0)
	for rows.Next() {
		var h Hit
		var doc string
		if err := rows.Scan(&h.ID, &h.SessionID, &h.Date, &h.Timestamp, &h.DominantEmotion, &doc); err != nil {
			return nil, fmt.Errorf("failed read archive row: %w", err)
		}
		h.Snippet = snippet(doc, query)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

// document - текст сессии, по которому идет поиск.
func document(log *types.SessionLog) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Schedule: %s\n", log.Schedule)
	for _, x := range log.History {
		fmt.Fprintf(&b, "U: %s\nB: %s\n", x.User, x.Bot)
	}
	fmt.Fprintf(&b, "Triggers: %s\nHappy moments: %s\nSuggestions: %s\n",
		log.AIInsights.Triggers, log.AIInsights.HappyMoments, log.AIInsights.Suggestions)
	return b.String()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// snippet вырезает фрагмент документа вокруг первого совпадения.
func snippet(doc, query string) string {
	runes := []rune(doc)
	start := 0
	if i := indexFold(runes, []rune(query)); i > 0 {
		start = max(i-snippetSize/4, 0)
	}
	end := min(start+snippetSize, len(runes))
	return strings.TrimSpace(string(runes[start:end]))
}

// indexFold ищет needle в hay без учета регистра, индекс в рунах.
func indexFold(hay, needle []rune) int {
	if len(needle) == 0 {
		return -1
	}
	for i := 0; i+len(needle) <= len(hay); i++ {
		if foldEqual(hay[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

func foldEqual(a, b []rune) bool {
	for i := range a {
		if unicode.ToLower(a[i]) != unicode.ToLower(b[i]) {
			return false
		}
	}
	return true
}
