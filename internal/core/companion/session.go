package companion

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/neuralninjas/wellness/internal/adapters/apperror"
	"github.com/neuralninjas/wellness/internal/adapters/types"
)

// Session - состояние диалога между ходами.
type Session struct {
	ID         string            `json:"id"`
	Username   string            `json:"username"`
	Turns      int               `json:"turns"`
	ExtraTurns int               `json:"extra_turns"`
	Schedule   string            `json:"schedule"`
	History    []types.Exchange  `json:"history"`
	EmoScores  []types.TurnScore `json:"emo_scores"`
}

func newSession(id, username string) *Session {
	return &Session{
		ID:        id,
		Username:  username,
		Turns:     1,
		History:   []types.Exchange{},
		EmoScores: []types.TurnScore{},
	}
}

func (s *Session) clone() *Session {
	c := *s
	c.History = append([]types.Exchange(nil), s.History...)
	c.EmoScores = make([]types.TurnScore, len(s.EmoScores))
	for i, t := range s.EmoScores {
		scores := make(map[string]float64, len(t.Scores))
		for k, v := range t.Scores {
			scores[k] = v
		}
		c.EmoScores[i] = types.TurnScore{Turn: t.Turn, Scores: scores, Emotion: t.Emotion}
	}
	return &c
}

// SessionStore хранит сессии между ходами. Load возвращает apperror.ErrNotFoundData для новой сессии.
type SessionStore interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
}

// MemoryStore - сессии в памяти процесса.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (m *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, apperror.ErrNotFoundData
	}
	return s.clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[s.ID] = s.clone()
	return nil
}

// KV - хранилище байтов с TTL, например redis.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

const sessionKeyPrefix = "companion:session:"

// KVStore хранит сессии в KV в json, с TTL.
type KVStore struct {
	kv  KV
	ttl time.Duration
}

func NewKVStore(kv KV, ttl time.Duration) *KVStore {
	return &KVStore{kv: kv, ttl: ttl}
}

func (k *KVStore) Load(ctx context.Context, id string) (*Session, error) {
	data, err := k.kv.Get(ctx, sessionKeyPrefix+id)
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed decode session %s: %w", id, err)
	}
	return &s, nil
}

func (k *KVStore) Save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed encode session: %w", err)
	}
	if err := k.kv.Set(ctx, sessionKeyPrefix+s.ID, data, k.ttl); err != nil {
		return fmt.Errorf("failed save session: %w", err)
	}
	return nil
}

// keyedMutex сериализует ходы одной сессии.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyLock)}
}

// Lock берет блокировку ключа и возвращает функцию освобождения.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
