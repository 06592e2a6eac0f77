package session

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore — LRU в памяти процесса: не больше maxEntries сессий,
// каждая живёт ttl с последнего сохранения.
type MemoryStore struct {
	cache *expirable.LRU[int64, Session]
}

func NewMemoryStore(maxEntries int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{cache: expirable.NewLRU[int64, Session](maxEntries, nil, ttl)}
}

func (m *MemoryStore) Load(_ context.Context, userID int64) (*Session, error) {
	if userID <= 0 {
		return nil, ErrInvalidUser
	}
	if s, ok := m.cache.Get(userID); ok {
		return &s, nil
	}
	return New(userID), nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	if s == nil || s.UserID <= 0 {
		return ErrInvalidUser
	}
	if s.Empty() {
		m.cache.Remove(s.UserID)
		return nil
	}
	m.cache.Add(s.UserID, *s)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, userID int64) error {
	m.cache.Remove(userID)
	return nil
}

func (m *MemoryStore) Len() int {
	return m.cache.Len()
}
