// Package session provides the per-user values behind the session:
// namespace of templates.
package session

import (
	"fmt"
	"sync"
)

// PrefsKey is the session key holding the user preferences, a map of
// config keys to values.
const PrefsKey = "prefs"

// Store holds the values of one session.
type Store interface {
	Get(key string) (any, bool)
	Set(key string, value any) error
}

// Username returns the "username" value of a session, or "".
func Username(s Store) string {
	return stringValue(s, "username")
}

// Language returns the "language" value of a session, or "".
func Language(s Store) string {
	return stringValue(s, "language")
}

func stringValue(s Store, key string) string {
	if s == nil {
		return ""
	}
	v, ok := s.Get(key)
	if !ok || v == nil {
		return ""
	}
	if str, ok := v.(string); ok {
		return str
	}
	return fmt.Sprint(v)
}

// MemoryStore is a Store kept in memory only.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewMemoryStore creates a store holding a copy of values.
func NewMemoryStore(values map[string]any) *MemoryStore {
	data := make(map[string]any, len(values))
	for k, v := range values {
		data[k] = v
	}
	return &MemoryStore{data: data}
}

// Get returns the value stored under key.
func (m *MemoryStore) Get(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

// Set stores a value.
func (m *MemoryStore) Set(key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}
