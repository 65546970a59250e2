package main

import (
	"sync"
	"time"

	"go-skin-renderer/internal/session"
)

// sessionSource hands out sessions by id. Only ids returned by Create are
// known to a source.
type sessionSource interface {
	// Session returns the session stored under id; ok is false for an id
	// that was never issued or has expired.
	Session(id string) (s session.Store, ok bool, err error)
	// Create starts a session and returns its id.
	Create() (id string, s session.Store, err error)
}

// maxMemorySessions caps the number of sessions kept in memory.
const maxMemorySessions = 10000

type memoryEntry struct {
	store    *session.MemoryStore
	lastUsed time.Time
}

// memorySessions keeps sessions in memory. Sessions idle for longer than
// lifetime are dropped, and the oldest session goes when max is reached.
type memorySessions struct {
	mu       sync.Mutex
	sessions map[string]*memoryEntry
	lifetime time.Duration
	max      int
	now      func() time.Time
}

func newMemorySessions(lifetime time.Duration) *memorySessions {
	return &memorySessions{
		sessions: make(map[string]*memoryEntry),
		lifetime: lifetime,
		max:      maxMemorySessions,
		now:      time.Now,
	}
}

func (m *memorySessions) Session(id string) (session.Store, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, false, nil
	}
	now := m.now()
	if m.expired(e, now) {
		delete(m.sessions, id)
		return nil, false, nil
	}
	e.lastUsed = now
	return e.store, true, nil
}

func (m *memorySessions) Create() (string, session.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if len(m.sessions) >= m.max {
		m.evict(now)
	}
	id := session.NewID()
	e := &memoryEntry{store: session.NewMemoryStore(nil), lastUsed: now}
	m.sessions[id] = e
	return id, e.store, nil
}

func (m *memorySessions) expired(e *memoryEntry, now time.Time) bool {
	return m.lifetime > 0 && now.Sub(e.lastUsed) > m.lifetime
}

// evict drops expired sessions, then the least recently used ones until
// there is room for one more.
func (m *memorySessions) evict(now time.Time) {
	for id, e := range m.sessions {
		if m.expired(e, now) {
			delete(m.sessions, id)
		}
	}
	for len(m.sessions) >= m.max {
		oldest := ""
		for id, e := range m.sessions {
			if oldest == "" || e.lastUsed.Before(m.sessions[oldest].lastUsed) {
				oldest = id
			}
		}
		delete(m.sessions, oldest)
	}
}

// createdKey marks a database session as issued by this server.
const createdKey = "created"

type dbSessions struct {
	db *session.DB
}

func (d dbSessions) Session(id string) (session.Store, bool, error) {
	s, err := d.db.Session(id)
	if err != nil {
		return nil, false, err
	}
	if _, ok := s.Get(createdKey); !ok {
		return nil, false, nil
	}
	return s, true, nil
}

func (d dbSessions) Create() (string, session.Store, error) {
	id := session.NewID()
	s, err := d.db.Session(id)
	if err != nil {
		return "", nil, err
	}
	if err := s.Set(createdKey, time.Now().Unix()); err != nil {
		return "", nil, err
	}
	return id, s, nil
}
