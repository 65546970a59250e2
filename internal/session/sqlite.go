package session

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	// SQLite driver
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS session_data (
	sid TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	changed TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (sid, key)
);

CREATE INDEX IF NOT EXISTS idx_session_data_changed ON session_data(changed);
`

// DB persists session values in a SQLite database. Values are stored as
// JSON, so numbers come back as float64.
type DB struct {
	db *sql.DB
}

// OpenDB opens (creating if necessary) the session database at path.
// Use ":memory:" for a throwaway database.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening session database: %w", err)
	}
	// one connection keeps ":memory:" databases shared across calls
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.NewString()
}

// Session loads the values of session id into a store that writes
// changes back to the database.
func (d *DB) Session(id string) (*SQLiteStore, error) {
	if id == "" {
		return nil, fmt.Errorf("session id cannot be empty")
	}
	rows, err := d.db.Query(`SELECT key, value FROM session_data WHERE sid = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	defer rows.Close()

	values := make(map[string]any)
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("scanning session %s: %w", id, err)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("decoding session value %s: %w", key, err)
		}
		values[key] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	return &SQLiteStore{db: d, id: id, mem: NewMemoryStore(values)}, nil
}

// Destroy removes every value of session id.
func (d *DB) Destroy(id string) error {
	if _, err := d.db.Exec(`DELETE FROM session_data WHERE sid = ?`, id); err != nil {
		return fmt.Errorf("destroying session %s: %w", id, err)
	}
	return nil
}

// SQLiteStore is the Store of one persisted session.
type SQLiteStore struct {
	db  *DB
	id  string
	mem *MemoryStore
}

// ID returns the session id.
func (s *SQLiteStore) ID() string { return s.id }

// Get returns the value stored under key.
func (s *SQLiteStore) Get(key string) (any, bool) {
	return s.mem.Get(key)
}

// Set stores a value and writes it to the database.
func (s *SQLiteStore) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding session value %s: %w", key, err)
	}
	_, err = s.db.db.Exec(`
		INSERT INTO session_data (sid, key, value, changed) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(sid, key) DO UPDATE SET value = excluded.value, changed = CURRENT_TIMESTAMP`,
		s.id, key, string(raw))
	if err != nil {
		return fmt.Errorf("saving session value %s: %w", key, err)
	}
	return s.mem.Set(key, value)
}
