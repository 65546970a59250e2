package session

import (
	"path/filepath"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	values := map[string]any{"username": "alice@example.com"}
	s := NewMemoryStore(values)
	values["username"] = "changed"

	if got := Username(s); got != "alice@example.com" {
		t.Errorf("Username() = %q, want the copied value", got)
	}
	if err := s.Set("language", "de_DE"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if got := Language(s); got != "de_DE" {
		t.Errorf("Language() = %q, want de_DE", got)
	}
	if _, ok := s.Get("missing"); ok {
		t.Error("Get(missing) reported a value")
	}
	if got := Username(nil); got != "" {
		t.Errorf("Username(nil) = %q", got)
	}
}

func TestSQLiteStore_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	db, err := OpenDB(path)
	if err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}

	id := NewID()
	s, err := db.Session(id)
	if err != nil {
		t.Fatalf("Session() failed: %v", err)
	}
	if err := s.Set("username", "bob"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if err := s.Set("compose_count", 3); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if err := s.Set("username", "bob@example.com"); err != nil {
		t.Fatalf("Set() overwrite failed: %v", err)
	}
	db.Close()

	db, err = OpenDB(path)
	if err != nil {
		t.Fatalf("reopening failed: %v", err)
	}
	defer db.Close()

	s, err = db.Session(id)
	if err != nil {
		t.Fatalf("Session() after reopen failed: %v", err)
	}
	if got := Username(s); got != "bob@example.com" {
		t.Errorf("Username() = %q, want bob@example.com", got)
	}
	if v, _ := s.Get("compose_count"); v != float64(3) {
		t.Errorf("compose_count = %#v, want 3", v)
	}

	other, err := db.Session(NewID())
	if err != nil {
		t.Fatalf("Session() failed: %v", err)
	}
	if _, ok := other.Get("username"); ok {
		t.Error("sessions must not share values")
	}

	if err := db.Destroy(id); err != nil {
		t.Fatalf("Destroy() failed: %v", err)
	}
	s, _ = db.Session(id)
	if _, ok := s.Get("username"); ok {
		t.Error("value survived Destroy()")
	}
}

func TestSQLiteStore_EmptyID(t *testing.T) {
	db, err := OpenDB(":memory:")
	if err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	defer db.Close()
	if _, err := db.Session(""); err == nil {
		t.Error("Session(\"\") should fail")
	}
}
