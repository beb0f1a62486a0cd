package store

import (
	"database/sql"
	"fmt"
	"sync"
)

// KV is the durable key-value contract the stores are built on. Two
// stable keys are used: one for the entry collection and one for the
// settings record, each holding a JSON-encoded value.
type KV interface {
	// Get returns the value for key and whether it exists.
	Get(key string) ([]byte, bool, error)
	// Put stores value under key, overwriting any previous value.
	Put(key string, value []byte) error
}

// SQLiteKV implements KV on top of the local SQLite database.
type SQLiteKV struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewSQLiteKV creates a SQLiteKV using the provided *sql.DB.
func NewSQLiteKV(db *sql.DB) *SQLiteKV {
	return &SQLiteKV{DB: db}
}

// Get returns the stored value for key, or found=false when absent.
func (s *SQLiteKV) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := s.DB.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kv get %q: %w", key, err)
	}
	return value, true, nil
}

// Put upserts value under key.
func (s *SQLiteKV) Put(key string, value []byte) error {
	_, err := s.DB.Exec(`
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("kv put %q: %w", key, err)
	}
	return nil
}

// MemoryKV is an in-memory KV for tests and throwaway runs.
type MemoryKV struct {
	mu sync.Mutex
	m  map[string][]byte
}

// NewMemoryKV creates an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{m: make(map[string][]byte)}
}

// Get returns the stored value for key, or found=false when absent.
func (s *MemoryKV) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Put stores value under key.
func (s *MemoryKV) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	s.m[key] = v
	return nil
}
