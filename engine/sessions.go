package engine

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "modernc.org/sqlite"
)

const (
	sessionsDBName   = "sessions.db"
	sessionCacheSize = 256
	sessionDirMode   = 0o755
)

var validSessionID = regexp.MustCompile(`^[a-zA-Z0-9._\-]+$`)

// SessionRecord is what the index knows about one protocol session.
type SessionRecord struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
	Requests   int       `json:"requests"`
}

// SessionStore indexes the sessions the protocol engine hands out. Records
// live in a sqlite database inside the sessions directory, with an LRU in
// front for the hot path.
type SessionStore struct {
	dir   string
	db    *sql.DB
	cache *lru.Cache[string, SessionRecord]
	mu    sync.Mutex
	now   func() time.Time
}

// EnsureSessionDir creates dir (and parents) when it does not exist yet.
func EnsureSessionDir(dir string) error {
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return nil
	}
	if err := os.MkdirAll(dir, sessionDirMode); err != nil {
		if info, statErr := os.Stat(dir); statErr == nil && info.IsDir() {
			return nil
		}
		return &DirectoryError{Path: dir, Err: err}
	}
	return nil
}

// OpenSessionStore ensures dir exists and opens the index database in it.
func OpenSessionStore(dir string) (*SessionStore, error) {
	if err := EnsureSessionDir(dir); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", "file:"+filepath.Join(dir, sessionsDBName))
	if err != nil {
		return nil, fmt.Errorf("failed to open session index: %w", err)
	}
	// sqlite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := initSessionSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init session index: %w", err)
	}

	cache, err := lru.New[string, SessionRecord](sessionCacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SessionStore{dir: dir, db: db, cache: cache, now: time.Now}, nil
}

func initSessionSchema(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		last_seen_at TIMESTAMP NOT NULL,
		requests INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_last_seen ON sessions(last_seen_at);
	`)
	return err
}

// Dir returns the sessions directory backing the store.
func (s *SessionStore) Dir() string { return s.dir }

// Touch records one request for session id, creating the record on first
// sight.
func (s *SessionStore) Touch(id string) (SessionRecord, error) {
	if !validSessionID.MatchString(id) {
		return SessionRecord{}, ErrInvalidSessionID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	record, err := s.lookup(id)
	switch {
	case errors.Is(err, ErrSessionNotFound):
		record = SessionRecord{ID: id, CreatedAt: now}
	case err != nil:
		return SessionRecord{}, err
	}
	record.LastSeenAt = now
	record.Requests++

	_, err = s.db.Exec(`
		INSERT INTO sessions (id, created_at, last_seen_at, requests)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET last_seen_at = excluded.last_seen_at, requests = excluded.requests
	`, record.ID, record.CreatedAt, record.LastSeenAt, record.Requests)
	if err != nil {
		s.cache.Remove(id)
		return SessionRecord{}, err
	}

	s.cache.Add(id, record)
	return record, nil
}

// Get returns the record for id or ErrSessionNotFound.
func (s *SessionStore) Get(id string) (SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(id)
}

func (s *SessionStore) lookup(id string) (SessionRecord, error) {
	if record, ok := s.cache.Get(id); ok {
		return record, nil
	}

	record := SessionRecord{ID: id}
	err := s.db.QueryRow(`
		SELECT created_at, last_seen_at, requests FROM sessions WHERE id = ?
	`, id).Scan(&record.CreatedAt, &record.LastSeenAt, &record.Requests)
	if err == sql.ErrNoRows {
		return SessionRecord{}, ErrSessionNotFound
	}
	if err != nil {
		return SessionRecord{}, err
	}

	s.cache.Add(id, record)
	return record, nil
}

// Forget drops the record for id. Unknown ids are not an error.
func (s *SessionStore) Forget(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Remove(id)
	_, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	return err
}

// List returns every indexed session, most recently seen first.
func (s *SessionStore) List() ([]SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT id, created_at, last_seen_at, requests FROM sessions ORDER BY last_seen_at DESC, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var r SessionRecord
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.LastSeenAt, &r.Requests); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns how many sessions are indexed.
func (s *SessionStore) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&n)
	return n, err
}

// Prune removes sessions not seen since before cutoff and returns how many
// were dropped.
func (s *SessionStore) Prune(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM sessions WHERE last_seen_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.cache.Purge()
	}
	return int(n), nil
}

// Close releases the database handle.
func (s *SessionStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
