// Package sqlite implements the user store on an embedded SQLite database.
// The document keeps its whole-replace semantics: it is stored as a single
// JSON payload row that is read and rewritten in full.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"go.uber.org/zap"

	"github.com/dashport/dashport/userstore"
)

type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewStore opens (and if necessary initializes) the SQLite user store.
func NewStore(dbPath string, logger *zap.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("sqlite path cannot be empty")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	store := &Store{db: db, logger: logger}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) initSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS user_document (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    payload TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize sqlite schema: %w", err)
	}

	// Seed an empty document so a fresh database has a well-defined state
	// instead of a missing row.
	seed := `INSERT OR IGNORE INTO user_document (id, payload, updated_at) VALUES (1, ?, ?)`
	empty, err := json.Marshal(&userstore.Document{Users: []userstore.User{}, Roles: []userstore.Role{}})
	if err != nil {
		return fmt.Errorf("failed to marshal empty document: %w", err)
	}
	if _, err := s.db.Exec(seed, string(empty), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to seed sqlite document: %w", err)
	}
	return nil
}

// Load reads the complete document.
func (s *Store) Load(ctx context.Context) (*userstore.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Save replaces the complete document.
func (s *Store) Save(ctx context.Context, doc *userstore.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, doc)
}

// Update runs fn inside the store's critical section and persists the result.
func (s *Store) Update(ctx context.Context, fn func(doc *userstore.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.save(ctx, doc)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) load(ctx context.Context) (*userstore.Document, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM user_document WHERE id = 1`).Scan(&payload)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read document row: %v", userstore.ErrStoreIO, err)
	}

	var doc userstore.Document
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, fmt.Errorf("%w: failed to decode document payload: %v", userstore.ErrStoreIO, err)
	}
	return &doc, nil
}

func (s *Store) save(ctx context.Context, doc *userstore.Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: failed to encode document: %v", userstore.ErrStoreIO, err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE user_document SET payload = ?, updated_at = ? WHERE id = 1`,
		string(payload), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("%w: failed to write document row: %v", userstore.ErrStoreIO, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: document row missing", userstore.ErrStoreIO)
	}

	s.logger.Debug("User document saved",
		zap.Int("users", len(doc.Users)),
		zap.Int("roles", len(doc.Roles)))
	return nil
}
