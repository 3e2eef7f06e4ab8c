// Package yamlfile implements the user store on a single YAML document,
// matching the users.yaml layout the dashboard has always used.
package yamlfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/dashport/dashport/userstore"
)

// Store reads and rewrites the whole document under a single mutex. Last
// write wins at the semantic level; the mutex only prevents interleaved
// writes from corrupting the file.
type Store struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
}

// NewStore creates a YAML-file backed user store.
func NewStore(path string, logger *zap.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("user store path cannot be empty")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Store{path: path, logger: logger}, nil
}

// Load reads the complete document.
func (s *Store) Load(ctx context.Context) (*userstore.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save replaces the complete document.
func (s *Store) Save(ctx context.Context, doc *userstore.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(doc)
}

// Update loads the document, applies fn, and rewrites the file, all inside
// the store's critical section.
func (s *Store) Update(ctx context.Context, fn func(doc *userstore.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.save(doc)
}

// Close implements userstore.Store; a file store holds no open handles.
func (s *Store) Close() error {
	return nil
}

func (s *Store) load() (*userstore.Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", userstore.ErrStoreIO, s.path, err)
	}

	var doc userstore.Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", userstore.ErrStoreIO, s.path, err)
	}
	return &doc, nil
}

func (s *Store) save(doc *userstore.Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal document: %v", userstore.ErrStoreIO, err)
	}

	// Write to a temp file in the same directory and rename so readers never
	// observe a half-written document.
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".users-*.yaml")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file: %v", userstore.ErrStoreIO, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: failed to write temp file: %v", userstore.ErrStoreIO, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: failed to close temp file: %v", userstore.ErrStoreIO, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: failed to replace %s: %v", userstore.ErrStoreIO, s.path, err)
	}

	s.logger.Debug("User document saved",
		zap.String("path", s.path),
		zap.Int("users", len(doc.Users)),
		zap.Int("roles", len(doc.Roles)))
	return nil
}
