// Package dashconfig holds the dashboard document (service links, port
// mappings, settings) that the access-control core gates. Like the user
// store, the document is read and rewritten wholesale behind a mutex.
package dashconfig

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ErrStoreIO marks an unreadable or unwritable dashboard document.
var ErrStoreIO = errors.New("dashboard config I/O failure")

// Service is one dashboard tile. Category is the access-scoping tag the
// authorization filter matches against role categories.
type Service struct {
	Name        string `yaml:"name" json:"name"`
	URL         string `yaml:"url" json:"url"`
	Icon        string `yaml:"icon,omitempty" json:"icon,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Category    string `yaml:"category" json:"category"`
}

// PortMapping is one row of the port inventory.
type PortMapping struct {
	Port        int    `yaml:"port" json:"port"`
	Service     string `yaml:"service" json:"service"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Document is the complete dashboard configuration.
type Document struct {
	Services     []Service      `yaml:"services" json:"services"`
	PortMappings []PortMapping  `yaml:"port_mappings" json:"port_mappings"`
	Settings     map[string]any `yaml:"settings" json:"settings"`
}

// Store is the YAML-file backed dashboard document store.
type Store struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
}

// NewStore creates a dashboard config store.
func NewStore(path string, logger *zap.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("dashboard config path cannot be empty")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Store{path: path, logger: logger}, nil
}

// Load reads the complete document. A missing or unparsable file is an
// explicit error, never an empty document.
func (s *Store) Load(ctx context.Context) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save replaces the complete document.
func (s *Store) Save(ctx context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(doc)
}

// Update runs fn on a freshly loaded document inside the critical section and
// persists the result.
func (s *Store) Update(ctx context.Context, fn func(doc *Document) error) error {
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

func (s *Store) load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", ErrStoreIO, s.path, err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrStoreIO, s.path, err)
	}
	return &doc, nil
}

func (s *Store) save(doc *Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal document: %v", ErrStoreIO, err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file: %v", ErrStoreIO, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: failed to write temp file: %v", ErrStoreIO, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: failed to close temp file: %v", ErrStoreIO, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: failed to replace %s: %v", ErrStoreIO, s.path, err)
	}

	s.logger.Debug("Dashboard config saved",
		zap.String("path", s.path),
		zap.Int("services", len(doc.Services)))
	return nil
}
