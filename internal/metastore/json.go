package metastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"media-cloud/internal/filesystem"
	"media-cloud/internal/logging"
)

// JSONStore keeps the mapping in a single JSON document.
type JSONStore struct {
	path string
	mu   sync.Mutex
}

// NewJSONStore returns a store backed by the document at path.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Backend implements Store.
func (s *JSONStore) Backend() string { return BackendJSON }

// Close implements Store.
func (s *JSONStore) Close() error { return nil }

// Load implements Store.
func (s *JSONStore) Load(_ context.Context) (Mapping, LoadStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *JSONStore) load() (Mapping, LoadStatus) {
	start := time.Now()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			observe(BackendJSON, "load", string(LoadNotFound), start)
			return Mapping{}, LoadNotFound
		}
		logging.Warn("Failed to read metadata %s: %v", s.path, err)
		observe(BackendJSON, "load", string(LoadCorrupt), start)
		return Mapping{}, LoadCorrupt
	}

	m := Mapping{}
	if err := json.Unmarshal(data, &m); err != nil {
		logging.Warn("Metadata %s is corrupt, starting from an empty mapping: %v", s.path, err)
		observe(BackendJSON, "load", string(LoadCorrupt), start)
		return Mapping{}, LoadCorrupt
	}
	if m == nil {
		m = Mapping{}
	}

	observe(BackendJSON, "load", string(LoadOK), start)
	return m, LoadOK
}

// Save implements Store.
func (s *JSONStore) Save(_ context.Context, m Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(m)
}

func (s *JSONStore) save(m Mapping) error {
	start := time.Now()
	if m == nil {
		m = Mapping{}
	}

	err := filesystem.WriteAtomic(s.path, 0o644, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "    ")
		return enc.Encode(m)
	})
	if err != nil {
		observe(BackendJSON, "save", "error", start)
		return fmt.Errorf("save metadata: %w", err)
	}

	observe(BackendJSON, "save", string(LoadOK), start)
	return nil
}

// Upsert implements Store.
func (s *JSONStore) Upsert(_ context.Context, filename string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, _ := s.load()
	m[filename] = rec
	return s.save(m)
}
