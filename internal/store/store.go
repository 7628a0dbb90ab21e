package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists named JSON documents under a single data directory.
// Each name maps to one file; a lazily created mutex per name serializes
// every write and every read-modify-write cycle for that file.
// Implementations of higher-level repositories must wrap multi-step
// load/mutate/save sequences in Do, otherwise concurrent writers can
// silently lose updates.
type Store struct {
	dir   string
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}
	return &Store{dir: dir, locks: make(map[string]*sync.Mutex)}, nil
}

func (s *Store) lock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

// Do runs fn while holding the lock for name. Any caller that loads a
// document, mutates it and saves it back must do so inside Do.
func (s *Store) Do(name string, fn func() error) error {
	l := s.lock(name)
	l.Lock()
	defer l.Unlock()
	return fn()
}

// Load decodes the named document into out. A missing file or malformed
// content leaves out untouched: no data yet is not an error.
func (s *Store) Load(name string, out any) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return
	}
	if err := json.Unmarshal(data, out); err != nil {
		// corrupted file, start fresh
		return
	}
}

// Save replaces the named document atomically: the full content is written
// to a sibling temp file first, then renamed over the target so a concurrent
// Load never observes a partial write.
func (s *Store) Save(name string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("temp for %s: %w", name, err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), s.path(name)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}
