package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/storage"
)

// Store keeps all entries in one JSON document on disk.
// Values are stored as strings, so they must be valid UTF-8 (the client only writes JSON).
// It is safe for concurrent use within one process.
type Store struct {
	path string

	mu sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Get(ctx context.Context, key storage.Key) ([]byte, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, false, err
	}
	v, ok := doc[string(key)]
	if !ok {
		return nil, false, nil
	}
	return []byte(v), true, nil
}

func (s *Store) Put(ctx context.Context, key storage.Key, value []byte) error {
	_ = ctx
	if key == "" {
		return storage.ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	doc[string(key)] = string(value)
	return s.write(doc)
}

func (s *Store) Delete(ctx context.Context, keys ...storage.Key) error {
	_ = ctx
	if len(keys) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	changed := false
	for _, k := range keys {
		if _, ok := doc[string(k)]; ok {
			delete(doc, string(k))
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.write(doc)
}

func (s *Store) read() (map[string]string, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read storage file: %w", err)
	}
	if len(b) == 0 {
		return map[string]string{}, nil
	}
	doc := map[string]string{}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode storage file %s: %w", s.path, err)
	}
	return doc, nil
}

// write replaces the document via a temp file + rename so readers never see a partial file.
func (s *Store) write(doc map[string]string) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode storage file: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tripsafe-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp storage file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp storage file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp storage file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod temp storage file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace storage file: %w", err)
	}
	return nil
}
