package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dmorgan81/sdxlgen/internal/log"
)

var ErrNotFound = errors.New("key not found")

// Storage is a string-keyed byte store in the manner of browser local
// storage.
type Storage interface {
	Get(context.Context, string) ([]byte, error)
	Set(context.Context, string, []byte) error
}

type MemoryStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: map[string][]byte{}}
}

func (m *MemoryStorage) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStorage) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// FileStorage keeps every key in one JSON object on disk.
type FileStorage struct {
	Path string
	mu   sync.Mutex
}

func (f *FileStorage) read() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, err
	}
	entries := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", f.Path, err)
	}
	return entries, nil
}

func (f *FileStorage) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.read()
	if err != nil {
		return nil, err
	}
	v, ok := entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (f *FileStorage) Set(ctx context.Context, key string, value []byte) error {
	log := log.FromContextOrDiscard(ctx).WithGroup("file storage").With("path", f.Path, "key", key)
	log.Debug("writing key")

	f.mu.Lock()
	defer f.mu.Unlock()

	// a corrupt file is replaced rather than blocking every future write
	entries, err := f.read()
	if err != nil {
		log.Warn("discarding unreadable storage file", "error", err)
		entries = map[string]json.RawMessage{}
	}
	if !json.Valid(value) {
		return fmt.Errorf("value for %q is not valid json", key)
	}
	entries[key] = json.RawMessage(value)

	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.Path)
}
