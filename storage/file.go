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
	"time"
)

type fileEntry struct {
	Value     string `json:"value"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
}

// FileBackend keeps all entries in one JSON document. Every write replaces the file
// through a temp-file rename so readers never see a torn document.
type FileBackend struct {
	mu     sync.Mutex
	path   string
	now    func() time.Time
	closed bool
}

// NewFileBackend creates a backend persisting to path. The file is created on first
// write with mode 0600.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path, now: time.Now}
}

func (f *FileBackend) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return "", false, ErrClosed
	}

	doc, err := f.read()
	if err != nil {
		return "", false, err
	}
	entry, ok := doc[key]
	if !ok {
		return "", false, nil
	}
	if entry.ExpiresAt > 0 && f.now().Unix() >= entry.ExpiresAt {
		return "", false, nil
	}
	return entry.Value, true, nil
}

func (f *FileBackend) Put(_ context.Context, entries map[string]string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	doc, err := f.read()
	if err != nil {
		return err
	}
	var expiresAt int64
	if ttl > 0 {
		expiresAt = f.now().Add(ttl).Unix()
	}
	for key, value := range entries {
		doc[key] = fileEntry{Value: value, ExpiresAt: expiresAt}
	}
	return f.write(doc)
}

func (f *FileBackend) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	doc, err := f.read()
	if err != nil {
		return err
	}
	changed := false
	for _, key := range keys {
		if _, ok := doc[key]; ok {
			delete(doc, key)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return f.write(doc)
}

func (f *FileBackend) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *FileBackend) read() (map[string]fileEntry, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]fileEntry{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(data) == 0 {
		return map[string]fileEntry{}, nil
	}

	doc := map[string]fileEntry{}
	if err := json.Unmarshal(data, &doc); err != nil {
		// A corrupt document is treated as empty; the next write replaces it.
		return map[string]fileEntry{}, nil
	}
	return doc, nil
}

func (f *FileBackend) write(doc map[string]fileEntry) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
