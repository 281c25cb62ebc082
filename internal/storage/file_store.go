package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
)

// FileStore keeps the whole key space in a single JSON document on disk.
// It provides atomic writes (write-tmp-then-rename), automatic backups,
// and file locking (flock for cross-process, mutex for in-process).
// Multi-key operations are atomic because they produce one document write.
type FileStore struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewFileStore creates a FileStore persisting to the given file path.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger,
	}
}

// load reads and parses the store document.
// A missing file yields an empty document. Invalid JSON is an error;
// services decide whether to treat that as empty.
func (s *FileStore) load() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("read store file: %w", err)
	}

	// The store can hold a bearer token, so warn when the file is readable
	// by group or other. Skipped on Windows where Unix permission bits are
	// not supported.
	if runtime.GOOS != "windows" {
		if info, statErr := os.Stat(s.path); statErr == nil {
			mode := info.Mode().Perm()
			if mode&0077 != 0 {
				s.logger.Warn("store file has too-open permissions, should be 0600",
					"path", s.path, "current_mode", fmt.Sprintf("%04o", mode))
			}
		}
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse store file: %w", err)
	}
	if doc == nil {
		doc = map[string]json.RawMessage{}
	}
	return doc, nil
}

// save writes the document to disk atomically.
//
// The write sequence is:
//  1. Acquire flock on path+".lock"
//  2. Copy current file to path+".bak" (ignored if no current file)
//  3. Marshal document as indented JSON
//  4. Write to path+".tmp" with 0600 permissions
//  5. Fsync the temp file
//  6. Rename path+".tmp" -> path
//  7. Release flock
//
// Callers must hold s.mu.
func (s *FileStore) save(doc map[string]json.RawMessage) error {
	lockPath := s.path + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer func() { _ = lockFile.Close() }()

	if err := flockLock(lockFile.Fd()); err != nil {
		return fmt.Errorf("acquire file lock: %w", err)
	}
	defer flockUnlock(lockFile.Fd()) //nolint:errcheck

	if currentData, readErr := os.ReadFile(s.path); readErr == nil {
		bakPath := s.path + ".bak"
		if writeErr := os.WriteFile(bakPath, currentData, 0600); writeErr != nil {
			s.logger.Warn("failed to create backup", "error", writeErr)
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}
	data = append(data, '\n')

	if err := s.writeAtomic(data); err != nil {
		return err
	}

	if err := os.Chmod(s.path, 0600); err != nil {
		s.logger.Warn("failed to set permissions on store file", "error", err)
	}

	s.logger.Debug("store saved", "path", s.path, "keys", len(doc))
	return nil
}

// writeAtomic writes data to a temp file, fsyncs it, and renames it
// over the target path. On any error the temp file is cleaned up.
func (s *FileStore) writeAtomic(data []byte) error {
	tmpPath := s.path + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := f.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp to store: %w", err)
	}
	return nil
}

// Get returns the value for key, or ErrKeyNotFound.
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	raw, ok := doc[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return []byte(raw), nil
}

// Set stores value under key.
func (s *FileStore) Set(ctx context.Context, key string, value []byte) error {
	return s.MultiSet(ctx, map[string][]byte{key: value})
}

// Remove deletes key. Absent keys are not an error.
func (s *FileStore) Remove(ctx context.Context, key string) error {
	return s.MultiRemove(ctx, []string{key})
}

// MultiSet stores all pairs in one document write.
func (s *FileStore) MultiSet(ctx context.Context, pairs map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		// A corrupt document is replaced rather than blocking writes
		// forever; the previous content survives in the .bak file.
		s.logger.Warn("store unreadable, starting fresh document", "path", s.path, "error", err)
		doc = map[string]json.RawMessage{}
	}
	for key, value := range pairs {
		if !json.Valid(value) {
			return fmt.Errorf("value for key %q is not valid JSON", key)
		}
		doc[key] = json.RawMessage(value)
	}
	return s.save(doc)
}

// MultiRemove deletes all keys in one document write.
func (s *FileStore) MultiRemove(ctx context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
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
	return s.save(doc)
}

// Clear removes every key.
func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(map[string]json.RawMessage{})
}

// Path returns the configured file path.
func (s *FileStore) Path() string {
	return s.path
}
