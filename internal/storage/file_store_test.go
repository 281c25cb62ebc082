package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "store.json"), testLogger())
}

func TestFileStore_GetMissingKey(t *testing.T) {
	s := newTestFileStore(t)

	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestFileStore_SetGetRoundtrip(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, KeyAuthToken, []byte(`"tok-1"`)); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := s.Get(ctx, KeyAuthToken)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var token string
	if err := json.Unmarshal(got, &token); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if token != "tok-1" {
		t.Errorf("expected tok-1, got %q", token)
	}
}

func TestFileStore_SetRejectsInvalidJSON(t *testing.T) {
	s := newTestFileStore(t)

	if err := s.Set(context.Background(), "k", []byte("{not json")); err == nil {
		t.Error("expected error for invalid JSON value")
	}
}

func TestFileStore_MultiSetAndMultiRemove(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	err := s.MultiSet(ctx, map[string][]byte{
		KeyAuthToken: []byte(`"tok"`),
		KeyAuthUser:  []byte(`{"name":"Ana","email":"ana@example.com"}`),
	})
	if err != nil {
		t.Fatalf("multiset: %v", err)
	}

	if _, err := s.Get(ctx, KeyAuthToken); err != nil {
		t.Errorf("token missing after multiset: %v", err)
	}
	if _, err := s.Get(ctx, KeyAuthUser); err != nil {
		t.Errorf("user missing after multiset: %v", err)
	}

	if err := s.MultiRemove(ctx, []string{KeyAuthToken, KeyAuthUser}); err != nil {
		t.Fatalf("multiremove: %v", err)
	}
	if _, err := s.Get(ctx, KeyAuthToken); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("expected token gone, got %v", err)
	}
	if _, err := s.Get(ctx, KeyAuthUser); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("expected user gone, got %v", err)
	}
}

func TestFileStore_MultiRemoveAbsentKeysIsNoop(t *testing.T) {
	s := newTestFileStore(t)

	if err := s.MultiRemove(context.Background(), []string{"a", "b"}); err != nil {
		t.Errorf("expected no error removing absent keys, got %v", err)
	}
	if _, err := os.Stat(s.Path()); !os.IsNotExist(err) {
		t.Error("no-op remove should not create the store file")
	}
}

func TestFileStore_Clear(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	_ = s.Set(ctx, "a", []byte(`1`))
	_ = s.Set(ctx, "b", []byte(`2`))

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := s.Get(ctx, "a"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("expected key cleared, got %v", err)
	}
}

func TestFileStore_CorruptFileGetFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	if err := os.WriteFile(path, []byte("{{{"), 0600); err != nil {
		t.Fatal(err)
	}
	s := NewFileStore(path, testLogger())

	_, err := s.Get(context.Background(), "k")
	if err == nil || errors.Is(err, ErrKeyNotFound) {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestFileStore_CorruptFileWriteStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	if err := os.WriteFile(path, []byte("{{{"), 0600); err != nil {
		t.Fatal(err)
	}
	s := NewFileStore(path, testLogger())
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte(`"v"`)); err != nil {
		t.Fatalf("set over corrupt file: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `"v"` {
		t.Errorf("expected fresh document with key, got %s", got)
	}
}

func TestFileStore_WriteCreatesBackup(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	_ = s.Set(ctx, "k", []byte(`1`))
	_ = s.Set(ctx, "k", []byte(`2`))

	if _, err := os.Stat(s.Path() + ".bak"); err != nil {
		t.Errorf("expected backup file after second write: %v", err)
	}
}

func TestFileStore_Permissions(t *testing.T) {
	s := newTestFileStore(t)

	if err := s.Set(context.Background(), "k", []byte(`1`)); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	if mode := info.Mode().Perm(); mode&0077 != 0 {
		t.Errorf("store file should be 0600, got %04o", mode)
	}
}
