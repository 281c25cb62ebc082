package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "store.db"), testLogger())
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_Roundtrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}

	if err := s.Set(ctx, "k", []byte(`"v1"`)); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "k", []byte(`"v2"`)); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `"v2"` {
		t.Errorf("expected upsert to overwrite, got %s", got)
	}
}

func TestSQLiteStore_MultiOps(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	err := s.MultiSet(ctx, map[string][]byte{
		KeyCartItems:     []byte(`[]`),
		KeyWishlistItems: []byte(`{"items":[]}`),
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.MultiRemove(ctx, []string{KeyCartItems, "missing"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, KeyCartItems); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("expected cart key removed, got %v", err)
	}
	if _, err := s.Get(ctx, KeyWishlistItems); err != nil {
		t.Errorf("expected wishlist key kept, got %v", err)
	}
}

func TestSQLiteStore_Clear(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	_ = s.Set(ctx, "a", []byte(`1`))
	_ = s.Set(ctx, "b", []byte(`2`))

	if err := s.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "a"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("expected cleared, got %v", err)
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	ctx := context.Background()

	s1, err := OpenSQLiteStore(path, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := s1.Set(ctx, "k", []byte(`"v"`)); err != nil {
		t.Fatal(err)
	}
	if err := s1.Close(); err != nil {
		t.Fatal(err)
	}

	s2, err := OpenSQLiteStore(path, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	got, err := s2.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `"v"` {
		t.Errorf("expected value to survive reopen, got %s", got)
	}
}
