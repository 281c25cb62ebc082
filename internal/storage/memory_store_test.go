package storage

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStore_Roundtrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}

	if err := s.Set(ctx, "k", []byte(`"v"`)); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `"v"` {
		t.Errorf("expected %q, got %q", `"v"`, got)
	}

	// The returned slice is a copy; mutating it must not corrupt the store.
	got[0] = 'X'
	again, _ := s.Get(ctx, "k")
	if string(again) != `"v"` {
		t.Errorf("store value mutated through returned slice: %q", again)
	}
}

func TestMemoryStore_MultiOpsAndClear(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.MultiSet(ctx, map[string][]byte{"a": []byte(`1`), "b": []byte(`2`)}); err != nil {
		t.Fatal(err)
	}
	if err := s.MultiRemove(ctx, []string{"a", "missing"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "a"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("expected a removed, got %v", err)
	}
	if _, err := s.Get(ctx, "b"); err != nil {
		t.Errorf("expected b kept, got %v", err)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "b"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("expected cleared, got %v", err)
	}
}
