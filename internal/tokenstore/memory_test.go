package tokenstore

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Save(ctx, sampleToken()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if *loaded != *sampleToken() {
		t.Errorf("round-trip mismatch: got %+v, want %+v", loaded, sampleToken())
	}
}

func TestMemoryStoreLoadEmpty(t *testing.T) {
	if _, err := NewMemoryStore().Load(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreSaveNilToken(t *testing.T) {
	if err := NewMemoryStore().Save(context.Background(), nil); !errors.Is(err, ErrNilToken) {
		t.Errorf("Save(nil) error = %v, want ErrNilToken", err)
	}
}

func TestMemoryStoreCopiesToken(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	original := sampleToken()
	if err := store.Save(ctx, original); err != nil {
		t.Fatal(err)
	}

	// Mutating either the saved original or a loaded copy must not leak into
	// the store.
	original.AccessToken = "mutated"

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.AccessToken != "access-token" {
		t.Error("store aliased the saved token")
	}

	loaded.AccessToken = "mutated-again"
	reloaded, err := store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.AccessToken != "access-token" {
		t.Error("store aliased the loaded token")
	}
}
