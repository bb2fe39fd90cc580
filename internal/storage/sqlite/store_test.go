package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/louisbranch/broadside/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Get(context.Background(), []byte("absent"))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutOverwritesValue(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, []byte("game_state"), []byte("v1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(ctx, []byte("game_state"), []byte("v2")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	value, err := store.Get(ctx, []byte("game_state"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(value) != "v2" {
		t.Fatalf("expected overwritten value, got %q", value)
	}
}

func TestApplyWritesBatchInOneTransaction(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, []byte("game_state"), []byte("v1")); err != nil {
		t.Fatalf("put: %v", err)
	}

	entries := []storage.Entry{
		{Key: []byte("game_state"), Value: []byte("v2")},
		{Key: []byte("players/alice"), Value: []byte("p")},
	}
	if err := store.Apply(ctx, entries); err != nil {
		t.Fatalf("apply: %v", err)
	}
	for _, entry := range entries {
		value, err := store.Get(ctx, entry.Key)
		if err != nil {
			t.Fatalf("get %s: %v", entry.Key, err)
		}
		if string(value) != string(entry.Value) {
			t.Fatalf("expected %q under %s, got %q", entry.Value, entry.Key, value)
		}
	}
}

func TestScanReturnsPrefixAscending(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	keys := []string{"players/bob", "players/alice", "game_config", "players0"}
	for _, key := range keys {
		if err := store.Put(ctx, []byte(key), []byte(key)); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	entries, err := store.Scan(ctx, []byte("players/"))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if string(entries[0].Key) != "players/alice" || string(entries[1].Key) != "players/bob" {
		t.Fatalf("expected ascending key order, got %q then %q", entries[0].Key, entries[1].Key)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	ctx := context.Background()

	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.Put(ctx, []byte("k"), []byte("durable")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer reopened.Close()

	value, err := reopened.Get(ctx, []byte("k"))
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if string(value) != "durable" {
		t.Fatalf("expected durable value, got %q", value)
	}
}
