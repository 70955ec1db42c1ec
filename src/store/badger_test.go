package store

import (
	"context"
	"testing"
)

func TestBadgerStore(t *testing.T) {
	testStore(t, bdb)
}

// TestBadgerPrefixes checks that List doesn't leak keys of another namespace
// sharing a common prefix.
func TestBadgerPrefixes(t *testing.T) {
	t.Parallel()

	kv, err := NewBadgerKV(BadgerConfig{InMemory: true}, nil)
	if err != nil {
		t.Fatalf("got error making badger kv: %s", err)
	}
	defer kv.Close()

	ctx := context.Background()
	_ = kv.Put(ctx, "code", "a", []byte("1"))
	_ = kv.Put(ctx, "codeshares", "b", []byte("2"))

	got, err := kv.List(ctx, "code")
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(got) != 1 || string(got["a"]) != "1" {
		t.Errorf("expected only key [a] in namespace, got %v", got)
	}
}
