// Package storage provides the blob store backing the package repository:
// a flat key to bytes namespace with `/` separated keys and a scoped
// exclusive mutator used to serialize writers.
package storage

import (
	"context"
	"errors"
	"sync"
)

// ErrNotExist is returned when a requested key is absent from the store.
var ErrNotExist = errors.New("key does not exist")

// Store is a key to bytes blob store. Every call may block on I/O and
// honors cancellation through ctx.
type Store interface {
	// Exists reports whether key holds a value.
	Exists(ctx context.Context, key string) (bool, error)
	// Value reads the bytes at key, failing with ErrNotExist when absent.
	Value(ctx context.Context, key string) ([]byte, error)
	// Save writes data at key, replacing any previous value.
	Save(ctx context.Context, key string, data []byte) error
	// Move relocates the value at src to dst and removes src.
	Move(ctx context.Context, src, dst string) error
	// Delete removes the value at key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// List returns all keys starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
	// Exclusively runs fn with serialized access relative to other
	// Exclusively calls on the same key.
	Exclusively(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// keyedMutex serializes Exclusively scopes sharing a key. Acquisition is
// cancellation-aware. Entries are kept for the life of the store; the key
// space is bounded by the number of distinct packages.
type keyedMutex struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func (km *keyedMutex) lock(ctx context.Context, key string) (func(), error) {
	km.mu.Lock()
	if km.slots == nil {
		km.slots = make(map[string]chan struct{})
	}
	slot, ok := km.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		km.slots[key] = slot
	}
	km.mu.Unlock()

	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
