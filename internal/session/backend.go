package session

import (
	"context"
	"errors"
	gosync "sync"

	"github.com/nhle/haulbook/internal/store"
)

// ErrNotFound is returned by a Backend when the slot holds no value.
var ErrNotFound = errors.New("session: slot is empty")

// Backend is a durable key-value slot. Implementations must make Set a
// single atomic write of the whole value.
type Backend interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Remove(key string) error
}

// MemoryBackend keeps values in process memory. It is used for ephemeral
// runs and tests.
type MemoryBackend struct {
	mu     gosync.Mutex
	values map[string][]byte
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string][]byte)}
}

// Get returns a copy of the value stored under key.
func (b *MemoryBackend) Get(key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, ok := b.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value under key.
func (b *MemoryBackend) Set(key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.values[key] = append([]byte(nil), value...)
	return nil
}

// Remove deletes key.
func (b *MemoryBackend) Remove(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.values, key)
	return nil
}

// StoreBackend adapts a SQLite key-value store to the Backend interface.
type StoreBackend struct {
	store store.Store
}

// NewStoreBackend wraps s.
func NewStoreBackend(s store.Store) *StoreBackend {
	return &StoreBackend{store: s}
}

// Get reads the value stored under key from the kv table.
func (b *StoreBackend) Get(key string) ([]byte, error) {
	v, err := b.store.GetValue(context.Background(), key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return v, err
}

// Set writes value under key, replacing any previous value.
func (b *StoreBackend) Set(key string, value []byte) error {
	return b.store.SetValue(context.Background(), key, value)
}

// Remove deletes key. Removing a missing key is not an error.
func (b *StoreBackend) Remove(key string) error {
	return b.store.DeleteValue(context.Background(), key)
}
