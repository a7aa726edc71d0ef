package session

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/99designs/keyring"
)

const serviceName = "haulbook"

// KeyringBackend persists the session in the operating system keyring,
// falling back to an encrypted file when no keychain service is present.
type KeyringBackend struct {
	ring keyring.Keyring
}

// OpenKeyring returns a configured keyring backend. fileDir is used by the
// file fallback.
func OpenKeyring(fileDir string) (*KeyringBackend, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt("haulbook-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &KeyringBackend{ring: ring}, nil
}

// NewKeyringBackend wraps an already opened keyring.
func NewKeyringBackend(ring keyring.Keyring) *KeyringBackend {
	return &KeyringBackend{ring: ring}
}

// Get retrieves a value by key from the keyring.
func (b *KeyringBackend) Get(key string) ([]byte, error) {
	item, err := b.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting credential %q: %w", key, err)
	}

	return item.Data, nil
}

// Set stores a value by key in the keyring.
func (b *KeyringBackend) Set(key string, value []byte) error {
	err := b.ring.Set(keyring.Item{
		Key:   key,
		Data:  value,
		Label: "haulbook session",
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Remove deletes a value by key from the keyring. A missing key is not
// an error.
func (b *KeyringBackend) Remove(key string) error {
	err := b.ring.Remove(key)
	if err == nil || errors.Is(err, keyring.ErrKeyNotFound) || errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return fmt.Errorf("deleting credential %q: %w", key, err)
}
