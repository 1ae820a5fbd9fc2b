// Package keychain reads the model API key from the OS credential store so it
// does not have to live in the environment or a dotenv file.
package keychain

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/99designs/keyring"

	"github.com/duckmesh/duckask/internal/config"
)

const ServiceName = "duckask"

// KeyAIAPIKey is the keychain item holding the model API key.
const KeyAIAPIKey = "ai_api_key"

// Store maps config keys onto keychain items.
type Store struct {
	ring keyring.Keyring
}

func NewStore(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Open opens the platform keychain. Only native backends are allowed.
func Open() (*Store, error) {
	var allowedBackends []keyring.BackendType
	switch runtime.GOOS {
	case "darwin":
		allowedBackends = []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		allowedBackends = []keyring.BackendType{keyring.WinCredBackend}
	case "linux":
		allowedBackends = []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend}
	default:
		return nil, fmt.Errorf("secure storage not supported on %s", runtime.GOOS)
	}

	cfg := keyring.Config{
		ServiceName:     ServiceName,
		AllowedBackends: allowedBackends,
		PassPrefix:      ServiceName,
		WinCredPrefix:   ServiceName,
	}
	ring, err := keyring.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open keychain: %w", err)
	}
	return NewStore(ring), nil
}

// Lookup exposes the API key item as a config source. Every other key, and
// any keychain failure, reads as unset.
func (s *Store) Lookup() config.LookupFunc {
	return func(key string) (string, bool) {
		if s == nil || s.ring == nil || key != "DUCKASK_AI_API_KEY" {
			return "", false
		}
		item, err := s.ring.Get(KeyAIAPIKey)
		if err != nil {
			return "", false
		}
		value := strings.TrimSpace(string(item.Data))
		return value, value != ""
	}
}

func (s *Store) SetAPIKey(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return errors.New("api key is empty")
	}
	return s.ring.Set(keyring.Item{
		Key:   KeyAIAPIKey,
		Data:  []byte(value),
		Label: "duckask model API key",
	})
}

// LookupOrEmpty opens the keychain and returns its lookup. When no keychain
// is available the lookup reports every key as unset.
func LookupOrEmpty() config.LookupFunc {
	store, err := Open()
	if err != nil {
		return func(string) (string, bool) { return "", false }
	}
	return store.Lookup()
}
