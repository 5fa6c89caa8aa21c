package secret

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

const (
	keychainService = "blockpad"
	// security(1) exits with 44 when no matching item exists.
	keychainItemNotFound = 44
)

// KeychainStore keeps secrets in the macOS login keychain through the
// security(1) tool. On systems without it every key reads as absent.
type KeychainStore struct {
	Binary  string // default "security"
	Service string // default "blockpad"
}

func NewKeychainStore() *KeychainStore {
	return &KeychainStore{Binary: "security", Service: keychainService}
}

func (k *KeychainStore) run(verb, key string, extra ...string) ([]byte, error) {
	bin, service := k.Binary, k.Service
	if bin == "" {
		bin = "security"
	}
	if service == "" {
		service = keychainService
	}
	args := append([]string{verb, "-a", key, "-s", service}, extra...)
	return exec.Command(bin, args...).Output()
}

func missingItem(err error) bool {
	if errors.Is(err, exec.ErrNotFound) {
		return true
	}
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == keychainItemNotFound
}

// Set adds or replaces the secret for key.
func (k *KeychainStore) Set(key string, value []byte) error {
	_, err := k.run("add-generic-password", key, "-w", string(value), "-U")
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return fmt.Errorf("keychain set %s: %s: %w", key, strings.TrimSpace(string(exitErr.Stderr)), err)
		}
		return fmt.Errorf("keychain set %s: %w", key, err)
	}
	return nil
}

// Get returns nil, nil when the key is absent or the keychain is unavailable.
func (k *KeychainStore) Get(key string) ([]byte, error) {
	out, err := k.run("find-generic-password", key, "-w")
	if err != nil {
		if missingItem(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("keychain get %s: %w", key, err)
	}
	return []byte(strings.TrimRight(string(out), "\r\n")), nil
}

// Delete is a no-op for absent keys.
func (k *KeychainStore) Delete(key string) error {
	if _, err := k.run("delete-generic-password", key); err != nil && !missingItem(err) {
		return fmt.Errorf("keychain delete %s: %w", key, err)
	}
	return nil
}
