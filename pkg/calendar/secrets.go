package calendar

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringService is the service name entries are stored under in the OS
// keyring.
const KeyringService = "meetalert"

// ErrSecretNotFound is returned when no secret is stored for a key.
var ErrSecretNotFound = errors.New("secret not found")

// Secrets stores credentials outside the config file.
type Secrets interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// KeyringSecrets keeps secrets in the OS keyring.
type KeyringSecrets struct{}

func (KeyringSecrets) Get(key string) (string, error) {
	v, err := keyring.Get(KeyringService, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrSecretNotFound
	}
	if err != nil {
		return "", fmt.Errorf("keyring get %s: %w", key, err)
	}
	return v, nil
}

func (KeyringSecrets) Set(key, value string) error {
	if err := keyring.Set(KeyringService, key, value); err != nil {
		return fmt.Errorf("keyring set %s: %w", key, err)
	}
	return nil
}

// PasswordKey is the keyring key of a CalDAV source password.
func PasswordKey(sourceID string) string {
	return "caldav-password:" + sourceID
}

// TokenKey is the keyring key of a Google OAuth token.
func TokenKey(sourceID string) string {
	return "google-token:" + sourceID
}
