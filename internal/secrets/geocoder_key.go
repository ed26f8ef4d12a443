// Package secrets keeps credentials in the OS keychain.
package secrets

import (
	"strings"

	"whoshiring-engine/internal/config"

	"github.com/pkg/errors"
	"github.com/zalando/go-keyring"
)

// KeyringService groups the app's secrets in the OS keychain.
const KeyringService = "whoshiring"

// ErrNoKey means no geocoder key is stored. Most geocoders work without one.
var ErrNoKey = errors.New("geocoder key not set")

func GetGeocoderKey(keyringAccount string) (string, error) {
	if strings.TrimSpace(keyringAccount) == "" {
		return "", ErrNoKey
	}
	key, err := keyring.Get(KeyringService, keyringAccount)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNoKey
	}
	if err != nil {
		return "", errors.Wrap(err, "read keychain")
	}
	if strings.TrimSpace(key) == "" {
		return "", ErrNoKey
	}
	return key, nil
}

func SetGeocoderKey(keyringAccount, key string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("key is empty")
	}
	return keyring.Set(KeyringService, keyringAccount, strings.TrimSpace(key))
}

func DeleteGeocoderKey(keyringAccount string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, keyringAccount)
}

// GeocoderKeyringAccount is the configured account, or one derived from the
// geocoder host.
func GeocoderKeyringAccount(cfg config.Config) string {
	if a := strings.TrimSpace(cfg.Geocoder.KeyringAccount); a != "" {
		return a
	}
	host := strings.TrimPrefix(strings.TrimPrefix(cfg.Geocoder.BaseURL, "https://"), "http://")
	return "whoshiring:geocoder:" + strings.TrimRight(host, "/")
}
