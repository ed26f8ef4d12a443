package secrets

import (
	"testing"

	"whoshiring-engine/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestGeocoderKey(t *testing.T) {
	keyring.MockInit()
	const account = "whoshiring:geocoder:test"

	_, err := GetGeocoderKey(account)
	assert.ErrorIs(t, err, ErrNoKey)

	require.NoError(t, SetGeocoderKey(account, "  abc123 "))
	key, err := GetGeocoderKey(account)
	require.NoError(t, err)
	assert.Equal(t, "abc123", key)

	require.NoError(t, DeleteGeocoderKey(account))
	_, err = GetGeocoderKey(account)
	assert.ErrorIs(t, err, ErrNoKey)
}

func TestSetGeocoderKeyRejectsEmpty(t *testing.T) {
	keyring.MockInit()
	assert.Error(t, SetGeocoderKey("", "k"))
	assert.Error(t, SetGeocoderKey("acct", " "))
	_, err := GetGeocoderKey("")
	assert.ErrorIs(t, err, ErrNoKey)
}

func TestGeocoderKeyringAccount(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, "whoshiring:geocoder:nominatim.openstreetmap.org", GeocoderKeyringAccount(cfg))

	cfg.Geocoder.KeyringAccount = "custom"
	assert.Equal(t, "custom", GeocoderKeyringAccount(cfg))
}
