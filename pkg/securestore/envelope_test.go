package securestore

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/device-trust/pkg/errors"
)

func TestEnvelope_SealOpen(t *testing.T) {
	plaintext := []byte(`{"token":"opaque-device-token"}`)

	sealed, err := SealValue("correct horse", plaintext)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "opaque-device-token")

	opened, err := OpenValue("correct horse", sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestEnvelope_WrongSecret(t *testing.T) {
	sealed, err := SealValue("secret-one", []byte(`"value"`))
	require.NoError(t, err)

	_, err = OpenValue("secret-two", sealed)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDecryptionFailed))
}

func TestEnvelope_Tampered(t *testing.T) {
	sealed, err := SealValue("secret", []byte(`"value"`))
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(sealed, &env))
	env.Ciphertext[0] ^= 0xff
	tampered, err := json.Marshal(env)
	require.NoError(t, err)

	_, err = OpenValue("secret", tampered)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDecryptionFailed))
}

func TestEnvelope_Malformed(t *testing.T) {
	_, err := OpenValue("secret", []byte(`not an envelope`))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidFormat))
}

func TestEnvelope_UnsupportedVersion(t *testing.T) {
	sealed, err := SealValue("secret", []byte(`"value"`))
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(sealed, &env))
	env.Version = 99
	bumped, err := json.Marshal(env)
	require.NoError(t, err)

	_, err = OpenValue("secret", bumped)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidFormat))
}
