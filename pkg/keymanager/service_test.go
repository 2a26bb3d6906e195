package keymanager

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/device-trust/pkg/errors"
	"github.com/tendant/device-trust/pkg/securestore"
)

func setupKeyService(t *testing.T) (*Service, *securestore.Store) {
	store := securestore.New(securestore.NewInMemEntryRepository())
	t.Cleanup(store.Close)

	service := NewService(store, WithKeyBits(2048))
	return service, store
}

func TestEnsureKeyPair_GeneratesAndPersists(t *testing.T) {
	service, store := setupKeyService(t)
	ctx := context.Background()

	pair, err := service.EnsureKeyPair(ctx)
	require.NoError(t, err)
	assert.True(t, pair.IsWellFormed())
	assert.Contains(t, pair.PublicKeyPEM, "PUBLIC KEY")
	assert.Contains(t, pair.PrivateKeyPEM, "RSA PRIVATE KEY")

	stored, ok := securestore.GetJSON[KeyPair](ctx, store, StoreKey)
	require.True(t, ok)
	assert.Equal(t, pair, stored)
}

func TestEnsureKeyPair_Idempotent(t *testing.T) {
	service, _ := setupKeyService(t)
	ctx := context.Background()

	first, err := service.EnsureKeyPair(ctx)
	require.NoError(t, err)
	second, err := service.EnsureKeyPair(ctx)
	require.NoError(t, err)

	// The persisted pair is reused, not regenerated
	assert.Equal(t, first.PublicKeyPEM, second.PublicKeyPEM)
	assert.Equal(t, first.PrivateKeyPEM, second.PrivateKeyPEM)
}

func TestEnsureKeyPair_RegeneratesMalformed(t *testing.T) {
	service, store := setupKeyService(t)
	ctx := context.Background()

	require.NoError(t, securestore.SetJSON(ctx, store, StoreKey, KeyPair{
		PublicKeyPEM:  "not a key",
		PrivateKeyPEM: "not a key",
	}))

	pair, err := service.EnsureKeyPair(ctx)
	require.NoError(t, err)
	assert.True(t, pair.IsWellFormed())
	assert.NotEqual(t, "not a key", pair.PublicKeyPEM)
}

func TestClear_NewPairAfterwards(t *testing.T) {
	service, _ := setupKeyService(t)
	ctx := context.Background()

	first, err := service.EnsureKeyPair(ctx)
	require.NoError(t, err)

	service.Clear(ctx)

	second, err := service.EnsureKeyPair(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.PublicKeyPEM, second.PublicKeyPEM)
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	service, _ := setupKeyService(t)
	ctx := context.Background()

	pair, err := service.EnsureKeyPair(ctx)
	require.NoError(t, err)

	// Encrypting for the device's own public key round-trips through
	// DecryptWithOwn
	ciphertext, err := service.EncryptFor("DVC-7781-XYZ", pair.PublicKeyPEM)
	require.NoError(t, err)
	assert.NotEqual(t, "DVC-7781-XYZ", ciphertext)

	plaintext, err := service.DecryptWithOwn(ctx, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "DVC-7781-XYZ", plaintext)
}

func TestEncryptFor_MalformedRecipient(t *testing.T) {
	service, _ := setupKeyService(t)

	_, err := service.EncryptFor("payload", "garbage")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeKeyMalformed))
}

func TestDecryptWithOwn_Errors(t *testing.T) {
	service, _ := setupKeyService(t)
	ctx := context.Background()

	t.Run("no key pair", func(t *testing.T) {
		_, err := service.DecryptWithOwn(ctx, "AAAA")
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeKeyMalformed))
	})

	t.Run("malformed encoding", func(t *testing.T) {
		_, err := service.EnsureKeyPair(ctx)
		require.NoError(t, err)

		_, err = service.DecryptWithOwn(ctx, "%%% not base64 %%%")
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeDecryptionFailed))
	})

	t.Run("wrong key", func(t *testing.T) {
		_, err := service.EnsureKeyPair(ctx)
		require.NoError(t, err)

		// Ciphertext produced for a different recipient
		other, _ := setupKeyService(t)
		otherPair, err := other.EnsureKeyPair(ctx)
		require.NoError(t, err)

		foreign, err := service.EncryptFor("payload", otherPair.PublicKeyPEM)
		require.NoError(t, err)

		_, err = service.DecryptWithOwn(ctx, foreign)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeDecryptionFailed))
	})
}

func TestKeyPair_Fingerprint(t *testing.T) {
	service, _ := setupKeyService(t)
	ctx := context.Background()

	pair, err := service.EnsureKeyPair(ctx)
	require.NoError(t, err)

	first, err := pair.Fingerprint()
	require.NoError(t, err)
	second, err := pair.Fingerprint()
	require.NoError(t, err)

	assert.Len(t, first, 64)
	assert.Equal(t, first, second)
}

func TestParsePublicKey(t *testing.T) {
	service, _ := setupKeyService(t)
	pair, err := service.EnsureKeyPair(context.Background())
	require.NoError(t, err)

	key, err := ParsePublicKey(pair.PublicKeyPEM)
	require.NoError(t, err)
	assert.NotNil(t, key)

	_, err = ParsePublicKey("-----BEGIN PUBLIC KEY-----\ninvalid\n-----END PUBLIC KEY-----")
	assert.Error(t, err)
}
