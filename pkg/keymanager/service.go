package keymanager

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"log/slog"
	"sync"

	"github.com/tendant/device-trust/pkg/errors"
	"github.com/tendant/device-trust/pkg/securestore"
)

const (
	// DefaultKeyBits is the default RSA modulus size
	DefaultKeyBits = 2048
)

// Service owns the device's asymmetric key pair and performs the
// handshake's encrypt/decrypt primitives. The pair is generated at most
// once per device and persisted through the secure store.
type Service struct {
	store   *securestore.Store
	keyBits int

	// Single-writer guard: concurrent EnsureKeyPair callers must not
	// generate duplicate pairs
	mutex sync.Mutex
}

// Option configures a Service
type Option func(*Service)

// WithKeyBits overrides the RSA modulus size (2048, 3072 or 4096)
func WithKeyBits(bits int) Option {
	return func(s *Service) {
		s.keyBits = bits
	}
}

// NewService creates a key manager over the given secure store
func NewService(store *securestore.Store, opts ...Option) *Service {
	s := &Service{
		store:   store,
		keyBits: DefaultKeyBits,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureKeyPair returns the persisted pair if shape-valid, otherwise
// generates a new pair and persists it before returning. Read-before-
// generate under the writer lock avoids duplicate pairs from concurrent
// callers.
func (s *Service) EnsureKeyPair(ctx context.Context) (KeyPair, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if pair, ok := securestore.GetJSON[KeyPair](ctx, s.store, StoreKey); ok {
		if pair.IsWellFormed() {
			return pair, nil
		}
		slog.Warn("Persisted key pair is malformed, regenerating")
	}

	slog.Info("Generating device key pair", "key_bits", s.keyBits)
	privateKey, err := rsa.GenerateKey(rand.Reader, s.keyBits)
	if err != nil {
		return KeyPair{}, errors.Wrap(err, errors.ErrCodeKeyGeneration, "failed to generate key pair")
	}

	pair, err := encodeKeyPair(privateKey)
	if err != nil {
		return KeyPair{}, errors.Wrap(err, errors.ErrCodeKeyGeneration, "failed to encode key pair")
	}

	// Persist before returning so the pair is durable by the time any
	// caller sends the public half to a server
	if err := securestore.SetJSON(ctx, s.store, StoreKey, pair); err != nil {
		return KeyPair{}, errors.InternalWrap(err, "failed to persist key pair")
	}

	fingerprint, err := pair.Fingerprint()
	if err == nil {
		slog.Info("Device key pair generated", "fingerprint", fingerprint)
	}

	return pair, nil
}

// EncryptFor asymmetrically encrypts a plaintext for the named recipient
// key, returning transport-safe base64 ciphertext
func (s *Service) EncryptFor(plaintext string, recipientPublicKeyPEM string) (string, error) {
	publicKey, err := ParsePublicKey(recipientPublicKeyPEM)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeKeyMalformed, "invalid recipient public key")
	}

	ciphertext, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, publicKey, []byte(plaintext), nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeEncryptionFailed, "failed to encrypt for recipient")
	}

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptWithOwn decrypts a base64 ciphertext with the device's private
// key. Fails with a typed crypto error on malformed ciphertext or key
// mismatch.
func (s *Service) DecryptWithOwn(ctx context.Context, ciphertext string) (string, error) {
	pair, ok := securestore.GetJSON[KeyPair](ctx, s.store, StoreKey)
	if !ok || !pair.IsWellFormed() {
		return "", errors.New(errors.ErrCodeKeyMalformed, "no device key pair available")
	}

	privateKey, err := parsePrivateKey(pair.PrivateKeyPEM)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeKeyMalformed, "failed to parse private key")
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeDecryptionFailed, "malformed ciphertext encoding")
	}

	plaintext, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, privateKey, raw, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeDecryptionFailed, "failed to decrypt with device key")
	}

	return string(plaintext), nil
}

// Clear erases the persisted pair (device reset / de-registration)
func (s *Service) Clear(ctx context.Context) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	slog.Info("Clearing device key pair")
	s.store.Delete(ctx, StoreKey)
}
