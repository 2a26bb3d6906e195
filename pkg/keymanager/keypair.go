package keymanager

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
)

// StoreKey is the secure store namespace of the persisted device key pair
const StoreKey = "device.keypair"

// KeyPair holds the device's asymmetric key material, PEM encoded.
// The private half never leaves the device.
type KeyPair struct {
	PublicKeyPEM  string `json:"public_key_pem"`
	PrivateKeyPEM string `json:"private_key_pem"`
}

// IsWellFormed checks that both halves are present and parseable
func (kp KeyPair) IsWellFormed() bool {
	if kp.PublicKeyPEM == "" || kp.PrivateKeyPEM == "" {
		return false
	}
	if _, err := ParsePublicKey(kp.PublicKeyPEM); err != nil {
		return false
	}
	if _, err := parsePrivateKey(kp.PrivateKeyPEM); err != nil {
		return false
	}
	return true
}

// Fingerprint calculates a SHA-256 fingerprint of the public key
func (kp KeyPair) Fingerprint() (string, error) {
	publicKey, err := ParsePublicKey(kp.PublicKeyPEM)
	if err != nil {
		return "", err
	}
	der, err := x509.MarshalPKIXPublicKey(publicKey)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}
	digest := sha256.Sum256(der)
	return hex.EncodeToString(digest[:]), nil
}

// encodeKeyPair converts RSA key material to the persisted PEM form
func encodeKeyPair(privateKey *rsa.PrivateKey) (KeyPair, error) {
	publicDER, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return KeyPair{}, fmt.Errorf("failed to marshal public key: %w", err)
	}

	publicPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicDER,
	})
	privatePEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})

	return KeyPair{
		PublicKeyPEM:  string(publicPEM),
		PrivateKeyPEM: string(privatePEM),
	}, nil
}

// ParsePublicKey decodes a PEM-encoded RSA public key
func ParsePublicKey(publicKeyPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		// Fall back to PKCS1 encoding
		if rsaKey, pkcs1Err := x509.ParsePKCS1PublicKey(block.Bytes); pkcs1Err == nil {
			return rsaKey, nil
		}
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	rsaKey, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA public key")
	}
	return rsaKey, nil
}

// parsePrivateKey decodes a PEM-encoded RSA private key
func parsePrivateKey(privateKeyPEM string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(privateKeyPEM))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	privateKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		// Fall back to PKCS8 encoding
		parsed, pkcs8Err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if pkcs8Err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		rsaKey, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("not an RSA private key")
		}
		return rsaKey, nil
	}
	return privateKey, nil
}
