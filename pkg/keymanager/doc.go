// Package keymanager owns the device's asymmetric key pair.
//
// The pair is RSA (default 2048 bits), generated at most once per device
// and persisted encrypted through the secure store; the private half never
// leaves the device. EncryptFor and DecryptWithOwn are the RSA-OAEP
// primitives the handshake uses to exchange opaque tokens with the server.
//
//	keys := keymanager.NewService(store)
//	pair, err := keys.EnsureKeyPair(ctx) // idempotent
//
//	ciphertext, err := keys.EncryptFor(token, serverPublicKeyPEM)
//	plaintext, err := keys.DecryptWithOwn(ctx, ciphertext)
package keymanager
