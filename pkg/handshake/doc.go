// Package handshake runs the device-trust protocol: a two-round-trip
// exchange that turns the device's public key and descriptor into a
// server-issued Device Identity.
//
// # Protocol
//
// The machine moves Idle → AwaitingServerHello → AwaitingCompletion →
// Registered | Failed:
//
//  1. initiate-handshake sends the device public key; the server hello
//     carries {sessionId, serverPublicKey, nextStep}. The server key is
//     persisted immediately. If nextStep does not request completion the
//     machine parks in AwaitingServerHello.
//  2. complete-handshake sends the session id, the device public key, an
//     opaque device token encrypted under the server's key, and device
//     metadata (descriptor, push routing id, fingerprint digest, locale).
//     The response carries the Device Identity encrypted under the
//     device's own public key; only a successful local decryption
//     persists it and moves the machine to Registered. A decryption
//     failure leaves any previously stored identity untouched.
//
// Failures surface to the caller; retry is an explicit caller action.
// A monotonic attempt id discards responses of superseded attempts.
//
// # Usage
//
//	store := securestore.New(repo)
//	handshake.ConfigureStore(store, secret)
//	keys := keymanager.NewService(store)
//	collector := devicefp.NewCollector(source)
//
//	client := handshake.NewClient(store, keys, collector,
//		handshake.NewHTTPTransport(serverURL),
//		handshake.WithPushProvider(push),
//		handshake.OnTakingLong(func() { ui.ShowSpinnerHint() }),
//	)
//
//	if err := client.Start(ctx); err != nil {
//		// transport errors are user-retryable via client.Retry
//	}
//	identity, ok := client.Identity(ctx)
package handshake
