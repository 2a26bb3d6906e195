package handshake

import (
	"fmt"

	"github.com/tendant/device-trust/pkg/keymanager"
	"github.com/tendant/device-trust/pkg/securestore"
)

// Namespaced secure store entries owned by the handshake subsystem
const (
	KeyServerKey      = "handshake.server_key"
	KeyIdentity       = "device.identity"
	KeyDeviceToken    = "device.token"
	KeyRoutingID      = "notify.routing_id"
	KeyDescriptor     = "device.descriptor"
	KeyFingerprint    = "device.fingerprint"
	KeyFingerprintRaw = "device.fingerprint_raw"
)

// ConfigureStore registers the subsystem's entries with their expiries,
// validators and, where sensitive, encryption secrets. Called once by the
// composition root before the store is used.
func ConfigureStore(store *securestore.Store, secret string) {
	store.Configure(keymanager.StoreKey, securestore.Options{
		Secret: secret,
		Scope:  "device",
		Validate: securestore.JSONValidator(func(pair keymanager.KeyPair) error {
			if pair.PublicKeyPEM == "" || pair.PrivateKeyPEM == "" {
				return fmt.Errorf("key pair half missing")
			}
			return nil
		}),
	})

	store.Configure(KeyServerKey, securestore.Options{
		Scope: "handshake",
		Validate: securestore.JSONValidator(func(key ServerPublicKey) error {
			if key.PublicKey == "" {
				return fmt.Errorf("server public key missing")
			}
			return nil
		}),
	})

	store.Configure(KeyIdentity, securestore.Options{
		Secret: secret,
		Scope:  "device",
		Validate: securestore.JSONValidator(func(id string) error {
			if id == "" {
				return fmt.Errorf("empty device identity")
			}
			return nil
		}),
	})

	store.Configure(KeyDeviceToken, securestore.Options{
		Secret: secret,
		Scope:  "device",
	})

	store.Configure(KeyRoutingID, securestore.Options{
		Scope: "notify",
	})

	store.Configure(KeyDescriptor, securestore.Options{
		Scope: "device",
	})

	store.Configure(KeyFingerprint, securestore.Options{
		Scope: "device",
	})

	store.Configure(KeyFingerprintRaw, securestore.Options{
		Scope: "device",
	})
}
