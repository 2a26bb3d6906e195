// Package securestore provides encrypted, validated, cross-context
// key-value persistence with expiry and refresh.
//
// The store is the persistence primitive the device-trust handshake rides
// on. Every read is validated before it reaches a caller and never fails:
// missing, malformed, undecryptable or invalid data resolves to the
// configured default. Every write runs a validate → sanitize → encrypt →
// persist → broadcast pipeline.
//
// # Basic Usage
//
//	import "github.com/tendant/device-trust/pkg/securestore"
//
//	repo, err := securestore.NewFileEntryRepository(dataDir,
//		securestore.DefaultEntryRepositoryOptions())
//	store := securestore.New(repo,
//		securestore.WithBroadcast(securestore.NewLocalBroadcast()))
//
//	store.Configure("device.identity", securestore.Options{
//		Secret: secret,
//		Expiry: 365 * 24 * time.Hour,
//		Validate: func(v []byte) error {
//			if len(v) == 0 {
//				return fmt.Errorf("empty identity")
//			}
//			return nil
//		},
//	})
//
//	store.Set(ctx, "device.identity", []byte(`"DVC-7781-XYZ"`))
//	value := store.Get(ctx, "device.identity") // never fails
//
// # Concurrent Writers
//
// The store tolerates multiple writers across execution contexts with
// last-writer-wins semantics; the broadcast channel is the synchronization
// primitive, not a lock. Use Update for read-modify-write cycles:
//
//	store.Update(ctx, "device.counter", func(prev []byte) []byte {
//		return bump(prev)
//	})
//
// A writer's own write never re-triggers its own listeners; the store
// suppresses exactly one self-echo per write.
//
// # Backends
//
// Repositories come in memory, file and postgres flavors behind
// NewEntryRepository. A backend write failure degrades the value to an
// in-memory overlay for the current context instead of surfacing.
package securestore
