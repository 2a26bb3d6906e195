package securestore

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Options controls how a single key is validated, protected and persisted.
// Configure is called once per key by the composition root.
type Options struct {
	// Default is returned by Get when no valid value is stored
	Default []byte

	// Expiry is the sliding lifetime of the entry. Zero falls back to the
	// repository default.
	Expiry time.Duration

	// RefreshLead re-persists the value this long before expiry, sliding
	// the absolute expiry forward while the value remains present.
	// Requires Expiry to be set.
	RefreshLead time.Duration

	// Secret enables envelope encryption of the persisted value
	Secret string

	// Scope tags the entry for the persistence backend
	Scope string

	// SchemaVersion is the current schema of the serialized value.
	// Stored entries with an older version are passed through Migrate.
	SchemaVersion int

	// Migrate upgrades a value from an older schema version.
	// A stored version mismatch without a migrator resolves to Default.
	Migrate func(old []byte, fromVersion int) ([]byte, error)

	// Validate rejects malformed values. Applied on every read and write;
	// a failing value is never returned to a caller and never overwrites
	// a previously stored value.
	Validate func(value []byte) error

	// Sanitize normalizes a value before persistence
	Sanitize func(value []byte) []byte
}

// Listener receives change notifications for a subscribed key.
// value is nil when the entry was deleted.
type Listener func(key string, value []byte)

// Store is an encrypted, validated, cross-context key-value store.
// Reads never fail: missing, malformed, undecryptable or invalid data
// resolves to the configured default. Writes validate, sanitize, encrypt,
// persist and broadcast; a backend failure degrades the value to an
// in-memory overlay for the current context instead of surfacing.
type Store struct {
	id        string
	repo      EntryRepository
	broadcast Broadcast
	unsub     func()

	mutex        sync.Mutex
	options      map[string]Options
	overlay      map[string][]byte
	versions     map[string]int64
	timers       map[string]*time.Timer
	listeners    map[string]map[int]Listener
	nextListener int
	closed       bool
}

// StoreOption configures a Store at construction
type StoreOption func(*Store)

// WithBroadcast attaches a cross-context change notification channel
func WithBroadcast(b Broadcast) StoreOption {
	return func(s *Store) {
		s.broadcast = b
	}
}

// New creates a secure store over the given repository
func New(repo EntryRepository, opts ...StoreOption) *Store {
	s := &Store{
		id:        uuid.New().String(),
		repo:      repo,
		broadcast: NoopBroadcast{},
		options:   make(map[string]Options),
		overlay:   make(map[string][]byte),
		versions:  make(map[string]int64),
		timers:    make(map[string]*time.Timer),
		listeners: make(map[string]map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.unsub = s.broadcast.Subscribe(s.onChange)
	return s
}

// Configure registers per-key options. Must be called before the key is used.
func (s *Store) Configure(key string, options Options) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.options[key] = options
}

// Get returns the stored value for a key, or the configured default.
// It never fails: a missing entry, malformed payload, failed decryption,
// schema mismatch or validation failure all resolve to the default.
func (s *Store) Get(ctx context.Context, key string) []byte {
	s.mutex.Lock()
	opts := s.options[key]
	if value, ok := s.overlay[key]; ok {
		s.mutex.Unlock()
		return cloneValue(value)
	}
	s.mutex.Unlock()

	entry, err := s.repo.GetEntry(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrEntryNotFound) {
			slog.Warn("Failed to read entry, returning default", "key", key, "error", err)
		}
		return cloneValue(opts.Default)
	}

	if entry.IsExpired() {
		slog.Debug("Entry expired, returning default", "key", key)
		return cloneValue(opts.Default)
	}

	value := entry.Value
	if entry.Encrypted {
		if opts.Secret == "" {
			slog.Warn("Encrypted entry without configured secret, returning default", "key", key)
			return cloneValue(opts.Default)
		}
		value, err = OpenValue(opts.Secret, value)
		if err != nil {
			slog.Warn("Failed to decrypt entry, returning default", "key", key, "error", err)
			return cloneValue(opts.Default)
		}
	}

	if entry.SchemaVersion != opts.SchemaVersion {
		if entry.SchemaVersion > opts.SchemaVersion || opts.Migrate == nil {
			slog.Warn("Entry schema mismatch, returning default",
				"key", key,
				"stored", entry.SchemaVersion,
				"expected", opts.SchemaVersion)
			return cloneValue(opts.Default)
		}
		value, err = opts.Migrate(value, entry.SchemaVersion)
		if err != nil {
			slog.Warn("Entry migration failed, returning default", "key", key, "error", err)
			return cloneValue(opts.Default)
		}
	}

	if opts.Validate != nil {
		if err := opts.Validate(value); err != nil {
			slog.Warn("Entry failed validation, returning default", "key", key, "error", err)
			return cloneValue(opts.Default)
		}
	}

	return cloneValue(value)
}

// Set validates, sanitizes, optionally encrypts, persists and broadcasts
// a value. A nil value deletes the entry. A validation failure keeps the
// previous value silently; a backend failure degrades the value to an
// in-memory overlay for this context.
func (s *Store) Set(ctx context.Context, key string, value []byte) {
	s.mutex.Lock()
	change, ok := s.setLocked(ctx, key, value)
	s.mutex.Unlock()

	if ok {
		s.broadcast.Publish(change)
	}
}

// Update applies an updater function to the current value and persists the
// result. Preferred over Set for read-modify-write cycles: the read and
// write happen under the store's writer lock, narrowing the lost-update
// window across concurrent writers.
func (s *Store) Update(ctx context.Context, key string, update func(prev []byte) []byte) {
	s.mutex.Lock()
	prev := s.readLocked(ctx, key)
	change, ok := s.setLocked(ctx, key, update(prev))
	s.mutex.Unlock()

	if ok {
		s.broadcast.Publish(change)
	}
}

// Delete removes the entry for a key. Equivalent to Set(ctx, key, nil).
func (s *Store) Delete(ctx context.Context, key string) {
	s.Set(ctx, key, nil)
}

// Subscribe registers a listener for cross-context changes to a key.
// The returned function cancels the subscription. A write made through
// this store does not re-trigger this store's own listeners.
func (s *Store) Subscribe(key string, listener Listener) func() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.listeners[key] == nil {
		s.listeners[key] = make(map[int]Listener)
	}
	id := s.nextListener
	s.nextListener++
	s.listeners[key][id] = listener

	return func() {
		s.mutex.Lock()
		defer s.mutex.Unlock()
		delete(s.listeners[key], id)
	}
}

// Close stops refresh timers and detaches from the broadcast channel
func (s *Store) Close() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for key, timer := range s.timers {
		timer.Stop()
		delete(s.timers, key)
	}
	if s.unsub != nil {
		s.unsub()
	}
}

// setLocked runs the write pipeline and returns the change to publish.
// Caller holds s.mutex and must publish only after releasing it: a
// receiving store takes its own mutex in onChange, so publishing under
// the lock deadlocks concurrent writers sharing one broadcast.
func (s *Store) setLocked(ctx context.Context, key string, value []byte) (Change, bool) {
	opts := s.options[key]

	// Writing nil deletes the entry instead
	if value == nil {
		return s.deleteLocked(ctx, key), true
	}

	if opts.Validate != nil {
		if err := opts.Validate(value); err != nil {
			// Reject silently, keep the previous value
			slog.Warn("Rejected invalid value", "key", key, "error", err)
			return Change{}, false
		}
	}

	if opts.Sanitize != nil {
		value = opts.Sanitize(value)
	}

	stored := value
	encrypted := false
	if opts.Secret != "" {
		sealed, err := SealValue(opts.Secret, value)
		if err != nil {
			slog.Error("Failed to encrypt value, keeping previous", "key", key, "error", err)
			return Change{}, false
		}
		stored = sealed
		encrypted = true
	}

	version := s.versions[key] + 1
	entry := Entry{
		Key:           key,
		Value:         stored,
		Encrypted:     encrypted,
		SchemaVersion: opts.SchemaVersion,
		ChangeVersion: version,
		Scope:         opts.Scope,
	}
	if opts.Expiry > 0 {
		entry.ExpiresAt = time.Now().UTC().Add(opts.Expiry)
	}

	if _, err := s.repo.PutEntry(ctx, entry); err != nil {
		// Backend failure degrades to an in-memory value for this context
		slog.Warn("Backend write failed, degrading to in-memory value", "key", key, "error", err)
		s.overlay[key] = cloneValue(value)
	} else {
		delete(s.overlay, key)
	}
	s.versions[key] = version

	s.scheduleRefreshLocked(key, opts)

	return Change{
		Key:           key,
		Value:         cloneValue(value),
		ChangeVersion: version,
		Origin:        s.id,
	}, true
}

// deleteLocked removes the entry, stops its refresh timer and returns the
// deletion change to publish. Caller holds s.mutex.
func (s *Store) deleteLocked(ctx context.Context, key string) Change {
	if timer, ok := s.timers[key]; ok {
		timer.Stop()
		delete(s.timers, key)
	}
	delete(s.overlay, key)

	if err := s.repo.DeleteEntry(ctx, key); err != nil && !errors.Is(err, ErrEntryNotFound) {
		slog.Warn("Failed to delete entry", "key", key, "error", err)
	}

	version := s.versions[key] + 1
	s.versions[key] = version

	return Change{
		Key:           key,
		ChangeVersion: version,
		Deleted:       true,
		Origin:        s.id,
	}
}

// readLocked is the Get pipeline without locking, for use under s.mutex
func (s *Store) readLocked(ctx context.Context, key string) []byte {
	if value, ok := s.overlay[key]; ok {
		return cloneValue(value)
	}
	s.mutex.Unlock()
	defer s.mutex.Lock()
	return s.Get(ctx, key)
}

// scheduleRefreshLocked arms the auto-refresh timer at expiry minus lead.
// Caller holds s.mutex.
func (s *Store) scheduleRefreshLocked(key string, opts Options) {
	if timer, ok := s.timers[key]; ok {
		timer.Stop()
		delete(s.timers, key)
	}
	if s.closed || opts.Expiry <= 0 || opts.RefreshLead <= 0 || opts.RefreshLead >= opts.Expiry {
		return
	}

	s.timers[key] = time.AfterFunc(opts.Expiry-opts.RefreshLead, func() {
		s.refresh(key)
	})
}

// refresh re-persists the current value, sliding the absolute expiry
// forward. The timer chain stops once the value is cleared.
func (s *Store) refresh(key string) {
	ctx := context.Background()

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return
	}
	opts := s.options[key]

	entry, err := s.repo.GetEntry(ctx, key)
	if err != nil {
		slog.Debug("Refresh stopped, entry no longer present", "key", key)
		return
	}

	entry.ExpiresAt = time.Now().UTC().Add(opts.Expiry)
	if _, err := s.repo.PutEntry(ctx, entry); err != nil {
		slog.Warn("Failed to refresh entry", "key", key, "error", err)
	}

	s.scheduleRefreshLocked(key, opts)
}

// onChange handles an incoming broadcast. The store suppresses exactly one
// self-echo per write by dropping changes carrying its own origin id.
func (s *Store) onChange(change Change) {
	if change.Origin == s.id {
		return
	}

	s.mutex.Lock()
	handlers := make([]Listener, 0, len(s.listeners[change.Key]))
	for _, listener := range s.listeners[change.Key] {
		handlers = append(handlers, listener)
	}
	s.mutex.Unlock()

	var value []byte
	if !change.Deleted {
		value = cloneValue(change.Value)
	}
	for _, listener := range handlers {
		listener(change.Key, value)
	}
}

func cloneValue(value []byte) []byte {
	if value == nil {
		return nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out
}
