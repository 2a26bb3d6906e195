package securestore

import (
	"context"
	"errors"
	"time"
)

// ErrEntryNotFound is returned by repositories when no entry exists for a key
var ErrEntryNotFound = errors.New("entry not found")

// Entry is the persisted form of a single secure store value. Value holds
// the serialized payload, envelope-encrypted when Encrypted is set.
type Entry struct {
	Key           string    `json:"key"`
	Value         []byte    `json:"value"`
	Encrypted     bool      `json:"encrypted"`
	SchemaVersion int       `json:"schema_version"`
	ChangeVersion int64     `json:"change_version"` // Monotonic per key, drives cross-context notification
	Scope         string    `json:"scope,omitempty"`
	ExpiresAt     time.Time `json:"expires_at,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsExpired checks if the entry has passed its expiry timestamp
func (e *Entry) IsExpired() bool {
	return !e.ExpiresAt.IsZero() && time.Now().UTC().After(e.ExpiresAt)
}

// EntryRepository defines the interface for secure store persistence backends
type EntryRepository interface {
	PutEntry(ctx context.Context, entry Entry) (Entry, error)
	GetEntry(ctx context.Context, key string) (Entry, error)
	DeleteEntry(ctx context.Context, key string) error
	ListEntries(ctx context.Context) ([]Entry, error)

	// Transaction support
	WithTx(tx interface{}) EntryRepository
}

// EntryRepositoryOptions contains tunables shared by all repository backends
type EntryRepositoryOptions struct {
	// DefaultExpiry is applied to entries persisted without an explicit
	// expiry timestamp. Zero means entries do not expire.
	DefaultExpiry time.Duration
}

// DefaultEntryRepositoryOptions returns the default repository options
func DefaultEntryRepositoryOptions() EntryRepositoryOptions {
	return EntryRepositoryOptions{
		DefaultExpiry: DefaultEntryExpiry,
	}
}

const (
	// DefaultEntryExpiry is roughly one year
	DefaultEntryExpiry = 365 * 24 * time.Hour
)
