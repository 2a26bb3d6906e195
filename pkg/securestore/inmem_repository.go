package securestore

import (
	"context"
	"sync"
	"time"
)

// InMemEntryRepository implements EntryRepository using in-memory storage
type InMemEntryRepository struct {
	entries map[string]*Entry
	options EntryRepositoryOptions
	mutex   sync.RWMutex
}

// NewInMemEntryRepository creates a new in-memory entry repository
func NewInMemEntryRepository() *InMemEntryRepository {
	return NewInMemEntryRepositoryWithOptions(DefaultEntryRepositoryOptions())
}

// NewInMemEntryRepositoryWithOptions creates a new in-memory entry repository with custom options
func NewInMemEntryRepositoryWithOptions(options EntryRepositoryOptions) *InMemEntryRepository {
	return &InMemEntryRepository{
		entries: make(map[string]*Entry),
		options: options,
	}
}

// PutEntry creates or replaces the entry for a key
func (r *InMemEntryRepository) PutEntry(ctx context.Context, entry Entry) (Entry, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := time.Now().UTC()
	if existing, exists := r.entries[entry.Key]; exists {
		entry.CreatedAt = existing.CreatedAt
	} else {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	if entry.ExpiresAt.IsZero() && r.options.DefaultExpiry > 0 {
		entry.ExpiresAt = now.Add(r.options.DefaultExpiry)
	}

	entryCopy := entry
	r.entries[entry.Key] = &entryCopy

	return entry, nil
}

// GetEntry retrieves the entry for a key
func (r *InMemEntryRepository) GetEntry(ctx context.Context, key string) (Entry, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	entry, exists := r.entries[key]
	if !exists {
		return Entry{}, ErrEntryNotFound
	}

	return *entry, nil
}

// DeleteEntry removes the entry for a key
func (r *InMemEntryRepository) DeleteEntry(ctx context.Context, key string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.entries[key]; !exists {
		return ErrEntryNotFound
	}

	delete(r.entries, key)
	return nil
}

// ListEntries returns all stored entries
func (r *InMemEntryRepository) ListEntries(ctx context.Context) ([]Entry, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	entries := make([]Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, *entry)
	}

	return entries, nil
}

// WithTx returns a new repository with the given transaction
// In-memory implementation doesn't support transactions, returns self
func (r *InMemEntryRepository) WithTx(tx interface{}) EntryRepository {
	return r
}
