package securestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileEntryRepository implements EntryRepository using file-based storage
type FileEntryRepository struct {
	dataDir string
	entries map[string]*Entry
	options EntryRepositoryOptions
	mutex   sync.RWMutex
}

// entryData represents the structure of data stored in the JSON file
type entryData struct {
	Entries []*Entry `json:"entries"`
}

// NewFileEntryRepository creates a new file-based entry repository
func NewFileEntryRepository(dataDir string, options EntryRepositoryOptions) (*FileEntryRepository, error) {
	// Create data directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	repo := &FileEntryRepository{
		dataDir: dataDir,
		entries: make(map[string]*Entry),
		options: options,
	}

	// Load existing data
	if err := repo.load(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	return repo, nil
}

// PutEntry creates or replaces the entry for a key
func (r *FileEntryRepository) PutEntry(ctx context.Context, entry Entry) (Entry, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := time.Now().UTC()
	previous, exists := r.entries[entry.Key]
	if exists {
		entry.CreatedAt = previous.CreatedAt
	} else {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	if entry.ExpiresAt.IsZero() && r.options.DefaultExpiry > 0 {
		entry.ExpiresAt = now.Add(r.options.DefaultExpiry)
	}

	entryCopy := entry
	r.entries[entry.Key] = &entryCopy

	if err := r.save(); err != nil {
		if exists {
			r.entries[entry.Key] = previous
		} else {
			delete(r.entries, entry.Key)
		}
		return Entry{}, fmt.Errorf("failed to save: %w", err)
	}

	return entry, nil
}

// GetEntry retrieves the entry for a key
func (r *FileEntryRepository) GetEntry(ctx context.Context, key string) (Entry, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	entry, exists := r.entries[key]
	if !exists {
		return Entry{}, ErrEntryNotFound
	}

	return *entry, nil
}

// DeleteEntry removes the entry for a key
func (r *FileEntryRepository) DeleteEntry(ctx context.Context, key string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.entries[key]; !exists {
		return ErrEntryNotFound
	}

	delete(r.entries, key)
	return r.save()
}

// ListEntries returns all stored entries
func (r *FileEntryRepository) ListEntries(ctx context.Context) ([]Entry, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	entries := make([]Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, *entry)
	}

	return entries, nil
}

// WithTx returns a new repository with the given transaction
// File-based implementation doesn't support transactions, returns self
func (r *FileEntryRepository) WithTx(tx interface{}) EntryRepository {
	return r
}

// load reads entry data from file
func (r *FileEntryRepository) load() error {
	filePath := filepath.Join(r.dataDir, "entries.json")

	// If file doesn't exist, start with empty map
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	// If file is empty, start with empty map
	if len(data) == 0 {
		return nil
	}

	var entData entryData
	if err := json.Unmarshal(data, &entData); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}

	r.entries = make(map[string]*Entry)
	for _, entry := range entData.Entries {
		r.entries[entry.Key] = entry
	}

	return nil
}

// save writes entry data to file atomically
func (r *FileEntryRepository) save() error {
	entries := make([]*Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, entry)
	}

	data := entryData{
		Entries: entries,
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	// Write to temp file first
	tempFile := filepath.Join(r.dataDir, "entries.json.tmp")
	if err := os.WriteFile(tempFile, jsonData, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	// Atomic rename
	finalFile := filepath.Join(r.dataDir, "entries.json")
	if err := os.Rename(tempFile, finalFile); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}
