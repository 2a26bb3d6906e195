package securestore

import (
	"fmt"
)

// RepositoryConfig contains configuration for creating an entry repository
type RepositoryConfig struct {
	// DB is required for PostgreSQL repositories (DBTX interface)
	DB DBTX
	// DataDir is required for file-based repositories
	DataDir string
	// Options for entry repository (default expiry, etc.)
	// If not provided, DefaultEntryRepositoryOptions() will be used
	Options *EntryRepositoryOptions
}

// NewEntryRepository creates a new entry repository based on the persistence type
func NewEntryRepository(persistenceType string, config RepositoryConfig) (EntryRepository, error) {
	// Get options or use defaults
	options := DefaultEntryRepositoryOptions()
	if config.Options != nil {
		options = *config.Options
	}

	switch persistenceType {
	case "postgres", "postgresql":
		if config.DB == nil {
			return nil, fmt.Errorf("db required for postgres repository")
		}
		return NewPostgresEntryRepositoryWithOptions(config.DB, options), nil
	case "file":
		if config.DataDir == "" {
			return nil, fmt.Errorf("dataDir required for file repository")
		}
		return NewFileEntryRepository(config.DataDir, options)
	case "memory", "inmem":
		return NewInMemEntryRepositoryWithOptions(options), nil
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s (supported: postgres, file, memory)", persistenceType)
	}
}
