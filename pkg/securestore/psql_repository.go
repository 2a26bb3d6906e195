package securestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresEntryRepository implements EntryRepository using PostgreSQL
type PostgresEntryRepository struct {
	db      DBTX
	options EntryRepositoryOptions
}

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// NewPostgresEntryRepository creates a new PostgreSQL entry repository
func NewPostgresEntryRepository(db DBTX) *PostgresEntryRepository {
	return NewPostgresEntryRepositoryWithOptions(db, DefaultEntryRepositoryOptions())
}

// NewPostgresEntryRepositoryWithOptions creates a new PostgreSQL entry repository with custom options
func NewPostgresEntryRepositoryWithOptions(db DBTX, options EntryRepositoryOptions) *PostgresEntryRepository {
	return &PostgresEntryRepository{
		db:      db,
		options: options,
	}
}

// PutEntry creates or replaces the entry for a key
func (r *PostgresEntryRepository) PutEntry(ctx context.Context, entry Entry) (Entry, error) {
	now := time.Now().UTC()
	if entry.ExpiresAt.IsZero() && r.options.DefaultExpiry > 0 {
		entry.ExpiresAt = now.Add(r.options.DefaultExpiry)
	}

	query := `
		INSERT INTO secure_entry (
			key, value, encrypted, schema_version, change_version, scope, expires_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $8
		)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			encrypted = EXCLUDED.encrypted,
			schema_version = EXCLUDED.schema_version,
			change_version = EXCLUDED.change_version,
			scope = EXCLUDED.scope,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
		RETURNING key, value, encrypted, schema_version, change_version, scope, expires_at, created_at, updated_at
	`

	row := r.db.QueryRow(ctx, query,
		entry.Key,
		entry.Value,
		entry.Encrypted,
		entry.SchemaVersion,
		entry.ChangeVersion,
		entry.Scope,
		entry.ExpiresAt,
		now,
	)

	result, err := scanEntry(row)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to upsert entry: %w", err)
	}

	return result, nil
}

// GetEntry retrieves the entry for a key
func (r *PostgresEntryRepository) GetEntry(ctx context.Context, key string) (Entry, error) {
	query := `
		SELECT key, value, encrypted, schema_version, change_version, scope, expires_at, created_at, updated_at
		FROM secure_entry
		WHERE key = $1
	`

	row := r.db.QueryRow(ctx, query, key)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrEntryNotFound
		}
		return Entry{}, fmt.Errorf("failed to get entry: %w", err)
	}

	return entry, nil
}

// DeleteEntry removes the entry for a key
func (r *PostgresEntryRepository) DeleteEntry(ctx context.Context, key string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM secure_entry WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// ListEntries returns all stored entries
func (r *PostgresEntryRepository) ListEntries(ctx context.Context) ([]Entry, error) {
	query := `
		SELECT key, value, encrypted, schema_version, change_version, scope, expires_at, created_at, updated_at
		FROM secure_entry
		ORDER BY key
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// WithTx returns a new repository with the given transaction
func (r *PostgresEntryRepository) WithTx(tx interface{}) EntryRepository {
	if dbtx, ok := tx.(DBTX); ok {
		return &PostgresEntryRepository{
			db:      dbtx,
			options: r.options,
		}
	}
	return r
}

// scanEntry scans a single entry row
func scanEntry(row pgx.Row) (Entry, error) {
	var entry Entry
	var scope sql.NullString
	var expiresAt sql.NullTime

	err := row.Scan(
		&entry.Key,
		&entry.Value,
		&entry.Encrypted,
		&entry.SchemaVersion,
		&entry.ChangeVersion,
		&scope,
		&expiresAt,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return Entry{}, err
	}

	if scope.Valid {
		entry.Scope = scope.String
	}
	if expiresAt.Valid {
		entry.ExpiresAt = expiresAt.Time
	}

	return entry, nil
}
