package securestore

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupPostgresRepo connects to the database named by TRUST_TEST_PG_URL.
// Skipped when the variable is unset.
func setupPostgresRepo(t *testing.T) *PostgresEntryRepository {
	url := os.Getenv("TRUST_TEST_PG_URL")
	if url == "" {
		t.Skip("TRUST_TEST_PG_URL not set, skipping postgres repository tests")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS secure_entry (
			key TEXT PRIMARY KEY,
			value BYTEA NOT NULL,
			encrypted BOOLEAN NOT NULL DEFAULT FALSE,
			schema_version INTEGER NOT NULL DEFAULT 0,
			change_version BIGINT NOT NULL DEFAULT 0,
			scope TEXT,
			expires_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `DELETE FROM secure_entry`)
	require.NoError(t, err)

	return NewPostgresEntryRepository(pool)
}

func TestPostgresEntryRepository_PutGetDelete(t *testing.T) {
	repo := setupPostgresRepo(t)
	ctx := context.Background()

	saved, err := repo.PutEntry(ctx, Entry{
		Key:           "device.identity",
		Value:         []byte(`"DVC-0001"`),
		Encrypted:     true,
		SchemaVersion: 1,
		ChangeVersion: 1,
		Scope:         "device",
	})
	require.NoError(t, err)
	assert.False(t, saved.ExpiresAt.IsZero())

	got, err := repo.GetEntry(ctx, "device.identity")
	require.NoError(t, err)
	assert.Equal(t, []byte(`"DVC-0001"`), got.Value)
	assert.True(t, got.Encrypted)
	assert.Equal(t, "device", got.Scope)

	require.NoError(t, repo.DeleteEntry(ctx, "device.identity"))
	_, err = repo.GetEntry(ctx, "device.identity")
	assert.ErrorIs(t, err, ErrEntryNotFound)
	assert.ErrorIs(t, repo.DeleteEntry(ctx, "device.identity"), ErrEntryNotFound)
}

func TestPostgresEntryRepository_Upsert(t *testing.T) {
	repo := setupPostgresRepo(t)
	ctx := context.Background()

	first, err := repo.PutEntry(ctx, Entry{Key: "k", Value: []byte(`1`), ChangeVersion: 1})
	require.NoError(t, err)

	second, err := repo.PutEntry(ctx, Entry{Key: "k", Value: []byte(`2`), ChangeVersion: 2})
	require.NoError(t, err)

	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, int64(2), second.ChangeVersion)
	assert.Equal(t, []byte(`2`), second.Value)
}

func TestPostgresEntryRepository_List(t *testing.T) {
	repo := setupPostgresRepo(t)
	ctx := context.Background()

	for _, key := range []string{"b", "a", "c"} {
		_, err := repo.PutEntry(ctx, Entry{Key: key, Value: []byte(`1`)})
		require.NoError(t, err)
	}

	entries, err := repo.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "a", entries[0].Key) // ordered by key
}
