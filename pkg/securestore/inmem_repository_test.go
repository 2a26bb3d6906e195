package securestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemEntryRepository_PutGet(t *testing.T) {
	repo := NewInMemEntryRepository()
	ctx := context.Background()

	saved, err := repo.PutEntry(ctx, Entry{Key: "k", Value: []byte(`"v"`), Scope: "test"})
	require.NoError(t, err)
	assert.False(t, saved.CreatedAt.IsZero())

	got, err := repo.GetEntry(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte(`"v"`), got.Value)
	assert.Equal(t, "test", got.Scope)
}

func TestInMemEntryRepository_NotFound(t *testing.T) {
	repo := NewInMemEntryRepository()

	_, err := repo.GetEntry(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrEntryNotFound)
	assert.ErrorIs(t, repo.DeleteEntry(context.Background(), "missing"), ErrEntryNotFound)
}

func TestInMemEntryRepository_DefaultExpiry(t *testing.T) {
	repo := NewInMemEntryRepositoryWithOptions(EntryRepositoryOptions{
		DefaultExpiry: time.Hour,
	})
	ctx := context.Background()

	saved, err := repo.PutEntry(ctx, Entry{Key: "k", Value: []byte(`1`)})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC().Add(time.Hour), saved.ExpiresAt, 5*time.Second)

	// Explicit expiry is preserved
	explicit := time.Now().UTC().Add(10 * time.Minute)
	saved, err = repo.PutEntry(ctx, Entry{Key: "k2", Value: []byte(`1`), ExpiresAt: explicit})
	require.NoError(t, err)
	assert.Equal(t, explicit, saved.ExpiresAt)
}

func TestInMemEntryRepository_List(t *testing.T) {
	repo := NewInMemEntryRepository()
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		_, err := repo.PutEntry(ctx, Entry{Key: key, Value: []byte(`1`)})
		require.NoError(t, err)
	}

	entries, err := repo.ListEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestEntry_IsExpired(t *testing.T) {
	assert.False(t, (&Entry{}).IsExpired())
	assert.False(t, (&Entry{ExpiresAt: time.Now().UTC().Add(time.Minute)}).IsExpired())
	assert.True(t, (&Entry{ExpiresAt: time.Now().UTC().Add(-time.Minute)}).IsExpired())
}
