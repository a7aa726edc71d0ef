package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/haulbook/internal/store"
	"github.com/nhle/haulbook/tests/testutil"
)

func TestSQLiteStoreSetGetDelete(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	_, err := s.GetValue(ctx, "user")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.SetValue(ctx, "user", []byte(`{"access":"a"}`)))
	got, err := s.GetValue(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, `{"access":"a"}`, string(got))

	require.NoError(t, s.SetValue(ctx, "user", []byte(`{"access":"b"}`)))
	got, err = s.GetValue(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, `{"access":"b"}`, string(got))

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"user"}, keys)

	require.NoError(t, s.DeleteValue(ctx, "user"))
	_, err = s.GetValue(ctx, "user")
	require.ErrorIs(t, err, store.ErrNotFound)

	// Deleting twice is fine.
	require.NoError(t, s.DeleteValue(ctx, "user"))
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "haulbook.db")
	ctx := context.Background()

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SetValue(ctx, "user", []byte("persisted")))
	require.NoError(t, s.Close())

	reopened, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.GetValue(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, "persisted", string(got))
}
