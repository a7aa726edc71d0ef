package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/haulbook/internal/session"
	"github.com/nhle/haulbook/internal/store"
)

// NewTestStore opens an in-memory kv store with the schema applied. The
// store is closed when the test ends.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	kv, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err, "opening test kv store")
	t.Cleanup(func() {
		assert.NoError(t, kv.Close(), "closing test kv store")
	})
	return kv
}

// NewSQLiteSessions returns a session store persisted in a fresh
// in-memory kv store, along with that kv store so a test can reopen the
// slot or inspect it directly.
func NewSQLiteSessions(t *testing.T) (*session.Store, *store.SQLiteStore) {
	t.Helper()
	kv := NewTestStore(t)
	return session.NewStore(session.NewStoreBackend(kv), nil), kv
}

// SignIn issues a session for username on the fake server and saves it
// into sessions, as a successful login would.
func (f *FakeAPI) SignIn(t *testing.T, sessions *session.Store, username string) {
	t.Helper()
	require.NoError(t, sessions.Save(f.IssueSession(username)))
}
