package auth_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/haulbook/internal/api"
	"github.com/nhle/haulbook/internal/auth"
	"github.com/nhle/haulbook/internal/route"
	"github.com/nhle/haulbook/internal/session"
	"github.com/nhle/haulbook/tests/testutil"
)

type fixture struct {
	fake     *testutil.FakeAPI
	sessions *session.Store
	gateway  *auth.Gateway
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	fake := testutil.NewFakeAPI(t)
	sessions := session.NewStore(session.NewMemoryBackend(), nil)
	client := api.NewClient(fake.URL(), sessions.AccessToken)
	return fixture{
		fake:     fake,
		sessions: sessions,
		gateway:  auth.NewGateway(client, sessions, nil),
	}
}

func TestLoginPersistsSession(t *testing.T) {
	f := newFixture(t)
	id := f.fake.AddUser("driver", "driver@example.com", "pw")

	s, err := f.gateway.Login(context.Background(), "driver", "pw")
	require.NoError(t, err)
	assert.Equal(t, id, s.User)

	stored, ok := f.sessions.Load()
	require.True(t, ok)
	assert.Equal(t, *s, *stored)

	// A later guard evaluation sees the session without another request.
	hits := f.fake.Hits(testutil.RouteLogin)
	assert.True(t, route.Guard(route.PathRecords, f.sessions.IsAuthenticated()).Allow)
	assert.Equal(t, hits, f.fake.Hits(testutil.RouteLogin))
}

func TestLoginFailureLeavesStoreUntouched(t *testing.T) {
	f := newFixture(t)
	f.fake.AddUser("driver", "driver@example.com", "pw")

	_, err := f.gateway.Login(context.Background(), "driver", "wrong")
	require.Error(t, err)
	assert.True(t, errors.Is(err, auth.ErrAuthFailed))
	assert.True(t, api.IsAuthError(err))
	assert.False(t, f.sessions.IsAuthenticated())
}

func TestLoginFailureKeepsExistingSession(t *testing.T) {
	f := newFixture(t)
	f.fake.AddUser("driver", "driver@example.com", "pw")
	existing := f.fake.IssueSession("driver")
	require.NoError(t, f.sessions.Save(existing))

	f.fake.FailWith(testutil.RouteLogin, http.StatusInternalServerError)
	_, err := f.gateway.Login(context.Background(), "driver", "pw")
	require.ErrorIs(t, err, auth.ErrAuthFailed)

	stored, ok := f.sessions.Load()
	require.True(t, ok)
	assert.Equal(t, existing, *stored)
}

func TestLoginNetworkFailure(t *testing.T) {
	sessions := session.NewStore(session.NewMemoryBackend(), nil)
	client := api.NewClient(testutil.UnreachableURL(t), sessions.AccessToken)
	g := auth.NewGateway(client, sessions, nil)

	_, err := g.Login(context.Background(), "driver", "pw")
	require.ErrorIs(t, err, auth.ErrAuthFailed)
	assert.True(t, api.IsTransportError(err))
	assert.False(t, sessions.IsAuthenticated())
}

func TestLoginRequiresFields(t *testing.T) {
	f := newFixture(t)

	_, err := f.gateway.Login(context.Background(), "", "pw")
	var fieldErr *auth.FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "username", fieldErr.Field)
	assert.Zero(t, f.fake.Hits(testutil.RouteLogin))
}

func TestRegisterPersistsSession(t *testing.T) {
	f := newFixture(t)

	s, err := f.gateway.Register(context.Background(), auth.RegisterRequest{
		Username:             "newbie",
		Email:                "newbie@example.com",
		Password:             "secret",
		PasswordConfirmation: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "newbie", s.User.Username)
	assert.True(t, f.sessions.IsAuthenticated())
}

func TestRegisterMismatchNeverCallsServer(t *testing.T) {
	f := newFixture(t)

	_, err := f.gateway.Register(context.Background(), auth.RegisterRequest{
		Username:             "newbie",
		Email:                "newbie@example.com",
		Password:             "secret",
		PasswordConfirmation: "secreT",
	})
	require.ErrorIs(t, err, auth.ErrPasswordMismatch)
	assert.Zero(t, f.fake.Hits(testutil.RouteRegister))
	assert.False(t, f.sessions.IsAuthenticated())
}

func TestRegisterServerRejection(t *testing.T) {
	f := newFixture(t)
	f.fake.AddUser("taken", "t@example.com", "pw")

	_, err := f.gateway.Register(context.Background(), auth.RegisterRequest{
		Username:             "taken",
		Email:                "t2@example.com",
		Password:             "pw",
		PasswordConfirmation: "pw",
	})
	require.ErrorIs(t, err, auth.ErrAuthFailed)
	assert.Equal(t, http.StatusBadRequest, api.StatusCode(err))
	assert.False(t, f.sessions.IsAuthenticated())
}

func TestRefreshRotatesAccessOnly(t *testing.T) {
	f := newFixture(t)
	f.fake.AddUser("driver", "driver@example.com", "pw")
	s, err := f.gateway.Login(context.Background(), "driver", "pw")
	require.NoError(t, err)

	pair, err := f.gateway.RefreshCurrent(context.Background())
	require.NoError(t, err)

	stored, ok := f.sessions.Load()
	require.True(t, ok)
	assert.Equal(t, pair.Access, stored.Access)
	assert.NotEqual(t, s.Access, stored.Access)
	assert.Equal(t, s.Refresh, stored.Refresh)
	assert.Equal(t, s.User, stored.User)
}

func TestRefreshRotatesRefreshWhenReturned(t *testing.T) {
	f := newFixture(t)
	f.fake.RotateRefresh = true
	f.fake.AddUser("driver", "driver@example.com", "pw")
	s, err := f.gateway.Login(context.Background(), "driver", "pw")
	require.NoError(t, err)

	pair, err := f.gateway.Refresh(context.Background(), s.Refresh)
	require.NoError(t, err)
	require.NotEmpty(t, pair.Refresh)

	stored, _ := f.sessions.Load()
	assert.Equal(t, pair.Refresh, stored.Refresh)
}

func TestRefreshFailureLeavesStoreUntouched(t *testing.T) {
	f := newFixture(t)
	f.fake.AddUser("driver", "driver@example.com", "pw")
	s, err := f.gateway.Login(context.Background(), "driver", "pw")
	require.NoError(t, err)
	f.fake.ExpireRefreshTokens()

	_, err = f.gateway.RefreshCurrent(context.Background())
	require.ErrorIs(t, err, auth.ErrAuthFailed)
	assert.True(t, api.IsAuthError(err))

	stored, ok := f.sessions.Load()
	require.True(t, ok)
	assert.Equal(t, *s, *stored)
}

func TestRefreshWithoutSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.gateway.RefreshCurrent(context.Background())
	require.ErrorIs(t, err, auth.ErrAuthFailed)
	require.ErrorIs(t, err, auth.ErrNoSession)
	assert.Zero(t, f.fake.Hits(testutil.RouteRefresh))
}

func TestRefreshedTokenUsedByNextRequest(t *testing.T) {
	f := newFixture(t)
	f.fake.AddUser("driver", "driver@example.com", "pw")
	_, err := f.gateway.Login(context.Background(), "driver", "pw")
	require.NoError(t, err)

	client := api.NewClient(f.fake.URL(), f.sessions.AccessToken)
	f.fake.ExpireAccessTokens()
	_, err = client.ListRecords(context.Background())
	require.True(t, api.IsAuthError(err))

	_, err = f.gateway.RefreshCurrent(context.Background())
	require.NoError(t, err)

	_, err = client.ListRecords(context.Background())
	require.NoError(t, err)
}

func TestLogoutClearsLocally(t *testing.T) {
	f := newFixture(t)
	f.fake.AddUser("driver", "driver@example.com", "pw")
	_, err := f.gateway.Login(context.Background(), "driver", "pw")
	require.NoError(t, err)

	require.NoError(t, f.gateway.Logout())
	assert.False(t, f.sessions.IsAuthenticated())
	assert.Equal(t, route.PathLogin, route.Guard(route.PathDashboard, f.sessions.IsAuthenticated()).RedirectTo)
}

func TestValidatePasswordChange(t *testing.T) {
	assert.NoError(t, auth.ValidatePasswordChange("", "", ""))
	assert.NoError(t, auth.ValidatePasswordChange("old", "new", "new"))
	assert.ErrorIs(t, auth.ValidatePasswordChange("old", "new", "nwe"), auth.ErrPasswordMismatch)

	var fieldErr *auth.FieldError
	assert.ErrorAs(t, auth.ValidatePasswordChange("", "new", "new"), &fieldErr)
}
