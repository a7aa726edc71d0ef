package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/haulbook/internal/api"
	"github.com/nhle/haulbook/internal/model"
	"github.com/nhle/haulbook/tests/testutil"
)

func sampleRecord() model.Record {
	return model.Record{
		Date:         "2024-03-02",
		PONumber:     "PO-100",
		LocationFrom: "Dallas",
		LocationTo:   "Memphis",
		DHMiles:      model.Decimal{Raw: "12.00"},
		Miles:        model.Decimal{Raw: "452.50"},
		Fuel:         model.Decimal{Raw: "210.10"},
		Food:         model.Decimal{Raw: "25.00"},
		Lumper:       model.Decimal{Raw: "0.00"},
		Pay:          model.Decimal{Raw: "1300.00"},
	}
}

func TestLoginReturnsSession(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	id := fake.AddUser("driver", "driver@example.com", "pw")

	c := api.NewClient(fake.URL(), nil)
	s, err := c.Login(context.Background(), api.Credentials{Username: "driver", Password: "pw"})
	require.NoError(t, err)
	assert.NotEmpty(t, s.Access)
	assert.NotEmpty(t, s.Refresh)
	assert.Equal(t, id, s.User)
	assert.Empty(t, fake.LastAuthorization(testutil.RouteLogin))
}

func TestLoginBadCredentialsIsAuthError(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.AddUser("driver", "driver@example.com", "pw")

	c := api.NewClient(fake.URL(), nil)
	_, err := c.Login(context.Background(), api.Credentials{Username: "driver", Password: "nope"})
	require.Error(t, err)
	assert.True(t, api.IsAuthError(err))
	assert.Equal(t, http.StatusUnauthorized, api.StatusCode(err))
	assert.Contains(t, err.Error(), "No active account")
}

func TestTokenIsReadOnEveryRequest(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.AddUser("driver", "driver@example.com", "pw")
	first := fake.IssueSession("driver")
	second := fake.IssueSession("driver")

	token := first.Access
	c := api.NewClient(fake.URL(), func() string { return token })

	_, err := c.ListRecords(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer "+first.Access, fake.LastAuthorization(testutil.RouteRecords))

	token = second.Access
	_, err = c.ListRecords(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer "+second.Access, fake.LastAuthorization(testutil.RouteRecords))
}

func TestExpiredTokenIsAuthError(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.AddUser("driver", "driver@example.com", "pw")
	s := fake.IssueSession("driver")
	fake.ExpireAccessTokens()

	c := api.NewClient(fake.URL(), func() string { return s.Access })
	_, err := c.Dashboard(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsAuthError(err))
	assert.False(t, api.IsTransportError(err))
}

func TestServerErrorIsStatusError(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.AddUser("driver", "driver@example.com", "pw")
	s := fake.IssueSession("driver")
	fake.FailWith(testutil.RouteRecords, http.StatusInternalServerError)

	c := api.NewClient(fake.URL(), func() string { return s.Access })
	_, err := c.ListRecords(context.Background())
	require.Error(t, err)

	var statusErr *api.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.Code)
	assert.False(t, api.IsAuthError(err))

	// No retry: the injected failure consumed exactly one request.
	assert.Equal(t, 1, fake.Hits(testutil.RouteRecords))
}

func TestUnreachableServerIsTransportError(t *testing.T) {
	c := api.NewClient(testutil.UnreachableURL(t), nil)
	_, err := c.Login(context.Background(), api.Credentials{Username: "a", Password: "b"})
	require.Error(t, err)
	assert.True(t, api.IsTransportError(err))
	assert.False(t, api.IsAuthError(err))
	assert.Equal(t, 0, api.StatusCode(err))
}

func TestRecordCRUD(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.AddUser("driver", "driver@example.com", "pw")
	s := fake.IssueSession("driver")
	c := api.NewClient(fake.URL(), func() string { return s.Access })
	ctx := context.Background()

	created, err := c.CreateRecord(ctx, sampleRecord())
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	assert.Equal(t, "PO-100", created.PONumber)

	got, err := c.GetRecord(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, *created, *got)

	edit := *got
	edit.Pay = model.Decimal{Raw: "1400.00"}
	updated, err := c.UpdateRecord(ctx, created.ID, edit)
	require.NoError(t, err)
	assert.Equal(t, "1400.00", updated.Pay.Raw)

	list, err := c.ListRecords(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "1400.00", list[0].Pay.Raw)

	require.NoError(t, c.DeleteRecord(ctx, created.ID))
	_, err = c.GetRecord(ctx, created.ID)
	assert.Equal(t, http.StatusNotFound, api.StatusCode(err))
}

func TestDashboard(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.AddUser("driver", "driver@example.com", "pw")
	s := fake.IssueSession("driver")
	fake.AddRecord(sampleRecord())
	second := sampleRecord()
	second.Date = "2024-04-10"
	second.Miles = model.Decimal{Raw: "100"}
	second.Pay = model.Decimal{Raw: "200"}
	fake.AddRecord(second)

	c := api.NewClient(fake.URL(), func() string { return s.Access })
	d, err := c.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, d.RecordCount)
	miles, ok := d.TotalMiles.Float()
	require.True(t, ok)
	assert.InDelta(t, 552.5, miles, 0.001)
	require.Len(t, d.MonthlyData, 2)
	assert.Equal(t, "2024-03", d.MonthlyData[0].Month)
	require.Len(t, d.RecentRecords, 2)
	assert.Equal(t, "2024-04-10", d.RecentRecords[0].Date)
}

func TestNotificationsAndMarkRead(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.AddUser("driver", "driver@example.com", "pw")
	s := fake.IssueSession("driver")
	fake.SetNotifications(
		model.Notification{ID: "1", Message: "new load", Link: "/records/1", IsRead: false},
		model.Notification{ID: "2", Message: "old", Link: "/", IsRead: true},
	)

	c := api.NewClient(fake.URL(), func() string { return s.Access })
	ctx := context.Background()

	ns, err := c.ListNotifications(ctx, false)
	require.NoError(t, err)
	require.Len(t, ns, 2)
	assert.Equal(t, "new load", ns[0].Message)

	require.NoError(t, c.MarkNotificationRead(ctx, "1"))
	ns, err = c.ListNotifications(ctx, true)
	require.NoError(t, err)
	assert.True(t, ns[0].IsRead)

	err = c.MarkNotificationRead(ctx, "missing")
	assert.Equal(t, http.StatusNotFound, api.StatusCode(err))
}

func TestNotificationNumericIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/notifications/", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("show_all"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":12,"message":"m","link":"/records/3","isRead":false}]`))
	}))
	t.Cleanup(srv.Close)

	c := api.NewClient(srv.URL+"/api/", nil)
	ns, err := c.ListNotifications(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.Equal(t, "12", ns[0].ID)
	assert.Equal(t, "/records/3", ns[0].Link)
}

func TestRefreshToken(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.AddUser("driver", "driver@example.com", "pw")
	s := fake.IssueSession("driver")

	c := api.NewClient(fake.URL(), nil)
	pair, err := c.RefreshToken(context.Background(), s.Refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Access)
	assert.NotEqual(t, s.Access, pair.Access)
	assert.Empty(t, pair.Refresh)

	_, err = c.RefreshToken(context.Background(), "bogus")
	assert.True(t, api.IsAuthError(err))
}
