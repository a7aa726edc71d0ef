package notifications

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/haulbook/internal/api"
	"github.com/nhle/haulbook/internal/keys"
	"github.com/nhle/haulbook/internal/model"
	"github.com/nhle/haulbook/internal/notify"
	"github.com/nhle/haulbook/tests/testutil"
)

func newPanel(t *testing.T) (*testutil.FakeAPI, *notify.Cache, Model) {
	t.Helper()
	fake := testutil.NewFakeAPI(t)
	fake.AddUser("driver", "driver@example.com", "pw")
	s := fake.IssueSession("driver")
	client := api.NewClient(fake.URL(), func() string { return s.Access })
	cache := notify.NewCache(client, nil)
	return fake, cache, New(cache, keys.DefaultKeyMap(), 80, 20)
}

func TestEmptyPanel(t *testing.T) {
	_, _, m := newPanel(t)
	assert.Contains(t, m.View(), "No new notifications")
}

func TestRefreshFillsPanel(t *testing.T) {
	fake, cache, m := newPanel(t)
	fake.SetNotifications(
		model.Notification{ID: "1", Message: "Record 4 was updated", Link: "/records/4"},
		model.Notification{ID: "2", Message: "old news", IsRead: true},
	)

	m, _ = m.Update(notify.RefreshCmd(cache)())
	view := m.View()
	assert.Contains(t, view, "Record 4 was updated")
	assert.NotContains(t, view, "old news")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
}

func TestRefreshErrorKeepsRows(t *testing.T) {
	fake, cache, m := newPanel(t)
	fake.SetNotifications(model.Notification{ID: "1", Message: "load ready"})
	m, _ = m.Update(notify.RefreshCmd(cache)())

	fake.FailWith(testutil.RouteNotifications, 500)
	m, _ = m.Update(notify.RefreshCmd(cache)())

	assert.Contains(t, m.View(), "Failed to load notifications.")
	assert.Contains(t, m.View(), "load ready")
}

func TestMarkedMsg(t *testing.T) {
	fake, cache, m := newPanel(t)
	fake.SetNotifications(
		model.Notification{ID: "1", Message: "first"},
		model.Notification{ID: "2", Message: "second"},
	)
	require.NoError(t, cache.Refresh(context.Background()))

	m, _ = m.Update(notify.MarkAsReadCmd(cache, "1")())
	assert.NotContains(t, m.View(), "first")
	assert.Contains(t, m.View(), "second")

	m, _ = m.Update(notify.MarkedMsg{ID: "2", Notifications: cache.Notifications(), Err: errors.New("boom")})
	assert.Contains(t, m.View(), "Failed to mark notification as read.")
	assert.Contains(t, m.View(), "second")
}

func TestWideMessageIsTruncatedToWidth(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	cache := notify.NewCache(api.NewClient(fake.URL(), func() string { return "" }), nil)
	m := New(cache, keys.DefaultKeyMap(), 80, 24)
	m.Sync([]model.Notification{
		{ID: "1", Message: strings.Repeat("運", 40)},
		{ID: "2", Message: strings.Repeat("🚚", 50)},
	}, nil)

	var view string
	require.NotPanics(t, func() { view = m.View() })
	assert.Contains(t, view, "…")
	for _, line := range strings.Split(view, "\n") {
		assert.LessOrEqual(t, lipgloss.Width(line), 80)
	}
}
