package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/haulbook/internal/route"
	"github.com/nhle/haulbook/internal/theme"
	"github.com/nhle/haulbook/internal/ui/command"
	"github.com/nhle/haulbook/internal/ui/settings"
)

// navigate resolves path through the route guard, switches to the
// resulting screen and returns the command that loads it.
func (m *Model) navigate(path string) tea.Cmd {
	authed := m.sessions.IsAuthenticated()
	target := route.Resolve(path, authed)
	if target != route.Normalize(path) {
		m.logger.Debug("navigation redirected",
			zap.String("from", path),
			zap.String("to", target),
			zap.Bool("authenticated", authed),
		)
	}

	m.path = target
	m.screen = route.Match(target)
	m.overlay = OverlayNone
	return m.enter()
}

// enter starts the active screen.
func (m *Model) enter() tea.Cmd {
	switch m.screen.Kind {
	case route.KindLogin:
		return m.loginView.Start()
	case route.KindRegister:
		return m.registerView.Start()
	case route.KindDashboard:
		return m.dashboardView.Load()
	case route.KindRecords:
		return m.recordsView.LoadRecords()
	case route.KindRecordDetail:
		return m.detailView.Load(m.screen.RecordID)
	case route.KindRecordNew:
		return m.formView.StartCreate()
	case route.KindRecordEdit:
		return m.formView.StartEdit(m.screen.RecordID)
	case route.KindProfile:
		return m.profileView.Start()
	case route.KindSettings:
		return m.settingsView.Start()
	}
	return nil
}

// signedIn runs after a session was stored by login or registration.
func (m *Model) signedIn() tea.Cmd {
	m.expiring = false
	m.setBanner("")
	m.loginView.Reset()
	m.registerView.Reset()
	return tea.Batch(m.navigate(route.PathDashboard), m.startPolling())
}

// signOut clears the session and everything fetched with it, then goes
// to the login screen.
func (m *Model) signOut() tea.Cmd {
	m.poller.Stop()
	if err := m.gateway.Logout(); err != nil {
		m.logger.Error("clearing session", zap.Error(err))
	}
	m.cache.Reset()
	m.unread = 0
	m.notifyView.Sync(nil, nil)
	m.dashboardView.Reset()
	m.recordsView.Reset()
	m.loginView.Reset()
	return m.navigate(route.PathLogin)
}

// startPolling starts the notification poller when polling is enabled.
func (m *Model) startPolling() tea.Cmd {
	if !m.cfg.Notifications.Enabled {
		return nil
	}
	m.poller.SetInterval(time.Duration(m.cfg.Notifications.PollIntervalSec) * time.Second)
	return m.poller.Start()
}

// refreshToken renews the access token in the background so the next
// poll tick is accepted.
func (m *Model) refreshToken() tea.Cmd {
	g := m.gateway
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_, err := g.RefreshCurrent(ctx)
		return tokenRefreshedMsg{err: err}
	}
}

// applySettings makes saved settings take effect.
func (m *Model) applySettings(msg settings.SavedMsg) tea.Cmd {
	theme.SetDarkMode(msg.Display.DarkMode)

	m.poller.Stop()
	if !msg.Notifications.Enabled {
		m.cache.Reset()
		m.unread = 0
		m.notifyView.Sync(nil, nil)
		return nil
	}
	if !m.sessions.IsAuthenticated() {
		return nil
	}
	return m.startPolling()
}

// executeCommand handles a command from the command palette.
func (m *Model) executeCommand(c command.CommandMsg) tea.Cmd {
	switch c.Name {
	case command.Logout:
		return m.signOut()
	case command.Refresh:
		if m.poller.Running() {
			m.poller.RefreshNow()
		}
		return m.enter()
	case command.Goto:
		return m.navigate(c.Arg)
	case command.Quit:
		return m.quit()
	}
	return nil
}

// quit stops background work and exits the program.
func (m *Model) quit() tea.Cmd {
	m.poller.Stop()
	return tea.Quit
}
