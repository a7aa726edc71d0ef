package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/haulbook/internal/api"
	"github.com/nhle/haulbook/internal/auth"
	"github.com/nhle/haulbook/internal/keys"
	"github.com/nhle/haulbook/internal/model"
	"github.com/nhle/haulbook/internal/notify"
	"github.com/nhle/haulbook/internal/route"
	"github.com/nhle/haulbook/internal/session"
	"github.com/nhle/haulbook/internal/theme"
	"github.com/nhle/haulbook/internal/ui"
	"github.com/nhle/haulbook/internal/ui/command"
	"github.com/nhle/haulbook/internal/ui/dashboard"
	helpview "github.com/nhle/haulbook/internal/ui/help"
	"github.com/nhle/haulbook/internal/ui/login"
	"github.com/nhle/haulbook/internal/ui/notifications"
	"github.com/nhle/haulbook/internal/ui/profile"
	"github.com/nhle/haulbook/internal/ui/recorddetail"
	"github.com/nhle/haulbook/internal/ui/recordform"
	"github.com/nhle/haulbook/internal/ui/recordlist"
	"github.com/nhle/haulbook/internal/ui/register"
	"github.com/nhle/haulbook/internal/ui/settings"
)

// ExpiryRedirectDelay is how long the session-expired banner stays up
// before the user is sent to the login screen.
const ExpiryRedirectDelay = 3 * time.Second

// Overlay is a panel drawn over the current screen.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayHelp
	OverlayCommand
	OverlayNotifications
)

// expiryRedirectMsg fires once the session-expired banner has been shown
// for ExpiryRedirectDelay. gen ties it to the expiry that scheduled it.
type expiryRedirectMsg struct {
	gen int
}

// tokenRefreshedMsg reports a background token refresh started after a
// notification poll was rejected.
type tokenRefreshedMsg struct {
	err error
}

// Deps are the services the root model drives.
type Deps struct {
	Config     *model.AppConfig
	SaveConfig settings.Saver
	Sessions   *session.Store
	Gateway    *auth.Gateway
	API        *api.Client
	Poller     *notify.Poller
	Logger     *zap.Logger
}

// Model is the root Bubble Tea model. It owns navigation: every screen
// change goes through the route guard.
type Model struct {
	path    string
	screen  route.Screen
	overlay Overlay
	layout  ui.Layout
	ready   bool

	keys     *keys.KeyMap
	cfg      *model.AppConfig
	sessions *session.Store
	gateway  *auth.Gateway
	poller   *notify.Poller
	cache    *notify.Cache
	logger   *zap.Logger

	loginView     login.Model
	registerView  register.Model
	dashboardView dashboard.Model
	recordsView   recordlist.Model
	detailView    recorddetail.Model
	formView      recordform.Model
	profileView   profile.Model
	settingsView  settings.Model
	helpView      helpview.Model
	commandView   command.Model
	notifyView    notifications.Model

	unread    int
	banner    string
	status    string
	expiring  bool
	expiryGen int
}

// New creates the root model. The first screen is chosen in Init.
func New(d Deps) Model {
	k := keys.DefaultKeyMap()
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := d.Config
	if cfg == nil {
		cfg = model.DefaultAppConfig()
	}
	cache := d.Poller.Cache()

	return Model{
		keys:     k,
		cfg:      cfg,
		sessions: d.Sessions,
		gateway:  d.Gateway,
		poller:   d.Poller,
		cache:    cache,
		logger:   logger.Named("app"),

		loginView:     login.New(d.Gateway, 80, 24),
		registerView:  register.New(d.Gateway, 80, 24),
		dashboardView: dashboard.New(d.API, d.Gateway, k, 80, 24),
		recordsView:   recordlist.New(d.API, d.Gateway, k, 80, 24),
		detailView:    recorddetail.New(d.API, d.Gateway, k, 80, 24),
		formView:      recordform.New(d.API, d.Gateway, 80, 24),
		profileView:   profile.New(d.Sessions, 80, 24),
		settingsView:  settings.New(cfg, d.SaveConfig, 80, 24),
		helpView:      helpview.New(k, 80, 24),
		commandView:   command.New(80, 24),
		notifyView:    notifications.New(cache, k, 80, 24),
	}
}

// Init opens the dashboard, which the guard turns into the login screen
// when nobody is signed in, and resumes polling for a stored session.
func (m Model) Init() tea.Cmd {
	theme.SetDarkMode(m.cfg.Display.DarkMode)
	cmds := []tea.Cmd{ui.Navigate(route.PathDashboard)}
	if m.sessions.IsAuthenticated() {
		cmds = append(cmds, m.startPolling())
	}
	return tea.Batch(cmds...)
}

// Path returns the current screen path.
func (m Model) Path() string {
	return m.path
}

// Overlay returns the panel currently drawn over the screen.
func (m Model) Overlay() Overlay {
	return m.overlay
}

// Unread returns the unread notification count shown in the header.
func (m Model) Unread() int {
	return m.unread
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		m.resize()
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case ui.NavigateMsg:
		return m, m.navigate(msg.Path)

	case login.LoggedInMsg:
		m.logger.Info("signed in", zap.String("user", msg.Session.User.Username))
		return m, m.signedIn()

	case register.RegisteredMsg:
		m.logger.Info("registered", zap.String("user", msg.Session.User.Username))
		return m, m.signedIn()

	case ui.SessionExpiredMsg:
		if m.expiring || !m.sessions.IsAuthenticated() {
			return m, nil
		}
		m.expiring = true
		m.expiryGen++
		gen := m.expiryGen
		m.setBanner(ui.SessionExpiredText)
		return m, tea.Tick(ExpiryRedirectDelay, func(time.Time) tea.Msg {
			return expiryRedirectMsg{gen: gen}
		})

	case expiryRedirectMsg:
		if !m.expiring || msg.gen != m.expiryGen {
			return m, nil
		}
		m.expiring = false
		m.setBanner("")
		return m, m.signOut()

	case ui.StatusMsg:
		m.status = msg.Text
		return m, nil

	case notify.UpdatedMsg:
		next := m.poller.WaitForNextResult(msg)
		if !m.sessions.IsAuthenticated() {
			return m, next
		}
		m.unread = msg.Unread
		m.notifyView.Sync(msg.Notifications, msg.Err)
		if api.IsAuthError(msg.Err) {
			return m, tea.Batch(next, m.refreshToken())
		}
		return m, next

	case notify.MarkedMsg:
		m.unread = msg.Unread
		var cmd tea.Cmd
		m.notifyView, cmd = m.notifyView.Update(msg)
		if msg.Err != nil {
			m.status = "Failed to mark notification as read."
		}
		return m, cmd

	case tokenRefreshedMsg:
		if msg.err == nil {
			return m, nil
		}
		m.logger.Debug("background token refresh failed", zap.Error(msg.err))
		if api.IsAuthError(msg.err) || errors.Is(msg.err, auth.ErrNoSession) {
			return m, ui.SessionExpired
		}
		return m, nil

	case dashboard.LoadedMsg:
		var cmd tea.Cmd
		m.dashboardView, cmd = m.dashboardView.Update(msg)
		return m, cmd

	case recordlist.RecordsLoadedMsg:
		var cmd tea.Cmd
		m.recordsView, cmd = m.recordsView.Update(msg)
		return m, cmd

	case recorddetail.LoadedMsg:
		var cmd tea.Cmd
		m.detailView, cmd = m.detailView.Update(msg)
		return m, cmd

	case recordform.SavedMsg:
		m.status = "Record saved."
		if msg.Record != nil && msg.Record.ID > 0 {
			return m, m.navigate(route.RecordPath(msg.Record.ID))
		}
		return m, m.navigate(route.PathRecords)

	case settings.SavedMsg:
		m.status = "Settings saved."
		return m, m.applySettings(msg)

	case command.CommandMsg:
		m.overlay = OverlayNone
		return m, m.executeCommand(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, m.quit()
		}
		m.status = ""
		if m.overlay != OverlayNone {
			return m.updateOverlay(msg)
		}
		if !m.inputActive() {
			if next, cmd, ok := m.handleGlobalKey(msg); ok {
				return next, cmd
			}
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// handleGlobalKey processes keys that work on every screen without a
// focused input. ok is false when the key belongs to the active view.
func (m Model) handleGlobalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	authed := m.sessions.IsAuthenticated()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, m.quit(), true

	case key.Matches(msg, m.keys.Help):
		m.overlay = OverlayHelp
		return m, nil, true

	case key.Matches(msg, m.keys.Command):
		m.overlay = OverlayCommand
		return m, m.commandView.Focus(), true
	}

	if !authed {
		return m, nil, false
	}

	switch {
	case key.Matches(msg, m.keys.GoDashboard):
		return m, m.navigate(route.PathDashboard), true
	case key.Matches(msg, m.keys.GoRecords):
		return m, m.navigate(route.PathRecords), true
	case key.Matches(msg, m.keys.GoNotifications):
		m.overlay = OverlayNotifications
		return m, nil, true
	case key.Matches(msg, m.keys.GoProfile):
		return m, m.navigate(route.PathProfile), true
	case key.Matches(msg, m.keys.GoSettings):
		return m, m.navigate(route.PathSettings), true
	}
	return m, nil, false
}

// updateOverlay routes keys to the open overlay. esc closes it, as does
// the key that opened it (except in the command palette, which is typing).
func (m Model) updateOverlay(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		m.overlay = OverlayNone
		return m, nil
	}

	var cmd tea.Cmd
	switch m.overlay {
	case OverlayHelp:
		if key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Quit) {
			m.overlay = OverlayNone
			return m, nil
		}
		m.helpView, cmd = m.helpView.Update(msg)
	case OverlayCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case OverlayNotifications:
		if key.Matches(msg, m.keys.GoNotifications) {
			m.overlay = OverlayNone
			return m, nil
		}
		m.notifyView, cmd = m.notifyView.Update(msg)
	}
	return m, cmd
}

// inputActive reports whether the active screen has a focused input that
// must receive every key.
func (m Model) inputActive() bool {
	switch m.screen.Kind {
	case route.KindLogin, route.KindRegister, route.KindRecordNew,
		route.KindRecordEdit, route.KindProfile, route.KindSettings:
		return true
	case route.KindRecords:
		return m.recordsView.InputActive()
	}
	return false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.screen.Kind {
	case route.KindLogin:
		m.loginView, cmd = m.loginView.Update(msg)
	case route.KindRegister:
		m.registerView, cmd = m.registerView.Update(msg)
	case route.KindDashboard:
		m.dashboardView, cmd = m.dashboardView.Update(msg)
	case route.KindRecords:
		m.recordsView, cmd = m.recordsView.Update(msg)
	case route.KindRecordDetail:
		m.detailView, cmd = m.detailView.Update(msg)
	case route.KindRecordNew, route.KindRecordEdit:
		m.formView, cmd = m.formView.Update(msg)
	case route.KindProfile:
		m.profileView, cmd = m.profileView.Update(msg)
	case route.KindSettings:
		m.settingsView, cmd = m.settingsView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(route.Title(m.path), m.headerRight())
	banner := ""
	if m.banner != "" {
		banner = m.layout.RenderBanner(m.banner)
	}
	statusBar := m.layout.RenderStatusBar(m.statusText())

	return m.layout.RenderWithFrame(header, banner, m.renderContent(), statusBar)
}

// renderContent returns the rendered string for the overlay or the
// active screen.
func (m Model) renderContent() string {
	switch m.overlay {
	case OverlayHelp:
		return m.helpView.View()
	case OverlayCommand:
		return m.commandView.View()
	case OverlayNotifications:
		return m.notifyView.View()
	}

	switch m.screen.Kind {
	case route.KindLogin:
		return m.loginView.View()
	case route.KindRegister:
		return m.registerView.View()
	case route.KindDashboard:
		return m.dashboardView.View()
	case route.KindRecords:
		return m.recordsView.View()
	case route.KindRecordDetail:
		return m.detailView.View()
	case route.KindRecordNew, route.KindRecordEdit:
		return m.formView.View()
	case route.KindProfile:
		return m.profileView.View()
	case route.KindSettings:
		return m.settingsView.View()
	default:
		return ""
	}
}

// headerRight shows who is signed in and the unread badge.
func (m Model) headerRight() string {
	s, ok := m.sessions.CurrentUser()
	if !ok {
		return "haulbook"
	}
	name := s.User.Username
	if name == "" {
		name = "signed in"
	}
	if m.unread > 0 {
		return fmt.Sprintf("%s | %d new", name, m.unread)
	}
	return name
}

// statusText returns the pending status message or keyboard hints.
func (m Model) statusText() string {
	if m.status != "" {
		return m.status
	}

	switch m.overlay {
	case OverlayHelp:
		return "? close help | esc back"
	case OverlayCommand:
		return "enter execute | esc back"
	case OverlayNotifications:
		return "enter open | r refresh | esc close"
	}

	switch m.screen.Kind {
	case route.KindLogin:
		return "enter submit | ctrl+r register | ctrl+c quit"
	case route.KindRegister:
		return "enter submit | ctrl+l login | esc back"
	case route.KindRecords:
		if m.recordsView.InputActive() {
			return "enter apply | esc clear"
		}
		return "/ search | tab sort | o order | n new | e edit | d delete | ? help"
	case route.KindRecordDetail:
		return "e edit | esc back | j/k scroll"
	case route.KindRecordNew, route.KindRecordEdit, route.KindProfile, route.KindSettings:
		return "enter submit | esc cancel"
	}
	return "1 dashboard | 2 records | 3 notifications | 4 profile | 5 settings | ? help | q quit"
}

// setBanner shows or clears the banner line and resizes the content area.
func (m *Model) setBanner(text string) {
	m.banner = text
	m.resize()
}

// resize recomputes every view's dimensions from the current layout.
func (m *Model) resize() {
	if !m.ready {
		return
	}
	m.layout.BannerHeight = 0
	if m.banner != "" {
		m.layout.BannerHeight = 1
	}

	w := m.layout.ContentWidth()
	h := m.layout.ContentHeight()
	m.loginView.SetSize(w, h)
	m.registerView.SetSize(w, h)
	m.dashboardView.SetSize(w, h)
	m.recordsView.SetSize(w, h)
	m.detailView.SetSize(w, h)
	m.formView.SetSize(w, h)
	m.profileView.SetSize(w, h)
	m.settingsView.SetSize(w, h)
	m.helpView.SetSize(w, h)
	m.commandView.SetSize(w, h)
	m.notifyView.SetSize(w, h)
}
