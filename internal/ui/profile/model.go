package profile

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/haulbook/internal/auth"
	"github.com/nhle/haulbook/internal/model"
	"github.com/nhle/haulbook/internal/route"
	"github.com/nhle/haulbook/internal/theme"
	"github.com/nhle/haulbook/internal/ui"
)

// UpdatedText is the status shown after the profile form is accepted.
const UpdatedText = "Profile updated."

// SessionReader exposes the signed-in identity.
type SessionReader interface {
	CurrentUser() (*model.Session, bool)
}

type formBindings struct {
	current string
	next    string
	confirm string
}

// Model is the profile screen: the signed-in identity and a password
// change form validated locally.
type Model struct {
	sessions SessionReader
	identity model.Identity
	form     *huh.Form
	fb       *formBindings
	err      string
	width    int
	height   int
}

// New creates the profile screen.
func New(s SessionReader, width, height int) Model {
	return Model{
		sessions: s,
		fb:       &formBindings{},
		width:    width,
		height:   height,
	}
}

// Start re-reads the identity from the session store and shows an empty
// password form.
func (m *Model) Start() tea.Cmd {
	m.identity = model.Identity{}
	if s, ok := m.sessions.CurrentUser(); ok {
		m.identity = s.User
	}
	*m.fb = formBindings{}
	m.err = ""
	return m.rebuild()
}

func (m *Model) rebuild() tea.Cmd {
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Current Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.current),
			huh.NewInput().
				Title("New Password").
				Description("Leave empty to keep the current password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.next),
			huh.NewInput().
				Title("Confirm New Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.confirm),
		),
	).WithWidth(ui.FormWidth(m.width)).WithShowHelp(false)
	return m.form.Init()
}

// Update handles messages for the profile screen.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		return m.submit()
	case huh.StateAborted:
		return m, ui.Navigate(route.PathDashboard)
	}
	return m, cmd
}

// submit validates the password fields. No password endpoint exists, so
// an accepted form only reports success and returns to the dashboard.
func (m Model) submit() (Model, tea.Cmd) {
	if err := auth.ValidatePasswordChange(m.fb.current, m.fb.next, m.fb.confirm); err != nil {
		m.err = errorText(err)
		m.fb.next, m.fb.confirm = "", ""
		return m, m.rebuild()
	}
	m.err = ""
	return m, tea.Batch(
		func() tea.Msg { return ui.StatusMsg{Text: UpdatedText} },
		ui.Navigate(route.PathDashboard),
	)
}

func errorText(err error) string {
	var fieldErr *auth.FieldError
	switch {
	case errors.Is(err, auth.ErrPasswordMismatch):
		return "New passwords don't match."
	case errors.As(err, &fieldErr):
		return fmt.Sprintf("Enter your %s to change it.", fieldErr.Field)
	}
	return err.Error()
}

// View renders the profile screen.
func (m Model) View() string {
	rows := lipgloss.JoinVertical(lipgloss.Left,
		theme.LabelStyle.Width(10).Render("Username")+theme.ValueStyle.Render(m.identity.Username),
		theme.LabelStyle.Width(10).Render("Email")+theme.ValueStyle.Render(m.identity.Email),
		"",
	)
	body := rows
	if m.form != nil {
		body = lipgloss.JoinVertical(lipgloss.Left, rows, m.form.View())
	}
	return ui.RenderForm("Profile", m.err, body)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(ui.FormWidth(width))
	}
}
