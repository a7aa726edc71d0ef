package login

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/nhle/haulbook/internal/api"
	"github.com/nhle/haulbook/internal/auth"
	"github.com/nhle/haulbook/internal/model"
	"github.com/nhle/haulbook/internal/route"
	"github.com/nhle/haulbook/internal/ui"
)

// LoggedInMsg is dispatched once a session has been stored.
type LoggedInMsg struct {
	Session *model.Session
}

// resultMsg carries the outcome of a login attempt.
type resultMsg struct {
	session *model.Session
	err     error
}

// Authenticator performs the login exchange.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*model.Session, error)
}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	username string
	password string
}

// Model is the login screen.
type Model struct {
	auth    Authenticator
	form    *huh.Form
	fb      *formBindings
	err     string
	pending bool
	width   int
	height  int
}

// New creates the login screen.
func New(a Authenticator, width, height int) Model {
	return Model{
		auth:   a,
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// Start resets the password and shows a fresh form. The username of a
// failed attempt is kept.
func (m *Model) Start() tea.Cmd {
	m.fb.password = ""
	m.pending = false
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&m.fb.username).
				Validate(ui.ValidateRequired("Username")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.password).
				Validate(ui.ValidateRequired("Password")),
		),
	).WithWidth(ui.FormWidth(m.width)).WithShowHelp(false)
	return m.form.Init()
}

// Reset clears everything, including the last error.
func (m *Model) Reset() tea.Cmd {
	m.fb.username = ""
	m.err = ""
	return m.Start()
}

// Update handles messages for the login screen.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case resultMsg:
		if msg.err != nil {
			m.err = errorText(msg.err)
			return m, m.Start()
		}
		m.err = ""
		s := msg.session
		return m, func() tea.Msg { return LoggedInMsg{Session: s} }

	case tea.KeyMsg:
		if msg.String() == "ctrl+r" {
			return m, ui.Navigate(route.PathRegister)
		}
	}

	if m.form == nil || m.pending {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.pending = true
		return m, m.submit()
	case huh.StateAborted:
		return m, m.Start()
	}
	return m, cmd
}

func (m Model) submit() tea.Cmd {
	a := m.auth
	username, password := m.fb.username, m.fb.password
	return func() tea.Msg {
		s, err := a.Login(context.Background(), username, password)
		return resultMsg{session: s, err: err}
	}
}

func errorText(err error) string {
	var fieldErr *auth.FieldError
	switch {
	case errors.As(err, &fieldErr):
		return fieldErr.Error()
	case api.IsAuthError(err):
		return "Invalid username or password."
	}
	return ui.FailureText("log in")
}

// View renders the login screen.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}
	body := m.form.View()
	if m.pending {
		body = "Signing in..."
	}
	return ui.RenderForm("Sign in", m.err, body+"\n\nctrl+r create an account")
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(ui.FormWidth(width))
	}
}
