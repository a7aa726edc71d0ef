package register

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

// RegisteredMsg is dispatched once the new account's session is stored.
type RegisteredMsg struct {
	Session *model.Session
}

type resultMsg struct {
	session *model.Session
	err     error
}

// Registrar performs the registration exchange.
type Registrar interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*model.Session, error)
}

type formBindings struct {
	username string
	email    string
	password string
	confirm  string
}

// Model is the registration screen.
type Model struct {
	auth    Registrar
	form    *huh.Form
	fb      *formBindings
	err     string
	pending bool
	width   int
	height  int
}

// New creates the registration screen.
func New(r Registrar, width, height int) Model {
	return Model{
		auth:   r,
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// Start shows a fresh form, keeping username and email from a failed
// attempt.
func (m *Model) Start() tea.Cmd {
	m.fb.password = ""
	m.fb.confirm = ""
	m.pending = false
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&m.fb.username).
				Validate(ui.ValidateRequired("Username")),
			huh.NewInput().
				Title("Email").
				Value(&m.fb.email).
				Validate(ui.ValidateRequired("Email")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.password).
				Validate(ui.ValidateRequired("Password")),
			huh.NewInput().
				Title("Confirm Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.confirm).
				Validate(ui.ValidateRequired("Password confirmation")),
		),
	).WithWidth(ui.FormWidth(m.width)).WithShowHelp(false)
	return m.form.Init()
}

// Reset clears all fields and the last error.
func (m *Model) Reset() tea.Cmd {
	m.fb.username = ""
	m.fb.email = ""
	m.err = ""
	return m.Start()
}

// Update handles messages for the registration screen.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case resultMsg:
		if msg.err != nil {
			m.err = errorText(msg.err)
			return m, m.Start()
		}
		m.err = ""
		s := msg.session
		return m, func() tea.Msg { return RegisteredMsg{Session: s} }

	case tea.KeyMsg:
		if msg.String() == "ctrl+l" {
			return m, ui.Navigate(route.PathLogin)
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
		return m, ui.Navigate(route.PathLogin)
	}
	return m, cmd
}

func (m Model) submit() tea.Cmd {
	r := m.auth
	req := auth.RegisterRequest{
		Username:             m.fb.username,
		Email:                m.fb.email,
		Password:             m.fb.password,
		PasswordConfirmation: m.fb.confirm,
	}
	return func() tea.Msg {
		s, err := r.Register(context.Background(), req)
		return resultMsg{session: s, err: err}
	}
}

func errorText(err error) string {
	var fieldErr *auth.FieldError
	var statusErr *api.StatusError
	switch {
	case errors.Is(err, auth.ErrPasswordMismatch):
		return "Passwords don't match."
	case errors.As(err, &fieldErr):
		return fieldErr.Error()
	case errors.As(err, &statusErr) && statusErr.Body != "":
		return "Registration rejected: " + statusErr.Body
	}
	return ui.FailureText("register")
}

// View renders the registration screen.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}
	body := m.form.View()
	if m.pending {
		body = "Creating account..."
	}
	return ui.RenderForm("Create an account", m.err, body+"\n\nctrl+l back to sign in")
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(ui.FormWidth(width))
	}
}
