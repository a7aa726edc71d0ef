package command

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/haulbook/internal/theme"
)

// Names of the commands the palette understands.
const (
	Logout  = "logout"
	Refresh = "refresh"
	Goto    = "goto"
	Quit    = "quit"
)

// CommandMsg is emitted when the user executes a command.
type CommandMsg struct {
	Name string
	Arg  string
}

// Parse splits a palette line into a command name and its argument.
// A leading ':' is ignored and "q" is accepted for quit.
func Parse(line string) (CommandMsg, error) {
	line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), ":"))
	name, arg, _ := strings.Cut(line, " ")
	name = strings.ToLower(name)
	arg = strings.TrimSpace(arg)

	switch name {
	case Logout, Refresh:
		return CommandMsg{Name: name}, nil
	case Quit, "q":
		return CommandMsg{Name: Quit}, nil
	case Goto:
		if arg == "" {
			return CommandMsg{}, fmt.Errorf("goto needs a path")
		}
		return CommandMsg{Name: Goto, Arg: arg}, nil
	case "":
		return CommandMsg{}, fmt.Errorf("empty command")
	}
	return CommandMsg{}, fmt.Errorf("unknown command %q", name)
}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	err    string
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "logout | refresh | goto <path> | quit"
	ti.Prompt = ": "
	ti.Focus()
	ti.Width = width - 6

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			line := m.input.Value()
			if strings.TrimSpace(line) == "" {
				return m, nil
			}
			parsed, err := Parse(line)
			if err != nil {
				m.err = err.Error()
				return m, nil
			}
			m.err = ""
			m.input.Reset()
			return m, func() tea.Msg {
				return parsed
			}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command palette.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	parts := []string{titleStyle.Render("Command Palette"), m.input.View()}
	if m.err != "" {
		parts = append(parts, theme.ErrorBannerStyle.Render(m.err))
	}

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus clears the previous input and gives keyboard focus to it.
func (m *Model) Focus() tea.Cmd {
	m.err = ""
	m.input.Reset()
	return m.input.Focus()
}
