package settings

import (
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/nhle/haulbook/internal/model"
	"github.com/nhle/haulbook/internal/route"
	"github.com/nhle/haulbook/internal/ui"
)

// SavedMsg is dispatched after the settings were written to disk.
type SavedMsg struct {
	Display       model.DisplayConfig
	Notifications model.NotificationConfig
}

// Saver persists the configuration.
type Saver func(cfg *model.AppConfig) error

type formBindings struct {
	darkMode      bool
	notifications bool
	interval      int
}

// Model is the settings screen.
type Model struct {
	cfg    *model.AppConfig
	save   Saver
	form   *huh.Form
	fb     *formBindings
	err    string
	width  int
	height int
}

// New creates the settings screen editing cfg in place.
func New(cfg *model.AppConfig, save Saver, width, height int) Model {
	return Model{
		cfg:    cfg,
		save:   save,
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// Start loads the current values into a fresh form.
func (m *Model) Start() tea.Cmd {
	m.err = ""
	m.fb.darkMode = m.cfg.Display.DarkMode
	m.fb.notifications = m.cfg.Notifications.Enabled
	m.fb.interval = m.cfg.Notifications.PollIntervalSec

	intervals := []int{15, 30, 60, 120, 300}
	opts := make([]huh.Option[int], 0, len(intervals)+1)
	found := false
	for _, sec := range intervals {
		opts = append(opts, huh.NewOption(strconv.Itoa(sec)+"s", sec))
		found = found || sec == m.fb.interval
	}
	if !found {
		opts = append(opts, huh.NewOption(strconv.Itoa(m.fb.interval)+"s", m.fb.interval))
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Dark Mode").
				Affirmative("On").
				Negative("Off").
				Value(&m.fb.darkMode),
			huh.NewConfirm().
				Title("Notifications").
				Description("Poll the server for unread notifications").
				Affirmative("On").
				Negative("Off").
				Value(&m.fb.notifications),
			huh.NewSelect[int]().
				Title("Poll interval").
				Options(opts...).
				Value(&m.fb.interval),
		),
	).WithWidth(ui.FormWidth(m.width)).WithShowHelp(false)
	return m.form.Init()
}

// Update handles messages for the settings screen.
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
		return m.apply()
	case huh.StateAborted:
		return m, ui.Navigate(route.PathDashboard)
	}
	return m, cmd
}

// apply writes the form values into the config and saves it. On failure
// the config is left as it was.
func (m Model) apply() (Model, tea.Cmd) {
	next := *m.cfg
	next.Display.DarkMode = m.fb.darkMode
	next.Notifications.Enabled = m.fb.notifications
	next.Notifications.PollIntervalSec = m.fb.interval

	if m.save != nil {
		if err := m.save(&next); err != nil {
			cmd := m.Start()
			m.err = ui.FailureText("save settings")
			return m, cmd
		}
	}
	*m.cfg = next

	saved := SavedMsg{Display: next.Display, Notifications: next.Notifications}
	return m, tea.Batch(
		func() tea.Msg { return saved },
		ui.Navigate(route.PathDashboard),
	)
}

// View renders the settings screen.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}
	return ui.RenderForm("Settings", m.err, m.form.View())
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(ui.FormWidth(width))
	}
}
