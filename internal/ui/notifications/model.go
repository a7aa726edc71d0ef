package notifications

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/nhle/haulbook/internal/keys"
	"github.com/nhle/haulbook/internal/model"
	"github.com/nhle/haulbook/internal/notify"
	"github.com/nhle/haulbook/internal/theme"
	"github.com/nhle/haulbook/internal/ui"
)

// Item wraps a notification for the bubbles list.
type Item struct {
	model.Notification
}

// FilterValue implements list.Item.
func (i Item) FilterValue() string { return i.Message }

// itemDelegate renders one notification per line.
type itemDelegate struct{}

func (d itemDelegate) Height() int                             { return 1 }
func (d itemDelegate) Spacing() int                            { return 0 }
func (d itemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	it, ok := listItem.(Item)
	if !ok {
		return
	}
	line := "● " + strings.ReplaceAll(it.Message, "\n", " ")
	if width := m.Width() - 4; width > 0 {
		line = ansi.Truncate(line, width, "…")
	}
	if index == m.Index() {
		fmt.Fprint(w, theme.SelectedItemStyle.Render(line))
		return
	}
	fmt.Fprint(w, theme.ListItemStyle.Render(line))
}

// Model is the unread notifications panel.
type Model struct {
	list   list.Model
	cache  *notify.Cache
	keys   *keys.KeyMap
	err    string
	width  int
	height int
}

// New creates the panel over cache.
func New(cache *notify.Cache, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, itemDelegate{}, max(width-6, 1), max(height-6, 1))
	l.Title = "Notifications"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	m := Model{
		list:   l,
		cache:  cache,
		keys:   k,
		width:  width,
		height: height,
	}
	m.Sync(cache.Notifications(), cache.Err())
	return m
}

// Sync replaces the rows with items and shows err, if any, above them.
func (m *Model) Sync(items []model.Notification, err error) {
	rows := make([]list.Item, len(items))
	for i, n := range items {
		rows[i] = Item{Notification: n}
	}
	m.list.SetItems(rows)
	m.err = ""
	if err != nil {
		m.err = "Failed to load notifications."
	}
}

// Update handles messages for the panel.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case notify.UpdatedMsg:
		m.Sync(msg.Notifications, msg.Err)
		return m, nil

	case notify.MarkedMsg:
		m.Sync(msg.Notifications, nil)
		if msg.Err != nil {
			m.err = "Failed to mark notification as read."
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Select):
			it, ok := m.list.SelectedItem().(Item)
			if !ok {
				return m, nil
			}
			// The link is followed whether or not the mark succeeds.
			return m, tea.Sequence(
				notify.MarkAsReadCmd(m.cache, it.ID),
				ui.Navigate(it.Link),
			)

		case key.Matches(msg, m.keys.Refresh):
			return m, notify.RefreshCmd(m.cache)
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the panel.
func (m Model) View() string {
	var parts []string
	if m.err != "" {
		parts = append(parts, theme.ErrorBannerStyle.Render(m.err))
	}
	if len(m.list.Items()) == 0 {
		parts = append(parts,
			theme.HeaderStyle.Render("Notifications"),
			ui.CenteredText(m.width-6, max(m.height-6, 1), "No new notifications"))
	} else {
		parts = append(parts, m.list.View())
	}
	parts = append(parts, theme.HelpStyle.Render("enter open | r refresh | esc close"))

	return theme.DetailPanelStyle.
		Width(max(m.width-4, 1)).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// SetSize updates the panel dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(max(width-6, 1), max(height-6, 1))
}
