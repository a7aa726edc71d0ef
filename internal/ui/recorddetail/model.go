package recorddetail

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/haulbook/internal/keys"
	"github.com/nhle/haulbook/internal/model"
	"github.com/nhle/haulbook/internal/records"
	"github.com/nhle/haulbook/internal/route"
	"github.com/nhle/haulbook/internal/theme"
	"github.com/nhle/haulbook/internal/ui"
)

// LoadedMsg carries the fetched record.
type LoadedMsg struct {
	ID     int64
	Record *model.Record
	Err    error
}

// Source fetches a single record.
type Source interface {
	GetRecord(ctx context.Context, id int64) (*model.Record, error)
}

// Model is the record detail view component.
type Model struct {
	record    *model.Record
	id        int64
	viewport  viewport.Model
	source    Source
	refresher ui.Refresher
	keys      *keys.KeyMap
	err       string
	width     int
	height    int
	loading   bool
}

// New creates a new detail view model.
func New(src Source, r ui.Refresher, k *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport:  vp,
		source:    src,
		refresher: r,
		keys:      k,
		width:     width,
		height:    height,
	}
}

// Load shows the loading state and fetches record id.
func (m *Model) Load(id int64) tea.Cmd {
	m.id = id
	m.record = nil
	m.err = ""
	m.loading = true
	src, r := m.source, m.refresher
	return func() tea.Msg {
		var rec *model.Record
		err := ui.WithReauth(context.Background(), r, func(ctx context.Context) error {
			var err error
			rec, err = src.GetRecord(ctx, id)
			return err
		})
		return LoadedMsg{ID: id, Record: rec, Err: err}
	}
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		if msg.ID != m.id {
			return m, nil
		}
		m.loading = false
		if msg.Err != nil {
			text, cmd := ui.HandleLoadError("fetch the record", msg.Err)
			m.err = text
			return m, cmd
		}
		m.record = msg.Record
		m.viewport.SetContent(m.renderContent())
		m.viewport.GotoTop()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, ui.Navigate(route.PathRecords)

		case key.Matches(msg, m.keys.Edit):
			if m.record != nil {
				return m, ui.Navigate(route.RecordEditPath(m.record.ID))
			}
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	if m.err != "" {
		return ui.CenteredText(m.width, m.height, theme.ErrorBannerStyle.Render(m.err))
	}
	if m.loading {
		return ui.CenteredText(m.width, m.height, "Loading...")
	}
	if m.record == nil {
		return ui.CenteredText(m.width, m.height, "No record selected")
	}
	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.record == nil {
		return ""
	}
	r := m.record

	var sections []string
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render("Record Detail"))
	sections = append(sections, "")

	rows := [][2]string{
		{"PO Number:", r.PONumber},
		{"Date:", r.Date},
		{"From:", r.LocationFrom},
		{"To:", r.LocationTo},
		{"DH Miles:", records.FormatAmount(r.DHMiles)},
		{"Miles:", records.FormatAmount(r.Miles)},
		{"Fuel:", "$" + records.FormatAmount(r.Fuel)},
		{"Food:", "$" + records.FormatAmount(r.Food)},
		{"Lumper:", "$" + records.FormatAmount(r.Lumper)},
		{"Pay:", "$" + records.FormatAmount(r.Pay)},
	}
	for _, row := range rows {
		sections = append(sections, fmt.Sprintf(
			"%s %s",
			theme.LabelStyle.Width(12).Render(row[0]),
			theme.ValueStyle.Render(row[1]),
		))
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 1)))
	sections = append(sections, "", separator, "")
	sections = append(sections, theme.HelpStyle.Render("e edit | esc back to records"))

	return theme.DetailPanelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	if m.record != nil {
		m.viewport.SetContent(m.renderContent())
	}
}
