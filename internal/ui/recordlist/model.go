package recordlist

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/haulbook/internal/keys"
	"github.com/nhle/haulbook/internal/model"
	"github.com/nhle/haulbook/internal/records"
	"github.com/nhle/haulbook/internal/route"
	"github.com/nhle/haulbook/internal/theme"
	"github.com/nhle/haulbook/internal/ui"
)

// RecordsLoadedMsg is sent when records have been fetched from the API.
type RecordsLoadedMsg struct {
	Records []model.Record
	Err     error
	gen     uint64
}

// recordDeletedMsg is sent after a delete attempt.
type recordDeletedMsg struct {
	id  int64
	err error
	gen uint64
}

// Source is the subset of the API the list needs.
type Source interface {
	ListRecords(ctx context.Context) ([]model.Record, error)
	DeleteRecord(ctx context.Context, id int64) error
}

// Model is the transport records table.
type Model struct {
	list        list.Model
	source      Source
	refresher   ui.Refresher
	keys        *keys.KeyMap
	all         []model.Record
	query       records.Query
	searchMode  bool
	searchInput textinput.Model

	confirm       *huh.Form
	deleteConfirm *bool
	deleteID      int64

	loaded bool
	gen    uint64
	err    string
	width  int
	height int
}

// New creates the record list view.
func New(src Source, r ui.Refresher, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-3)
	l.Title = "Transport Records"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "Search records..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		list:          l,
		source:        src,
		refresher:     r,
		keys:          k,
		query:         records.DefaultQuery(),
		searchInput:   si,
		deleteConfirm: new(bool),
		width:         width,
		height:        height,
	}
}

// Init returns a command that loads the records.
func (m Model) Init() tea.Cmd {
	return m.LoadRecords()
}

// LoadRecords returns a tea.Cmd that fetches every record.
func (m Model) LoadRecords() tea.Cmd {
	src, r, gen := m.source, m.refresher, m.gen
	return func() tea.Msg {
		var rs []model.Record
		err := ui.WithReauth(context.Background(), r, func(ctx context.Context) error {
			var err error
			rs, err = src.ListRecords(ctx)
			return err
		})
		return RecordsLoadedMsg{Records: rs, Err: err, gen: gen}
	}
}

// Reset drops rows belonging to the previous session. Loads and deletes
// issued before the reset are ignored when they complete.
func (m *Model) Reset() {
	m.gen++
	m.all = nil
	m.loaded = false
	m.err = ""
	m.confirm = nil
	m.searchMode = false
	m.searchInput.Reset()
	m.query = records.DefaultQuery()
	m.list.SetItems(nil)
}

// InputActive reports whether the search bar or the delete confirmation
// owns the keyboard.
func (m Model) InputActive() bool {
	return m.searchMode || m.confirm != nil
}

// Query returns the current sort and search settings.
func (m Model) Query() records.Query {
	return m.query
}

// Update handles messages for the record list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case RecordsLoadedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		if msg.Err != nil {
			text, cmd := ui.HandleLoadError("fetch records", msg.Err)
			m.err = text
			return m, cmd
		}
		m.err = ""
		m.loaded = true
		m.all = msg.Records
		return m, m.applyView()

	case recordDeletedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.confirm = nil
		if msg.err != nil {
			text, cmd := ui.HandleLoadError("delete record", msg.err)
			m.err = text
			return m, cmd
		}
		return m, m.LoadRecords()

	case tea.KeyMsg:
		if m.confirm != nil {
			return m.updateConfirm(msg)
		}
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	if m.confirm != nil {
		return m.updateConfirm(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// applyView re-derives the visible rows from the loaded records and the
// current query.
func (m *Model) applyView() tea.Cmd {
	rows := records.View(m.all, m.query)
	items := make([]list.Item, len(rows))
	for i, r := range rows {
		items[i] = RecordItem{Record: r}
	}
	return m.list.SetItems(items)
}

// handleSearchKeys processes key input while in search mode. The view
// filters as the user types.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.searchInput.Blur()
		return m, nil

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		m.query.Term = ""
		return m, m.applyView()
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.query.Term = m.searchInput.Value()
	return m, tea.Batch(cmd, m.applyView())
}

// handleNormalKeys processes key input in normal (non-search) mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		if r, ok := m.selected(); ok {
			return m, ui.Navigate(route.RecordPath(r.ID))
		}
		return m, nil

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.SetValue(m.query.Term)
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.CycleSort):
		next := m.query.Key.Next()
		m.query.Order = records.Toggle(m.query.Key, m.query.Order, next)
		m.query.Key = next
		return m, m.applyView()

	case key.Matches(msg, m.keys.FlipOrder):
		m.query.Order = records.Toggle(m.query.Key, m.query.Order, m.query.Key)
		return m, m.applyView()

	case key.Matches(msg, m.keys.New):
		return m, ui.Navigate(route.PathRecordNew)

	case key.Matches(msg, m.keys.Edit):
		if r, ok := m.selected(); ok {
			return m, ui.Navigate(route.RecordEditPath(r.ID))
		}
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		if r, ok := m.selected(); ok {
			m.deleteID = r.ID
			*m.deleteConfirm = false
			m.confirm = m.buildDeleteConfirmForm(r)
			return m, m.confirm.Init()
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, m.LoadRecords()
	}

	// Delegate to the list for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) selected() (model.Record, bool) {
	item, ok := m.list.SelectedItem().(RecordItem)
	if !ok {
		return model.Record{}, false
	}
	return item.Record, true
}

// --- Delete Confirmation ---

func (m *Model) buildDeleteConfirmForm(r model.Record) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete record %s?", r.PONumber)).
				Description("Are you sure you want to delete this record?").
				Affirmative("Yes, delete").
				Negative("Cancel").
				Value(m.deleteConfirm),
		),
	).WithWidth(ui.FormWidth(m.width)).WithShowHelp(false)
}

func (m Model) updateConfirm(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.confirm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirm = f
	}

	switch m.confirm.State {
	case huh.StateCompleted:
		if *m.deleteConfirm {
			return m, m.deleteRecord(m.deleteID)
		}
		m.confirm = nil
		return m, nil
	case huh.StateAborted:
		m.confirm = nil
		return m, nil
	}
	return m, cmd
}

func (m Model) deleteRecord(id int64) tea.Cmd {
	src, r, gen := m.source, m.refresher, m.gen
	return func() tea.Msg {
		err := ui.WithReauth(context.Background(), r, func(ctx context.Context) error {
			return src.DeleteRecord(ctx, id)
		})
		return recordDeletedMsg{id: id, err: err, gen: gen}
	}
}

// View renders the record list view.
func (m Model) View() string {
	if m.confirm != nil {
		return lipgloss.NewStyle().Padding(1, 2).Render(m.confirm.View())
	}

	var parts []string
	if m.err != "" {
		parts = append(parts, theme.ErrorBannerStyle.Render(m.err))
	}
	if m.searchMode || m.query.Term != "" {
		parts = append(parts, lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View()))
	}

	switch {
	case !m.loaded && m.err == "":
		parts = append(parts, ui.CenteredText(m.width, m.height-2, "Loading records..."))
	case len(m.list.Items()) == 0 && m.loaded:
		parts = append(parts, m.renderEmptyState())
	case m.loaded:
		parts = append(parts, Header(m.query), m.list.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// renderEmptyState shows guidance text when no records are visible.
func (m Model) renderEmptyState() string {
	if m.query.Term != "" {
		return ui.CenteredText(m.width, m.height-2, "No matching records.\nTry a different search.")
	}
	return ui.CenteredText(m.width, m.height-2, "No records yet.\n\nPress n to add one.")
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-3)
	m.searchInput.Width = width - 4
}
