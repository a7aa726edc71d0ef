package recordform

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/nhle/haulbook/internal/model"
	"github.com/nhle/haulbook/internal/records"
	"github.com/nhle/haulbook/internal/route"
	"github.com/nhle/haulbook/internal/ui"
)

// SavedMsg is dispatched when a record was created or updated.
type SavedMsg struct {
	Record *model.Record
}

// editLoadedMsg carries the record fetched for editing.
type editLoadedMsg struct {
	id     int64
	record *model.Record
	err    error
}

// savedResultMsg carries the outcome of a save request.
type savedResultMsg struct {
	record *model.Record
	err    error
}

// Source is the subset of the API the form needs.
type Source interface {
	GetRecord(ctx context.Context, id int64) (*model.Record, error)
	CreateRecord(ctx context.Context, r model.Record) (*model.Record, error)
	UpdateRecord(ctx context.Context, id int64, r model.Record) (*model.Record, error)
}

// Model is the Bubble Tea model for the record create/edit form.
type Model struct {
	source    Source
	refresher ui.Refresher
	form      *huh.Form
	// fb lives on the heap so huh's Value() pointers stay valid across
	// Bubble Tea model copies.
	fb       *records.Draft
	editMode bool
	editID   int64
	loading  bool
	saving   bool
	err      string
	width    int
	height   int
}

// New creates a new record form model.
func New(src Source, r ui.Refresher, width, height int) Model {
	return Model{
		source:    src,
		refresher: r,
		fb:        &records.Draft{},
		width:     width,
		height:    height,
	}
}

// StartCreate initializes an empty form for a new record.
func (m *Model) StartCreate() tea.Cmd {
	m.editMode = false
	m.editID = 0
	m.loading = false
	m.saving = false
	m.err = ""
	*m.fb = records.Draft{}
	m.form = m.buildForm()
	return m.form.Init()
}

// StartEdit fetches record id and fills the form with it.
func (m *Model) StartEdit(id int64) tea.Cmd {
	m.editMode = true
	m.editID = id
	m.loading = true
	m.saving = false
	m.err = ""
	m.form = nil
	src, r := m.source, m.refresher
	return func() tea.Msg {
		var rec *model.Record
		err := ui.WithReauth(context.Background(), r, func(ctx context.Context) error {
			var err error
			rec, err = src.GetRecord(ctx, id)
			return err
		})
		return editLoadedMsg{id: id, record: rec, err: err}
	}
}

// Update handles messages for the record form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case editLoadedMsg:
		if !m.editMode || msg.id != m.editID {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			text, cmd := ui.HandleLoadError("fetch record", msg.err)
			m.err = text
			return m, cmd
		}
		*m.fb = records.DraftFrom(*msg.record)
		m.form = m.buildForm()
		return m, m.form.Init()

	case savedResultMsg:
		m.saving = false
		if msg.err != nil {
			action := "create record"
			if m.editMode {
				action = "update record"
			}
			text, cmd := ui.HandleLoadError(action, msg.err)
			m.err = text
			m.form = m.buildForm()
			return m, tea.Batch(cmd, m.form.Init())
		}
		rec := msg.record
		return m, func() tea.Msg { return SavedMsg{Record: rec} }
	}

	if m.form == nil || m.saving {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		return m.handleSubmit()
	case huh.StateAborted:
		return m, ui.Navigate(route.PathRecords)
	}
	return m, cmd
}

func (m Model) handleSubmit() (Model, tea.Cmd) {
	rec, err := m.fb.ToRecord(m.editID)
	if err != nil {
		m.err = err.Error()
		m.form = m.buildForm()
		return m, m.form.Init()
	}

	m.saving = true
	src, r := m.source, m.refresher
	editMode, id := m.editMode, m.editID
	return m, func() tea.Msg {
		var saved *model.Record
		err := ui.WithReauth(context.Background(), r, func(ctx context.Context) error {
			var err error
			if editMode {
				saved, err = src.UpdateRecord(ctx, id, rec)
			} else {
				saved, err = src.CreateRecord(ctx, rec)
			}
			return err
		})
		return savedResultMsg{record: saved, err: err}
	}
}

// View renders the record form.
func (m Model) View() string {
	title := "Add New Record"
	if m.editMode {
		title = "Edit Record"
	}
	switch {
	case m.loading:
		return ui.RenderForm(title, "", "Loading...")
	case m.saving:
		return ui.RenderForm(title, m.err, "Saving...")
	case m.form == nil:
		return ui.RenderForm(title, m.err, "")
	}
	return ui.RenderForm(title, m.err, m.form.View())
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	amount := func(title string, v *string) huh.Field {
		return huh.NewInput().
			Title(title).
			Value(v).
			Validate(func(s string) error {
				if err := ui.ValidateRequired(title)(s); err != nil {
					return err
				}
				return records.ValidateAmount(s)
			})
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Date").
				Placeholder("YYYY-MM-DD").
				Value(&m.fb.Date).
				Validate(records.ValidateDate),
			huh.NewInput().
				Title("PO Number").
				Value(&m.fb.PONumber).
				Validate(ui.ValidateRequired("PO Number")),
			huh.NewInput().
				Title("Location From").
				Value(&m.fb.LocationFrom).
				Validate(ui.ValidateRequired("Location From")),
			huh.NewInput().
				Title("Location To").
				Value(&m.fb.LocationTo).
				Validate(ui.ValidateRequired("Location To")),
		),
		huh.NewGroup(
			amount("DH Miles", &m.fb.DHMiles),
			amount("Miles", &m.fb.Miles),
			amount("Fuel", &m.fb.Fuel),
			amount("Food", &m.fb.Food),
			amount("Lumper", &m.fb.Lumper),
			amount("Pay", &m.fb.Pay),
		),
	).WithWidth(ui.FormWidth(m.width)).WithHeight(ui.FormHeight(m.height))
}
