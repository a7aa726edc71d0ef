package dashboard

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/haulbook/internal/keys"
	"github.com/nhle/haulbook/internal/model"
	"github.com/nhle/haulbook/internal/records"
	"github.com/nhle/haulbook/internal/route"
	"github.com/nhle/haulbook/internal/theme"
	"github.com/nhle/haulbook/internal/ui"
)

// LoadedMsg carries the dashboard aggregates.
type LoadedMsg struct {
	Data *model.Dashboard
	Err  error
	gen  uint64
}

// Source fetches the dashboard aggregates.
type Source interface {
	Dashboard(ctx context.Context) (*model.Dashboard, error)
}

// Model is the dashboard view: totals, the most recent records and a
// monthly miles/pay chart.
type Model struct {
	source    Source
	refresher ui.Refresher
	keys      *keys.KeyMap
	data      *model.Dashboard
	err       string
	loading   bool
	cursor    int
	gen       uint64
	spinner   spinner.Model
	width     int
	height    int
}

// New creates the dashboard view.
func New(src Source, r ui.Refresher, k *keys.KeyMap, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		source:    src,
		refresher: r,
		keys:      k,
		spinner:   sp,
		width:     width,
		height:    height,
	}
}

// Load fetches fresh aggregates.
func (m *Model) Load() tea.Cmd {
	m.loading = true
	m.err = ""
	src, r, gen := m.source, m.refresher, m.gen
	fetch := func() tea.Msg {
		var data *model.Dashboard
		err := ui.WithReauth(context.Background(), r, func(ctx context.Context) error {
			var err error
			data, err = src.Dashboard(ctx)
			return err
		})
		return LoadedMsg{Data: data, Err: err, gen: gen}
	}
	return tea.Batch(m.spinner.Tick, fetch)
}

// Reset drops data belonging to the previous session. Loads issued
// before the reset are ignored when they complete.
func (m *Model) Reset() {
	m.gen++
	m.loading = false
	m.data = nil
	m.err = ""
	m.cursor = 0
}

// Update handles messages for the dashboard.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.loading = false
		if msg.Err != nil {
			text, cmd := ui.HandleLoadError("fetch dashboard data", msg.Err)
			m.err = text
			return m, cmd
		}
		m.data = msg.Data
		m.cursor = 0
		return m, nil

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Down):
			if m.data != nil && m.cursor < len(m.data.RecentRecords)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Select):
			if m.data != nil && m.cursor < len(m.data.RecentRecords) {
				return m, ui.Navigate(route.RecordPath(m.data.RecentRecords[m.cursor].ID))
			}
		case key.Matches(msg, m.keys.New):
			return m, ui.Navigate(route.PathRecordNew)
		case key.Matches(msg, m.keys.Refresh):
			return m, m.Load()
		}
	}
	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.err != "" {
		return ui.CenteredText(m.width, m.height, theme.ErrorBannerStyle.Render(m.err))
	}
	if m.data == nil {
		return ui.CenteredText(m.width, m.height, m.spinner.View()+" Loading dashboard...")
	}

	d := m.data
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		card("Total Miles", records.FormatAmount(d.TotalMiles)),
		card("Total Pay", "$"+records.FormatAmount(d.TotalPay)),
		card("Records", fmt.Sprintf("%d", d.RecordCount)),
	)

	sections := []string{
		cards,
		"",
		theme.TitleStyle.Render("Recent Records"),
		m.renderRecent(),
		"",
		theme.TitleStyle.Render("Monthly Miles / Pay"),
		RenderMonthly(d.MonthlyData, m.width-30),
		"",
		theme.HelpStyle.Render("enter open | n add new record | 2 view all records"),
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func card(label, value string) string {
	return theme.BorderStyle.
		Padding(0, 2).
		MarginRight(2).
		Render(theme.LabelStyle.Render(label) + "\n" + lipgloss.NewStyle().Bold(true).Render(value))
}

func (m Model) renderRecent() string {
	if len(m.data.RecentRecords) == 0 {
		return theme.DimmedStyle.Render("No records yet.")
	}
	lines := make([]string, 0, len(m.data.RecentRecords))
	for i, r := range m.data.RecentRecords {
		line := fmt.Sprintf("%s - %s - $%s", r.Date, r.PONumber, records.FormatAmount(r.Pay))
		if i == m.cursor {
			lines = append(lines, theme.SelectedItemStyle.Render(line))
		} else {
			lines = append(lines, theme.ListItemStyle.Render(line))
		}
	}
	return strings.Join(lines, "\n")
}

// RenderMonthly draws one miles bar and one pay bar per month, each
// scaled to the largest value of its series.
func RenderMonthly(months []model.MonthlyTotal, width int) string {
	if len(months) == 0 {
		return theme.DimmedStyle.Render("No monthly data.")
	}
	if width < 10 {
		width = 10
	}

	var maxMiles, maxPay float64
	for _, mt := range months {
		if v, _ := mt.Miles.Float(); v > maxMiles {
			maxMiles = v
		}
		if v, _ := mt.Pay.Float(); v > maxPay {
			maxPay = v
		}
	}

	var b strings.Builder
	for i, mt := range months {
		miles, _ := mt.Miles.Float()
		pay, _ := mt.Pay.Float()
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%-8s M %s %s\n", mt.Month,
			theme.BarStyle.Render(bar(miles, maxMiles, width)),
			records.FormatAmount(mt.Miles))
		fmt.Fprintf(&b, "%-8s P %s $%s", "",
			theme.AmountStyle(pay).Render(bar(pay, maxPay, width)),
			records.FormatAmount(mt.Pay))
	}
	return b.String()
}

func bar(v, peak float64, width int) string {
	if peak <= 0 || v <= 0 {
		return ""
	}
	n := int(v / peak * float64(width))
	if n < 1 {
		n = 1
	}
	return strings.Repeat("█", n)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
