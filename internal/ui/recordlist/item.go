package recordlist

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/haulbook/internal/model"
	"github.com/nhle/haulbook/internal/records"
	"github.com/nhle/haulbook/internal/theme"
)

// RecordItem wraps a model.Record so it can be used in a bubbles/list.
type RecordItem struct {
	Record model.Record
}

// FilterValue returns the string used for list filtering.
func (i RecordItem) FilterValue() string { return i.Record.PONumber }

// Title returns the PO number for the list.
func (i RecordItem) Title() string { return i.Record.PONumber }

// Description returns a short summary line for the list.
func (i RecordItem) Description() string {
	return fmt.Sprintf("%s → %s", i.Record.LocationFrom, i.Record.LocationTo)
}

// ItemDelegate implements list.ItemDelegate for rendering record rows as
// table lines.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single record row.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ri, ok := item.(RecordItem)
	if !ok {
		return
	}

	line := Row(ri.Record)
	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}
	fmt.Fprint(w, line)
}

// Row formats a record as a fixed-width table line.
func Row(r model.Record) string {
	pay, _ := r.Pay.Float()
	return fmt.Sprintf("%-10s  %-12s  %-16s  %-16s  %10s  %s",
		r.Date,
		truncate(r.PONumber, 12),
		truncate(r.LocationFrom, 16),
		truncate(r.LocationTo, 16),
		records.FormatAmount(r.Miles),
		theme.AmountStyle(pay).Render("$"+records.FormatAmount(r.Pay)),
	)
}

// Header returns the column titles aligned with Row, marking the sorted
// column with an arrow.
func Header(q records.Query) string {
	label := func(k records.SortKey) string {
		l := k.Label()
		if q.Key == k {
			if q.Order == records.Asc {
				return l + " ▲"
			}
			return l + " ▼"
		}
		return l
	}
	line := fmt.Sprintf("%-10s  %-12s  %-16s  %-16s  %10s  %s",
		label(records.SortDate),
		label(records.SortPONumber),
		label(records.SortLocationFrom),
		label(records.SortLocationTo),
		label(records.SortMiles),
		label(records.SortPay),
	)
	return lipgloss.NewStyle().Bold(true).Foreground(theme.ColorGray).PaddingLeft(2).Render(line)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
