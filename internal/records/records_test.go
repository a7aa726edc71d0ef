package records_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/haulbook/internal/model"
	"github.com/nhle/haulbook/internal/records"
)

func rec(id int64, date, po, from, to, miles, pay string) model.Record {
	return model.Record{
		ID:           id,
		Date:         date,
		PONumber:     po,
		LocationFrom: from,
		LocationTo:   to,
		Miles:        model.Decimal{Raw: miles},
		Pay:          model.Decimal{Raw: pay},
	}
}

func sample() []model.Record {
	return []model.Record{
		rec(1, "2024-03-02", "PO-200", "Dallas", "Memphis", "452.5", "1300"),
		rec(2, "2024-01-15", "PO-100", "Austin", "Tulsa", "90", "400"),
		rec(3, "2024-02-20", "PO-300", "El Paso", "Dallas", "1000", "2500.75"),
	}
}

func idsOf(rs []model.Record) []int64 {
	out := make([]int64, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}

func TestToggle(t *testing.T) {
	assert.Equal(t, records.Desc, records.Toggle(records.SortDate, records.Asc, records.SortDate))
	assert.Equal(t, records.Asc, records.Toggle(records.SortDate, records.Desc, records.SortDate))
	assert.Equal(t, records.Asc, records.Toggle(records.SortDate, records.Asc, records.SortPay))
	assert.Equal(t, records.Asc, records.Toggle(records.SortDate, records.Desc, records.SortPay))
}

func TestSortText(t *testing.T) {
	in := sample()
	assert.Equal(t, []int64{2, 3, 1}, idsOf(records.Sort(in, records.SortDate, records.Asc)))
	assert.Equal(t, []int64{1, 3, 2}, idsOf(records.Sort(in, records.SortDate, records.Desc)))
	assert.Equal(t, []int64{2, 1, 3}, idsOf(records.Sort(in, records.SortLocationFrom, records.Asc)))

	// The input is not reordered.
	assert.Equal(t, []int64{1, 2, 3}, idsOf(in))
}

func TestSortAmountsNumerically(t *testing.T) {
	in := sample()
	assert.Equal(t, []int64{2, 1, 3}, idsOf(records.Sort(in, records.SortMiles, records.Asc)))
	assert.Equal(t, []int64{3, 1, 2}, idsOf(records.Sort(in, records.SortPay, records.Desc)))
}

func TestFilterCaseInsensitiveAcrossFields(t *testing.T) {
	in := sample()
	assert.Equal(t, []int64{1, 3}, idsOf(records.Filter(in, "dALLas")))
	assert.Equal(t, []int64{2}, idsOf(records.Filter(in, "po-100")))
	assert.Equal(t, []int64{3}, idsOf(records.Filter(in, "2500.75")))
	assert.Empty(t, records.Filter(in, "chicago"))
	assert.Len(t, records.Filter(in, "  "), 3)
}

func TestView(t *testing.T) {
	got := records.View(sample(), records.Query{Term: "dallas", Key: records.SortPay, Order: records.Asc})
	assert.Equal(t, []int64{1, 3}, idsOf(got))

	def := records.DefaultQuery()
	assert.Equal(t, []int64{1, 3, 2}, idsOf(records.View(sample(), def)))
}

func TestSortKeyCycle(t *testing.T) {
	k := records.SortDate
	seen := map[records.SortKey]bool{}
	for range records.SortKeys {
		seen[k] = true
		k = k.Next()
	}
	assert.Equal(t, records.SortDate, k)
	assert.Len(t, seen, len(records.SortKeys))
	assert.Equal(t, "PO Number", records.SortPONumber.Label())
	assert.Equal(t, records.Asc, records.Desc.Flip())
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "12.50", records.FormatAmount(model.Decimal{Raw: "12.5"}))
	assert.Equal(t, "1300.00", records.FormatAmount(model.Decimal{Raw: "1300"}))
	assert.Equal(t, "0.00", records.FormatAmount(model.Decimal{Raw: "abc"}))
	assert.Equal(t, "0.00", records.FormatAmount(model.Decimal{}))
}

func validDraft() records.Draft {
	return records.Draft{
		Date:         "2024-03-02",
		PONumber:     "PO-1",
		LocationFrom: "Dallas",
		LocationTo:   "Memphis",
		DHMiles:      "12",
		Miles:        "452.5",
		Fuel:         "210.10",
		Food:         "25",
		Lumper:       "0",
		Pay:          "1300",
	}
}

func TestDraftValidate(t *testing.T) {
	require.NoError(t, validDraft().Validate())

	tests := []struct {
		name   string
		mutate func(*records.Draft)
		want   string
	}{
		{"missing po", func(d *records.Draft) { d.PONumber = " " }, "PO Number is required"},
		{"bad date", func(d *records.Draft) { d.Date = "03/02/2024" }, "Date must be YYYY-MM-DD"},
		{"bad amount", func(d *records.Draft) { d.Fuel = "ten" }, "Fuel must be a number"},
		{"missing pay", func(d *records.Draft) { d.Pay = "" }, "Pay is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.mutate(&d)
			err := d.Validate()
			require.ErrorIs(t, err, records.ErrInvalidDraft)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDraftRoundTrip(t *testing.T) {
	r, err := validDraft().ToRecord(7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), r.ID)
	assert.Equal(t, "452.5", r.Miles.Raw)

	back := records.DraftFrom(r)
	assert.Equal(t, validDraft(), back)

	_, err = records.Draft{}.ToRecord(0)
	assert.ErrorIs(t, err, records.ErrInvalidDraft)
}
