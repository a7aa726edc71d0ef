// Package records holds the list operations the record screens apply
// client-side: sorting, searching and amount formatting.
package records

import (
	"sort"
	"strconv"
	"strings"

	"github.com/nhle/haulbook/internal/model"
)

// SortKey names a sortable record column.
type SortKey string

const (
	SortDate         SortKey = "date"
	SortPONumber     SortKey = "po_number"
	SortLocationFrom SortKey = "location_from"
	SortLocationTo   SortKey = "location_to"
	SortMiles        SortKey = "miles"
	SortPay          SortKey = "pay"
)

// SortKeys lists the columns in the order Tab cycles through them.
var SortKeys = []SortKey{
	SortDate,
	SortPONumber,
	SortLocationFrom,
	SortLocationTo,
	SortMiles,
	SortPay,
}

// Label returns the column header for k.
func (k SortKey) Label() string {
	switch k {
	case SortDate:
		return "Date"
	case SortPONumber:
		return "PO Number"
	case SortLocationFrom:
		return "From"
	case SortLocationTo:
		return "To"
	case SortMiles:
		return "Miles"
	case SortPay:
		return "Pay"
	}
	return string(k)
}

// Next returns the column after k, wrapping around.
func (k SortKey) Next() SortKey {
	for i, key := range SortKeys {
		if key == k {
			return SortKeys[(i+1)%len(SortKeys)]
		}
	}
	return SortKeys[0]
}

// SortOrder is the sort direction.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Flip returns the opposite direction.
func (o SortOrder) Flip() SortOrder {
	if o == Asc {
		return Desc
	}
	return Asc
}

// Toggle returns the order after selecting key while the list is sorted
// by current in order: re-selecting an ascending column makes it
// descending, anything else sorts ascending.
func Toggle(current SortKey, order SortOrder, key SortKey) SortOrder {
	if current == key && order == Asc {
		return Desc
	}
	return Asc
}

// Query controls how a record list is presented.
type Query struct {
	Term  string
	Key   SortKey
	Order SortOrder
}

// DefaultQuery sorts newest first with no search term.
func DefaultQuery() Query {
	return Query{Key: SortDate, Order: Desc}
}

// Sort returns a sorted copy of rs. Amount columns compare numerically,
// text columns lexically. Equal rows keep their relative order.
func Sort(rs []model.Record, key SortKey, order SortOrder) []model.Record {
	out := append([]model.Record(nil), rs...)
	sort.SliceStable(out, func(i, j int) bool {
		c := compare(out[i], out[j], key)
		if order == Desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

func compare(a, b model.Record, key SortKey) int {
	switch key {
	case SortMiles:
		return compareAmounts(a.Miles, b.Miles)
	case SortPay:
		return compareAmounts(a.Pay, b.Pay)
	case SortPONumber:
		return strings.Compare(a.PONumber, b.PONumber)
	case SortLocationFrom:
		return strings.Compare(a.LocationFrom, b.LocationFrom)
	case SortLocationTo:
		return strings.Compare(a.LocationTo, b.LocationTo)
	default:
		return strings.Compare(a.Date, b.Date)
	}
}

func compareAmounts(a, b model.Decimal) int {
	af, _ := a.Float()
	bf, _ := b.Float()
	switch {
	case af < bf:
		return -1
	case af > bf:
		return 1
	}
	return 0
}

// Filter returns the records where any field contains term, ignoring
// case. An empty term matches everything.
func Filter(rs []model.Record, term string) []model.Record {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return append([]model.Record(nil), rs...)
	}

	var out []model.Record
	for _, r := range rs {
		for _, v := range fields(r) {
			if strings.Contains(strings.ToLower(v), term) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

func fields(r model.Record) []string {
	return []string{
		strconv.FormatInt(r.ID, 10),
		r.Date,
		r.PONumber,
		r.LocationFrom,
		r.LocationTo,
		r.DHMiles.Raw,
		r.Miles.Raw,
		r.Fuel.Raw,
		r.Food.Raw,
		r.Lumper.Raw,
		r.Pay.Raw,
	}
}

// View sorts rs and then applies the search term.
func View(rs []model.Record, q Query) []model.Record {
	return Filter(Sort(rs, q.Key, q.Order), q.Term)
}

// FormatAmount renders d with two decimals, or "0.00" when d is not a
// number.
func FormatAmount(d model.Decimal) string {
	f, ok := d.Float()
	if !ok {
		return "0.00"
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}
