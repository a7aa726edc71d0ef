package records

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/haulbook/internal/model"
)

// DateLayout is the record date format the API uses.
const DateLayout = "2006-01-02"

// ErrInvalidDraft is wrapped by every Draft validation error.
var ErrInvalidDraft = errors.New("invalid record")

// Draft holds the record form's raw text values.
type Draft struct {
	Date         string
	PONumber     string
	LocationFrom string
	LocationTo   string
	DHMiles      string
	Miles        string
	Fuel         string
	Food         string
	Lumper       string
	Pay          string
}

// DraftFrom fills a draft from an existing record for editing.
func DraftFrom(r model.Record) Draft {
	return Draft{
		Date:         r.Date,
		PONumber:     r.PONumber,
		LocationFrom: r.LocationFrom,
		LocationTo:   r.LocationTo,
		DHMiles:      r.DHMiles.Raw,
		Miles:        r.Miles.Raw,
		Fuel:         r.Fuel.Raw,
		Food:         r.Food.Raw,
		Lumper:       r.Lumper.Raw,
		Pay:          r.Pay.Raw,
	}
}

type draftField struct {
	label   string
	value   string
	numeric bool
}

func (d Draft) fields() []draftField {
	return []draftField{
		{label: "Date", value: d.Date},
		{label: "PO Number", value: d.PONumber},
		{label: "Location From", value: d.LocationFrom},
		{label: "Location To", value: d.LocationTo},
		{label: "DH Miles", value: d.DHMiles, numeric: true},
		{label: "Miles", value: d.Miles, numeric: true},
		{label: "Fuel", value: d.Fuel, numeric: true},
		{label: "Food", value: d.Food, numeric: true},
		{label: "Lumper", value: d.Lumper, numeric: true},
		{label: "Pay", value: d.Pay, numeric: true},
	}
}

// Validate checks that every field is filled, the date is YYYY-MM-DD and
// the amounts are numbers.
func (d Draft) Validate() error {
	for _, f := range d.fields() {
		v := strings.TrimSpace(f.value)
		if v == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidDraft, f.label)
		}
		if f.numeric {
			if err := ValidateAmount(v); err != nil {
				return fmt.Errorf("%w: %s %v", ErrInvalidDraft, f.label, err)
			}
		}
	}
	if err := ValidateDate(d.Date); err != nil {
		return fmt.Errorf("%w: Date %v", ErrInvalidDraft, err)
	}
	return nil
}

// ValidateDate reports whether s is a YYYY-MM-DD date.
func ValidateDate(s string) error {
	if _, err := time.Parse(DateLayout, strings.TrimSpace(s)); err != nil {
		return errors.New("must be YYYY-MM-DD")
	}
	return nil
}

// ValidateAmount reports whether s is a decimal number.
func ValidateAmount(s string) error {
	if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
		return errors.New("must be a number")
	}
	return nil
}

// ToRecord validates the draft and converts it into a record with id.
func (d Draft) ToRecord(id int64) (model.Record, error) {
	if err := d.Validate(); err != nil {
		return model.Record{}, err
	}
	amount := func(s string) model.Decimal {
		return model.Decimal{Raw: strings.TrimSpace(s)}
	}
	return model.Record{
		ID:           id,
		Date:         strings.TrimSpace(d.Date),
		PONumber:     strings.TrimSpace(d.PONumber),
		LocationFrom: strings.TrimSpace(d.LocationFrom),
		LocationTo:   strings.TrimSpace(d.LocationTo),
		DHMiles:      amount(d.DHMiles),
		Miles:        amount(d.Miles),
		Fuel:         amount(d.Fuel),
		Food:         amount(d.Food),
		Lumper:       amount(d.Lumper),
		Pay:          amount(d.Pay),
	}, nil
}
