package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Decimal is a monetary or distance amount. The API serializes decimal
// columns as strings ("12.50") but aggregate endpoints return plain
// numbers, so both forms decode into the same value.
type Decimal struct {
	// Raw is the value exactly as the server sent it.
	Raw string
}

// NewDecimal returns a Decimal holding f formatted with two decimals.
func NewDecimal(f float64) Decimal {
	return Decimal{Raw: strconv.FormatFloat(f, 'f', 2, 64)}
}

// Float parses the raw value. ok is false for empty or non-numeric input.
func (d Decimal) Float() (v float64, ok bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(d.Raw), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// String returns the raw value.
func (d Decimal) String() string { return d.Raw }

// MarshalJSON writes the value as a JSON string, which the API accepts
// for every decimal field.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Raw)
}

// UnmarshalJSON accepts a JSON string, number or null.
func (d *Decimal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		d.Raw = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		d.Raw = s
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("decimal %s: %w", string(data), err)
	}
	d.Raw = num.String()
	return nil
}

// Record is a single transport run: one load moved from one location to
// another along with the costs and pay attached to it.
type Record struct {
	ID           int64   `json:"id,omitempty"`
	Date         string  `json:"date"`
	PONumber     string  `json:"po_number"`
	LocationFrom string  `json:"location_from"`
	LocationTo   string  `json:"location_to"`
	DHMiles      Decimal `json:"dh_miles"`
	Miles        Decimal `json:"miles"`
	Fuel         Decimal `json:"fuel"`
	Food         Decimal `json:"food"`
	Lumper       Decimal `json:"lumper"`
	Pay          Decimal `json:"pay"`
}

// MonthlyTotal is one bar of the dashboard's monthly chart.
type MonthlyTotal struct {
	Month string  `json:"month"`
	Miles Decimal `json:"miles"`
	Pay   Decimal `json:"pay"`
}

// Dashboard holds the aggregate metrics computed by the API.
type Dashboard struct {
	TotalMiles    Decimal        `json:"totalMiles"`
	TotalPay      Decimal        `json:"totalPay"`
	RecordCount   int            `json:"recordCount"`
	RecentRecords []Record       `json:"recentRecords"`
	MonthlyData   []MonthlyTotal `json:"monthlyData"`
}
