package model

import (
	"encoding/json"
	"fmt"
)

// Notification represents an alert surfaced to the user by the API,
// pointing at a screen inside the application.
type Notification struct {
	// ID is the server-assigned identifier for this notification.
	ID string `json:"id"`

	// Message is the human-readable notification text.
	Message string `json:"message"`

	// Link is the in-app path to open when the notification is selected.
	Link string `json:"link"`

	// IsRead indicates whether the user has acknowledged this notification.
	IsRead bool `json:"isRead"`
}

// UnmarshalJSON accepts the id as either a JSON string or a number, since
// the API serializes primary keys as integers.
func (n *Notification) UnmarshalJSON(data []byte) error {
	type plain Notification
	var raw struct {
		plain
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*n = Notification(raw.plain)
	id, err := decodeID(raw.ID)
	if err != nil {
		return fmt.Errorf("decoding notification id: %w", err)
	}
	n.ID = id
	return nil
}

// decodeID turns a JSON string or number into its string form.
func decodeID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return "", err
	}
	return num.String(), nil
}
