package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/nhle/haulbook/internal/model"
)

// Credentials is the body of POST /login/.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration is the body of POST /register/. Password2 is the
// confirmation field; the server validates that it matches.
type Registration struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

// Login exchanges credentials for a session bundle.
func (c *Client) Login(ctx context.Context, creds Credentials) (*model.Session, error) {
	var s model.Session
	if err := c.Post(ctx, "/login/", creds, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Register creates an account and returns its session bundle.
func (c *Client) Register(ctx context.Context, reg Registration) (*model.Session, error) {
	var s model.Session
	if err := c.Post(ctx, "/register/", reg, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// RefreshToken exchanges a refresh token for a new access token.
func (c *Client) RefreshToken(ctx context.Context, refresh string) (*model.TokenPair, error) {
	body := struct {
		Refresh string `json:"refresh"`
	}{Refresh: refresh}

	var pair model.TokenPair
	if err := c.Post(ctx, "/token/refresh/", body, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

// ListRecords returns every record visible to the signed-in user.
func (c *Client) ListRecords(ctx context.Context) ([]model.Record, error) {
	var records []model.Record
	if err := c.Get(ctx, "/records/", &records); err != nil {
		return nil, err
	}
	return records, nil
}

// GetRecord fetches one record.
func (c *Client) GetRecord(ctx context.Context, id int64) (*model.Record, error) {
	var r model.Record
	if err := c.Get(ctx, recordPath(id), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRecord stores a new record and returns the server's copy.
func (c *Client) CreateRecord(ctx context.Context, r model.Record) (*model.Record, error) {
	r.ID = 0
	var created model.Record
	if err := c.Post(ctx, "/records/add/", r, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateRecord replaces record id with r.
func (c *Client) UpdateRecord(ctx context.Context, id int64, r model.Record) (*model.Record, error) {
	r.ID = id
	var updated model.Record
	if err := c.Put(ctx, recordPath(id), r, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteRecord removes record id.
func (c *Client) DeleteRecord(ctx context.Context, id int64) error {
	return c.Delete(ctx, recordPath(id))
}

// Dashboard returns the aggregate metrics.
func (c *Client) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	var d model.Dashboard
	if err := c.Get(ctx, "/dashboard/", &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// ListNotifications returns the user's notifications. With showAll false
// the server may omit already read ones.
func (c *Client) ListNotifications(ctx context.Context, showAll bool) ([]model.Notification, error) {
	q := url.Values{}
	q.Set("show_all", strconv.FormatBool(showAll))

	var ns []model.Notification
	if err := c.Get(ctx, "/notifications/?"+q.Encode(), &ns); err != nil {
		return nil, err
	}
	return ns, nil
}

// MarkNotificationRead flags notification id as read on the server.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	body := struct {
		IsRead bool `json:"isRead"`
	}{IsRead: true}

	path := fmt.Sprintf("/notifications/%s/read/", url.PathEscape(id))
	return c.Post(ctx, path, body, nil)
}

func recordPath(id int64) string {
	return fmt.Sprintf("/records/%d/", id)
}
