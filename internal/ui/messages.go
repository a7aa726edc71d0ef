package ui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/haulbook/internal/api"
	"github.com/nhle/haulbook/internal/model"
)

// SessionExpiredText is shown when the server rejects the stored tokens.
const SessionExpiredText = "Your session has expired. Please log in again."

// NavigateMsg asks the root model to switch to Path. Every navigation
// passes through the route guard.
type NavigateMsg struct {
	Path string
}

// Navigate returns a command emitting NavigateMsg for path.
func Navigate(path string) tea.Cmd {
	return func() tea.Msg { return NavigateMsg{Path: path} }
}

// SessionExpiredMsg reports that a request failed authentication even
// after a token refresh.
type SessionExpiredMsg struct{}

// SessionExpired is a command emitting SessionExpiredMsg.
func SessionExpired() tea.Msg { return SessionExpiredMsg{} }

// StatusMsg carries a transient status bar message.
type StatusMsg struct {
	Text string
}

// Refresher renews the stored access token.
type Refresher interface {
	RefreshCurrent(ctx context.Context) (*model.TokenPair, error)
}

// WithReauth runs fn and, when it fails authentication, refreshes the
// access token once and runs fn again. The error of the last run is
// returned.
func WithReauth(ctx context.Context, r Refresher, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	if err == nil || r == nil || !api.IsAuthError(err) {
		return err
	}
	if _, rerr := r.RefreshCurrent(ctx); rerr != nil {
		return err
	}
	return fn(ctx)
}

// FailureText renders the generic retry prompt for a failed action, for
// example "Failed to fetch records. Please try again."
func FailureText(action string) string {
	return fmt.Sprintf("Failed to %s. Please try again.", action)
}

// HandleLoadError converts a load failure into the text a view shows
// and, for authentication failures, the command that reports the expired
// session.
func HandleLoadError(action string, err error) (string, tea.Cmd) {
	if api.IsAuthError(err) {
		return SessionExpiredText, SessionExpired
	}
	return FailureText(action), nil
}
