// Package session owns the persisted credential bundle of the signed-in
// user. The bundle lives in exactly one durable slot; its presence with a
// non-empty access token is what "authenticated" means.
package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nhle/haulbook/internal/model"
)

// SlotKey is the backend key holding the serialized session.
const SlotKey = "user"

// Store reads and writes the session slot. It keeps no copy of the
// session in memory: every read goes to the backend, so a token rotated
// by one caller is seen by the next.
type Store struct {
	backend Backend
	logger  *zap.Logger
}

// NewStore returns a Store over backend. A nil logger discards output.
func NewStore(backend Backend, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{backend: backend, logger: logger.Named("session")}
}

// Save persists s in a single write, replacing any previous session.
func (st *Store) Save(s model.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := st.backend.Set(SlotKey, data); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Load returns the persisted session. A missing, unreadable or
// structurally invalid slot is reported as absent, never as an error.
func (st *Store) Load() (*model.Session, bool) {
	data, err := st.backend.Get(SlotKey)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			st.logger.Warn("reading session slot", zap.Error(err))
		}
		return nil, false
	}

	s, err := parse(data)
	if err != nil {
		st.logger.Debug("ignoring invalid session slot", zap.Error(err))
		return nil, false
	}
	return s, true
}

// CurrentUser returns the persisted session for identity display.
func (st *Store) CurrentUser() (*model.Session, bool) {
	return st.Load()
}

// Clear removes the persisted session.
func (st *Store) Clear() error {
	if err := st.backend.Remove(SlotKey); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// IsAuthenticated reports whether a valid session with an access token
// is persisted.
func (st *Store) IsAuthenticated() bool {
	_, ok := st.Load()
	return ok
}

// AccessToken returns the current access token, or "" when signed out.
func (st *Store) AccessToken() string {
	s, ok := st.Load()
	if !ok {
		return ""
	}
	return s.Access
}

// RefreshToken returns the current refresh token, or "" when signed out.
func (st *Store) RefreshToken() string {
	s, ok := st.Load()
	if !ok {
		return ""
	}
	return s.Refresh
}

// UpdateTokens replaces the access token, and the refresh token when
// refresh is non-nil and non-empty, then re-persists the session. It does
// nothing when no session exists.
func (st *Store) UpdateTokens(access string, refresh *string) error {
	s, ok := st.Load()
	if !ok {
		st.logger.Debug("token update without a session; ignoring")
		return nil
	}

	s.Access = access
	if refresh != nil && *refresh != "" {
		s.Refresh = *refresh
	}
	return st.Save(*s)
}

// parse decodes and validates a stored payload.
func parse(data []byte) (*model.Session, error) {
	var raw struct {
		Access  string          `json:"access"`
		Refresh string          `json:"refresh"`
		User    json.RawMessage `json:"user"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	if raw.Access == "" {
		return nil, errors.New("session has no access token")
	}

	s := &model.Session{Access: raw.Access, Refresh: raw.Refresh}
	if len(raw.User) == 0 || string(raw.User) == "null" {
		return s, nil
	}
	if err := json.Unmarshal(raw.User, &s.User); err != nil {
		return nil, fmt.Errorf("decoding session user: %w", err)
	}
	return s, nil
}
