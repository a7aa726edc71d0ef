// Package auth performs login, registration and token refresh against
// the API and records the outcome in the session store.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nhle/haulbook/internal/api"
	"github.com/nhle/haulbook/internal/model"
	"github.com/nhle/haulbook/internal/session"
)

var (
	// ErrAuthFailed wraps every failed login, registration or refresh.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrPasswordMismatch is returned before any request is made when a
	// password and its confirmation differ.
	ErrPasswordMismatch = errors.New("passwords don't match")

	// ErrNoSession is returned by RefreshCurrent when nobody is signed in.
	ErrNoSession = errors.New("no session to refresh")
)

// FieldError reports a required form field left empty.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// Failure is the error returned when the server or the network rejects an
// authentication exchange. It matches ErrAuthFailed with errors.Is and
// unwraps to the underlying api error.
type Failure struct {
	Op  string
	Err error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v: %v", f.Op, ErrAuthFailed, f.Err)
}

func (f *Failure) Unwrap() []error {
	return []error{ErrAuthFailed, f.Err}
}

// API is the subset of the REST client the gateway needs.
type API interface {
	Login(ctx context.Context, creds api.Credentials) (*model.Session, error)
	Register(ctx context.Context, reg api.Registration) (*model.Session, error)
	RefreshToken(ctx context.Context, refresh string) (*model.TokenPair, error)
}

// Gateway performs authentication exchanges and keeps the session store
// in step with their results. The store is never touched when an
// exchange fails.
type Gateway struct {
	api      API
	sessions *session.Store
	logger   *zap.Logger
}

// NewGateway creates a Gateway.
func NewGateway(client API, sessions *session.Store, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{api: client, sessions: sessions, logger: logger.Named("auth")}
}

// RegisterRequest holds the registration form values.
type RegisterRequest struct {
	Username             string
	Email                string
	Password             string
	PasswordConfirmation string
}

// Login signs in with username and password and persists the session.
func (g *Gateway) Login(ctx context.Context, username, password string) (*model.Session, error) {
	if err := required("username", username, "password", password); err != nil {
		return nil, err
	}

	s, err := g.api.Login(ctx, api.Credentials{Username: username, Password: password})
	if err != nil {
		g.logger.Info("login failed", zap.String("username", username), zap.Error(err))
		return nil, &Failure{Op: "login", Err: err}
	}

	if err := g.persist("login", s); err != nil {
		return nil, err
	}
	g.logger.Info("logged in", zap.String("username", s.User.Username))
	return s, nil
}

// Register creates an account and persists the returned session. The
// confirmation must match the password; the check happens locally and a
// mismatch never reaches the network.
func (g *Gateway) Register(ctx context.Context, req RegisterRequest) (*model.Session, error) {
	err := required(
		"username", req.Username,
		"email", req.Email,
		"password", req.Password,
		"password confirmation", req.PasswordConfirmation,
	)
	if err != nil {
		return nil, err
	}
	if req.Password != req.PasswordConfirmation {
		return nil, ErrPasswordMismatch
	}

	s, err := g.api.Register(ctx, api.Registration{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Password2: req.PasswordConfirmation,
	})
	if err != nil {
		g.logger.Info("registration failed", zap.String("username", req.Username), zap.Error(err))
		return nil, &Failure{Op: "register", Err: err}
	}

	if err := g.persist("register", s); err != nil {
		return nil, err
	}
	g.logger.Info("registered", zap.String("username", s.User.Username))
	return s, nil
}

// Refresh exchanges refreshToken for a new access token and rotates the
// stored tokens in place. It is a single exchange: retrying the request
// that failed is up to the caller.
func (g *Gateway) Refresh(ctx context.Context, refreshToken string) (*model.TokenPair, error) {
	if refreshToken == "" {
		return nil, &Failure{Op: "refresh", Err: ErrNoSession}
	}

	pair, err := g.api.RefreshToken(ctx, refreshToken)
	if err != nil {
		g.logger.Info("token refresh failed", zap.Error(err))
		return nil, &Failure{Op: "refresh", Err: err}
	}
	if pair.Access == "" {
		return nil, &Failure{Op: "refresh", Err: errors.New("response carried no access token")}
	}

	var rotated *string
	if pair.Refresh != "" {
		rotated = &pair.Refresh
	}
	if err := g.sessions.UpdateTokens(pair.Access, rotated); err != nil {
		return nil, fmt.Errorf("storing refreshed tokens: %w", err)
	}

	g.logger.Debug("access token refreshed", zap.Bool("refresh_rotated", rotated != nil))
	return pair, nil
}

// RefreshCurrent refreshes using the stored refresh token.
func (g *Gateway) RefreshCurrent(ctx context.Context) (*model.TokenPair, error) {
	return g.Refresh(ctx, g.sessions.RefreshToken())
}

// Logout discards the local session. The server is not contacted.
func (g *Gateway) Logout() error {
	if err := g.sessions.Clear(); err != nil {
		return err
	}
	g.logger.Info("logged out")
	return nil
}

// persist stores s when it carries an access token.
func (g *Gateway) persist(op string, s *model.Session) error {
	if s == nil || s.Access == "" {
		return &Failure{Op: op, Err: errors.New("response carried no access token")}
	}
	if err := g.sessions.Save(*s); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ValidatePasswordChange checks the profile form's password fields. An
// empty newPassword means no change is requested.
func ValidatePasswordChange(current, newPassword, confirmation string) error {
	if newPassword == "" {
		return nil
	}
	if strings.TrimSpace(current) == "" {
		return &FieldError{Field: "current password"}
	}
	if newPassword != confirmation {
		return ErrPasswordMismatch
	}
	return nil
}

// required returns a FieldError for the first empty value in the
// name/value pairs.
func required(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return &FieldError{Field: pairs[i]}
		}
	}
	return nil
}
