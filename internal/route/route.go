// Package route names the application's screens and decides, on every
// navigation, whether the current session may enter them.
package route

import (
	"fmt"
	"strconv"
	"strings"
)

// Screen paths.
const (
	PathLogin     = "/login"
	PathRegister  = "/register"
	PathDashboard = "/"
	PathRecords   = "/records"
	PathRecordNew = "/records/new"
	PathSettings  = "/settings"
	PathProfile   = "/profile"
)

// Kind identifies a screen independent of its parameters.
type Kind int

const (
	KindUnknown Kind = iota
	KindLogin
	KindRegister
	KindDashboard
	KindRecords
	KindRecordNew
	KindRecordDetail
	KindRecordEdit
	KindSettings
	KindProfile
)

// Screen is a parsed path.
type Screen struct {
	Kind     Kind
	RecordID int64
}

// Decision is the outcome of a guard check. Exactly one of Allow or a
// non-empty RedirectTo is set.
type Decision struct {
	Allow      bool
	RedirectTo string
}

// RecordPath returns the detail path for record id.
func RecordPath(id int64) string {
	return fmt.Sprintf("/records/%d", id)
}

// RecordEditPath returns the edit path for record id.
func RecordEditPath(id int64) string {
	return fmt.Sprintf("/records/%d/edit", id)
}

// Normalize strips query strings, fragments and trailing slashes so that
// links coming from the API ("/records/4/?from=n") match screen paths.
func Normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return PathDashboard
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = PathDashboard
		}
	}
	return path
}

// Match parses path into a Screen.
func Match(path string) Screen {
	switch path = Normalize(path); path {
	case PathLogin:
		return Screen{Kind: KindLogin}
	case PathRegister:
		return Screen{Kind: KindRegister}
	case PathDashboard:
		return Screen{Kind: KindDashboard}
	case PathRecords:
		return Screen{Kind: KindRecords}
	case PathRecordNew:
		return Screen{Kind: KindRecordNew}
	case PathSettings:
		return Screen{Kind: KindSettings}
	case PathProfile:
		return Screen{Kind: KindProfile}
	}

	rest, ok := strings.CutPrefix(path, PathRecords+"/")
	if !ok {
		return Screen{Kind: KindUnknown}
	}
	idPart, edit := strings.CutSuffix(rest, "/edit")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return Screen{Kind: KindUnknown}
	}
	if edit {
		return Screen{Kind: KindRecordEdit, RecordID: id}
	}
	return Screen{Kind: KindRecordDetail, RecordID: id}
}

// IsPublic reports whether path is the login or registration screen.
func IsPublic(path string) bool {
	k := Match(path).Kind
	return k == KindLogin || k == KindRegister
}

// IsProtected reports whether path is a known screen that requires a
// session.
func IsProtected(path string) bool {
	k := Match(path).Kind
	return k != KindUnknown && k != KindLogin && k != KindRegister
}

// Guard decides whether a navigation to path may proceed given the
// current authentication status. Unknown paths fall back to the
// dashboard, which is then guarded in turn.
func Guard(path string, authenticated bool) Decision {
	switch {
	case Match(path).Kind == KindUnknown:
		if !authenticated {
			return Decision{RedirectTo: PathLogin}
		}
		return Decision{RedirectTo: PathDashboard}
	case IsProtected(path) && !authenticated:
		return Decision{RedirectTo: PathLogin}
	case IsPublic(path) && authenticated:
		return Decision{RedirectTo: PathDashboard}
	}
	return Decision{Allow: true}
}

// Resolve follows guard redirects from path until a screen is allowed
// and returns the final path.
func Resolve(path string, authenticated bool) string {
	path = Normalize(path)
	// Redirect chains are at most two hops long.
	for i := 0; i < 4; i++ {
		d := Guard(path, authenticated)
		if d.Allow {
			return path
		}
		path = d.RedirectTo
	}
	if authenticated {
		return PathDashboard
	}
	return PathLogin
}

// Title returns the header title for path.
func Title(path string) string {
	switch Match(path).Kind {
	case KindDashboard:
		return "Dashboard"
	case KindRecords:
		return "Records"
	case KindRecordNew:
		return "New Record"
	case KindRecordEdit:
		return "Edit Record"
	case KindRecordDetail:
		return "Record Details"
	case KindSettings:
		return "Settings"
	case KindProfile:
		return "Profile"
	case KindLogin:
		return "Login"
	case KindRegister:
		return "Register"
	}
	return "Page Not Found"
}
