package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var protectedPaths = []string{
	PathDashboard,
	PathRecords,
	PathRecordNew,
	"/records/12",
	"/records/12/edit",
	PathSettings,
	PathProfile,
}

func TestGuardProtectedPaths(t *testing.T) {
	for _, p := range protectedPaths {
		assert.Equal(t, Decision{RedirectTo: PathLogin}, Guard(p, false), p)
		assert.Equal(t, Decision{Allow: true}, Guard(p, true), p)
	}
}

func TestGuardPublicPaths(t *testing.T) {
	for _, p := range []string{PathLogin, PathRegister, "/login/", "/register?next=/"} {
		assert.Equal(t, Decision{Allow: true}, Guard(p, false), p)
		assert.Equal(t, Decision{RedirectTo: PathDashboard}, Guard(p, true), p)
	}
}

func TestGuardUnknownPaths(t *testing.T) {
	for _, p := range []string{"/nope", "/records/abc", "/records/-1", "/records/3/delete"} {
		assert.Equal(t, PathDashboard, Guard(p, true).RedirectTo, p)
		assert.Equal(t, PathLogin, Guard(p, false).RedirectTo, p)
	}
}

func TestResolve(t *testing.T) {
	assert.Equal(t, PathLogin, Resolve("/records/4", false))
	assert.Equal(t, "/records/4", Resolve("/records/4/", true))
	assert.Equal(t, PathDashboard, Resolve(PathLogin, true))
	assert.Equal(t, PathDashboard, Resolve("/missing", true))
	assert.Equal(t, PathLogin, Resolve("/missing", false))
	assert.Equal(t, PathRegister, Resolve(PathRegister, false))
}

func TestMatch(t *testing.T) {
	cases := map[string]Screen{
		"/":                  {Kind: KindDashboard},
		"":                   {Kind: KindDashboard},
		"records":            {Kind: KindRecords},
		"/records/new":       {Kind: KindRecordNew},
		"/records/7":         {Kind: KindRecordDetail, RecordID: 7},
		"/records/7/edit":    {Kind: KindRecordEdit, RecordID: 7},
		"/records/7/?tab=1":  {Kind: KindRecordDetail, RecordID: 7},
		"/records/x/edit":    {Kind: KindUnknown},
		"/settings#advanced": {Kind: KindSettings},
	}
	for path, want := range cases {
		assert.Equal(t, want, Match(path), path)
	}
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Dashboard", Title("/"))
	assert.Equal(t, "Records", Title("/records"))
	assert.Equal(t, "New Record", Title("/records/new"))
	assert.Equal(t, "Edit Record", Title(RecordEditPath(3)))
	assert.Equal(t, "Record Details", Title(RecordPath(3)))
	assert.Equal(t, "Page Not Found", Title("/elsewhere"))
}
