package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	gosync "sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nhle/haulbook/internal/model"
)

// Route names used with FakeAPI.FailWith and FakeAPI.Hits.
const (
	RouteLogin            = "login"
	RouteRegister         = "register"
	RouteRefresh          = "refresh"
	RouteRecords          = "records"
	RouteRecord           = "record"
	RouteRecordAdd        = "record-add"
	RouteRecordUpdate     = "record-update"
	RouteRecordDelete     = "record-delete"
	RouteDashboard        = "dashboard"
	RouteNotifications    = "notifications"
	RouteNotificationRead = "notification-read"
)

type fakeUser struct {
	identity model.Identity
	password string
}

// FakeAPI is an in-process implementation of the records REST API backed
// by chi. It issues real tokens, enforces bearer auth and lets tests
// inject failures.
type FakeAPI struct {
	Server *httptest.Server

	// RotateRefresh makes the refresh endpoint return a new refresh token.
	RotateRefresh bool

	mu            gosync.Mutex
	users         map[string]fakeUser
	nextUserID    int64
	records       map[int64]model.Record
	nextRecordID  int64
	notifications []model.Notification
	access        map[string]int64
	refresh       map[string]int64
	failures      map[string][]int
	hits          map[string]int
	lastAuth      map[string]string
	notifyGate    chan struct{}
	notifyEntered chan struct{}
}

// NewFakeAPI starts a fake API server that is shut down when the test ends.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()

	f := &FakeAPI{
		users:        make(map[string]fakeUser),
		records:      make(map[int64]model.Record),
		access:       make(map[string]int64),
		refresh:      make(map[string]int64),
		failures:     make(map[string][]int),
		hits:         make(map[string]int),
		lastAuth:     make(map[string]string),
		nextUserID:   1,
		nextRecordID: 1,
	}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/login/", f.counted(RouteLogin, f.handleLogin))
		r.Post("/register/", f.counted(RouteRegister, f.handleRegister))
		r.Post("/token/refresh/", f.counted(RouteRefresh, f.handleRefresh))

		r.Group(func(r chi.Router) {
			r.Use(f.requireAuth)
			r.Get("/records/", f.counted(RouteRecords, f.handleListRecords))
			r.Post("/records/add/", f.counted(RouteRecordAdd, f.handleAddRecord))
			r.Get("/records/{id}/", f.counted(RouteRecord, f.handleGetRecord))
			r.Put("/records/{id}/", f.counted(RouteRecordUpdate, f.handleUpdateRecord))
			r.Delete("/records/{id}/", f.counted(RouteRecordDelete, f.handleDeleteRecord))
			r.Get("/dashboard/", f.counted(RouteDashboard, f.handleDashboard))
			r.Get("/notifications/", f.counted(RouteNotifications, f.handleListNotifications))
			r.Post("/notifications/{id}/read/", f.counted(RouteNotificationRead, f.handleMarkRead))
		})
	})

	f.Server = httptest.NewServer(r)
	t.Cleanup(func() {
		f.ReleaseNotifications()
		f.Server.Close()
	})

	return f
}

// URL returns the API root including the /api/ prefix.
func (f *FakeAPI) URL() string {
	return f.Server.URL + "/api/"
}

// UnreachableURL returns the root of a server that has already been shut
// down, for exercising transport failures.
func UnreachableURL(t *testing.T) string {
	t.Helper()
	s := httptest.NewServer(http.NotFoundHandler())
	u := s.URL + "/api/"
	s.Close()
	return u
}

// AddUser registers an account directly and returns its identity.
func (f *FakeAPI) AddUser(username, email, password string) model.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addUserLocked(username, email, password)
}

func (f *FakeAPI) addUserLocked(username, email, password string) model.Identity {
	id := model.Identity{ID: f.nextUserID, Username: username, Email: email}
	f.nextUserID++
	f.users[username] = fakeUser{identity: id, password: password}
	return id
}

// IssueSession mints tokens for an existing user without going through
// the login endpoint.
func (f *FakeAPI) IssueSession(username string) model.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issueLocked(f.users[username].identity)
}

func (f *FakeAPI) issueLocked(id model.Identity) model.Session {
	s := model.Session{
		Access:  "access-" + uuid.NewString(),
		Refresh: "refresh-" + uuid.NewString(),
		User:    id,
	}
	f.access[s.Access] = id.ID
	f.refresh[s.Refresh] = id.ID
	return s
}

// ExpireAccessTokens invalidates every issued access token.
func (f *FakeAPI) ExpireAccessTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access = make(map[string]int64)
}

// ExpireRefreshTokens invalidates every issued refresh token.
func (f *FakeAPI) ExpireRefreshTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refresh = make(map[string]int64)
}

// AddRecord stores r and returns it with its assigned id.
func (f *FakeAPI) AddRecord(r model.Record) model.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = f.nextRecordID
	f.nextRecordID++
	f.records[r.ID] = r
	return r
}

// Record returns the stored record with id.
func (f *FakeAPI) Record(id int64) (model.Record, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	return r, ok
}

// SetNotifications replaces the server-side notification list.
func (f *FakeAPI) SetNotifications(ns ...model.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append([]model.Notification(nil), ns...)
}

// SetNotificationRead flips the read flag of id on the server.
func (f *FakeAPI) SetNotificationRead(id string, read bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.notifications {
		if f.notifications[i].ID == id {
			f.notifications[i].IsRead = read
		}
	}
}

// HoldNotifications makes the next notification list requests take their
// snapshot and then wait until ReleaseNotifications is called. The
// returned channel receives once per request that has taken its snapshot.
func (f *FakeAPI) HoldNotifications() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifyGate = make(chan struct{})
	f.notifyEntered = make(chan struct{}, 16)
	return f.notifyEntered
}

// ReleaseNotifications lets held notification requests respond.
func (f *FakeAPI) ReleaseNotifications() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notifyGate != nil {
		close(f.notifyGate)
		f.notifyGate = nil
	}
}

// FailWith makes the next calls to route respond with the given status
// codes, one per call, before normal handling resumes.
func (f *FakeAPI) FailWith(route string, codes ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[route] = append(f.failures[route], codes...)
}

// Hits returns how many requests reached route.
func (f *FakeAPI) Hits(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[route]
}

// LastAuthorization returns the Authorization header of the latest
// request to route.
func (f *FakeAPI) LastAuthorization(route string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAuth[route]
}

func (f *FakeAPI) counted(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits[route]++
		f.lastAuth[route] = r.Header.Get("Authorization")
		var code int
		if queued := f.failures[route]; len(queued) > 0 {
			code = queued[0]
			f.failures[route] = queued[1:]
		}
		f.mu.Unlock()

		if code != 0 {
			writeJSON(w, code, map[string]string{"detail": http.StatusText(code)})
			return
		}
		h(w, r)
	}
}

func (f *FakeAPI) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		f.mu.Lock()
		_, ok := f.access[token]
		f.mu.Unlock()

		if token == "" || !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"detail": "Given token not valid for any token type",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[body.Username]
	if !ok || u.password != body.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "No active account found with the given credentials",
		})
		return
	}
	writeJSON(w, http.StatusOK, f.issueLocked(u.identity))
}

func (f *FakeAPI) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		Password2 string `json:"password2"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if body.Password != body.Password2 {
		writeJSON(w, http.StatusBadRequest, map[string][]string{
			"password": {"Password fields didn't match."},
		})
		return
	}
	if _, exists := f.users[body.Username]; exists {
		writeJSON(w, http.StatusBadRequest, map[string][]string{
			"username": {"A user with that username already exists."},
		})
		return
	}

	id := f.addUserLocked(body.Username, body.Email, body.Password)
	writeJSON(w, http.StatusCreated, f.issueLocked(id))
}

func (f *FakeAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	userID, ok := f.refresh[body.Refresh]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "Token is invalid or expired",
		})
		return
	}

	pair := model.TokenPair{Access: "access-" + uuid.NewString()}
	f.access[pair.Access] = userID
	if f.RotateRefresh {
		delete(f.refresh, body.Refresh)
		pair.Refresh = "refresh-" + uuid.NewString()
		f.refresh[pair.Refresh] = userID
	}
	writeJSON(w, http.StatusOK, pair)
}

func (f *FakeAPI) handleListRecords(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, f.sortedRecordsLocked())
}

func (f *FakeAPI) sortedRecordsLocked() []model.Record {
	out := make([]model.Record, 0, len(f.records))
	for _, r := range f.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *FakeAPI) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	rec, exists := f.records[id]
	if !exists {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (f *FakeAPI) handleAddRecord(w http.ResponseWriter, r *http.Request) {
	var rec model.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	rec.ID = f.nextRecordID
	f.nextRecordID++
	f.records[rec.ID] = rec
	writeJSON(w, http.StatusCreated, rec)
}

func (f *FakeAPI) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	var rec model.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.records[id]; !exists {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	rec.ID = id
	f.records[id] = rec
	writeJSON(w, http.StatusOK, rec)
}

func (f *FakeAPI) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.records[id]; !exists {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	delete(f.records, id)
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeAPI) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	records := f.sortedRecordsLocked()

	var totalMiles, totalPay float64
	months := make(map[string][2]float64)
	for _, r := range records {
		miles, _ := r.Miles.Float()
		pay, _ := r.Pay.Float()
		totalMiles += miles
		totalPay += pay
		if len(r.Date) >= 7 {
			m := months[r.Date[:7]]
			m[0] += miles
			m[1] += pay
			months[r.Date[:7]] = m
		}
	}

	keys := make([]string, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	monthly := make([]model.MonthlyTotal, 0, len(keys))
	for _, k := range keys {
		monthly = append(monthly, model.MonthlyTotal{
			Month: k,
			Miles: model.NewDecimal(months[k][0]),
			Pay:   model.NewDecimal(months[k][1]),
		})
	}

	recent := append([]model.Record(nil), records...)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].Date > recent[j].Date })
	if len(recent) > 5 {
		recent = recent[:5]
	}

	writeJSON(w, http.StatusOK, model.Dashboard{
		TotalMiles:    model.NewDecimal(totalMiles),
		TotalPay:      model.NewDecimal(totalPay),
		RecordCount:   len(records),
		RecentRecords: recent,
		MonthlyData:   monthly,
	})
}

// handleListNotifications returns read entries as well regardless of
// show_all, like the real endpoint; clients filter.
func (f *FakeAPI) handleListNotifications(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	snapshot := append([]model.Notification{}, f.notifications...)
	gate := f.notifyGate
	entered := f.notifyEntered
	f.mu.Unlock()

	if gate != nil {
		entered <- struct{}{}
		<-gate
	}

	writeJSON(w, http.StatusOK, snapshot)
}

func (f *FakeAPI) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.notifications {
		if f.notifications[i].ID == id {
			f.notifications[i].IsRead = true
			writeJSON(w, http.StatusOK, f.notifications[i])
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
}

func recordID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
