// Package notify keeps the set of unread notifications in step with the
// server, both on a timer and on demand.
package notify

import (
	"context"
	"errors"
	"sort"
	"strconv"
	gosync "sync"

	"go.uber.org/zap"

	"github.com/nhle/haulbook/internal/model"
)

// State is the cache's fetch lifecycle.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateReady
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateReady:
		return "ready"
	case StateErrored:
		return "errored"
	}
	return "unknown"
}

// API is the subset of the REST client the cache needs.
type API interface {
	ListNotifications(ctx context.Context, showAll bool) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
}

// Cache holds the notifications known to be unread as of the last
// successful reconciliation.
//
// Every operation draws a ticket from one sequence and applies its result
// under one lock, so mutations form a single ordered log:
//   - a refresh result older than an already applied refresh is dropped;
//   - an id removed by a mark-as-read confirmed after a refresh was
//     issued stays removed when that refresh lands;
//   - a refresh issued after the confirmation reflects the server as is.
//
// Reset starts a new epoch; results of operations begun in an earlier
// epoch are discarded.
type Cache struct {
	api    API
	logger *zap.Logger

	mu       gosync.Mutex
	items    map[string]model.Notification
	outcome  State
	err      error
	inflight int
	seq      uint64
	applied  uint64
	removed  map[string]uint64
	epoch    uint64
}

// NewCache returns an empty cache in the Idle state.
func NewCache(client API, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		api:     client,
		logger:  logger.Named("notify"),
		items:   make(map[string]model.Notification),
		removed: make(map[string]uint64),
		outcome: StateIdle,
	}
}

// Refresh fetches the full notification set and replaces the cache with
// its unread members. On failure the contents are left unchanged and the
// error is recorded; it is also returned for callers that want it.
func (c *Cache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.seq++
	ticket, epoch := c.seq, c.epoch
	c.inflight++
	c.mu.Unlock()

	fetched, err := c.api.ListNotifications(ctx, false)

	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.epoch {
		return nil
	}
	c.inflight--

	if ticket <= c.applied {
		// A later refresh already landed.
		return nil
	}

	// A cancelled fetch was abandoned by its caller, usually a stopping
	// poller; it says nothing about the server.
	if errors.Is(err, context.Canceled) {
		return err
	}

	if err != nil {
		c.err = err
		c.outcome = StateErrored
		c.logger.Warn("refreshing notifications", zap.Error(err))
		return err
	}

	next := make(map[string]model.Notification, len(fetched))
	for _, n := range fetched {
		if n.IsRead {
			continue
		}
		if at, ok := c.removed[n.ID]; ok && at > ticket {
			continue
		}
		next[n.ID] = n
	}
	for id, at := range c.removed {
		if at <= ticket {
			delete(c.removed, id)
		}
	}

	c.items = next
	c.applied = ticket
	c.err = nil
	c.outcome = StateReady
	c.logger.Debug("notifications refreshed", zap.Int("unread", len(next)))
	return nil
}

// MarkAsRead asks the server to mark id as read and, once it confirms,
// removes id from the cache. On failure the item stays and the error is
// recorded.
func (c *Cache) MarkAsRead(ctx context.Context, id string) error {
	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()

	err := c.api.MarkNotificationRead(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.epoch {
		return nil
	}

	if err != nil {
		c.err = err
		c.outcome = StateErrored
		c.logger.Warn("marking notification read", zap.String("id", id), zap.Error(err))
		return err
	}

	c.seq++
	c.removed[id] = c.seq
	delete(c.items, id)
	c.err = nil
	c.outcome = StateReady
	return nil
}

// Reset empties the cache and discards the results of any operation still
// in flight. It is called when the session ends.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	c.items = make(map[string]model.Notification)
	c.removed = make(map[string]uint64)
	c.applied = c.seq
	c.inflight = 0
	c.err = nil
	c.outcome = StateIdle
}

// Notifications returns the cached unread notifications ordered by id.
func (c *Cache) Notifications() []model.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.Notification, 0, len(c.items))
	for _, n := range c.items {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return lessID(out[i].ID, out[j].ID) })
	return out
}

// Contains reports whether id is cached.
func (c *Cache) Contains(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[id]
	return ok
}

// UnreadCount is the number of cached notifications.
func (c *Cache) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// State reports Fetching while a refresh is in flight, otherwise the
// outcome of the last operation.
func (c *Cache) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight > 0 {
		return StateFetching
	}
	return c.outcome
}

// Err returns the error of the last failed operation, or nil once a
// later operation succeeds.
func (c *Cache) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// lessID orders numeric ids numerically and everything else lexically.
func lessID(a, b string) bool {
	ai, aErr := strconv.ParseInt(a, 10, 64)
	bi, bErr := strconv.ParseInt(b, 10, 64)
	if aErr == nil && bErr == nil {
		return ai < bi
	}
	return a < b
}
