package notify

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/haulbook/internal/model"
)

// DefaultInterval is the time between two poll ticks.
const DefaultInterval = 60 * time.Second

// fetchTimeout is the maximum time allowed for a single poll tick.
const fetchTimeout = 30 * time.Second

// UpdatedMsg is a tea.Msg carrying the cache contents after a refresh.
type UpdatedMsg struct {
	Notifications []model.Notification
	Unread        int
	Err           error

	// ch is the poller run that produced the message, nil for one-off
	// refreshes.
	ch <-chan UpdatedMsg
}

// MarkedMsg is a tea.Msg sent when a mark-as-read attempt completes.
type MarkedMsg struct {
	ID            string
	Notifications []model.Notification
	Unread        int
	Err           error
}

// Poller refreshes a Cache immediately on Start and then on a fixed
// interval until Stop. Ticks run one at a time on a single goroutine, so
// a slow tick delays the next one instead of overlapping it; a failed
// tick simply waits for the next.
type Poller struct {
	cache    *Cache
	interval time.Duration
	logger   *zap.Logger

	mu        gosync.Mutex
	running   bool
	cancel    context.CancelFunc
	triggerCh chan struct{}
}

// NewPoller creates a poller for cache. A non-positive interval selects
// DefaultInterval.
func NewPoller(cache *Cache, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		cache:    cache,
		interval: interval,
		logger:   logger.Named("poller"),
	}
}

// Cache returns the cache the poller refreshes.
func (p *Poller) Cache() *Cache {
	return p.cache
}

// Running reports whether the polling goroutine is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Start launches the polling goroutine and returns a tea.Cmd that delivers
// its first UpdatedMsg. It returns nil if the poller is already running.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan UpdatedMsg, 1)
	trigger := make(chan struct{}, 1)

	p.running = true
	p.cancel = cancel
	p.triggerCh = trigger

	go p.run(ctx, p.interval, trigger, out)
	p.logger.Debug("polling started", zap.Duration("interval", p.interval))

	return waitFor(out)
}

// Stop halts polling. A tick in flight is cancelled and its result is
// never delivered.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	p.cancel()
	p.running = false
	p.cancel = nil
	p.triggerCh = nil
	p.logger.Debug("polling stopped")
}

// SetInterval changes the tick interval. It applies from the next Start;
// a non-positive value selects DefaultInterval.
func (p *Poller) SetInterval(d time.Duration) {
	if d <= 0 {
		d = DefaultInterval
	}
	p.mu.Lock()
	p.interval = d
	p.mu.Unlock()
}

// RefreshNow asks the running poller for an immediate tick. The request
// is coalesced with one already pending and ignored when stopped.
func (p *Poller) RefreshNow() {
	p.mu.Lock()
	trigger := p.triggerCh
	p.mu.Unlock()

	if trigger == nil {
		return
	}
	select {
	case trigger <- struct{}{}:
	default:
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next message of
// the run that produced msg. It returns nil for one-off refresh results,
// and the command yields nil once that run has stopped.
func (p *Poller) WaitForNextResult(msg UpdatedMsg) tea.Cmd {
	if msg.ch == nil {
		return nil
	}
	return waitFor(msg.ch)
}

// run is the polling loop. It owns out and closes it on exit.
func (p *Poller) run(ctx context.Context, interval time.Duration, trigger <-chan struct{}, out chan UpdatedMsg) {
	defer close(out)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if !p.tick(ctx, out) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-trigger:
		}
		if !p.tick(ctx, out) {
			return
		}
	}
}

// tick refreshes the cache once and publishes the result. It returns
// false when the poller was stopped meanwhile.
func (p *Poller) tick(ctx context.Context, out chan UpdatedMsg) bool {
	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	err := p.cache.Refresh(fetchCtx)
	cancel()

	if ctx.Err() != nil {
		return false
	}

	msg := snapshot(p.cache, err)
	msg.ch = out
	select {
	case out <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}

// RefreshCmd performs a one-off refresh outside the polling loop.
func RefreshCmd(c *Cache) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		return snapshot(c, c.Refresh(ctx))
	}
}

// MarkAsReadCmd marks id read and reports the resulting cache contents.
func MarkAsReadCmd(c *Cache, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		err := c.MarkAsRead(ctx, id)
		return MarkedMsg{
			ID:            id,
			Notifications: c.Notifications(),
			Unread:        c.UnreadCount(),
			Err:           err,
		}
	}
}

func snapshot(c *Cache, err error) UpdatedMsg {
	return UpdatedMsg{
		Notifications: c.Notifications(),
		Unread:        c.UnreadCount(),
		Err:           err,
	}
}

func waitFor(ch <-chan UpdatedMsg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}
