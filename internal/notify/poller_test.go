package notify_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/haulbook/internal/model"
	"github.com/nhle/haulbook/internal/notify"
)

func TestPollerFirstTickIsImmediate(t *testing.T) {
	fake, c := newServerCache(t)
	fake.SetNotifications(model.Notification{ID: "1"})

	p := notify.NewPoller(c, time.Hour, nil)
	cmd := p.Start()
	require.NotNil(t, cmd)
	defer p.Stop()

	msg, ok := cmd().(notify.UpdatedMsg)
	require.True(t, ok)
	require.NoError(t, msg.Err)
	assert.Equal(t, 1, msg.Unread)
	assert.Equal(t, []string{"1"}, ids(msg.Notifications))
	assert.True(t, p.Running())
}

func TestPollerStartTwiceIsNoop(t *testing.T) {
	_, c := newServerCache(t)
	p := notify.NewPoller(c, time.Hour, nil)

	require.NotNil(t, p.Start())
	defer p.Stop()
	assert.Nil(t, p.Start())
}

func TestPollerRefreshNow(t *testing.T) {
	fake, c := newServerCache(t)
	fake.SetNotifications(model.Notification{ID: "1"})

	p := notify.NewPoller(c, time.Hour, nil)
	first := p.Start()().(notify.UpdatedMsg)
	defer p.Stop()

	fake.SetNotifications(model.Notification{ID: "1"}, model.Notification{ID: "2"})
	p.RefreshNow()

	next, ok := p.WaitForNextResult(first)().(notify.UpdatedMsg)
	require.True(t, ok)
	assert.Equal(t, 2, next.Unread)
}

func TestPollerTicksOnInterval(t *testing.T) {
	fake, c := newServerCache(t)
	p := notify.NewPoller(c, 10*time.Millisecond, nil)
	msg := p.Start()().(notify.UpdatedMsg)
	defer p.Stop()
	assert.Zero(t, msg.Unread)

	fake.SetNotifications(model.Notification{ID: "7"})

	deadline := time.After(5 * time.Second)
	for msg.Unread == 0 {
		select {
		case <-deadline:
			t.Fatal("poller never picked up the new notification")
		default:
		}
		msg = p.WaitForNextResult(msg)().(notify.UpdatedMsg)
	}
	assert.Equal(t, []string{"7"}, ids(msg.Notifications))
}

func TestPollerStopEndsRun(t *testing.T) {
	_, c := newServerCache(t)
	p := notify.NewPoller(c, time.Hour, nil)
	msg := p.Start()().(notify.UpdatedMsg)

	p.Stop()
	assert.False(t, p.Running())

	// The run's channel closes once the goroutine exits.
	assert.Nil(t, p.WaitForNextResult(msg)())

	// Stopping again and refreshing while stopped are harmless.
	p.Stop()
	p.RefreshNow()
}

func TestPollerCanRestart(t *testing.T) {
	fake, c := newServerCache(t)
	p := notify.NewPoller(c, time.Hour, nil)
	_ = p.Start()().(notify.UpdatedMsg)
	p.Stop()

	fake.SetNotifications(model.Notification{ID: "5"})
	msg := p.Start()().(notify.UpdatedMsg)
	defer p.Stop()
	assert.Equal(t, 1, msg.Unread)
}

func TestOneOffCommands(t *testing.T) {
	fake, c := newServerCache(t)
	fake.SetNotifications(model.Notification{ID: "1"}, model.Notification{ID: "2"})

	p := notify.NewPoller(c, time.Hour, nil)
	refreshed := notify.RefreshCmd(c)().(notify.UpdatedMsg)
	assert.Equal(t, 2, refreshed.Unread)
	assert.Nil(t, p.WaitForNextResult(refreshed))

	marked := notify.MarkAsReadCmd(c, "2")().(notify.MarkedMsg)
	require.NoError(t, marked.Err)
	assert.Equal(t, "2", marked.ID)
	assert.Equal(t, 1, marked.Unread)
	assert.Equal(t, []string{"1"}, ids(marked.Notifications))
}
