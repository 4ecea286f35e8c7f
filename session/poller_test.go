package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/s0up4200/pikfront/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollerTicks(t *testing.T) {
	var calls atomic.Int32
	p := NewPoller(10*time.Millisecond, func(ctx context.Context) {
		calls.Add(1)
	}, zerolog.Nop())

	p.Start()
	require.True(t, p.Running())
	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	p.Stop()
	assert.False(t, p.Running())

	stopped := calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load())
}

func TestPollerDefaultInterval(t *testing.T) {
	p := NewPoller(0, func(context.Context) {}, zerolog.Nop())
	assert.Equal(t, DefaultPollInterval, p.Interval())
}

func TestPollerStopIsIdempotent(t *testing.T) {
	p := NewPoller(time.Hour, func(context.Context) {}, zerolog.Nop())
	p.Stop()
	p.Start()
	p.Stop()
	p.Stop()
	assert.False(t, p.Running())
}

func TestPollerRestartKeepsSingleLoop(t *testing.T) {
	var active, maxActive atomic.Int32
	p := NewPoller(5*time.Millisecond, func(ctx context.Context) {
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		active.Add(-1)
	}, zerolog.Nop())

	for range 5 {
		p.Start()
		time.Sleep(15 * time.Millisecond)
	}
	p.Stop()

	assert.LessOrEqual(t, maxActive.Load(), int32(1))
}

func TestPollerCancelsInFlightCall(t *testing.T) {
	started := make(chan struct{})
	p := NewPoller(5*time.Millisecond, func(ctx context.Context) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
	}, zerolog.Nop())

	p.Start()
	<-started

	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return while a poll was in flight")
	}
}

func TestSessionReplacesPoller(t *testing.T) {
	s := New()
	s.SetUser(backend.User{Username: "alice"})
	first := NewPoller(time.Hour, func(context.Context) {}, zerolog.Nop())
	second := NewPoller(time.Hour, func(context.Context) {}, zerolog.Nop())

	require.True(t, s.StartPolling(first))
	require.True(t, s.StartPolling(second))

	assert.False(t, first.Running())
	assert.True(t, second.Running())

	s.Reset()
	assert.False(t, second.Running())
}

func TestStartPollingRequiresUser(t *testing.T) {
	s := New()
	p := NewPoller(time.Hour, func(context.Context) {}, zerolog.Nop())

	assert.False(t, s.StartPolling(p))
	assert.False(t, p.Running())
	assert.False(t, s.Polling())

	s.SetUser(backend.User{Username: "alice"})
	s.Reset()
	assert.False(t, s.StartPolling(p), "a reset session stays idle")
	assert.False(t, p.Running())
}
