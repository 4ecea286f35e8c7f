package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultPollInterval is how often task status is refreshed
const DefaultPollInterval = 10 * time.Second

// Poller calls a function at a fixed interval until stopped. At most one
// loop runs per Poller; calls never overlap because each tick runs on the
// loop goroutine and a slow call makes the ticker drop ticks.
type Poller struct {
	interval time.Duration
	fn       func(context.Context)
	logger   zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates a stopped poller
func NewPoller(interval time.Duration, fn func(context.Context), logger zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		interval: interval,
		fn:       fn,
		logger:   logger,
	}
}

// Interval returns the tick interval
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Start begins ticking. If the poller is already running, the running loop
// is stopped first. The first call happens one interval after Start.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	go p.loop(ctx, done)
	p.logger.Debug().Dur("interval", p.interval).Msg("Started polling")
}

// Stop halts the loop and waits for it to exit. It is safe to call on a
// stopped poller. It must not be called from the polled function.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopLocked() {
		p.logger.Debug().Msg("Stopped polling")
	}
}

// Running reports whether the loop is active
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Poller) stopLocked() bool {
	if p.cancel == nil {
		return false
	}
	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil
	return true
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			p.fn(ctx)
		}
	}
}
