package poller

import (
	"context"
	"sync"
	"time"

	"agenda-bot/types"

	"go.uber.org/zap"
)

// RefreshFunc performs one combined refresh: re-fetch the user's bookings,
// then recompute the slot list from them. The events fetch must complete
// before the slot computation so the slots never reflect a stale event list.
type RefreshFunc func(ctx context.Context) ([]types.TimeSlot, error)

// ApplyFunc replaces the rendered slot list. It is called at most once per
// refresh, never concurrently, and never after Stop.
type ApplyFunc func(slots []types.TimeSlot)

// Poller re-runs a combined refresh on a fixed interval while a booking
// session is active. Manual refreshes may overlap timer ticks; a generation
// counter makes sure a stale in-flight fetch cannot overwrite the result of
// a newer one, and the slot list is always replaced whole.
type Poller struct {
	interval time.Duration
	refresh  RefreshFunc
	apply    ApplyFunc
	log      *zap.SugaredLogger

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
	started uint64 // generation handed to the most recent refresh
	applied uint64 // generation of the last applied result
}

func New(interval time.Duration, refresh RefreshFunc, apply ApplyFunc, log *zap.SugaredLogger) *Poller {
	return &Poller{interval: interval, refresh: refresh, apply: apply, log: log}
}

// Start launches the timer loop. Starting an already-running poller is a
// no-op; a stopped poller can be started again.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.stopped = false
	go p.loop(ctx)
}

// Stop tears the timer down. Any refresh still in flight completes its remote
// calls but will not touch state afterwards.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// RefreshNow runs one combined refresh immediately, e.g. for pull-to-refresh.
// Safe to call while a timer refresh is in flight; last completed wins.
func (p *Poller) RefreshNow(ctx context.Context) {
	p.runRefresh(ctx)
}

func (p *Poller) loop(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runRefresh(ctx)
		}
	}
}

func (p *Poller) runRefresh(ctx context.Context) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.started++
	gen := p.started
	p.mu.Unlock()

	slots, err := p.refresh(ctx)
	if err != nil {
		p.log.Warnw("refresh failed", "err", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped || gen < p.applied {
		return
	}
	p.applied = gen
	p.apply(slots)
}
