// Package sync keeps the cached todo list fresh in the background: a
// periodic refetch plus an on-demand trigger, with observable status.
package sync

import (
	"context"
	"log/slog"
	gosync "sync"
	"time"
)

// State represents the current state of the background refresher.
type State int

const (
	Idle State = iota
	Running
	Errored
)

// Status holds the outcome of the most recent refetch.
type Status struct {
	State       State
	LastRefresh time.Time
	Err         error
}

// fetchTimeout is the maximum time allowed for a single refetch.
const fetchTimeout = 30 * time.Second

// Lister is the slice of the todos facade the refresher drives.
type Lister interface {
	Refresh(ctx context.Context) error
}

// Refresher refetches the todo list on an interval and on demand.
type Refresher struct {
	lister   Lister
	interval time.Duration
	logger   *slog.Logger

	triggerCh chan struct{}
	stopCh    chan struct{}

	mu      gosync.Mutex
	status  Status
	running bool
}

// New creates a refresher over the given lister. interval <= 0 disables
// periodic refetching; Trigger still works. A nil logger falls back to
// slog.Default.
func New(lister Lister, interval time.Duration, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		lister:    lister,
		interval:  interval,
		logger:    logger,
		triggerCh: make(chan struct{}, 1),
	}
}

// Start launches the refresh loop. Calling Start twice is a no-op; a
// stopped refresher may be started again.
func (r *Refresher) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.stopCh = make(chan struct{})
	stopCh := r.stopCh
	r.mu.Unlock()

	go r.loop(stopCh)
}

// Stop halts the refresh loop. Stopping an idle refresher is a no-op.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	close(r.stopCh)
	r.running = false
}

// Trigger requests an immediate refetch. Coalesces when one is already
// queued.
func (r *Refresher) Trigger() {
	select {
	case r.triggerCh <- struct{}{}:
	default:
	}
}

// GetStatus returns the status of the most recent refetch.
func (r *Refresher) GetStatus() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Refresher) loop(stopCh <-chan struct{}) {
	var tick <-chan time.Time
	if r.interval > 0 {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	// Initial fetch immediately.
	r.refetch()

	for {
		select {
		case <-stopCh:
			return
		case <-tick:
			r.refetch()
		case <-r.triggerCh:
			r.refetch()
		}
	}
}

func (r *Refresher) refetch() {
	r.setStatus(Status{State: Running, LastRefresh: r.GetStatus().LastRefresh})

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	if err := r.lister.Refresh(ctx); err != nil {
		r.logger.Warn("background refresh failed", slog.String("error", err.Error()))
		r.setStatus(Status{State: Errored, LastRefresh: time.Now(), Err: err})
		return
	}
	r.setStatus(Status{State: Idle, LastRefresh: time.Now()})
}

func (r *Refresher) setStatus(status Status) {
	r.mu.Lock()
	r.status = status
	r.mu.Unlock()
}
