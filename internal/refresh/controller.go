// Package refresh owns the current grid snapshot and the polling loop that
// keeps it fresh.
package refresh

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"gridpulse/internal/metrics"
	"gridpulse/internal/models"
	"gridpulse/internal/sim"
)

// Source produces one fully assembled snapshot per call.
type Source interface {
	Snapshot(ctx context.Context) (*models.GridSnapshot, error)
}

// Status is the read surface consumers poll. Snapshot is nil until the
// first refresh completes; after that it always points at the last snapshot
// that assembled successfully, even while Error reports a newer failure.
type Status struct {
	Snapshot    *models.GridSnapshot `json:"snapshot"`
	LastUpdated time.Time            `json:"lastUpdated"`
	IsLive      bool                 `json:"isLive"`
	IsDemoMode  bool                 `json:"isDemoMode"`
	Error       string               `json:"error"`
}

// Controller drives the refresh cycle. Snapshots are replaced wholesale
// under the mutex; a failed live refresh never touches the published one.
type Controller struct {
	source   Source
	demo     bool
	interval time.Duration
	now      func() time.Time

	fetching atomic.Bool

	mu          sync.RWMutex
	snapshot    *models.GridSnapshot
	lastUpdated time.Time
	live        bool
	lastErr     string
}

// New builds a controller. In demo mode source is unused and may be nil.
func New(source Source, demo bool, interval time.Duration) *Controller {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Controller{
		source:   source,
		demo:     demo,
		interval: interval,
		now:      time.Now,
	}
}

// Run refreshes immediately, then on every tick until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	c.Tick(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("refresh: shutting down")
			return
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}

// Tick attempts one refresh. Demo mode computes synchronously; live mode
// starts an assembly goroutine unless one is already in flight. Overlapping
// ticks are dropped, never queued, so at most one assembly runs at a time.
func (c *Controller) Tick(ctx context.Context) {
	if c.demo {
		at := c.now()
		c.publish(sim.Snapshot(at), nil, at)
		return
	}

	if !c.fetching.CompareAndSwap(false, true) {
		metrics.TicksDropped.Inc()
		log.Println("refresh: previous fetch still in flight, dropping tick")
		return
	}

	go func() {
		defer c.fetching.Store(false)
		started := c.now()
		snap, err := c.source.Snapshot(ctx)
		metrics.RefreshDuration.Observe(c.now().Sub(started).Seconds())
		c.publish(snap, err, c.now())
	}()
}

func (c *Controller) publish(snap *models.GridSnapshot, err error, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.live = false
		c.lastErr = err.Error()
		metrics.Refreshes.WithLabelValues(c.mode(), "error").Inc()
		metrics.Live.Set(0)
		log.Printf("refresh: %v", err)
		return
	}

	c.snapshot = snap
	c.lastUpdated = at
	c.live = true
	c.lastErr = ""
	metrics.Refreshes.WithLabelValues(c.mode(), "ok").Inc()
	metrics.Live.Set(1)
	log.Printf("refresh: snapshot updated, %d generation points", len(snap.TimeSeries.Generation))
}

func (c *Controller) mode() string {
	if c.demo {
		return "demo"
	}
	return "live"
}

// Status returns the current read surface.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Status{
		Snapshot:    c.snapshot,
		LastUpdated: c.lastUpdated,
		IsLive:      c.live,
		IsDemoMode:  c.demo,
		Error:       c.lastErr,
	}
}
