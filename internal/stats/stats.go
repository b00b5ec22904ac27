// Package stats keeps in-memory counters of pipeline outcomes since
// process start, surfaced on the stats endpoint.
package stats

import (
	"sync"
	"time"
)

// Counters accumulates submission outcomes. Safe for concurrent use.
type Counters struct {
	mu             sync.Mutex
	start          time.Time
	received       uint64
	admitted       uint64
	rejected       uint64
	trapped        uint64
	delivered      uint64
	deliveryFailed uint64
}

// New creates a counter set anchored at the current time.
func New() *Counters {
	return &Counters{start: time.Now()}
}

func (c *Counters) Received()       { c.inc(&c.received) }
func (c *Counters) Admitted()       { c.inc(&c.admitted) }
func (c *Counters) Rejected()       { c.inc(&c.rejected) }
func (c *Counters) Trapped()        { c.inc(&c.trapped) }
func (c *Counters) Delivered()      { c.inc(&c.delivered) }
func (c *Counters) DeliveryFailed() { c.inc(&c.deliveryFailed) }

func (c *Counters) inc(field *uint64) {
	c.mu.Lock()
	*field++
	c.mu.Unlock()
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Received       uint64  `json:"received"`
	Admitted       uint64  `json:"admitted"`
	Rejected       uint64  `json:"rejected"`
	Trapped        uint64  `json:"spam_trapped"`
	Delivered      uint64  `json:"delivered"`
	DeliveryFailed uint64  `json:"delivery_failed"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
}

// Snapshot returns a consistent copy of all counters.
func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Received:       c.received,
		Admitted:       c.admitted,
		Rejected:       c.rejected,
		Trapped:        c.trapped,
		Delivered:      c.delivered,
		DeliveryFailed: c.deliveryFailed,
		UptimeSeconds:  time.Since(c.start).Seconds(),
	}
}
