// Package delta implements the bounded mailbox between the axis poller
// and the frame compositor. It is single-producer/single-consumer and
// never blocks: on overflow the newest state wins.
package delta

import (
	"sync"

	"github.com/intelliservenz/firecnc/internal/axis"
)

// Capacity bounds the channel; the compositor only ever needs the latest
// state per axis, so a small ring is enough.
const Capacity = 16

// Channel is a bounded FIFO of axis deltas with same-axis coalescing on
// overflow. A short mutex guards the slots because coalescing mutates
// entries that are still in flight.
type Channel struct {
	mu      sync.Mutex
	buf     [Capacity]axis.Delta
	head    int // index of the oldest entry
	n       int // number of entries
	evicted uint64
}

func New() *Channel {
	return &Channel{}
}

// Send enqueues d without blocking. When the ring is full, the oldest
// in-flight delta for the same axis is overwritten in place, keeping its
// queue position; fields the new delta does not carry are preserved so a
// pending limit edge is not lost under a position burst. If no same-axis
// entry exists, the head entry is evicted.
func (c *Channel) Send(d axis.Delta) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.n < Capacity {
		c.buf[(c.head+c.n)%Capacity] = d
		c.n++
		return
	}

	for i := 0; i < c.n; i++ {
		slot := &c.buf[(c.head+i)%Capacity]
		if slot.Axis != d.Axis {
			continue
		}
		merged := d
		if !merged.HasLimits && slot.HasLimits {
			merged.HasLimits = true
			merged.MinLimit = slot.MinLimit
			merged.MaxLimit = slot.MaxLimit
		}
		if !merged.HasPosition && slot.HasPosition {
			merged.HasPosition = true
			merged.PositionMM = slot.PositionMM
		}
		*slot = merged
		c.evicted++
		return
	}

	// No same-axis entry: drop the oldest.
	c.head = (c.head + 1) % Capacity
	c.buf[(c.head+c.n-1)%Capacity] = d
	c.evicted++
}

// Recv dequeues the oldest delta, returning false when empty.
func (c *Channel) Recv() (axis.Delta, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.n == 0 {
		return axis.Delta{}, false
	}
	d := c.buf[c.head]
	c.head = (c.head + 1) % Capacity
	c.n--
	return d, true
}

// Len reports the number of queued deltas.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// Evicted reports how many deltas were coalesced or dropped on overflow.
func (c *Channel) Evicted() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evicted
}
