package axis

import "sync/atomic"

// Snapshot is a point-in-time copy of all axis states.
type Snapshot [Count]State

// Cell publishes axis snapshots from the poller to UI readers without
// locking. Readers always see a complete snapshot; it may lag the poller
// by one store.
type Cell struct {
	p atomic.Pointer[Snapshot]
}

func NewCell() *Cell {
	c := &Cell{}
	c.p.Store(&Snapshot{})
	return c
}

func (c *Cell) Store(s Snapshot) {
	c.p.Store(&s)
}

func (c *Cell) Load() Snapshot {
	return *c.p.Load()
}
