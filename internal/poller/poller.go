// Package poller drives the servo fieldbus: one sweep over the three
// axes per cadence, decoding limit and position registers and emitting
// deltas toward the LED pipeline.
package poller

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/intelliservenz/firecnc/internal/axis"
	"github.com/intelliservenz/firecnc/internal/bus"
	"github.com/intelliservenz/firecnc/internal/delta"
	"github.com/intelliservenz/firecnc/internal/events"
	"github.com/intelliservenz/firecnc/internal/metrics"
)

// Register map of the LC10e drive.
const (
	regLimits   = 10 // bit0 = min, bit1 = max, rest reserved
	regPosition = 20 // two registers, position = high<<16 | low, signed
)

// ReadTimeout bounds a single register transaction.
const ReadTimeout = 50 * time.Millisecond

// SweepPeriod is the target cadence of one full sweep.
const SweepPeriod = 100 * time.Millisecond

// stallThreshold is the consecutive-failure count that raises an
// AxisStalled event.
const stallThreshold = 3

// Bus is the slice of the arbiter the poller needs.
type Bus interface {
	ReadHoldingRegisters(window time.Duration, slave uint8, addr, count uint16) ([]uint16, error)
}

type regState struct {
	fails   int
	stalled bool
}

// Poller owns the axis states. Nobody else writes them; the compositor
// sees snapshots through the delta channel and the snapshot cell.
type Poller struct {
	bus    Bus
	cfg    [axis.Count]axis.Config
	out    *delta.Channel
	snap   *axis.Cell
	notify events.Notifier
	log    zerolog.Logger

	state [axis.Count]axis.State
	lim   [axis.Count]regState
	pos   [axis.Count]regState

	evictedSeen uint64 // channel evictions already reported to metrics
}

func New(b Bus, cfg [axis.Count]axis.Config, out *delta.Channel, snap *axis.Cell, notify events.Notifier, log zerolog.Logger) *Poller {
	if notify == nil {
		notify = events.LogNotifier{Log: log}
	}
	return &Poller{
		bus:    b,
		cfg:    cfg,
		out:    out,
		snap:   snap,
		notify: notify,
		log:    log,
	}
}

// Run sweeps at the poll cadence until ctx is cancelled. tick supplies
// the monotonic frame tick stamped onto deltas.
func (p *Poller) Run(ctx context.Context, tick func() uint32) error {
	t := time.NewTicker(SweepPeriod)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			p.Sweep(tick())
		}
	}
}

// Sweep polls all axes once, in the fixed order Y, YY, X. A failing axis
// does not stop the sweep.
func (p *Poller) Sweep(tick uint32) {
	for _, a := range axis.All {
		p.pollLimits(a, tick)
		p.pollPosition(a, tick)
		if p.snap != nil {
			p.snap.Store(p.state)
		}
	}
	metrics.IncSweep()
	if p.out != nil {
		ev := p.out.Evicted()
		metrics.AddDeltasEvicted(ev - p.evictedSeen)
		p.evictedSeen = ev
	}
}

func (p *Poller) pollLimits(a axis.ID, tick uint32) {
	regs, err := p.bus.ReadHoldingRegisters(ReadTimeout, p.cfg[a].Slave, regLimits, 1)
	if err != nil {
		p.readFailed(a, "limits", &p.lim[a], err)
		return
	}
	p.readOK(a, &p.lim[a])

	min := regs[0]&0x01 != 0
	max := regs[0]&0x02 != 0
	st := &p.state[a]
	if min == st.MinLimit && max == st.MaxLimit {
		return
	}
	st.MinLimit, st.MaxLimit = min, max
	p.send(axis.Delta{
		Axis:      a,
		HasLimits: true,
		MinLimit:  min,
		MaxLimit:  max,
		Tick:      tick,
	})
}

func (p *Poller) pollPosition(a axis.ID, tick uint32) {
	regs, err := p.bus.ReadHoldingRegisters(ReadTimeout, p.cfg[a].Slave, regPosition, 2)
	if err != nil {
		p.readFailed(a, "position", &p.pos[a], err)
		return
	}
	p.readOK(a, &p.pos[a])

	// The drive reports the position big-endian across two registers;
	// the count goes negative below the origin, so keep the sign.
	mm := int32(uint32(regs[0])<<16 | uint32(regs[1]))
	st := &p.state[a]
	if mm == st.PositionMM {
		return
	}
	st.PositionMM = mm
	st.LastChangeTick = tick
	p.send(axis.Delta{
		Axis:        a,
		HasPosition: true,
		PositionMM:  mm,
		Tick:        tick,
	})
}

func (p *Poller) send(d axis.Delta) {
	if p.out != nil {
		p.out.Send(d)
	}
}

// readFailed records the outcome, counts toward stall detection and
// deliberately does not emit a delta: transient errors retry on the next
// sweep without disturbing the display.
func (p *Poller) readFailed(a axis.ID, register string, rs *regState, err error) {
	kind := bus.KindOf(err)
	st := &p.state[a]
	switch kind {
	case bus.FramingTimeout, bus.Busy:
		st.LastOutcome = axis.OutcomeTimeout
	case bus.CRCMismatch, bus.UnexpectedResponse:
		st.LastOutcome = axis.OutcomeDecodeError
	default:
		st.LastOutcome = axis.OutcomeBusError
	}
	metrics.IncPollError(a.String(), register, kind.String())

	rs.fails++
	if rs.fails >= stallThreshold && !rs.stalled {
		already := p.lim[a].stalled || p.pos[a].stalled
		rs.stalled = true
		// one event per axis stall episode, even when both registers
		// cross the threshold in the same sweep
		if !already {
			metrics.IncAxisStall(a.String())
			p.notify.AxisStalled(a)
			p.notify.Alert("Axis " + a.String() + " stalled")
		}
	}
}

// readOK resets stall tracking for that register; recovery is automatic
// and silent.
func (p *Poller) readOK(a axis.ID, rs *regState) {
	p.state[a].LastOutcome = axis.OutcomeOk
	rs.fails = 0
	rs.stalled = false
}
