// Package render maintains the three strip pixel buffers and composites
// the layered effects onto them: idle dimming, the position overlay, the
// limit alerts, and the exclusive mode overlays (boot sweep, SD error,
// chase, shutdown crossfade).
package render

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/intelliservenz/firecnc/internal/axis"
	"github.com/intelliservenz/firecnc/internal/delta"
	"github.com/intelliservenz/firecnc/internal/led"
	"github.com/intelliservenz/firecnc/internal/metrics"
)

// FramePeriod is the compositor cadence; ticks count these frames.
const FramePeriod = 100 * time.Millisecond

// Options carries the visual timing configuration.
type Options struct {
	IdleTimeoutSeconds int
	IdleDimPercent     int
	FlashSpeedMS       int
	ChaseSpeedMS       int
}

type strip struct {
	cfg axis.Config

	base     []Color // steady-state plane, mutated by the layer pipeline
	backup   []Color // pre-overlay pixels for the position window
	out      []Color // composed frame of this tick
	shown    []Color // previous composed frame, pre-brightness
	fadeFrom []Color // captured at crossfade entry
	rgb      []byte

	lastPos          int
	hasPos           bool // no overlay until the first position report
	min, max         bool
	minSeen, maxSeen bool
	position         int32
	lastChange       uint32

	brightness atomic.Uint32
}

// Compositor is the single writer of all pixel planes.
type Compositor struct {
	ch     *delta.Channel
	sched  *Scheduler
	drv    [axis.Count]led.Driver
	strips [axis.Count]*strip
	log    zerolog.Logger

	idleTicks  uint32
	idleDimPct int
	flashTicks uint32
	chaseTicks uint32
}

func NewCompositor(ch *delta.Channel, sched *Scheduler, cfgs [axis.Count]axis.Config, drv [axis.Count]led.Driver, opts Options, log zerolog.Logger) *Compositor {
	c := &Compositor{
		ch:         ch,
		sched:      sched,
		drv:        drv,
		log:        log,
		idleTicks:  uint32(opts.IdleTimeoutSeconds) * uint32(time.Second/FramePeriod),
		idleDimPct: opts.IdleDimPercent,
		flashTicks: ticksOf(opts.FlashSpeedMS),
		chaseTicks: ticksOf(opts.ChaseSpeedMS),
	}
	for _, a := range axis.All {
		n := cfgs[a].NumLEDs
		s := &strip{
			cfg:      cfgs[a],
			base:     make([]Color, n),
			backup:   make([]Color, n),
			out:      make([]Color, n),
			shown:    make([]Color, n),
			fadeFrom: make([]Color, n),
			rgb:      make([]byte, 3*n),
			lastPos:  -1,
		}
		s.brightness.Store(uint32(cfgs[a].Brightness))
		c.strips[a] = s
	}
	return c
}

func ticksOf(ms int) uint32 {
	t := uint32(time.Duration(ms) * time.Millisecond / FramePeriod)
	if t < 1 {
		t = 1
	}
	return t
}

// SetBrightness adjusts the final per-strip scalar; last write wins.
func (c *Compositor) SetBrightness(a axis.ID, v uint8) {
	c.strips[a].brightness.Store(uint32(v))
}

// Brightness reports the current per-strip scalar.
func (c *Compositor) Brightness(a axis.ID) uint8 {
	return uint8(c.strips[a].brightness.Load())
}

// Run produces frames at the compositor cadence until ctx is cancelled.
func (c *Compositor) Run(ctx context.Context, tick func() uint32) error {
	t := time.NewTicker(FramePeriod)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			c.Frame(tick())
		}
	}
}

// Frame composites and pushes one frame. The layer order is fixed:
// deltas, idle dim, position overlay, limit alert, mode overlay,
// brightness.
func (c *Compositor) Frame(tick uint32) {
	c.drain()

	prev := c.sched.Step(tick)
	mode := c.sched.Mode()
	if mode != prev {
		switch {
		case prev == ModeBoot && mode == ModeSteady:
			c.enterSteady()
		case mode == ModeCrossfade:
			for _, s := range c.strips {
				copy(s.fadeFrom, s.shown)
			}
		}
	}

	flashOn := (tick/c.flashTicks)%2 == 0

	for _, s := range c.strips {
		// Idle dimming: only untouched white pixels fade, and only
		// once, since a dimmed pixel is no longer pure white. The
		// poller's ticker can stamp a delta one tick ahead of the
		// frame; a change in the future counts as zero idle time.
		if c.idleTicks > 0 && tick >= s.lastChange && tick-s.lastChange > c.idleTicks {
			for i, px := range s.base {
				if px == White {
					s.base[i] = Scale(px, c.idleDimPct)
				}
			}
		}

		if s.hasPos {
			s.lastPos = applyPosition(s.base, s.backup, s.position, s.cfg.RailLenMM, s.cfg.WindowLEDs, s.lastPos)
		}

		copy(s.out, s.base)
		paintAlert(s.out, s.min, s.max, s.minSeen, s.maxSeen, flashOn)

		c.modeOverlay(s, mode, tick)

		copy(s.shown, s.out)
	}

	c.push()
	metrics.IncFrame()
}

// drain applies all queued deltas to the local axis view.
func (c *Compositor) drain() {
	for {
		d, ok := c.ch.Recv()
		if !ok {
			return
		}
		s := c.strips[d.Axis]
		if d.HasLimits {
			s.min, s.max = d.MinLimit, d.MaxLimit
			s.minSeen = s.minSeen || d.MinLimit
			s.maxSeen = s.maxSeen || d.MaxLimit
		}
		if d.HasPosition {
			s.position = d.PositionMM
			s.lastChange = d.Tick
			s.hasPos = true
		}
	}
}

// enterSteady paints the post-boot steady state: solid white planes with
// matching backups, position overlays redrawn from scratch.
func (c *Compositor) enterSteady() {
	for _, s := range c.strips {
		fill(s.base, White)
		copy(s.backup, s.base)
		s.lastPos = -1
		s.minSeen, s.maxSeen = false, false
	}
}

// modeOverlay replaces the composed frame while an exclusive effect is
// active.
func (c *Compositor) modeOverlay(s *strip, mode Mode, tick uint32) {
	elapsed := c.sched.ModeElapsed(tick)
	n := len(s.out)
	switch mode {
	case ModeBoot:
		fill(s.out, Black)
		if n > 0 {
			s.out[pingpong(elapsed, n)] = Blue
		}
	case ModeSdError:
		if elapsed < SdBlinkTicks && (elapsed/c.flashTicks)%2 == 1 {
			fill(s.out, Black)
		} else {
			fill(s.out, Red)
		}
	case ModeChase:
		fill(s.out, Black)
		if n > 0 {
			s.out[int(elapsed/c.chaseTicks)%n] = Purple
		}
	case ModeCrossfade:
		alpha := c.sched.FadeStep() * 256 / CrossfadeSteps
		for i := range s.out {
			s.out[i] = Blend(s.fadeFrom[i], Blue, alpha)
		}
	case ModeTerminal:
		fill(s.out, Blue)
	}
}

// push applies the brightness scalar and writes each strip.
func (c *Compositor) push() {
	for a, s := range c.strips {
		b := uint8(s.brightness.Load())
		for i, px := range s.out {
			scaled := scaleByte(px, b)
			s.rgb[3*i+0] = scaled.R
			s.rgb[3*i+1] = scaled.G
			s.rgb[3*i+2] = scaled.B
		}
		if c.drv[a] == nil {
			continue
		}
		if err := c.drv[a].Write(s.rgb); err != nil {
			c.log.Debug().Err(err).Str("axis", axis.ID(a).String()).Msg("strip write")
		}
	}
}

// Shown returns a copy of the last composed plane for a strip, before
// brightness scaling. Test and UI helper; the compositor goroutine is
// the only writer, so callers sample between frames.
func (c *Compositor) Shown(a axis.ID) []Color {
	s := c.strips[a]
	out := make([]Color, len(s.shown))
	copy(out, s.shown)
	return out
}

// Backup returns a copy of the backup plane for a strip.
func (c *Compositor) Backup(a axis.ID) []Color {
	s := c.strips[a]
	out := make([]Color, len(s.backup))
	copy(out, s.backup)
	return out
}
