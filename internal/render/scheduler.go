package render

import "sync/atomic"

// Mode is an exclusive full-strip effect. While a mode other than Steady
// is active it fully replaces the composited frame.
type Mode int

const (
	ModeBoot Mode = iota
	ModeSteady
	ModeSdError
	ModeChase
	ModeCrossfade
	ModeTerminal
)

func (m Mode) String() string {
	switch m {
	case ModeBoot:
		return "boot"
	case ModeSteady:
		return "steady"
	case ModeSdError:
		return "sd_error"
	case ModeChase:
		return "chase"
	case ModeCrossfade:
		return "crossfade"
	case ModeTerminal:
		return "terminal"
	}
	return "?"
}

// Frame cadence and effect timing, in frame ticks (10 Hz).
const (
	// BootTicks is the duration of the power-up sweep.
	BootTicks = 100
	// SdBlinkTicks is how long the SD error blinks before holding solid.
	SdBlinkTicks = 100
	// CrossfadeSteps is the number of blend steps of the shutdown fade.
	CrossfadeSteps = 100
)

// Scheduler owns the mode flag and timers. It is stepped only by the
// compositor goroutine; external signals land in atomic request flags
// and take effect at the next frame boundary.
type Scheduler struct {
	mode      Mode
	modeStart uint32
	fadeStep  int

	// mirror of mode for readers outside the compositor goroutine
	cur atomic.Int32

	// restored when the SD error clears
	prevMode      Mode
	prevModeStart uint32

	sdActive atomic.Bool
	shutdown atomic.Bool
	chase    atomic.Bool

	done chan struct{}
}

func NewScheduler() *Scheduler {
	s := &Scheduler{
		mode: ModeBoot,
		done: make(chan struct{}),
	}
	s.cur.Store(int32(ModeBoot))
	return s
}

// Mode reports the mode after the last Step. Safe from any goroutine;
// the compositor's own stepping reads the private field.
func (s *Scheduler) Mode() Mode { return Mode(s.cur.Load()) }

// ModeElapsed is the number of ticks spent in the current mode.
func (s *Scheduler) ModeElapsed(tick uint32) uint32 { return tick - s.modeStart }

// FadeStep reports the current crossfade step in [0, CrossfadeSteps].
func (s *Scheduler) FadeStep() int { return s.fadeStep }

// Done is closed once the shutdown crossfade has finished.
func (s *Scheduler) Done() <-chan struct{} { return s.done }

// RaiseSdError and ClearSdError are idempotent and safe from any
// goroutine.
func (s *Scheduler) RaiseSdError() { s.sdActive.Store(true) }
func (s *Scheduler) ClearSdError() { s.sdActive.Store(false) }

// RequestShutdown starts the crossfade-to-blue at the next frame.
func (s *Scheduler) RequestShutdown() { s.shutdown.Store(true) }

// StartChase and StopChase toggle the chase effect (UI collaborator).
func (s *Scheduler) StartChase() { s.chase.Store(true) }
func (s *Scheduler) StopChase()  { s.chase.Store(false) }

// Step consumes pending requests and advances timers. It returns the
// previous mode so the compositor can react to transitions (fill white
// on Steady entry, capture planes on Crossfade entry).
func (s *Scheduler) Step(tick uint32) (prev Mode) {
	prev = s.mode

	// Shutdown preempts everything except a fade already in flight.
	if s.shutdown.Load() && s.mode != ModeCrossfade && s.mode != ModeTerminal {
		s.enter(ModeCrossfade, tick)
		s.fadeStep = 0
		return prev
	}

	switch s.mode {
	case ModeBoot:
		if tick-s.modeStart >= BootTicks {
			s.enter(ModeSteady, tick)
		}
	case ModeSteady:
		if s.sdActive.Load() {
			s.prevMode, s.prevModeStart = s.mode, s.modeStart
			s.enter(ModeSdError, tick)
		} else if s.chase.Load() {
			s.prevMode, s.prevModeStart = s.mode, s.modeStart
			s.enter(ModeChase, tick)
		}
	case ModeChase:
		if s.sdActive.Load() {
			s.prevMode, s.prevModeStart = s.mode, s.modeStart
			s.enter(ModeSdError, tick)
		} else if !s.chase.Load() {
			s.enter(ModeSteady, tick)
		}
	case ModeSdError:
		if !s.sdActive.Load() {
			s.mode, s.modeStart = s.prevMode, s.prevModeStart
			s.cur.Store(int32(s.mode))
		}
	case ModeCrossfade:
		s.fadeStep++
		if s.fadeStep >= CrossfadeSteps {
			s.enter(ModeTerminal, tick)
			close(s.done)
		}
	case ModeTerminal:
		// latched until the process exits
	}
	return prev
}

func (s *Scheduler) enter(m Mode, tick uint32) {
	s.mode = m
	s.modeStart = tick
	s.cur.Store(int32(m))
}

// pingpong maps t onto a bidirectional single-pixel sweep over n pixels.
func pingpong(t uint32, n int) int {
	if n <= 1 {
		return 0
	}
	period := uint32(2 * (n - 1))
	i := int(t % period)
	if i < n {
		return i
	}
	return 2*(n-1) - i
}
