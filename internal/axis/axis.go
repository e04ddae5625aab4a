// Package axis defines the three mechanical axes of the machine and the
// records exchanged between the servo poller and the LED pipeline.
package axis

// ID identifies one of the three axes. YY is the second Y-rail motor.
type ID int

const (
	Y ID = iota
	YY
	X

	// Count is the number of axes; IDs are always in [0, Count).
	Count = 3
)

func (id ID) String() string {
	switch id {
	case Y:
		return "Y"
	case YY:
		return "YY"
	case X:
		return "X"
	}
	return "?"
}

// All lists the axes in poll order.
var All = [Count]ID{Y, YY, X}

// Config is the immutable per-axis setup resolved at init.
type Config struct {
	Slave      uint8 // fieldbus slave id of the servo drive
	RailLenMM  int   // rail length in mm; <= 0 disables the position overlay
	NumLEDs    int   // strip length in pixels
	Brightness uint8 // default strip brightness
	WindowLEDs int   // pixels painted on either side of the position center
}

// Outcome classifies the last poll attempt for an axis.
type Outcome int

const (
	OutcomeOk Outcome = iota
	OutcomeBusError
	OutcomeDecodeError
	OutcomeTimeout
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOk:
		return "ok"
	case OutcomeBusError:
		return "bus_error"
	case OutcomeDecodeError:
		return "decode_error"
	case OutcomeTimeout:
		return "timeout"
	}
	return "?"
}

// State is the mutable runtime view of one axis. It is owned by the
// poller; everyone else reads snapshots.
type State struct {
	PositionMM     int32
	MinLimit       bool
	MaxLimit       bool
	LastChangeTick uint32
	LastOutcome    Outcome
}

// Delta is a change record emitted by the poller when an observation
// differs from the stored state. At least one of HasLimits/HasPosition
// is set.
type Delta struct {
	Axis        ID
	HasLimits   bool
	MinLimit    bool
	MaxLimit    bool
	HasPosition bool
	PositionMM  int32
	Tick        uint32
}
