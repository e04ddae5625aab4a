// Package events carries the textual health events the core emits to
// its collaborators (log, management receiver).
package events

import (
	"github.com/rs/zerolog"

	"github.com/intelliservenz/firecnc/internal/axis"
)

// Notifier receives health events from the core. Implementations must
// not block: the poller calls these from its sweep loop.
type Notifier interface {
	// AxisStalled fires once per stall episode, after three consecutive
	// failed reads of the same register.
	AxisStalled(a axis.ID)
	// Alert carries a textual event for the management collaborators.
	Alert(msg string)
}

// LogNotifier writes events to the structured log only.
type LogNotifier struct {
	Log zerolog.Logger
}

func (n LogNotifier) AxisStalled(a axis.ID) {
	n.Log.Warn().Str("axis", a.String()).Msg("axis stalled")
}

func (n LogNotifier) Alert(msg string) {
	n.Log.Info().Str("event", msg).Msg("alert")
}

// Multi fans events out to several notifiers.
type Multi []Notifier

func (m Multi) AxisStalled(a axis.ID) {
	for _, n := range m {
		n.AxisStalled(a)
	}
}

func (m Multi) Alert(msg string) {
	for _, n := range m {
		n.Alert(msg)
	}
}
