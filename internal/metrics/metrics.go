// Package metrics exposes Prometheus metrics for the polling and render
// loops.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sweeps = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "firecnc",
		Subsystem: "poller",
		Name:      "sweeps_total",
		Help:      "Completed poll sweeps over all axes",
	})

	pollErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "firecnc",
		Subsystem: "poller",
		Name:      "errors_total",
		Help:      "Failed register reads by axis, register and kind",
	}, []string{"axis", "register", "kind"})

	axisStalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "firecnc",
		Subsystem: "poller",
		Name:      "stalls_total",
		Help:      "Axis stall episodes (3 consecutive failed reads)",
	}, []string{"axis"})

	frames = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "firecnc",
		Subsystem: "render",
		Name:      "frames_total",
		Help:      "Frames composited and pushed to the strips",
	})

	deltasEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "firecnc",
		Subsystem: "channel",
		Name:      "deltas_evicted_total",
		Help:      "Deltas coalesced or dropped on channel overflow",
	})
)

func IncSweep() { sweeps.Inc() }
func IncFrame() { frames.Inc() }

func IncPollError(axis, register, kind string) {
	pollErrors.WithLabelValues(axis, register, kind).Inc()
}

func IncAxisStall(axis string) {
	axisStalls.WithLabelValues(axis).Inc()
}

// AddDeltasEvicted advances the eviction counter; callers pass the
// increment since their last report.
func AddDeltasEvicted(n uint64) {
	if n > 0 {
		deltasEvicted.Add(float64(n))
	}
}
