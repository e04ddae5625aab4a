// Package core supervises the controller: it owns the shared frame
// clock, starts the poller and the compositor, and runs the shutdown
// sequence.
package core

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/intelliservenz/firecnc/internal/axis"
	"github.com/intelliservenz/firecnc/internal/config"
	"github.com/intelliservenz/firecnc/internal/delta"
	"github.com/intelliservenz/firecnc/internal/events"
	"github.com/intelliservenz/firecnc/internal/led"
	"github.com/intelliservenz/firecnc/internal/poller"
	"github.com/intelliservenz/firecnc/internal/render"
)

// Controller wires the polling side to the rendering side. Both loops
// share one monotonic tick so deltas and frames agree on time.
type Controller struct {
	cfg    *config.Config
	log    zerolog.Logger
	notify events.Notifier
	start  time.Time

	ch    *delta.Channel
	snap  *axis.Cell
	sched *render.Scheduler
	comp  *render.Compositor
	pol   *poller.Poller

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New assembles the controller over an already-open bus and strip
// drivers. drv entries may be nil for axes without a strip attached.
func New(cfg *config.Config, b poller.Bus, drv [axis.Count]led.Driver, notify events.Notifier, log zerolog.Logger) *Controller {
	axes := cfg.AxisConfigs()
	ch := delta.New()
	snap := axis.NewCell()
	sched := render.NewScheduler()
	comp := render.NewCompositor(ch, sched, axes, drv, render.Options{
		IdleTimeoutSeconds: cfg.LEDs.IdleTimeoutSeconds,
		IdleDimPercent:     cfg.LEDs.IdleDimPercent,
		FlashSpeedMS:       cfg.LEDs.FlashSpeedMS,
		ChaseSpeedMS:       cfg.LEDs.ChaseSpeedMS,
	}, log.With().Str("comp", "render").Logger())
	pol := poller.New(b, axes, ch, snap, notify, log.With().Str("comp", "poller").Logger())

	if notify == nil {
		notify = events.LogNotifier{Log: log}
	}
	return &Controller{
		cfg:    cfg,
		log:    log,
		notify: notify,
		ch:     ch,
		snap:   snap,
		sched:  sched,
		comp:   comp,
		pol:    pol,
	}
}

// Tick is the monotonic frame counter, shared by the poller and the
// compositor. It starts at zero when Start is called.
func (c *Controller) Tick() uint32 {
	return uint32(time.Since(c.start) / render.FramePeriod)
}

// Start launches the poll and render loops. The boot sweep begins on the
// first frame.
func (c *Controller) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.start = time.Now()

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		_ = c.pol.Run(ctx, c.Tick)
	}()
	go func() {
		defer c.wg.Done()
		_ = c.comp.Run(ctx, c.Tick)
	}()
	c.log.Info().Msg("controller started")
	c.notify.Alert("Controller online")
}

// Shutdown requests the crossfade-to-blue and waits for it to finish,
// then stops both loops. The strips are left on the terminal color; the
// hardware keeps showing it after the process exits.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.notify.Alert("Controller shutting down")
	c.sched.RequestShutdown()
	select {
	case <-c.sched.Done():
	case <-ctx.Done():
		c.log.Warn().Msg("shutdown fade interrupted")
	}
	c.cancel()
	c.wg.Wait()
	return ctx.Err()
}

// External signals, safe from any goroutine. They take effect at the
// next frame boundary.

func (c *Controller) SetBrightness(a axis.ID, v uint8) { c.comp.SetBrightness(a, v) }
func (c *Controller) Brightness(a axis.ID) uint8       { return c.comp.Brightness(a) }
func (c *Controller) ClearSdError()                    { c.sched.ClearSdError() }
func (c *Controller) StartChase()                      { c.sched.StartChase() }
func (c *Controller) StopChase()                       { c.sched.StopChase() }

func (c *Controller) RaiseSdError() {
	c.sched.RaiseSdError()
	c.notify.Alert("SD error raised")
}

// Snapshot returns the latest complete axis state.
func (c *Controller) Snapshot() axis.Snapshot { return c.snap.Load() }

// Mode reports the active display mode, for the status surface.
func (c *Controller) Mode() render.Mode { return c.sched.Mode() }
