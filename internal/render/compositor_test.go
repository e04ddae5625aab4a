package render

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/intelliservenz/firecnc/internal/axis"
	"github.com/intelliservenz/firecnc/internal/delta"
	"github.com/intelliservenz/firecnc/internal/led"
)

const testLEDs = 60

func newTestComp(idleSeconds int) (*Compositor, *delta.Channel, *Scheduler, [axis.Count]*led.Sim) {
	ch := delta.New()
	sched := NewScheduler()
	var cfgs [axis.Count]axis.Config
	var sims [axis.Count]*led.Sim
	var drv [axis.Count]led.Driver
	for i, a := range axis.All {
		cfgs[a] = axis.Config{
			Slave:      uint8(i + 1),
			RailLenMM:  1000,
			NumLEDs:    testLEDs,
			Brightness: 255,
			WindowLEDs: 2,
		}
		sims[a] = led.NewSim()
		drv[a] = sims[a]
	}
	comp := NewCompositor(ch, sched, cfgs, drv, Options{
		IdleTimeoutSeconds: idleSeconds,
		IdleDimPercent:     30,
		FlashSpeedMS:       500,
		ChaseSpeedMS:       100,
	}, zerolog.Nop())
	return comp, ch, sched, sims
}

// steady advances the compositor past the boot sweep.
func steady(c *Compositor) uint32 {
	c.Frame(0)
	c.Frame(BootTicks)
	return BootTicks
}

func TestBootSweep(t *testing.T) {
	c, _, _, sims := newTestComp(1000)
	c.Frame(0)
	shown := c.Shown(axis.Y)
	if shown[0] != Blue {
		t.Fatalf("pixel 0 = %v, want the blue sweep head", shown[0])
	}
	for i := 1; i < testLEDs; i++ {
		if shown[i] != Black {
			t.Fatalf("pixel %d = %v during boot", i, shown[i])
		}
	}

	c.Frame(3)
	if got := c.Shown(axis.Y); got[3] != Blue || got[0] != Black {
		t.Fatal("sweep head did not advance")
	}

	// hardware saw the frame too
	if rgb := sims[axis.Y].Last(); rgb[3*3+2] != 255 {
		t.Fatal("driver frame missing the blue pixel")
	}
}

func TestSteadyEntryPaintsWhite(t *testing.T) {
	c, _, _, _ := newTestComp(1000)
	steady(c)
	for _, a := range axis.All {
		for i, px := range c.Shown(a) {
			if px != White {
				t.Fatalf("axis %v pixel %d = %v after boot", a, i, px)
			}
		}
		for i, px := range c.Backup(a) {
			if px != White {
				t.Fatalf("axis %v backup %d = %v after boot", a, i, px)
			}
		}
	}
}

func TestPositionOverlayOnStrip(t *testing.T) {
	c, ch, _, _ := newTestComp(1000)
	tick := steady(c)

	ch.Send(axis.Delta{Axis: axis.X, HasPosition: true, PositionMM: 500, Tick: tick})
	c.Frame(tick + 1)

	shown := c.Shown(axis.X)
	for i := 28; i <= 32; i++ {
		if shown[i] != Green {
			t.Fatalf("pixel %d = %v, want the green window", i, shown[i])
		}
	}
	if shown[0] != White || shown[59] != White {
		t.Fatal("pixels outside the window disturbed")
	}
	// the other strips are untouched
	if px := c.Shown(axis.Y)[30]; px != White {
		t.Fatalf("Y pixel 30 = %v", px)
	}
}

func TestLimitAlertFlashAndFallback(t *testing.T) {
	c, ch, _, _ := newTestComp(1000)
	tick := steady(c) // flashTicks = 5

	ch.Send(axis.Delta{Axis: axis.Y, HasLimits: true, MinLimit: true, Tick: tick})
	c.Frame(tick) // tick 100: (100/5)%2 == 0, flash on
	if px := c.Shown(axis.Y)[0]; px != Red {
		t.Fatalf("pixel 0 = %v, want red", px)
	}
	c.Frame(tick + 5) // flash off
	if px := c.Shown(axis.Y)[0]; px != Orange {
		t.Fatalf("pixel 0 = %v, want orange", px)
	}
	// the window is transient: base and backup stay white
	if px := c.Backup(axis.Y)[0]; px != White {
		t.Fatalf("backup 0 = %v, alert must not persist", px)
	}

	// limit releases: solid orange in both phases
	ch.Send(axis.Delta{Axis: axis.Y, HasLimits: true, MinLimit: false, Tick: tick + 6})
	c.Frame(tick + 10)
	if px := c.Shown(axis.Y)[0]; px != Orange {
		t.Fatalf("pixel 0 = %v, want fallback orange", px)
	}
	c.Frame(tick + 15)
	if px := c.Shown(axis.Y)[0]; px != Orange {
		t.Fatalf("pixel 0 = %v, fallback must not flash", px)
	}
	if px := c.Shown(axis.Y)[AlertWindow]; px != White {
		t.Fatal("fallback painted beyond the window")
	}
}

func TestIdleDimOnlyWhitePixels(t *testing.T) {
	c, ch, _, _ := newTestComp(1) // dims after 10 ticks without movement
	tick := steady(c)

	ch.Send(axis.Delta{Axis: axis.Y, HasPosition: true, PositionMM: 500, Tick: tick})
	c.Frame(tick + 1)

	c.Frame(tick + 20)
	dim := Scale(White, 30)
	shown := c.Shown(axis.Y)
	if shown[0] != dim {
		t.Fatalf("pixel 0 = %v, want dimmed %v", shown[0], dim)
	}
	if shown[30] != Green {
		t.Fatalf("pixel 30 = %v, position window must not dim", shown[30])
	}

	// movement resets the idle clock and the base repaint covers the
	// new window; dimmed pixels stay dimmed
	ch.Send(axis.Delta{Axis: axis.Y, HasPosition: true, PositionMM: 0, Tick: tick + 21})
	c.Frame(tick + 22)
	shown = c.Shown(axis.Y)
	if shown[1] != Green {
		t.Fatalf("pixel 1 = %v, want the moved window", shown[1])
	}
	if shown[30] != dim {
		t.Fatalf("pixel 30 = %v, want the restored dimmed pixel", shown[30])
	}
}

func TestIdleDimSkipsFutureChangeTick(t *testing.T) {
	c, ch, _, _ := newTestComp(1000) // dims only after 10000 ticks
	tick := steady(c)

	// ticker jitter: the poller stamps the delta one tick ahead of the
	// frame it lands in
	ch.Send(axis.Delta{Axis: axis.Y, HasPosition: true, PositionMM: 500, Tick: tick + 1})
	c.Frame(tick)

	if px := c.Shown(axis.Y)[0]; px != White {
		t.Fatalf("pixel 0 = %v, a future change tick must not dim", px)
	}

	// the next frame catches up and stays undimmed
	c.Frame(tick + 1)
	if px := c.Shown(axis.Y)[0]; px != White {
		t.Fatalf("pixel 0 = %v after catching up", px)
	}
}

func TestChaseOverlay(t *testing.T) {
	c, _, sched, _ := newTestComp(1000)
	tick := steady(c)

	sched.StartChase()
	c.Frame(tick + 1) // chase entry, elapsed 0
	shown := c.Shown(axis.Y)
	if shown[0] != Purple {
		t.Fatalf("pixel 0 = %v, want purple", shown[0])
	}
	if shown[1] != Black {
		t.Fatalf("pixel 1 = %v, want black backdrop", shown[1])
	}

	sched.StopChase()
	c.Frame(tick + 2)
	if px := c.Shown(axis.Y)[0]; px != White {
		t.Fatalf("pixel 0 = %v, steady frame must return", px)
	}
}

func TestShutdownCrossfade(t *testing.T) {
	c, _, sched, _ := newTestComp(1000)
	tick := steady(c)

	sched.RequestShutdown()
	c.Frame(tick + 1) // crossfade entry, alpha 0: still the steady frame
	if px := c.Shown(axis.Y)[0]; px != White {
		t.Fatalf("pixel 0 = %v at fade start", px)
	}

	for i := uint32(2); i <= CrossfadeSteps+1; i++ {
		c.Frame(tick + i)
	}
	select {
	case <-sched.Done():
	default:
		t.Fatal("shutdown fade never finished")
	}
	for i, px := range c.Shown(axis.Y) {
		if px != Blue {
			t.Fatalf("pixel %d = %v, want terminal blue", i, px)
		}
	}
}

func TestBrightnessScalesOutput(t *testing.T) {
	c, _, _, sims := newTestComp(1000)
	tick := steady(c)

	c.SetBrightness(axis.X, 128)
	c.Frame(tick + 1)

	rgb := sims[axis.X].Last()
	if rgb[0] != 128 {
		t.Fatalf("byte 0 = %d, want 128 on a white frame", rgb[0])
	}
	// composition itself stays at full scale
	if px := c.Shown(axis.X)[0]; px != White {
		t.Fatalf("shown pixel = %v, brightness must only scale the output", px)
	}
	// other strips keep their own scalar
	if rgb := sims[axis.Y].Last(); rgb[0] != 255 {
		t.Fatalf("Y byte 0 = %d, want 255", rgb[0])
	}
}
