package render

import "testing"

func TestBootToSteady(t *testing.T) {
	s := NewScheduler()
	if s.Mode() != ModeBoot {
		t.Fatalf("initial mode %v", s.Mode())
	}
	s.Step(BootTicks - 1)
	if s.Mode() != ModeBoot {
		t.Fatal("left boot early")
	}
	prev := s.Step(BootTicks)
	if prev != ModeBoot || s.Mode() != ModeSteady {
		t.Fatalf("prev %v mode %v", prev, s.Mode())
	}
}

func TestSdErrorRestoresPreviousMode(t *testing.T) {
	s := NewScheduler()
	s.Step(BootTicks) // -> steady, modeStart = BootTicks

	s.RaiseSdError()
	s.Step(150)
	if s.Mode() != ModeSdError {
		t.Fatalf("mode %v, want sd_error", s.Mode())
	}
	// raising again is a no-op
	s.RaiseSdError()
	s.Step(151)
	if s.Mode() != ModeSdError {
		t.Fatal("sd error dropped")
	}

	s.ClearSdError()
	s.Step(180)
	if s.Mode() != ModeSteady {
		t.Fatalf("mode %v, want steady", s.Mode())
	}
	// the interrupted mode resumes with its original start tick
	if got := s.ModeElapsed(180); got != 180-BootTicks {
		t.Fatalf("elapsed %d, want %d", got, 180-BootTicks)
	}
}

func TestChaseToggle(t *testing.T) {
	s := NewScheduler()
	s.Step(BootTicks)

	s.StartChase()
	s.Step(120)
	if s.Mode() != ModeChase {
		t.Fatalf("mode %v, want chase", s.Mode())
	}

	// sd error outranks the chase
	s.RaiseSdError()
	s.Step(130)
	if s.Mode() != ModeSdError {
		t.Fatalf("mode %v, want sd_error", s.Mode())
	}
	s.ClearSdError()
	s.Step(140)
	if s.Mode() != ModeChase {
		t.Fatalf("mode %v, want chase restored", s.Mode())
	}

	s.StopChase()
	s.Step(150)
	if s.Mode() != ModeSteady {
		t.Fatalf("mode %v, want steady", s.Mode())
	}
}

func TestShutdownPreemptsAndFinishes(t *testing.T) {
	s := NewScheduler()
	s.Step(BootTicks)
	s.RaiseSdError()
	s.Step(110)

	s.RequestShutdown()
	prev := s.Step(111)
	if prev != ModeSdError || s.Mode() != ModeCrossfade {
		t.Fatalf("prev %v mode %v", prev, s.Mode())
	}
	if s.FadeStep() != 0 {
		t.Fatalf("fade step %d at entry", s.FadeStep())
	}

	tick := uint32(112)
	for s.Mode() == ModeCrossfade {
		s.Step(tick)
		tick++
		if tick > 112+2*CrossfadeSteps {
			t.Fatal("crossfade never finished")
		}
	}
	if s.Mode() != ModeTerminal {
		t.Fatalf("mode %v, want terminal", s.Mode())
	}
	select {
	case <-s.Done():
	default:
		t.Fatal("done not closed")
	}

	// terminal is latched; a late sd error changes nothing
	s.RaiseSdError()
	s.Step(tick)
	if s.Mode() != ModeTerminal {
		t.Fatalf("mode %v, terminal must latch", s.Mode())
	}
}

func TestModeReadableFromOtherGoroutines(t *testing.T) {
	s := NewScheduler()
	done := make(chan struct{})
	go func() {
		defer close(done)
		// the status surface polls Mode while the compositor steps
		for i := 0; i < 1000; i++ {
			m := s.Mode()
			if m < ModeBoot || m > ModeTerminal {
				t.Errorf("torn mode %d", m)
				return
			}
		}
	}()
	for tick := uint32(0); tick < 1000; tick++ {
		if tick == 200 {
			s.RaiseSdError()
		}
		if tick == 400 {
			s.ClearSdError()
		}
		s.Step(tick)
	}
	<-done
	if s.Mode() != ModeSteady {
		t.Fatalf("mode %v, want steady", s.Mode())
	}
}

func TestPingpong(t *testing.T) {
	n := 4 // period 6: 0 1 2 3 2 1
	want := []int{0, 1, 2, 3, 2, 1, 0, 1}
	for tick, w := range want {
		if got := pingpong(uint32(tick), n); got != w {
			t.Fatalf("pingpong(%d, %d) = %d, want %d", tick, n, got, w)
		}
	}
	if got := pingpong(5, 1); got != 0 {
		t.Fatalf("single pixel sweep = %d", got)
	}
}
