package render

import "testing"

func whitePlanes(n int) (plane, backup []Color) {
	plane = make([]Color, n)
	backup = make([]Color, n)
	fill(plane, White)
	fill(backup, White)
	return
}

func TestPositionWindow(t *testing.T) {
	plane, backup := whitePlanes(10)
	pos := applyPosition(plane, backup, 500, 1000, 1, -1)
	if pos != 5 {
		t.Fatalf("pos %d, want 5", pos)
	}
	for i, px := range plane {
		want := White
		if i >= 4 && i <= 6 {
			want = Green
		}
		if px != want {
			t.Fatalf("pixel %d = %v", i, px)
		}
	}
}

func TestPositionMoveRestoresBackup(t *testing.T) {
	plane, backup := whitePlanes(10)
	plane[5] = Orange // distinct pixel under the first window
	backup[5] = Orange

	pos := applyPosition(plane, backup, 500, 1000, 1, -1)
	if plane[5] != Green {
		t.Fatalf("window not painted: %v", plane[5])
	}

	pos = applyPosition(plane, backup, 0, 1000, 1, pos)
	if pos != 0 {
		t.Fatalf("pos %d, want 0", pos)
	}
	// the old window is restored exactly, including the odd pixel
	if plane[5] != Orange {
		t.Fatalf("pixel 5 = %v, want restored orange", plane[5])
	}
	if plane[0] != Green || plane[1] != Green {
		t.Fatal("new window not painted at the start")
	}
}

func TestPositionSamePixelNoop(t *testing.T) {
	plane, backup := whitePlanes(10)
	pos := applyPosition(plane, backup, 500, 1000, 1, -1)
	// a small move that maps to the same pixel must not repaint
	backup[5] = Purple // would leak into the plane on a spurious restore
	got := applyPosition(plane, backup, 509, 1000, 1, pos)
	if got != pos {
		t.Fatalf("pos %d, want %d", got, pos)
	}
	if plane[5] != Green {
		t.Fatalf("pixel 5 = %v", plane[5])
	}
}

func TestPositionClamping(t *testing.T) {
	plane, backup := whitePlanes(10)
	// below the origin clamps to pixel 0
	pos := applyPosition(plane, backup, -50, 1000, 2, -1)
	if pos != 0 {
		t.Fatalf("pos %d, want 0", pos)
	}
	if plane[0] != Green || plane[2] != Green || plane[3] != White {
		t.Fatal("window not clipped at the start")
	}

	// beyond the rail clamps to the last pixel
	pos = applyPosition(plane, backup, 2000, 1000, 2, pos)
	if pos != 9 {
		t.Fatalf("pos %d, want 9", pos)
	}
	if plane[9] != Green || plane[7] != Green || plane[6] != White {
		t.Fatal("window not clipped at the end")
	}
}

func TestPositionDisabledRail(t *testing.T) {
	plane, backup := whitePlanes(10)
	pos := applyPosition(plane, backup, 500, 0, 2, -1)
	if pos != -1 {
		t.Fatalf("pos %d, want untouched -1", pos)
	}
	for i, px := range plane {
		if px != White {
			t.Fatalf("pixel %d painted with overlay disabled", i)
		}
	}
}

func TestAlertWindows(t *testing.T) {
	out := make([]Color, 60)
	fill(out, White)

	paintAlert(out, true, false, true, false, true)
	if out[0] != Red || out[AlertWindow-1] != Red {
		t.Fatal("active min window not red in the flash-on phase")
	}
	if out[AlertWindow] != White {
		t.Fatal("alert painted beyond its window")
	}

	fill(out, White)
	paintAlert(out, true, false, true, false, false)
	if out[0] != Orange {
		t.Fatal("active min window not orange in the flash-off phase")
	}

	// released limit falls back to solid orange in both phases
	fill(out, White)
	paintAlert(out, false, false, true, false, true)
	if out[0] != Orange {
		t.Fatal("fallback window not orange")
	}
	fill(out, White)
	paintAlert(out, false, true, true, true, true)
	if out[0] != Orange {
		t.Fatal("min fallback lost while max is active")
	}
	if out[59] != Red {
		t.Fatal("active max window not red")
	}
}

func TestAlertShortStripOverlap(t *testing.T) {
	// 30 pixels: both 20-pixel windows overlap in the middle
	out := make([]Color, 30)
	fill(out, White)
	paintAlert(out, true, false, true, true, true)
	// the overlap belongs to the active window, so it flashes
	if out[15] != Red {
		t.Fatalf("overlap pixel %v, want red from the active min window", out[15])
	}
}
