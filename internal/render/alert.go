package render

// AlertWindow is the number of pixels forced at each end of a strip
// while its limit switch is active.
const AlertWindow = 20

// paintAlert overlays the limit-switch windows onto the frame copy. An
// active limit alternates red and the alert base color (orange) with the
// flash phase; a limit that was active earlier falls back to solid
// orange. Fallback windows are painted first so that on short strips the
// overlap of both windows alternates whenever either limit is active.
// The alert never touches the base or backup planes, so the position
// overlay restores true base pixels later.
func paintAlert(out []Color, min, max, minSeen, maxSeen, flashOn bool) {
	n := len(out)
	if n == 0 {
		return
	}

	if minSeen && !min {
		paintMinWindow(out, Orange)
	}
	if maxSeen && !max {
		paintMaxWindow(out, Orange)
	}

	active := Orange
	if flashOn {
		active = Red
	}
	if min {
		paintMinWindow(out, active)
	}
	if max {
		paintMaxWindow(out, active)
	}
}

func paintMinWindow(out []Color, c Color) {
	hi := AlertWindow
	if hi > len(out) {
		hi = len(out)
	}
	for i := 0; i < hi; i++ {
		out[i] = c
	}
}

func paintMaxWindow(out []Color, c Color) {
	lo := len(out) - AlertWindow
	if lo < 0 {
		lo = 0
	}
	for i := lo; i < len(out); i++ {
		out[i] = c
	}
}
