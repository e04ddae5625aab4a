package render

// applyPosition draws the green position window onto plane, preserving
// the pixels it covers in backup so they can be restored exactly when
// the position moves on. lastPos carries the previously drawn pixel
// index (-1 for none) and is returned updated.
//
// A rail length <= 0 disables the overlay for the strip.
func applyPosition(plane, backup []Color, positionMM int32, railLenMM, radius int, lastPos int) int {
	n := len(plane)
	if railLenMM <= 0 || n == 0 {
		return lastPos
	}

	pos := floorDiv(int64(positionMM)*int64(n), int64(railLenMM))
	if pos < 0 {
		pos = 0
	}
	if pos >= n {
		pos = n - 1
	}
	if pos == lastPos {
		return lastPos
	}

	// Restore what the previous window hid.
	if lastPos != -1 {
		lo, hi := clipWindow(lastPos, radius, n)
		copy(plane[lo:hi+1], backup[lo:hi+1])
	}

	// Save the new window, then paint it green.
	lo, hi := clipWindow(pos, radius, n)
	copy(backup[lo:hi+1], plane[lo:hi+1])
	for i := lo; i <= hi; i++ {
		plane[i] = Green
	}
	return pos
}

// clipWindow clamps [center-r, center+r] to the strip; no wraparound.
func clipWindow(center, r, n int) (lo, hi int) {
	lo = center - r
	if lo < 0 {
		lo = 0
	}
	hi = center + r
	if hi > n-1 {
		hi = n - 1
	}
	return lo, hi
}

// floorDiv rounds toward negative infinity; positions below the origin
// map to negative pixel indices before clamping.
func floorDiv(a, b int64) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return int(q)
}
