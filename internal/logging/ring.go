// Package logging provides the shared in-memory log sink: a fixed ring
// of recent lines that never blocks its writers.
package logging

import "sync"

// Ring is an io.Writer that keeps the last N log lines, overwriting the
// oldest on overflow. zerolog hands it one line per Write call.
type Ring struct {
	mu    sync.Mutex
	lines [][]byte
	head  int
	count int
}

func NewRing(size int) *Ring {
	if size <= 0 {
		size = 256
	}
	return &Ring{lines: make([][]byte, size)}
}

func (r *Ring) Write(p []byte) (int, error) {
	line := make([]byte, len(p))
	copy(line, p)

	r.mu.Lock()
	r.lines[r.head] = line
	r.head = (r.head + 1) % len(r.lines)
	if r.count < len(r.lines) {
		r.count++
	}
	r.mu.Unlock()
	return len(p), nil
}

// Snapshot returns the retained lines in chronological order.
func (r *Ring) Snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, r.count)
	start := r.head - r.count
	if start < 0 {
		start += len(r.lines)
	}
	for i := 0; i < r.count; i++ {
		out = append(out, string(r.lines[(start+i)%len(r.lines)]))
	}
	return out
}
