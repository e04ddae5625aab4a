package led

import "sync"

// Sim captures frames instead of driving hardware; the websocket hub and
// tests read the last written frame.
type Sim struct {
	mu   sync.Mutex
	last []byte
}

func NewSim() *Sim { return &Sim{} }

func (s *Sim) Write(rgb []byte) error {
	s.mu.Lock()
	if cap(s.last) < len(rgb) {
		s.last = make([]byte, len(rgb))
	}
	s.last = s.last[:len(rgb)]
	copy(s.last, rgb)
	s.mu.Unlock()
	return nil
}

// Last returns a copy of the most recent frame, or nil before the first
// write.
func (s *Sim) Last() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	out := make([]byte, len(s.last))
	copy(out, s.last)
	return out
}

func (s *Sim) Close() error { return nil }
