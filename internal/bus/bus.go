// Package bus owns the half-duplex servo fieldbus: one serial port, one
// transmit-enable line, one transaction at a time. All access goes
// through the Arbiter so a stalled axis cannot wedge the line for the
// others.
package bus

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Arbiter serializes bus transactions. Acquisition is scoped: the
// transmit-enable line and the mutex are released on every exit path,
// including failures.
type Arbiter struct {
	sem  chan struct{}
	port Port
	dir  DirectionLine
	log  zerolog.Logger
}

// NewArbiter wires the arbiter over an open port and direction line.
func NewArbiter(port Port, dir DirectionLine, log zerolog.Logger) *Arbiter {
	if dir == nil {
		dir = NopDirection{}
	}
	return &Arbiter{
		sem:  make(chan struct{}, 1),
		port: port,
		dir:  dir,
		log:  log,
	}
}

// With runs fn holding the bus. If the mutex is not acquired within
// timeout, it fails with Busy and fn never runs.
func (a *Arbiter) With(timeout time.Duration, fn func() error) error {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case a.sem <- struct{}{}:
	case <-t.C:
		return errOf(Busy, fmt.Errorf("bus not acquired within %v", timeout))
	}
	defer func() { <-a.sem }()
	defer a.dir.Receive() // never leave the driver asserted

	return fn()
}

// ReadHoldingRegisters performs one register read transaction: acquire,
// assert the line, send the request, release the line, collect the
// response within window.
func (a *Arbiter) ReadHoldingRegisters(window time.Duration, slave uint8, addr, count uint16) ([]uint16, error) {
	var regs []uint16
	err := a.With(window, func() error {
		req := buildReadHolding(slave, addr, count)

		if err := a.dir.Transmit(); err != nil {
			return errOf(IO, err)
		}
		if err := a.port.Flush(); err != nil {
			return errOf(IO, err)
		}
		if _, err := a.port.Write(req); err != nil {
			return errOf(IO, err)
		}
		if err := a.dir.Receive(); err != nil {
			return errOf(IO, err)
		}

		frame, err := a.collect(responseLen(count), window)
		if err != nil {
			return err
		}
		regs, err = parseReadHolding(slave, count, frame)
		return err
	})
	return regs, err
}

// collect reads until want bytes arrive or the window closes. The port's
// own read timeout keeps each Read call short; an exception frame is
// shorter than a normal response, so a stall after 5 bytes is resolved
// by the parser rather than the deadline.
func (a *Arbiter) collect(want int, window time.Duration) ([]byte, error) {
	buf := make([]byte, 0, want)
	one := make([]byte, want)
	deadline := time.Now().Add(window)

	for len(buf) < want {
		if time.Now().After(deadline) {
			if len(buf) >= 5 {
				// possibly a complete exception frame
				return buf, nil
			}
			return nil, errOf(FramingTimeout, fmt.Errorf("got %d of %d bytes", len(buf), want))
		}
		n, err := a.port.Read(one[:want-len(buf)])
		if n > 0 {
			buf = append(buf, one[:n]...)
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, errOf(IO, err)
		}
		// zero-byte read: the port timed out, poll again until the
		// transaction window closes
	}
	return buf, nil
}
