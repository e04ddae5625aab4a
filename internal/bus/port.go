package bus

import (
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// Port is the serial transport under the arbiter. tarm/serial satisfies
// it directly; tests hand in a scripted fake.
type Port interface {
	io.ReadWriteCloser
	Flush() error
}

// OpenSerial opens the half-duplex fieldbus port: 19200 8N1 with a short
// read timeout so response polling stays step-bounded.
func OpenSerial(device string, baud int, readTimeout time.Duration) (Port, error) {
	if baud <= 0 {
		baud = 19200
	}
	p, err := serial.OpenPort(&serial.Config{
		Name:        device,
		Baud:        baud,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: readTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}
	return p, nil
}

// DirectionLine drives the RS-485 transmit-enable pin. Transmit asserts
// the driver; Receive releases it so the slaves can answer.
type DirectionLine interface {
	Transmit() error
	Receive() error
}

type gpioLine struct {
	pin gpio.PinIO
}

// OpenDirectionLine resolves a GPIO by name (e.g. "GPIO17") for the
// transmit-enable line.
func OpenDirectionLine(name string) (DirectionLine, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("gpio %q not found", name)
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("gpio %s: %w", name, err)
	}
	return &gpioLine{pin: pin}, nil
}

func (l *gpioLine) Transmit() error { return l.pin.Out(gpio.High) }
func (l *gpioLine) Receive() error  { return l.pin.Out(gpio.Low) }

// NopDirection is used when the serial adapter handles direction itself.
type NopDirection struct{}

func (NopDirection) Transmit() error { return nil }
func (NopDirection) Receive() error  { return nil }
