package led

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
)

// refreshKHz is the WS2812 bit clock base; nrzled expands each data bit
// to an NRZ triplet on the SPI wire.
const refreshKHz = 800

// SPIStrip drives one WS2812-style strip through an SPI port using the
// periph.io NRZ encoder. periph's host.Init must have run before Open.
type SPIStrip struct {
	port spi.PortCloser
	dev  *nrzled.Dev
}

// OpenSPI opens the named SPI port (empty string picks the first one)
// for a strip of numPixels.
func OpenSPI(name string, numPixels int) (*SPIStrip, error) {
	if numPixels <= 0 {
		return nil, fmt.Errorf("invalid pixel count %d", numPixels)
	}
	port, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("spi open %q: %w", name, err)
	}
	dev, err := nrzled.NewSPI(port, &nrzled.Opts{
		NumPixels: numPixels,
		Channels:  3,
		Freq:      ((refreshKHz * 3) + 100) * physic.KiloHertz,
	})
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("nrzled on %q: %w", name, err)
	}
	return &SPIStrip{port: port, dev: dev}, nil
}

func (s *SPIStrip) Write(rgb []byte) error {
	_, err := s.dev.Write(rgb)
	return err
}

func (s *SPIStrip) Close() error {
	if err := s.dev.Halt(); err != nil {
		s.port.Close()
		return err
	}
	return s.port.Close()
}
