package capture

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// Pins samples the capture lines through individual GPIO pins.
//
// Each line is read separately, so a sample is only consistent when the
// host reads much faster than the pixel clock.
type Pins struct {
	vsync gpio.PinIn
	href  gpio.PinIn
	pclk  gpio.PinIn
	d     [8]gpio.PinIn
}

// NewPins configures the pins as floating inputs and returns a Signals
// source over them. d[0] is the least significant data bit.
func NewPins(vsync, href, pclk gpio.PinIn, d [8]gpio.PinIn) (*Pins, error) {
	p := &Pins{vsync: vsync, href: href, pclk: pclk, d: d}
	for _, l := range p.lines() {
		if l == nil {
			return nil, errors.New("capture: missing pin")
		}
		if err := l.In(gpio.Float, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("capture: failed to configure %s: %w", l, err)
		}
	}
	return p, nil
}

// Sample implements Signals.
func (p *Pins) Sample(s *Sample) error {
	s.VSync = p.vsync.Read() == gpio.High
	s.HRef = p.href.Read() == gpio.High
	s.PClk = p.pclk.Read() == gpio.High
	var v byte
	for i := 7; i >= 0; i-- {
		v <<= 1
		if p.d[i].Read() == gpio.High {
			v |= 1
		}
	}
	s.Data = v
	return nil
}

func (p *Pins) String() string {
	return fmt.Sprintf("capture.Pins{VSYNC: %s, HREF: %s, PCLK: %s}", p.vsync, p.href, p.pclk)
}

func (p *Pins) lines() []gpio.PinIn {
	return append([]gpio.PinIn{p.vsync, p.href, p.pclk}, p.d[:]...)
}
