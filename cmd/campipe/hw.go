package main

import (
	"fmt"
	"io"

	"github.com/flavioheleno/campipe/capture"
	"github.com/flavioheleno/campipe/internal/config"
	"github.com/flavioheleno/campipe/sccb"
	"github.com/flavioheleno/campipe/st7735"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/spi/spireg"
)

// closers releases handles in reverse opening order.
type closers []io.Closer

func (c *closers) add(cl io.Closer) {
	*c = append(*c, cl)
}

func (c closers) Close() error {
	var first error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func pinByName(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("GPIO pin %s not found", name)
	}
	return p, nil
}

// openSensorBus returns the sensor control bus and, when it exposes them, its
// lines for recovery.
func openSensorBus(p *config.SensorParam, cl *closers) (i2c.Bus, i2c.Pins, error) {
	f, err := p.Frequency()
	if err != nil {
		return nil, nil, err
	}

	if p.Bus != "" {
		b, err := i2creg.Open(p.Bus)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open I²C bus %s: %w", p.Bus, err)
		}
		cl.add(b)
		if err := b.SetSpeed(f); err != nil {
			logrus.WithError(err).Warnf("Unable to set %s speed to %s", b, f)
		}
		pins, _ := b.(i2c.Pins)
		logrus.Debugf("Sensor bus: %s", b)
		return b, pins, nil
	}

	scl, err := pinByName(p.SCL)
	if err != nil {
		return nil, nil, err
	}
	sda, err := pinByName(p.SDA)
	if err != nil {
		return nil, nil, err
	}
	ctrl, err := sccb.NewBitBang(scl, sda, f)
	if err != nil {
		return nil, nil, err
	}
	b := sccb.New(ctrl, &sccb.Opts{Timeout: p.Timeout})
	logrus.Debugf("Sensor bus: %s at %s", b, f)
	return b, b, nil
}

func openDisplay(p *config.DisplayParam, cl *closers) (*st7735.Dev, error) {
	port, err := spireg.Open(p.Port)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port: %w", err)
	}
	cl.add(port)

	dc, err := pinByName(p.DC)
	if err != nil {
		return nil, err
	}
	opts := &st7735.Opts{W: p.Width, H: p.Height}
	if p.RST != "" {
		if opts.RST, err = pinByName(p.RST); err != nil {
			return nil, err
		}
	}
	if p.CS != "" {
		if opts.CS, err = pinByName(p.CS); err != nil {
			return nil, err
		}
	}

	dev, err := st7735.NewSPI(port, dc, opts)
	if err != nil {
		return nil, err
	}
	cl.add(closerFunc(dev.Halt))
	logrus.Debugf("Display: %s", dev)
	return dev, nil
}

func openCapture(p *config.CaptureParam, cl *closers) (*capture.Machine, error) {
	var src capture.Signals
	switch p.Source {
	case "gpiod":
		s, err := openGpiod(&p.Gpiod, cl)
		if err != nil {
			return nil, err
		}
		src = s
	default:
		var lines [3]gpio.PinIn
		for i, name := range []string{p.Pins.VSync, p.Pins.HRef, p.Pins.PClk} {
			l, err := pinByName(name)
			if err != nil {
				return nil, err
			}
			lines[i] = l
		}
		var d [8]gpio.PinIn
		for i, name := range p.Pins.Data {
			l, err := pinByName(name)
			if err != nil {
				return nil, err
			}
			d[i] = l
		}
		s, err := capture.NewPins(lines[0], lines[1], lines[2], d)
		if err != nil {
			return nil, err
		}
		src = s
	}
	logrus.Debugf("Capture source: %s", src)

	return capture.New(src, &capture.Opts{
		Width:    p.Width,
		Rows:     p.Rows,
		MaxPolls: p.MaxPolls,
	})
}
