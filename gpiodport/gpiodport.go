//go:build linux

package gpiodport

import (
	"errors"
	"fmt"

	"github.com/flavioheleno/campipe/capture"
	"github.com/warthog618/gpiod"
)

// Port samples the capture lines through the GPIO character device.
//
// All lines are requested together and read with a single bulk request per
// sample.
type Port struct {
	chip  *gpiod.Chip
	lines *gpiod.Lines
	vals  []int
	name  string
}

// Open requests the lines described by opts as inputs.
func Open(opts *Opts) (*Port, error) {
	if opts == nil {
		return nil, errors.New("gpiodport: options are required")
	}
	offsets := opts.offsets()
	if err := checkOffsets(offsets); err != nil {
		return nil, err
	}
	consumer := opts.Consumer
	if consumer == "" {
		consumer = DefaultConsumer
	}
	c, err := gpiod.NewChip(opts.Chip, gpiod.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("gpiodport: failed to open %s: %w", opts.Chip, err)
	}
	l, err := c.RequestLines(offsets, gpiod.AsInput)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("gpiodport: failed to request lines %v: %w", offsets, err)
	}
	return &Port{chip: c, lines: l, vals: make([]int, len(offsets)), name: opts.Chip}, nil
}

// Sample implements capture.Signals.
func (p *Port) Sample(s *capture.Sample) error {
	if err := p.lines.Values(p.vals); err != nil {
		return fmt.Errorf("gpiodport: %w", err)
	}
	decode(p.vals, s)
	return nil
}

// Close releases the lines and the chip.
func (p *Port) Close() error {
	err := p.lines.Close()
	if cerr := p.chip.Close(); err == nil {
		err = cerr
	}
	return err
}

func (p *Port) String() string {
	return "gpiodport.Port{" + p.name + "}"
}
