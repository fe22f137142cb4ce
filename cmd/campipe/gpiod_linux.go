package main

import (
	"github.com/flavioheleno/campipe/capture"
	"github.com/flavioheleno/campipe/gpiodport"
	"github.com/flavioheleno/campipe/internal/config"
)

func openGpiod(p *config.GpiodParam, cl *closers) (capture.Signals, error) {
	opts := &gpiodport.Opts{
		Chip:  p.Chip,
		VSync: p.VSync,
		HRef:  p.HRef,
		PClk:  p.PClk,
	}
	copy(opts.Data[:], p.Data)
	port, err := gpiodport.Open(opts)
	if err != nil {
		return nil, err
	}
	cl.add(port)
	return port, nil
}
