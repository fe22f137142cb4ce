//go:build !linux

package main

import (
	"errors"

	"github.com/flavioheleno/campipe/capture"
	"github.com/flavioheleno/campipe/internal/config"
)

func openGpiod(p *config.GpiodParam, cl *closers) (capture.Signals, error) {
	return nil, errors.New("capture source gpiod is only available on linux")
}
