// Package pipeline streams frames from a camera sensor to a display, one row
// at a time, without a frame buffer.
//
// Run calibrates both devices, then captures frames forever (or
// Opts.Frames times). Every captured row goes straight to the display. A
// frame that loses synchronization is dropped and capture resumes at the
// next frame boundary.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/flavioheleno/campipe/capture"
	"github.com/flavioheleno/campipe/sccb"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
)

// Sensor is a camera sensor that can be configured.
type Sensor interface {
	Calibrate() error
}

// Display is a panel accepting captured rows.
type Display interface {
	Calibrate() error
	DrawRow(row int, pixels []uint16) error
}

// Capturer produces frames row by row.
type Capturer interface {
	CaptureFrame(h capture.RowHandler) error
	Stats() capture.Stats
}

// Opts is the configuration for a Pipeline.
type Opts struct {
	// Frames is the number of frames to stream; 0 streams until the context
	// is done.
	Frames int
	// MaxDesyncs aborts Run after that many consecutive dropped frames;
	// 0 never aborts.
	MaxDesyncs int
	// Pins are the sensor bus lines, used to recover the bus once when the
	// sensor calibration times out. nil disables recovery.
	Pins i2c.Pins
	// Log receives milestone messages (default: the logrus standard logger).
	Log logrus.FieldLogger
}

// Pipeline connects a sensor, a frame capturer and a display.
type Pipeline struct {
	sensor  Sensor
	display Display
	capture Capturer
	opts    Opts
	log     logrus.FieldLogger
	draw    capture.RowHandler
}

// New returns a Pipeline. opts can be nil.
func New(s Sensor, d Display, c Capturer, opts *Opts) *Pipeline {
	p := &Pipeline{sensor: s, display: d, capture: c}
	if opts != nil {
		p.opts = *opts
	}
	p.log = p.opts.Log
	if p.log == nil {
		p.log = logrus.StandardLogger()
	}
	p.draw = d.DrawRow
	return p
}

// Calibrate initializes the display, then the sensor.
//
// When the sensor calibration times out on the bus and Opts.Pins is set, the
// bus is recovered once so the next attempt starts from an idle bus. The
// calibration error is returned either way.
func (p *Pipeline) Calibrate() error {
	p.log.Info("Calibrating display")
	if err := p.display.Calibrate(); err != nil {
		return fmt.Errorf("pipeline: display calibration failed: %w", err)
	}

	p.log.Info("Calibrating sensor")
	err := p.sensor.Calibrate()
	if err == nil {
		return nil
	}
	err = fmt.Errorf("pipeline: sensor calibration failed: %w", err)
	if !errors.Is(err, sccb.ErrTimeout) || p.opts.Pins == nil {
		return err
	}

	scl, sda := p.opts.Pins.SCL(), p.opts.Pins.SDA()
	if scl == gpio.INVALID || sda == gpio.INVALID {
		return err
	}
	p.log.WithFields(logrus.Fields{"scl": scl, "sda": sda}).Warn("Bus timeout, recovering bus")
	if rerr := sccb.Recover(scl, sda); rerr != nil {
		return errors.Join(err, rerr)
	}
	p.log.Info("Bus recovered")
	return err
}

// Run calibrates the devices and streams frames until ctx is done, Opts.Frames
// frames were displayed, or an unrecoverable error occurs.
//
// ctx is only checked between frames.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.Calibrate(); err != nil {
		return err
	}

	p.log.Info("Entering capture loop")
	frames, desyncs := 0, 0
	for p.opts.Frames == 0 || frames < p.opts.Frames {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := p.capture.CaptureFrame(p.draw)
		var derr *capture.DesyncError
		switch {
		case errors.As(err, &derr):
			desyncs++
			p.log.WithFields(logrus.Fields{
				"row":    derr.Row,
				"pixels": derr.Pixels,
				"state":  derr.State,
				"cause":  derr.Err,
			}).Warn("Frame dropped, resuming at next frame")
			if p.opts.MaxDesyncs > 0 && desyncs >= p.opts.MaxDesyncs {
				return fmt.Errorf("pipeline: %d consecutive frames dropped: %w", desyncs, err)
			}
		case err != nil:
			return fmt.Errorf("pipeline: %w", err)
		default:
			frames++
			desyncs = 0
			st := p.capture.Stats()
			p.log.WithFields(logrus.Fields{
				"frame":   st.Frames,
				"dropped": st.Dropped,
				"desyncs": st.Desyncs,
			}).Debug("Frame displayed")
		}
	}
	p.log.WithField("frames", frames).Info("Capture loop done")
	return nil
}
