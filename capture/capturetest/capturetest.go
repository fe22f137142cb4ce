// Package capturetest is meant to be used to test code consuming capture
// signals without a camera.
//
// Waveforms are built from Frame, Line and Idle and replayed by Source:
//
//	src := &capturetest.Source{Steps: capturetest.Frame(capturetest.Pattern(80, 160)...)}
package capturetest

import (
	"errors"
	"sync"

	"github.com/flavioheleno/campipe/capture"
)

// Source replays a precomputed waveform, one step per sample.
//
// Once Steps is exhausted the last step is repeated, unless Loop is set in
// which case the waveform restarts.
type Source struct {
	sync.Mutex
	Steps []capture.Sample
	Loop  bool
	// Err is returned by Sample when set.
	Err error
	// Polls is the number of samples taken.
	Polls int

	i int
}

// Sample implements capture.Signals.
func (s *Source) Sample(p *capture.Sample) error {
	s.Lock()
	defer s.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if len(s.Steps) == 0 {
		return errors.New("capturetest: empty waveform")
	}
	s.Polls++
	if s.i >= len(s.Steps) {
		if !s.Loop {
			*p = s.Steps[len(s.Steps)-1]
			return nil
		}
		s.i = 0
	}
	*p = s.Steps[s.i]
	s.i++
	return nil
}

// Idle returns n steps with every line low.
func Idle(n int) []capture.Sample {
	return make([]capture.Sample, n)
}

// VSyncPulse returns a frame sync pulse.
func VSyncPulse() []capture.Sample {
	return []capture.Sample{{}, {VSync: true}, {VSync: true}, {}, {}}
}

// Bytes returns a line transmitting b, one byte per PCLK rising edge, with
// HREF low before and after.
func Bytes(b []byte) []capture.Sample {
	out := make([]capture.Sample, 0, 2*len(b)+4)
	out = append(out, capture.Sample{}, capture.Sample{})
	for _, v := range b {
		out = append(out,
			capture.Sample{HRef: true, Data: v},
			capture.Sample{HRef: true, PClk: true, Data: v},
		)
	}
	// HREF drops while PCLK is low.
	out = append(out, capture.Sample{HRef: true}, capture.Sample{}, capture.Sample{})
	return out
}

// Line returns a line transmitting pixels, most significant byte first.
func Line(pixels []uint16) []capture.Sample {
	b := make([]byte, 0, 2*len(pixels))
	for _, p := range pixels {
		b = append(b, byte(p>>8), byte(p))
	}
	return Bytes(b)
}

// Frame returns a VSYNC pulse followed by one line per row.
func Frame(rows ...[]uint16) []capture.Sample {
	out := VSyncPulse()
	for _, r := range rows {
		out = append(out, Line(r)...)
	}
	return append(out, Idle(2)...)
}

// Pattern returns rows of width pixels where pixel c of row r is r<<8|c.
func Pattern(rows, width int) [][]uint16 {
	out := make([][]uint16, rows)
	for r := range out {
		out[r] = make([]uint16, width)
		for c := range out[r] {
			out[r][c] = uint16(r<<8 | c)
		}
	}
	return out
}
