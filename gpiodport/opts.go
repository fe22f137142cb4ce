// Package gpiodport reads the parallel video port of a camera sensor through
// the Linux GPIO character device.
//
// It is an alternative to capture.Pins when the capture lines sit on a single
// GPIO chip: the lines are sampled with one bulk read instead of eleven
// separate pin reads, so VSYNC, HREF, PCLK and the data bus are consistent
// within a sample.
package gpiodport

import (
	"fmt"

	"github.com/flavioheleno/campipe/capture"
)

// DefaultConsumer is the label the lines are requested with.
const DefaultConsumer = "campipe"

// Opts describes the line offsets on a GPIO chip.
type Opts struct {
	// Chip is the chip name, e.g. "gpiochip0".
	Chip string
	// Consumer labels the requested lines (default: DefaultConsumer).
	Consumer string
	VSync    int
	HRef     int
	PClk     int
	// Data holds the offsets of D0 to D7.
	Data [8]int
}

// offsets returns the line offsets in sampling order.
func (o *Opts) offsets() []int {
	return append([]int{o.VSync, o.HRef, o.PClk}, o.Data[:]...)
}

func checkOffsets(offsets []int) error {
	seen := make(map[int]bool, len(offsets))
	for _, off := range offsets {
		if off < 0 {
			return fmt.Errorf("gpiodport: invalid line offset %d", off)
		}
		if seen[off] {
			return fmt.Errorf("gpiodport: line %d used twice", off)
		}
		seen[off] = true
	}
	return nil
}

// decode converts values read in offsets order into s.
func decode(vals []int, s *capture.Sample) {
	s.VSync = vals[0] != 0
	s.HRef = vals[1] != 0
	s.PClk = vals[2] != 0
	var v byte
	for i := 7; i >= 0; i-- {
		v <<= 1
		if vals[3+i] != 0 {
			v |= 1
		}
	}
	s.Data = v
}
