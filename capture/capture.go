package capture

import (
	"errors"
	"fmt"
)

var (
	// ErrDesync matches every error returned when the sampled signals stop
	// following the expected frame structure.
	ErrDesync = errors.New("capture: frame desync")
	// ErrTimeout is returned when a signal edge does not show up within
	// Opts.MaxPolls polls.
	ErrTimeout = errors.New("capture: timeout waiting for signal")

	// ErrShortRow is reported when a line ends with fewer pixels than the
	// capture width.
	ErrShortRow = errors.New("capture: line shorter than capture width")
	// ErrPartialPixel is reported when a line ends between the two bytes of
	// a pixel.
	ErrPartialPixel = errors.New("capture: line ended on a partial pixel")
	// ErrFrameSync is reported when frame sync toggles before all rows were
	// captured.
	ErrFrameSync = errors.New("capture: frame sync before last row")
)

// DesyncError is returned when a frame is abandoned midway.
type DesyncError struct {
	// Row is the row being captured.
	Row int
	// Pixels is the number of pixels latched on Row.
	Pixels int
	// State is the state the machine was in.
	State State
	// Err is the cause.
	Err error
}

func (e *DesyncError) Error() string {
	return fmt.Sprintf("capture: desync at row %d (%s, %d pixels): %v", e.Row, e.State, e.Pixels, e.Err)
}

// Is makes errors.Is(err, ErrDesync) match.
func (e *DesyncError) Is(target error) bool {
	return target == ErrDesync
}

func (e *DesyncError) Unwrap() error {
	return e.Err
}

// State is a state of the capture machine.
type State int

const (
	// WaitFrameStart waits for a complete VSYNC pulse.
	WaitFrameStart State = iota
	// WaitLineStart waits for HREF to rise.
	WaitLineStart
	// SampleHighByte waits for the PCLK rising edge latching the first byte
	// of a pixel.
	SampleHighByte
	// SampleLowByte waits for the PCLK rising edge latching the second byte
	// of a pixel.
	SampleLowByte
	// EndOfLine hands the completed row over.
	EndOfLine
	// EndOfFrame is reached once all rows were captured.
	EndOfFrame
)

var stateNames = [...]string{
	WaitFrameStart: "WaitFrameStart",
	WaitLineStart:  "WaitLineStart",
	SampleHighByte: "SampleHighByte",
	SampleLowByte:  "SampleLowByte",
	EndOfLine:      "EndOfLine",
	EndOfFrame:     "EndOfFrame",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Sample is the level of every capture line at one instant.
type Sample struct {
	VSync bool
	HRef  bool
	PClk  bool
	Data  byte
}

// Signals is a source of capture line samples.
//
// Sample must read all lines at once so that the data bus is consistent with
// the clock level it is reported with.
type Signals interface {
	Sample(s *Sample) error
}

// RowHandler receives each completed row.
//
// pixels has exactly the capture width and is only valid during the call.
type RowHandler func(row int, pixels []uint16) error

// Opts is the configuration for a Machine.
type Opts struct {
	// Width is the number of pixels kept per row (default: 160).
	Width int
	// Rows is the number of rows per frame (default: 80).
	Rows int
	// MaxPolls bounds how many samples are taken while waiting for a single
	// edge (default: 1<<22).
	MaxPolls int
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Width:    160,
	Rows:     80,
	MaxPolls: 1 << 22,
}

// Stats are counters accumulated over the lifetime of a Machine.
type Stats struct {
	// Frames is the number of frames completed.
	Frames int
	// Rows is the number of rows handed over.
	Rows int
	// Dropped is the number of pixels discarded beyond the capture width.
	Dropped int
	// Desyncs is the number of abandoned frames.
	Desyncs int
}

// Machine reconstructs rows of RGB565 pixels from polled video signals.
type Machine struct {
	s     Signals
	opts  Opts
	row   []uint16
	state State
	stats Stats
}

// New returns a Machine sampling s.
//
// opts can be nil to use DefaultOpts.
func New(s Signals, opts *Opts) (*Machine, error) {
	o := DefaultOpts
	if opts != nil {
		o = *opts
		if o.MaxPolls <= 0 {
			o.MaxPolls = DefaultOpts.MaxPolls
		}
	}
	if o.Width <= 0 || o.Rows <= 0 {
		return nil, fmt.Errorf("capture: invalid frame size %dx%d", o.Width, o.Rows)
	}
	if s == nil {
		return nil, errors.New("capture: signals are required")
	}
	return &Machine{s: s, opts: o, row: make([]uint16, o.Width)}, nil
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Stats returns the accumulated counters.
func (m *Machine) Stats() Stats {
	return m.stats
}

// CaptureFrame waits for the next frame and calls h once per row, in order.
//
// Every poll takes one sample and drives at most one transition. Pixels past
// the capture width are discarded. A frame that does not complete cleanly is
// abandoned with a *DesyncError; the next call starts over at the next frame
// boundary.
func (m *Machine) CaptureFrame(h RowHandler) error {
	var cur, prev Sample
	if err := m.s.Sample(&prev); err != nil {
		return fmt.Errorf("capture: failed to sample: %w", err)
	}
	width := m.opts.Width
	row, n, polls := 0, 0, 0
	var hi byte
	pulse := false
	m.state = WaitFrameStart

	for {
		switch m.state {
		case EndOfLine:
			if n < width {
				return m.desync(row, n, ErrShortRow)
			}
			if err := h(row, m.row); err != nil {
				return err
			}
			m.stats.Rows++
			row++
			if row == m.opts.Rows {
				m.state = EndOfFrame
			} else {
				m.state = WaitLineStart
			}
			continue
		case EndOfFrame:
			m.stats.Frames++
			return nil
		}

		if err := m.s.Sample(&cur); err != nil {
			return fmt.Errorf("capture: failed to sample: %w", err)
		}
		polls++
		if polls > m.opts.MaxPolls {
			if m.state == WaitFrameStart {
				return fmt.Errorf("capture: no frame start after %d polls: %w", polls-1, ErrTimeout)
			}
			return m.desync(row, n, ErrTimeout)
		}
		if m.state != WaitFrameStart && cur.VSync != prev.VSync {
			return m.desync(row, n, ErrFrameSync)
		}

		switch m.state {
		case WaitFrameStart:
			if cur.VSync && !prev.VSync {
				pulse = true
			} else if !cur.VSync && prev.VSync && pulse {
				m.state = WaitLineStart
				polls = 0
			}
		case WaitLineStart:
			if cur.HRef && !prev.HRef {
				n = 0
				m.state = SampleHighByte
				polls = 0
			}
		case SampleHighByte:
			if !cur.HRef {
				m.state = EndOfLine
				polls = 0
			} else if cur.PClk && !prev.PClk {
				hi = cur.Data
				m.state = SampleLowByte
				polls = 0
			}
		case SampleLowByte:
			if !cur.HRef {
				return m.desync(row, n, ErrPartialPixel)
			}
			if cur.PClk && !prev.PClk {
				if n < width {
					m.row[n] = uint16(hi)<<8 | uint16(cur.Data)
					n++
				} else {
					m.stats.Dropped++
				}
				m.state = SampleHighByte
				polls = 0
			}
		}
		prev = cur
	}
}

func (m *Machine) desync(row, n int, err error) error {
	m.stats.Desyncs++
	return &DesyncError{Row: row, Pixels: n, State: m.state, Err: err}
}
