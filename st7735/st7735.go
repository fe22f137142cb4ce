package st7735

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/flavioheleno/campipe/rgb565"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Commands.
const (
	cmdNOP     = 0x00
	cmdSWRESET = 0x01 // software reset
	cmdSLPOUT  = 0x11 // sleep out
	cmdINVOFF  = 0x20 // display inversion off
	cmdINVON   = 0x21 // display inversion on
	cmdDISPOFF = 0x28
	cmdDISPON  = 0x29
	cmdCASET   = 0x2A // column address set
	cmdRASET   = 0x2B // row address set
	cmdRAMWR   = 0x2C // memory write
)

// settle is the delay after reset edges and power commands.
const settle = 120 * time.Millisecond

// sleep is replaced in tests.
var sleep = time.Sleep

var errHalted = errors.New("st7735: halted")

// Opts is the configuration for the ST7735 display.
type Opts struct {
	// Display dimensions in pixels
	W int // Width (default: 128, must be ≤132)
	H int // Height (default: 160, must be ≤162)

	// Optional control pins
	RST gpio.PinOut // Reset pin, active low (nil if not used)
	CS  gpio.PinOut // Chip select, active low (nil if driven by the SPI port)
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{W: 128, H: 160}

// Dev is the device handle for the ST7735 display.
type Dev struct {
	// Communication
	c   conn.Conn   // SPI connection
	dc  gpio.PinOut // Data/Command pin
	rst gpio.PinOut // Reset pin (optional)
	cs  gpio.PinOut // Chip select pin (optional)

	// Display geometry
	rect image.Rectangle

	// Transfer buffers, allocated once
	buf []byte  // one display row of RGB888 triples
	cmd [1]byte // command byte
	win [4]byte // address range

	// Frame tracking for Draw
	next *rgb565.Image // frame being composed
	last *rgb565.Image // frame shown by the panel, nil until the first full write

	// State
	halted bool
}

// NewSPI creates a new ST7735 device connected via SPI.
//
// The panel is not touched; call Calibrate before drawing.
//
// The SPI port is configured for 8MHz, Mode0 (CPOL=0, CPHA=0), 8-bit transfers.
// The dc (Data/Command) GPIO pin must be provided and configured as an output.
//
// opts can be nil to use DefaultOpts (128x160 display).
func NewSPI(p spi.Port, dc gpio.PinOut, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if dc == nil {
		return nil, errors.New("st7735: DC pin is required")
	}

	c, err := p.Connect(8*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("st7735: failed to connect to %s: %w", p, err)
	}

	return newDev(c, dc, opts), nil
}

func (o *Opts) validate() error {
	if o.W <= 0 || o.W > 132 {
		return errors.New("st7735: width must be between 1 and 132")
	}
	if o.H <= 0 || o.H > 162 {
		return errors.New("st7735: height must be between 1 and 162")
	}
	return nil
}

func newDev(c conn.Conn, dc gpio.PinOut, opts *Opts) *Dev {
	return &Dev{
		c:    c,
		dc:   dc,
		rst:  opts.RST,
		cs:   opts.CS,
		rect: image.Rect(0, 0, opts.W, opts.H),
		buf:  make([]byte, 3*opts.W),
	}
}

// Calibrate resets the display, wakes it up and clears it to white.
//
// The panel RAM holds garbage after a reset, hence the final Fill.
func (d *Dev) Calibrate() error {
	// CS is not needed for the hardware reset.
	if err := d.setCS(gpio.High); err != nil {
		return fmt.Errorf("st7735: failed to deassert CS: %w", err)
	}
	if d.rst != nil {
		if err := d.rst.Out(gpio.Low); err != nil {
			return fmt.Errorf("st7735: failed to pull RST low: %w", err)
		}
		sleep(settle)
		if err := d.rst.Out(gpio.High); err != nil {
			return fmt.Errorf("st7735: failed to pull RST high: %w", err)
		}
		sleep(settle)
	}

	if err := d.powerUp(); err != nil {
		return err
	}
	d.halted = false

	return d.Fill(nil)
}

// powerUp sends the wake up sequence.
func (d *Dev) powerUp() (err error) {
	if err := d.selectChip(); err != nil {
		return err
	}
	defer d.releaseChip(&err)

	for _, cmd := range []byte{
		cmdSWRESET, // Software reset
		cmdSLPOUT,  // Wake up from reset sleep
		cmdDISPON,  // Display ON
	} {
		if err := d.sendCommand(cmd); err != nil {
			return err
		}
		sleep(settle)
	}
	return nil
}

// WriteCommand sends a single command byte.
func (d *Dev) WriteCommand(cmd byte) (err error) {
	if err := d.selectChip(); err != nil {
		return err
	}
	defer d.releaseChip(&err)
	return d.sendCommand(cmd)
}

// WriteData sends parameter or pixel bytes.
func (d *Dev) WriteData(data []byte) (err error) {
	if err := d.selectChip(); err != nil {
		return err
	}
	defer d.releaseChip(&err)
	return d.sendData(data)
}

// SetWindow sets the column range [x0, x1] and the row range [y0, y1]
// addressed by the next memory write.
func (d *Dev) SetWindow(x0, x1, y0, y1 int) (err error) {
	w := Window{X0: x0, X1: x1, Y0: y0, Y1: y1}
	if err := d.checkWindow(w); err != nil {
		return err
	}
	if err := d.selectChip(); err != nil {
		return err
	}
	defer d.releaseChip(&err)
	return d.setWindow(w)
}

// Fill paints the whole display with c. A nil c paints it white.
func (d *Dev) Fill(c color.Color) (err error) {
	if d.halted {
		return errHalted
	}
	if c == nil {
		c = color.White
	}
	r, g, b, _ := c.RGBA()
	row := d.buf[:3*d.rect.Dx()]
	for i := 0; i < len(row); i += 3 {
		row[i] = byte(r >> 8)
		row[i+1] = byte(g >> 8)
		row[i+2] = byte(b >> 8)
	}

	if err := d.selectChip(); err != nil {
		return err
	}
	defer d.releaseChip(&err)
	defer d.forgetOnError(&err)

	if err := d.startWrite(WindowOf(d.rect)); err != nil {
		return err
	}
	// Stream one row at a time to stay within SPI transfer limits.
	for y := 0; y < d.rect.Dy(); y++ {
		if err := d.c.Tx(row, nil); err != nil {
			return err
		}
	}
	if err := d.endWrite(); err != nil {
		return err
	}

	shown := d.shown()
	px := uint16(rgb565.FromRGB888(byte(r>>8), byte(g>>8), byte(b>>8)))
	for i := range shown.Pix {
		shown.Pix[i] = px
	}
	return nil
}

// DrawRow draws one captured row of RGB565 pixels.
//
// The row lands on the display column given by RowWindow. Pixels beyond the
// display width are not sent.
func (d *Dev) DrawRow(row int, pixels []uint16) (err error) {
	if d.halted {
		return errHalted
	}
	w, n := RowWindow(row, len(pixels), d.rect.Dx())
	if n == 0 {
		return nil
	}
	if err := d.checkWindow(w); err != nil {
		return err
	}
	data := d.buf[:3*rgb565.PutRGB888(d.buf, pixels[:w.Pixels()])]

	if err := d.selectChip(); err != nil {
		return err
	}
	defer d.releaseChip(&err)

	if err := d.startWrite(w); err != nil {
		return err
	}
	if err := d.c.Tx(data, nil); err != nil {
		return err
	}
	if err := d.endWrite(); err != nil {
		return err
	}

	if d.last != nil {
		r := w.Rect()
		for y := r.Min.Y; y < r.Max.Y; y++ {
			d.last.SetRGB565(r.Min.X, y, rgb565.Color(pixels[y-r.Min.Y]))
		}
	}
	return nil
}

// ColorModel returns the color model of the display.
func (d *Dev) ColorModel() color.Model {
	return rgb565.Model
}

// Bounds returns the image bounds of the display.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// Write writes a raw frame of RGB888 triples, row by row.
// The data must be exactly d.rect.Dx() * d.rect.Dy() * 3 bytes.
func (d *Dev) Write(pixels []byte) (n int, err error) {
	if d.halted {
		return 0, errHalted
	}
	stride := 3 * d.rect.Dx()
	if len(pixels) != stride*d.rect.Dy() {
		return 0, errors.New("st7735: invalid buffer size")
	}

	if err := d.selectChip(); err != nil {
		return 0, err
	}
	defer d.releaseChip(&err)
	defer d.forgetOnError(&err)

	if err := d.startWrite(WindowOf(d.rect)); err != nil {
		return 0, err
	}
	for y := 0; y < d.rect.Dy(); y++ {
		if err := d.c.Tx(pixels[y*stride:(y+1)*stride], nil); err != nil {
			return 0, err
		}
	}
	if err := d.endWrite(); err != nil {
		return 0, err
	}
	// Tracked as RGB565, the way Draw composes frames.
	shown := d.shown()
	for y := 0; y < d.rect.Dy(); y++ {
		row := shown.Row(y)
		for x := range row {
			i := y*stride + 3*x
			row[x] = uint16(rgb565.FromRGB888(pixels[i], pixels[i+1], pixels[i+2]))
		}
	}
	return len(pixels), nil
}

// Draw draws an image onto the display with differential update optimization.
// The dst rectangle specifies the destination region on the display.
// The src image is positioned at src point sp within the destination.
func (d *Dev) Draw(dst image.Rectangle, src image.Image, sp image.Point) error {
	if d.halted {
		return errHalted
	}

	// Clip to display bounds
	dst = dst.Intersect(d.rect)
	if dst.Empty() {
		return nil
	}

	if d.next == nil {
		d.next = rgb565.NewImage(d.rect)
	}
	var changed image.Rectangle
	if d.last == nil {
		// Panel content unknown: the whole frame goes out.
		for i := range d.next.Pix {
			d.next.Pix[i] = 0
		}
		draw.Draw(d.next, dst, src, sp, draw.Src)
		changed = d.rect
	} else {
		copy(d.next.Pix, d.last.Pix)
		draw.Draw(d.next, dst, src, sp, draw.Src)
		changed = d.diff(dst)
	}
	if changed.Empty() {
		return nil
	}

	if err := d.writeRegion(changed); err != nil {
		// Part of the region may have been written.
		d.last = nil
		return err
	}
	copy(d.shown().Pix, d.next.Pix)
	return nil
}

// forgetOnError drops the shown frame when a full write failed part way.
func (d *Dev) forgetOnError(err *error) {
	if *err != nil {
		d.last = nil
	}
}

// shown returns the frame shown by the panel, allocating it on first use.
// Callers overwrite it entirely or update it after a full write.
func (d *Dev) shown() *rgb565.Image {
	if d.last == nil {
		d.last = rgb565.NewImage(d.rect)
	}
	return d.last
}

// diff returns the bounding box of the pixels in r that differ between the
// composed and the shown frame.
func (d *Dev) diff(r image.Rectangle) image.Rectangle {
	var out image.Rectangle
	for y := r.Min.Y; y < r.Max.Y; y++ {
		shown := d.last.Row(y)
		next := d.next.Row(y)
		for x := r.Min.X; x < r.Max.X; x++ {
			if shown[x] != next[x] {
				out = out.Union(image.Rect(x, y, x+1, y+1))
			}
		}
	}
	return out
}

// writeRegion sends the pixels of r from the composed frame.
func (d *Dev) writeRegion(r image.Rectangle) (err error) {
	if err := d.selectChip(); err != nil {
		return err
	}
	defer d.releaseChip(&err)

	if err := d.startWrite(WindowOf(r)); err != nil {
		return err
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		n := rgb565.PutRGB888(d.buf, d.next.Row(y)[r.Min.X:r.Max.X])
		if err := d.c.Tx(d.buf[:3*n], nil); err != nil {
			return err
		}
	}
	return d.endWrite()
}

// Invert inverts the display colors.
func (d *Dev) Invert(invert bool) error {
	if d.halted {
		return errHalted
	}
	cmd := byte(cmdINVOFF)
	if invert {
		cmd = cmdINVON
	}
	return d.WriteCommand(cmd)
}

// Halt turns the display off.
// After calling Halt, drawing fails until Calibrate is called again.
func (d *Dev) Halt() error {
	d.halted = true
	return d.WriteCommand(cmdDISPOFF)
}

// String returns a string representation of the device.
func (d *Dev) String() string {
	return fmt.Sprintf("st7735.Dev{%dx%d}", d.rect.Dx(), d.rect.Dy())
}

// checkWindow verifies w is ordered and lies on the display.
func (d *Dev) checkWindow(w Window) error {
	if w.X0 < 0 || w.X0 > w.X1 || w.X1 >= d.rect.Dx() ||
		w.Y0 < 0 || w.Y0 > w.Y1 || w.Y1 >= d.rect.Dy() {
		return fmt.Errorf("st7735: window %s outside %dx%d display", w, d.rect.Dx(), d.rect.Dy())
	}
	return nil
}

// startWrite addresses w and leaves the display expecting pixel data.
func (d *Dev) startWrite(w Window) error {
	// The panel drops the window without a leading NOP.
	if err := d.sendCommand(cmdNOP); err != nil {
		return err
	}
	if err := d.setWindow(w); err != nil {
		return err
	}
	if err := d.sendCommand(cmdRAMWR); err != nil {
		return err
	}
	return d.dc.Out(gpio.High)
}

// endWrite returns to command mode.
func (d *Dev) endWrite() error {
	return d.dc.Out(gpio.Low)
}

// setWindow sends the column and row ranges as big-endian 16-bit values.
func (d *Dev) setWindow(w Window) error {
	if err := d.sendCommand(cmdCASET); err != nil {
		return err
	}
	if err := d.sendData(d.span(w.X0, w.X1)); err != nil {
		return err
	}
	if err := d.sendCommand(cmdRASET); err != nil {
		return err
	}
	return d.sendData(d.span(w.Y0, w.Y1))
}

func (d *Dev) span(start, end int) []byte {
	d.win = [4]byte{byte(start >> 8), byte(start), byte(end >> 8), byte(end)}
	return d.win[:]
}

// sendCommand sends a single command byte.
func (d *Dev) sendCommand(cmd byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return err
	}
	d.cmd[0] = cmd
	return d.c.Tx(d.cmd[:], nil)
}

// sendData sends a slice of data bytes.
func (d *Dev) sendData(data []byte) error {
	if err := d.dc.Out(gpio.High); err != nil {
		return err
	}
	return d.c.Tx(data, nil)
}

// selectChip asserts CS.
func (d *Dev) selectChip() error {
	if err := d.setCS(gpio.Low); err != nil {
		return fmt.Errorf("st7735: failed to assert CS: %w", err)
	}
	return nil
}

// releaseChip deasserts CS and reports a failure through err unless it
// already holds one.
func (d *Dev) releaseChip(err *error) {
	if e := d.setCS(gpio.High); e != nil && *err == nil {
		*err = fmt.Errorf("st7735: failed to deassert CS: %w", e)
	}
}

func (d *Dev) setCS(l gpio.Level) error {
	if d.cs == nil {
		return nil
	}
	return d.cs.Out(l)
}
