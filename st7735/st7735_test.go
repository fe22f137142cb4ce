package st7735

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/flavioheleno/campipe/rgb565"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/spi/spitest"
)

func init() {
	sleep = func(time.Duration) {}
}

// tx is one recorded transfer with the level of DC at the time.
type tx struct {
	dc gpio.Level
	w  []byte
}

// recorder is a conn.Conn recording transfers along with the DC level.
type recorder struct {
	dc  *gpiotest.Pin
	ops []tx
	err error
}

func (r *recorder) String() string {
	return "recorder"
}

func (r *recorder) Tx(w, read []byte) error {
	if r.err != nil {
		return r.err
	}
	r.ops = append(r.ops, tx{dc: r.dc.Read(), w: append([]byte(nil), w...)})
	return nil
}

func (r *recorder) Duplex() conn.Duplex {
	return conn.Half
}

// commands returns the command bytes sent, in order.
func (r *recorder) commands() []byte {
	var out []byte
	for _, op := range r.ops {
		if op.dc == gpio.Low {
			out = append(out, op.w...)
		}
	}
	return out
}

// data returns all data bytes sent.
func (r *recorder) data() []byte {
	var out []byte
	for _, op := range r.ops {
		if op.dc == gpio.High {
			out = append(out, op.w...)
		}
	}
	return out
}

// levelPin records every level it is driven to.
type levelPin struct {
	*gpiotest.Pin
	levels []gpio.Level
}

func (p *levelPin) Out(l gpio.Level) error {
	p.levels = append(p.levels, l)
	return p.Pin.Out(l)
}

func newTestDev(w, h int) (*Dev, *recorder, *levelPin) {
	dc := &gpiotest.Pin{N: "DC"}
	cs := &levelPin{Pin: &gpiotest.Pin{N: "CS"}}
	rec := &recorder{dc: dc}
	return newDev(rec, dc, &Opts{W: w, H: h, CS: cs}), rec, cs
}

func TestOptsValidation(t *testing.T) {
	tests := []struct {
		name    string
		opts    Opts
		wantErr bool
	}{
		{"default 128x160", DefaultOpts, false},
		{"maximum 132x162", Opts{W: 132, H: 162}, false},
		{"width zero", Opts{W: 0, H: 160}, true},
		{"width > 132", Opts{W: 133, H: 160}, true},
		{"height zero", Opts{W: 128, H: 0}, true},
		{"height > 162", Opts{W: 128, H: 200}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSetWindow(t *testing.T) {
	dev, rec, cs := newTestDev(128, 160)

	if err := dev.SetWindow(0, 127, 0, 159); err != nil {
		t.Fatal(err)
	}

	want := []byte{0x00, 0x00, 0x00, 0x7F, 0x00, 0x00, 0x00, 0x9F}
	if got := rec.data(); !bytes.Equal(got, want) {
		t.Errorf("data = % X, want % X", got, want)
	}
	if got := rec.commands(); !bytes.Equal(got, []byte{cmdCASET, cmdRASET}) {
		t.Errorf("commands = % X", got)
	}
	if !equalLevels(cs.levels, gpio.Low, gpio.High) {
		t.Errorf("CS levels = %v", cs.levels)
	}
}

func TestSetWindowOutOfRange(t *testing.T) {
	tests := []struct {
		name           string
		x0, x1, y0, y1 int
	}{
		{"negative x0", -1, 10, 0, 10},
		{"x1 past width", 0, 128, 0, 10},
		{"y1 past height", 0, 10, 0, 160},
		{"reversed columns", 10, 5, 0, 10},
		{"reversed rows", 0, 10, 10, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, rec, cs := newTestDev(128, 160)
			if err := dev.SetWindow(tt.x0, tt.x1, tt.y0, tt.y1); err == nil {
				t.Error("SetWindow should fail")
			}
			if len(rec.ops) != 0 || len(cs.levels) != 0 {
				t.Error("nothing should be sent")
			}
		})
	}
}

func TestDrawRowTruncates(t *testing.T) {
	dev, rec, cs := newTestDev(128, 160)

	pixels := make([]uint16, 200)
	for i := range pixels {
		pixels[i] = 0x001F
	}
	pixels[0] = 0xF800

	if err := dev.DrawRow(5, pixels); err != nil {
		t.Fatal(err)
	}

	if got := rec.commands(); !bytes.Equal(got, []byte{cmdNOP, cmdCASET, cmdRASET, cmdRAMWR}) {
		t.Errorf("commands = % X", got)
	}
	data := rec.data()
	window := []byte{0, 5, 0, 5, 0, 0, 0, 127}
	if !bytes.Equal(data[:8], window) {
		t.Errorf("window = % X, want % X", data[:8], window)
	}
	pix := data[8:]
	if len(pix) != 128*3 {
		t.Fatalf("sent %d pixel bytes, want %d", len(pix), 128*3)
	}
	if !bytes.Equal(pix[:6], []byte{248, 0, 0, 0, 0, 248}) {
		t.Errorf("first pixels = % X", pix[:6])
	}
	if dev.dc.(*gpiotest.Pin).L != gpio.Low {
		t.Error("DC should be back in command mode")
	}
	if !equalLevels(cs.levels, gpio.Low, gpio.High) {
		t.Errorf("CS levels = %v", cs.levels)
	}
}

func TestDrawRowShort(t *testing.T) {
	dev, rec, _ := newTestDev(128, 160)

	if err := dev.DrawRow(0, []uint16{0xFFFF, 0xFFFF}); err != nil {
		t.Fatal(err)
	}
	data := rec.data()
	if !bytes.Equal(data[:8], []byte{0, 0, 0, 0, 0, 0, 0, 1}) {
		t.Errorf("window = % X", data[:8])
	}
	if len(data[8:]) != 6 {
		t.Errorf("sent %d pixel bytes, want 6", len(data[8:]))
	}
}

func TestDrawRowEmpty(t *testing.T) {
	dev, rec, cs := newTestDev(128, 160)
	if err := dev.DrawRow(3, nil); err != nil {
		t.Fatal(err)
	}
	if len(rec.ops) != 0 || len(cs.levels) != 0 {
		t.Error("empty row should not be sent")
	}
}

func TestDrawRowOutOfRange(t *testing.T) {
	dev, rec, _ := newTestDev(128, 160)
	if err := dev.DrawRow(128, make([]uint16, 10)); err == nil {
		t.Error("DrawRow should fail past the last column")
	}
	if len(rec.ops) != 0 {
		t.Error("nothing should be sent")
	}
}

func TestCalibrate(t *testing.T) {
	dc := &gpiotest.Pin{N: "DC"}
	cs := &levelPin{Pin: &gpiotest.Pin{N: "CS"}}
	rst := &levelPin{Pin: &gpiotest.Pin{N: "RST"}}
	rec := &recorder{dc: dc}
	dev := newDev(rec, dc, &Opts{W: 128, H: 160, CS: cs, RST: rst})

	sleeps := 0
	sleep = func(time.Duration) { sleeps++ }
	defer func() { sleep = func(time.Duration) {} }()

	if err := dev.Calibrate(); err != nil {
		t.Fatal(err)
	}

	want := []byte{cmdSWRESET, cmdSLPOUT, cmdDISPON, cmdNOP, cmdCASET, cmdRASET, cmdRAMWR}
	if got := rec.commands(); !bytes.Equal(got, want) {
		t.Errorf("commands = % X, want % X", got, want)
	}
	if sleeps != 5 {
		t.Errorf("%d settle delays, want 5", sleeps)
	}
	if !equalLevels(rst.levels, gpio.Low, gpio.High) {
		t.Errorf("RST levels = %v", rst.levels)
	}
	// Released, then power up, then fill.
	if !equalLevels(cs.levels, gpio.High, gpio.Low, gpio.High, gpio.Low, gpio.High) {
		t.Errorf("CS levels = %v", cs.levels)
	}

	// The fill is white, one row per transfer.
	rows := 0
	for _, op := range rec.ops {
		if op.dc == gpio.High && len(op.w) == 128*3 {
			if op.w[0] != 0xFF || op.w[len(op.w)-1] != 0xFF {
				t.Fatal("fill is not white")
			}
			rows++
		}
	}
	if rows != 160 {
		t.Errorf("filled %d rows, want 160", rows)
	}
}

func TestFill(t *testing.T) {
	dev, rec, cs := newTestDev(4, 2)

	if err := dev.Fill(color.RGBA{R: 0xFF, A: 0xFF}); err != nil {
		t.Fatal(err)
	}
	data := rec.data()
	window := []byte{0, 0, 0, 3, 0, 0, 0, 1}
	if !bytes.Equal(data[:8], window) {
		t.Errorf("window = % X, want % X", data[:8], window)
	}
	want := bytes.Repeat([]byte{0xFF, 0x00, 0x00}, 8)
	if !bytes.Equal(data[8:], want) {
		t.Errorf("pixels = % X, want % X", data[8:], want)
	}
	if !equalLevels(cs.levels, gpio.Low, gpio.High) {
		t.Errorf("CS levels = %v", cs.levels)
	}
}

func TestTxErrorReleasesChip(t *testing.T) {
	dev, rec, cs := newTestDev(4, 2)
	rec.err = errors.New("bus error")
	if err := dev.Fill(nil); err == nil {
		t.Fatal("Fill should fail")
	}
	if !equalLevels(cs.levels, gpio.Low, gpio.High) {
		t.Errorf("CS levels = %v", cs.levels)
	}
	if dev.last != nil {
		t.Error("shown frame should be unknown after a failed fill")
	}
}

func TestDrawDifferential(t *testing.T) {
	dev, rec, _ := newTestDev(4, 4)
	img := rgb565.NewImage(dev.Bounds())

	// First draw: panel content unknown, full frame.
	if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
		t.Fatal(err)
	}
	if got := len(rec.data()); got != 8+4*4*3 {
		t.Errorf("first draw sent %d bytes", got)
	}

	// Nothing changed.
	rec.ops = nil
	if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
		t.Fatal(err)
	}
	if len(rec.ops) != 0 {
		t.Error("unchanged frame should not be sent")
	}

	// One pixel changed.
	rec.ops = nil
	img.SetRGB565(2, 1, 0xF800)
	if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
		t.Fatal(err)
	}
	want := []byte{0, 2, 0, 2, 0, 1, 0, 1, 248, 0, 0}
	if got := rec.data(); !bytes.Equal(got, want) {
		t.Errorf("data = % X, want % X", got, want)
	}
}

func TestDrawAfterDrawRow(t *testing.T) {
	dev, rec, _ := newTestDev(4, 4)
	img := rgb565.NewImage(dev.Bounds())
	if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
		t.Fatal(err)
	}
	if err := dev.DrawRow(1, []uint16{0x07E0}); err != nil {
		t.Fatal(err)
	}

	// Drawing the same black frame must overwrite the row pixel.
	rec.ops = nil
	if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
		t.Fatal(err)
	}
	want := []byte{0, 1, 0, 1, 0, 0, 0, 0, 0, 0, 0}
	if got := rec.data(); !bytes.Equal(got, want) {
		t.Errorf("data = % X, want % X", got, want)
	}
}

func TestDrawAfterCalibrate(t *testing.T) {
	dev, rec, _ := newTestDev(4, 4)
	if err := dev.Calibrate(); err != nil {
		t.Fatal(err)
	}

	// Only the drawn pixel goes out, the white panel around it is kept.
	rec.ops = nil
	red := image.NewUniform(color.RGBA{R: 0xFF, A: 0xFF})
	if err := dev.Draw(image.Rect(0, 0, 1, 1), red, image.Point{}); err != nil {
		t.Fatal(err)
	}
	want := []byte{0, 0, 0, 0, 0, 0, 0, 0, 0xF8, 0, 0}
	if got := rec.data(); !bytes.Equal(got, want) {
		t.Errorf("data = % X, want % X", got, want)
	}
}

func TestDrawAfterWrite(t *testing.T) {
	dev, rec, _ := newTestDev(2, 2)
	red := image.NewUniform(color.RGBA{R: 0xFF, A: 0xFF})
	if err := dev.Draw(dev.Bounds(), red, image.Point{}); err != nil {
		t.Fatal(err)
	}
	green := bytes.Repeat([]byte{0x00, 0xFF, 0x00}, 4)
	if _, err := dev.Write(green); err != nil {
		t.Fatal(err)
	}

	// The rest of the panel is green now, not the red of the first draw.
	rec.ops = nil
	blue := image.NewUniform(color.RGBA{B: 0xFF, A: 0xFF})
	if err := dev.Draw(image.Rect(1, 0, 2, 1), blue, image.Point{}); err != nil {
		t.Fatal(err)
	}
	want := []byte{0, 1, 0, 1, 0, 0, 0, 0, 0, 0, 0xF8}
	if got := rec.data(); !bytes.Equal(got, want) {
		t.Errorf("data = % X, want % X", got, want)
	}

	// Redrawing green where the panel is green sends nothing.
	rec.ops = nil
	if err := dev.Draw(image.Rect(0, 1, 2, 2), image.NewUniform(color.RGBA{G: 0xFF, A: 0xFF}), image.Point{}); err != nil {
		t.Fatal(err)
	}
	if len(rec.ops) != 0 {
		t.Errorf("unchanged region sent %d transfers", len(rec.ops))
	}
}

func TestWriteInvalidBufferSize(t *testing.T) {
	dev, _, _ := newTestDev(128, 160)

	_, err := dev.Write(make([]byte, 100))
	if err == nil {
		t.Fatal("Write should fail with wrong buffer size")
	}
	if err.Error() != "st7735: invalid buffer size" {
		t.Errorf("Write error = %v, want 'st7735: invalid buffer size'", err)
	}
}

func TestWrite(t *testing.T) {
	dev, rec, _ := newTestDev(2, 2)
	frame := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	n, err := dev.Write(frame)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(frame) {
		t.Errorf("Write() = %d, want %d", n, len(frame))
	}
	if got := rec.data()[8:]; !bytes.Equal(got, frame) {
		t.Errorf("pixels = % X", got)
	}
}

func TestDevHalt(t *testing.T) {
	dev, rec, _ := newTestDev(128, 160)

	if err := dev.Halt(); err != nil {
		t.Fatal(err)
	}
	if got := rec.commands(); !bytes.Equal(got, []byte{cmdDISPOFF}) {
		t.Errorf("commands = % X", got)
	}

	if err := dev.Fill(nil); err == nil {
		t.Error("Fill should fail when halted")
	}
	if err := dev.DrawRow(0, []uint16{0}); err == nil {
		t.Error("DrawRow should fail when halted")
	}
	if err := dev.Invert(true); err == nil {
		t.Error("Invert should fail when halted")
	}
	if _, err := dev.Write(make([]byte, 128*160*3)); err == nil {
		t.Error("Write should fail when halted")
	}
	if err := dev.Draw(dev.Bounds(), image.NewRGBA(dev.Bounds()), image.Point{}); err == nil {
		t.Error("Draw should fail when halted")
	}
}

func TestInvert(t *testing.T) {
	dev, rec, _ := newTestDev(128, 160)
	if err := dev.Invert(true); err != nil {
		t.Fatal(err)
	}
	if err := dev.Invert(false); err != nil {
		t.Fatal(err)
	}
	if got := rec.commands(); !bytes.Equal(got, []byte{cmdINVON, cmdINVOFF}) {
		t.Errorf("commands = % X", got)
	}
}

func TestDevBounds(t *testing.T) {
	dev, _, _ := newTestDev(128, 160)
	want := image.Rect(0, 0, 128, 160)
	if got := dev.Bounds(); got != want {
		t.Errorf("Bounds() = %v, want %v", got, want)
	}
	if dev.ColorModel() == nil {
		t.Error("ColorModel() returned nil")
	}
	if got := dev.String(); got != "st7735.Dev{128x160}" {
		t.Errorf("String() = %q", got)
	}
}

func TestNewSPI(t *testing.T) {
	port := &spitest.Record{}
	dc := &gpiotest.Pin{N: "DC"}

	dev, err := NewSPI(port, dc, nil)
	if err != nil {
		t.Fatal(err)
	}
	if dev.Bounds() != image.Rect(0, 0, 128, 160) {
		t.Errorf("Bounds() = %v", dev.Bounds())
	}
	if len(port.Ops) != 0 {
		t.Errorf("NewSPI sent %d transfers, want none", len(port.Ops))
	}
	if err := dev.Calibrate(); err != nil {
		t.Fatal(err)
	}
	if len(port.Ops) == 0 || !bytes.Equal(port.Ops[0].W, []byte{cmdSWRESET}) {
		t.Errorf("calibration should start with a software reset")
	}

	if _, err := NewSPI(&spitest.Record{}, nil, nil); err == nil {
		t.Error("NewSPI should fail without DC pin")
	}
}

func TestRowWindow(t *testing.T) {
	tests := []struct {
		name  string
		row   int
		n     int
		want  Window
		wantN int
	}{
		{"full row", 0, 128, Window{X0: 0, X1: 0, Y0: 0, Y1: 127}, 128},
		{"long row", 79, 160, Window{X0: 79, X1: 79, Y0: 0, Y1: 127}, 128},
		{"short row", 10, 3, Window{X0: 10, X1: 10, Y0: 0, Y1: 2}, 3},
		{"empty row", 10, 0, Window{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, n := RowWindow(tt.row, tt.n, 128)
			if got != tt.want || n != tt.wantN {
				t.Errorf("RowWindow() = %v, %d, want %v, %d", got, n, tt.want, tt.wantN)
			}
		})
	}
}

func TestWindow(t *testing.T) {
	tests := []struct {
		name   string
		w      Window
		rect   image.Rectangle
		pixels int
	}{
		{"single pixel", Window{X0: 2, X1: 2, Y0: 1, Y1: 1}, image.Rect(2, 1, 3, 2), 1},
		{"column", Window{X0: 5, X1: 5, Y0: 0, Y1: 127}, image.Rect(5, 0, 6, 128), 128},
		{"full panel", WindowOf(image.Rect(0, 0, 128, 160)), image.Rect(0, 0, 128, 160), 128 * 160},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.w.Rect(); got != tt.rect {
				t.Errorf("Rect() = %v, want %v", got, tt.rect)
			}
			if got := tt.w.Pixels(); got != tt.pixels {
				t.Errorf("Pixels() = %d, want %d", got, tt.pixels)
			}
			if got := WindowOf(tt.rect); got != tt.w {
				t.Errorf("WindowOf() = %v, want %v", got, tt.w)
			}
		})
	}
}

func equalLevels(got []gpio.Level, want ...gpio.Level) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
