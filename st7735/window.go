package st7735

import (
	"fmt"
	"image"
)

// Window is a display address window. Both ends are inclusive.
type Window struct {
	X0, X1 int // column range
	Y0, Y1 int // row range
}

// Rect returns the window as an image.Rectangle.
func (w Window) Rect() image.Rectangle {
	return image.Rect(w.X0, w.Y0, w.X1+1, w.Y1+1)
}

// Pixels returns the number of pixels in the window.
func (w Window) Pixels() int {
	return w.Rect().Dx() * w.Rect().Dy()
}

// WindowOf returns the window covering r. r must not be empty.
func WindowOf(r image.Rectangle) Window {
	return Window{X0: r.Min.X, X1: r.Max.X - 1, Y0: r.Min.Y, Y1: r.Max.Y - 1}
}

func (w Window) String() string {
	return fmt.Sprintf("[%d-%d]x[%d-%d]", w.X0, w.X1, w.Y0, w.Y1)
}

// RowWindow maps a sensor row onto the display.
//
// The sensor is mounted rotated by 90° relative to the display, so a sensor
// row becomes a display column: the row index is the fixed column and the
// row's pixels run down the rows of that column. At most width pixels are
// used; n is the number of pixels available in the row.
//
// It returns the window and the number of pixels to send, which is 0 when
// there is nothing to draw.
func RowWindow(row, n, width int) (Window, int) {
	if n > width {
		n = width
	}
	if n <= 0 {
		return Window{}, 0
	}
	return Window{X0: row, X1: row, Y0: 0, Y1: n - 1}, n
}
