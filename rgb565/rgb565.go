package rgb565

import (
	"image"
	"image/color"
)

// Color is a packed RGB565 pixel code: 5 bits red, 6 bits green, 5 bits blue.
type Color uint16

// RGB888 widens a packed RGB565 code to 8 bits per channel.
// Low bits are zero filled, so full scale red is 248 and full scale green 252.
func RGB888(p uint16) (r, g, b uint8) {
	r = uint8((p >> 11 & 0x1F) << 3)
	g = uint8((p >> 5 & 0x3F) << 2)
	b = uint8((p & 0x1F) << 3)
	return
}

// FromRGB888 packs 8-bit channels into an RGB565 code, dropping low bits.
func FromRGB888(r, g, b uint8) Color {
	return Color(uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3))
}

// RGB888 returns the widened 8-bit channels of the color.
func (c Color) RGB888() (r, g, b uint8) {
	return RGB888(uint16(c))
}

// RGBA implements color.Color.
// The widened 8-bit channels are scaled to 16 bits by byte replication.
func (c Color) RGBA() (r, g, b, a uint32) {
	r8, g8, b8 := c.RGB888()
	r = uint32(r8) * 0x101
	g = uint32(g8) * 0x101
	b = uint32(b8) * 0x101
	return r, g, b, 0xFFFF
}

// toRGB565 converts any color.Color to Color.
func toRGB565(c color.Color) color.Color {
	if p, ok := c.(Color); ok {
		return p
	}
	r, g, b, _ := c.RGBA()
	return FromRGB888(uint8(r>>8), uint8(g>>8), uint8(b>>8))
}

// Model converts colors to Color.
var Model = color.ModelFunc(toRGB565)

// PutRGB888 writes one (R, G, B) triple per pixel of src into dst and returns
// the number of pixels converted. Conversion stops when dst cannot hold
// another triple, it never allocates.
func PutRGB888(dst []byte, src []uint16) int {
	n := len(src)
	if limit := len(dst) / 3; n > limit {
		n = limit
	}
	for i := 0; i < n; i++ {
		r, g, b := RGB888(src[i])
		dst[3*i] = r
		dst[3*i+1] = g
		dst[3*i+2] = b
	}
	return n
}

// Image is an RGB565 image, one packed code per pixel in row-major order.
type Image struct {
	Pix    []uint16        // Packed pixel codes
	Stride int             // Pixels per row
	Rect   image.Rectangle // Image bounds
}

// NewImage creates a new Image with the specified bounds.
func NewImage(r image.Rectangle) *Image {
	w, h := r.Dx(), r.Dy()
	if w < 0 || h < 0 {
		return &Image{Rect: r}
	}
	return &Image{
		Pix:    make([]uint16, w*h),
		Stride: w,
		Rect:   r,
	}
}

// ColorModel returns the color model of the image.
func (p *Image) ColorModel() color.Model {
	return Model
}

// Bounds returns the image bounds.
func (p *Image) Bounds() image.Rectangle {
	return p.Rect
}

// At returns the color of the pixel at (x, y).
// It implements the image.Image interface.
func (p *Image) At(x, y int) color.Color {
	return p.RGB565At(x, y)
}

// RGB565At returns the packed color of the pixel at (x, y).
func (p *Image) RGB565At(x, y int) Color {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return 0
	}
	return Color(p.Pix[p.PixOffset(x, y)])
}

// Set sets the color of the pixel at (x, y).
func (p *Image) Set(x, y int, c color.Color) {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return
	}
	p.Pix[p.PixOffset(x, y)] = uint16(Model.Convert(c).(Color))
}

// SetRGB565 sets the packed color of the pixel at (x, y).
// This is faster than Set() as it doesn't require color conversion.
func (p *Image) SetRGB565(x, y int, c Color) {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return
	}
	p.Pix[p.PixOffset(x, y)] = uint16(c)
}

// Row returns the packed codes of row y, or nil when y is out of bounds.
// The slice aliases Pix.
func (p *Image) Row(y int) []uint16 {
	if y < p.Rect.Min.Y || y >= p.Rect.Max.Y {
		return nil
	}
	start := (y - p.Rect.Min.Y) * p.Stride
	return p.Pix[start : start+p.Rect.Dx()]
}

// PixOffset returns the index of the pixel at (x, y) in Pix.
func (p *Image) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x - p.Rect.Min.X)
}
