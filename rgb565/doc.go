// Package rgb565 provides the 16-bit RGB565 pixel format produced by the
// OV7670 sensor and its conversion to the 8-bit-per-channel RGB the ST7735
// display consumes.
//
// The sensor emits each pixel as two bytes, most significant byte first:
//
//	bit:   15 14 13 12 11 | 10 9 8 7 6 5 | 4 3 2 1 0
//	        R  R  R  R  R |  G G G G G G | B B B B B
//
// Widening to RGB888 is a fixed left shift with zero-filled low bits, there is
// no interpolation:
//
//	0xF800 -> (248, 0, 0)
//	0x07E0 -> (0, 252, 0)
//	0x001F -> (0, 0, 248)
//
// This package provides:
//
// - Color: a color.Color holding one packed RGB565 code
// - Model: a color model converting standard Go colors to Color
// - Image: an image.Image backed by packed RGB565 codes
// - PutRGB888: streaming conversion of a row into display bytes
//
// Example usage:
//
//	// Widen one captured pixel
//	r, g, b := rgb565.RGB888(0xF800)
//
//	// Convert a captured row into the bytes sent to the display
//	buf := make([]byte, 3*len(row))
//	n := rgb565.PutRGB888(buf, row)
package rgb565
