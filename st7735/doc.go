// Package st7735 controls a ST7735 TFT display via SPI.
//
// The ST7735 is a 262K color TFT controller driving up to 132×162 pixels,
// commonly found on 128×160 modules. The controller has no framebuffer on the
// host side: every drawing operation addresses a window of the panel RAM and
// streams pixels into it.
// This driver implements the display.Drawer interface from periph.io.
//
// # Display Characteristics
//
// - Pixels are written as one (R, G, B) byte triple each
// - Column and row address windows with 16-bit big-endian coordinates
// - Display inversion
// - Panel RAM content is undefined after reset, Calibrate clears it
//
// # Hardware Connection
//
// Connect the ST7735 display to your system via SPI:
//
//	Display Pin → System Pin
//	GND         → GND
//	VCC         → 3.3V
//	CLK         → SPI Clock (SCLK)
//	SDA         → SPI Data (MOSI)
//	RS/DC       → GPIO (any available pin)
//	CS          → GPIO or SPI Chip Select
//	RST         → Optional: GPIO for hardware reset
//
// # Basic Usage
//
//	package main
//
//	import (
//		"image/color"
//
//		"github.com/flavioheleno/campipe/st7735"
//		"periph.io/x/conn/v3/gpio/gpioreg"
//		"periph.io/x/conn/v3/spi/spireg"
//		"periph.io/x/host/v3"
//	)
//
//	func main() {
//		host.Init()
//
//		port, _ := spireg.Open("")
//		dc := gpioreg.ByName("GPIO24")
//
//		dev, _ := st7735.NewSPI(port, dc, &st7735.Opts{
//			W:   128,
//			H:   160,
//			RST: gpioreg.ByName("GPIO25"),
//			CS:  gpioreg.ByName("GPIO8"),
//		})
//		defer dev.Halt()
//
//		dev.Calibrate()
//		dev.Fill(color.RGBA{R: 0xFF, A: 0xFF})
//	}
//
// NewSPI only connects the port. Calibrate runs a hardware reset (RST low,
// wait 120ms, RST high, wait 120ms) when RST is set, then software reset,
// sleep out and display on, each followed by 120ms, and finally a white Fill.
//
// # Drawing Modes
//
// ## Rows
//
// DrawRow streams one row of RGB565 pixels as captured from a camera sensor.
// The sensor is mounted rotated by 90° relative to the panel, so RowWindow
// maps sensor row r to display column r:
//
//	err := dev.DrawRow(r, pixels)
//
// ## Full-Frame Update
//
// Write sends raw RGB888 bytes for the whole panel:
//
//	pixels := make([]byte, 128*160*3)
//	dev.Write(pixels)
//
// ## Differential Updates
//
// Draw keeps a copy of what the panel shows, tracked from Calibrate, Fill and
// Write on, and only sends the bounding rectangle of the pixels that changed
// inside dst:
//
//	img := rgb565.NewImage(dev.Bounds())
//	dev.Draw(dev.Bounds(), img, image.Point{})
//
// # Datasheet
//
// https://www.displayfuture.com/Display/datasheet/controller/ST7735.pdf
//
// # Compatibility with periph.io
//
// It can be used with any periph.io tool or library expecting a display.Drawer.
package st7735
