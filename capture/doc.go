// Package capture reconstructs image rows from the parallel video port of a
// camera sensor by polling its lines.
//
// The sensor drives three sync lines and an 8 bit data bus:
//
//	VSYNC  one pulse per frame
//	HREF   high while a line is being transmitted
//	PCLK   data is valid on every rising edge while HREF is high
//
// Each RGB565 pixel is sent as two bytes, most significant first. Machine
// samples all lines once per poll, detects edges against the previous
// sample and moves through named states:
//
//	WaitFrameStart -> WaitLineStart -> SampleHighByte <-> SampleLowByte
//	                       ^                |
//	                       +-- EndOfLine <--+ (HREF falls)
//	                               |
//	                               +--> EndOfFrame (all rows done)
//
// No hardware timer or interrupt is involved, so the host must poll faster
// than twice the pixel clock. Waits are bounded by a poll count.
//
// A row is handed over as soon as HREF drops and before the next row is
// sampled, so a display can consume it without a frame buffer:
//
//	m, err := capture.New(sig, nil)
//	if err != nil {
//		// ...
//	}
//	err = m.CaptureFrame(func(row int, pixels []uint16) error {
//		return disp.DrawRow(row, pixels)
//	})
//
// Any deviation from the expected structure abandons the frame with a
// *DesyncError matching ErrDesync; calling CaptureFrame again resynchronizes
// on the next VSYNC pulse.
package capture
