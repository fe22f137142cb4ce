package ov7670

// Register addresses.
const (
	regPID       = 0x0A // product ID MSB
	regVER       = 0x0B // product ID LSB
	regCOM3      = 0x0C
	regCLKRC     = 0x11
	regCOM7      = 0x12
	regMIDH      = 0x1C // manufacturer ID MSB
	regMIDL      = 0x1D // manufacturer ID LSB
	regTSLB      = 0x3A
	regCOM14     = 0x3E
	regCOM15     = 0x40
	regXSC       = 0x70 // SCALING_XSC
	regYSC       = 0x71 // SCALING_YSC
	regDCWCTR    = 0x72 // SCALING_DCWCTR
	regPCLKDIV   = 0x73 // SCALING_PCLK_DIV
	regPCLKDELAY = 0xA2 // SCALING_PCLK_DELAY
)

// COM7 bits.
const (
	com7Reset = 0x80
	com7RGB   = 0x04
)

// Identity of an OV7670.
const (
	productID      = 0x7673
	manufacturerID = 0x7FA2
)

// Register is a single register assignment.
type Register struct {
	Addr  byte
	Value byte
}

// QQVGARGB565 selects 160x120 RGB565 output, downsampled by 4 on the sensor.
//
// The order matters: the clock prescaler and output format are set before the
// scaler so the downsampled pixel clock is derived from the final clock.
var QQVGARGB565 = []Register{
	{regCLKRC, 0x01},     // internal clock = input / 2
	{regCOM7, com7RGB},   // RGB output
	{regCOM15, 0xD0},     // RGB565, full 00-FF range
	{regTSLB, 0x04},      // UV sequence, auto window off
	{regCOM3, 0x04},      // enable DCW and scaling
	{regCOM14, 0x1A},     // manual scaling, PCLK divided by 4
	{regXSC, 0x3A},       // horizontal scale factor
	{regYSC, 0x35},       // vertical scale factor
	{regDCWCTR, 0x22},    // downsample by 4 both ways
	{regPCLKDIV, 0xF2},   // DSP clock divided by 4
	{regPCLKDELAY, 0x02}, // pixel clock delay
}
