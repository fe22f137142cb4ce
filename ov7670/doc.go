// Package ov7670 controls an OmniVision OV7670 image sensor over SCCB.
//
// The sensor is configured by writing an ordered register profile after a
// software reset. The default profile, QQVGARGB565, makes the sensor emit
// 160x120 pixels as two bytes of RGB565 each on its parallel port, which the
// capture package samples.
//
// # Datasheet
//
// https://www.voti.nl/docs/OV7670.pdf
package ov7670
