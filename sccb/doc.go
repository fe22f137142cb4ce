// Package sccb drives the two-wire Serial Camera Control Bus used to
// configure OV7670-class image sensors.
//
// SCCB is transactionally compatible with I²C for single register access. A
// register write is one transaction:
//
//	START, dev<<1|W, reg, value, STOP
//
// A register read is a write of the register address followed by a separate
// read transaction. SCCB does not support repeated start, so a STOP is issued
// between the two halves:
//
//	START, dev<<1|W, reg, STOP, START, dev<<1|R, value(NACK), STOP
//
// # Controllers
//
// The bus is driven through a Controller, an abstraction of a two-wire
// peripheral exposing start/stop generation, a data register and status
// flags. Bus runs every transaction as a sequence of named phases and polls
// the status flags between phases. Every poll is bounded by Opts.Timeout and
// fails with ErrTimeout instead of hanging when a peripheral stops
// responding.
//
// BitBang is a Controller on two open-drain GPIO lines for hosts without a
// dedicated peripheral:
//
//	scl := gpioreg.ByName("GPIO3")
//	sda := gpioreg.ByName("GPIO2")
//	ctrl, _ := sccb.NewBitBang(scl, sda, 100*physic.KiloHertz)
//	bus := sccb.New(ctrl, nil)
//
//	if err := bus.Write(0x21, 0x12, 0x80); err != nil {
//		// ...
//	}
//
// Bus implements i2c.Bus from periph.io, so drivers can address registers
// through i2c.Dev and mmr.Dev8 and the same driver works on a host I²C bus
// opened with i2creg.
//
// # Bus recovery
//
// A slave reset in the middle of a read may keep holding SDA low, wedging the
// bus. Recover clocks SCL up to 9 times until SDA is released and then emits
// a STOP, restoring the lines to their previous function afterwards.
package sccb
