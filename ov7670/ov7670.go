package ov7670

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/mmr"
)

// DefaultAddr is the 7 bit SCCB address of the sensor.
const DefaultAddr = 0x21

var (
	// ErrUnverified is returned when a register does not read back the
	// value written to it.
	ErrUnverified = errors.New("ov7670: register readback mismatch")
	// ErrIdentity is returned by Probe when the device is not an OV7670.
	ErrIdentity = errors.New("ov7670: unexpected device identity")
)

// VerifyError describes a register that did not read back as written.
type VerifyError struct {
	Reg  byte
	Want byte
	Got  byte
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("ov7670: register 0x%02X reads 0x%02X, wrote 0x%02X", e.Reg, e.Got, e.Want)
}

// Is makes errors.Is(err, ErrUnverified) match.
func (e *VerifyError) Is(target error) bool {
	return target == ErrUnverified
}

// Opts is the configuration for the sensor.
type Opts struct {
	// Addr is the device address (default: DefaultAddr).
	Addr uint16
	// Profile is written by Calibrate after the reset (default: QQVGARGB565).
	Profile []Register
	// Settle is the delay after the reset and after the profile
	// (default: 120ms).
	Settle time.Duration
	// Verify reads back every profile register after writing it.
	Verify bool
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Addr:    DefaultAddr,
	Profile: QQVGARGB565,
	Settle:  120 * time.Millisecond,
}

// sleep is replaced in tests.
var sleep = time.Sleep

// Dev is an OV7670 sensor on a SCCB bus.
type Dev struct {
	d    mmr.Dev8
	opts Opts
}

// New returns a Dev for the sensor on b.
//
// b is usually a *sccb.Bus but any i2c.Bus able to do single register
// accesses works. opts can be nil to use DefaultOpts. New does not talk to
// the sensor; call Calibrate.
func New(b i2c.Bus, opts *Opts) *Dev {
	o := DefaultOpts
	if opts != nil {
		o = *opts
		if o.Addr == 0 {
			o.Addr = DefaultOpts.Addr
		}
		if o.Profile == nil {
			o.Profile = DefaultOpts.Profile
		}
		if o.Settle <= 0 {
			o.Settle = DefaultOpts.Settle
		}
	}
	return &Dev{
		d:    mmr.Dev8{Conn: &i2c.Dev{Bus: b, Addr: o.Addr}, Order: binary.BigEndian},
		opts: o,
	}
}

func (d *Dev) String() string {
	return fmt.Sprintf("ov7670.Dev{%s}", d.d.Conn)
}

// Calibrate resets the sensor and writes the configured profile.
//
// The reset and its settle delay complete before the first profile write.
// With Opts.Verify every profile register is read back; the reset register
// is never verified since it clears itself.
func (d *Dev) Calibrate() error {
	if err := d.WriteReg(regCOM7, com7Reset); err != nil {
		return fmt.Errorf("ov7670: reset failed: %w", err)
	}
	sleep(d.opts.Settle)
	for _, r := range d.opts.Profile {
		if err := d.WriteReg(r.Addr, r.Value); err != nil {
			return err
		}
		if !d.opts.Verify {
			continue
		}
		got, err := d.ReadReg(r.Addr)
		if err != nil {
			return err
		}
		if got != r.Value {
			return &VerifyError{Reg: r.Addr, Want: r.Value, Got: got}
		}
	}
	sleep(d.opts.Settle)
	return nil
}

// Probe checks the product and manufacturer identification registers.
func (d *Dev) Probe() error {
	pid, err := d.readID(regPID, regVER)
	if err != nil {
		return err
	}
	if pid != productID {
		return fmt.Errorf("product ID 0x%04X: %w", pid, ErrIdentity)
	}
	mid, err := d.readID(regMIDH, regMIDL)
	if err != nil {
		return err
	}
	if mid != manufacturerID {
		return fmt.Errorf("manufacturer ID 0x%04X: %w", mid, ErrIdentity)
	}
	return nil
}

// ReadReg returns the value of a sensor register.
func (d *Dev) ReadReg(reg byte) (byte, error) {
	v, err := d.d.ReadUint8(reg)
	if err != nil {
		return 0, fmt.Errorf("ov7670: failed to read register 0x%02X: %w", reg, err)
	}
	return v, nil
}

// WriteReg sets a sensor register.
func (d *Dev) WriteReg(reg, value byte) error {
	if err := d.d.WriteUint8(reg, value); err != nil {
		return fmt.Errorf("ov7670: failed to write register 0x%02X: %w", reg, err)
	}
	return nil
}

func (d *Dev) readID(hi, lo byte) (uint16, error) {
	h, err := d.ReadReg(hi)
	if err != nil {
		return 0, err
	}
	l, err := d.ReadReg(lo)
	if err != nil {
		return 0, err
	}
	return uint16(h)<<8 | uint16(l), nil
}
