package sccb

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// ErrTimeout is returned when a status flag is not raised within Opts.Timeout.
var ErrTimeout = errors.New("sccb: timeout waiting for bus")

// Status is the set of flags reported by a Controller.
type Status uint8

const (
	// StartSent is set once a start condition was generated.
	StartSent Status = 1 << iota
	// AddrSent is set once the device acknowledged its address. It stays set
	// until ClearAddr is called.
	AddrSent
	// ByteTransferred is set once a data byte was shifted out and acknowledged.
	ByteTransferred
	// RxNotEmpty is set when a received byte is waiting in the data register.
	RxNotEmpty
)

// Controller is a two-wire bus peripheral.
//
// Methods program the peripheral and return immediately. Completion is
// reported through Status, which Bus polls.
type Controller interface {
	// Start generates a start condition.
	Start() error
	// Stop generates a stop condition.
	Stop() error
	// WriteByte loads a byte into the data register for transmission.
	WriteByte(b byte) error
	// ReadByte returns the received byte and clears RxNotEmpty.
	ReadByte() (byte, error)
	// ClearAddr clears the AddrSent flag, releasing the bus for data.
	ClearAddr() error
	// SetAck selects whether the next received byte is acknowledged.
	SetAck(ack bool) error
	// Status returns the current flags.
	Status() Status
}

// Opts is the configuration for a Bus.
type Opts struct {
	// Timeout bounds every status wait (default: 10ms).
	Timeout time.Duration
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Timeout: 10 * time.Millisecond,
}

// Bus runs register transactions on a Controller.
//
// A Bus owns its Controller; transactions are synchronous and never
// interleave.
type Bus struct {
	c       Controller
	timeout time.Duration
}

// New returns a Bus driving c.
//
// opts can be nil to use DefaultOpts.
func New(c Controller, opts *Opts) *Bus {
	if opts == nil {
		opts = &DefaultOpts
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultOpts.Timeout
	}
	return &Bus{c: c, timeout: timeout}
}

// Write sets register reg of the device at address dev to value.
func (b *Bus) Write(dev, reg, value byte) error {
	return b.run(&transaction{dir: dirWrite, dev: dev, reg: reg, data: value})
}

// Read returns the value of register reg of the device at address dev.
func (b *Bus) Read(dev, reg byte) (byte, error) {
	t := &transaction{dir: dirRead, dev: dev, reg: reg}
	if err := b.run(t); err != nil {
		return 0, err
	}
	return t.data, nil
}

// Tx implements i2c.Bus.
//
// Only single register access is supported: a 2 byte write (register, value)
// or a 1 byte write (register) followed by a 1 byte read.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	if addr > 0x7F {
		return fmt.Errorf("sccb: invalid device address 0x%X", addr)
	}
	switch {
	case len(w) == 2 && len(r) == 0:
		return b.Write(byte(addr), w[0], w[1])
	case len(w) == 1 && len(r) == 1:
		v, err := b.Read(byte(addr), w[0])
		if err != nil {
			return err
		}
		r[0] = v
		return nil
	default:
		return fmt.Errorf("sccb: unsupported transaction (write %d bytes, read %d bytes)", len(w), len(r))
	}
}

// SetSpeed implements i2c.Bus.
//
// It is forwarded to the Controller when it supports speed changes.
func (b *Bus) SetSpeed(f physic.Frequency) error {
	if s, ok := b.c.(interface{ SetSpeed(physic.Frequency) error }); ok {
		return s.SetSpeed(f)
	}
	return nil
}

// SCL implements i2c.Pins.
func (b *Bus) SCL() gpio.PinIO {
	if p, ok := b.c.(i2c.Pins); ok {
		return p.SCL()
	}
	return gpio.INVALID
}

// SDA implements i2c.Pins.
func (b *Bus) SDA() gpio.PinIO {
	if p, ok := b.c.(i2c.Pins); ok {
		return p.SDA()
	}
	return gpio.INVALID
}

// String implements i2c.Bus.
func (b *Bus) String() string {
	return fmt.Sprintf("sccb.Bus{%v}", b.c)
}

// run drives t through its phases, aborting on the first error.
func (b *Bus) run(t *transaction) error {
	for _, p := range t.phases() {
		if err := b.step(t, p); err != nil {
			// Best effort: leave the bus idle for the next transaction.
			_ = b.c.Stop()
			return fmt.Errorf("sccb: %s 0x%02X/0x%02X: %w", t.dir, t.dev, t.reg, err)
		}
	}
	return nil
}

// step executes a single phase of t.
func (b *Bus) step(t *transaction, p phase) error {
	switch p {
	case phaseStart, phaseRestart:
		if err := b.c.Start(); err != nil {
			return err
		}
		return b.wait(p, StartSent)

	case phaseAddrWrite, phaseAddrRead:
		addr := t.dev<<1 | byte(dirWrite)
		if p == phaseAddrRead {
			addr = t.dev<<1 | byte(dirRead)
		}
		if err := b.c.WriteByte(addr); err != nil {
			return err
		}
		if err := b.wait(p, AddrSent); err != nil {
			return err
		}
		if p == phaseAddrWrite {
			return b.c.ClearAddr()
		}
		// Receive exactly one byte: NACK it and stop right after.
		if err := b.c.ClearAddr(); err != nil {
			return err
		}
		if err := b.c.SetAck(false); err != nil {
			return err
		}
		return b.c.Stop()

	case phaseRegister, phaseData:
		v := t.reg
		if p == phaseData {
			v = t.data
		}
		if err := b.c.WriteByte(v); err != nil {
			return err
		}
		return b.wait(p, ByteTransferred)

	case phaseStop:
		return b.c.Stop()

	case phaseReceive:
		if err := b.wait(p, RxNotEmpty); err != nil {
			return err
		}
		v, err := b.c.ReadByte()
		if err != nil {
			return err
		}
		t.data = v
		return nil
	}
	return fmt.Errorf("unknown phase %d", p)
}

// wait polls the controller until flag is raised or the timeout expires.
func (b *Bus) wait(p phase, flag Status) error {
	if b.c.Status()&flag != 0 {
		return nil
	}
	deadline := time.Now().Add(b.timeout)
	for b.c.Status()&flag == 0 {
		if time.Now().After(deadline) {
			return fmt.Errorf("%s: %w", p, ErrTimeout)
		}
	}
	return nil
}
