package sccb

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// maxStretch bounds how many half periods a slave may hold SCL low.
const maxStretch = 1000

// sleep is replaced in tests.
var sleep = time.Sleep

// BitBang is a Controller generating the two-wire protocol in software on
// two GPIO lines.
//
// Lines are used open-drain: a high level is produced by switching the line
// to an input with pull-up, a low level by driving it low. Each method
// completes the bit-level work before returning, so the status flags are
// already settled when Bus polls them.
type BitBang struct {
	scl  gpio.PinIO
	sda  gpio.PinIO
	half time.Duration

	status    Status
	started   bool // between START and STOP
	pendingRx bool // a read address was acknowledged, byte not clocked in yet
	ack       bool
	rx        byte
}

// NewBitBang returns a BitBang controller clocking at f and leaves both lines
// released.
func NewBitBang(scl, sda gpio.PinIO, f physic.Frequency) (*BitBang, error) {
	if scl == nil || sda == nil {
		return nil, errors.New("sccb: SCL and SDA pins are required")
	}
	b := &BitBang{scl: scl, sda: sda, ack: true}
	if err := b.SetSpeed(f); err != nil {
		return nil, err
	}
	if err := b.release(b.sda); err != nil {
		return nil, fmt.Errorf("sccb: failed to release SDA: %w", err)
	}
	if err := b.release(b.scl); err != nil {
		return nil, fmt.Errorf("sccb: failed to release SCL: %w", err)
	}
	return b, nil
}

// SetSpeed sets the SCL frequency.
func (b *BitBang) SetSpeed(f physic.Frequency) error {
	if f <= 0 {
		return fmt.Errorf("sccb: invalid bus frequency %s", f)
	}
	b.half = f.Period() / 2
	return nil
}

// Start implements Controller.
func (b *BitBang) Start() error {
	b.status = 0
	// SDA goes high first so a repeated start does not look like a STOP.
	if err := b.release(b.sda); err != nil {
		return err
	}
	b.delay()
	if err := b.sclHigh(); err != nil {
		return err
	}
	b.delay()
	if err := b.sda.Out(gpio.Low); err != nil {
		return err
	}
	b.delay()
	if err := b.scl.Out(gpio.Low); err != nil {
		return err
	}
	b.started = true
	b.status = StartSent
	return nil
}

// Stop implements Controller.
//
// When a read address was acknowledged, the pending byte is clocked in and
// acknowledged according to SetAck before the stop condition.
func (b *BitBang) Stop() error {
	if !b.started {
		return nil
	}
	if b.pendingRx {
		if err := b.receive(); err != nil {
			return err
		}
	}
	if err := b.sda.Out(gpio.Low); err != nil {
		return err
	}
	b.delay()
	if err := b.sclHigh(); err != nil {
		return err
	}
	b.delay()
	if err := b.release(b.sda); err != nil {
		return err
	}
	b.delay()
	b.started = false
	b.status &= RxNotEmpty
	return nil
}

// WriteByte implements Controller.
func (b *BitBang) WriteByte(v byte) error {
	b.status &^= ByteTransferred
	for i := 7; i >= 0; i-- {
		if err := b.writeBit(v>>uint(i)&1 == 1); err != nil {
			return err
		}
	}
	nack, err := b.readBit()
	if err != nil {
		return err
	}
	if b.status&StartSent != 0 {
		// First byte after START is the address.
		b.status &^= StartSent
		if !nack {
			b.status |= AddrSent
			b.pendingRx = v&1 == 1
		}
		return nil
	}
	if !nack {
		b.status |= ByteTransferred
	}
	return nil
}

// ReadByte implements Controller.
func (b *BitBang) ReadByte() (byte, error) {
	if b.status&RxNotEmpty == 0 {
		return 0, errors.New("sccb: no byte received")
	}
	b.status &^= RxNotEmpty
	return b.rx, nil
}

// ClearAddr implements Controller.
func (b *BitBang) ClearAddr() error {
	b.status &^= AddrSent
	return nil
}

// SetAck implements Controller.
func (b *BitBang) SetAck(ack bool) error {
	b.ack = ack
	return nil
}

// Status implements Controller.
func (b *BitBang) Status() Status {
	return b.status
}

// SCL implements i2c.Pins.
func (b *BitBang) SCL() gpio.PinIO {
	return b.scl
}

// SDA implements i2c.Pins.
func (b *BitBang) SDA() gpio.PinIO {
	return b.sda
}

// String returns a string representation of the controller.
func (b *BitBang) String() string {
	return fmt.Sprintf("sccb.BitBang{%s, %s}", b.scl, b.sda)
}

// receive clocks in one byte and answers with ACK or NACK.
func (b *BitBang) receive() error {
	var v byte
	for i := 0; i < 8; i++ {
		bit, err := b.readBit()
		if err != nil {
			return err
		}
		v <<= 1
		if bit {
			v |= 1
		}
	}
	// ACK is a low bit, NACK leaves SDA released.
	if err := b.writeBit(!b.ack); err != nil {
		return err
	}
	b.rx = v
	b.pendingRx = false
	b.status |= RxNotEmpty
	return nil
}

// writeBit presents bit on SDA while SCL is low and clocks it.
func (b *BitBang) writeBit(bit bool) error {
	var err error
	if bit {
		err = b.release(b.sda)
	} else {
		err = b.sda.Out(gpio.Low)
	}
	if err != nil {
		return err
	}
	b.delay()
	if err := b.sclHigh(); err != nil {
		return err
	}
	b.delay()
	return b.scl.Out(gpio.Low)
}

// readBit releases SDA and samples it while SCL is high.
func (b *BitBang) readBit() (bool, error) {
	if err := b.release(b.sda); err != nil {
		return false, err
	}
	b.delay()
	if err := b.sclHigh(); err != nil {
		return false, err
	}
	b.delay()
	bit := b.sda.Read() == gpio.High
	return bit, b.scl.Out(gpio.Low)
}

// sclHigh releases SCL and waits for slaves stretching the clock.
func (b *BitBang) sclHigh() error {
	if err := b.release(b.scl); err != nil {
		return err
	}
	for i := 0; b.scl.Read() == gpio.Low; i++ {
		if i == maxStretch {
			return fmt.Errorf("sccb: SCL held low: %w", ErrTimeout)
		}
		sleep(b.half)
	}
	return nil
}

func (b *BitBang) release(p gpio.PinIO) error {
	return p.In(gpio.PullUp, gpio.NoEdge)
}

func (b *BitBang) delay() {
	if b.half > 0 {
		sleep(b.half)
	}
}
