// Package sccbtest is meant to be used to test drivers over a fake SCCB
// controller.
package sccbtest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/flavioheleno/campipe/sccb"
	"periph.io/x/conn/v3/gpio"
)

// Write is a register write seen by a Sensor.
type Write struct {
	Reg   byte
	Value byte
}

// Sensor is a sccb.Controller simulating a device with 256 byte-wide
// registers sitting alone on the bus.
//
// A write transaction sets the register pointer with its first data byte and
// stores any following byte at the pointer. A read transaction returns the
// register at the pointer.
type Sensor struct {
	sync.Mutex
	// Addr is the 7 bit device address.
	Addr byte
	// Regs is the register file.
	Regs [256]byte
	// ReadOnly lists registers ignoring writes.
	ReadOnly map[byte]bool
	// Nack makes the device ignore its address.
	Nack bool
	// Stuck lists flags the controller never raises.
	Stuck sccb.Status
	// FailStarts is the number of upcoming starts that do not complete.
	FailStarts int
	// Writes records every register write, in order, including ignored ones.
	Writes []Write
	// SCLPin and SDAPin are exposed through i2c.Pins when set.
	SCLPin gpio.PinIO
	SDAPin gpio.PinIO

	status    sccb.Status
	addrPhase bool
	selected  bool
	reading   bool
	pendingRx bool
	n         int
	ptr       byte
	rx        byte
	ack       bool
}

// Start implements sccb.Controller.
func (s *Sensor) Start() error {
	s.Lock()
	defer s.Unlock()
	s.status &= sccb.RxNotEmpty
	s.addrPhase = true
	s.selected = false
	s.reading = false
	s.pendingRx = false
	s.n = 0
	if s.FailStarts > 0 {
		s.FailStarts--
		return nil
	}
	s.status |= sccb.StartSent
	return nil
}

// Stop implements sccb.Controller.
func (s *Sensor) Stop() error {
	s.Lock()
	defer s.Unlock()
	if s.pendingRx {
		s.rx = s.Regs[s.ptr]
		s.pendingRx = false
		s.status |= sccb.RxNotEmpty
	}
	s.selected = false
	s.addrPhase = false
	s.status &= sccb.RxNotEmpty
	return nil
}

// WriteByte implements sccb.Controller.
func (s *Sensor) WriteByte(b byte) error {
	s.Lock()
	defer s.Unlock()
	s.status &^= sccb.ByteTransferred
	if s.addrPhase {
		s.addrPhase = false
		s.status &^= sccb.StartSent
		if s.Nack || b>>1 != s.Addr {
			return nil
		}
		s.selected = true
		s.reading = b&1 == 1
		s.pendingRx = s.reading
		s.status |= sccb.AddrSent
		return nil
	}
	if !s.selected || s.reading {
		return nil
	}
	if s.n == 0 {
		s.ptr = b
	} else {
		s.Writes = append(s.Writes, Write{Reg: s.ptr, Value: b})
		if !s.ReadOnly[s.ptr] {
			s.Regs[s.ptr] = b
		}
	}
	s.n++
	s.status |= sccb.ByteTransferred
	return nil
}

// ReadByte implements sccb.Controller.
func (s *Sensor) ReadByte() (byte, error) {
	s.Lock()
	defer s.Unlock()
	if s.status&sccb.RxNotEmpty == 0 {
		return 0, errors.New("sccbtest: no byte received")
	}
	s.status &^= sccb.RxNotEmpty
	return s.rx, nil
}

// ClearAddr implements sccb.Controller.
func (s *Sensor) ClearAddr() error {
	s.Lock()
	defer s.Unlock()
	s.status &^= sccb.AddrSent
	return nil
}

// SetAck implements sccb.Controller.
func (s *Sensor) SetAck(ack bool) error {
	s.Lock()
	defer s.Unlock()
	s.ack = ack
	return nil
}

// Status implements sccb.Controller.
func (s *Sensor) Status() sccb.Status {
	s.Lock()
	defer s.Unlock()
	return s.status &^ s.Stuck
}

// SCL implements i2c.Pins.
func (s *Sensor) SCL() gpio.PinIO {
	if s.SCLPin == nil {
		return gpio.INVALID
	}
	return s.SCLPin
}

// SDA implements i2c.Pins.
func (s *Sensor) SDA() gpio.PinIO {
	if s.SDAPin == nil {
		return gpio.INVALID
	}
	return s.SDAPin
}

// String returns a string representation of the sensor.
func (s *Sensor) String() string {
	return fmt.Sprintf("sccbtest.Sensor{0x%02X}", s.Addr)
}
