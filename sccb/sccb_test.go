package sccb_test

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/flavioheleno/campipe/sccb"
	"github.com/flavioheleno/campipe/sccb/sccbtest"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/mmr"
)

var fastOpts = sccb.Opts{Timeout: time.Millisecond}

func TestBus_WriteRead(t *testing.T) {
	s := &sccbtest.Sensor{Addr: 0x21}
	b := sccb.New(s, &fastOpts)

	for reg := 0; reg < 256; reg++ {
		for _, v := range []byte{0x00, 0x01, 0x5A, 0x80, 0xA5, 0xFF, byte(reg)} {
			if err := b.Write(0x21, byte(reg), v); err != nil {
				t.Fatalf("Write(0x%02X, 0x%02X): %v", reg, v, err)
			}
			got, err := b.Read(0x21, byte(reg))
			if err != nil {
				t.Fatalf("Read(0x%02X): %v", reg, err)
			}
			if got != v {
				t.Fatalf("register 0x%02X: got 0x%02X, want 0x%02X", reg, got, v)
			}
		}
	}
}

func TestBus_Write(t *testing.T) {
	s := &sccbtest.Sensor{Addr: 0x21}
	b := sccb.New(s, nil)
	if err := b.Write(0x21, 0x12, 0x80); err != nil {
		t.Fatal(err)
	}
	if len(s.Writes) != 1 || s.Writes[0] != (sccbtest.Write{Reg: 0x12, Value: 0x80}) {
		t.Fatalf("unexpected writes %v", s.Writes)
	}
	if s.Regs[0x12] != 0x80 {
		t.Fatalf("register not set: 0x%02X", s.Regs[0x12])
	}
}

func TestBus_Timeout(t *testing.T) {
	tests := []struct {
		name   string
		sensor *sccbtest.Sensor
	}{
		{"nack", &sccbtest.Sensor{Addr: 0x21, Nack: true}},
		{"wrong address", &sccbtest.Sensor{Addr: 0x42}},
		{"no start", &sccbtest.Sensor{Addr: 0x21, Stuck: sccb.StartSent}},
		{"no byte transferred", &sccbtest.Sensor{Addr: 0x21, Stuck: sccb.ByteTransferred}},
		{"no receive", &sccbtest.Sensor{Addr: 0x21, Stuck: sccb.RxNotEmpty}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := sccb.New(tt.sensor, &fastOpts)
			start := time.Now()
			_, err := b.Read(0x21, 0x0A)
			if !errors.Is(err, sccb.ErrTimeout) {
				t.Fatalf("expected ErrTimeout, got %v", err)
			}
			if d := time.Since(start); d > time.Second {
				t.Fatalf("timeout took %s", d)
			}
		})
	}
}

func TestBus_TimeoutRecovers(t *testing.T) {
	s := &sccbtest.Sensor{Addr: 0x21, FailStarts: 1}
	b := sccb.New(s, &fastOpts)
	if err := b.Write(0x21, 0x01, 0x02); !errors.Is(err, sccb.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if err := b.Write(0x21, 0x01, 0x02); err != nil {
		t.Fatalf("bus did not recover: %v", err)
	}
}

func TestBus_Tx(t *testing.T) {
	s := &sccbtest.Sensor{Addr: 0x21}
	b := sccb.New(s, &fastOpts)

	d := mmr.Dev8{Conn: &i2c.Dev{Bus: b, Addr: 0x21}, Order: binary.BigEndian}
	if err := d.WriteUint8(0x3A, 0x04); err != nil {
		t.Fatal(err)
	}
	v, err := d.ReadUint8(0x3A)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x04 {
		t.Fatalf("got 0x%02X, want 0x04", v)
	}

	if err := b.Tx(0x80, []byte{0x01, 0x02}, nil); err == nil {
		t.Fatal("expected error on 10 bit address")
	}
	if err := b.Tx(0x21, []byte{0x01, 0x02, 0x03}, nil); err == nil {
		t.Fatal("expected error on multi byte write")
	}
	if err := b.Tx(0x21, []byte{0x01}, make([]byte, 2)); err == nil {
		t.Fatal("expected error on multi byte read")
	}
}

func TestBus_Pins(t *testing.T) {
	s := &sccbtest.Sensor{Addr: 0x21}
	b := sccb.New(s, nil)
	if b.SCL() != gpio.INVALID || b.SDA() != gpio.INVALID {
		t.Fatal("expected invalid pins")
	}
	scl := &gpiotest.Pin{N: "SCL"}
	sda := &gpiotest.Pin{N: "SDA"}
	s.SCLPin = scl
	s.SDAPin = sda
	if b.SCL() != scl || b.SDA() != sda {
		t.Fatal("pins not forwarded")
	}
	if b.String() != "sccb.Bus{sccbtest.Sensor{0x21}}" {
		t.Fatal(b.String())
	}
}
