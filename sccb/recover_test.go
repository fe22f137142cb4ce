package sccb

import (
	"errors"
	"testing"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
)

func TestRecover(t *testing.T) {
	tests := []struct {
		name   string
		stuck  int
		err    error
		pulses int
	}{
		{"idle", 0, nil, 0},
		{"one pulse", 1, nil, 1},
		{"mid byte", 5, nil, 5},
		{"nine pulses", 9, nil, 9},
		{"held forever", -1, ErrRecoveryFailed, RecoveryPulses},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newWire(0x21)
			w.stuck = tt.stuck
			falls := 0
			w.dev.onFall = func() { falls++ }

			err := Recover(w.scl, w.sda)
			if !errors.Is(err, tt.err) {
				t.Fatalf("got %v, want %v", err, tt.err)
			}
			// The manual STOP adds one falling edge on success.
			want := tt.pulses
			if tt.err == nil {
				want++
			}
			if falls != want {
				t.Fatalf("%d SCL falling edges, want %d", falls, want)
			}
			if w.scl.Func() != i2c.SCL || w.sda.Func() != i2c.SDA {
				t.Fatalf("functions not restored: %s %s", w.scl.Func(), w.sda.Func())
			}
			if w.scl.set != 1 || w.sda.set != 1 {
				t.Fatalf("SetFunc called %d/%d times", w.scl.set, w.sda.set)
			}
			if tt.err == nil && !w.idle() {
				t.Fatal("bus not idle after recovery")
			}
		})
	}
}

func TestRecover_InvalidPins(t *testing.T) {
	w := newWire(0x21)
	if err := Recover(gpio.INVALID, w.sda); err == nil {
		t.Fatal("expected error")
	}
	if err := Recover(w.scl, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestRecover_ThenTransact(t *testing.T) {
	w := newWire(0x21)
	b := newBitBang(t, w)
	w.stuck = 3
	if err := Recover(w.scl, w.sda); err != nil {
		t.Fatal(err)
	}
	bus := New(b, nil)
	if err := bus.Write(0x21, 0x11, 0x01); err != nil {
		t.Fatal(err)
	}
	if w.dev.regs[0x11] != 0x01 {
		t.Fatal("write not applied after recovery")
	}
}
