package sccb

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/pin"
)

// RecoveryPulses is the maximum number of SCL pulses issued by Recover.
// Nine pulses are enough to finish any byte plus its acknowledge bit.
const RecoveryPulses = 9

// recoveryHalf is the half period used while recovering (~100kHz).
const recoveryHalf = 5 * 1000 // ns

// ErrRecoveryFailed is returned when SDA is still held low after
// RecoveryPulses clock pulses.
var ErrRecoveryFailed = errors.New("sccb: bus recovery failed, SDA held low")

// Recover frees a bus wedged by a slave holding SDA low.
//
// Both lines are taken over as plain GPIOs: SCL is driven high and SDA is
// released high. While SDA reads low, SCL is pulsed low then high, up to
// RecoveryPulses times. A manual STOP (SDA rising while SCL is high) is then
// emitted and both lines are switched back to the function they had before
// the call.
//
// Recover always returns after at most RecoveryPulses pulses.
func Recover(scl, sda gpio.PinIO) error {
	if scl == nil || sda == nil || scl == gpio.INVALID || sda == gpio.INVALID {
		return errors.New("sccb: bus recovery needs both SCL and SDA pins")
	}
	sclFn := funcOf(scl)
	sdaFn := funcOf(sda)

	err := recoverLines(scl, sda)

	// Restore the bus roles even when recovery failed.
	if rerr := restoreFunc(scl, sclFn); rerr != nil && err == nil {
		err = fmt.Errorf("sccb: failed to restore SCL function: %w", rerr)
	}
	if rerr := restoreFunc(sda, sdaFn); rerr != nil && err == nil {
		err = fmt.Errorf("sccb: failed to restore SDA function: %w", rerr)
	}
	return err
}

func recoverLines(scl, sda gpio.PinIO) error {
	if err := scl.Out(gpio.High); err != nil {
		return fmt.Errorf("sccb: failed to drive SCL: %w", err)
	}
	// SDA is released instead of driven so a slave holding it is visible.
	if err := sda.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return fmt.Errorf("sccb: failed to release SDA: %w", err)
	}
	sleep(recoveryHalf)

	for i := 0; i < RecoveryPulses && sda.Read() == gpio.Low; i++ {
		if err := scl.Out(gpio.Low); err != nil {
			return fmt.Errorf("sccb: failed to pulse SCL: %w", err)
		}
		sleep(recoveryHalf)
		if err := scl.Out(gpio.High); err != nil {
			return fmt.Errorf("sccb: failed to pulse SCL: %w", err)
		}
		sleep(recoveryHalf)
	}
	if sda.Read() == gpio.Low {
		return ErrRecoveryFailed
	}

	// Manual STOP: SDA low while SCL is low, then SCL high, then SDA high.
	if err := scl.Out(gpio.Low); err != nil {
		return err
	}
	sleep(recoveryHalf)
	if err := sda.Out(gpio.Low); err != nil {
		return err
	}
	sleep(recoveryHalf)
	if err := scl.Out(gpio.High); err != nil {
		return err
	}
	sleep(recoveryHalf)
	if err := sda.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return err
	}
	sleep(recoveryHalf)
	return nil
}

// funcOf returns the current function of p, or "" when p cannot report it.
func funcOf(p gpio.PinIO) pin.Func {
	if pf, ok := p.(pin.PinFunc); ok {
		return pf.Func()
	}
	return ""
}

// restoreFunc switches p back to fn when it was changed.
func restoreFunc(p gpio.PinIO, fn pin.Func) error {
	pf, ok := p.(pin.PinFunc)
	if !ok || fn == "" || pf.Func() == fn {
		return nil
	}
	return pf.SetFunc(fn)
}
