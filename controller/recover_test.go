// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package controller

import (
	"errors"
	"testing"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpiotest"
)

// clock is a SCL line; the target holding SDA lets go after release pulses.
type clock struct {
	*gpiotest.Pin
	sda     *gpiotest.Pin
	release int
	pulses  int
}

func (c *clock) Out(l gpio.Level) error {
	if l == gpio.High && c.Pin.Read() == gpio.Low {
		c.pulses++
		if c.pulses == c.release {
			c.sda.Out(gpio.High)
		}
	}
	return c.Pin.Out(l)
}

func TestRecoverPins(t *testing.T) {
	sda := &gpiotest.Pin{N: "SDA", Num: 1, L: gpio.Low}
	scl := &clock{Pin: &gpiotest.Pin{N: "SCL", Num: 0, L: gpio.High}, sda: sda, release: 3}
	if err := RecoverPins(scl, sda, FastPlus); err != nil {
		t.Fatal(err)
	}
	// 3 clear pulses, then the rising SCL edge of the stop.
	if scl.pulses != 4 {
		t.Fatal(scl.pulses)
	}
	// Ends with a stop: both lines high.
	if scl.Read() != gpio.High || sda.Read() != gpio.High {
		t.Fatal("bus not idle")
	}
}

func TestRecoverPins_stuck(t *testing.T) {
	sda := &gpiotest.Pin{N: "SDA", Num: 1, L: gpio.Low}
	scl := &clock{Pin: &gpiotest.Pin{N: "SCL", Num: 0, L: gpio.High}, sda: sda}
	err := RecoverPins(scl, sda, FastPlus)
	if !errors.Is(err, ErrBusError) {
		t.Fatal(err)
	}
	if scl.pulses != 9 {
		t.Fatal(scl.pulses)
	}
}

func TestRecoverPins_idle(t *testing.T) {
	sda := &gpiotest.Pin{N: "SDA", Num: 1, L: gpio.High}
	scl := &clock{Pin: &gpiotest.Pin{N: "SCL", Num: 0, L: gpio.High}, sda: sda}
	if err := RecoverPins(scl, sda, 0); err != nil {
		t.Fatal(err)
	}
	// Only the stop.
	if scl.pulses != 1 {
		t.Fatal(scl.pulses)
	}
}

func TestRecoverPins_noPins(t *testing.T) {
	if err := RecoverPins(nil, nil, Standard); !errors.Is(err, ErrNotSupported) {
		t.Fatal(err)
	}
}
