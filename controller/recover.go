// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package controller

import (
	"errors"
	"time"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/physic"
)

// RecoverPins runs the generic bus clear sequence on the raw lines: SDA is
// released and SCL is clocked up to 9 times until the target lets SDA go,
// then a stop condition is generated.
//
// f is the bus speed, used to time the pulses. The pins must not be used by
// the controller hardware while this runs.
func RecoverPins(scl, sda gpio.PinIO, f physic.Frequency) error {
	if scl == nil || sda == nil {
		return &Error{Kind: NotSupported, Msg: -1, Err: errors.New("no SCL/SDA pins")}
	}
	if f <= 0 {
		f = Standard
	}
	half := f.Duration() / 2
	if half < time.Microsecond {
		half = time.Microsecond
	}
	if err := sda.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return err
	}
	for i := 0; i < 9 && sda.Read() == gpio.Low; i++ {
		if err := scl.Out(gpio.Low); err != nil {
			return err
		}
		time.Sleep(half)
		if err := scl.Out(gpio.High); err != nil {
			return err
		}
		time.Sleep(half)
	}
	if sda.Read() == gpio.Low {
		return &Error{Kind: BusError, Msg: -1, Err: errors.New("SDA still held low after 9 clocks")}
	}
	// Stop: SDA rises while SCL is high.
	seq := []struct {
		p gpio.PinIO
		l gpio.Level
	}{
		{scl, gpio.Low},
		{sda, gpio.Low},
		{scl, gpio.High},
		{sda, gpio.High},
	}
	for _, s := range seq {
		if err := s.p.Out(s.l); err != nil {
			return err
		}
		time.Sleep(half)
	}
	return nil
}
