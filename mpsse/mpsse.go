// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mpsse

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/periph/conn/physic"
)

const (
	// TDI/TDO serial operation synchronised on clock edges.
	//
	// Long streams (default):
	//   <op>, <LengthLow-1>, <LengthHigh-1>, <byte0>, ..., <byteN>
	//
	// Short streams (dataBit is specified), [1, 8] bits:
	//   <op>, <Length-1>, <byte>
	dataOut     byte = 0x10 // Enable output, default on +VE (Rise)
	dataIn      byte = 0x20 // Enable input, default on +VE (Rise)
	dataOutFall byte = 0x01 // instead of Rise
	dataBit     byte = 0x02 // instead of Byte

	// Data line drives low when the data is 0 and tristates high on data 1.
	// <op>, <ADBus pins>, <ACBus pins>
	dataTristate byte = 0x9E

	// GPIO operation on D0~D7. Direction 1 means output.
	// <op>, <value>, <direction>
	gpioSetD byte = 0x80
	gpioSetC byte = 0x82

	internalLoopbackDisable byte = 0x85

	// Base clock selection; the 6MHz base uses a 5x divisor.
	clock30MHz byte = 0x8A
	clock6MHz  byte = 0x8B
	// <op>, <valueL-1>, <valueH-1>
	clockSetDivisor byte = 0x86
	// Data is valid on both clock edges. Needed for I²C.
	clock3Phase byte = 0x8C
	clock2Phase byte = 0x8D
	// Clocks between [1, 8] pulses without data.
	// <op>, <length-1>
	clockOnShort byte = 0x8E
	clockNormal  byte = 0x97

	// Sends the read buffer back to the host.
	flush byte = 0x87

	// Reply to an unknown command: 0xFA followed by the command.
	badCommand byte = 0xFA
)

// Handle is the byte pipe to the MPSSE.
type Handle interface {
	// Write sends commands.
	Write(b []byte) (int, error)
	// Read returns what the MPSSE sent back so far. It may return less than
	// len(b), including 0.
	Read(b []byte) (int, error)
}

// readTimeout bounds how long a reply is waited for.
const readTimeout = 200 * time.Millisecond

func writeAll(h Handle, b []byte) error {
	for len(b) != 0 {
		n, err := h.Write(b)
		if err != nil {
			return err
		}
		if n == 0 {
			return errors.New("mpsse: short write")
		}
		b = b[n:]
	}
	return nil
}

func readAll(h Handle, b []byte) error {
	for start := time.Now(); len(b) != 0; {
		n, err := h.Read(b)
		if err != nil {
			return err
		}
		b = b[n:]
		if n == 0 {
			if time.Since(start) > readTimeout {
				return errors.New("mpsse: read timed out")
			}
			// Slow down the busy loop a little.
			time.Sleep(10 * time.Microsecond)
		}
	}
	return nil
}

// verify sends invalid commands and checks they are rejected the way the
// MPSSE does.
func verify(h Handle) error {
	for _, v := range []byte{0xAA, 0xAB} {
		if err := writeAll(h, []byte{v}); err != nil {
			return fmt.Errorf("mpsse: verify: %v", err)
		}
		var b [2]byte
		if err := readAll(h, b[:]); err != nil {
			return fmt.Errorf("mpsse: verify: %v", err)
		}
		if b[0] != badCommand || b[1] != v {
			return fmt.Errorf("mpsse: verify: failed test for byte %#x: %#x", v, b)
		}
	}
	return nil
}

// clockCmd returns the commands to set the clock at the closest value and
// that value.
func clockCmd(f physic.Frequency) ([]byte, physic.Frequency, error) {
	clk := clock30MHz
	base := 30 * physic.MegaHertz
	div := base / f
	if div >= 65536 {
		clk = clock6MHz
		base /= 5
		div = base / f
		if div >= 65536 {
			return nil, 0, errors.New("mpsse: clock frequency is too low")
		}
	}
	if div == 0 {
		div = 1
	}
	return []byte{clk, clockSetDivisor, byte(div - 1), byte((div - 1) >> 8)}, base / div, nil
}
