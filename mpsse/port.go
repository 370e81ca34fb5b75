// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mpsse

import (
	"fmt"
	"io"
	"sync"

	"periph.io/x/i2cctl/controller"
	"periph.io/x/periph/conn/physic"
)

const (
	d0 = 1 // SCL
	d1 = 2 // SDA/Out
	d2 = 4 // SDA/In
)

// Port is an I²C controller port over an MPSSE.
//
// D3~D7 are left untouched.
type Port struct {
	irq  controller.IRQ
	h    Handle
	name string

	mu     sync.Mutex
	value  byte // D bus value for D3~D7
	dir    byte // D bus direction
	ack    bool
	status controller.Status
	speed  physic.Frequency
}

// New verifies the MPSSE on h and sets it up for I²C.
func New(h Handle, name string) (*Port, error) {
	if err := verify(h); err != nil {
		return nil, err
	}
	// Start from a known state, it is impossible to read back the clock or
	// the GPIO directions.
	cmd := []byte{
		clock30MHz, clockNormal, clock2Phase, internalLoopbackDisable,
		gpioSetC, 0x00, 0x00,
		gpioSetD, 0x00, 0x00,
		// Tristate makes Out(High) float instead of driving high, the open
		// collector behavior I²C needs.
		clock3Phase,
		dataTristate, d0 | d1 | d2, 0,
	}
	if err := writeAll(h, cmd); err != nil {
		return nil, err
	}
	p := &Port{h: h, name: name, dir: d0 | d1}
	if err := p.idle(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Port) String() string {
	return p.name
}

// Close returns the MPSSE to a non-I²C state and closes the handle if it
// implements io.Closer.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	cmd := []byte{
		clock2Phase,
		dataTristate, 0, 0,
		clock30MHz, 0, 0,
	}
	err := writeAll(p.h, cmd)
	p.irq.Close()
	if c, ok := p.h.(io.Closer); ok {
		if err2 := c.Close(); err == nil {
			err = err2
		}
	}
	return err
}

// Caps implements controller.Port.
func (p *Port) Caps() controller.Caps {
	return controller.Caps{Addr10: true, MaxSpeed: controller.FastPlus}
}

// Attach implements controller.Port.
func (p *Port) Attach(h controller.EventHandler) {
	p.irq.Attach(h)
}

// SetSpeed implements controller.Port.
func (p *Port) SetSpeed(f physic.Frequency) error {
	if f > controller.FastPlus {
		return fmt.Errorf("mpsse: invalid speed %s; maximum supported clock is 1MHz", f)
	}
	if f < 100*physic.Hertz {
		return fmt.Errorf("mpsse: invalid speed %s; minimum supported clock is 100Hz; did you forget to multiply by physic.KiloHertz?", f)
	}
	// 3 phase clocking uses 3 half periods per bit.
	cmd, _, err := clockCmd(f * 3 / 2)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := writeAll(p.h, cmd); err != nil {
		return err
	}
	p.speed = f
	return nil
}

// Start implements controller.Port.
//
// The lines are expected idle, as left by New, Stop or any byte transfer.
func (p *Port) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, dir := p.value, p.dir
	// Runs the command multiple times as a way to delay execution.
	cmd := []byte{
		// SCL high, SDA low for 600ns
		gpioSetD, v | d0, dir,
		gpioSetD, v | d0, dir,
		gpioSetD, v | d0, dir,
		gpioSetD, v | d0, dir,
		// SCL low, SDA low
		gpioSetD, v, dir,
		gpioSetD, v, dir,
		gpioSetD, v, dir,
	}
	return p.write(cmd)
}

// RepeatedStart implements controller.Port.
//
// Every byte transfer leaves both lines released, so it is the same sequence
// as Start.
func (p *Port) RepeatedStart() error {
	return p.Start()
}

// WriteByte implements controller.Port.
func (p *Port) WriteByte(b byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	cmd := []byte{
		dataOut | dataOutFall, 0, 0, b,
		// Release SDA.
		gpioSetD, p.value | d0 | d1, p.dir,
		// Sample ACK/NACK.
		dataIn | dataBit, 0,
		flush,
	}
	if err := p.write(cmd); err != nil {
		return err
	}
	var r [1]byte
	if err := p.read(r[:]); err != nil {
		return err
	}
	if r[0]&1 != 0 {
		p.status |= controller.StatusNack
		p.irq.Raise(controller.EventNack)
		return nil
	}
	p.irq.Raise(controller.EventAck)
	return nil
}

// ReadByte implements controller.Port.
//
// The byte is clocked in during the call and answered with the policy set by
// SetAck.
func (p *Port) ReadByte() (byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	a := byte(0x80)
	if p.ack {
		a = 0
	}
	cmd := []byte{
		dataIn | dataBit, 7,
		dataOut | dataOutFall | dataBit, 0, a,
		gpioSetD, p.value | d0 | d1, p.dir,
		flush,
	}
	if err := p.write(cmd); err != nil {
		return 0, err
	}
	var r [1]byte
	if err := p.read(r[:]); err != nil {
		return 0, err
	}
	if p.ack {
		p.irq.Raise(controller.EventRxReady)
	}
	return r[0], nil
}

// SetAck implements controller.Port.
func (p *Port) SetAck(ack bool) error {
	p.mu.Lock()
	p.ack = ack
	p.mu.Unlock()
	return nil
}

// Stop implements controller.Port.
func (p *Port) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, dir := p.value, p.dir
	cmd := []byte{
		// SCL low, SDA low
		gpioSetD, v, dir,
		gpioSetD, v, dir,
		gpioSetD, v, dir,
		gpioSetD, v, dir,
		// SCL high, SDA low
		gpioSetD, v | d0, dir,
		gpioSetD, v | d0, dir,
		gpioSetD, v | d0, dir,
		gpioSetD, v | d0, dir,
		// SCL high, SDA high
		gpioSetD, v | d0 | d1, dir,
		gpioSetD, v | d0 | d1, dir,
		gpioSetD, v | d0 | d1, dir,
		gpioSetD, v | d0 | d1, dir,
	}
	return p.write(cmd)
}

// Status implements controller.Port.
func (p *Port) Status() controller.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// ClearStatus implements controller.Port.
func (p *Port) ClearStatus() error {
	p.mu.Lock()
	p.status = 0
	p.mu.Unlock()
	p.irq.Flush()
	return nil
}

// RecoverBus implements controller.Recoverer.
//
// SCL is clocked 9 times with SDA released, then a stop is generated.
func (p *Port) RecoverBus() error {
	p.mu.Lock()
	v, dir := p.value, p.dir
	cmd := []byte{
		gpioSetD, v | d1, dir,
		clockOnShort, 7,
		clockOnShort, 0,
	}
	err := p.write(cmd)
	p.mu.Unlock()
	if err != nil {
		return err
	}
	return p.Stop()
}

// idle sets D0 and D1 high.
func (p *Port) idle() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	const mask = 0xFF &^ (d0 | d1 | d2)
	p.dir = p.dir&mask | d0 | d1
	p.value &= mask
	return p.write([]byte{gpioSetD, p.value | d0 | d1, p.dir})
}

func (p *Port) write(b []byte) error {
	if err := writeAll(p.h, b); err != nil {
		p.status |= controller.StatusBusError
		return err
	}
	return nil
}

func (p *Port) read(b []byte) error {
	if err := readAll(p.h, b); err != nil {
		p.status |= controller.StatusBusError
		return err
	}
	return nil
}

var _ controller.Port = &Port{}
var _ controller.Recoverer = &Port{}
