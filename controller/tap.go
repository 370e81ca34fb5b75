// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package controller

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/physic"
)

// OpKind is a bus primitive issued to a Port.
type OpKind uint8

const (
	OpStart OpKind = iota + 1
	OpRepeatedStart
	OpWrite
	OpRead
	OpSetAck
	OpStop
	OpClearStatus
	OpSetSpeed
	OpRecover
)

// Op is one call made to a Port.
type Op struct {
	Kind OpKind
	// Byte is the byte written or read.
	Byte byte
	// Ack is the policy for OpSetAck.
	Ack bool
}

func (o Op) String() string {
	switch o.Kind {
	case OpStart:
		return "S"
	case OpRepeatedStart:
		return "Sr"
	case OpWrite:
		return fmt.Sprintf("W%02X", o.Byte)
	case OpRead:
		return fmt.Sprintf("R%02X", o.Byte)
	case OpSetAck:
		if o.Ack {
			return "ACK"
		}
		return "NACK"
	case OpStop:
		return "P"
	case OpClearStatus:
		return "CLR"
	case OpSetSpeed:
		return "SPD"
	case OpRecover:
		return "RCV"
	default:
		return fmt.Sprintf("Op(%d)", uint8(o.Kind))
	}
}

// Tap is a Port that records every call made to the Port it wraps.
type Tap struct {
	Port
	// OnOp, when set, is called after each recorded call.
	OnOp func(o Op)

	mu  sync.Mutex
	ops []Op
}

// Ops returns a copy of the calls recorded so far.
func (t *Tap) Ops() []Op {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Op(nil), t.ops...)
}

// Reset forgets the recorded calls.
func (t *Tap) Reset() {
	t.mu.Lock()
	t.ops = nil
	t.mu.Unlock()
}

func (t *Tap) SetSpeed(f physic.Frequency) error {
	t.add(Op{Kind: OpSetSpeed})
	return t.Port.SetSpeed(f)
}

func (t *Tap) Start() error {
	t.add(Op{Kind: OpStart})
	return t.Port.Start()
}

func (t *Tap) RepeatedStart() error {
	t.add(Op{Kind: OpRepeatedStart})
	return t.Port.RepeatedStart()
}

func (t *Tap) WriteByte(b byte) error {
	t.add(Op{Kind: OpWrite, Byte: b})
	return t.Port.WriteByte(b)
}

func (t *Tap) ReadByte() (byte, error) {
	b, err := t.Port.ReadByte()
	t.add(Op{Kind: OpRead, Byte: b})
	return b, err
}

func (t *Tap) SetAck(ack bool) error {
	t.add(Op{Kind: OpSetAck, Ack: ack})
	return t.Port.SetAck(ack)
}

func (t *Tap) Stop() error {
	t.add(Op{Kind: OpStop})
	return t.Port.Stop()
}

func (t *Tap) ClearStatus() error {
	t.add(Op{Kind: OpClearStatus})
	return t.Port.ClearStatus()
}

// RecoverBus implements Recoverer by forwarding to the wrapped port. It
// returns an error of Kind NotSupported when the wrapped port can't recover
// the bus by itself.
func (t *Tap) RecoverBus() error {
	r, ok := t.Port.(Recoverer)
	if !ok {
		return &Error{Kind: NotSupported, Msg: -1, Err: errors.New("no recovery on " + t.Port.String())}
	}
	t.add(Op{Kind: OpRecover})
	return r.RecoverBus()
}

// SCL implements i2c.Pins. It returns nil when the wrapped port doesn't
// expose its pins.
func (t *Tap) SCL() gpio.PinIO {
	if p, ok := t.Port.(i2c.Pins); ok {
		return p.SCL()
	}
	return nil
}

// SDA implements i2c.Pins. It returns nil when the wrapped port doesn't
// expose its pins.
func (t *Tap) SDA() gpio.PinIO {
	if p, ok := t.Port.(i2c.Pins); ok {
		return p.SDA()
	}
	return nil
}

// Close closes the wrapped port if it implements io.Closer.
func (t *Tap) Close() error {
	if c, ok := t.Port.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (t *Tap) add(o Op) {
	t.mu.Lock()
	t.ops = append(t.ops, o)
	f := t.OnOp
	t.mu.Unlock()
	if f != nil {
		f(o)
	}
}

var _ Port = &Tap{}
var _ Recoverer = &Tap{}
var _ i2c.Pins = &Tap{}
