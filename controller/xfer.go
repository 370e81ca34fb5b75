// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package controller

import "fmt"

// State is the protocol state of the live transfer.
type State uint8

const (
	Idle State = iota
	AddressPhase
	DataWrite
	DataRead
	MessageBoundary
	Done
	Faulted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case AddressPhase:
		return "AddressPhase"
	case DataWrite:
		return "DataPhase(write)"
	case DataRead:
		return "DataPhase(read)"
	case MessageBoundary:
		return "MessageBoundary"
	case Done:
		return "Done"
	case Faulted:
		return "Faulted"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

func (s State) terminal() bool {
	return s == Done || s == Faulted
}

// stepRestart in xfer.steps asks for a repeated start before the next address
// byte.
const stepRestart = -1

const (
	ackUnknown int8 = iota
	ackArmed
	nackArmed
)

// xfer is the mutable context of one transfer. It is only touched with
// engine.mu held.
type xfer struct {
	addr  uint16
	ten   bool
	msgs  []Msg
	idx   int
	off   int
	state State
	// steps are the address bytes left to send in AddressPhase.
	steps []int
	ack   int8
	err   *Error
	// done is called exactly once, without engine.mu held, when the transfer
	// reaches a terminal state.
	done func(err error)
}

func newXfer(addr uint16, msgs []Msg, ten bool, done func(error)) *xfer {
	return &xfer{addr: addr, ten: ten, msgs: msgs, done: done}
}

func (x *xfer) result() error {
	if x.err != nil {
		return x.err
	}
	return nil
}

// addrSteps returns the address bytes to put on the bus for a message.
func addrSteps(addr uint16, ten, read bool) []int {
	if !ten {
		b := int(addr&0x7F) << 1
		if read {
			b |= 1
		}
		return []int{b}
	}
	hdr := 0xF0 | int(addr>>7)&0x06
	lo := int(addr & 0xFF)
	if !read {
		return []int{hdr, lo}
	}
	return []int{hdr, lo, stepRestart, hdr | 1}
}
