// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package controller

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

var errUnexpectedStop = errors.New("stop condition observed mid-transfer")

// engine is the protocol state machine. It is driven by port events and by
// the controller when a transfer starts or times out.
//
// mu plays the role of the interrupt lock: the live xfer is only touched with
// it held.
type engine struct {
	p   Port
	log logrus.FieldLogger

	mu sync.Mutex
	x  *xfer
}

// HandleEvent implements EventHandler.
func (e *engine) HandleEvent(ev Event) {
	e.mu.Lock()
	x := e.x
	if x == nil {
		e.mu.Unlock()
		e.log.WithField("event", ev).Debug("i2c: event dropped, no transfer")
		return
	}
	e.dispatch(x, ev)
	fin := e.settle(x)
	e.mu.Unlock()
	if fin {
		x.done(x.result())
	}
}

// run makes x the live transfer and puts its first address on the bus.
func (e *engine) run(x *xfer) {
	e.mu.Lock()
	e.x = x
	e.begin(x, 0, e.p.Start)
	fin := e.settle(x)
	e.mu.Unlock()
	if fin {
		x.done(x.result())
	}
}

// abort faults x with Timeout if it is still live. It returns false if x
// already reached a terminal state, in which case its done callback has been
// or is being called.
func (e *engine) abort(x *xfer) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.x != x {
		return false
	}
	e.fault(x, Timeout, nil)
	e.x = nil
	return true
}

// settle drops x when it reached a terminal state.
func (e *engine) settle(x *xfer) bool {
	if !x.state.terminal() {
		return false
	}
	e.x = nil
	return true
}

func (e *engine) dispatch(x *xfer, ev Event) {
	switch ev {
	case EventAck, EventRxReady:
		switch x.state {
		case AddressPhase:
			e.addressed(x)
		case DataWrite:
			if ev == EventAck {
				e.write(x)
				return
			}
			e.log.WithFields(logrus.Fields{"event": ev, "state": x.state}).Debug("i2c: event ignored")
		case DataRead:
			if ev == EventRxReady {
				e.read(x)
				return
			}
			e.log.WithFields(logrus.Fields{"event": ev, "state": x.state}).Debug("i2c: event ignored")
		}
	case EventNack:
		e.fault(x, NoAcknowledge, nil)
	case EventArbLost:
		e.fault(x, ArbitrationLost, nil)
	case EventBusError:
		e.fault(x, BusError, nil)
	case EventTimeout:
		e.fault(x, Timeout, nil)
	case EventStop:
		e.fault(x, BusError, errUnexpectedStop)
	default:
		e.log.WithField("event", ev).Debug("i2c: unknown event")
	}
}

// begin enters AddressPhase for message i, issuing start with the given
// port call.
func (e *engine) begin(x *xfer, i int, start func() error) {
	x.idx = i
	x.off = 0
	x.steps = addrSteps(x.addr, x.ten, x.msgs[i].IsRead())
	// A new address phase always arms the ack policy again.
	x.ack = ackUnknown
	x.state = AddressPhase
	if !e.call(x, start()) {
		return
	}
	e.sendAddr(x)
}

// sendAddr puts the next address byte on the bus.
func (e *engine) sendAddr(x *xfer) {
	s := x.steps[0]
	x.steps = x.steps[1:]
	if s == stepRestart {
		if !e.call(x, e.p.RepeatedStart()) {
			return
		}
		s = x.steps[0]
		x.steps = x.steps[1:]
	}
	e.call(x, e.p.WriteByte(byte(s)))
}

// addressed handles an acknowledged address byte.
func (e *engine) addressed(x *xfer) {
	if len(x.steps) != 0 {
		e.sendAddr(x)
		return
	}
	if x.msgs[x.idx].IsRead() {
		x.state = DataRead
		e.read(x)
		return
	}
	x.state = DataWrite
	e.write(x)
}

// write uses a free transmit slot. Zero length messages merged into the
// current one are skipped in the same event.
func (e *engine) write(x *xfer) {
	for {
		m := &x.msgs[x.idx]
		if x.off < len(m.Buf) {
			b := m.Buf[x.off]
			x.off++
			e.call(x, e.p.WriteByte(b))
			return
		}
		if !e.boundary(x) {
			return
		}
	}
}

// read fetches the received byte. The ack policy is armed before the byte is
// fetched; only the last byte of a run of merged reads is not acknowledged.
func (e *engine) read(x *xfer) {
	m := &x.msgs[x.idx]
	last := x.off == len(m.Buf)-1 && !mergesNext(x.msgs, x.idx)
	if !e.arm(x, !last) {
		return
	}
	b, err := e.p.ReadByte()
	if !e.call(x, err) {
		return
	}
	m.Buf[x.off] = b
	x.off++
	if x.off == len(m.Buf) {
		e.boundary(x)
	}
}

func (e *engine) arm(x *xfer, ack bool) bool {
	want := nackArmed
	if ack {
		want = ackArmed
	}
	if x.ack == want {
		return true
	}
	if !e.call(x, e.p.SetAck(ack)) {
		return false
	}
	x.ack = want
	return true
}

// boundary decides what happens after message x.idx completed. It returns
// true when the next message was merged and the data phase continues.
func (e *engine) boundary(x *xfer) bool {
	i := x.idx
	x.state = MessageBoundary
	switch {
	case i == len(x.msgs)-1:
		if e.call(x, e.p.Stop()) {
			x.state = Done
		}
	case x.msgs[i].Flags&Stop != 0:
		if e.call(x, e.p.Stop()) {
			e.begin(x, i+1, e.p.Start)
		}
	case mergesNext(x.msgs, i):
		x.idx++
		x.off = 0
		x.state = DataWrite
		if x.msgs[x.idx].IsRead() {
			x.state = DataRead
		}
		return true
	default:
		e.begin(x, i+1, e.p.RepeatedStart)
	}
	return false
}

// call faults x with BusError when a port call failed.
func (e *engine) call(x *xfer, err error) bool {
	if err == nil {
		return true
	}
	e.fault(x, BusError, err)
	return false
}

// fault terminates x: the bus is released and the port status cleared before
// the error is reported.
func (e *engine) fault(x *xfer, k Kind, cause error) {
	if x.state.terminal() {
		return
	}
	off := x.off
	if k == NoAcknowledge && x.state == DataWrite && off > 0 {
		// The rejected byte was already counted.
		off--
	}
	x.err = &Error{Kind: k, Msg: x.idx, Offset: off, Err: cause}
	x.state = Faulted
	st := e.p.Status()
	l := e.log.WithFields(logrus.Fields{"addr": x.addr, "msg": x.idx, "kind": k})
	if err := e.p.Stop(); err != nil {
		l.WithError(err).Warn("i2c: stop failed")
	}
	if err := e.p.ClearStatus(); err != nil {
		l.WithError(err).Warn("i2c: clear status failed")
	}
	if k == ArbitrationLost {
		l.Debug("i2c: arbitration lost")
		return
	}
	l.WithField("status", st).Error(x.err.Error())
}
