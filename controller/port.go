// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package controller

import (
	"fmt"
	"strings"
	"sync"

	"periph.io/x/periph/conn/physic"
)

// Port is the chip specific half of an I²C controller.
//
// Every method must be non-blocking from the point of view of the protocol:
// it programs the hardware and returns. What the bus did in response is
// reported later as an Event to the EventHandler passed to Attach, from the
// port's interrupt context. A Port must never call the EventHandler from
// within one of its own methods; use IRQ when the hardware answers
// synchronously.
//
// The engine only calls a Port while it owns the live transfer, so
// implementations don't need to be safe for concurrent use.
type Port interface {
	String() string
	// Caps returns what the port supports.
	Caps() Caps
	// Attach sets the handler receiving events. It is called once by New.
	Attach(h EventHandler)
	// SetSpeed programs the bus clock.
	SetSpeed(f physic.Frequency) error
	// Start issues a start condition on an idle bus.
	Start() error
	// RepeatedStart issues a start condition without releasing the bus.
	RepeatedStart() error
	// WriteByte transmits one byte, address or data. The port raises EventAck
	// or EventNack once the target answered.
	WriteByte(b byte) error
	// ReadByte returns the byte the port raised EventRxReady for, answering
	// it with the policy set by SetAck. When it was an ACK, the port clocks in
	// the next byte and raises EventRxReady again.
	ReadByte() (byte, error)
	// SetAck selects whether the next byte read is acknowledged.
	SetAck(ack bool) error
	// Stop issues a stop condition.
	Stop() error
	// Status returns the sticky fault bits.
	Status() Status
	// ClearStatus clears the fault bits and flushes any hardware queue.
	ClearStatus() error
}

// Recoverer is implemented by ports that can unstick the bus by themselves.
type Recoverer interface {
	RecoverBus() error
}

// Caps describes a Port.
type Caps struct {
	// Addr10 is true if 10-bit addressing is supported.
	Addr10 bool
	// MaxSpeed is the highest bus clock supported.
	MaxSpeed physic.Frequency
}

// Status is the set of fault bits reported by a Port.
type Status uint8

const (
	StatusArbLost Status = 1 << iota
	StatusBusError
	StatusNack
	StatusTimeout
	StatusBusy
)

func (s Status) String() string {
	if s == 0 {
		return "0"
	}
	var out []string
	for i, n := range []string{"ArbLost", "BusError", "Nack", "Timeout", "Busy"} {
		if s&(1<<uint(i)) != 0 {
			out = append(out, n)
		}
	}
	return strings.Join(out, "|")
}

// Event is something the port observed on the bus.
type Event uint8

const (
	// EventAck means the last transmitted byte, address or data, was
	// acknowledged and the transmitter is ready for the next byte.
	EventAck Event = iota + 1
	// EventNack means the last transmitted byte was not acknowledged.
	EventNack
	// EventRxReady means a byte was received and can be fetched with ReadByte.
	// A port may raise it instead of EventAck after a read address.
	EventRxReady
	// EventArbLost means another controller won arbitration.
	EventArbLost
	// EventBusError means a misplaced start or stop was detected.
	EventBusError
	// EventTimeout means the hardware gave up waiting, e.g. SCL held low.
	EventTimeout
	// EventStop means a stop condition was observed.
	EventStop
)

func (e Event) String() string {
	switch e {
	case EventAck:
		return "Ack"
	case EventNack:
		return "Nack"
	case EventRxReady:
		return "RxReady"
	case EventArbLost:
		return "ArbLost"
	case EventBusError:
		return "BusError"
	case EventTimeout:
		return "Timeout"
	case EventStop:
		return "Stop"
	default:
		return fmt.Sprintf("Event(%d)", uint8(e))
	}
}

// EventHandler consumes port events.
type EventHandler interface {
	HandleEvent(e Event)
}

// IRQ emulates an interrupt line for ports where the hardware answers
// synchronously, like USB bridges and simulators.
//
// Raise queues an event; a dedicated goroutine delivers the events in order,
// one at a time, so the handler is never re-entered and the port method that
// raised the event has returned before the handler runs.
//
// The zero value is ready to use.
type IRQ struct {
	mu      sync.Mutex
	cond    *sync.Cond
	q       []Event
	h       EventHandler
	running bool
	closed  bool
	busy    bool
}

// Attach sets the handler and starts delivery.
func (i *IRQ) Attach(h EventHandler) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.init()
	i.h = h
	if !i.running && !i.closed {
		i.running = true
		go i.loop()
	}
	i.cond.Broadcast()
}

// Raise queues an event. Events raised before Attach are kept until a handler
// is attached; events raised after Close are discarded.
func (i *IRQ) Raise(e Event) {
	i.mu.Lock()
	i.init()
	if !i.closed {
		i.q = append(i.q, e)
		i.cond.Broadcast()
	}
	i.mu.Unlock()
}

// Flush discards queued events that were not delivered yet.
func (i *IRQ) Flush() {
	i.mu.Lock()
	i.q = i.q[:0]
	i.mu.Unlock()
}

// Idle blocks until the queue is empty and no event is being handled.
func (i *IRQ) Idle() {
	i.mu.Lock()
	i.init()
	for (len(i.q) != 0 && i.h != nil && !i.closed) || i.busy {
		i.cond.Wait()
	}
	i.mu.Unlock()
}

// Close stops delivery.
func (i *IRQ) Close() error {
	i.mu.Lock()
	i.init()
	i.closed = true
	i.q = nil
	i.cond.Broadcast()
	i.mu.Unlock()
	return nil
}

func (i *IRQ) init() {
	if i.cond == nil {
		i.cond = sync.NewCond(&i.mu)
	}
}

func (i *IRQ) loop() {
	i.mu.Lock()
	for {
		for (len(i.q) == 0 || i.h == nil) && !i.closed {
			i.cond.Wait()
		}
		if i.closed {
			i.running = false
			i.mu.Unlock()
			return
		}
		e := i.q[0]
		i.q = i.q[1:]
		h := i.h
		i.busy = true
		i.mu.Unlock()
		h.HandleEvent(e)
		i.mu.Lock()
		i.busy = false
		i.cond.Broadcast()
	}
}
