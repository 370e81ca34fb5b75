// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sim

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/i2cctl/controller"
	"periph.io/x/periph/conn/physic"
)

var errStuck = errors.New("sim: SDA held low")

// Target is a device attached to a Bus.
type Target interface {
	// Addr is the target address.
	Addr() uint16
	// Begin is called when the target is addressed. It returns false to NACK
	// the address.
	Begin(read bool) bool
	// Write receives one byte. It returns false to NACK it.
	Write(b byte) bool
	// Read returns the next byte to send.
	Read() byte
	// End is called on a stop or repeated start.
	End()
}

// FaultKind is a failure the simulated hardware can report.
type FaultKind uint8

const (
	// FaultNack makes the target NACK the byte.
	FaultNack FaultKind = iota + 1
	// FaultArbLost reports an arbitration loss on the byte.
	FaultArbLost
	// FaultBusError reports a misplaced start or stop on the byte.
	FaultBusError
	// FaultHang swallows the event of the byte, as if SCL was stretched
	// forever.
	FaultHang
	// FaultStuck holds SDA low until RecoverBus is called.
	FaultStuck
)

func (f FaultKind) String() string {
	switch f {
	case FaultNack:
		return "Nack"
	case FaultArbLost:
		return "ArbLost"
	case FaultBusError:
		return "BusError"
	case FaultHang:
		return "Hang"
	case FaultStuck:
		return "Stuck"
	default:
		return fmt.Sprintf("FaultKind(%d)", uint8(f))
	}
}

// Fault is a one shot failure.
type Fault struct {
	Kind FaultKind
	// Byte is the index of the byte on the wire it applies to, counted from
	// the last start: 0 is the first address byte. Ignored for FaultStuck.
	Byte int
}

// Opts configures a Bus.
type Opts struct {
	Name string
	Caps controller.Caps
}

// Bus is a simulated controller port.
type Bus struct {
	irq  controller.IRQ
	name string
	caps controller.Caps

	mu      sync.Mutex
	targets map[uint32]Target
	speed   physic.Frequency
	status  controller.Status
	faults  []Fault
	stuck   bool
	open    bool // between start and stop
	addr    []byte
	cur     Target
	ten     Target // last target addressed with 10-bit
	read    bool
	ack     bool
	rx      byte
	n       int // bytes on the wire since start
}

// New returns a simulated bus.
func New(opts *Opts) *Bus {
	b := &Bus{name: "sim", caps: controller.Caps{MaxSpeed: controller.Ultra}, targets: map[uint32]Target{}}
	if opts != nil {
		if opts.Name != "" {
			b.name = opts.Name
		}
		if opts.Caps.MaxSpeed != 0 {
			b.caps = opts.Caps
		} else {
			b.caps.Addr10 = opts.Caps.Addr10
		}
	}
	return b
}

// Connect attaches t at its 7-bit address.
func (b *Bus) Connect(t Target) {
	b.mu.Lock()
	b.targets[uint32(t.Addr())] = t
	b.mu.Unlock()
}

// Connect10 attaches t at its 10-bit address.
func (b *Bus) Connect10(t Target) {
	b.mu.Lock()
	b.targets[uint32(t.Addr())|1<<16] = t
	b.mu.Unlock()
}

// Inject queues a fault.
func (b *Bus) Inject(f Fault) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if f.Kind == FaultStuck {
		b.stuck = true
		b.status |= controller.StatusBusy
		return
	}
	b.faults = append(b.faults, f)
}

// Speed returns the bus clock last programmed.
func (b *Bus) Speed() physic.Frequency {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.speed
}

// Idle blocks until all raised events were handled.
func (b *Bus) Idle() {
	b.irq.Idle()
}

func (b *Bus) String() string {
	return b.name
}

// Close stops event delivery.
func (b *Bus) Close() error {
	return b.irq.Close()
}

// Caps implements controller.Port.
func (b *Bus) Caps() controller.Caps {
	return b.caps
}

// Attach implements controller.Port.
func (b *Bus) Attach(h controller.EventHandler) {
	b.irq.Attach(h)
}

// SetSpeed implements controller.Port.
func (b *Bus) SetSpeed(f physic.Frequency) error {
	if f > b.caps.MaxSpeed {
		return fmt.Errorf("sim: invalid speed %s; maximum supported clock is %s", f, b.caps.MaxSpeed)
	}
	b.mu.Lock()
	b.speed = f
	b.mu.Unlock()
	return nil
}

// Start implements controller.Port.
func (b *Bus) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.open {
		return errors.New("sim: start on a busy bus")
	}
	if b.stuck {
		b.status |= controller.StatusBusError
		return errStuck
	}
	b.open = true
	b.n = 0
	b.addr = b.addr[:0]
	return nil
}

// RepeatedStart implements controller.Port.
func (b *Bus) RepeatedStart() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return errors.New("sim: repeated start on an idle bus")
	}
	b.end()
	b.addr = b.addr[:0]
	return nil
}

// WriteByte implements controller.Port.
func (b *Bus) WriteByte(v byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return errors.New("sim: write on an idle bus")
	}
	ev := b.transmit(v)
	b.raise(ev)
	return nil
}

// ReadByte implements controller.Port.
func (b *Bus) ReadByte() (byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open || b.cur == nil || !b.read {
		return 0, errors.New("sim: read without a read transaction")
	}
	v := b.rx
	if b.ack {
		b.rx = b.cur.Read()
		b.raise(controller.EventRxReady)
	} else {
		b.raise(0)
	}
	return v, nil
}

// SetAck implements controller.Port.
func (b *Bus) SetAck(ack bool) error {
	b.mu.Lock()
	b.ack = ack
	b.mu.Unlock()
	return nil
}

// Stop implements controller.Port.
func (b *Bus) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.end()
	b.ten = nil
	b.open = false
	return nil
}

// Status implements controller.Port.
func (b *Bus) Status() controller.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// ClearStatus implements controller.Port.
func (b *Bus) ClearStatus() error {
	b.mu.Lock()
	b.status &= controller.StatusBusy
	b.mu.Unlock()
	b.irq.Flush()
	return nil
}

// RecoverBus implements controller.Recoverer.
func (b *Bus) RecoverBus() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.end()
	b.ten = nil
	b.open = false
	b.stuck = false
	b.status = 0
	return nil
}

// transmit puts one byte on the wire and returns the event the hardware
// reports for it.
func (b *Bus) transmit(v byte) controller.Event {
	if b.cur != nil {
		if b.read {
			return controller.EventBusError
		}
		if b.cur.Write(v) {
			return controller.EventAck
		}
		return controller.EventNack
	}
	b.addr = append(b.addr, v)
	a := b.addr
	if a[0]&0xF8 != 0xF0 {
		return b.address(uint32(a[0]>>1), a[0]&1 != 0)
	}
	if len(a) == 1 {
		if a[0]&1 == 0 {
			// Header of a 10-bit address, the low byte follows.
			if b.lookup(uint32(a[0]&0x06)<<7|1<<16) {
				return controller.EventAck
			}
			b.status |= controller.StatusNack
			return controller.EventNack
		}
		// Header with the read bit after a repeated start.
		if b.ten == nil {
			b.status |= controller.StatusNack
			return controller.EventNack
		}
		return b.begin(b.ten, true)
	}
	t, ok := b.targets[uint32(a[0]&0x06)<<7|uint32(a[1])|1<<16]
	if !ok {
		b.status |= controller.StatusNack
		return controller.EventNack
	}
	b.ten = t
	return b.begin(t, false)
}

// lookup returns true if any 10-bit target matches the header bits.
func (b *Bus) lookup(hdr uint32) bool {
	for k := range b.targets {
		if k&^0xFF == hdr {
			return true
		}
	}
	return false
}

func (b *Bus) address(a uint32, read bool) controller.Event {
	t, ok := b.targets[a]
	if !ok {
		b.status |= controller.StatusNack
		return controller.EventNack
	}
	return b.begin(t, read)
}

func (b *Bus) begin(t Target, read bool) controller.Event {
	if !t.Begin(read) {
		b.status |= controller.StatusNack
		return controller.EventNack
	}
	b.cur = t
	b.read = read
	if read {
		b.rx = t.Read()
		return controller.EventRxReady
	}
	return controller.EventAck
}

func (b *Bus) end() {
	if b.cur != nil {
		b.cur.End()
		b.cur = nil
	}
	b.read = false
}

// raise reports ev for the current byte, unless a fault replaces it. ev 0
// means no event.
func (b *Bus) raise(ev controller.Event) {
	n := b.n
	b.n++
	for i, f := range b.faults {
		if f.Byte != n {
			continue
		}
		b.faults = append(b.faults[:i], b.faults[i+1:]...)
		switch f.Kind {
		case FaultNack:
			b.status |= controller.StatusNack
			ev = controller.EventNack
		case FaultArbLost:
			b.status |= controller.StatusArbLost
			ev = controller.EventArbLost
		case FaultBusError:
			b.status |= controller.StatusBusError
			ev = controller.EventBusError
		case FaultHang:
			ev = 0
		}
		break
	}
	if ev != 0 {
		b.irq.Raise(ev)
	}
}

var _ controller.Port = &Bus{}
var _ controller.Recoverer = &Bus{}
