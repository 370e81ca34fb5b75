// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package controller

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/periph/conn"
	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/physic"
)

// Named bus speeds.
const (
	Standard = 100 * physic.KiloHertz
	Fast     = 400 * physic.KiloHertz
	FastPlus = physic.MegaHertz
	High     = 3400 * physic.KiloHertz
	Ultra    = 5 * physic.MegaHertz
)

// DefaultTimeout bounds a transfer when Config.Timeout is not set.
const DefaultTimeout = 500 * time.Millisecond

// Config is the bus configuration.
type Config struct {
	// Speed is one of Standard, Fast, FastPlus, High or Ultra.
	Speed physic.Frequency
	// Addressing applies to every message. With Addr7Bit, individual
	// messages can still request 10-bit addressing with the Addr10 flag.
	Addressing AddrMode
	// Timeout bounds Transfer and TransferAsync.
	Timeout time.Duration
}

// Opts is the optional configuration of New.
type Opts struct {
	// Name is the bus name. Defaults to the port's name.
	Name string
	// Config is applied by New. Defaults to Standard speed, 7-bit addressing
	// and DefaultTimeout.
	Config Config
	// Logger defaults to logrus' standard logger.
	Logger logrus.FieldLogger
}

// Stats are counters of a Controller's activity.
type Stats struct {
	Transfers  uint64 // started on the bus
	Completed  uint64
	NoAck      uint64
	ArbLost    uint64
	BusErrors  uint64
	Timeouts   uint64
	Rejected   uint64 // failed validation, never reached the bus
	Recoveries uint64
}

// Controller is one I²C bus in controller mode.
//
// It is safe for concurrent use; transfers are serialized in arrival order.
type Controller struct {
	name string
	p    Port
	caps Caps
	log  logrus.FieldLogger
	eng  engine
	// lock is the bus lock. Goroutines blocked sending on a channel are
	// served in order.
	lock chan struct{}

	mu     sync.Mutex
	cfg    Config
	closed bool
	stats  Stats
}

// New returns a Controller driving p.
func New(p Port, opts *Opts) (*Controller, error) {
	if opts == nil {
		opts = &Opts{}
	}
	c := &Controller{
		name: opts.Name,
		p:    p,
		caps: p.Caps(),
		lock: make(chan struct{}, 1),
	}
	if c.name == "" {
		c.name = p.String()
	}
	l := opts.Logger
	if l == nil {
		l = logrus.StandardLogger()
	}
	c.log = l.WithField("bus", c.name)
	c.eng = engine{p: p, log: c.log}
	cfg := opts.Config
	if cfg.Speed == 0 {
		cfg.Speed = Standard
	}
	if err := c.Configure(cfg); err != nil {
		return nil, err
	}
	p.Attach(&c.eng)
	return c, nil
}

func (c *Controller) String() string {
	return c.name
}

// Caps returns the capabilities of the port.
func (c *Controller) Caps() Caps {
	return c.caps
}

// Configure changes the bus configuration. It waits for the in-flight
// transfer, if any.
func (c *Controller) Configure(cfg Config) error {
	switch cfg.Speed {
	case Standard, Fast, FastPlus, High, Ultra:
	default:
		return &Error{Kind: NotSupported, Msg: -1, Err: fmt.Errorf("speed %s", cfg.Speed)}
	}
	if err := c.apply(cfg); err != nil {
		return err
	}
	return nil
}

// Config returns the active configuration.
func (c *Controller) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Stats returns a snapshot of the counters.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Transfer runs msgs against the target at addr and blocks until done or
// until the configured timeout expires.
func (c *Controller) Transfer(addr uint16, msgs []Msg) error {
	return c.TransferTimeout(addr, msgs, c.Config().Timeout)
}

// TransferTimeout is Transfer with an explicit timeout.
//
// On timeout, the bus is forcibly stopped and an error of Kind Timeout is
// returned.
func (c *Controller) TransferTimeout(addr uint16, msgs []Msg, timeout time.Duration) error {
	g, err := c.submit(addr, msgs, timeout, nil)
	if err != nil {
		return err
	}
	return g.result()
}

// TransferAsync starts the transfer and returns immediately. cb is called
// exactly once with the result, from the port's interrupt context or from a
// timer when the configured timeout expires.
//
// Errors found before the bus is touched are returned and cb is not called.
// TransferAsync blocks while another transfer holds the bus.
func (c *Controller) TransferAsync(addr uint16, msgs []Msg, cb func(err error)) error {
	if cb == nil {
		return &Error{Kind: InvalidMessage, Msg: -1, Err: errors.New("nil callback")}
	}
	_, err := c.submit(addr, msgs, c.Config().Timeout, cb)
	return err
}

// RecoverBus tries to free a bus held low by a target, between transfers.
//
// It uses the port's own sequence when available, otherwise clocks SCL
// through the port's pins.
func (c *Controller) RecoverBus() error {
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()
	var err error = &Error{Kind: NotSupported, Msg: -1, Err: errors.New("no recovery on " + c.p.String())}
	if r, ok := c.p.(Recoverer); ok {
		err = r.RecoverBus()
	}
	if KindOf(err) == NotSupported {
		if p, ok := c.p.(i2c.Pins); ok {
			err = RecoverPins(p.SCL(), p.SDA(), c.Config().Speed)
		}
	}
	if err != nil {
		if KindOf(err) == NotSupported {
			return err
		}
		c.log.WithError(err).Error("i2c: bus recovery failed")
		if KindOf(err) != 0 {
			return err
		}
		return &Error{Kind: BusError, Msg: -1, Err: err}
	}
	if err := c.p.ClearStatus(); err != nil {
		return &Error{Kind: BusError, Msg: -1, Err: err}
	}
	c.mu.Lock()
	c.stats.Recoveries++
	c.mu.Unlock()
	c.log.Info("i2c: bus recovered")
	return nil
}

// Tx implements i2c.Bus.
//
// w is written then r is read with a repeated start in between. When both
// are empty, only the address is sent.
func (c *Controller) Tx(addr uint16, w, r []byte) error {
	msgs := make([]Msg, 0, 2)
	if len(w) != 0 || len(r) == 0 {
		msgs = append(msgs, Msg{Buf: w})
	}
	if len(r) != 0 {
		msgs = append(msgs, Msg{Buf: r, Flags: Read})
	}
	return c.Transfer(addr, msgs)
}

// SetSpeed implements i2c.Bus.
//
// Unlike Configure, any frequency up to the port's maximum is accepted.
func (c *Controller) SetSpeed(f physic.Frequency) error {
	if f <= 0 {
		return &Error{Kind: NotSupported, Msg: -1, Err: fmt.Errorf("speed %s", f)}
	}
	cfg := c.Config()
	cfg.Speed = f
	return c.apply(cfg)
}

// Duplex implements conn.Conn.
func (c *Controller) Duplex() conn.Duplex {
	return conn.Half
}

// Close waits for the in-flight transfer, then closes the port if it
// implements io.Closer. Further transfers fail.
func (c *Controller) Close() error {
	if err := c.acquire(); err != nil {
		return err
	}
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.release()
	if cl, ok := c.p.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

func (c *Controller) apply(cfg Config) error {
	if c.caps.MaxSpeed != 0 && cfg.Speed > c.caps.MaxSpeed {
		return &Error{Kind: NotSupported, Msg: -1, Err: fmt.Errorf("speed %s above %s", cfg.Speed, c.caps.MaxSpeed)}
	}
	if cfg.Addressing == Addr10Bit && !c.caps.Addr10 {
		return &Error{Kind: NotSupported, Msg: -1, Err: errNo10Bit}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()
	if err := c.p.SetSpeed(cfg.Speed); err != nil {
		return &Error{Kind: NotSupported, Msg: -1, Err: err}
	}
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
	return nil
}

// submit validates, takes the bus and starts the engine. The returned gate
// resolves once the bus is released.
func (c *Controller) submit(addr uint16, msgs []Msg, timeout time.Duration, cb func(error)) (*gate, error) {
	cfg := c.Config()
	if err := validate(addr, msgs, cfg.Addressing, c.caps); err != nil {
		c.mu.Lock()
		c.stats.Rejected++
		c.mu.Unlock()
		return nil, err
	}
	if timeout <= 0 {
		timeout = cfg.Timeout
	}
	if err := c.acquire(); err != nil {
		return nil, err
	}
	ten := cfg.Addressing == Addr10Bit || msgs[0].Flags&Addr10 != 0
	g := newGate()
	x := newXfer(addr, msgs, ten, func(err error) {
		if !g.claim() {
			return
		}
		c.record(err)
		g.resolve(err)
		c.release()
		if cb != nil {
			cb(err)
		}
	})
	c.mu.Lock()
	c.stats.Transfers++
	c.mu.Unlock()
	c.eng.run(x)
	go c.watch(x, g, timeout)
	return g, nil
}

// watch forces x to terminate if it doesn't within timeout.
func (c *Controller) watch(x *xfer, g *gate, timeout time.Duration) {
	if g.wait(timeout) {
		return
	}
	if c.eng.abort(x) {
		x.done(x.result())
	}
}

func (c *Controller) record(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch KindOf(err) {
	case 0:
		c.stats.Completed++
	case NoAcknowledge:
		c.stats.NoAck++
	case ArbitrationLost:
		c.stats.ArbLost++
	case BusError:
		c.stats.BusErrors++
	case Timeout:
		c.stats.Timeouts++
	}
}

func (c *Controller) acquire() error {
	c.lock <- struct{}{}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		<-c.lock
		return &Error{Kind: BusError, Msg: -1, Err: errClosed}
	}
	return nil
}

func (c *Controller) release() {
	<-c.lock
}

var _ i2c.BusCloser = &Controller{}
