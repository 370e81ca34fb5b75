// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ftdiusb

import (
	"fmt"
	"io"
	"sync"

	"github.com/google/gousb"
)

// USB identifiers of the FT232H.
const (
	vendorFTDI    = 0x0403
	productFT232H = 0x6014
)

// FTDI vendor requests.
const (
	reqTypeOut    = 0x40
	reqReset      = 0x00
	reqLatency    = 0x09
	reqSetBitMode = 0x0B

	resetSIO     = 0
	resetPurgeRX = 1
	resetPurgeTX = 2

	bitModeReset = 0x00
	bitModeMpsse = 0x02

	// Interface A.
	indexA = 1

	// Every bulk in packet starts with two modem status bytes.
	statusLen = 2
)

// Dev is an open FT232H. It implements mpsse.Handle.
type Dev struct {
	name string
	ctl  func(req uint8, val uint16) error
	in   io.Reader
	out  io.Writer
	pkt  int
	done func()
	c    io.Closer

	mu  sync.Mutex
	buf []byte // raw bulk in
	rx  []byte // stripped bytes not consumed yet
}

func (d *Dev) String() string {
	return d.name
}

// Close releases the USB device. Calling it again is a no-op.
func (d *Dev) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done != nil {
		d.done()
		d.done = nil
	}
	if d.c != nil {
		c := d.c
		d.c = nil
		return c.Close()
	}
	return nil
}

// Write implements mpsse.Handle.
func (d *Dev) Write(b []byte) (int, error) {
	return d.out.Write(b)
}

// Read implements mpsse.Handle.
//
// The modem status bytes are removed.
func (d *Dev) Read(b []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.rx) == 0 {
		n, err := d.in.Read(d.buf)
		if err != nil {
			return 0, err
		}
		d.rx = strip(d.rx[:0], d.buf[:n], d.pkt)
	}
	n := copy(b, d.rx)
	d.rx = d.rx[n:]
	return n, nil
}

// setup resets the chip and switches it to MPSSE mode.
func (d *Dev) setup() error {
	steps := []struct {
		req uint8
		val uint16
	}{
		{reqReset, resetSIO},
		{reqReset, resetPurgeRX},
		{reqReset, resetPurgeTX},
		{reqLatency, 1},
		{reqSetBitMode, bitModeReset << 8},
		{reqSetBitMode, bitModeMpsse << 8},
	}
	for _, s := range steps {
		if err := d.ctl(s.req, s.val); err != nil {
			return fmt.Errorf("ftdiusb: control %#x %#x: %v", s.req, s.val, err)
		}
	}
	return nil
}

// strip appends to dst the payload of the packets in src.
func strip(dst, src []byte, pkt int) []byte {
	for len(src) != 0 {
		n := pkt
		if n > len(src) {
			n = len(src)
		}
		if n > statusLen {
			dst = append(dst, src[statusLen:n]...)
		}
		src = src[n:]
	}
	return dst
}

// open claims the default interface of an FT232H and sets it up. d is not
// closed on failure.
func open(d *gousb.Device, name string) (*Dev, error) {
	if err := d.SetAutoDetach(true); err != nil {
		return nil, err
	}
	i, done, err := d.DefaultInterface()
	if err != nil {
		return nil, err
	}
	in, err := i.InEndpoint(1)
	if err != nil {
		done()
		return nil, err
	}
	out, err := i.OutEndpoint(2)
	if err != nil {
		done()
		return nil, err
	}
	pkt := in.Desc.MaxPacketSize
	if pkt <= statusLen {
		pkt = 512
	}
	dev := &Dev{
		name: name,
		ctl: func(req uint8, val uint16) error {
			_, err := d.Control(reqTypeOut, req, val, indexA, nil)
			return err
		},
		in:   in,
		out:  out,
		pkt:  pkt,
		done: done,
		c:    d,
		buf:  make([]byte, 8*pkt),
	}
	if err := dev.setup(); err != nil {
		done()
		return nil, err
	}
	return dev, nil
}
