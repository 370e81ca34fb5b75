// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package tracescreen prints the bus primitives recorded by a controller.Tap
// to the terminal using ANSI color codes.
//
// Each transaction is printed on its own line, the line ends with the STOP.
package tracescreen // import "periph.io/x/i2cctl/devices/tracescreen"

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"sync"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/i2cctl/controller"
)

// Dev prints controller.Op to a terminal.
type Dev struct {
	mu  sync.Mutex
	w   io.Writer
	buf bytes.Buffer
	err error
}

// New returns a Dev that prints to stdout.
func New() *Dev {
	return NewWriter(colorable.NewColorableStdout())
}

// NewWriter returns a Dev that prints to w.
func NewWriter(w io.Writer) *Dev {
	return &Dev{w: w}
}

func (d *Dev) String() string {
	return "TraceScreen"
}

// Print prints one Op. It is meant to be used as controller.Tap.OnOp.
//
// Write errors are kept and returned by Halt.
func (d *Dev) Print(o controller.Op) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buf.Reset()
	_, _ = d.buf.WriteString(ansi256.Default.Block(colorOf(o)))
	_, _ = d.buf.WriteString("\033[0m")
	_, _ = d.buf.WriteString(o.String())
	if o.Kind == controller.OpStop {
		_ = d.buf.WriteByte('\n')
	} else {
		_ = d.buf.WriteByte(' ')
	}
	if _, err := d.buf.WriteTo(d.w); err != nil && d.err == nil {
		d.err = err
	}
}

// Halt implements conn.Resource.
//
// It resets the terminal colors.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := io.WriteString(d.w, "\033[0m"); err != nil {
		return err
	}
	err := d.err
	d.err = nil
	return err
}

//

var (
	green  = color.NRGBA{0, 192, 0, 255}
	yellow = color.NRGBA{224, 192, 0, 255}
	blue   = color.NRGBA{0, 96, 255, 255}
	cyan   = color.NRGBA{0, 192, 192, 255}
	red    = color.NRGBA{224, 0, 0, 255}
	orange = color.NRGBA{255, 128, 0, 255}
	grey   = color.NRGBA{128, 128, 128, 255}
)

func colorOf(o controller.Op) color.NRGBA {
	switch o.Kind {
	case controller.OpStart:
		return green
	case controller.OpRepeatedStart:
		return yellow
	case controller.OpWrite:
		return blue
	case controller.OpRead:
		return cyan
	case controller.OpSetAck:
		if o.Ack {
			return green
		}
		return orange
	case controller.OpStop:
		return red
	default:
		return grey
	}
}

var _ fmt.Stringer = &Dev{}
