// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"periph.io/x/i2cctl/controller"
	"periph.io/x/i2cctl/sim"
	"periph.io/x/periph/conn/physic"
)

func TestScan(t *testing.T) {
	s := sim.New(nil)
	s.Connect(sim.NewMemory(0x20, 16, 0))
	s.Connect(sim.NewMemory(0x50, 16, 0))
	c, err := controller.New(s, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	found, err := scan(c)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(found, []uint16{0x20, 0x50}) {
		t.Fatal(found)
	}
}

type brokenBus struct{}

func (brokenBus) String() string                    { return "broken" }
func (brokenBus) Tx(addr uint16, w, r []byte) error { return errors.New("broken: unplugged") }
func (brokenBus) SetSpeed(f physic.Frequency) error { return nil }

func TestScan_err(t *testing.T) {
	if _, err := scan(brokenBus{}); err == nil || !strings.HasPrefix(err.Error(), "0x08: ") {
		t.Fatal(err)
	}
}

func TestGrid(t *testing.T) {
	var b bytes.Buffer
	if err := grid(&b, []uint16{0x08, 0x50, 0x77}); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(b.String(), "\n")
	if len(lines) != 10 || lines[9] != "" {
		t.Fatalf("%q", b.String())
	}
	if lines[0] != "     0  1  2  3  4  5  6  7  8  9  a  b  c  d  e  f " {
		t.Fatalf("%q", lines[0])
	}
	if lines[1] != "00:                         08 -- -- -- -- -- -- --" {
		t.Fatalf("%q", lines[1])
	}
	if lines[6] != "50: 50 -- -- -- -- -- -- -- -- -- -- -- -- -- -- --" {
		t.Fatalf("%q", lines[6])
	}
	if lines[8] != "70: -- -- -- -- -- -- -- 77                        " {
		t.Fatalf("%q", lines[8])
	}
}
