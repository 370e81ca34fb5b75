// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// i2c-scan probes every 7-bit address of an I²C bus with a quick command and
// prints the addresses that acknowledged.
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"periph.io/x/i2cctl/controller"
	"periph.io/x/i2cctl/hostextra"
	"periph.io/x/i2cctl/sim"
	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
)

// Reserved addresses are not probed.
const (
	first = 0x08
	last  = 0x77
)

// scan returns the addresses that acknowledged a quick command.
//
// Any other error stops the scan.
func scan(b i2c.Bus) ([]uint16, error) {
	var found []uint16
	for a := uint16(first); a <= last; a++ {
		err := b.Tx(a, nil, nil)
		if err == nil {
			found = append(found, a)
			continue
		}
		if controller.KindOf(err) != controller.NoAcknowledge {
			return found, fmt.Errorf("0x%02x: %v", a, err)
		}
	}
	return found, nil
}

// grid writes the result in the same layout as i2cdetect.
func grid(w io.Writer, found []uint16) error {
	m := map[uint16]bool{}
	for _, a := range found {
		m[a] = true
	}
	var buf bytes.Buffer
	buf.WriteString("    ")
	for i := 0; i < 16; i++ {
		fmt.Fprintf(&buf, " %x ", i)
	}
	buf.WriteString("\n")
	for row := uint16(0); row < 0x80; row += 16 {
		fmt.Fprintf(&buf, "%02x:", row)
		for a := row; a < row+16; a++ {
			switch {
			case a < first || a > last:
				buf.WriteString("   ")
			case m[a]:
				fmt.Fprintf(&buf, " %02x", a)
			default:
				buf.WriteString(" --")
			}
		}
		buf.WriteString("\n")
	}
	_, err := buf.WriteTo(w)
	return err
}

func mainImpl() error {
	name := flag.String("b", "", "I²C bus to use")
	useSim := flag.Bool("sim", false, "use a simulated bus with a 24C02 at 0x50")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if !*verbose {
		log.SetOutput(ioutil.Discard)
		logrus.SetOutput(ioutil.Discard)
	} else {
		logrus.SetLevel(logrus.DebugLevel)
	}
	log.SetFlags(log.Lmicroseconds)
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}

	var b i2c.BusCloser
	if *useSim {
		s := sim.New(&sim.Opts{Name: "sim"})
		s.Connect(sim.NewMemory(0x50, 256, 8))
		c, err := controller.New(s, nil)
		if err != nil {
			return err
		}
		b = c
	} else {
		if _, err := hostextra.Init(); err != nil {
			return err
		}
		var err error
		if b, err = i2creg.Open(*name); err != nil {
			return err
		}
	}
	defer b.Close()
	log.Printf("scanning %s", b)
	found, err := scan(b)
	if err2 := grid(os.Stdout, found); err == nil {
		err = err2
	}
	return err
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "i2c-scan: %s.\n", err)
		os.Exit(1)
	}
}
