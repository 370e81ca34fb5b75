// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// i2c-xfer runs one multi-message transfer on an I²C bus.
//
// Each argument is a message: "w<hex>" writes the bytes, "r<n>" reads n
// bytes. A leading '^' forces a repeated start before the message and a
// trailing '!' sends a stop after it.
//
//  i2c-xfer -sim -a 0x50 w00 r4
package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"periph.io/x/i2cctl/controller"
	"periph.io/x/i2cctl/devices/tracescreen"
	"periph.io/x/i2cctl/hostextra"
	"periph.io/x/i2cctl/sim"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/conn/physic"
)

// parseMsg parses one message argument.
func parseMsg(s string, ten bool) (controller.Msg, error) {
	m := controller.Msg{}
	if ten {
		m.Flags |= controller.Addr10
	}
	arg := s
	if strings.HasPrefix(s, "^") {
		m.Flags |= controller.Restart
		s = s[1:]
	}
	if strings.HasSuffix(s, "!") {
		m.Flags |= controller.Stop
		s = s[:len(s)-1]
	}
	if len(s) == 0 {
		return m, fmt.Errorf("invalid message %q", arg)
	}
	switch s[0] {
	case 'w', 'W':
		b, err := hex.DecodeString(s[1:])
		if err != nil {
			return m, fmt.Errorf("invalid message %q: %v", arg, err)
		}
		m.Buf = b
	case 'r', 'R':
		n, err := strconv.Atoi(s[1:])
		if err != nil || n <= 0 {
			return m, fmt.Errorf("invalid message %q: need a positive length", arg)
		}
		m.Buf = make([]byte, n)
		m.Flags |= controller.Read
	default:
		return m, fmt.Errorf("invalid message %q: must start with w or r", arg)
	}
	return m, nil
}

func parseMsgs(args []string, ten bool) ([]controller.Msg, error) {
	if len(args) == 0 {
		return nil, errors.New("specify at least one message, try -help")
	}
	msgs := make([]controller.Msg, 0, len(args))
	for _, a := range args {
		m, err := parseMsg(a, ten)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// parseAddr checks that a fits in a 10-bit address.
func parseAddr(a uint) (uint16, error) {
	if a > 0x3FF {
		return 0, fmt.Errorf("invalid address %#x", a)
	}
	return uint16(a), nil
}

// printMsgs prints the content of the read messages.
func printMsgs(msgs []controller.Msg) {
	for i := range msgs {
		if msgs[i].IsRead() {
			fmt.Printf("msg %d: %s\n", i, hex.EncodeToString(msgs[i].Buf))
		}
	}
}

// openSim returns a controller on a simulated bus with a 24C02 at 0x50.
func openSim(trace bool) (*controller.Controller, error) {
	b := sim.New(&sim.Opts{Name: "sim"})
	b.Connect(sim.NewMemory(0x50, 256, 8))
	var p controller.Port = b
	if trace {
		d := tracescreen.New()
		p = &controller.Tap{Port: b, OnOp: d.Print}
	}
	return controller.New(p, nil)
}

func openBus(name string) (*controller.Controller, error) {
	if _, err := hostextra.Init(); err != nil {
		return nil, err
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, err
	}
	c, ok := bus.(*controller.Controller)
	if !ok {
		bus.Close()
		return nil, fmt.Errorf("bus %q is not a multi-message controller", name)
	}
	return c, nil
}

func mainImpl() error {
	name := flag.String("b", "", "I²C bus to use")
	useSim := flag.Bool("sim", false, "use a simulated bus with a 24C02 at 0x50")
	addr := flag.Uint("a", 0, "target address")
	hz := flag.Int("hz", 0, "bus speed in Hz")
	ten := flag.Bool("10", false, "use 10-bit addressing")
	timeout := flag.Duration("t", 0, "transfer timeout")
	trace := flag.Bool("trace", false, "print the bus primitives, only with -sim")
	recov := flag.Bool("recover", false, "recover the bus before the transfer")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if !*verbose {
		log.SetOutput(ioutil.Discard)
		logrus.SetOutput(ioutil.Discard)
	} else {
		logrus.SetLevel(logrus.DebugLevel)
	}
	log.SetFlags(log.Lmicroseconds)
	if *trace && !*useSim {
		return errors.New("-trace requires -sim")
	}
	if *trace && !isatty.IsTerminal(os.Stdout.Fd()) {
		log.Printf("stdout is not a terminal, -trace ignored")
		*trace = false
	}
	a, err := parseAddr(*addr)
	if err != nil {
		return err
	}
	msgs, err := parseMsgs(flag.Args(), *ten)
	if err != nil {
		return err
	}

	var c *controller.Controller
	if *useSim {
		c, err = openSim(*trace)
	} else {
		c, err = openBus(*name)
	}
	if err != nil {
		return err
	}
	defer c.Close()

	if *ten {
		cfg := c.Config()
		cfg.Addressing = controller.Addr10Bit
		if err := c.Configure(cfg); err != nil {
			return err
		}
	}
	if *hz != 0 {
		if err := c.SetSpeed(physic.Frequency(*hz) * physic.Hertz); err != nil {
			return err
		}
	}
	if *recov {
		if err := c.RecoverBus(); err != nil {
			return err
		}
	}
	if *timeout != 0 {
		err = c.TransferTimeout(a, msgs, *timeout)
	} else {
		err = c.Transfer(a, msgs)
	}
	if err != nil {
		return err
	}
	printMsgs(msgs)
	if *verbose {
		log.Printf("%s: %+v", c, c.Stats())
	}
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "i2c-xfer: %s.\n", err)
		os.Exit(1)
	}
}
