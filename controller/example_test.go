// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package controller_test

import (
	"fmt"
	"log"

	"periph.io/x/i2cctl/controller"
	"periph.io/x/i2cctl/sim"
)

func Example() {
	// A simulated bus with an EEPROM at 0x50.
	b := sim.New(nil)
	b.Connect(sim.NewMemory(0x50, 256, 8))
	c, err := controller.New(b, &controller.Opts{Config: controller.Config{Speed: controller.Fast}})
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	// Set the address pointer then read 4 bytes, with a repeated start in
	// between.
	rd := controller.R(4)
	if err := c.Transfer(0x50, []controller.Msg{controller.W(0x00), rd}); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%#x\n", rd.Buf)
	// Output: 0xffffffff
}

func ExampleController_TransferAsync() {
	b := sim.New(nil)
	b.Connect(sim.NewMemory(0x50, 256, 8))
	c, err := controller.New(b, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	done := make(chan error, 1)
	msgs := []controller.Msg{controller.W(0x10, 0x12, 0x34)}
	if err := c.TransferAsync(0x50, msgs, func(err error) { done <- err }); err != nil {
		log.Fatal(err)
	}
	fmt.Println(<-done)
	// Output: <nil>
}
