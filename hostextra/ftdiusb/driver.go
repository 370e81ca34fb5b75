// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ftdiusb

import (
	"fmt"
	"sync"

	"github.com/google/gousb"
	"github.com/sirupsen/logrus"
	"periph.io/x/i2cctl/controller"
	"periph.io/x/i2cctl/mpsse"
	"periph.io/x/periph"
	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
)

// All returns the I²C controllers of the FT232H found at initialization.
func All() []*controller.Controller {
	mu.Lock()
	defer mu.Unlock()
	out := make([]*controller.Controller, len(all))
	copy(out, all)
	return out
}

//

var (
	mu  sync.Mutex
	all []*controller.Controller
	// ctx is kept open as long as devices are in use.
	ctx *gousb.Context
)

// register wraps an open device into a controller and registers it.
//
// Must be called with mu held.
func register(h *Dev) error {
	p, err := mpsse.New(h, h.String())
	if err != nil {
		return err
	}
	c, err := controller.New(p, &controller.Opts{Name: h.String()})
	if err != nil {
		p.Close()
		return err
	}
	opener := func() (i2c.BusCloser, error) {
		return c, nil
	}
	if err := i2creg.Register(c.String(), nil, -1, opener); err != nil {
		c.Close()
		return err
	}
	all = append(all, c)
	return nil
}

// driver implements periph.Driver.
type driver struct {
}

func (d *driver) String() string {
	return "ftdiusb"
}

func (d *driver) Prerequisites() []string {
	return nil
}

func (d *driver) After() []string {
	return nil
}

func (d *driver) Init() (bool, error) {
	mu.Lock()
	defer mu.Unlock()
	ctx = gousb.NewContext()
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == vendorFTDI && desc.Product == productFT232H
	})
	// Keep going with the devices that could be opened; err is returned at
	// the end.
	if len(devs) == 0 {
		ctx.Close()
		ctx = nil
		return false, err
	}
	for i, ud := range devs {
		name := fmt.Sprintf("ft232h(%d)", i)
		h, err1 := open(ud, name)
		if err1 != nil {
			logrus.WithError(err1).WithField("bus", name).Warn("ftdiusb: open failed")
			ud.Close()
			err = err1
			continue
		}
		if err1 := register(h); err1 != nil {
			logrus.WithError(err1).WithField("bus", name).Warn("ftdiusb: setup failed")
			h.Close()
			err = err1
		}
	}
	return true, err
}

func init() {
	periph.MustRegister(&driver{})
}

var _ periph.Driver = &driver{}
