// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hostextra

import (
	_ "periph.io/x/i2cctl/hostextra/ftdiusb"
	"periph.io/x/periph"
	"periph.io/x/periph/host"
)

// Init calls host.Init(), which calls periph.Init() and returns it as-is.
//
// On top of the drivers in periph.io/x/periph/host, the I²C controllers
// found on USB are registered in i2creg.
func Init() (*periph.State, error) {
	return host.Init()
}
