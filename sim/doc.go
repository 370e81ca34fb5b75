// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sim implements a simulated I²C controller port with targets
// attached to it.
//
// The simulated hardware answers every port call immediately and raises the
// matching event through a controller.IRQ, the way an interrupt driven
// peripheral would. Faults can be injected to exercise the error paths of the
// engine without hardware.
package sim // import "periph.io/x/i2cctl/sim"
