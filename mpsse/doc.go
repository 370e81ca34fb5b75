// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mpsse implements a controller.Port on top of the Multi-Protocol
// Synchronous Serial Engine found in FTDI FT232H, FT2232H and FT4232H.
//
// The MPSSE is driven with a byte stream of commands over a Handle, usually a
// USB bulk pipe as provided by package ftdiusb.
//
// MPSSE basics:
// http://www.ftdichip.com/Support/Documents/AppNotes/AN_135_MPSSE_Basics.pdf
//
// Interfacing I²C:
// http://www.ftdichip.com/Support/Documents/AppNotes/AN_113_FTDI_Hi_Speed_USB_To_I2C_Example.pdf
//
// Wiring on the D bus: D0 is SCL, D1 and D2 are both tied to SDA. The MPSSE
// does not support clock stretching and cannot detect arbitration loss.
package mpsse // import "periph.io/x/i2cctl/mpsse"
