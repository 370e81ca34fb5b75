// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package i2cctl is for documentation only.
//
// It drives I²C controllers that work one bus primitive at a time (start,
// byte, stop) and exposes them as multi-message transfers.
//
// Packages
//
// controller contains the transfer engine and the Port interface a hardware
// controller implements. sim is an in-memory bus with simulated targets.
// mpsse implements Port on the FTDI MPSSE engine and hostextra/ftdiusb
// registers every FT232H found through libusb in i2creg.
//
// Tools
//
//  go install periph.io/x/i2cctl/cmd/...
//  i2c-scan -sim
//  i2c-xfer -sim -a 0x50 w00 r4
//
// libusb
//
// hostextra/ftdiusb uses cgo via github.com/google/gousb. On Debian, run:
//
//  sudo apt install pkg-config libusb-1.0-0-dev
package i2cctl
