// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ftdiusb exposes the FT232H I²C controller through libusb.
//
// At host.Init(), every FT232H found on the USB buses is switched to MPSSE
// mode and registered in i2creg as "ft232h(N)". No vendor driver is needed,
// only libusb.
//
// Debian
//
// This includes Raspbian and Ubuntu.
//
// Run this command after connecting your FTDI device to temporarily disable
// linux's native driver:
//  sudo modprobe -r ftdi_sio usbserial
//
// The user must have write access to the USB device, for example via an udev
// rule matching idVendor 0403 and idProduct 6014.
package ftdiusb // import "periph.io/x/i2cctl/hostextra/ftdiusb"
