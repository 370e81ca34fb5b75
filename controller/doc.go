// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package controller implements the I²C controller (master) multi-message
// transfer engine shared by every hardware port.
//
// A Port is the per-chip register glue: it knows how to issue a start, clock a
// byte, arm the ACK bit and so on. It reports what the hardware observed as
// Events, from its interrupt context. The engine consumes those events, decides
// what the bus must do next and drives the Port accordingly, one message at a
// time, merging consecutive messages when the I²C protocol allows it.
//
// Controller wraps the engine with a FIFO bus lock and a completion gate, so a
// blocking caller waits for the interrupt driven state machine to finish. It
// implements periph's i2c.Bus so it can be registered in i2creg and used by
// any periph device driver.
//
// Messages
//
// A transfer is a list of Msg, all sent to the same target address. At each
// message boundary the engine picks one of:
//
//  - stop, when it was the last message;
//  - stop then start, when the message has the Stop flag;
//  - nothing at all (merge), when the next message goes in the same direction
//    and doesn't have the Restart flag;
//  - repeated start, otherwise.
//
// Errors
//
// Every failure is returned as a *Error. Use errors.Is with ErrNoAcknowledge,
// ErrArbitrationLost, ErrBusError, ErrTimeout, ErrNotSupported or
// ErrInvalidMessage to test the kind. The bus is always released before the
// error is returned.
package controller // import "periph.io/x/i2cctl/controller"
