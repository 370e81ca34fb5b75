// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package controller

import (
	"errors"
	"fmt"
)

// Kind classifies a transfer failure.
type Kind uint8

const (
	// NoAcknowledge means the target rejected the address or a data byte.
	NoAcknowledge Kind = iota + 1
	// ArbitrationLost means another controller won the bus. It is retryable.
	ArbitrationLost
	// BusError means the port observed a malformed sequence or failed I/O.
	BusError
	// Timeout means the transfer didn't complete in time.
	Timeout
	// NotSupported means the port can't do what was asked.
	NotSupported
	// InvalidMessage means the request was rejected before touching the bus.
	InvalidMessage
)

func (k Kind) String() string {
	switch k {
	case NoAcknowledge:
		return "no acknowledge"
	case ArbitrationLost:
		return "arbitration lost"
	case BusError:
		return "bus error"
	case Timeout:
		return "timeout"
	case NotSupported:
		return "not supported"
	case InvalidMessage:
		return "invalid message"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Sentinels to use with errors.Is.
var (
	ErrNoAcknowledge   = &Error{Kind: NoAcknowledge, Msg: -1}
	ErrArbitrationLost = &Error{Kind: ArbitrationLost, Msg: -1}
	ErrBusError        = &Error{Kind: BusError, Msg: -1}
	ErrTimeout         = &Error{Kind: Timeout, Msg: -1}
	ErrNotSupported    = &Error{Kind: NotSupported, Msg: -1}
	ErrInvalidMessage  = &Error{Kind: InvalidMessage, Msg: -1}
)

var (
	errNoMsgs    = errors.New("no message")
	errEmptyRead = errors.New("zero length read")
	errMixedAddr = errors.New("messages disagree on 10-bit addressing")
	errNo10Bit   = errors.New("10-bit addressing unavailable")
	errAddrRange = errors.New("address out of range")
	errClosed    = errors.New("controller closed")
)

// Error is the error returned by every Controller operation.
type Error struct {
	Kind Kind
	// Msg is the index of the message being processed, -1 when the failure is
	// not tied to a message.
	Msg int
	// Offset is the byte offset in Msg when the failure happened.
	Offset int
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	s := "i2c: " + e.Kind.String()
	if e.Msg >= 0 {
		s += fmt.Sprintf(" at msg %d byte %d", e.Msg, e.Offset)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is returns true when target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// IsRetryable returns true if the transfer may succeed when retried as is.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrArbitrationLost)
}

// KindOf returns the Kind of err, 0 when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
