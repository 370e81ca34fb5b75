// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package controller

import "strings"

// Flags modifies how a Msg is put on the bus.
type Flags uint8

const (
	// Read makes the message a read. The zero value is a write.
	Read Flags = 1 << iota
	// Stop releases the bus after this message, even if more messages follow.
	Stop
	// Restart forces a repeated start before this message even when the
	// direction doesn't change.
	Restart
	// Addr10 uses 10-bit addressing for this message.
	Addr10
)

func (f Flags) String() string {
	var out []string
	if f&Read != 0 {
		out = append(out, "Read")
	} else {
		out = append(out, "Write")
	}
	if f&Stop != 0 {
		out = append(out, "Stop")
	}
	if f&Restart != 0 {
		out = append(out, "Restart")
	}
	if f&Addr10 != 0 {
		out = append(out, "Addr10")
	}
	return strings.Join(out, "|")
}

// Msg is one message of a transfer.
//
// Buf is borrowed by the engine for the duration of the transfer. For a read,
// it is filled in place. A write with an empty Buf is a quick command: only
// the address is sent.
type Msg struct {
	Buf   []byte
	Flags Flags
}

// IsRead returns true if the message reads from the target.
func (m *Msg) IsRead() bool {
	return m.Flags&Read != 0
}

// Len returns the number of data bytes of the message.
func (m *Msg) Len() int {
	return len(m.Buf)
}

// W returns a write message.
func W(b ...byte) Msg {
	return Msg{Buf: b}
}

// R returns a read message of n bytes.
func R(n int) Msg {
	return Msg{Buf: make([]byte, n), Flags: Read}
}

// AddrMode is the addressing mode configured on a Controller.
type AddrMode uint8

const (
	// Addr7Bit is the default 7-bit addressing.
	Addr7Bit AddrMode = iota
	// Addr10Bit uses 10-bit addressing for every message.
	Addr10Bit
)

func (a AddrMode) String() string {
	if a == Addr10Bit {
		return "10-bit"
	}
	return "7-bit"
}

// validate checks a transfer before anything is put on the bus.
func validate(addr uint16, msgs []Msg, mode AddrMode, caps Caps) error {
	if len(msgs) == 0 {
		return &Error{Kind: InvalidMessage, Msg: -1, Err: errNoMsgs}
	}
	ten := mode == Addr10Bit || msgs[0].Flags&Addr10 != 0
	for i := range msgs {
		m := &msgs[i]
		if m.IsRead() && len(m.Buf) == 0 {
			return &Error{Kind: InvalidMessage, Msg: i, Err: errEmptyRead}
		}
		if mode == Addr7Bit && (m.Flags&Addr10 != 0) != ten {
			return &Error{Kind: InvalidMessage, Msg: i, Err: errMixedAddr}
		}
	}
	if ten {
		if !caps.Addr10 {
			return &Error{Kind: NotSupported, Msg: -1, Err: errNo10Bit}
		}
		if addr > 0x3FF {
			return &Error{Kind: InvalidMessage, Msg: -1, Err: errAddrRange}
		}
		return nil
	}
	if addr > 0x7F {
		return &Error{Kind: InvalidMessage, Msg: -1, Err: errAddrRange}
	}
	return nil
}

// mergesNext returns true when msgs[i+1] continues msgs[i] without any start
// or stop condition in between.
func mergesNext(msgs []Msg, i int) bool {
	if i+1 >= len(msgs) {
		return false
	}
	cur, next := &msgs[i], &msgs[i+1]
	return cur.Flags&Stop == 0 && cur.IsRead() == next.IsRead() && next.Flags&Restart == 0
}
