// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package controller

import (
	"errors"
	"reflect"
	"testing"

	"periph.io/x/periph/conn/physic"
)

func TestValidate(t *testing.T) {
	c7 := Caps{MaxSpeed: physic.MegaHertz}
	c10 := Caps{Addr10: true, MaxSpeed: physic.MegaHertz}
	data := []struct {
		name string
		addr uint16
		msgs []Msg
		mode AddrMode
		caps Caps
		kind Kind
		msg  int
	}{
		{"ok", 0x50, []Msg{W(0), R(2)}, Addr7Bit, c7, 0, 0},
		{"quick", 0x50, []Msg{W()}, Addr7Bit, c7, 0, 0},
		{"restart first", 0x50, []Msg{{Buf: []byte{1}, Flags: Restart}}, Addr7Bit, c7, 0, 0},
		{"no msg", 0x50, nil, Addr7Bit, c7, InvalidMessage, -1},
		{"empty read", 0x50, []Msg{W(0), {Flags: Read}}, Addr7Bit, c7, InvalidMessage, 1},
		{"7-bit range", 0x80, []Msg{W(0)}, Addr7Bit, c7, InvalidMessage, -1},
		{"mixed", 0x50, []Msg{W(0), {Buf: make([]byte, 1), Flags: Read | Addr10}}, Addr7Bit, c10, InvalidMessage, 1},
		{"10-bit flag", 0x2A5, []Msg{{Buf: []byte{1}, Flags: Addr10}}, Addr7Bit, c10, 0, 0},
		{"10-bit mode", 0x2A5, []Msg{W(1)}, Addr10Bit, c10, 0, 0},
		{"10-bit unsupported", 0x2A5, []Msg{{Buf: []byte{1}, Flags: Addr10}}, Addr7Bit, c7, NotSupported, -1},
		{"10-bit mode unsupported", 0x50, []Msg{W(1)}, Addr10Bit, c7, NotSupported, -1},
		{"10-bit range", 0x400, []Msg{W(1)}, Addr10Bit, c10, InvalidMessage, -1},
	}
	for _, line := range data {
		err := validate(line.addr, line.msgs, line.mode, line.caps)
		if line.kind == 0 {
			if err != nil {
				t.Fatalf("%s: %v", line.name, err)
			}
			continue
		}
		var e *Error
		if !errors.As(err, &e) {
			t.Fatalf("%s: %v", line.name, err)
		}
		if e.Kind != line.kind || e.Msg != line.msg {
			t.Fatalf("%s: %s msg %d", line.name, e.Kind, e.Msg)
		}
	}
}

func TestMergesNext(t *testing.T) {
	data := []struct {
		msgs []Msg
		want bool
	}{
		{[]Msg{W(1)}, false},
		{[]Msg{W(1), W(2)}, true},
		{[]Msg{R(1), R(2)}, true},
		{[]Msg{W(1), R(2)}, false},
		{[]Msg{{Buf: []byte{1}, Flags: Stop}, W(2)}, false},
		{[]Msg{W(1), {Buf: []byte{2}, Flags: Restart}}, false},
		{[]Msg{W(1), {Buf: []byte{2}, Flags: Stop}}, true},
	}
	for i, line := range data {
		if got := mergesNext(line.msgs, 0); got != line.want {
			t.Fatalf("#%d: %t", i, got)
		}
	}
}

func TestAddrSteps(t *testing.T) {
	data := []struct {
		addr uint16
		ten  bool
		read bool
		want []int
	}{
		{0x50, false, false, []int{0xA0}},
		{0x50, false, true, []int{0xA1}},
		{0x2A5, true, false, []int{0xF4, 0xA5}},
		{0x2A5, true, true, []int{0xF4, 0xA5, stepRestart, 0xF5}},
		{0x3FF, true, false, []int{0xF6, 0xFF}},
	}
	for i, line := range data {
		if got := addrSteps(line.addr, line.ten, line.read); !reflect.DeepEqual(got, line.want) {
			t.Fatalf("#%d: %#v != %#v", i, got, line.want)
		}
	}
}

func TestFlags_String(t *testing.T) {
	if s := (Read | Stop | Restart | Addr10).String(); s != "Read|Stop|Restart|Addr10" {
		t.Fatal(s)
	}
	if s := Flags(0).String(); s != "Write" {
		t.Fatal(s)
	}
}

func TestMsg(t *testing.T) {
	m := R(3)
	if !m.IsRead() || m.Len() != 3 {
		t.Fatal(m)
	}
	if m = W(1, 2); m.IsRead() || m.Len() != 2 {
		t.Fatal(m)
	}
	if Addr10Bit.String() != "10-bit" || Addr7Bit.String() != "7-bit" {
		t.Fatal("AddrMode")
	}
}
