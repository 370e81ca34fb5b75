// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sim

import "sync"

// Memory is a 24Cxx style EEPROM with a one byte address pointer.
//
// A write transaction starts with the pointer, followed by data bytes that
// wrap around within the current page. A read transaction returns bytes from
// the pointer onward, wrapping around the whole memory.
type Memory struct {
	A        uint16
	PageSize int

	mu   sync.Mutex
	data []byte
	ptr  int
	set  bool // pointer was received in this transaction
}

// NewMemory returns a memory of size bytes at addr, filled with 0xFF.
func NewMemory(addr uint16, size, pageSize int) *Memory {
	m := &Memory{A: addr, PageSize: pageSize, data: make([]byte, size)}
	for i := range m.data {
		m.data[i] = 0xFF
	}
	return m
}

// Bytes returns a copy of the content.
func (m *Memory) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

// Load overwrites the content at off.
func (m *Memory) Load(off int, b []byte) {
	m.mu.Lock()
	copy(m.data[off:], b)
	m.mu.Unlock()
}

// Addr implements Target.
func (m *Memory) Addr() uint16 {
	return m.A
}

// Begin implements Target.
func (m *Memory) Begin(read bool) bool {
	m.mu.Lock()
	m.set = read
	m.mu.Unlock()
	return true
}

// Write implements Target.
func (m *Memory) Write(b byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		m.ptr = int(b) % len(m.data)
		m.set = true
		return true
	}
	m.data[m.ptr] = b
	if m.PageSize > 0 {
		base := m.ptr - m.ptr%m.PageSize
		m.ptr = base + (m.ptr+1-base)%m.PageSize
	} else {
		m.ptr = (m.ptr + 1) % len(m.data)
	}
	return true
}

// Read implements Target.
func (m *Memory) Read() byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.data[m.ptr]
	m.ptr = (m.ptr + 1) % len(m.data)
	return b
}

// End implements Target.
func (m *Memory) End() {
}

var _ Target = &Memory{}
