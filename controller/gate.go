// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package controller

import (
	"sync/atomic"
	"time"
)

// gate is a single slot completion signal. It can be signalled from any
// goroutine, at most once.
type gate struct {
	state int32
	err   error
	done  chan struct{}
}

func newGate() *gate {
	return &gate{done: make(chan struct{})}
}

// claim reserves the gate for the caller, which must then call resolve. It
// returns false if the gate was already claimed.
func (g *gate) claim() bool {
	return atomic.CompareAndSwapInt32(&g.state, 0, 1)
}

func (g *gate) resolve(err error) {
	g.err = err
	close(g.done)
}

// wait returns true if the gate resolved within d.
func (g *gate) wait(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-g.done:
		return true
	case <-t.C:
		return false
	}
}

// result blocks until the gate resolves and returns its error.
func (g *gate) result() error {
	<-g.done
	return g.err
}
