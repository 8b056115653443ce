/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package driver

import (
	"runtime/debug"

	"github.com/hyperledger-labs/stepharness/pkg/logging"
	"github.com/hyperledger-labs/stepharness/pkg/loop"
)

// Interceptor captures panics raised while a test is active, whether raised
// synchronously by a step (Guard) or by any other callback of the loop (the
// loop's error handler).  Captured panics are handed to the attribute
// function, which converts them into a failed outcome.  Panics which cannot
// be attributed go to the handler which was installed before the
// Interceptor, or crash the loop if there was none.
type Interceptor struct {
	loop      loop.Loop
	logger    logging.Logger
	attribute func(trace string) bool
	previous  loop.ErrorHandler
	installed bool
}

func newInterceptor(l loop.Loop, logger logging.Logger, attribute func(trace string) bool) *Interceptor {
	return &Interceptor{
		loop:      l,
		logger:    logger,
		attribute: attribute,
	}
}

// Install replaces the error handler of the loop, remembering the previous one.
func (i *Interceptor) Install() {
	if i.installed {
		return
	}
	i.previous = i.loop.SetErrorHandler(i.handle)
	i.installed = true
}

// Restore reinstates the error handler which was in place before Install.
func (i *Interceptor) Restore() {
	if !i.installed {
		return
	}
	i.loop.SetErrorHandler(i.previous)
	i.previous = nil
	i.installed = false
}

func (i *Interceptor) Installed() bool {
	return i.installed
}

// Guard invokes fn, recovering any panic.  If fn panicked, ok is false and
// trace holds the panic value and stack.
func (i *Interceptor) Guard(fn func()) (trace string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			trace = loop.FormatPanic(r, debug.Stack())
			ok = false
		}
	}()

	fn()
	return "", true
}

func (i *Interceptor) handle(recovered interface{}, stack []byte) {
	if i.attribute(loop.FormatPanic(recovered, stack)) {
		return
	}

	if i.previous != nil {
		i.previous(recovered, stack)
		return
	}

	i.logger.Log(logging.LevelError, "loop callback panicked outside of a test", "panic", recovered)
	panic(recovered)
}
