/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package loop defines the single event loop the harness drives tests on,
// and provides two implementations of it.  Virtual runs on simulated time,
// so every schedule is deterministic and a suite completes as fast as the
// callbacks execute.  Clock runs on wall-clock time and is what a live
// application uses.
//
// Every callback scheduled on a Loop runs on the goroutine executing Run,
// one at a time.  Code running inside a callback never needs a lock to touch
// state owned by other callbacks of the same loop.
package loop

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// TimerID identifies a callback scheduled with After.  The zero TimerID is
// never returned by After, so it may be used as "no timer".
type TimerID uint64

// ErrorHandler receives panics recovered at the callback boundary of a loop,
// along with the stack of the panicking goroutine.
type ErrorHandler func(recovered interface{}, stack []byte)

// ErrAlreadyRunning is returned by Run if the loop is already running.
var ErrAlreadyRunning = errors.New("loop is already running")

// Loop is the timer surface of the harness.  It is the only concurrency
// primitive the driver relies on.
type Loop interface {
	// After schedules fn to run once, delay from now.  Callbacks with equal
	// deadlines run in the order they were scheduled.  A negative delay is a
	// programming error and panics.
	After(delay time.Duration, fn func()) TimerID

	// Cancel removes a scheduled callback.  Cancelling a callback which
	// already ran, or was already cancelled, is a no-op.
	Cancel(id TimerID)

	// Stop makes Run return once the callback currently executing (if any)
	// completes.  Callbacks still scheduled are kept.
	Stop()

	// Run processes callbacks until Stop is invoked.
	Run() error

	// SetErrorHandler installs the handler invoked when a callback panics
	// and returns the previously installed handler, which may be nil.
	// With no handler installed, a panicking callback crashes the loop.
	SetErrorHandler(handler ErrorHandler) ErrorHandler
}

// TimeSource is implemented by loops which can report their own notion of
// the current time.  Both Virtual and Clock implement it.
type TimeSource interface {
	Now() time.Duration
}

// FormatPanic renders a recovered panic value and its stack as a single trace.
func FormatPanic(recovered interface{}, stack []byte) string {
	return fmt.Sprintf("panic: %v\n\n%s", recovered, stack)
}
