/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package loop

import (
	"time"
)

// Virtual is a Loop on simulated time.  Time only advances when Run consumes
// the next scheduled callback, so the outcome of a run depends on nothing but
// the order in which callbacks were scheduled.  When no callback is left, Run
// returns even though Stop was not called.
//
// Virtual must only be used from a single goroutine.
type Virtual struct {
	queue        *timerQueue
	fakeTime     time.Duration
	stopped      bool
	running      bool
	consumed     uint64
	errorHandler ErrorHandler
}

func NewVirtual() *Virtual {
	return &Virtual{
		queue: newTimerQueue(),
	}
}

// Now returns the current simulated time, measured from the creation of the loop.
func (v *Virtual) Now() time.Duration {
	return v.fakeTime
}

func (v *Virtual) After(delay time.Duration, fn func()) TimerID {
	if delay < 0 {
		panic("attempted to modify the past")
	}
	return v.queue.insert(v.fakeTime+delay, fn)
}

// Post schedules fn to run as soon as possible, after every callback which is
// already due.  It stands in for an event delivered by the windowing system.
func (v *Virtual) Post(fn func()) TimerID {
	return v.After(0, fn)
}

func (v *Virtual) Cancel(id TimerID) {
	v.queue.remove(id)
}

func (v *Virtual) Stop() {
	v.stopped = true
}

// Stopped reports whether the last Run ended because of Stop rather than
// running out of callbacks.
func (v *Virtual) Stopped() bool {
	return v.stopped
}

// Pending returns the number of callbacks still scheduled.
func (v *Virtual) Pending() int {
	return v.queue.len()
}

// Consumed returns the number of callbacks executed so far.
func (v *Virtual) Consumed() uint64 {
	return v.consumed
}

func (v *Virtual) SetErrorHandler(handler ErrorHandler) ErrorHandler {
	previous := v.errorHandler
	v.errorHandler = handler
	return previous
}

func (v *Virtual) Run() error {
	if v.running {
		return ErrAlreadyRunning
	}
	v.running = true
	v.stopped = false
	defer func() {
		v.running = false
	}()

	for !v.stopped && v.Step() {
	}

	return nil
}

// Step executes the earliest scheduled callback, advancing simulated time to
// its deadline.  It returns false if no callback was scheduled.
func (v *Virtual) Step() bool {
	t := v.queue.pop()
	if t == nil {
		return false
	}

	v.fakeTime = t.deadline
	v.consumed++
	execute(t.fn, v.errorHandler)
	return true
}

// RunFor executes callbacks until simulated time would pass now+d, or Stop is
// called.  Simulated time is left at now+d.
func (v *Virtual) RunFor(d time.Duration) {
	end := v.fakeTime + d
	v.stopped = false
	for !v.stopped {
		next := v.queue.peek()
		if next == nil || next.deadline > end {
			break
		}
		v.Step()
	}
	if v.fakeTime < end {
		v.fakeTime = end
	}
}

// Status returns a human readable summary of the scheduled callbacks.
func (v *Virtual) Status() string {
	return v.queue.status()
}
