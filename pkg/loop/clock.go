/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package loop

import (
	"runtime/debug"
	"sync"
	"time"
)

// Clock is a Loop on wall-clock time.  Callbacks run on the goroutine
// executing Run.  After, Cancel, Post and Stop may be invoked from any
// goroutine; this is how events from outside the loop are delivered into it.
// A Stop issued while the loop is not running makes the next Run return
// immediately.
type Clock struct {
	mutex        sync.Mutex
	queue        *timerQueue
	start        time.Time
	stopped      bool
	running      bool
	errorHandler ErrorHandler
	wakeC        chan struct{}
}

func NewClock() *Clock {
	return &Clock{
		queue: newTimerQueue(),
		start: time.Now(),
		wakeC: make(chan struct{}, 1),
	}
}

func (c *Clock) now() time.Duration {
	return time.Since(c.start)
}

// Now returns the time elapsed since the creation of the loop.
func (c *Clock) Now() time.Duration {
	return c.now()
}

func (c *Clock) wake() {
	select {
	case c.wakeC <- struct{}{}:
	default:
	}
}

func (c *Clock) After(delay time.Duration, fn func()) TimerID {
	if delay < 0 {
		panic("attempted to modify the past")
	}

	c.mutex.Lock()
	id := c.queue.insert(c.now()+delay, fn)
	c.mutex.Unlock()

	c.wake()
	return id
}

// Post schedules fn to run as soon as possible.
func (c *Clock) Post(fn func()) TimerID {
	return c.After(0, fn)
}

func (c *Clock) Cancel(id TimerID) {
	c.mutex.Lock()
	c.queue.remove(id)
	c.mutex.Unlock()
}

func (c *Clock) Stop() {
	c.mutex.Lock()
	c.stopped = true
	c.mutex.Unlock()

	c.wake()
}

func (c *Clock) SetErrorHandler(handler ErrorHandler) ErrorHandler {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	previous := c.errorHandler
	c.errorHandler = handler
	return previous
}

func (c *Clock) Run() error {
	c.mutex.Lock()
	if c.running {
		c.mutex.Unlock()
		return ErrAlreadyRunning
	}
	c.running = true
	c.mutex.Unlock()

	defer func() {
		c.mutex.Lock()
		c.running = false
		c.stopped = false
		c.mutex.Unlock()
	}()

	idle := time.NewTimer(time.Hour)
	defer idle.Stop()

	for {
		c.mutex.Lock()
		if c.stopped {
			c.mutex.Unlock()
			return nil
		}

		next := c.queue.peek()
		if next != nil && next.deadline <= c.now() {
			c.queue.remove(next.id)
			handler := c.errorHandler
			c.mutex.Unlock()
			execute(next.fn, handler)
			continue
		}

		wait := time.Hour
		if next != nil {
			wait = next.deadline - c.now()
		}
		c.mutex.Unlock()

		if !idle.Stop() {
			select {
			case <-idle.C:
			default:
			}
		}
		idle.Reset(wait)

		select {
		case <-idle.C:
		case <-c.wakeC:
		}
	}
}

func execute(fn func(), handler ErrorHandler) {
	if handler == nil {
		fn()
		return
	}

	defer func() {
		if r := recover(); r != nil {
			handler(r, debug.Stack())
		}
	}()
	fn()
}
