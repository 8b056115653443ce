/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package driver executes one test at a time on a loop.  The driver invokes
// the steps of the active test and interprets the Action each step returns,
// arming loop timers for delayed continuations and for the test timeout.
//
// All of the driver's state is touched only from callbacks of its loop, so
// the driver needs no locking.  Every timer the driver arms captures the
// generation of the test it belongs to, and does nothing when it fires for a
// test which has concluded; a leaked timer can never act on a later test.
package driver

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/hyperledger-labs/stepharness/pkg/logging"
	"github.com/hyperledger-labs/stepharness/pkg/loop"
	"github.com/hyperledger-labs/stepharness/pkg/results"
	"github.com/hyperledger-labs/stepharness/pkg/status"
	"github.com/hyperledger-labs/stepharness/pkg/steps"
)

// DefaultTimeout bounds the execution time of each test.
const DefaultTimeout = 5000 * time.Millisecond

// ErrTestActive is returned by Begin while another test is still executing.
var ErrTestActive = errors.New("another test is active")

// Test is a registered test as executed by the driver.
type Test struct {
	Index      int
	Title      string
	Steps      []steps.Step
	AllowsQuit bool

	// Record receives the outcome of the test.
	Record *results.Record
}

// Config parameterizes a Driver.
type Config struct {
	// Timeout bounds each test.  Zero means DefaultTimeout.
	Timeout time.Duration

	Logger    logging.Logger
	Observers []Observer

	// OnConcluded is invoked, on the loop, right after the outcome of the
	// active test has been written.
	OnConcluded func(t *Test)
}

type Driver struct {
	loop        loop.Loop
	logger      logging.Logger
	timeout     time.Duration
	observers   []Observer
	onConcluded func(t *Test)
	interceptor *Interceptor

	test          *Test
	stepIndex     int
	generation    uint64
	timeoutTimer  loop.TimerID
	testDone      bool
	quitRequested bool
	startTime     time.Duration
}

func New(l loop.Loop, config Config) *Driver {
	d := &Driver{
		loop:        l,
		logger:      config.Logger,
		timeout:     config.Timeout,
		observers:   config.Observers,
		onConcluded: config.OnConcluded,
	}

	if d.logger == nil {
		d.logger = logging.NilLogger
	}
	if d.timeout <= 0 {
		d.timeout = DefaultTimeout
	}

	d.interceptor = newInterceptor(l, d.logger, d.attributePanic)
	return d
}

// Interceptor returns the panic interceptor of the driver.
func (d *Driver) Interceptor() *Interceptor {
	return d.interceptor
}

// Timeout returns the per-test timeout.
func (d *Driver) Timeout() time.Duration {
	return d.timeout
}

// Active returns the test currently executing, or nil.
func (d *Driver) Active() *Test {
	if d.test == nil || d.testDone {
		return nil
	}
	return d.test
}

// QuitRequested reports whether the active test has seen a quit request.
func (d *Driver) QuitRequested() bool {
	return d.Active() != nil && d.quitRequested
}

// Begin starts executing t: it arms the timeout and invokes the first step
// within the calling callback.
func (d *Driver) Begin(t *Test) error {
	if d.Active() != nil {
		return ErrTestActive
	}

	d.setActive(t)

	generation := d.generation
	d.timeoutTimer = d.loop.After(d.timeout, func() {
		d.handleTimeout(generation)
	})

	d.logger.Log(logging.LevelInfo, "test began", "test", t.Index, "title", t.Title, "steps", len(t.Steps))
	d.emit(Event{Type: EventTestBegan})

	d.run(generation, 0)
	return nil
}

// Abort concludes t with status without invoking any of its steps, as when
// the application could not be set up for it.  Observers see the test begin
// and conclude like any other.
func (d *Driver) Abort(t *Test, s results.Status, reason, trace string) error {
	if d.Active() != nil {
		return ErrTestActive
	}

	d.setActive(t)
	d.timeoutTimer = 0

	d.logger.Log(logging.LevelWarn, "test aborted", "test", t.Index, "title", t.Title)
	d.emit(Event{Type: EventTestBegan})
	d.conclude(s, reason, trace)
	return nil
}

func (d *Driver) setActive(t *Test) {
	d.generation++
	d.test = t
	d.stepIndex = 0
	d.testDone = false
	d.quitRequested = false
	d.startTime = d.now()
	t.Record.Clear()
}

// current reports whether generation is the generation of a test which is
// still executing.
func (d *Driver) current(generation uint64) bool {
	return generation == d.generation && !d.testDone
}

// run invokes the step at index, and keeps invoking steps for as long as they
// request an immediate continuation.
func (d *Driver) run(generation uint64, index int) {
	for d.current(generation) {
		next, again := d.invoke(generation, index)
		if !again {
			return
		}
		index = next
	}
}

func (d *Driver) invoke(generation uint64, index int) (int, bool) {
	t := d.test
	if index >= len(t.Steps) {
		d.conclude(results.Success, "", "")
		return 0, false
	}

	d.stepIndex = index
	step := t.Steps[index]
	d.emit(Event{Type: EventStepInvoked, Step: index, StepName: step.Name})

	var action steps.Action
	trace, ok := d.interceptor.Guard(func() {
		action = step.Run()
	})
	if !ok {
		d.logger.Log(logging.LevelWarn, "step panicked", "test", t.Index, "step", index, "name", step.Name)
		d.conclude(results.Fail, results.ExceptionMessage, trace)
		return 0, false
	}

	if !d.current(generation) {
		// The step concluded the test itself, e.g. through an unexpected quit.
		return 0, false
	}

	d.logger.Log(logging.LevelDebug, "step returned", "test", t.Index, "step", index, "name", step.Name, "action", action)
	d.emit(Event{Type: EventStepReturned, Step: index, StepName: step.Name, Action: action})

	return d.dispatch(generation, index, action)
}

func (d *Driver) dispatch(generation uint64, index int, action steps.Action) (int, bool) {
	count := len(d.test.Steps)

	switch action.Kind {
	case steps.KindNext:
		if action.Delayed && action.Delay < 0 {
			d.violation(index, action)
			break
		}

		next := index + 1
		if next >= count {
			d.conclude(results.Success, "", "")
			break
		}

		d.stepIndex = next
		if !action.Delayed || action.Delay == 0 {
			return next, true
		}
		d.schedule(generation, action.Delay, next)
	case steps.KindWait:
		if !action.Delayed || action.Delay < 0 {
			d.violation(index, action)
			break
		}
		d.schedule(generation, action.Delay, index)
	case steps.KindGoto:
		if action.Target < 0 || action.Target >= count {
			d.conclude(results.Fail, fmt.Sprintf("step %d (%s) requested goto %d, but the test has steps 0 to %d", index, d.test.Steps[index].Name, action.Target, count-1), "")
			break
		}
		d.stepIndex = action.Target
		return action.Target, true
	case steps.KindSuccess:
		if !action.Delayed {
			d.conclude(results.Success, "", "")
			break
		}
		if action.Delay < 0 {
			d.violation(index, action)
			break
		}
		d.loop.After(action.Delay, func() {
			if d.current(generation) {
				d.conclude(results.Success, "", "")
			}
		})
	case steps.KindFail:
		d.conclude(results.Fail, action.Reason, "")
	default:
		d.conclude(results.Fail, fmt.Sprintf("step %d (%s) returned no action", index, d.test.Steps[index].Name), "")
	}

	return 0, false
}

func (d *Driver) violation(index int, action steps.Action) {
	d.conclude(results.Fail, fmt.Sprintf("step %d (%s) returned %s with an unschedulable delay", index, d.test.Steps[index].Name, action), "")
}

func (d *Driver) schedule(generation uint64, delay time.Duration, index int) {
	d.loop.After(delay, func() {
		d.run(generation, index)
	})
}

func (d *Driver) handleTimeout(generation uint64) {
	if !d.current(generation) {
		return
	}

	d.timeoutTimer = 0
	d.logger.Log(logging.LevelWarn, "test timed out", "test", d.test.Index, "title", d.test.Title, "step", d.stepIndex)
	d.conclude(results.Timeout, "", "")
}

// conclude writes the outcome of the active test.  Only the first call per
// test has any effect.
func (d *Driver) conclude(s results.Status, reason, trace string) {
	if d.testDone {
		return
	}
	d.testDone = true

	d.loop.Cancel(d.timeoutTimer)
	d.timeoutTimer = 0

	t := d.test
	if err := t.Record.Conclude(s, reason, trace); err != nil {
		d.logger.Log(logging.LevelError, "could not record outcome", "test", t.Index, "err", err)
	}

	duration := d.now() - d.startTime
	d.logger.Log(logging.LevelInfo, "test concluded", "test", t.Index, "title", t.Title, "status", s, "duration", duration)
	d.emit(Event{Type: EventTestConcluded, Record: t.Record.Copy(), Duration: duration})

	if d.onConcluded != nil {
		d.onConcluded(t)
	}
}

// attributePanic converts a panic raised in a loop callback into a failure of
// the active test.  It returns false if no test is active.
func (d *Driver) attributePanic(trace string) bool {
	t := d.Active()
	if t == nil {
		return false
	}

	d.logger.Log(logging.LevelWarn, "loop callback panicked during test", "test", t.Index, "step", d.stepIndex)
	d.conclude(results.Fail, results.ExceptionMessage, trace)
	return true
}

func (d *Driver) emit(event Event) {
	if len(d.observers) == 0 {
		return
	}

	event.Time = d.now()
	event.Test = d.test.Index
	event.Title = d.test.Title
	for _, observer := range d.observers {
		if err := observer.Observe(event); err != nil {
			d.logger.Log(logging.LevelWarn, "observer failed", "event", event.Type, "err", err)
		}
	}
}

func (d *Driver) now() time.Duration {
	if ts, ok := d.loop.(loop.TimeSource); ok {
		return ts.Now()
	}
	return 0
}

// Status returns a snapshot of the active test, or nil.
func (d *Driver) Status() *status.ActiveTest {
	t := d.Active()
	if t == nil {
		return nil
	}

	name := ""
	if d.stepIndex < len(t.Steps) {
		name = t.Steps[d.stepIndex].Name
	}

	return &status.ActiveTest{
		Index:         t.Index,
		Title:         t.Title,
		StepIndex:     d.stepIndex,
		StepName:      name,
		QuitRequested: d.quitRequested,
		Elapsed:       d.now() - d.startTime,
	}
}
