/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package harness runs a suite of step driven tests against an application
// bound to a single event loop.
//
// In host mode (RunHost) the harness owns the loop: it builds a fresh
// application instance through the entry function before every test, tears
// it down through the reset function after every test, and decides what
// happens once the suite is exhausted.  In attach mode (AttachHarness) the
// harness schedules the suite onto a loop owned by the caller and never
// touches the application lifecycle nor the loop itself.
//
// Tests always execute one at a time, in registration order.  Between two
// tests the harness yields to the loop, so that callbacks queued by the
// concluded test run before the next test begins.
package harness

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/hyperledger-labs/stepharness/pkg/driver"
	"github.com/hyperledger-labs/stepharness/pkg/logging"
	"github.com/hyperledger-labs/stepharness/pkg/loop"
	"github.com/hyperledger-labs/stepharness/pkg/results"
	"github.com/hyperledger-labs/stepharness/pkg/status"
	"github.com/hyperledger-labs/stepharness/pkg/steps"
)

var (
	// ErrSuiteStarted is returned when the suite is modified, or run a
	// second time, after a run has begun.
	ErrSuiteStarted = errors.New("the suite has already started")

	// ErrNoSession is returned by the results accessors before any run began.
	ErrNoSession = errors.New("no session has been started")

	// ErrExitInAttachMode is returned when an attached harness is asked to
	// exit once the suite completes; the loop belongs to the caller.
	ErrExitInAttachMode = errors.New("exit after the suite is not supported in attach mode")

	// ErrInvalidTimeout is returned for a non positive timeout.
	ErrInvalidTimeout = errors.New("timeout must be a positive number of milliseconds")

	// ErrInvalidStep is returned when a test is registered with a step
	// which has nothing to run.
	ErrInvalidStep = errors.New("step has no function to run")
)

// TestOptions are the per test flags given at registration.
type TestOptions struct {
	// AllowsQuit marks a test which expects the application to request
	// termination.  The request is recorded rather than failing the test.
	AllowsQuit bool
}

// RunOptions decide what happens once every test has concluded.
type RunOptions struct {
	// ExitAfter stops the loop after the last test.  Host mode only.
	ExitAfter bool

	// ShowResultsAfter hands the results to the Display after the last test.
	ShowResultsAfter bool

	// OnComplete, when set, is invoked on the loop after the last test, and
	// after the results were shown.
	OnComplete func(records []results.Record)
}

type Opt interface{}

type loggerOpt struct {
	logger logging.Logger
}

// LoggerOpt overrides the default logger, which drops every message.
func LoggerOpt(logger logging.Logger) Opt {
	return loggerOpt{logger: logger}
}

type loopOpt struct {
	loop loop.Loop
}

// LoopOpt supplies the loop RunHost executes on.  By default, RunHost
// creates a loop.Clock.
func LoopOpt(l loop.Loop) Opt {
	return loopOpt{loop: l}
}

type displayOpt struct {
	display results.Display
}

// DisplayOpt overrides where ShowResults presents the results.  By default,
// results are rendered as a table on the output.
func DisplayOpt(display results.Display) Opt {
	return displayOpt{display: display}
}

type observerOpt struct {
	observer driver.Observer
}

// ObserverOpt registers an observer of the driver events of every test.
// It may be given more than once.
func ObserverOpt(observer driver.Observer) Opt {
	return observerOpt{observer: observer}
}

type outputOpt struct {
	output io.Writer
}

// OutputOpt overrides the destination of PrintResults, os.Stdout by default.
func OutputOpt(output io.Writer) Opt {
	return outputOpt{output: output}
}

type Harness struct {
	logger    logging.Logger
	hostLoop  loop.Loop
	display   results.Display
	observers []driver.Observer
	output    io.Writer

	timeout  time.Duration
	resetFn  func()
	tests    []*driver.Test
	recorder *results.Recorder

	session *session
}

func New(opts ...Opt) *Harness {
	h := &Harness{
		logger:   logging.NilLogger,
		output:   os.Stdout,
		timeout:  driver.DefaultTimeout,
		recorder: &results.Recorder{},
	}

	for _, opt := range opts {
		switch v := opt.(type) {
		case loggerOpt:
			h.logger = v.logger
		case loopOpt:
			h.hostLoop = v.loop
		case displayOpt:
			h.display = v.display
		case observerOpt:
			h.observers = append(h.observers, v.observer)
		case outputOpt:
			h.output = v.output
		default:
			panic(fmt.Sprintf("unknown harness option %T", opt))
		}
	}

	if h.display == nil {
		h.display = &results.TableDisplay{Output: h.output}
	}

	return h
}

// AddTest registers a test.  The steps are copied, so later changes to the
// slice do not affect the registered test.
func (h *Harness) AddTest(title string, testSteps []steps.Step, opts TestOptions) error {
	if h.session != nil {
		return ErrSuiteStarted
	}

	for i, step := range testSteps {
		if step.Run == nil {
			return errors.WithMessagef(ErrInvalidStep, "test %q, step %d", title, i)
		}
	}

	copied := append([]steps.Step(nil), testSteps...)
	index := h.recorder.Add(title, steps.Names(copied), opts.AllowsQuit)
	h.tests = append(h.tests, &driver.Test{
		Index:      index,
		Title:      title,
		Steps:      copied,
		AllowsQuit: opts.AllowsQuit,
		Record:     h.recorder.Get(index),
	})

	return nil
}

// SetTimeout sets the time each test is allowed to run, in milliseconds.
func (h *Harness) SetTimeout(ms int) error {
	if h.session != nil {
		return ErrSuiteStarted
	}
	if ms <= 0 {
		return errors.WithMessagef(ErrInvalidTimeout, "got %d", ms)
	}
	h.timeout = time.Duration(ms) * time.Millisecond
	return nil
}

// SetResetFn sets the function tearing down the application instance built
// by the entry function.  It is only called in host mode.
func (h *Harness) SetResetFn(fn func()) {
	h.resetFn = fn
}

// RunHost runs the suite on a loop owned by the harness, calling entry
// before each test.  It blocks until the loop stops.
func (h *Harness) RunHost(entry func(), opts RunOptions) error {
	if h.session != nil {
		return ErrSuiteStarted
	}
	if entry == nil {
		return errors.New("host mode requires an entry function")
	}

	l := h.hostLoop
	if l == nil {
		l = loop.NewClock()
	}

	s := h.start(status.ModeHost, l, entry, opts)

	err := l.Run()
	s.driver.Interceptor().Restore()
	if err != nil {
		return errors.WithMessage(err, "loop exited with an error")
	}

	return nil
}

// AttachHarness schedules the suite onto a loop owned by the caller and
// returns right away.  The caller keeps running its loop.
func (h *Harness) AttachHarness(l loop.Loop, opts RunOptions) error {
	if opts.ExitAfter {
		return ErrExitInAttachMode
	}
	if h.session != nil {
		return ErrSuiteStarted
	}
	if l == nil {
		return errors.New("attach mode requires a loop")
	}

	h.start(status.ModeAttach, l, nil, opts)
	return nil
}

func (h *Harness) start(mode status.Mode, l loop.Loop, entry func(), opts RunOptions) *session {
	s := &session{
		harness:   h,
		mode:      mode,
		loop:      l,
		entry:     entry,
		options:   opts,
		logger:    logging.Decorate(h.logger, "", "mode", string(mode)),
		durations: make([]time.Duration, len(h.tests)),
	}

	observers := append([]driver.Observer{driver.ObserverFunc(s.observe)}, h.observers...)
	s.driver = driver.New(l, driver.Config{
		Timeout:     h.timeout,
		Logger:      s.logger,
		Observers:   observers,
		OnConcluded: s.concluded,
	})
	s.driver.Interceptor().Install()

	h.recorder.Clear()
	h.session = s

	s.logger.Log(logging.LevelInfo, "starting suite", "tests", len(h.tests), "timeout", h.timeout)
	l.After(0, s.advance)
	return s
}

// Quit is the way for the application under test to request termination.
// Outside of a test it stops the loop; during a test it either fails the
// test or, if the test allows quitting, records the request.
func (h *Harness) Quit() {
	if h.session == nil {
		h.logger.Log(logging.LevelWarn, "quit requested before any session started, ignoring")
		return
	}
	h.session.driver.Quit()
}

// QuitRequested reports whether the application requested to quit during
// the active test.
func (h *Harness) QuitRequested() bool {
	if h.session == nil {
		return false
	}
	return h.session.driver.QuitRequested()
}

// Loop returns the loop of the current session.
func (h *Harness) Loop() (loop.Loop, error) {
	if h.session == nil {
		return nil, ErrNoSession
	}
	return h.session.loop, nil
}

// Results returns a copy of every record, in registration order.
func (h *Harness) Results() []results.Record {
	return h.recorder.Snapshot()
}

// GetResults renders the results in the named format, "text" or "json".
func (h *Harness) GetResults(format string) (string, error) {
	f, err := h.format(format)
	if err != nil {
		return "", err
	}
	return results.Render(h.recorder.Snapshot(), f)
}

// PrintResults writes the rendered results to the output.
func (h *Harness) PrintResults(format string) error {
	body, err := h.GetResults(format)
	if err != nil {
		return err
	}
	_, err = io.WriteString(h.output, body)
	return errors.WithMessage(err, "could not print results")
}

// WriteResults writes the rendered results to the file at path.
func (h *Harness) WriteResults(path, format string) error {
	f, err := h.format(format)
	if err != nil {
		return err
	}
	return results.WriteFile(path, h.recorder.Snapshot(), f)
}

// ShowResults presents the results through the Display.
func (h *Harness) ShowResults(format string) error {
	f, err := h.format(format)
	if err != nil {
		return err
	}
	return h.display.Show(h.recorder.Snapshot(), f)
}

func (h *Harness) format(name string) (results.Format, error) {
	if h.session == nil {
		return "", ErrNoSession
	}
	return results.ParseFormat(name)
}

// Status returns a snapshot of the session and of every registered test.
func (h *Harness) Status() *status.Session {
	st := &status.Session{
		Timeout: h.timeout,
		Tests:   make([]*status.Test, len(h.tests)),
	}

	var durations []time.Duration
	if s := h.session; s != nil {
		st.Mode = s.mode
		st.Started = true
		st.Finished = s.finished
		st.TestIndex = s.next
		st.Active = s.driver.Status()
		durations = s.durations
	}

	for i, t := range h.tests {
		st.Tests[i] = &status.Test{
			Title:  t.Title,
			Steps:  len(t.Steps),
			Status: results.StatusLabel(t.Record.Status),
		}
		if i < len(durations) {
			st.Tests[i].Duration = durations[i]
		}
	}

	return st
}
