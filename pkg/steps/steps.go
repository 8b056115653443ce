/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package steps defines the contract between a test author and the driver.
// A test is an ordered list of Steps.  Each invocation of a step returns an
// Action which tells the driver how to proceed.  Steps must never block:
// waiting is expressed by returning Wait or NextAfter, which hands control
// back to the loop until the delay elapses.
package steps

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"time"
)

// Kind is the instruction carried by an Action.
type Kind int

const (
	// KindInvalid is the kind of the zero Action.  A step returning it
	// violates the step contract.
	KindInvalid Kind = iota

	// KindNext advances to the following step, immediately or after a delay.
	KindNext

	// KindWait invokes the same step again after a delay.
	KindWait

	// KindGoto jumps to the step at Target and invokes it immediately.
	KindGoto

	// KindSuccess concludes the test as passed, immediately or after a delay.
	KindSuccess

	// KindFail concludes the test as failed with Reason.
	KindFail
)

func (k Kind) String() string {
	switch k {
	case KindNext:
		return "next"
	case KindWait:
		return "wait"
	case KindGoto:
		return "goto"
	case KindSuccess:
		return "success"
	case KindFail:
		return "fail"
	default:
		return "invalid"
	}
}

// Action is returned by every step invocation.  Use the constructors below
// rather than building one by hand.
type Action struct {
	Kind Kind

	// Delay is only meaningful if Delayed is set.
	Delay   time.Duration
	Delayed bool

	// Target is the step index of a Goto.
	Target int

	// Reason is the failure message of a Fail.
	Reason string
}

func after(kind Kind, ms int) Action {
	return Action{
		Kind:    kind,
		Delay:   time.Duration(ms) * time.Millisecond,
		Delayed: true,
	}
}

// Next advances to the following step within the same loop tick.  When no
// step follows, the test succeeds.
func Next() Action {
	return Action{Kind: KindNext}
}

// NextAfter advances to the following step after ms milliseconds.
func NextAfter(ms int) Action {
	return after(KindNext, ms)
}

// Wait invokes the same step again after ms milliseconds.
func Wait(ms int) Action {
	return after(KindWait, ms)
}

// Goto jumps to the step at index and invokes it within the same loop tick.
func Goto(index int) Action {
	return Action{Kind: KindGoto, Target: index}
}

// Success concludes the test as passed.
func Success() Action {
	return Action{Kind: KindSuccess}
}

// SuccessAfter concludes the test as passed after ms milliseconds, unless
// the test times out first.
func SuccessAfter(ms int) Action {
	return after(KindSuccess, ms)
}

// Fail concludes the test as failed.
func Fail(reason string) Action {
	return Action{Kind: KindFail, Reason: reason}
}

// Failf concludes the test as failed with a formatted reason.
func Failf(format string, args ...interface{}) Action {
	return Fail(fmt.Sprintf(format, args...))
}

func (a Action) String() string {
	switch a.Kind {
	case KindGoto:
		return fmt.Sprintf("goto(%d)", a.Target)
	case KindFail:
		return fmt.Sprintf("fail(%q)", a.Reason)
	case KindNext, KindWait, KindSuccess:
		if a.Delayed {
			return fmt.Sprintf("%s(%dms)", a.Kind, a.Delay.Milliseconds())
		}
		return a.Kind.String()
	default:
		return a.Kind.String()
	}
}

// Step is one non-blocking unit of test behavior.
type Step struct {
	Name string
	Run  func() Action
}

// Named wraps fn into a Step with an explicit name.
func Named(name string, fn func() Action) Step {
	return Step{Name: name, Run: fn}
}

// Func wraps fn into a Step named after the function itself.
func Func(fn func() Action) Step {
	return Step{Name: funcName(fn), Run: fn}
}

// Funcs wraps each function with Func.
func Funcs(fns ...func() Action) []Step {
	result := make([]Step, len(fns))
	for i, fn := range fns {
		result[i] = Func(fn)
	}
	return result
}

// Names returns the name of each step, in order.
func Names(steps []Step) []string {
	names := make([]string, len(steps))
	for i, step := range steps {
		names[i] = step.Name
	}
	return names
}

// funcName strips the import path from the symbol name of fn, so that
// "github.com/acme/app.stepClick" becomes "stepClick".
func funcName(fn func() Action) string {
	if fn == nil {
		return ""
	}

	f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if f == nil {
		return ""
	}

	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}
