/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package driver

import (
	"time"

	"github.com/hyperledger-labs/stepharness/pkg/results"
	"github.com/hyperledger-labs/stepharness/pkg/steps"
)

type EventType int

const (
	EventTestBegan EventType = iota + 1
	EventStepInvoked
	EventStepReturned
	EventTestConcluded
)

func (t EventType) String() string {
	switch t {
	case EventTestBegan:
		return "TestBegan"
	case EventStepInvoked:
		return "StepInvoked"
	case EventStepReturned:
		return "StepReturned"
	case EventTestConcluded:
		return "TestConcluded"
	default:
		return "Unknown"
	}
}

// Event describes one transition of the driver.  Fields which do not apply
// to the event type are left at their zero value.
type Event struct {
	Type  EventType
	Time  time.Duration
	Test  int
	Title string

	// Set for StepInvoked and StepReturned.
	Step     int
	StepName string

	// Set for StepReturned.
	Action steps.Action

	// Set for TestConcluded.
	Record   results.Record
	Duration time.Duration
}

// Observer gains insight into the operation of the driver, e.g. to record
// the events for later analysis.  Observe runs on the loop, inside the
// driver; it must not block and must not call back into the driver.
type Observer interface {
	Observe(event Event) error
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(event Event) error

func (f ObserverFunc) Observe(event Event) error {
	return f(event)
}
