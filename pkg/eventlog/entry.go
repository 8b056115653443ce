/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package eventlog

import (
	"github.com/pkg/errors"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/hyperledger-labs/stepharness/pkg/driver"
)

// Field names of a recorded event.
const (
	FieldRunID       = "run_id"
	FieldTime        = "time"
	FieldLoopTime    = "loop_time_ms"
	FieldType        = "type"
	FieldTest        = "test"
	FieldTitle       = "title"
	FieldStep        = "step"
	FieldStepName    = "step_name"
	FieldAction      = "action"
	FieldStatus      = "status"
	FieldFailMessage = "fail_message"
	FieldException   = "exception"
	FieldDuration    = "duration_ms"
)

// Entry is the decoded form of a recorded event.
type Entry struct {
	RunID      string
	Time       int64
	LoopTimeMs int64
	Type       string
	Test       int
	Title      string

	Step     int
	StepName string
	Action   string

	Status      string
	FailMessage string
	Exception   string
	DurationMs  int64
}

// EncodeEvent converts a driver event into the message written to the log.
func EncodeEvent(runID string, timestamp int64, event driver.Event) (*structpb.Struct, error) {
	fields := map[string]interface{}{
		FieldTime:     timestamp,
		FieldLoopTime: event.Time.Milliseconds(),
		FieldType:     event.Type.String(),
		FieldTest:     event.Test,
		FieldTitle:    event.Title,
	}
	if runID != "" {
		fields[FieldRunID] = runID
	}

	switch event.Type {
	case driver.EventStepInvoked:
		fields[FieldStep] = event.Step
		fields[FieldStepName] = event.StepName
	case driver.EventStepReturned:
		fields[FieldStep] = event.Step
		fields[FieldStepName] = event.StepName
		fields[FieldAction] = event.Action.String()
	case driver.EventTestConcluded:
		fields[FieldStatus] = event.Record.Status.String()
		fields[FieldDuration] = event.Duration.Milliseconds()
		if event.Record.FailMessage != nil {
			fields[FieldFailMessage] = *event.Record.FailMessage
		}
		if event.Record.Exception != nil {
			fields[FieldException] = *event.Record.Exception
		}
	}

	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, errors.WithMessagef(err, "could not encode %s event", event.Type)
	}
	return msg, nil
}

// DecodeEntry converts a recorded message back into an Entry.
func DecodeEntry(msg *structpb.Struct) (*Entry, error) {
	fields := msg.GetFields()
	if _, ok := fields[FieldType]; !ok {
		return nil, errors.Errorf("recorded event has no %q field", FieldType)
	}

	str := func(name string) string {
		return fields[name].GetStringValue()
	}
	num := func(name string) int64 {
		return int64(fields[name].GetNumberValue())
	}

	return &Entry{
		RunID:       str(FieldRunID),
		Time:        num(FieldTime),
		LoopTimeMs:  num(FieldLoopTime),
		Type:        str(FieldType),
		Test:        int(num(FieldTest)),
		Title:       str(FieldTitle),
		Step:        int(num(FieldStep)),
		StepName:    str(FieldStepName),
		Action:      str(FieldAction),
		Status:      str(FieldStatus),
		FailMessage: str(FieldFailMessage),
		Exception:   str(FieldException),
		DurationMs:  num(FieldDuration),
	}, nil
}
