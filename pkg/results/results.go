/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package results records the outcome of each registered test and renders
// the recorded outcomes as text or JSON.
package results

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Status is the terminal state of a test execution.
type Status int

const (
	// NotRun is the status of a test which has not concluded.
	NotRun Status = iota
	Success
	Fail
	Timeout
)

// ExceptionMessage is the fail message of a test whose step panicked.
const ExceptionMessage = "Exception in step"

// ErrAlreadyConcluded is returned when an outcome is written twice during
// one execution.
var ErrAlreadyConcluded = errors.New("outcome already recorded")

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Fail:
		return "fail"
	case Timeout:
		return "timeout"
	default:
		return ""
	}
}

// MarshalJSON encodes NotRun as null and every other status as its name.
func (s Status) MarshalJSON() ([]byte, error) {
	if s == NotRun {
		return []byte("null"), nil
	}
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var name *string
	if err := json.Unmarshal(data, &name); err != nil {
		return errors.WithMessage(err, "status must be a string or null")
	}

	if name == nil {
		*s = NotRun
		return nil
	}

	switch *name {
	case "success":
		*s = Success
	case "fail":
		*s = Fail
	case "timeout":
		*s = Timeout
	default:
		return errors.Errorf("unknown status %q", *name)
	}
	return nil
}

// Outcome is written by the driver when a test concludes.
type Outcome struct {
	Status      Status  `json:"status"`
	FailMessage *string `json:"fail_message"`
	Exception   *string `json:"exception"`
}

// Record describes one registered test together with its outcome.
type Record struct {
	Title      string   `json:"title"`
	Steps      []string `json:"steps"`
	AllowsQuit bool     `json:"allowsQuit"`
	Outcome
}

// Conclude writes the outcome of the record.  A failure always carries its
// reason, even an empty one.  Otherwise an empty reason, like an empty
// trace, is recorded as absent.
func (r *Record) Conclude(status Status, reason, trace string) error {
	if r.Status != NotRun {
		return ErrAlreadyConcluded
	}

	r.Outcome = Outcome{Status: status}
	if status == Fail || reason != "" {
		r.FailMessage = &reason
	}
	if trace != "" {
		r.Exception = &trace
	}
	return nil
}

// Clear returns the record to NotRun.
func (r *Record) Clear() {
	r.Outcome = Outcome{}
}

// Copy returns a deep copy of the record.
func (r *Record) Copy() Record {
	c := Record{
		Title:      r.Title,
		Steps:      append([]string(nil), r.Steps...),
		AllowsQuit: r.AllowsQuit,
		Outcome:    Outcome{Status: r.Status},
	}
	if r.FailMessage != nil {
		msg := *r.FailMessage
		c.FailMessage = &msg
	}
	if r.Exception != nil {
		trace := *r.Exception
		c.Exception = &trace
	}
	return c
}

// Recorder holds one Record per registered test, in registration order.
type Recorder struct {
	records []*Record
}

// Add registers a new record and returns its index.
func (r *Recorder) Add(title string, stepNames []string, allowsQuit bool) int {
	r.records = append(r.records, &Record{
		Title:      title,
		Steps:      append([]string(nil), stepNames...),
		AllowsQuit: allowsQuit,
	})
	return len(r.records) - 1
}

// Get returns the live record at index, which the driver writes into.
func (r *Recorder) Get(index int) *Record {
	return r.records[index]
}

func (r *Recorder) Len() int {
	return len(r.records)
}

// Clear returns every record to NotRun.
func (r *Recorder) Clear() {
	for _, record := range r.records {
		record.Clear()
	}
}

// Snapshot returns a copy of every record, in registration order.
func (r *Recorder) Snapshot() []Record {
	snapshot := make([]Record, len(r.records))
	for i, record := range r.records {
		snapshot[i] = record.Copy()
	}
	return snapshot
}

// Summary counts records per status.
type Summary struct {
	Total   int
	Success int
	Fail    int
	Timeout int
	NotRun  int
}

func Summarize(records []Record) Summary {
	s := Summary{Total: len(records)}
	for _, record := range records {
		switch record.Status {
		case Success:
			s.Success++
		case Fail:
			s.Fail++
		case Timeout:
			s.Timeout++
		default:
			s.NotRun++
		}
	}
	return s
}

// Passed reports whether every record concluded successfully.
func (s Summary) Passed() bool {
	return s.Success == s.Total
}
