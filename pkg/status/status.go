/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package status holds point-in-time snapshots of a harness session.
package status

import (
	"bytes"
	"fmt"
	"time"
)

type Mode string

const (
	ModeNone   Mode = ""
	ModeHost   Mode = "host"
	ModeAttach Mode = "attach"
)

// Session is a snapshot of the suite runner and its driver.
type Session struct {
	Mode      Mode          `json:"mode"`
	Started   bool          `json:"started"`
	Finished  bool          `json:"finished"`
	TestIndex int           `json:"test_index"`
	Timeout   time.Duration `json:"timeout"`
	Active    *ActiveTest   `json:"active,omitempty"`
	Tests     []*Test       `json:"tests"`
}

// ActiveTest describes the test the driver is currently executing.
type ActiveTest struct {
	Index         int           `json:"index"`
	Title         string        `json:"title"`
	StepIndex     int           `json:"step_index"`
	StepName      string        `json:"step_name"`
	QuitRequested bool          `json:"quit_requested"`
	Elapsed       time.Duration `json:"elapsed"`
}

// Test summarizes one registered test.
type Test struct {
	Title    string        `json:"title"`
	Steps    int           `json:"steps"`
	Status   string        `json:"status"`
	Duration time.Duration `json:"duration"`
}

func (s *Session) Pretty() string {
	var buffer bytes.Buffer
	buffer.WriteString("===========================================\n")
	buffer.WriteString(fmt.Sprintf("Mode=%s, Started=%t, Finished=%t, Timeout=%v\n", s.modeName(), s.Started, s.Finished, s.Timeout))
	buffer.WriteString("===========================================\n\n")

	buffer.WriteString("=== Active Test ===\n")
	if s.Active == nil {
		buffer.WriteString("None\n")
	} else {
		a := s.Active
		buffer.WriteString(fmt.Sprintf("Test %d %q: step %d (%s), elapsed %v, quit requested %t\n", a.Index, a.Title, a.StepIndex, a.StepName, a.Elapsed, a.QuitRequested))
	}
	buffer.WriteString("\n")

	buffer.WriteString("=== Tests ===\n")
	for i, t := range s.Tests {
		marker := " "
		if s.Started && !s.Finished && i == s.TestIndex {
			marker = ">"
		}
		status := t.Status
		if status == "" {
			status = "-"
		}
		buffer.WriteString(fmt.Sprintf("%s %3d %-8s %-40s steps=%d", marker, i, status, t.Title, t.Steps))
		if t.Duration > 0 {
			buffer.WriteString(fmt.Sprintf(" duration=%v", t.Duration))
		}
		buffer.WriteString("\n")
	}

	return buffer.String()
}

func (s *Session) modeName() string {
	if s.Mode == ModeNone {
		return "none"
	}
	return string(s.Mode)
}
