/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package harness

import (
	"time"

	"github.com/hyperledger-labs/stepharness/pkg/driver"
	"github.com/hyperledger-labs/stepharness/pkg/logging"
	"github.com/hyperledger-labs/stepharness/pkg/loop"
	"github.com/hyperledger-labs/stepharness/pkg/results"
	"github.com/hyperledger-labs/stepharness/pkg/status"
)

// session is one run of the suite.  It is only touched from callbacks of
// its loop.
type session struct {
	harness *Harness
	mode    status.Mode
	loop    loop.Loop
	driver  *driver.Driver
	entry   func()
	options RunOptions
	logger  logging.Logger

	next      int
	finished  bool
	durations []time.Duration
}

// advance begins the next test, or finishes the suite.
func (s *session) advance() {
	tests := s.harness.tests
	if s.next >= len(tests) {
		s.finish()
		return
	}

	t := tests[s.next]
	if s.mode == status.ModeHost {
		if trace, ok := s.driver.Interceptor().Guard(s.entry); !ok {
			s.logger.Log(logging.LevelWarn, "entry function panicked", "test", t.Index, "title", t.Title)
			if err := s.driver.Abort(t, results.Fail, results.ExceptionMessage, trace); err != nil {
				s.logger.Log(logging.LevelError, "could not abort test", "test", t.Index, "err", err)
			}
			return
		}
	}

	if err := s.driver.Begin(t); err != nil {
		// Only possible if a test concluded without notifying the session.
		s.logger.Log(logging.LevelError, "could not begin test", "test", t.Index, "err", err)
	}
}

// concluded runs on the loop right after the outcome of t was written.
func (s *session) concluded(t *driver.Test) {
	s.next = t.Index + 1

	s.loop.After(0, func() {
		if s.mode == status.ModeHost && s.harness.resetFn != nil {
			if trace, ok := s.driver.Interceptor().Guard(s.harness.resetFn); !ok {
				s.logger.Log(logging.LevelError, "reset function panicked", "test", t.Index, "trace", trace)
			}
		}
		s.advance()
	})
}

func (s *session) observe(event driver.Event) error {
	if event.Type == driver.EventTestConcluded && event.Test < len(s.durations) {
		s.durations[event.Test] = event.Duration
	}
	return nil
}

func (s *session) finish() {
	s.finished = true

	records := s.harness.recorder.Snapshot()
	summary := results.Summarize(records)
	s.logger.Log(logging.LevelInfo, "suite finished", "passed", summary.Success, "failed", summary.Fail, "timed_out", summary.Timeout, "not_run", summary.NotRun)

	if s.options.ShowResultsAfter {
		if err := s.harness.display.Show(records, results.FormatText); err != nil {
			s.logger.Log(logging.LevelError, "could not show results", "err", err)
		}
	}

	if s.options.OnComplete != nil {
		s.options.OnComplete(records)
	}

	if s.mode == status.ModeAttach {
		s.driver.Interceptor().Restore()
		return
	}

	if s.options.ExitAfter {
		s.loop.Stop()
		return
	}

	// Hand the loop over to a regular instance of the application, which
	// now runs until it quits.
	if trace, ok := s.driver.Interceptor().Guard(s.entry); !ok {
		s.logger.Log(logging.LevelError, "entry function panicked after the suite", "trace", trace)
	}
}
