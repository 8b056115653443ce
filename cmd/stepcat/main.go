/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// stepcat is a utility for reviewing recordings of test runs.
// It understands the format encoded via
// github.com/hyperledger-labs/stepharness/pkg/eventlog and is able to parse
// and filter these log files, and to summarize the outcomes they contain.
package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/hyperledger-labs/stepharness/pkg/eventlog"
	"github.com/hyperledger-labs/stepharness/pkg/results"
)

// command line flags
var (
	allEventTypes = []string{
		"TestBegan",
		"StepInvoked",
		"StepReturned",
		"TestConcluded",
	}
)

// excludeByType is used for --eventType/--notEventType.  The assumption is
// that at least one of include or exclude is nil.
func excludeByType(value string, include []string, exclude []string) bool {
	if include != nil {
		for _, includeName := range include {
			if includeName == value {
				return false
			}
		}

		return true
	}

	for _, excludeName := range exclude {
		if excludeName == value {
			return true
		}
	}

	return false
}

func excludedByTest(entry *eventlog.Entry, tests []uint64) bool {
	if tests == nil {
		return false
	}

	for _, test := range tests {
		if test == uint64(entry.Test) {
			return false
		}
	}

	return true
}

func excludedByRunID(entry *eventlog.Entry, runIDs []string) bool {
	if runIDs == nil {
		return false
	}

	for _, runID := range runIDs {
		if runID == entry.RunID {
			return false
		}
	}

	return true
}

type arguments struct {
	input         io.ReadCloser
	runIDs        []string
	tests         []uint64
	eventTypes    []string
	notEventTypes []string
	pretty        bool
	summary       bool
	quiet         bool
}

type outcomeKey struct {
	runID string
	test  int
}

func (a *arguments) shouldPrint(entry *eventlog.Entry) bool {
	if a.quiet {
		return false
	}
	if excludedByRunID(entry, a.runIDs) || excludedByTest(entry, a.tests) {
		return false
	}
	return !excludeByType(entry.Type, a.eventTypes, a.notEventTypes)
}

func (a *arguments) execute(output io.Writer) error {
	defer a.input.Close()

	// Create log reader.
	reader, err := eventlog.NewReader(a.input)
	if err != nil {
		return errors.WithMessage(err, "bad input file")
	}

	// Outcomes by run and test, for the summary.
	outcomes := map[outcomeKey]results.Record{}

	// The log itself does not explicitly keep track of indices,
	// so we need to keep track of them here.
	index := uint64(0)

	// Read entries from log until the reader returns the io.EOF error.
	for entry, err := reader.ReadEntry(); err != io.EOF; entry, err = reader.ReadEntry() {
		if err != nil {
			return errors.WithMessage(err, "failed reading input")
		}

		index++

		if entry.Type == "TestConcluded" && !excludedByRunID(entry, a.runIDs) && !excludedByTest(entry, a.tests) {
			outcomes[outcomeKey{runID: entry.RunID, test: entry.Test}] = recordOf(entry)
		}

		if !a.shouldPrint(entry) {
			continue
		}

		if a.pretty {
			fmt.Fprint(output, prettyFormat(index, entry))
			continue
		}
		fmt.Fprintf(output, "% 6d %s\n", index, textFormat(entry))
	}

	if a.summary {
		return summarize(output, outcomes, a.pretty)
	}

	return nil
}

func recordOf(entry *eventlog.Entry) results.Record {
	record := results.Record{Title: entry.Title}
	status := results.NotRun
	switch entry.Status {
	case "success":
		status = results.Success
	case "fail":
		status = results.Fail
	case "timeout":
		status = results.Timeout
	}
	if status != results.NotRun {
		// A fresh record accepts exactly one outcome.
		_ = record.Conclude(status, entry.FailMessage, entry.Exception)
	}
	return record
}

func summarize(output io.Writer, outcomes map[outcomeKey]results.Record, color bool) error {
	keys := make([]outcomeKey, 0, len(outcomes))
	for key := range outcomes {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].runID != keys[j].runID {
			return keys[i].runID < keys[j].runID
		}
		return keys[i].test < keys[j].test
	})

	records := make([]results.Record, len(keys))
	for i, key := range keys {
		records[i] = outcomes[key]
	}

	display := &results.TableDisplay{Output: output, Color: color}
	return display.Show(records, results.FormatText)
}

func parseArgs(args []string) (*arguments, error) {
	app := kingpin.New("stepcat", "Utility for processing step harness event logs.")
	input := app.Flag("input", "The input file to read (defaults to stdin).").Default(os.Stdin.Name()).File()
	runIDs := app.Flag("runID", "Report events from this run only (useful for concatenated logs), may be repeated").Strings()
	tests := app.Flag("test", "Report events of the test at this index only, may be repeated").Uint64List()
	eventTypes := app.Flag("eventType", "Which event types to report.").Enums(allEventTypes...)
	notEventTypes := app.Flag("notEventType", "Which event types to exclude. (Cannot combine with --eventType)").Enums(allEventTypes...)
	pretty := app.Flag("pretty", "Colorize the output.").Default("false").Bool()
	summary := app.Flag("summary", "Print a table of the test outcomes after the events.").Default("false").Bool()
	quiet := app.Flag("quiet", "Do not print events. (Must combine with --summary)").Default("false").Bool()

	_, err := app.Parse(args)
	if err != nil {
		return nil, err
	}

	switch {
	case *eventTypes != nil && *notEventTypes != nil:
		return nil, errors.Errorf("cannot set both --eventType and --notEventType")
	case *quiet && !*summary:
		return nil, errors.Errorf("cannot be quiet without printing a summary")
	}

	return &arguments{
		input:         *input,
		runIDs:        *runIDs,
		tests:         *tests,
		eventTypes:    *eventTypes,
		notEventTypes: *notEventTypes,
		pretty:        *pretty,
		summary:       *summary,
		quiet:         *quiet,
	}, nil
}

func main() {
	kingpin.Version("0.0.1")
	args, err := parseArgs(os.Args[1:])
	if err != nil {
		kingpin.Fatalf("failed to parse arguments, %s, try --help", err)
	}
	err = args.execute(os.Stdout)
	if err != nil {
		fmt.Println("")
		kingpin.Fatalf("%s", err)
	}
}
