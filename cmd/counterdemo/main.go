/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// counterdemo runs the suite of the sample counter application in host
// mode, on a wall clock loop.  Besides the results, it can record the
// driver events, journal the outcomes as they conclude, keep a history of
// runs to report regressions against, and export prometheus metrics.
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/hyperledger-labs/stepharness/config"
	"github.com/hyperledger-labs/stepharness/pkg/eventlog"
	"github.com/hyperledger-labs/stepharness/pkg/harness"
	"github.com/hyperledger-labs/stepharness/pkg/journal"
	"github.com/hyperledger-labs/stepharness/pkg/logging"
	"github.com/hyperledger-labs/stepharness/pkg/loop"
	"github.com/hyperledger-labs/stepharness/pkg/metrics"
	"github.com/hyperledger-labs/stepharness/pkg/profiling"
	"github.com/hyperledger-labs/stepharness/pkg/results"
	"github.com/hyperledger-labs/stepharness/pkg/resultstore"
	"github.com/hyperledger-labs/stepharness/samples/counter"
)

type arguments struct {
	config      *config.Config
	runID       string
	color       bool
	profiles    map[string]string
	profileRate int
}

func parseArgs(args []string) (*arguments, error) {
	app := kingpin.New("counterdemo", "Runs the counter sample suite.")
	configFile := app.Flag("config", "YAML run configuration; flags override its fields.").String()
	flags := app.Flag("flags", "Compact run flags: x exits after the suite, s shows the results.").String()
	timeout := app.Flag("timeout", "Per test timeout in milliseconds.").Int()
	format := app.Flag("format", "Format of the written results.").Enum("text", "json", "T", "J")
	resultsPath := app.Flag("results", "Write the results to this file.").String()
	eventLog := app.Flag("eventLog", "Record the driver events to this file.").String()
	journalDir := app.Flag("journal", "Journal the outcomes to this directory.").String()
	historyDir := app.Flag("history", "Keep the run history in this directory.").String()
	metricsFile := app.Flag("metricsFile", "Write prometheus metrics to this file.").String()
	logLevel := app.Flag("logLevel", "Minimum level of log messages.").Enum("debug", "info", "warn", "error")
	logger := app.Flag("logger", "Logging backend.").Enum(config.LoggerConsole, config.LoggerZerolog, config.LoggerZap)
	runID := app.Flag("runID", "Identifier of the run (defaults to a random UUID).").String()
	color := app.Flag("color", "Colorize the results table.").Default("false").Bool()
	profiles := app.Flag("profile", "Write a runtime profile over the run, as name=file (e.g. cpu=cpu.out).").StringMap()
	profileRate := app.Flag("profileRate", "Rate of the block and mutex profiles.").Default("1").Int()

	_, err := app.Parse(args)
	if err != nil {
		return nil, err
	}

	c := config.Default()
	if *configFile != "" {
		c, err = config.LoadFile(*configFile)
		if err != nil {
			return nil, err
		}
	}

	if *flags != "" {
		opts, err := harness.ParseFlags(*flags)
		if err != nil {
			return nil, err
		}
		c.Exit = opts.ExitAfter
		c.Show = opts.ShowResultsAfter
	}

	if *timeout != 0 {
		c.TimeoutMs = *timeout
	}
	override := func(field *string, value string) {
		if value != "" {
			*field = value
		}
	}
	override(&c.ResultsFormat, *format)
	override(&c.ResultsPath, *resultsPath)
	override(&c.EventLog, *eventLog)
	override(&c.Journal, *journalDir)
	override(&c.HistoryDir, *historyDir)
	override(&c.MetricsFile, *metricsFile)
	override(&c.LogLevel, *logLevel)
	override(&c.Logger, *logger)

	if err := c.Validate(); err != nil {
		return nil, err
	}

	if *runID == "" {
		*runID = uuid.New().String()
	}

	return &arguments{
		config:      c,
		runID:       *runID,
		color:       *color,
		profiles:    *profiles,
		profileRate: *profileRate,
	}, nil
}

// execute runs the suite and returns the results.  An error is returned
// if the run could not be carried out, not if tests failed.
func (a *arguments) execute(output io.Writer) ([]results.Record, error) {
	c := a.config
	started := time.Now()

	logger, err := c.NewLogger(os.Stderr)
	if err != nil {
		return nil, err
	}
	logger = logging.Synchronize(logging.Decorate(logger, "", "run_id", a.runID))

	if len(a.profiles) > 0 {
		profiler := profiling.New()
		for name, file := range a.profiles {
			if err := profiler.Start(name, file, a.profileRate); err != nil {
				profiler.Stop()
				return nil, err
			}
		}
		defer profiler.Stop()
	}

	clock := loop.NewClock()
	opts := []harness.Opt{
		harness.LoggerOpt(logger),
		harness.LoopOpt(clock),
		harness.OutputOpt(output),
		harness.DisplayOpt(&results.TableDisplay{Output: output, Color: a.color}),
	}

	var recorder *eventlog.Recorder
	if c.EventLog != "" {
		f, err := os.Create(c.EventLog)
		if err != nil {
			return nil, errors.WithMessage(err, "could not create event log")
		}
		defer f.Close()

		recorder = eventlog.NewRecorder(f, eventlog.RunIDOpt(a.runID))
		opts = append(opts, harness.ObserverOpt(recorder))
	}

	if c.Journal != "" {
		j, err := journal.Open(c.Journal, a.runID)
		if err != nil {
			return nil, err
		}
		defer j.Close()
		opts = append(opts, harness.ObserverOpt(j))
	}

	var m *metrics.Metrics
	if c.MetricsFile != "" {
		m = metrics.New(a.runID)
		opts = append(opts, harness.ObserverOpt(m))
	}

	h := harness.New(opts...)
	if err := h.SetTimeout(c.TimeoutMs); err != nil {
		return nil, err
	}

	app := counter.New(clock, h.Quit)
	if err := counter.Register(h, app); err != nil {
		return nil, err
	}

	// An interrupt closes the application as a user would.
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	forwarded := forwardInterrupts(interrupts, logger, func() { clock.Post(h.Quit) })
	defer func() {
		signal.Stop(interrupts)
		close(interrupts)
		<-forwarded
	}()

	if err := h.RunHost(app.Entry, c.RunOptions()); err != nil {
		return nil, err
	}

	if recorder != nil {
		if err := recorder.Stop(); err != nil {
			return nil, errors.WithMessage(err, "could not complete event log")
		}
	}

	records := h.Results()

	if c.ResultsPath != "" {
		if err := results.WriteFile(c.ResultsPath, records, c.Format()); err != nil {
			return nil, err
		}
	}

	if m != nil {
		if err := m.WriteFile(c.MetricsFile); err != nil {
			return nil, errors.WithMessage(err, "could not write metrics")
		}
	}

	if c.HistoryDir != "" {
		if err := a.compareHistory(output, started, records); err != nil {
			return nil, err
		}
	}

	return records, nil
}

// forwardInterrupts calls quit for every signal received on interrupts.
// The returned channel is closed once interrupts is closed.
func forwardInterrupts(interrupts <-chan os.Signal, logger logging.Logger, quit func()) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range interrupts {
			logger.Log(logging.LevelWarn, "interrupted, closing the application")
			quit()
		}
	}()
	return done
}

func (a *arguments) compareHistory(output io.Writer, started time.Time, records []results.Record) error {
	store, err := resultstore.Open(a.config.HistoryDir)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.PutRun(&resultstore.Run{ID: a.runID, Started: started, Records: records}); err != nil {
		return err
	}

	previous, err := store.Previous(a.runID)
	if err != nil {
		return err
	}
	if previous == nil {
		return nil
	}

	regressions, fixes := resultstore.Compare(previous.Records, records)
	for _, change := range regressions {
		fmt.Fprintf(output, "REGRESSION %s: %s -> %s (since run %s)\n", change.Title, results.StatusLabel(change.Before), results.StatusLabel(change.After), previous.ID)
	}
	for _, change := range fixes {
		fmt.Fprintf(output, "FIXED %s: %s -> %s (since run %s)\n", change.Title, results.StatusLabel(change.Before), results.StatusLabel(change.After), previous.ID)
	}

	return nil
}

func main() {
	kingpin.Version("0.0.1")
	args, err := parseArgs(os.Args[1:])
	if err != nil {
		kingpin.Fatalf("failed to parse arguments, %s, try --help", err)
	}
	records, err := args.execute(os.Stdout)
	if err != nil {
		fmt.Println("")
		kingpin.Fatalf("%s", err)
	}

	if summary := results.Summarize(records); !summary.Passed() {
		kingpin.Fatalf("%d of %d tests did not pass", summary.Total-summary.Success, summary.Total)
	}
}
