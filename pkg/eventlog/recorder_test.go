/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package eventlog_test

import (
	"bytes"
	"io"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/hyperledger-labs/stepharness/pkg/driver"
	"github.com/hyperledger-labs/stepharness/pkg/eventlog"
	"github.com/hyperledger-labs/stepharness/pkg/loop"
	"github.com/hyperledger-labs/stepharness/pkg/results"
	"github.com/hyperledger-labs/stepharness/pkg/steps"
)

var beganEvent = driver.Event{
	Type:  driver.EventTestBegan,
	Time:  3 * time.Millisecond,
	Test:  1,
	Title: "opens the window",
}

var _ = Describe("Recorder", func() {
	var (
		output *bytes.Buffer
	)

	BeforeEach(func() {
		output = &bytes.Buffer{}
	})

	It("records and writes driver events", func() {
		recorder := eventlog.NewRecorder(
			output,
			eventlog.TimeSourceOpt(func() int64 { return 2 }),
			eventlog.BufferSizeOpt(3),
		)
		Expect(recorder.Observe(beganEvent)).To(Succeed())
		Expect(recorder.Observe(beganEvent)).To(Succeed())
		err := recorder.Stop()
		Expect(err).NotTo(HaveOccurred())
		Expect(output.Len()).To(BeNumerically(">", 0))
	})

	It("records every event of a driven test", func() {
		recorder := eventlog.NewRecorder(output, eventlog.RunIDOpt("run-1"))

		v := loop.NewVirtual()
		d := driver.New(v, driver.Config{
			Observers: []driver.Observer{recorder},
		})
		test := &driver.Test{
			Title: "fails",
			Steps: []steps.Step{
				steps.Named("wait", func() steps.Action { return steps.NextAfter(20) }),
				steps.Named("fail", func() steps.Action { return steps.Fail("deliberate") }),
			},
			Record: &results.Record{Title: "fails"},
		}
		v.Post(func() {
			Expect(d.Begin(test)).To(Succeed())
		})
		Expect(v.Run()).To(Succeed())
		Expect(recorder.Stop()).To(Succeed())

		reader, err := eventlog.NewReader(output)
		Expect(err).NotTo(HaveOccurred())

		var entries []*eventlog.Entry
		for {
			entry, err := reader.ReadEntry()
			if err == io.EOF {
				break
			}
			Expect(err).NotTo(HaveOccurred())
			entries = append(entries, entry)
		}

		Expect(entries).To(HaveLen(6))
		Expect(entries[0].Type).To(Equal("TestBegan"))
		Expect(entries[0].RunID).To(Equal("run-1"))
		Expect(entries[2].Action).To(Equal("next(20ms)"))
		Expect(entries[3].StepName).To(Equal("fail"))
		Expect(entries[3].LoopTimeMs).To(Equal(int64(20)))

		last := entries[5]
		Expect(last.Type).To(Equal("TestConcluded"))
		Expect(last.Status).To(Equal("fail"))
		Expect(last.FailMessage).To(Equal("deliberate"))
		Expect(last.DurationMs).To(Equal(int64(20)))
	})
})

var _ = Describe("Reader", func() {

	var (
		output *bytes.Buffer
	)

	BeforeEach(func() {
		output = &bytes.Buffer{}
		recorder := eventlog.NewRecorder(
			output,
			eventlog.TimeSourceOpt(func() int64 { return 2 }),
		)
		Expect(recorder.Observe(beganEvent)).To(Succeed())
		Expect(recorder.Observe(beganEvent)).To(Succeed())
		err := recorder.Stop()
		Expect(err).NotTo(HaveOccurred())
	})

	It("can be read back with a Reader", func() {
		reader, err := eventlog.NewReader(output)
		Expect(err).NotTo(HaveOccurred())

		expected := &eventlog.Entry{
			Time:       2,
			LoopTimeMs: 3,
			Type:       "TestBegan",
			Test:       1,
			Title:      "opens the window",
		}

		entry, err := reader.ReadEntry()
		Expect(err).NotTo(HaveOccurred())
		Expect(entry).To(Equal(expected))

		entry, err = reader.ReadEntry()
		Expect(err).NotTo(HaveOccurred())
		Expect(entry).To(Equal(expected))

		_, err = reader.ReadEvent()
		Expect(err).To(Equal(io.EOF))
	})

	When("the output is truncated", func() {
		BeforeEach(func() {
			output.Truncate(2)
		})

		It("reading returns an error", func() {
			_, err := eventlog.NewReader(output)
			Expect(err).To(MatchError("could not read source as a gzip stream: unexpected EOF"))
		})
	})
})
