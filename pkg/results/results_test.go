/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package results_test

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/hyperledger-labs/stepharness/pkg/results"
)

var _ = Describe("Recorder", func() {
	var recorder *results.Recorder

	BeforeEach(func() {
		recorder = &results.Recorder{}
		recorder.Add("A", []string{"click", "verify"}, false)
		recorder.Add("B", []string{"fail"}, true)
	})

	It("keeps records in registration order", func() {
		Expect(recorder.Len()).To(Equal(2))
		Expect(recorder.Get(0).Title).To(Equal("A"))
		Expect(recorder.Get(1).AllowsQuit).To(BeTrue())
	})

	It("writes an outcome only once", func() {
		record := recorder.Get(1)
		Expect(record.Conclude(results.Fail, "x", "")).To(Succeed())
		Expect(record.Conclude(results.Success, "", "")).To(MatchError(results.ErrAlreadyConcluded))
		Expect(record.Status).To(Equal(results.Fail))
		Expect(*record.FailMessage).To(Equal("x"))
		Expect(record.Exception).To(BeNil())
	})

	It("keeps an empty failure reason as an empty message", func() {
		failed := recorder.Get(0)
		Expect(failed.Conclude(results.Fail, "", "")).To(Succeed())
		Expect(failed.FailMessage).NotTo(BeNil())
		Expect(*failed.FailMessage).To(BeEmpty())

		timedOut := recorder.Get(1)
		Expect(timedOut.Conclude(results.Timeout, "", "")).To(Succeed())
		Expect(timedOut.FailMessage).To(BeNil())

		body, err := results.JSON(recorder.Snapshot())
		Expect(err).NotTo(HaveOccurred())
		Expect(body).To(ContainSubstring(`"fail_message": ""`))
		Expect(body).To(ContainSubstring(`"fail_message": null`))
	})

	It("returns snapshots which do not alias the live records", func() {
		Expect(recorder.Get(0).Conclude(results.Fail, "before", "")).To(Succeed())
		snapshot := recorder.Snapshot()

		recorder.Clear()
		Expect(recorder.Get(0).Status).To(Equal(results.NotRun))
		Expect(snapshot[0].Status).To(Equal(results.Fail))
		Expect(*snapshot[0].FailMessage).To(Equal("before"))
	})

	It("summarizes statuses", func() {
		Expect(recorder.Get(0).Conclude(results.Success, "", "")).To(Succeed())
		summary := results.Summarize(recorder.Snapshot())
		Expect(summary).To(Equal(results.Summary{Total: 2, Success: 1, NotRun: 1}))
		Expect(summary.Passed()).To(BeFalse())
	})
})

var _ = Describe("Formats", func() {
	var records []results.Record

	BeforeEach(func() {
		recorder := &results.Recorder{}
		recorder.Add("A", []string{"step_one", "step_two"}, false)
		recorder.Add("B", []string{"step"}, false)
		recorder.Add("C", []string{"step"}, true)
		recorder.Add("D", nil, false)
		Expect(recorder.Get(0).Conclude(results.Success, "", "")).To(Succeed())
		Expect(recorder.Get(1).Conclude(results.Fail, "x", "")).To(Succeed())
		Expect(recorder.Get(2).Conclude(results.Timeout, "", "")).To(Succeed())
		records = recorder.Snapshot()
	})

	It("parses format names and their single letter forms", func() {
		Expect(results.ParseFormat("J")).To(Equal(results.FormatJSON))
		Expect(results.ParseFormat("text")).To(Equal(results.FormatText))
		_, err := results.ParseFormat("xml")
		Expect(err).To(MatchError(ContainSubstring("unknown results format")))
	})

	It("renders JSON with null for tests which did not run", func() {
		body, err := results.Render(records, results.FormatJSON)
		Expect(err).NotTo(HaveOccurred())
		Expect(body).To(MatchJSON(`[
			{"title": "A", "steps": ["step_one", "step_two"], "allowsQuit": false, "status": "success", "fail_message": null, "exception": null},
			{"title": "B", "steps": ["step"], "allowsQuit": false, "status": "fail", "fail_message": "x", "exception": null},
			{"title": "C", "steps": ["step"], "allowsQuit": true, "status": "timeout", "fail_message": null, "exception": null},
			{"title": "D", "steps": null, "allowsQuit": false, "status": null, "fail_message": null, "exception": null}
		]`))
	})

	It("keeps the field order of the JSON objects", func() {
		body, err := results.JSON(records[:1])
		Expect(err).NotTo(HaveOccurred())
		Expect(body).To(Equal(`[
  {
    "title": "A",
    "steps": [
      "step_one",
      "step_two"
    ],
    "allowsQuit": false,
    "status": "success",
    "fail_message": null,
    "exception": null
  }
]`))
	})

	It("reads back what it renders", func() {
		body, err := results.JSON(records)
		Expect(err).NotTo(HaveOccurred())
		parsed, err := results.ParseJSON([]byte(body))
		Expect(err).NotTo(HaveOccurred())
		Expect(parsed).To(Equal(records))
	})

	It("renders text with one line per test", func() {
		body, err := results.Render(records, results.FormatText)
		Expect(err).NotTo(HaveOccurred())
		Expect(body).To(Equal("[SUCCESS] A\n" +
			"[FAIL] B\n" +
			"         x\n" +
			"[TIMEOUT] C\n" +
			"[NOT RUN] D\n" +
			"\nSummary: 1 passed, 1 failed, 1 timed out, 1 not run\n"))
	})

	It("writes results to a file", func() {
		dir, err := ioutil.TempDir("", "results")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(dir)

		path := filepath.Join(dir, "results.json")
		Expect(results.WriteFile(path, records, results.FormatJSON)).To(Succeed())

		data, err := ioutil.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		parsed, err := results.ParseJSON(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(parsed).To(HaveLen(4))
	})

	It("displays a table", func() {
		output := &bytes.Buffer{}
		display := &results.TableDisplay{Output: output}
		Expect(display.Show(records, results.FormatText)).To(Succeed())
		Expect(output.String()).To(ContainSubstring("Test Results"))
		Expect(output.String()).To(ContainSubstring("TIMEOUT"))
		Expect(output.String()).To(ContainSubstring("1 passed"))
	})
})
