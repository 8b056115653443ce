/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package steps_test

import (
	"time"

	. "github.com/onsi/ginkgo"
	"github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"

	"github.com/hyperledger-labs/stepharness/pkg/steps"
)

func stepCheckLabel() steps.Action {
	return steps.Success()
}

var _ = Describe("Action", func() {
	table.DescribeTable("renders as text",
		func(action steps.Action, expected string) {
			Expect(action.String()).To(Equal(expected))
		},
		table.Entry("next", steps.Next(), "next"),
		table.Entry("delayed next", steps.NextAfter(400), "next(400ms)"),
		table.Entry("wait", steps.Wait(50), "wait(50ms)"),
		table.Entry("goto", steps.Goto(2), "goto(2)"),
		table.Entry("success", steps.Success(), "success"),
		table.Entry("delayed success", steps.SuccessAfter(500), "success(500ms)"),
		table.Entry("fail", steps.Failf("expected %d", 3), `fail("expected 3")`),
		table.Entry("zero value", steps.Action{}, "invalid"),
	)

	It("converts millisecond delays", func() {
		action := steps.Wait(50)
		Expect(action.Kind).To(Equal(steps.KindWait))
		Expect(action.Delayed).To(BeTrue())
		Expect(action.Delay).To(Equal(50 * time.Millisecond))
	})

	It("distinguishes an absent delay from a zero delay", func() {
		Expect(steps.Next().Delayed).To(BeFalse())
		Expect(steps.NextAfter(0).Delayed).To(BeTrue())
	})
})

var _ = Describe("Step", func() {
	It("derives names from functions", func() {
		step := steps.Func(stepCheckLabel)
		Expect(step.Name).To(Equal("stepCheckLabel"))
		Expect(step.Run()).To(Equal(steps.Success()))
	})

	It("keeps explicit names", func() {
		list := []steps.Step{
			steps.Named("click", steps.Next),
			steps.Named("verify", steps.Success),
		}
		Expect(steps.Names(list)).To(Equal([]string{"click", "verify"}))
	})

	It("wraps several functions at once", func() {
		list := steps.Funcs(stepCheckLabel, steps.Next)
		Expect(list).To(HaveLen(2))
		Expect(list[0].Name).To(Equal("stepCheckLabel"))
		Expect(list[1].Name).To(Equal("Next"))
	})
})
