/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package driver_test

import (
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/hyperledger-labs/stepharness/pkg/driver"
	"github.com/hyperledger-labs/stepharness/pkg/loop"
	"github.com/hyperledger-labs/stepharness/pkg/results"
	"github.com/hyperledger-labs/stepharness/pkg/steps"
)

const timeoutMs = 500

func ptr(s string) *string {
	return &s
}

var _ = Describe("Driver", func() {
	var (
		v         *loop.Virtual
		d         *driver.Driver
		concluded []*driver.Test
		events    []driver.Event
		invoked   []int
	)

	newTest := func(allowsQuit bool, fns ...func() steps.Action) *driver.Test {
		t := &driver.Test{
			Index:      len(concluded),
			Title:      "test",
			AllowsQuit: allowsQuit,
			Record:     &results.Record{Title: "test"},
		}
		for i, fn := range fns {
			i, fn := i, fn
			t.Steps = append(t.Steps, steps.Named("step", func() steps.Action {
				invoked = append(invoked, i)
				return fn()
			}))
		}
		return t
	}

	begin := func(t *driver.Test) {
		v.Post(func() {
			Expect(d.Begin(t)).To(Succeed())
		})
	}

	BeforeEach(func() {
		v = loop.NewVirtual()
		concluded = nil
		events = nil
		invoked = nil
		d = driver.New(v, driver.Config{
			Timeout: timeoutMs * time.Millisecond,
			Observers: []driver.Observer{
				driver.ObserverFunc(func(e driver.Event) error {
					events = append(events, e)
					return nil
				}),
			},
			OnConcluded: func(t *driver.Test) {
				concluded = append(concluded, t)
			},
		})
		d.Interceptor().Install()
	})

	It("succeeds once the steps are exhausted", func() {
		t := newTest(false, steps.Next, steps.Next)
		begin(t)
		Expect(v.Run()).To(Succeed())

		Expect(t.Record.Status).To(Equal(results.Success))
		Expect(invoked).To(Equal([]int{0, 1}))
		Expect(concluded).To(ConsistOf(t))
	})

	It("chains immediate steps within a single tick", func() {
		t := newTest(false, steps.Next, steps.Next, steps.Success)
		begin(t)
		Expect(v.Step()).To(BeTrue())

		Expect(t.Record.Status).To(Equal(results.Success))
		Expect(v.Now()).To(BeZero())
	})

	It("succeeds an empty test", func() {
		t := newTest(false)
		begin(t)
		Expect(v.Run()).To(Succeed())
		Expect(t.Record.Status).To(Equal(results.Success))
	})

	It("fails with the reason of a Fail action", func() {
		t := newTest(false, func() steps.Action { return steps.Fail("deliberate") }, steps.Success)
		begin(t)
		Expect(v.Run()).To(Succeed())

		Expect(t.Record.Status).To(Equal(results.Fail))
		Expect(*t.Record.FailMessage).To(Equal("deliberate"))
		Expect(invoked).To(Equal([]int{0}))
	})

	It("delays the following step with NextAfter", func() {
		var invokedAt time.Duration
		t := newTest(false,
			func() steps.Action { return steps.NextAfter(100) },
			func() steps.Action {
				invokedAt = v.Now()
				return steps.Success()
			},
		)
		begin(t)
		Expect(v.Run()).To(Succeed())

		Expect(t.Record.Status).To(Equal(results.Success))
		Expect(invokedAt).To(Equal(100 * time.Millisecond))
	})

	It("invokes the same step again after a Wait", func() {
		waited := false
		t := newTest(false, func() steps.Action {
			if !waited {
				waited = true
				return steps.Wait(50)
			}
			return steps.Success()
		})
		begin(t)
		Expect(v.Run()).To(Succeed())

		Expect(t.Record.Status).To(Equal(results.Success))
		Expect(invoked).To(Equal([]int{0, 0}))
		Expect(v.Now()).To(Equal(50 * time.Millisecond))
	})

	It("jumps with Goto within the same tick", func() {
		count := 0
		t := newTest(false, func() steps.Action {
			count++
			if count < 3 {
				return steps.Goto(0)
			}
			return steps.Success()
		})
		begin(t)
		Expect(v.Step()).To(BeTrue())

		Expect(t.Record.Status).To(Equal(results.Success))
		Expect(invoked).To(Equal([]int{0, 0, 0}))
	})

	It("fails on a Goto outside of the test", func() {
		t := newTest(false, func() steps.Action { return steps.Goto(5) })
		begin(t)
		Expect(v.Run()).To(Succeed())

		Expect(t.Record.Status).To(Equal(results.Fail))
		Expect(*t.Record.FailMessage).To(ContainSubstring("requested goto 5"))
	})

	It("fails on a Wait with a negative delay", func() {
		t := newTest(false, func() steps.Action { return steps.Wait(-1) })
		begin(t)
		Expect(v.Run()).To(Succeed())

		Expect(t.Record.Status).To(Equal(results.Fail))
		Expect(*t.Record.FailMessage).To(ContainSubstring("unschedulable delay"))
	})

	It("fails a step which returns no action", func() {
		t := newTest(false, func() steps.Action { return steps.Action{} })
		begin(t)
		Expect(v.Run()).To(Succeed())

		Expect(t.Record.Status).To(Equal(results.Fail))
		Expect(*t.Record.FailMessage).To(ContainSubstring("returned no action"))
	})

	It("times out a test which keeps waiting", func() {
		t := newTest(false, func() steps.Action { return steps.Wait(timeoutMs * 2) })
		begin(t)
		Expect(v.Run()).To(Succeed())

		Expect(t.Record.Status).To(Equal(results.Timeout))
		Expect(t.Record.FailMessage).To(BeNil())
		Expect(t.Record.Exception).To(BeNil())
		Expect(v.Now()).To(Equal(timeoutMs * 2 * time.Millisecond))
		Expect(invoked).To(Equal([]int{0}))
	})

	It("lets the timeout win against a later delayed success", func() {
		t := newTest(false, func() steps.Action { return steps.SuccessAfter(timeoutMs + 1) })
		begin(t)
		Expect(v.Run()).To(Succeed())

		Expect(t.Record.Status).To(Equal(results.Timeout))
		Expect(concluded).To(HaveLen(1))
	})

	It("lets a delayed success win against a later timeout", func() {
		t := newTest(false, func() steps.Action { return steps.SuccessAfter(timeoutMs - 1) })
		begin(t)
		Expect(v.Run()).To(Succeed())

		Expect(t.Record.Status).To(Equal(results.Success))
		Expect(concluded).To(HaveLen(1))
	})

	It("cancels the timeout when the test concludes", func() {
		t := newTest(false, steps.Success)
		begin(t)
		Expect(v.Step()).To(BeTrue())

		Expect(t.Record.Status).To(Equal(results.Success))
		Expect(v.Pending()).To(BeZero())
	})

	It("writes the outcome only once", func() {
		t := newTest(false, func() steps.Action { return steps.SuccessAfter(10) })
		begin(t)
		Expect(v.Run()).To(Succeed())
		Expect(t.Record.Status).To(Equal(results.Success))

		v.After(timeoutMs*time.Millisecond, func() {})
		Expect(v.Run()).To(Succeed())
		Expect(concluded).To(HaveLen(1))

		var concludedEvents int
		for _, e := range events {
			if e.Type == driver.EventTestConcluded {
				concludedEvents++
			}
		}
		Expect(concludedEvents).To(Equal(1))
	})

	It("ignores timers left over from a concluded test", func() {
		first := newTest(false,
			func() steps.Action { return steps.NextAfter(100) },
			func() steps.Action { return steps.Fail("stale timer ran") },
		)

		var finishedAt []time.Duration
		second := newTest(false,
			func() steps.Action { return steps.NextAfter(150) },
			func() steps.Action {
				finishedAt = append(finishedAt, v.Now())
				return steps.Success()
			},
		)

		begin(first)
		Expect(v.Step()).To(BeTrue())
		v.Post(d.Quit)
		Expect(v.Step()).To(BeTrue())
		Expect(first.Record.Status).To(Equal(results.Fail))
		Expect(*first.Record.FailMessage).To(Equal(driver.UnexpectedQuitMessage))

		begin(second)
		Expect(v.Run()).To(Succeed())
		Expect(second.Record.Status).To(Equal(results.Success))
		Expect(finishedAt).To(Equal([]time.Duration{150 * time.Millisecond}))
	})

	It("refuses to begin while a test is active", func() {
		t := newTest(false, func() steps.Action { return steps.Wait(10) })
		begin(t)
		Expect(v.Step()).To(BeTrue())
		Expect(d.Begin(newTest(false, steps.Success))).To(MatchError(driver.ErrTestActive))
	})

	It("aborts a test without invoking its steps", func() {
		t := newTest(false, steps.Success)
		v.Post(func() {
			Expect(d.Abort(t, results.Fail, results.ExceptionMessage, "setup failed")).To(Succeed())
		})
		Expect(v.Run()).To(Succeed())

		Expect(invoked).To(BeEmpty())
		Expect(t.Record.Status).To(Equal(results.Fail))
		Expect(*t.Record.FailMessage).To(Equal(results.ExceptionMessage))
		Expect(*t.Record.Exception).To(Equal("setup failed"))
		Expect(concluded).To(Equal([]*driver.Test{t}))
		Expect(events).To(HaveLen(2))
		Expect(events[0].Type).To(Equal(driver.EventTestBegan))
		Expect(events[1].Type).To(Equal(driver.EventTestConcluded))
		Expect(events[1].Record.Status).To(Equal(results.Fail))
		Expect(v.Now()).To(BeZero())
		Expect(d.Active()).To(BeNil())
	})

	It("refuses to abort while a test is active", func() {
		t := newTest(false, func() steps.Action { return steps.Wait(10) })
		begin(t)
		Expect(v.Step()).To(BeTrue())
		Expect(d.Abort(newTest(false, steps.Success), results.Fail, "", "")).To(MatchError(driver.ErrTestActive))
	})

	It("keeps an empty failure reason", func() {
		t := newTest(false, func() steps.Action { return steps.Fail("") })
		begin(t)
		Expect(v.Run()).To(Succeed())

		Expect(t.Record.Status).To(Equal(results.Fail))
		Expect(t.Record.FailMessage).To(Equal(ptr("")))
	})

	Describe("panics", func() {
		It("fails a step which panics and attaches the trace", func() {
			t := newTest(false, func() steps.Action { panic("boom") })
			begin(t)
			Expect(v.Run()).To(Succeed())

			Expect(t.Record.Status).To(Equal(results.Fail))
			Expect(*t.Record.FailMessage).To(Equal(results.ExceptionMessage))
			Expect(*t.Record.Exception).To(ContainSubstring("panic: boom"))
		})

		It("fails the test when a callback triggered by a step panics", func() {
			t := newTest(false,
				func() steps.Action {
					v.Post(func() { panic("button handler") })
					return steps.NextAfter(10)
				},
				steps.Success,
			)
			begin(t)
			Expect(v.Run()).To(Succeed())

			Expect(t.Record.Status).To(Equal(results.Fail))
			Expect(*t.Record.Exception).To(ContainSubstring("button handler"))
			Expect(invoked).To(Equal([]int{0}))
		})

		It("passes panics outside of a test to the previous handler", func() {
			d.Interceptor().Restore()

			var previous []interface{}
			v.SetErrorHandler(func(r interface{}, stack []byte) {
				previous = append(previous, r)
			})
			d.Interceptor().Install()

			v.Post(func() { panic("idle") })
			Expect(v.Run()).To(Succeed())
			Expect(previous).To(Equal([]interface{}{"idle"}))

			d.Interceptor().Restore()
			Expect(d.Interceptor().Installed()).To(BeFalse())
			v.Post(func() { panic("restored") })
			Expect(v.Run()).To(Succeed())
			Expect(previous).To(Equal([]interface{}{"idle", "restored"}))
		})
	})

	Describe("quit", func() {
		It("fails a test which does not allow quitting, synchronously", func() {
			t := newTest(false,
				func() steps.Action {
					d.Quit()
					return steps.Next()
				},
				steps.Success,
			)
			begin(t)
			Expect(v.Run()).To(Succeed())

			Expect(t.Record.Status).To(Equal(results.Fail))
			Expect(*t.Record.FailMessage).To(Equal(driver.UnexpectedQuitMessage))
			Expect(invoked).To(Equal([]int{0}))
			Expect(v.Stopped()).To(BeFalse())
		})

		It("only records the request during a test which allows quitting", func() {
			t := newTest(true,
				func() steps.Action {
					d.Quit()
					return steps.NextAfter(10)
				},
				func() steps.Action {
					if d.QuitRequested() {
						return steps.Success()
					}
					return steps.Fail("quit request was lost")
				},
			)
			begin(t)
			Expect(v.Run()).To(Succeed())

			Expect(t.Record.Status).To(Equal(results.Success))
			Expect(v.Stopped()).To(BeFalse())
			Expect(d.QuitRequested()).To(BeFalse())
		})

		It("stops the loop without an active test", func() {
			v.Post(d.Quit)
			v.Post(func() { Fail("loop kept running") })
			Expect(v.Run()).To(Succeed())
			Expect(v.Stopped()).To(BeTrue())
		})
	})

	It("reports the events of a test to observers", func() {
		t := newTest(false, func() steps.Action { return steps.NextAfter(10) }, steps.Success)
		begin(t)
		Expect(v.Run()).To(Succeed())

		var types []driver.EventType
		for _, e := range events {
			types = append(types, e.Type)
		}
		Expect(types).To(Equal([]driver.EventType{
			driver.EventTestBegan,
			driver.EventStepInvoked,
			driver.EventStepReturned,
			driver.EventStepInvoked,
			driver.EventStepReturned,
			driver.EventTestConcluded,
		}))

		last := events[len(events)-1]
		Expect(last.Record.Status).To(Equal(results.Success))
		Expect(last.Duration).To(Equal(10 * time.Millisecond))
		Expect(events[2].Action).To(Equal(steps.NextAfter(10)))
	})

	It("reports the status of the active test", func() {
		t := newTest(false, func() steps.Action { return steps.Wait(20) })
		begin(t)
		Expect(v.Step()).To(BeTrue())
		v.RunFor(30 * time.Millisecond)

		s := d.Status()
		Expect(s).NotTo(BeNil())
		Expect(s.StepIndex).To(Equal(0))
		Expect(s.Elapsed).To(Equal(30 * time.Millisecond))
	})
})
