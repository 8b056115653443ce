/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package loop_test

import (
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/hyperledger-labs/stepharness/pkg/loop"
)

var _ = Describe("Virtual", func() {
	var (
		v     *loop.Virtual
		order []string
	)

	record := func(name string) func() {
		return func() {
			order = append(order, name)
		}
	}

	BeforeEach(func() {
		v = loop.NewVirtual()
		order = nil
	})

	It("runs callbacks in deadline order", func() {
		v.After(30*time.Millisecond, record("c"))
		v.After(10*time.Millisecond, record("a"))
		v.After(20*time.Millisecond, record("b"))

		Expect(v.Run()).To(Succeed())
		Expect(order).To(Equal([]string{"a", "b", "c"}))
		Expect(v.Now()).To(Equal(30 * time.Millisecond))
		Expect(v.Stopped()).To(BeFalse())
	})

	It("runs callbacks with equal deadlines in scheduling order", func() {
		v.After(10*time.Millisecond, record("first"))
		v.After(10*time.Millisecond, record("second"))
		v.After(0, record("zero"))
		v.After(10*time.Millisecond, record("third"))

		Expect(v.Run()).To(Succeed())
		Expect(order).To(Equal([]string{"zero", "first", "second", "third"}))
	})

	It("does not run cancelled callbacks", func() {
		id := v.After(10*time.Millisecond, record("cancelled"))
		v.After(20*time.Millisecond, record("kept"))
		v.Cancel(id)
		v.Cancel(id)

		Expect(v.Run()).To(Succeed())
		Expect(order).To(Equal([]string{"kept"}))
	})

	It("measures delays from the callback currently executing", func() {
		v.After(10*time.Millisecond, func() {
			v.After(5*time.Millisecond, record("nested"))
		})
		v.After(12*time.Millisecond, record("outer"))

		Expect(v.Run()).To(Succeed())
		Expect(order).To(Equal([]string{"outer", "nested"}))
		Expect(v.Now()).To(Equal(15 * time.Millisecond))
	})

	It("stops after the current callback when Stop is called", func() {
		v.After(0, func() {
			order = append(order, "stopping")
			v.Stop()
		})
		v.After(0, record("left over"))

		Expect(v.Run()).To(Succeed())
		Expect(order).To(Equal([]string{"stopping"}))
		Expect(v.Stopped()).To(BeTrue())
		Expect(v.Pending()).To(Equal(1))
	})

	It("refuses to schedule into the past", func() {
		Expect(func() { v.After(-time.Millisecond, func() {}) }).To(Panic())
	})

	It("only advances to the requested time with RunFor", func() {
		v.After(10*time.Millisecond, record("early"))
		v.After(50*time.Millisecond, record("late"))

		v.RunFor(20 * time.Millisecond)
		Expect(order).To(Equal([]string{"early"}))
		Expect(v.Now()).To(Equal(20 * time.Millisecond))
		Expect(v.Pending()).To(Equal(1))
	})

	When("an error handler is installed", func() {
		var recovered []interface{}

		BeforeEach(func() {
			recovered = nil
			previous := v.SetErrorHandler(func(r interface{}, stack []byte) {
				recovered = append(recovered, r)
				Expect(stack).NotTo(BeEmpty())
			})
			Expect(previous).To(BeNil())
		})

		It("delivers panics to the handler and keeps running", func() {
			v.After(0, func() { panic("boom") })
			v.After(0, record("after"))

			Expect(v.Run()).To(Succeed())
			Expect(recovered).To(Equal([]interface{}{"boom"}))
			Expect(order).To(Equal([]string{"after"}))
		})

		It("returns the installed handler when replaced", func() {
			previous := v.SetErrorHandler(nil)
			Expect(previous).NotTo(BeNil())
		})
	})

	It("propagates panics without an error handler", func() {
		v.After(0, func() { panic("unhandled") })
		Expect(func() { v.Run() }).To(PanicWith("unhandled"))
	})
})
