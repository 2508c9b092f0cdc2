// Copyright (c) 2023-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package formstate

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Labels", func() {
	var registry *LabelRegistry

	BeforeEach(func() {
		registry = NewLabelRegistry()
	})

	Describe("LabelRegistry", func() {
		It("Should reserve labels once", func() {
			Expect(registry.Claim("aligned")).To(Succeed())
			Expect(registry.Taken("aligned")).To(BeTrue())
			Expect(registry.Claim("aligned")).To(MatchError("label is already in use: aligned"))

			registry.Release("aligned")
			Expect(registry.Taken("aligned")).To(BeFalse())
			Expect(registry.Claim("aligned")).To(Succeed())
		})

		It("Should never reserve the empty label", func() {
			Expect(registry.Claim("")).To(Succeed())
			Expect(registry.Claim("")).To(Succeed())
			Expect(registry.Labels()).To(BeEmpty())
		})

		It("Should list labels sorted", func() {
			Expect(registry.Claim("b")).To(Succeed())
			Expect(registry.Claim("a")).To(Succeed())
			Expect(registry.Labels()).To(Equal([]string{"a", "b"}))
		})
	})

	Describe("OutputActivation", func() {
		It("Should activate and deactivate outputs", func() {
			a := NewOutputActivation(registry)

			Expect(a.Activate("out_file", "bam")).To(Succeed())
			Expect(a.IsActive("out_file")).To(BeTrue())
			Expect(registry.Taken("bam")).To(BeTrue())

			Expect(a.Deactivate("out_file")).To(BeTrue())
			Expect(a.Deactivate("out_file")).To(BeFalse())
			Expect(a.IsActive("out_file")).To(BeFalse())
			Expect(registry.Taken("bam")).To(BeFalse())
		})

		It("Should share labels between steps", func() {
			one := NewOutputActivation(registry)
			two := NewOutputActivation(registry)

			Expect(one.Activate("out_file", "bam")).To(Succeed())
			Expect(two.Activate("output", "bam")).To(MatchError(ErrLabelTaken))
			Expect(two.IsActive("output")).To(BeFalse())

			Expect(two.Activate("output", "")).To(Succeed())
			Expect(two.Active()).To(Equal(map[string]string{"output": ""}))
		})

		It("Should relabel outputs", func() {
			a := NewOutputActivation(registry)
			Expect(a.Relabel("out_file", "x")).To(MatchError("output out_file is not active"))

			Expect(a.Activate("out_file", "bam")).To(Succeed())
			Expect(a.Activate("out_file", "sorted")).To(Succeed())

			label, _ := a.Label("out_file")
			Expect(label).To(Equal("sorted"))
			Expect(registry.Labels()).To(Equal([]string{"sorted"}))

			Expect(registry.Claim("taken")).To(Succeed())
			Expect(a.Relabel("out_file", "taken")).To(MatchError(ErrLabelTaken))

			label, _ = a.Label("out_file")
			Expect(label).To(Equal("sorted"))
			Expect(a.Relabel("out_file", "sorted")).To(Succeed())
		})
	})
})
