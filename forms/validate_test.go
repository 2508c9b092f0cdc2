// Copyright (c) 2023-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package forms

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Validate", func() {
	validate := func(tree string, reject bool) *Failure {
		idx := BuildIndex(mustTree(tree))
		return Validate(idx, idx.Data(), reject)
	}

	It("Should pass complete forms", func() {
		Expect(validate(`[{"name": "a", "type": "text", "value": "x"}]`, true)).To(BeNil())
	})

	It("Should fail missing values", func() {
		f := validate(`[{"name": "a", "type": "text", "value": "x"}, {"name": "b", "type": "text"}]`, false)
		Expect(f).To(Equal(&Failure{Path: "b", Message: MissingValueMessage}))
		Expect(f.Error()).To(Equal("b: " + MissingValueMessage))
	})

	It("Should report the first failure in index order", func() {
		f := validate(`[{"name": "a", "type": "text"}, {"name": "b", "type": "text"}]`, false)
		Expect(f.Path).To(Equal("a"))
	})

	It("Should only reject empty strings when asked", func() {
		tree := `[{"name": "a", "type": "text", "value": ""}]`
		Expect(validate(tree, false)).To(BeNil())
		Expect(validate(tree, true)).To(Equal(&Failure{Path: "a", Message: MissingValueMessage}))
	})

	It("Should reject empty strings for workflow inputs", func() {
		Expect(validate(`[{"name": "a", "type": "text", "value": "", "is_workflow": true}]`, false)).To(Equal(&Failure{Path: "a", Message: MissingValueMessage}))
	})

	It("Should skip optional hidden and step linked parameters", func() {
		Expect(validate(`[
  {"name": "a", "type": "text", "optional": true},
  {"name": "b", "type": "hidden"},
  {"name": "c", "type": "data", "step_linked": [{"index": 0, "step_type": "data_input"}]}
]`, true)).To(BeNil())
	})

	It("Should require data selections", func() {
		Expect(validate(`[{"name": "d", "type": "data", "value": {"values": []}}]`, false)).To(Equal(&Failure{Path: "d", Message: MissingDataMessage}))
		Expect(validate(`[{"name": "d", "type": "data", "value": {"values": [{"id": "1", "src": "hda"}]}}]`, false)).To(BeNil())
	})

	It("Should reject unsubstituted workflow parameters", func() {
		f := validate(`[{"name": "a", "type": "text", "value": "${p}", "wp_linked": true, "text_value": "${p}"}]`, false)
		Expect(f).To(Equal(&Failure{Path: "a", Message: MissingWorkflowParameterMessage}))

		Expect(validate(`[{"name": "a", "type": "text", "value": "v", "wp_linked": true, "text_value": "${p}"}]`, false)).To(BeNil())
	})

	It("Should ignore inactive parameters", func() {
		Expect(validate(`[{"name": "c", "type": "conditional",
  "test_param": {"name": "s", "type": "select", "value": "one"},
  "cases": [
    {"value": "one", "inputs": [{"name": "x", "type": "text", "value": "1"}]},
    {"value": "two", "inputs": [{"name": "y", "type": "text"}]}
  ]}]`, true)).To(BeNil())
	})

	Describe("Validators", func() {
		It("Should check regular expressions", func() {
			Expect(validate(`[{"name": "a", "type": "text", "value": "abc", "validators": [{"type": "regex", "expression": "^[a-z]+$"}]}]`, false)).To(BeNil())
			Expect(validate(`[{"name": "a", "type": "text", "value": "ABC", "validators": [{"type": "regex", "expression": "^[a-z]+$", "message": "lower case only"}]}]`, false)).To(Equal(&Failure{Path: "a", Message: "lower case only"}))
		})

		It("Should support negation", func() {
			Expect(validate(`[{"name": "a", "type": "text", "value": "abc", "validators": [{"type": "regex", "expression": "^[a-z]+$", "negate": true, "message": "no"}]}]`, false)).To(Equal(&Failure{Path: "a", Message: "no"}))
		})

		It("Should check ranges", func() {
			Expect(validate(`[{"name": "a", "type": "integer", "value": 5, "validators": [{"type": "in_range", "min": 1, "max": 10}]}]`, false)).To(BeNil())

			f := validate(`[{"name": "a", "type": "integer", "value": 11, "validators": [{"type": "in_range", "min": 1, "max": 10}]}]`, false)
			Expect(f.Message).To(Equal("Value must be between 1 and 10."))

			f = validate(`[{"name": "a", "type": "integer", "value": -1, "validators": [{"type": "in_range", "min": 0}]}]`, false)
			Expect(f.Message).To(Equal("Value must be between 0 and +inf."))
		})

		It("Should check expressions", func() {
			Expect(validate(`[{"name": "a", "type": "text", "value": "5", "validators": [{"type": "expression", "expression": "isInt(value)"}]}]`, false)).To(BeNil())

			f := validate(`[{"name": "a", "type": "text", "value": "x", "validators": [{"type": "expression", "expression": "isInt(value)", "message": "not a number"}]}]`, false)
			Expect(f).To(Equal(&Failure{Path: "a", Message: "not a number"}))
		})
	})
})
