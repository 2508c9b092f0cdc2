// Copyright (c) 2023-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package forms

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Node", func() {
	Describe("Parsing", func() {
		It("Should parse YAML trees", func() {
			tree, err := ParseYAMLTree([]byte(`
- name: c
  type: conditional
  test_param:
    name: b
    type: boolean
    truevalue: "yes"
    falsevalue: "no"
    value: true
  cases:
    - value: "yes"
      inputs:
        - name: x
          type: integer
          value: 3
          validators:
            - type: in_range
              min: 1
    - value: "no"
      inputs: []
`))
			Expect(err).ToNot(HaveOccurred())
			Expect(tree).To(HaveLen(1))
			Expect(tree[0].Kind()).To(Equal(ConditionalKind))
			Expect(tree[0].TestParam.TrueValue).To(Equal("yes"))
			Expect(tree[0].Cases[0].Inputs[0].Validators[0].Min).To(HaveValue(Equal(float64(1))))
			Expect(BuildIndex(tree).Paths()).To(Equal([]string{"c|b", "c|x"}))
		})

		It("Should require test parameters on conditionals", func() {
			_, err := ParseTree([]byte(`[{"name": "c", "type": "conditional", "cases": []}]`))
			Expect(err).To(MatchError(ContainSubstring(`conditional "c" has no test_param`)))
		})

		It("Should reject invalid shapes", func() {
			_, err := TreeFromList(map[string]any{})
			Expect(err).To(MatchError("expected a list of inputs, got map[string]interface {}"))

			_, err = TreeFromList([]any{"x"})
			Expect(err).To(MatchError("input 0: expected an object, got string"))
		})

		It("Should keep unknown fields", func() {
			tree := mustTree(`[{"name": "a", "type": "text", "argument": "--a", "hidden": false}]`)
			Expect(tree[0].Extra).To(Equal(map[string]any{"argument": "--a", "hidden": false}))
			Expect(tree[0].ToMap()).To(HaveKeyWithValue("argument", "--a"))
		})
	})

	Describe("Marshaling", func() {
		It("Should round trip through JSON", func() {
			tree := exampleTree()
			j, err := json.Marshal(tree)
			Expect(err).ToNot(HaveOccurred())

			parsed, err := ParseTree(j)
			Expect(err).ToNot(HaveOccurred())
			Expect(BuildIndex(parsed).Data()).To(Equal(BuildIndex(tree).Data()))
			Expect(*parsed[2].Max).To(Equal(3))
		})
	})

	Describe("Clone", func() {
		It("Should deep copy", func() {
			tree := exampleTree()
			c := CloneTree(tree)

			c[1].TestParam.Value = "two"
			c[2].Cache[0][0].Value = 10
			c[1].TestParam.Options[0] = "changed"

			Expect(tree[1].TestParam.Value).To(Equal("one"))
			Expect(tree[2].Cache[0][0].Value).To(Equal(float64(1)))
			Expect(tree[1].TestParam.Options[0]).To(Equal([]any{"One", "one", true}))
		})
	})

	It("Should describe kinds", func() {
		Expect(LeafKind.String()).To(Equal("leaf"))
		Expect(RepeatKind.String()).To(Equal("repeat"))
		Expect((&Node{Type: DataCollectionType}).IsDataInput()).To(BeTrue())
		Expect((&Node{Type: SectionType}).Kind()).To(Equal(SectionKind))
	})
})
