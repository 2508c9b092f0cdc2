// Copyright (c) 2023-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package forms

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Index", func() {
	It("Should index active leaves by path", func() {
		idx := BuildIndex(exampleTree())

		Expect(idx.Len()).To(Equal(5))
		Expect(idx.Paths()).To(Equal([]string{"a", "c|s", "c|x", "r_0|v", "r_1|v"}))
		Expect(idx.Has("c|y")).To(BeFalse())

		n, ok := idx.Get("r_1|v")
		Expect(ok).To(BeTrue())
		Expect(n.Value).To(Equal(float64(2)))
	})

	It("Should project values into form data", func() {
		data := BuildIndex(exampleTree()).Data()

		Expect(data).To(Equal(FormData{
			"a":     "x",
			"c|s":   "one",
			"c|x":   float64(1),
			"r_0|v": float64(1),
			"r_1|v": float64(2),
		}))
	})

	It("Should copy values into form data", func() {
		tree := mustTree(`[{"name": "d", "type": "data", "value": {"values": [{"id": "1"}]}}]`)
		idx := BuildIndex(tree)
		data := idx.Data()

		data["d"].(map[string]any)["values"] = []any{}

		n, _ := idx.Get("d")
		Expect(n.Value.(map[string]any)["values"]).To(HaveLen(1))
	})

	It("Should filter", func() {
		idx := BuildIndex(exampleTree()).Filter(func(path string, n *Node) bool {
			return n.Type == IntegerType
		})

		Expect(idx.Paths()).To(Equal([]string{"r_0|v", "r_1|v"}))
	})

	It("Should treat nil as empty", func() {
		var idx *Index
		Expect(idx.Len()).To(Equal(0))
		Expect(idx.Paths()).To(BeEmpty())
		Expect(idx.Has("a")).To(BeFalse())
		Expect(idx.Data()).To(BeEmpty())
	})

	It("Should keep the first position of duplicate paths", func() {
		tree := mustTree(`[{"name": "a", "type": "text", "value": 1}, {"name": "a", "type": "text", "value": 2}]`)
		idx := BuildIndex(tree)

		Expect(idx.Paths()).To(Equal([]string{"a"}))
		n, _ := idx.Get("a")
		Expect(n.Value).To(Equal(float64(2)))
	})
})
