// Copyright (c) 2023-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package forms

import (
	"github.com/jedib0t/go-pretty/v6/text"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Util", func() {
	Describe("colorMarkup", func() {
		red := func(s string) string { return text.Colors{text.FgRed}.Sprint(s) }
		blue := func(s string) string { return text.Colors{text.FgBlue}.Sprint(s) }

		It("Should leave plain text alone", func() {
			Expect(colorMarkup("Hello World")).To(Equal("Hello World"))
			Expect(colorMarkup("{ not a tag }")).To(Equal("{ not a tag }"))
		})

		It("Should color tagged text", func() {
			Expect(colorMarkup("{red}Hello{/red} {blue}World{/blue}")).To(Equal(red("Hello") + " " + blue("World")))
			Expect(colorMarkup("{RED}Hello{/RED}")).To(Equal(red("Hello")))
			Expect(colorMarkup("{hired}x{/hired}")).To(Equal(text.Colors{text.FgHiRed}.Sprint("x")))
		})

		It("Should color nested tags inside out", func() {
			Expect(colorMarkup("{red}Outer {blue}Inner{/blue} Text{/red}")).To(Equal(red("Outer " + blue("Inner") + " Text")))
		})

		It("Should drop unknown tags", func() {
			Expect(colorMarkup("{red}Valid{/red} {invalid}Invalid{/invalid}")).To(Equal(red("Valid") + " Invalid"))
		})

		It("Should leave unclosed tags", func() {
			Expect(colorMarkup("{red}Open")).To(Equal("{red}Open"))
		})
	})

	Describe("optionPairs", func() {
		It("Should support tuples, objects and bare values", func() {
			opts := optionPairs([]any{
				[]any{"One", "1", true},
				map[string]any{"label": "Two", "value": "2"},
				map[string]any{"value": "3"},
				"four",
				[]any{},
			})

			Expect(opts).To(Equal([]option{
				{label: "One", value: "1", selected: true},
				{label: "Two", value: "2"},
				{label: "3", value: "3"},
				{label: "four", value: "four"},
			}))
		})

		It("Should find selected labels", func() {
			opts := optionPairs([]any{[]any{"One", "1", true}, []any{"Two", "2", false}})

			Expect(selectedLabels(opts, "2")).To(Equal([]string{"Two"}))
			Expect(selectedLabels(opts, []any{"1", "2"})).To(Equal([]string{"One", "Two"}))
			Expect(selectedLabels(opts, nil)).To(Equal([]string{"One"}))
		})
	})

	Describe("renderTemplate", func() {
		It("Should render with sprig functions", func() {
			Expect(renderTemplate(`{{ .name | title }} {{ default "x" .missing }}`, map[string]any{"name": "galaxy"})).To(Equal("Galaxy x"))
		})

		It("Should handle empty templates", func() {
			Expect(renderTemplate("", nil)).To(Equal(""))
		})

		It("Should fail on invalid templates", func() {
			_, err := renderTemplate("{{ .x", nil)
			Expect(err).To(HaveOccurred())
		})
	})

	It("Should check membership", func() {
		Expect(isOneOf("a", "b", "a")).To(BeTrue())
		Expect(isOneOf("c", "b", "a")).To(BeFalse())
	})
})
