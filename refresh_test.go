// Copyright (c) 2023-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package formstate

import (
	"context"
	"errors"
	"sync"

	"github.com/choria-io/formstate/forms"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Refresh", func() {
	var w *Workflow
	var tree forms.Tree

	BeforeEach(func() {
		w = mustWorkflow(loadRun("mapping.json"), WithSessionID("s1"))

		var err error
		tree, err = forms.ParseTree([]byte(`[
  {"name": "threshold", "type": "text", "label": "Score cutoff", "value": "server value"},
  {"name": "mode", "type": "select", "options": [["Local", "local", false], ["End to end", "e2e", false]]}
]`))
		Expect(err).ToNot(HaveOccurred())
	})

	Describe("NewBuildRequest", func() {
		It("Should build requests with increasing sequences", func() {
			req, err := w.NewBuildRequest(1)
			Expect(err).ToNot(HaveOccurred())
			Expect(req.Session).To(Equal("s1"))
			Expect(req.StepIndex).To(Equal(1))
			Expect(req.ToolID).To(Equal("bowtie2"))
			Expect(req.Sequence).To(Equal(uint64(1)))
			Expect(req.Inputs).To(HaveKeyWithValue("threshold", "${cutoff}"))

			req, err = w.NewBuildRequest(1)
			Expect(err).ToNot(HaveOccurred())
			Expect(req.Sequence).To(Equal(uint64(2)))

			req, err = w.NewBuildRequest(2)
			Expect(err).ToNot(HaveOccurred())
			Expect(req.Sequence).To(Equal(uint64(1)))

			_, err = w.NewBuildRequest(5)
			Expect(err).To(MatchError(ErrUnknownStep))
		})
	})

	Describe("ApplyRefresh", func() {
		It("Should merge server attributes and keep values", func() {
			req, err := w.NewBuildRequest(1)
			Expect(err).ToNot(HaveOccurred())

			Expect(w.ApplyRefresh(1, req.Sequence, tree)).To(Succeed())

			threshold := node(w, 1, "threshold")
			Expect(threshold.Attributes).To(HaveKeyWithValue("label", "Score cutoff"))
			Expect(threshold.Attributes).ToNot(HaveKey("value"))
			Expect(value(w, 1, "threshold")).To(Equal("${cutoff}"))

			Expect(node(w, 1, "mode").Attributes).To(HaveKey("options"))
		})

		It("Should drop superseded responses", func() {
			first, _ := w.NewBuildRequest(1)
			second, _ := w.NewBuildRequest(1)

			Expect(w.ApplyRefresh(1, first.Sequence, tree)).To(MatchError(ErrStaleRefresh))
			Expect(node(w, 1, "threshold").Attributes).To(BeEmpty())

			Expect(w.ApplyRefresh(1, second.Sequence, tree)).To(Succeed())
			Expect(w.ApplyRefresh(1, second.Sequence, tree)).To(MatchError(ErrStaleRefresh))
		})

		It("Should track steps independently", func() {
			one, _ := w.NewBuildRequest(1)
			w.NewBuildRequest(2)
			two, _ := w.NewBuildRequest(2)

			Expect(w.ApplyRefresh(1, one.Sequence, tree)).To(Succeed())
			Expect(w.ApplyRefresh(2, two.Sequence, forms.Tree{})).To(Succeed())
		})
	})

	Describe("Refresh", func() {
		It("Should build and apply", func() {
			t := &fakeTransport{tree: tree}

			Expect(w.Refresh(context.Background(), t, 1)).To(Succeed())
			Expect(t.requests).To(HaveLen(1))
			Expect(node(w, 1, "threshold").Attributes).To(HaveKeyWithValue("label", "Score cutoff"))
		})

		It("Should wrap transport errors", func() {
			t := &fakeTransport{buildErr: errors.New("connection refused")}

			err := w.Refresh(context.Background(), t, 1)
			Expect(err).To(MatchError("refreshing step 1: connection refused"))
		})

		It("Should allow concurrent refreshes of different steps", func() {
			wg := sync.WaitGroup{}
			errs := make([]error, 3)

			for pos := 0; pos < 3; pos++ {
				wg.Add(1)
				go func(pos int) {
					defer wg.Done()
					errs[pos] = w.Refresh(context.Background(), &fakeTransport{tree: forms.Tree{}}, pos)
				}(pos)
			}
			wg.Wait()

			Expect(errs).To(Equal([]error{nil, nil, nil}))
		})
	})
})
