// Copyright (c) 2023-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package formstate

import (
	"fmt"
	"strings"

	"github.com/choria-io/formstate/forms"
)

// SetValue writes value to the input at path of the step at position pos and propagates
// the change to the steps linked to it. The result is true when the input asks for a
// server refresh on change.
func (w *Workflow) SetValue(pos int, path string, value any, p forms.Provenance) (bool, error) {
	step, err := w.Step(pos)
	if err != nil {
		return false, err
	}

	refresh := step.store.SetValue(path, value, p)
	w.Propagate(pos)

	return refresh, nil
}

// SetWorkflowParameter sets the value of a workflow parameter and substitutes it into
// every step using it
func (w *Workflow) SetWorkflowParameter(name string, value any) error {
	return w.setParameter(name, value, forms.UserEdit)
}

func (w *Workflow) setParameter(name string, value any, p forms.Provenance) error {
	param, ok := w.paramsByName[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownParameter, name)
	}

	w.paramStore.SetValue(name, value, p)

	affected := map[int]bool{}
	for _, pos := range param.Steps {
		affected[pos] = true
		for down := range w.downstream(pos) {
			affected[down] = true
		}
	}

	w.refreshSteps(affected)

	return nil
}

// Propagate recomputes the linked inputs of every step downstream of the step at
// position pos, directly or transitively, in dependency order
func (w *Workflow) Propagate(pos int) {
	w.refreshSteps(w.downstream(pos))
}

func (w *Workflow) refreshSteps(affected map[int]bool) {
	for _, pos := range w.order {
		if affected[pos] {
			w.refreshStep(pos)
		}
	}
}

// downstream finds all steps reachable from pos through step links, excluding pos
func (w *Workflow) downstream(pos int) map[int]bool {
	seen := map[int]bool{}
	queue := append([]int{}, w.links[pos]...)

	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		if seen[next] || next == pos {
			continue
		}
		seen[next] = true
		queue = append(queue, w.links[next]...)
	}

	return seen
}

type linkedUpdate struct {
	path  string
	value any
}

// refreshStep re-derives every step linked and workflow parameter linked input of the
// step at pos. Errors on re-derived inputs are cleared and a step that was showing errors
// is validated again.
func (w *Workflow) refreshStep(pos int) {
	step := w.steps[pos]
	flagged := len(step.store.Errors()) > 0

	var updates []linkedUpdate
	step.store.AnnotateAll(func(path string, n *forms.Node) {
		switch {
		case len(n.StepLinked) > 0:
			updates = append(updates, linkedUpdate{path: path, value: w.linkedValue(n)})
		case n.WPLinked:
			updates = append(updates, linkedUpdate{path: path, value: w.substitute(n.TextValue)})
		}
	})

	if len(updates) == 0 {
		return
	}

	for _, u := range updates {
		step.store.SetValue(u.path, u.value, forms.ProgrammaticReplace)
		step.store.Annotate(u.path, func(n *forms.Node) { n.Error = nil })
	}

	w.debugf("Propagated %d linked inputs into step %d", len(updates), step.StepIndex)

	if !flagged {
		return
	}

	failure := step.store.Validate(false)
	if failure != nil {
		step.store.SetError(failure.Path, failure.Message)
	}
}

// linkedValue collects the datasets selected in the data steps feeding n
func (w *Workflow) linkedValue(n *forms.Node) map[string]any {
	values := []any{}

	for _, ref := range n.StepLinked {
		if !isDataStepType(ref.StepType) {
			continue
		}

		source, ok := w.byIndex[ref.Index]
		if !ok {
			continue
		}

		selection, ok := source.store.BuildFormData()["input"].(map[string]any)
		if !ok {
			continue
		}

		selected, _ := selection["values"].([]any)
		values = append(values, selected...)
	}

	if !n.Multiple && len(values) > 1 {
		values = values[:1]
	}

	return map[string]any{"values": values}
}

// substitute replaces every ${name} in text with the value of the workflow parameter,
// parameters without a value are left in place
func (w *Workflow) substitute(text string) string {
	values := w.paramStore.BuildFormData()
	res := text

	for _, m := range parameterPattern.FindAllStringSubmatch(text, -1) {
		v := values[m[1]]
		if v == nil || v == "" {
			continue
		}

		res = strings.ReplaceAll(res, m[0], fmt.Sprint(v))
	}

	return res
}
