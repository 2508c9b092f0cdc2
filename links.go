// Copyright (c) 2023-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package formstate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/choria-io/formstate/forms"
)

var parameterPattern = regexp.MustCompile(`\$\{(.+?)\}`)

// WorkflowParameter is a named ${name} placeholder used in step input values
type WorkflowParameter struct {
	Name  string
	Color string
	// Steps are the positions of the steps referencing the parameter
	Steps []int
}

func (p *WorkflowParameter) addStep(pos int) {
	for _, s := range p.Steps {
		if s == pos {
			return
		}
	}

	p.Steps = append(p.Steps, pos)
}

// Parameters lists the workflow parameters in the order they were first referenced
func (w *Workflow) Parameters() []*WorkflowParameter {
	return append([]*WorkflowParameter{}, w.params...)
}

// ParameterStore is the form state holding one text input per workflow parameter
func (w *Workflow) ParameterStore() *forms.Store {
	return w.paramStore
}

// buildLinks hides every input fed by an earlier step and records the step links
func (w *Workflow) buildLinks() error {
	for pos, step := range w.steps {
		for _, oc := range step.data.OutputConnections {
			target, ok := w.byIndex[oc.InputStepIndex]
			if !ok {
				return fmt.Errorf("%w: step %d connects to step index %d", ErrUnknownStep, step.StepIndex, oc.InputStepIndex)
			}

			w.links[pos] = appendUnique(w.links[pos], target.Position)

			found := target.store.Annotate(oc.InputName, func(n *forms.Node) {
				n.Type = forms.HiddenType
				if n.Help != "" {
					n.Help += ", "
				}
				n.Help += fmt.Sprintf("Output dataset '%s' from step %d", oc.OutputName, pos+1)
				n.StepLinked = append(n.StepLinked, forms.StepRef{Index: step.StepIndex, StepType: step.Type})
			})
			if !found {
				w.debugf("Step %d connects to inactive or unknown input %s of step %d", step.StepIndex, oc.InputName, target.StepIndex)
			}
		}
	}

	return nil
}

func (w *Workflow) parameter(name string) *WorkflowParameter {
	p, ok := w.paramsByName[name]
	if ok {
		return p
	}

	p = &WorkflowParameter{
		Name:  name,
		Color: fmt.Sprintf("hsl( %d, 70%%, 30%% )", (len(w.params)+1)*100),
	}
	w.params = append(w.params, p)
	w.paramsByName[name] = p

	return p
}

// scanWorkflowParameters registers every ${name} found in input values and post job
// action arguments, inputs using them are switched to text holding the template
func (w *Workflow) scanWorkflowParameters() {
	for pos, step := range w.steps {
		step.store.AnnotateAll(func(_ string, n *forms.Node) {
			text, ok := n.Value.(string)
			if !ok {
				return
			}

			matches := parameterPattern.FindAllStringSubmatch(text, -1)
			if len(matches) == 0 {
				return
			}

			for _, m := range matches {
				w.parameter(m[1]).addStep(pos)
			}

			n.WPLinked = true
			n.Type = forms.TextType
			n.TextValue = text
		})

		for _, name := range sortedKeys(step.data.PostJobActions) {
			args := step.data.PostJobActions[name].ActionArguments
			for _, arg := range sortedKeys(args) {
				text, ok := args[arg].(string)
				if !ok {
					continue
				}

				for _, m := range parameterPattern.FindAllStringSubmatch(text, -1) {
					w.parameter(m[1]).addStep(pos)
				}
			}
		}
	}
}

// resolveActivation exposes tool inputs that can only be resolved when the workflow runs
// and clears runtime value markers
func (w *Workflow) resolveActivation() {
	for _, step := range w.steps {
		if step.Type != ToolStep {
			continue
		}

		resolved := true
		step.store.AnnotateWithScope(func(n *forms.Node, path string, scope map[string]*forms.Node) {
			if len(n.StepLinked) > 0 && !allDataSteps(n.StepLinked) {
				resolved = false
				n.IsWorkflow = true
			}

			if n.Options != nil && ((len(n.Options) == 0 && !resolved) || n.WPLinked) {
				n.IsWorkflow = true
			}

			if n.DataRef != "" {
				if ref, ok := scope[n.DataRef]; ok {
					n.IsWorkflow = (len(ref.StepLinked) > 0 && !allDataSteps(ref.StepLinked)) || n.WPLinked
				}
			}

			if isRuntimeValue(n.Value) {
				w.debugf("Clearing runtime value of %s in step %d", path, step.StepIndex)
				n.Value = nil
			}
		})
	}
}

func (w *Workflow) buildParameterStore() {
	tree := make(forms.Tree, 0, len(w.params))
	for _, p := range w.params {
		tree = append(tree, &forms.Node{
			Name:  p.Name,
			Type:  forms.TextType,
			Label: p.Name,
			Extra: map[string]any{"color": p.Color},
		})
	}

	w.paramStore = forms.NewStore(forms.WithLogger(w.log))
	w.paramStore.CloneInputs(tree)
}

func isRuntimeValue(v any) bool {
	m, ok := v.(map[string]any)
	if !ok {
		return false
	}

	return m["__class__"] == "RuntimeValue"
}

// topologicalOrder sorts the positions 0..n-1 so every step comes after the steps
// linking into it, failing when the links contain a cycle
func topologicalOrder(n int, links map[int][]int) ([]int, error) {
	inDegree := make([]int, n)
	for _, targets := range links {
		for _, t := range targets {
			inDegree[t]++
		}
	}

	var queue []int
	for pos := 0; pos < n; pos++ {
		if inDegree[pos] == 0 {
			queue = append(queue, pos)
		}
	}

	order := make([]int, 0, n)
	for len(queue) > 0 {
		pos := queue[0]
		queue = queue[1:]
		order = append(order, pos)

		for _, succ := range links[pos] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
		sort.Ints(queue)
	}

	if len(order) != n {
		var cycle []string
		for pos, deg := range inDegree {
			if deg > 0 {
				cycle = append(cycle, fmt.Sprintf("%d", pos+1))
			}
		}

		return nil, fmt.Errorf("step links contain a cycle involving steps %s", strings.Join(cycle, ", "))
	}

	return order, nil
}

func appendUnique(list []int, v int) []int {
	for _, i := range list {
		if i == v {
			return list
		}
	}

	res := append(list, v)
	sort.Ints(res)

	return res
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}
