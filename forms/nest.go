// Copyright (c) 2023-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package forms

// Nest projects the active branches of tree into nested data keyed by local names.
//
// Leaves become their value, sections a map of their children and conditionals a map
// holding the test parameter and the children of the selected case. Repeats become a
// list with one map per instance.
func Nest(tree []*Node) map[string]any {
	res := map[string]any{}

	for _, n := range tree {
		if n == nil {
			continue
		}

		switch n.Kind() {
		case LeafKind:
			res[n.Name] = copyValue(n.Value)

		case ConditionalKind:
			m := map[string]any{}
			if n.TestParam != nil {
				m[n.TestParam.Name] = copyValue(n.TestParam.Value)
				if selected := MatchCase(n, n.TestParam.Value); selected != -1 {
					for k, v := range Nest(n.Cases[selected].Inputs) {
						m[k] = v
					}
				}
			}
			res[n.Name] = m

		case RepeatKind:
			instances := make([]any, 0, len(n.Cache))
			for _, instance := range n.Cache {
				instances = append(instances, Nest(instance))
			}
			res[n.Name] = instances

		case SectionKind:
			res[n.Name] = Nest(n.Inputs)
		}
	}

	return res
}
