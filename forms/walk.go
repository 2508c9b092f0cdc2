// Copyright (c) 2023-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package forms

import (
	"strconv"
)

// PathSeparator joins the names of nested nodes into a path
const PathSeparator = "|"

// VisitFunc is called with a leaf-like node, either a leaf or the test parameter of a
// conditional, and its fully qualified path.
type VisitFunc func(n *Node, path string)

// ContextVisitFunc is a VisitFunc that also receives the nodes declared at the level of
// the visited node and its parents keyed by local name, used to resolve data_ref
type ContextVisitFunc func(n *Node, path string, scope map[string]*Node)

// walker performs the traversal shared by all visitors.
//
// When all is false only the selected case of every conditional is descended into, when
// true every case is. Repeat instances and sections are always descended. container is
// optional and is called for conditionals, repeats and sections before their children.
type walker struct {
	all       bool
	leaf      ContextVisitFunc
	container VisitFunc
}

// Visit calls fn for every active leaf and test parameter in tree, in tree order
func Visit(tree []*Node, fn VisitFunc) {
	w := &walker{leaf: func(n *Node, path string, _ map[string]*Node) { fn(n, path) }}
	w.walk(tree, "", nil)
}

// VisitAll calls fn for every leaf and test parameter in tree including those in
// conditional cases that are not selected
func VisitAll(tree []*Node, fn VisitFunc) {
	w := &walker{all: true, leaf: func(n *Node, path string, _ map[string]*Node) { fn(n, path) }}
	w.walk(tree, "", nil)
}

// VisitWithScope is Visit but also supplies the named nodes visible from each leaf
func VisitWithScope(tree []*Node, fn ContextVisitFunc) {
	w := &walker{leaf: fn}
	w.walk(tree, "", nil)
}

// visitContainers calls fn for every active conditional, repeat and section
func visitContainers(tree []*Node, fn VisitFunc) {
	w := &walker{leaf: func(*Node, string, map[string]*Node) {}, container: fn}
	w.walk(tree, "", nil)
}

func (w *walker) walk(nodes []*Node, prefix string, scope map[string]*Node) {
	local := make(map[string]*Node, len(scope)+len(nodes))
	for k, v := range scope {
		local[k] = v
	}
	for _, n := range nodes {
		if n != nil && n.Name != "" {
			local[n.Name] = n
		}
	}

	for _, n := range nodes {
		if n == nil {
			continue
		}

		path := JoinPath(prefix, n.Name)

		switch n.Kind() {
		case LeafKind:
			w.leaf(n, path, local)

		case ConditionalKind:
			if w.container != nil {
				w.container(n, path)
			}
			if n.TestParam == nil {
				continue
			}

			w.leaf(n.TestParam, JoinPath(path, n.TestParam.Name), local)
			local[n.TestParam.Name] = n.TestParam

			if w.all {
				for _, c := range n.Cases {
					w.walk(c.Inputs, path, local)
				}
				continue
			}

			selected := MatchCase(n, n.TestParam.Value)
			if selected == -1 {
				continue
			}
			w.walk(n.Cases[selected].Inputs, path, local)

		case RepeatKind:
			if w.container != nil {
				w.container(n, path)
			}
			for i, instance := range n.Cache {
				w.walk(instance, RepeatPath(path, i), local)
			}

		case SectionKind:
			if w.container != nil {
				w.container(n, path)
			}
			w.walk(n.Inputs, path, local)
		}
	}
}

// JoinPath appends name to the path of its parent
func JoinPath(parent string, name string) string {
	if parent == "" {
		return name
	}

	return parent + PathSeparator + name
}

// RepeatPath is the prefix of the children of instance i of the repeat at path
func RepeatPath(path string, i int) string {
	return path + "_" + strconv.Itoa(i)
}

// MatchCase finds the index of the case of conditional n that value selects, -1 when
// no case matches.
//
// Boolean test parameters coerce value to the declared truevalue or falsevalue, or
// "true" and "false" when those are not declared, before comparing.
func MatchCase(n *Node, value any) int {
	if n == nil || n.TestParam == nil {
		return -1
	}

	tp := n.TestParam

	var key string
	if tp.Type == BooleanType {
		key = booleanCaseKey(tp, value)
	} else {
		var ok bool
		key, ok = caseKey(value)
		if !ok {
			return -1
		}
	}

	for i, c := range n.Cases {
		if c.Value == key {
			return i
		}
	}

	return -1
}

func booleanCaseKey(tp *Node, value any) string {
	isTrue := value == true || value == "true"
	if !isTrue && tp.TrueValue != "" {
		isTrue = value == tp.TrueValue
	}

	if isTrue {
		if tp.TrueValue != "" {
			return tp.TrueValue
		}
		return "true"
	}

	if tp.FalseValue != "" {
		return tp.FalseValue
	}

	return "false"
}
