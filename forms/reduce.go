// Copyright (c) 2023-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package forms

// Action is a change to a form tree applied by Reduce
type Action interface {
	apply(tree Tree) bool
}

// SetValue sets the value of the active leaf or test parameter at Path
type SetValue struct {
	Path  string
	Value any
}

// AddRepeat appends a new instance, built from the repeat template, to the repeat at Path
type AddRepeat struct {
	Path string
}

// RemoveRepeat removes instance Index of the repeat at Path
type RemoveRepeat struct {
	Path  string
	Index int
}

// Reduce applies action to a copy of tree. The copy is returned with true when the action
// changed it, otherwise tree is returned unchanged with false. Paths that are not active
// in tree make the action a no-op.
func Reduce(tree Tree, action Action) (Tree, bool) {
	if action == nil {
		return tree, false
	}

	next := CloneTree(tree)
	if !action.apply(next) {
		return tree, false
	}

	return next, true
}

func (a SetValue) apply(tree Tree) bool {
	n, ok := BuildIndex(tree).Get(a.Path)
	if !ok {
		return false
	}

	n.Value = copyValue(a.Value)

	return true
}

func findContainer(tree Tree, path string, kind Kind) *Node {
	var found *Node
	visitContainers(tree, func(n *Node, p string) {
		if found == nil && p == path && n.Kind() == kind {
			found = n
		}
	})

	return found
}

func (a AddRepeat) apply(tree Tree) bool {
	n := findContainer(tree, a.Path, RepeatKind)
	if n == nil {
		return false
	}

	if n.Max != nil && len(n.Cache) >= *n.Max {
		return false
	}

	instance := CloneTree(n.Inputs)
	if instance == nil {
		instance = Tree{}
	}
	VisitAll(instance, func(leaf *Node, _ string) {
		leaf.Error = nil
		leaf.Warning = nil
	})
	n.Cache = append(n.Cache, instance)

	return true
}

func (a RemoveRepeat) apply(tree Tree) bool {
	n := findContainer(tree, a.Path, RepeatKind)
	if n == nil {
		return false
	}

	if a.Index < 0 || a.Index >= len(n.Cache) {
		return false
	}

	if n.Min != nil && len(n.Cache) <= *n.Min {
		return false
	}

	n.Cache = append(n.Cache[:a.Index], n.Cache[a.Index+1:]...)

	return true
}
