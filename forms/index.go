// Copyright (c) 2023-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package forms

// Index maps the paths of the active leaves of a tree to their nodes, preserving the
// order of the tree walk. A nil Index behaves as an empty one.
type Index struct {
	paths []string
	nodes map[string]*Node
}

// FormData maps paths to values
type FormData map[string]any

// BuildIndex walks the active branches of tree
func BuildIndex(tree []*Node) *Index {
	idx := newIndex()
	Visit(tree, idx.add)

	return idx
}

func newIndex() *Index {
	return &Index{nodes: map[string]*Node{}}
}

func (i *Index) add(n *Node, path string) {
	if _, ok := i.nodes[path]; !ok {
		i.paths = append(i.paths, path)
	}
	i.nodes[path] = n
}

// Get looks up the node at path
func (i *Index) Get(path string) (*Node, bool) {
	if i == nil {
		return nil, false
	}

	n, ok := i.nodes[path]
	return n, ok
}

// Has reports if path is active
func (i *Index) Has(path string) bool {
	_, ok := i.Get(path)
	return ok
}

// Len is the number of indexed paths
func (i *Index) Len() int {
	if i == nil {
		return 0
	}

	return len(i.paths)
}

// Paths lists the indexed paths in walk order
func (i *Index) Paths() []string {
	if i == nil {
		return []string{}
	}

	return append([]string{}, i.paths...)
}

// Each calls cb for every indexed node in walk order
func (i *Index) Each(cb func(path string, n *Node)) {
	if i == nil {
		return
	}

	for _, p := range i.paths {
		cb(p, i.nodes[p])
	}
}

// Filter creates a new index holding the entries keep accepts
func (i *Index) Filter(keep func(path string, n *Node) bool) *Index {
	res := newIndex()
	i.Each(func(path string, n *Node) {
		if keep(path, n) {
			res.add(n, path)
		}
	})

	return res
}

// Data projects the current values of the index into a new FormData
func (i *Index) Data() FormData {
	data := FormData{}
	i.Each(func(path string, n *Node) {
		data[path] = copyValue(n.Value)
	})

	return data
}
