// Copyright (c) 2023-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package forms

import (
	"github.com/mitchellh/copystructure"
)

// CloneTree deep copies tree, the result shares no data with tree
func CloneTree(tree []*Node) Tree {
	if tree == nil {
		return nil
	}

	res := make(Tree, 0, len(tree))
	for _, n := range tree {
		res = append(res, n.Clone())
	}

	return res
}

// Clone deep copies the node and its children
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}

	c := *n
	c.Value = copyValue(n.Value)
	c.Options = copySlice(n.Options)
	c.Min = copyInt(n.Min)
	c.Max = copyInt(n.Max)
	c.Error = copyString(n.Error)
	c.Warning = copyString(n.Warning)
	c.Attributes = copyMap(n.Attributes)
	c.Extra = copyMap(n.Extra)

	if n.Validators != nil {
		c.Validators = make([]Validator, len(n.Validators))
		for i, v := range n.Validators {
			v.Min = copyFloat(v.Min)
			v.Max = copyFloat(v.Max)
			c.Validators[i] = v
		}
	}

	if n.StepLinked != nil {
		c.StepLinked = append([]StepRef{}, n.StepLinked...)
	}

	c.TestParam = n.TestParam.Clone()

	if n.Cases != nil {
		c.Cases = make([]*Case, len(n.Cases))
		for i, cs := range n.Cases {
			c.Cases[i] = &Case{Value: cs.Value, Inputs: CloneTree(cs.Inputs)}
		}
	}

	c.Inputs = CloneTree(n.Inputs)

	if n.Cache != nil {
		c.Cache = make([][]*Node, len(n.Cache))
		for i, instance := range n.Cache {
			c.Cache[i] = CloneTree(instance)
		}
	}

	return &c
}

// copyValue deep copies arbitrary decoded data, values copystructure cannot handle are
// returned as is
func copyValue(v any) any {
	if v == nil {
		return nil
	}

	c, err := copystructure.Copy(v)
	if err != nil {
		return v
	}

	return c
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}

	c, ok := copyValue(m).(map[string]any)
	if !ok {
		return nil
	}

	return c
}

func copySlice(s []any) []any {
	if s == nil {
		return nil
	}

	c, ok := copyValue(s).([]any)
	if !ok || c == nil {
		return append([]any{}, s...)
	}

	return c
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s

	return &c
}

func copyInt(i *int) *int {
	if i == nil {
		return nil
	}
	c := *i

	return &c
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	c := *f

	return &c
}
