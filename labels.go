// Copyright (c) 2023-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package formstate

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrLabelTaken indicates a workflow output label is already used by another output
var ErrLabelTaken = errors.New("label is already in use")

// LabelRegistry tracks the workflow output labels in use during an editing session
type LabelRegistry struct {
	mu    sync.Mutex
	taken map[string]bool
}

// NewLabelRegistry creates an empty registry
func NewLabelRegistry() *LabelRegistry {
	return &LabelRegistry{taken: map[string]bool{}}
}

// Claim reserves label, the empty label is never reserved
func (r *LabelRegistry) Claim(label string) error {
	if label == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.taken[label] {
		return fmt.Errorf("%w: %s", ErrLabelTaken, label)
	}
	r.taken[label] = true

	return nil
}

// Release frees label
func (r *LabelRegistry) Release(label string) {
	r.mu.Lock()
	delete(r.taken, label)
	r.mu.Unlock()
}

// Taken reports if label is reserved
func (r *LabelRegistry) Taken(label string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.taken[label]
}

// Labels lists the reserved labels
func (r *LabelRegistry) Labels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := make([]string, 0, len(r.taken))
	for l := range r.taken {
		res = append(res, l)
	}
	sort.Strings(res)

	return res
}

// OutputActivation tracks which outputs of a step are workflow outputs and their labels
type OutputActivation struct {
	registry *LabelRegistry
	active   map[string]string
}

// NewOutputActivation creates an activation tracker reserving labels in registry
func NewOutputActivation(registry *LabelRegistry) *OutputActivation {
	return &OutputActivation{registry: registry, active: map[string]string{}}
}

// Activate marks output as a workflow output with an optional label, activating an
// active output changes its label
func (a *OutputActivation) Activate(output string, label string) error {
	if _, ok := a.active[output]; ok {
		return a.Relabel(output, label)
	}

	err := a.registry.Claim(label)
	if err != nil {
		return err
	}

	a.active[output] = label

	return nil
}

// Deactivate removes output from the workflow outputs and frees its label
func (a *OutputActivation) Deactivate(output string) bool {
	label, ok := a.active[output]
	if !ok {
		return false
	}

	a.registry.Release(label)
	delete(a.active, output)

	return true
}

// Relabel changes the label of an active output, the old label is kept when the new one
// is taken
func (a *OutputActivation) Relabel(output string, label string) error {
	old, ok := a.active[output]
	if !ok {
		return fmt.Errorf("output %s is not active", output)
	}

	if old == label {
		return nil
	}

	err := a.registry.Claim(label)
	if err != nil {
		return err
	}

	a.registry.Release(old)
	a.active[output] = label

	return nil
}

// Label is the label of an active output
func (a *OutputActivation) Label(output string) (string, bool) {
	label, ok := a.active[output]
	return label, ok
}

// IsActive reports if output is a workflow output
func (a *OutputActivation) IsActive(output string) bool {
	_, ok := a.active[output]
	return ok
}

// Active maps the active outputs to their labels
func (a *OutputActivation) Active() map[string]string {
	res := make(map[string]string, len(a.active))
	for k, v := range a.active {
		res[k] = v
	}

	return res
}
