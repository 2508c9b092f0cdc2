// Copyright (c) 2023-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package formstate assembles the forms of the steps of a workflow run into one
// composite form, linking step inputs to the outputs of earlier steps and to named
// workflow parameters, and produces the invocation payload.
package formstate

import (
	"errors"
	"fmt"
	"sort"

	"github.com/choria-io/formstate/forms"
	"github.com/google/uuid"
)

// Config configures a workflow invocation
type Config struct {
	// HistoryID is the existing history to run in, mutually exclusive with NewHistoryName
	HistoryID string `json:"history_id,omitempty" yaml:"history_id"`
	// NewHistoryName creates a new history to run in
	NewHistoryName string `json:"new_history_name,omitempty" yaml:"new_history_name"`
	// ResourceParams are passed to the server unchanged
	ResourceParams map[string]any `json:"resource_params,omitempty" yaml:"resource_params"`
	// Values are step input values keyed by server step index and input path
	Values map[int]map[string]any `json:"values,omitempty" yaml:"values"`
	// Parameters are values for workflow parameters by name
	Parameters map[string]any `json:"parameters,omitempty" yaml:"parameters"`
}

// Logger receives diagnostic messages, no logging is done without one
type Logger = forms.Logger

var (
	// ErrInvalidConfig indicates an unusable invocation configuration
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrUnknownStep indicates a reference to a step the workflow does not have
	ErrUnknownStep = errors.New("unknown step")
	// ErrUnknownParameter indicates a reference to a workflow parameter that is not used
	ErrUnknownParameter = errors.New("unknown workflow parameter")
)

// Option configures a Workflow
type Option func(*Workflow)

// WithLogger sets the logger used by the workflow and the stores of its steps
func WithLogger(log Logger) Option {
	return func(w *Workflow) {
		w.log = log
	}
}

// WithLabelRegistry shares a label registry with other workflows of the same editing
// session, by default every workflow has its own
func WithLabelRegistry(r *LabelRegistry) Option {
	return func(w *Workflow) {
		w.labels = r
	}
}

// WithSessionID sets the editing session identifier sent with refresh requests, a random
// one is generated by default
func WithSessionID(id string) Option {
	return func(w *Workflow) {
		w.session = id
	}
}

// Workflow is the composite form of a workflow run.
//
// It is not safe for concurrent use except for Refresh, which may run concurrently with
// other refreshes.
type Workflow struct {
	run     *RunData
	steps   []*Step
	byIndex map[int]*Step

	// links maps a step position to the positions of the steps consuming its outputs
	links map[int][]int
	order []int

	params       []*WorkflowParameter
	paramsByName map[string]*WorkflowParameter
	paramStore   *forms.Store

	labels  *LabelRegistry
	session string
	log     Logger
}

// New creates the composite form for run.
//
// Every step gets its own form state, connected inputs are hidden and linked to their
// source steps, workflow parameters referenced as ${name} are collected and tool inputs
// that can only be resolved at runtime are exposed. Finally linked values are propagated
// in dependency order.
func New(run *RunData, opts ...Option) (*Workflow, error) {
	if run == nil || len(run.Steps) == 0 {
		return nil, fmt.Errorf("workflow has no steps")
	}

	w := &Workflow{
		run:          run,
		byIndex:      map[int]*Step{},
		links:        map[int][]int{},
		paramsByName: map[string]*WorkflowParameter{},
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.labels == nil {
		w.labels = NewLabelRegistry()
	}
	if w.session == "" {
		w.session = uuid.NewString()
	}

	for pos, sd := range run.Steps {
		if sd == nil {
			return nil, fmt.Errorf("step %d is empty", pos)
		}

		if _, ok := w.byIndex[sd.StepIndex]; ok {
			return nil, fmt.Errorf("duplicate step index %d", sd.StepIndex)
		}

		step := &Step{
			Position:  pos,
			StepIndex: sd.StepIndex,
			Type:      sd.StepType,
			Label:     sd.Label,
			ToolID:    sd.ToolID,
			store:     forms.NewStore(forms.WithLogger(w.log)),
			outputs:   NewOutputActivation(w.labels),
			data:      sd,
		}
		step.store.CloneInputs(sd.Inputs)

		for _, wo := range sd.WorkflowOutputs {
			err := step.outputs.Activate(wo.OutputName, wo.Label)
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", sd.StepIndex, err)
			}
		}

		w.steps = append(w.steps, step)
		w.byIndex[sd.StepIndex] = step
	}

	w.scanWorkflowParameters()

	err := w.buildLinks()
	if err != nil {
		return nil, err
	}

	w.order, err = topologicalOrder(len(w.steps), w.links)
	if err != nil {
		return nil, err
	}

	w.resolveActivation()
	w.buildParameterStore()

	for _, pos := range w.order {
		w.refreshStep(pos)
	}

	w.debugf("Created workflow form %s with %d steps and %d workflow parameters", w.session, len(w.steps), len(w.params))

	return w, nil
}

// Session is the editing session identifier
func (w *Workflow) Session() string {
	return w.session
}

// Labels is the label registry of the workflow outputs
func (w *Workflow) Labels() *LabelRegistry {
	return w.labels
}

// Steps lists the steps in display order
func (w *Workflow) Steps() []*Step {
	return append([]*Step{}, w.steps...)
}

// Step finds the step at position pos
func (w *Workflow) Step(pos int) (*Step, error) {
	if pos < 0 || pos >= len(w.steps) {
		return nil, fmt.Errorf("%w: position %d", ErrUnknownStep, pos)
	}

	return w.steps[pos], nil
}

// StepByIndex finds the step with server index idx
func (w *Workflow) StepByIndex(idx int) (*Step, error) {
	step, ok := w.byIndex[idx]
	if !ok {
		return nil, fmt.Errorf("%w: index %d", ErrUnknownStep, idx)
	}

	return step, nil
}

// Links maps the position of every step with connected outputs to the positions of the
// steps consuming them
func (w *Workflow) Links() map[int][]int {
	res := make(map[int][]int, len(w.links))
	for k, v := range w.links {
		res[k] = append([]int{}, v...)
	}

	return res
}

// Order is the positions of all steps in dependency order
func (w *Workflow) Order() []int {
	return append([]int{}, w.order...)
}

// Apply writes the step values and workflow parameters of cfg as programmatic
// replacements and propagates them
func (w *Workflow) Apply(cfg Config) error {
	indexes := make([]int, 0, len(cfg.Values))
	for idx := range cfg.Values {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	for _, idx := range indexes {
		step, err := w.StepByIndex(idx)
		if err != nil {
			return err
		}

		step.store.ReplaceParams(cfg.Values[idx])
		w.Propagate(step.Position)
	}

	names := make([]string, 0, len(cfg.Parameters))
	for name := range cfg.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		err := w.setParameter(name, cfg.Parameters[name], forms.ProgrammaticReplace)
		if err != nil {
			return err
		}
	}

	return nil
}

func validateConfig(cfg *Config) error {
	switch {
	case cfg.HistoryID == "" && cfg.NewHistoryName == "":
		return fmt.Errorf("%w: history_id or new_history_name is required", ErrInvalidConfig)
	case cfg.HistoryID != "" && cfg.NewHistoryName != "":
		return fmt.Errorf("%w: history_id and new_history_name are mutually exclusive", ErrInvalidConfig)
	}

	if cfg.ResourceParams == nil {
		cfg.ResourceParams = map[string]any{}
	}

	return nil
}

func (w *Workflow) debugf(format string, v ...any) {
	if w.log != nil {
		w.log.Debugf(format, v...)
	}
}

func (w *Workflow) infof(format string, v ...any) {
	if w.log != nil {
		w.log.Infof(format, v...)
	}
}
