// Copyright (c) 2023-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package formstate

import (
	"strings"
	"sync"

	"github.com/choria-io/formstate/forms"
)

// Step types the workflow form gives meaning to
const (
	ToolStep                = "tool"
	DataInputStep           = "data_input"
	DataCollectionInputStep = "data_collection_input"
	ParameterInputStep      = "parameter_input"
	SubworkflowStep         = "subworkflow"
)

// RunData is the workflow run description sent by the server, one entry per step in
// display order
type RunData struct {
	ID    string      `json:"id" yaml:"id"`
	Name  string      `json:"name" yaml:"name"`
	Steps []*StepData `json:"steps" yaml:"steps"`
}

// StepData describes one step of a workflow run
type StepData struct {
	// StepIndex is the server index of the step, connections refer to steps by it
	StepIndex         int                      `json:"step_index" yaml:"step_index"`
	StepType          string                   `json:"step_type" yaml:"step_type"`
	Label             string                   `json:"step_label,omitempty" yaml:"step_label,omitempty"`
	Name              string                   `json:"step_name,omitempty" yaml:"step_name,omitempty"`
	ToolID            string                   `json:"id,omitempty" yaml:"id,omitempty"`
	Inputs            forms.Tree               `json:"inputs" yaml:"inputs"`
	OutputConnections []Connection             `json:"output_connections,omitempty" yaml:"output_connections,omitempty"`
	Outputs           []Output                 `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	WorkflowOutputs   []WorkflowOutput         `json:"workflow_outputs,omitempty" yaml:"workflow_outputs,omitempty"`
	PostJobActions    map[string]PostJobAction `json:"post_job_actions,omitempty" yaml:"post_job_actions,omitempty"`
}

// Connection feeds output OutputName of the declaring step into input InputName of the
// step with index InputStepIndex
type Connection struct {
	InputStepIndex int    `json:"input_step_index" yaml:"input_step_index"`
	InputName      string `json:"input_name" yaml:"input_name"`
	OutputName     string `json:"output_name" yaml:"output_name"`
}

// Output is a named output a step produces
type Output struct {
	Name       string   `json:"name" yaml:"name"`
	Extensions []string `json:"extensions,omitempty" yaml:"extensions,omitempty"`
}

// WorkflowOutput marks a step output as an output of the whole workflow
type WorkflowOutput struct {
	OutputName string `json:"output_name" yaml:"output_name"`
	Label      string `json:"label,omitempty" yaml:"label,omitempty"`
}

// PostJobAction is an action run after the job of a step completes, its arguments may
// reference workflow parameters
type PostJobAction struct {
	ActionType      string         `json:"action_type" yaml:"action_type"`
	OutputName      string         `json:"output_name,omitempty" yaml:"output_name,omitempty"`
	ActionArguments map[string]any `json:"action_arguments,omitempty" yaml:"action_arguments,omitempty"`
}

// Step is a single step of a workflow form owning the form state of its inputs
type Step struct {
	// Position is the place of the step in the workflow form
	Position int
	// StepIndex is the server index of the step
	StepIndex int
	Type      string
	Label     string
	ToolID    string

	store   *forms.Store
	outputs *OutputActivation
	data    *StepData

	mu      sync.Mutex
	issued  uint64
	applied uint64
}

// Store is the form state of the step inputs
func (s *Step) Store() *forms.Store {
	return s.store
}

// Outputs tracks which outputs of the step are workflow outputs
func (s *Step) Outputs() *OutputActivation {
	return s.outputs
}

// Title is the label of the step, falling back to its name and tool
func (s *Step) Title() string {
	switch {
	case s.Label != "":
		return s.Label
	case s.data != nil && s.data.Name != "":
		return s.data.Name
	case s.ToolID != "":
		return s.ToolID
	default:
		return s.Type
	}
}

// IsDataStep reports if the step only provides datasets or collections
func (s *Step) IsDataStep() bool {
	return isDataStepType(s.Type)
}

func isDataStepType(t string) bool {
	return strings.HasPrefix(t, "data")
}

// allDataSteps reports if every referenced step only provides data, false for no references
func allDataSteps(refs []forms.StepRef) bool {
	if len(refs) == 0 {
		return false
	}

	for _, r := range refs {
		if !isDataStepType(r.StepType) {
			return false
		}
	}

	return true
}
