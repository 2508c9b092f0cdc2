// Copyright (c) 2023-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package formstate

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/choria-io/formstate/forms"
)

// Payload is the body of a workflow invocation request
type Payload struct {
	HistoryID            string                 `json:"history_id,omitempty"`
	NewHistoryName       string                 `json:"new_history_name,omitempty"`
	ResourceParams       map[string]any         `json:"resource_params"`
	ReplacementParams    map[string]any         `json:"replacement_params"`
	Parameters           map[int]forms.FormData `json:"parameters"`
	ParametersNormalized bool                   `json:"parameters_normalized"`
	Batch                bool                   `json:"batch"`
}

// ValidationError is the first input that failed validation during submission
type ValidationError struct {
	// Step is the server index of the step
	Step     int
	Position int
	Path     string
	Message  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("step %d: %s: %s", e.Position+1, e.Path, e.Message)
}

// SubmissionError is a server error that could not be attributed to any input
type SubmissionError struct {
	Payload *Payload
	Message string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("workflow submission failed: %s", e.Message)
}

// ErrorResponse is the error document returned by the server, ErrData holds a nested
// message tree per step index
type ErrorResponse struct {
	ErrData map[string]any `json:"err_data,omitempty"`
	ErrMsg  string         `json:"err_msg"`
	ErrCode int            `json:"err_code,omitempty"`
}

func (e *ErrorResponse) Error() string {
	return e.ErrMsg
}

// Submission validates every step and assembles the invocation payload.
//
// Steps are validated in display order and the first failing input stops the
// submission, it is marked with the validation message and returned as a
// *ValidationError. Step linked inputs are derived from other steps and are neither
// validated nor sent.
func (w *Workflow) Submission(cfg Config) (*Payload, error) {
	err := validateConfig(&cfg)
	if err != nil {
		return nil, err
	}

	payload := &Payload{
		HistoryID:            cfg.HistoryID,
		NewHistoryName:       cfg.NewHistoryName,
		ResourceParams:       cfg.ResourceParams,
		ReplacementParams:    w.paramStore.BuildFormData(),
		Parameters:           map[int]forms.FormData{},
		ParametersNormalized: true,
		Batch:                true,
	}

	for _, step := range w.steps {
		step.store.ResetErrors()
	}

	for _, step := range w.steps {
		failure := step.store.Validate(false)
		if failure != nil {
			step.store.SetError(failure.Path, failure.Message)

			return nil, &ValidationError{
				Step:     step.StepIndex,
				Position: step.Position,
				Path:     failure.Path,
				Message:  failure.Message,
			}
		}

		data := step.store.BuildFormData()
		step.store.CommitFormData(data)

		params := forms.FormData{}
		step.store.AnnotateAll(func(path string, n *forms.Node) {
			if len(n.StepLinked) == 0 {
				params[path] = data[path]
			}
		})

		if len(params) > 0 {
			payload.Parameters[step.StepIndex] = params
		}
	}

	w.infof("Assembled submission for %d steps of workflow %s", len(payload.Parameters), w.run.ID)

	return payload, nil
}

// Invoke submits the workflow using t.
//
// When the server responds with an *ErrorResponse the messages are matched to the
// inputs of the steps they are keyed by, the first matched message of each step is set
// as the error of its input and the response is returned. When nothing could be matched
// a *SubmissionError holding the payload is returned. Other transport errors are
// returned unchanged.
func (w *Workflow) Invoke(ctx context.Context, t Transport, cfg Config) (map[string]any, error) {
	payload, err := w.Submission(cfg)
	if err != nil {
		return nil, err
	}

	res, err := t.Invoke(ctx, w.run.ID, payload)
	if err == nil {
		return res, nil
	}

	var resp *ErrorResponse
	if !errors.As(err, &resp) {
		return nil, err
	}

	if w.ApplyInvocationError(resp) {
		return nil, resp
	}

	return nil, &SubmissionError{Payload: payload, Message: resp.ErrMsg}
}

// ApplyInvocationError marks the first input of every step the server reported an
// error for and reports if any input was marked
func (w *Workflow) ApplyInvocationError(resp *ErrorResponse) bool {
	if resp == nil || len(resp.ErrData) == 0 {
		return false
	}

	localised := false

	for _, step := range w.steps {
		messages, ok := resp.ErrData[strconv.Itoa(step.StepIndex)]
		if !ok {
			continue
		}

		step.store.ResetErrors()

		matched := forms.Match(step.store.Index(), messages)
		for _, path := range step.store.Index().Paths() {
			msg, ok := matched[path]
			if !ok {
				continue
			}

			step.store.SetError(path, msg)
			localised = true
			break
		}
	}

	if !localised {
		w.debugf("Could not match invocation error to any input: %s", resp.ErrMsg)
	}

	return localised
}
