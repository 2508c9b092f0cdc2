// Copyright (c) 2023-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package formstate

import (
	"context"
	"errors"
	"fmt"

	"github.com/choria-io/formstate/forms"
)

// ErrStaleRefresh indicates a refresh response for a request that was superseded by a
// newer request for the same step
var ErrStaleRefresh = errors.New("stale refresh response")

// Transport talks to the server on behalf of a workflow form
type Transport interface {
	// Build fetches the current parameter tree of a step for the given form data
	Build(ctx context.Context, req *BuildRequest) (forms.Tree, error)
	// Invoke submits a workflow run, a server side failure should be returned as *ErrorResponse
	Invoke(ctx context.Context, workflowID string, payload *Payload) (map[string]any, error)
}

// BuildRequest asks the server to rebuild the parameter tree of a step
type BuildRequest struct {
	Session   string         `json:"session"`
	StepIndex int            `json:"step_index"`
	ToolID    string         `json:"tool_id,omitempty"`
	Sequence  uint64         `json:"sequence"`
	Inputs    forms.FormData `json:"inputs"`
}

// NewBuildRequest creates a refresh request for the step at position pos from its
// current form data, every request gets a higher sequence than the previous one for
// the same step
func (w *Workflow) NewBuildRequest(pos int) (*BuildRequest, error) {
	step, err := w.Step(pos)
	if err != nil {
		return nil, err
	}

	step.mu.Lock()
	step.issued++
	seq := step.issued
	step.mu.Unlock()

	return &BuildRequest{
		Session:   w.session,
		StepIndex: step.StepIndex,
		ToolID:    step.ToolID,
		Sequence:  seq,
		Inputs:    step.store.BuildFormData(),
	}, nil
}

// ApplyRefresh merges the server attributes of tree into the step at position pos when
// seq is the latest request issued for the step, otherwise ErrStaleRefresh is returned
// and nothing changes
func (w *Workflow) ApplyRefresh(pos int, seq uint64, tree forms.Tree) error {
	step, err := w.Step(pos)
	if err != nil {
		return err
	}

	step.mu.Lock()
	defer step.mu.Unlock()

	if seq < step.issued || seq <= step.applied {
		w.debugf("Dropping refresh %d for step %d, latest issued %d applied %d", seq, step.StepIndex, step.issued, step.applied)
		return ErrStaleRefresh
	}

	step.applied = seq
	step.store.SyncServerAttributes(tree)

	w.infof("Applied refresh %d to step %d", seq, step.StepIndex)

	return nil
}

// Refresh rebuilds the step at position pos using t and applies the response unless a
// newer refresh of the same step was started while it was in flight
func (w *Workflow) Refresh(ctx context.Context, t Transport, pos int) error {
	req, err := w.NewBuildRequest(pos)
	if err != nil {
		return err
	}

	tree, err := t.Build(ctx, req)
	if err != nil {
		return fmt.Errorf("refreshing step %d: %w", req.StepIndex, err)
	}

	return w.ApplyRefresh(pos, req.Sequence, tree)
}
