// Copyright (c) 2023-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package forms

import (
	"dario.cat/mergo"
)

// Logger receives diagnostic messages, no logging is done without one
type Logger interface {
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
}

// Provenance records what caused a value to be written
type Provenance int

const (
	// UserEdit is a value typed or selected by the user
	UserEdit Provenance = iota
	// InferredDefault is a value chosen by the client on behalf of the user
	InferredDefault
	// ProgrammaticReplace is a value restored or derived by code
	ProgrammaticReplace
)

func (p Provenance) String() string {
	switch p {
	case UserEdit:
		return "user-edit"
	case InferredDefault:
		return "inferred-default"
	case ProgrammaticReplace:
		return "programmatic-replace"
	default:
		return "unknown"
	}
}

// attributes the server never declares
var clientFields = []string{"value", "error", "warning", "attributes", "test_param", "cases", "inputs", "cache", "step_linked", "wp_linked", "is_workflow", "text_value"}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithLogger sets the logger used by the store
func WithLogger(log Logger) StoreOption {
	return func(s *Store) {
		s.log = log
	}
}

// Store owns the client side state of a single form: a private copy of the server
// parameter tree, the index of its active parameters, the committed form data and
// the provenance of every value write.
//
// A Store is not safe for concurrent use.
type Store struct {
	inputs     Tree
	index      *Index
	data       FormData
	provenance map[string]Provenance
	dirty      map[string]bool
	log        Logger
}

// NewStore creates an empty store, use CloneInputs to load a tree
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		index:      newIndex(),
		data:       FormData{},
		provenance: map[string]Provenance{},
		dirty:      map[string]bool{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CloneInputs replaces the state of the store with a deep copy of tree. Errors and
// warnings are cleared on every parameter, active or not, and the index is rebuilt.
func (s *Store) CloneInputs(tree []*Node) {
	s.inputs = CloneTree(tree)
	if s.inputs == nil {
		s.inputs = Tree{}
	}

	VisitAll(s.inputs, func(n *Node, _ string) {
		n.Error = nil
		n.Warning = nil
	})

	s.provenance = map[string]Provenance{}
	s.dirty = map[string]bool{}

	s.RebuildIndex()

	s.debugf("Cloned %d inputs with %d active parameters", len(s.inputs), s.index.Len())
}

// Inputs is a copy of the current tree
func (s *Store) Inputs() Tree {
	return CloneTree(s.inputs)
}

// Index is the index of the active parameters, it is replaced on every rebuild
func (s *Store) Index() *Index {
	return s.index
}

// RebuildIndex recomputes the index from the current tree
func (s *Store) RebuildIndex() {
	s.index = BuildIndex(s.inputs)

	if s.log == nil {
		return
	}

	visitContainers(s.inputs, func(n *Node, path string) {
		if n.Kind() == ConditionalKind && n.TestParam != nil && MatchCase(n, n.TestParam.Value) == -1 {
			s.log.Debugf("Conditional %s has no case matching %v", path, n.TestParam.Value)
		}
	})
}

// BuildFormData projects the values of the active parameters into new form data, the
// committed form data is not changed
func (s *Store) BuildFormData() FormData {
	return s.index.Data()
}

// CommitFormData stores data as the authoritative form data
func (s *Store) CommitFormData(data FormData) {
	s.data = FormData{}
	for k, v := range data {
		s.data[k] = copyValue(v)
	}
}

// FormData is a copy of the committed form data
func (s *Store) FormData() FormData {
	res := FormData{}
	for k, v := range s.data {
		res[k] = copyValue(v)
	}

	return res
}

// Validate checks the current values of the active parameters
func (s *Store) Validate(rejectEmptyString bool) *Failure {
	return Validate(s.index, s.index.Data(), rejectEmptyString)
}

// SyncServerAttributes merges the server declared fields of the parameters in tree into
// the attributes of the parameters at the same paths, active or not. Values, errors and
// warnings held by the store are never changed.
func (s *Store) SyncServerAttributes(tree []*Node) {
	incoming := map[string]*Node{}
	VisitAll(tree, func(n *Node, path string) {
		incoming[path] = n
	})

	synced := 0
	VisitAll(s.inputs, func(n *Node, path string) {
		src, ok := incoming[path]
		if !ok {
			return
		}

		attrs := serverAttributes(src)
		if n.Attributes == nil {
			n.Attributes = map[string]any{}
		}

		err := mergo.Merge(&n.Attributes, attrs, mergo.WithOverride, mergo.WithOverwriteWithEmptyValue)
		if err != nil {
			s.debugf("Could not merge attributes for %s: %v", path, err)
			return
		}
		synced++
	})

	s.debugf("Synced server attributes for %d of %d parameters", synced, len(incoming))
}

func serverAttributes(n *Node) map[string]any {
	attrs := n.ToMap()
	for _, k := range clientFields {
		delete(attrs, k)
	}

	return copyMap(attrs)
}

// ApplyErrors clears the errors of all active parameters and then sets those in the
// nested messages tree that resolve to active parameters
func (s *Store) ApplyErrors(messages any) {
	s.ResetErrors()

	if messages == nil {
		return
	}

	for path, msg := range s.match(messages) {
		s.SetError(path, msg)
	}
}

// ApplyWarnings sets the warnings in the nested messages tree that resolve to active
// parameters, existing warnings are kept
func (s *Store) ApplyWarnings(messages any) {
	if messages == nil {
		return
	}

	for path, msg := range s.match(messages) {
		s.SetWarning(path, msg)
	}
}

func (s *Store) match(messages any) map[string]string {
	matched := Match(s.index, messages)
	s.debugf("Matched %d server messages to active parameters", len(matched))

	return matched
}

// SetError sets the error of the active parameter at path
func (s *Store) SetError(path string, msg string) bool {
	n, ok := s.index.Get(path)
	if !ok {
		return false
	}

	n.Error = &msg

	return true
}

// SetWarning sets the warning of the active parameter at path
func (s *Store) SetWarning(path string, msg string) bool {
	n, ok := s.index.Get(path)
	if !ok {
		return false
	}

	n.Warning = &msg

	return true
}

// ResetErrors clears the errors of all active parameters
func (s *Store) ResetErrors() {
	s.index.Each(func(_ string, n *Node) {
		n.Error = nil
	})
}

// Errors lists the errors of the active parameters by path
func (s *Store) Errors() map[string]string {
	res := map[string]string{}
	s.index.Each(func(path string, n *Node) {
		if n.Error != nil {
			res[path] = *n.Error
		}
	})

	return res
}

// Warnings lists the warnings of the active parameters by path
func (s *Store) Warnings() map[string]string {
	res := map[string]string{}
	s.index.Each(func(path string, n *Node) {
		if n.Warning != nil {
			res[path] = *n.Warning
		}
	})

	return res
}

// SetValue writes value to the active parameter at path and records p as its
// provenance. The result is true when the parameter asks for a server refresh on
// change, regardless of provenance. Inactive paths are ignored.
func (s *Store) SetValue(path string, value any, p Provenance) bool {
	if !s.Dispatch(SetValue{Path: path, Value: value}) {
		return false
	}

	s.provenance[path] = p
	if p == UserEdit {
		s.dirty[path] = true
	}

	n, ok := s.index.Get(path)

	return ok && n.RefreshOnChange
}

// ReplaceParams writes every value in params whose path is active, in key order of
// the index at the time of each write. The result is true when any written parameter
// asks for a server refresh on change.
func (s *Store) ReplaceParams(params map[string]any) bool {
	refresh := false

	pending := make(map[string]any, len(params))
	for k, v := range params {
		pending[k] = v
	}

	for len(pending) > 0 {
		written := false

		for _, path := range s.index.Paths() {
			v, ok := pending[path]
			if !ok {
				continue
			}
			delete(pending, path)
			written = true

			if s.SetValue(path, v, ProgrammaticReplace) {
				refresh = true
			}
			break
		}

		if !written {
			break
		}
	}

	for path := range pending {
		s.debugf("Not replacing inactive parameter %s", path)
	}

	return refresh
}

// Dispatch applies action to the tree using Reduce and rebuilds the index when it
// changed the tree
func (s *Store) Dispatch(action Action) bool {
	next, changed := Reduce(s.inputs, action)
	if !changed {
		s.debugf("Action %T did not change the form", action)
		return false
	}

	s.inputs = next
	s.RebuildIndex()

	return true
}

// Annotate calls fn with the active parameter at path so callers can change its client
// side annotations. It reports if path is active.
func (s *Store) Annotate(path string, fn func(n *Node)) bool {
	n, ok := s.index.Get(path)
	if !ok {
		return false
	}

	fn(n)

	return true
}

// AnnotateAll calls fn with every active parameter
func (s *Store) AnnotateAll(fn func(path string, n *Node)) {
	s.index.Each(fn)
}

// AnnotateWithScope calls fn with every active parameter and the parameters visible
// from it by name
func (s *Store) AnnotateWithScope(fn ContextVisitFunc) {
	VisitWithScope(s.inputs, fn)
}

// Provenance is the provenance of the last write to path
func (s *Store) Provenance(path string) (Provenance, bool) {
	p, ok := s.provenance[path]
	return p, ok
}

// IsDirty reports if the user edited path since the inputs were cloned
func (s *Store) IsDirty(path string) bool {
	return s.dirty[path]
}

// Nested projects the active tree into nested data
func (s *Store) Nested() map[string]any {
	return Nest(s.inputs)
}

func (s *Store) debugf(format string, v ...any) {
	if s.log != nil {
		s.log.Debugf(format, v...)
	}
}
