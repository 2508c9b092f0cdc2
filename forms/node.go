// Copyright (c) 2023-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package forms

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Kind is the closed set of node shapes a parameter tree is built from.
type Kind int

const (
	// LeafKind nodes hold a value and have no children
	LeafKind Kind = iota
	// ConditionalKind nodes select one case of children using their test parameter
	ConditionalKind
	// RepeatKind nodes hold zero or more instances of the same children
	RepeatKind
	// SectionKind nodes group children that are always active
	SectionKind
)

func (k Kind) String() string {
	switch k {
	case LeafKind:
		return "leaf"
	case ConditionalKind:
		return "conditional"
	case RepeatKind:
		return "repeat"
	case SectionKind:
		return "section"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Type constants for node types the engine gives meaning to
const (
	ConditionalType    = "conditional"
	RepeatType         = "repeat"
	SectionType        = "section"
	BooleanType        = "boolean"
	TextType           = "text"
	IntegerType        = "integer"
	FloatType          = "float"
	SelectType         = "select"
	HiddenType         = "hidden"
	DataType           = "data"
	DataCollectionType = "data_collection"
)

// Validator is a server declared constraint on a leaf value
type Validator struct {
	Type       string   `json:"type" yaml:"type"`
	Message    string   `json:"message,omitempty" yaml:"message,omitempty"`
	Expression string   `json:"expression,omitempty" yaml:"expression,omitempty"`
	Min        *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max        *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Negate     bool     `json:"negate,omitempty" yaml:"negate,omitempty"`
}

// StepRef identifies the upstream workflow step a leaf takes its value from
type StepRef struct {
	Index    int    `json:"index" yaml:"index"`
	StepType string `json:"step_type" yaml:"step_type"`
}

// Case is one selectable branch of a conditional
type Case struct {
	Value  string  `json:"value" yaml:"value"`
	Inputs []*Node `json:"inputs" yaml:"inputs"`
}

// Tree is the list of root level nodes of a form
type Tree []*Node

// Node is a single parameter in a form tree.
//
// Fields in the first block are declared by the server, Error, Warning and Attributes
// are owned by the client and the workflow annotations are set by the composite
// workflow form.
type Node struct {
	Name            string
	Type            string
	Label           string
	Help            string
	Value           any
	Optional        bool
	Multiple        bool
	Options         []any
	TrueValue       string
	FalseValue      string
	RefreshOnChange bool
	DataRef         string
	Min             *int
	Max             *int
	Validators      []Validator

	TestParam *Node
	Cases     []*Case
	Inputs    []*Node
	Cache     [][]*Node

	Error      *string
	Warning    *string
	Attributes map[string]any

	StepLinked []StepRef
	WPLinked   bool
	IsWorkflow bool
	TextValue  string

	// Extra holds server fields the engine does not interpret
	Extra map[string]any
}

// Kind determines the shape of the node from its type
func (n *Node) Kind() Kind {
	switch n.Type {
	case ConditionalType:
		return ConditionalKind
	case RepeatType:
		return RepeatKind
	case SectionType:
		return SectionKind
	default:
		return LeafKind
	}
}

// IsDataInput reports if the leaf selects datasets or collections
func (n *Node) IsDataInput() bool {
	return isOneOf(n.Type, DataType, DataCollectionType)
}

// ParseTree parses a JSON document holding a list of nodes
func ParseTree(data []byte) (Tree, error) {
	var tree Tree
	err := json.Unmarshal(data, &tree)
	if err != nil {
		return nil, err
	}

	return tree, nil
}

// ParseYAMLTree parses a YAML document holding a list of nodes
func ParseYAMLTree(data []byte) (Tree, error) {
	var tree Tree
	err := yaml.Unmarshal(data, &tree)
	if err != nil {
		return nil, err
	}

	return tree, nil
}

// TreeFromList builds a tree from decoded JSON or YAML data
func TreeFromList(v any) (Tree, error) {
	if v == nil {
		return Tree{}, nil
	}

	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list of inputs, got %T", v)
	}

	tree := make(Tree, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("input %d: expected an object, got %T", i, item)
		}

		n, err := NodeFromMap(m)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		tree = append(tree, n)
	}

	return tree, nil
}

// NodeFromMap builds a node from decoded JSON or YAML data
func NodeFromMap(m map[string]any) (*Node, error) {
	n := &Node{}
	var err error

	for k, v := range m {
		switch k {
		case "name":
			n.Name = asString(v)
		case "type":
			n.Type = asString(v)
		case "label":
			n.Label = asString(v)
		case "help":
			n.Help = asString(v)
		case "value":
			n.Value = v
		case "optional":
			n.Optional = asBool(v)
		case "multiple":
			n.Multiple = asBool(v)
		case "options":
			if v != nil {
				opts, ok := v.([]any)
				if !ok {
					return nil, fmt.Errorf("%s: options must be a list", n.Name)
				}
				n.Options = append([]any{}, opts...)
			}
		case "truevalue":
			n.TrueValue = asString(v)
		case "falsevalue":
			n.FalseValue = asString(v)
		case "refresh_on_change":
			n.RefreshOnChange = asBool(v)
		case "data_ref":
			n.DataRef = asString(v)
		case "min":
			n.Min = asIntPtr(v)
		case "max":
			n.Max = asIntPtr(v)
		case "validators":
			n.Validators, err = validatorsFromList(v)
		case "error":
			n.Error = asStringPtr(v)
		case "warning":
			n.Warning = asStringPtr(v)
		case "attributes":
			if am, ok := v.(map[string]any); ok {
				n.Attributes = am
			}
		case "step_linked":
			n.StepLinked, err = stepRefsFromList(v)
		case "wp_linked":
			n.WPLinked = asBool(v)
		case "is_workflow":
			n.IsWorkflow = asBool(v)
		case "text_value":
			n.TextValue = asString(v)
		case "test_param":
			tm, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s: test_param must be an object", n.Name)
			}
			n.TestParam, err = NodeFromMap(tm)
		case "cases":
			n.Cases, err = casesFromList(v)
		case "inputs":
			n.Inputs, err = TreeFromList(v)
		case "cache":
			n.Cache, err = cacheFromList(v)
		default:
			if n.Extra == nil {
				n.Extra = map[string]any{}
			}
			n.Extra[k] = v
		}

		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
	}

	if n.Kind() == ConditionalKind && n.TestParam == nil {
		return nil, fmt.Errorf("conditional %q has no test_param", n.Name)
	}

	return n, nil
}

// ToMap renders the node into plain data as the server would send it
func (n *Node) ToMap() map[string]any {
	m := map[string]any{}
	for k, v := range n.Extra {
		m[k] = v
	}

	m["name"] = n.Name
	m["type"] = n.Type
	m["optional"] = n.Optional

	setIf := func(cond bool, k string, v any) {
		if cond {
			m[k] = v
		}
	}

	setIf(n.Label != "", "label", n.Label)
	setIf(n.Help != "", "help", n.Help)
	setIf(n.Kind() == LeafKind, "value", n.Value)
	setIf(n.Multiple, "multiple", n.Multiple)
	setIf(n.Options != nil, "options", n.Options)
	setIf(n.TrueValue != "", "truevalue", n.TrueValue)
	setIf(n.FalseValue != "", "falsevalue", n.FalseValue)
	setIf(n.RefreshOnChange, "refresh_on_change", n.RefreshOnChange)
	setIf(n.DataRef != "", "data_ref", n.DataRef)
	setIf(n.Min != nil, "min", derefInt(n.Min))
	setIf(n.Max != nil, "max", derefInt(n.Max))
	setIf(len(n.Validators) > 0, "validators", validatorsToList(n.Validators))
	setIf(n.Error != nil, "error", derefString(n.Error))
	setIf(n.Warning != nil, "warning", derefString(n.Warning))
	setIf(len(n.Attributes) > 0, "attributes", n.Attributes)
	setIf(len(n.StepLinked) > 0, "step_linked", stepRefsToList(n.StepLinked))
	setIf(n.WPLinked, "wp_linked", n.WPLinked)
	setIf(n.IsWorkflow, "is_workflow", n.IsWorkflow)
	setIf(n.TextValue != "", "text_value", n.TextValue)

	switch n.Kind() {
	case LeafKind:
	case ConditionalKind:
		if n.TestParam != nil {
			m["test_param"] = n.TestParam.ToMap()
		}
		cases := make([]any, 0, len(n.Cases))
		for _, c := range n.Cases {
			cases = append(cases, map[string]any{"value": c.Value, "inputs": treeToList(c.Inputs)})
		}
		m["cases"] = cases
	case RepeatKind:
		m["inputs"] = treeToList(n.Inputs)
		cache := make([]any, 0, len(n.Cache))
		for _, instance := range n.Cache {
			cache = append(cache, treeToList(instance))
		}
		m["cache"] = cache
	case SectionKind:
		m["inputs"] = treeToList(n.Inputs)
	}

	return m
}

// MarshalJSON implements json.Marshaler
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.ToMap())
}

// UnmarshalJSON implements json.Unmarshaler
func (n *Node) UnmarshalJSON(data []byte) error {
	var m map[string]any
	err := json.Unmarshal(data, &m)
	if err != nil {
		return err
	}

	parsed, err := NodeFromMap(m)
	if err != nil {
		return err
	}
	*n = *parsed

	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	var m map[string]any
	err := value.Decode(&m)
	if err != nil {
		return err
	}

	parsed, err := NodeFromMap(m)
	if err != nil {
		return err
	}
	*n = *parsed

	return nil
}

func treeToList(nodes []*Node) []any {
	res := make([]any, 0, len(nodes))
	for _, n := range nodes {
		res = append(res, n.ToMap())
	}

	return res
}

func casesFromList(v any) ([]*Case, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list, got %T", v)
	}

	cases := make([]*Case, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("case %d: expected an object, got %T", i, item)
		}

		inputs, err := TreeFromList(m["inputs"])
		if err != nil {
			return nil, fmt.Errorf("case %d: %w", i, err)
		}

		val, _ := caseKey(m["value"])
		cases = append(cases, &Case{Value: val, Inputs: inputs})
	}

	return cases, nil
}

func cacheFromList(v any) ([][]*Node, error) {
	if v == nil {
		return nil, nil
	}

	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list, got %T", v)
	}

	cache := make([][]*Node, 0, len(list))
	for i, item := range list {
		instance, err := TreeFromList(item)
		if err != nil {
			return nil, fmt.Errorf("instance %d: %w", i, err)
		}
		cache = append(cache, instance)
	}

	return cache, nil
}

func validatorsFromList(v any) ([]Validator, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list, got %T", v)
	}

	var res []Validator
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("validator %d: expected an object, got %T", i, item)
		}

		val := Validator{
			Type:       asString(m["type"]),
			Message:    asString(m["message"]),
			Expression: asString(m["expression"]),
			Negate:     asBool(m["negate"]),
		}
		if f, ok := asFloat(m["min"]); ok {
			val.Min = &f
		}
		if f, ok := asFloat(m["max"]); ok {
			val.Max = &f
		}

		res = append(res, val)
	}

	return res, nil
}

func validatorsToList(vals []Validator) []any {
	res := make([]any, 0, len(vals))
	for _, v := range vals {
		m := map[string]any{"type": v.Type}
		if v.Message != "" {
			m["message"] = v.Message
		}
		if v.Expression != "" {
			m["expression"] = v.Expression
		}
		if v.Min != nil {
			m["min"] = *v.Min
		}
		if v.Max != nil {
			m["max"] = *v.Max
		}
		if v.Negate {
			m["negate"] = true
		}
		res = append(res, m)
	}

	return res
}

func stepRefsFromList(v any) ([]StepRef, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list, got %T", v)
	}

	var res []StepRef
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		idx := asIntPtr(m["index"])
		if idx == nil {
			continue
		}
		res = append(res, StepRef{Index: *idx, StepType: asString(m["step_type"])})
	}

	return res, nil
}

func stepRefsToList(refs []StepRef) []any {
	res := make([]any, 0, len(refs))
	for _, r := range refs {
		res = append(res, map[string]any{"index": r.Index, "step_type": r.StepType})
	}

	return res
}

// caseKey turns a scalar into the string form conditional cases are declared with
func caseKey(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case bool:
		return strconv.FormatBool(val), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	default:
		return "", false
	}
}

func asString(v any) string {
	s, _ := caseKey(v)
	return s
}

func asStringPtr(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}

	return &s
}

func asBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		b, _ := strconv.ParseBool(val)
		return b
	default:
		return false
	}
}

func asFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func asIntPtr(v any) *int {
	f, ok := asFloat(v)
	if !ok {
		return nil
	}
	i := int(f)

	return &i
}

func derefInt(i *int) int {
	if i == nil {
		return 0
	}

	return *i
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
