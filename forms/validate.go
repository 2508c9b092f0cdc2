// Copyright (c) 2023-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package forms

import (
	"fmt"
	"regexp"

	"github.com/choria-io/formstate/internal/validator"
)

// Messages produced by Validate
const (
	MissingValueMessage             = "Please provide a value for this option."
	MissingDataMessage              = "Please provide data for this input."
	MissingWorkflowParameterMessage = "Please provide a value for this workflow parameter."
)

// Failure is the first parameter that did not pass validation
type Failure struct {
	Path    string
	Message string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Path, f.Message)
}

// Validate checks the values in data for every parameter in index, in index order, and
// returns the first failure or nil.
//
// Optional, hidden and step linked parameters are not checked. A missing or nil value
// always fails, the empty string fails when rejectEmptyString is set or when the
// parameter is exposed as a workflow input. Data inputs also fail when no data is
// selected. Declared validators are checked last.
func Validate(index *Index, data FormData, rejectEmptyString bool) *Failure {
	var failure *Failure

	index.Each(func(path string, n *Node) {
		if failure != nil {
			return
		}

		msg := validateNode(n, data[path], rejectEmptyString)
		if msg != "" {
			failure = &Failure{Path: path, Message: msg}
		}
	})

	return failure
}

func validateNode(n *Node, value any, rejectEmptyString bool) string {
	if n.Optional || n.Type == HiddenType || len(n.StepLinked) > 0 {
		return ""
	}

	if value == nil {
		return MissingValueMessage
	}

	if s, ok := value.(string); ok && s == "" && (rejectEmptyString || n.IsWorkflow) {
		return MissingValueMessage
	}

	if n.WPLinked && n.TextValue != "" && value == n.TextValue {
		return MissingWorkflowParameterMessage
	}

	if n.IsDataInput() && !hasDataValues(value) {
		return MissingDataMessage
	}

	for _, v := range n.Validators {
		msg := checkValidator(v, value)
		if msg != "" {
			return msg
		}
	}

	return ""
}

// hasDataValues is false only for data selections that are present but empty
func hasDataValues(value any) bool {
	m, ok := value.(map[string]any)
	if !ok {
		return true
	}

	vals, ok := m["values"].([]any)
	if !ok {
		return true
	}

	return len(vals) > 0
}

func checkValidator(v Validator, value any) string {
	var ok bool

	switch v.Type {
	case "regex":
		s, isString := value.(string)
		if !isString {
			return ""
		}
		re, err := regexp.Compile(v.Expression)
		if err != nil {
			return fmt.Sprintf("Invalid validation pattern %q", v.Expression)
		}
		ok = re.MatchString(s)

	case "expression":
		var err error
		ok, err = validator.ValidateValue(value, v.Expression)
		if err != nil {
			return err.Error()
		}

	case "in_range":
		f, isNumber := asFloat(value)
		if !isNumber {
			return v.messageOr("Value is not a number.")
		}
		ok = (v.Min == nil || f >= *v.Min) && (v.Max == nil || f <= *v.Max)

	default:
		return ""
	}

	if v.Negate {
		ok = !ok
	}

	if ok {
		return ""
	}

	return v.messageOr(v.defaultMessage())
}

func (v Validator) messageOr(dflt string) string {
	if v.Message != "" {
		return v.Message
	}

	return dflt
}

func (v Validator) defaultMessage() string {
	switch v.Type {
	case "regex":
		return fmt.Sprintf("Value does not match the pattern %q.", v.Expression)
	case "in_range":
		return fmt.Sprintf("Value must be between %s and %s.", boundString(v.Min, "-inf"), boundString(v.Max, "+inf"))
	default:
		return "Value did not pass validation."
	}
}

func boundString(f *float64, dflt string) string {
	if f == nil {
		return dflt
	}

	return fmt.Sprintf("%g", *f)
}
