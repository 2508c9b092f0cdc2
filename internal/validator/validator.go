// Copyright (c) 2023-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package validator evaluates boolean expressions written in the expr language
// against a value and an environment.
package validator

import (
	"fmt"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/expr-lang/expr"
)

func isInt(v any) bool {
	switch val := v.(type) {
	case int, int64, int32:
		return true
	case float64:
		return val == float64(int64(val))
	case string:
		_, err := strconv.Atoi(val)
		return err == nil
	default:
		return false
	}
}

func isFloat(v any) bool {
	switch val := v.(type) {
	case int, int64, int32, float64, float32:
		return true
	case string:
		_, err := strconv.ParseFloat(val, 64)
		return err == nil
	default:
		return false
	}
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	default:
		return false
	}
}

func options() []expr.Option {
	return []expr.Option{
		expr.AsBool(),
		expr.AllowUndefinedVariables(),
		expr.Function("isInt", func(params ...any) (any, error) {
			if len(params) != 1 {
				return nil, fmt.Errorf("isInt expects 1 argument")
			}
			return isInt(params[0]), nil
		}),
		expr.Function("isFloat", func(params ...any) (any, error) {
			if len(params) != 1 {
				return nil, fmt.Errorf("isFloat expects 1 argument")
			}
			return isFloat(params[0]), nil
		}),
		expr.Function("isEmpty", func(params ...any) (any, error) {
			if len(params) != 1 {
				return nil, fmt.Errorf("isEmpty expects 1 argument")
			}
			return isEmpty(params[0]), nil
		}),
	}
}

// Validate evaluates expression against env and reports the boolean result
func Validate(env map[string]any, expression string) (bool, error) {
	if env == nil {
		env = map[string]any{}
	}

	program, err := expr.Compile(expression, append(options(), expr.Env(env))...)
	if err != nil {
		return false, fmt.Errorf("invalid expression %q: %w", expression, err)
	}

	res, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("expression %q failed: %w", expression, err)
	}

	ok, isBool := res.(bool)
	if !isBool {
		return false, fmt.Errorf("expression %q did not return a boolean", expression)
	}

	return ok, nil
}

// ValidateValue evaluates expression with value available as "value"
func ValidateValue(value any, expression string) (bool, error) {
	return Validate(map[string]any{"value": value}, expression)
}

// SurveyValidator creates a survey validator from expression, empty answers are
// accepted unless required is set
func SurveyValidator(expression string, required bool) survey.Validator {
	return func(ans any) error {
		if !required && isEmpty(ans) {
			return nil
		}

		ok, err := ValidateValue(ans, expression)
		if err != nil {
			return err
		}

		if !ok {
			return fmt.Errorf("validation using %s did not pass", expression)
		}

		return nil
	}
}
