// Copyright (c) 2023-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package forms

//go:generate mockgen -source fill.go -destination mock_test.go -package forms -typed

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/choria-io/formstate/internal/validator"
)

// surveyor abstracts the survey library for testability.
type surveyor interface {
	AskOne(p survey.Prompt, response interface{}, opts ...survey.AskOpt) error
}

type defaultSurveyor struct{}

func (d *defaultSurveyor) AskOne(p survey.Prompt, response interface{}, opts ...survey.AskOpt) error {
	return survey.AskOne(p, response, opts...)
}

// FillOption configures Fill
type FillOption func(*filler)

func withSurveyor(s surveyor) FillOption {
	return func(p *filler) {
		p.surveyor = s
	}
}

func withIsTerminal(f func() bool) FillOption {
	return func(p *filler) {
		p.isTerminal = f
	}
}

// WithOutput sets where help texts are written, defaults to os.Stdout
func WithOutput(w io.Writer) FillOption {
	return func(p *filler) {
		p.output = w
	}
}

// filler holds what is needed to interactively fill a store
type filler struct {
	env        map[string]any
	surveyor   surveyor
	isTerminal func() bool
	output     io.Writer
}

// Fill prompts on the terminal for every active parameter of store that can be edited,
// in index order, and writes each answer as a user edit. Changing a conditional test
// parameter activates the parameters of the selected case which are then asked for in
// turn. Help texts are Go templates rendered with Sprig functions against env, with the
// nested form data available as "input".
func Fill(store *Store, env map[string]any, opts ...FillOption) error {
	proc := &filler{
		env:        env,
		surveyor:   &defaultSurveyor{},
		isTerminal: isTerminal,
		output:     os.Stdout,
	}

	for _, o := range opts {
		o(proc)
	}

	if !proc.isTerminal() {
		return fmt.Errorf("can only fill forms on a valid terminal")
	}

	if store.Index().Len() == 0 {
		return fmt.Errorf("no parameters to fill")
	}

	asked := map[string]bool{}

	for {
		path, n, ok := nextParameter(store.Index(), asked)
		if !ok {
			return nil
		}
		asked[path] = true

		if !fillable(n) {
			continue
		}

		val, err := proc.askParameter(n, store)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		store.SetValue(path, val, UserEdit)
	}
}

func nextParameter(index *Index, asked map[string]bool) (string, *Node, bool) {
	for _, path := range index.Paths() {
		if asked[path] {
			continue
		}

		n, _ := index.Get(path)
		return path, n, true
	}

	return "", nil, false
}

func fillable(n *Node) bool {
	return n.Type != HiddenType && !n.IsDataInput() && len(n.StepLinked) == 0
}

func (p *filler) askParameter(n *Node, store *Store) (any, error) {
	help, err := p.describe(n, store)
	if err != nil {
		return nil, err
	}

	switch {
	case n.Type == BooleanType:
		return p.askBool(n, help)
	case len(n.Options) > 0:
		return p.askSelect(n, help)
	case n.Type == IntegerType:
		return p.askNumber(n, help, "isInt(value)", func(s string) (any, error) { return strconv.Atoi(s) })
	case n.Type == FloatType:
		return p.askNumber(n, help, "isFloat(value)", func(s string) (any, error) { return strconv.ParseFloat(s, 64) })
	default:
		return p.askText(n, help)
	}
}

// describe writes the label and rendered help text of n and returns the help
func (p *filler) describe(n *Node, store *Store) (string, error) {
	env := make(map[string]any)
	for k, v := range p.env {
		env[k] = v
	}
	env["input"] = store.Nested()
	env["Input"] = env["input"]

	help, err := renderTemplate(n.Help, env)
	if err != nil {
		return "", err
	}

	fmt.Fprintln(p.output)
	fmt.Fprintln(p.output, colorMarkup(fmt.Sprintf("{bold}%s{/bold}", labelOf(n))))
	if help != "" {
		fmt.Fprintln(p.output, help)
	}
	fmt.Fprintln(p.output)

	return help, nil
}

func (p *filler) askBool(n *Node, help string) (any, error) {
	var ans bool

	dflt := n.Value == true || n.Value == "true" || (n.TrueValue != "" && n.Value == n.TrueValue)

	err := p.surveyor.AskOne(&survey.Confirm{
		Message: labelOf(n),
		Help:    help,
		Default: dflt,
	}, &ans)
	if err != nil {
		return nil, err
	}

	return ans, nil
}

func (p *filler) askSelect(n *Node, help string) (any, error) {
	opts := optionPairs(n.Options)

	labels := make([]string, 0, len(opts))
	byLabel := make(map[string]any, len(opts))
	for _, o := range opts {
		labels = append(labels, o.label)
		byLabel[o.label] = o.value
	}

	if n.Multiple {
		var ans []string
		err := p.surveyor.AskOne(&survey.MultiSelect{
			Message: labelOf(n),
			Help:    help,
			Options: labels,
			Default: selectedLabels(opts, n.Value),
		}, &ans)
		if err != nil {
			return nil, err
		}

		res := make([]any, 0, len(ans))
		for _, l := range ans {
			res = append(res, byLabel[l])
		}

		return res, nil
	}

	var ans string
	prompt := &survey.Select{
		Message: labelOf(n),
		Help:    help,
		Options: labels,
	}
	if sel := selectedLabels(opts, n.Value); len(sel) > 0 {
		prompt.Default = sel[0]
	}

	err := p.surveyor.AskOne(prompt, &ans)
	if err != nil {
		return nil, err
	}

	return byLabel[ans], nil
}

func (p *filler) askNumber(n *Node, help string, check string, parse func(string) (any, error)) (any, error) {
	var ans string

	err := p.surveyor.AskOne(&survey.Input{
		Message: labelOf(n),
		Help:    help,
		Default: valueString(n.Value),
	}, &ans, survey.WithValidator(validator.SurveyValidator(check, !n.Optional)))
	if err != nil {
		return nil, err
	}

	if ans == "" {
		return nil, nil
	}

	return parse(ans)
}

func (p *filler) askText(n *Node, help string) (any, error) {
	var ans string
	var opts []survey.AskOpt

	if !n.Optional {
		opts = append(opts, survey.WithValidator(survey.Required))
	}

	for _, v := range n.Validators {
		if v.Type == "expression" {
			opts = append(opts, survey.WithValidator(validator.SurveyValidator(v.Expression, !n.Optional)))
		}
	}

	err := p.surveyor.AskOne(&survey.Input{
		Message: labelOf(n),
		Help:    help,
		Default: valueString(n.Value),
	}, &ans, opts...)
	if err != nil {
		return nil, err
	}

	return ans, nil
}

func labelOf(n *Node) string {
	if n.Label != "" {
		return n.Label
	}

	return n.Name
}

func valueString(v any) string {
	if v == nil {
		return ""
	}

	if s, ok := caseKey(v); ok {
		return s
	}

	return fmt.Sprintf("%v", v)
}
