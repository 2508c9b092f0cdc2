// Copyright (c) 2023-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package preview renders the command line a tool would run for a form from a command
// template and the nested form data.
package preview

import (
	"bytes"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"text/template"

	"github.com/CloudyKit/jet/v6"
	"github.com/Masterminds/sprig/v3"
	"github.com/kballard/go-shellquote"
)

// Config configures a command preview
type Config struct {
	// Template is the command template
	Template string `json:"template" yaml:"template"`
	// Sets a custom template delimiter
	CustomLeftDelimiter string `json:"left_delimiter,omitempty" yaml:"left_delimiter"`
	// Sets a custom template delimiter
	CustomRightDelimiter string `json:"right_delimiter,omitempty" yaml:"right_delimiter"`
}

// Logger receives diagnostic messages, no logging is done without one
type Logger interface {
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
}

type engineType int

const (
	engineGoTemplate engineType = iota
	engineJet
)

// Preview renders command templates
type Preview struct {
	cfg      *Config
	engine   engineType
	funcs    template.FuncMap
	jetFuncs map[string]jet.Func
	log      Logger
}

// New creates a preview using Go templates with the Sprig functions and funcs
func New(cfg Config, funcs template.FuncMap) (*Preview, error) {
	err := validateConfig(&cfg)
	if err != nil {
		return nil, err
	}

	return &Preview{cfg: &cfg, funcs: funcs}, nil
}

// NewJet creates a preview using the Jet template engine
func NewJet(cfg Config, funcs map[string]jet.Func) (*Preview, error) {
	err := validateConfig(&cfg)
	if err != nil {
		return nil, err
	}

	return &Preview{cfg: &cfg, engine: engineJet, jetFuncs: funcs}, nil
}

func validateConfig(cfg *Config) error {
	if strings.TrimSpace(cfg.Template) == "" {
		return fmt.Errorf("template is required")
	}

	if (cfg.CustomLeftDelimiter == "") != (cfg.CustomRightDelimiter == "") {
		return fmt.Errorf("both left and right delimiters are required")
	}

	return nil
}

// Logger configures a logger to use, no logging is done without this
func (p *Preview) Logger(log Logger) {
	p.log = log
}

// Render renders the command with data, runs of white space are collapsed into single
// spaces so templates can span lines
func (p *Preview) Render(data any) (string, error) {
	var res []byte
	var err error

	switch p.engine {
	case engineJet:
		res, err = p.renderJet(data)
	default:
		res, err = p.renderGoTempl(data)
	}
	if err != nil {
		return "", err
	}

	cmd := strings.Join(strings.Fields(string(res)), " ")

	if p.log != nil {
		p.log.Debugf("Rendered command %q", cmd)
	}

	return cmd, nil
}

// Argv renders the command and splits it into arguments using shell quoting rules
func (p *Preview) Argv(data any) ([]string, error) {
	cmd, err := p.Render(data)
	if err != nil {
		return nil, err
	}

	argv, err := shellquote.Split(cmd)
	if err != nil {
		return nil, fmt.Errorf("invalid command %q: %w", cmd, err)
	}

	return argv, nil
}

// flag renders --name value with the value shell quoted, or nothing for empty values
func flag(name string, value any) string {
	values := valueStrings(value)
	if len(values) == 0 {
		return ""
	}

	return shellquote.Join(append([]string{name}, strings.Join(values, ","))...)
}

// datasets lists the identifiers of a data selection, scalars are returned as is
func datasets(value any) []string {
	return valueStrings(value)
}

func valueStrings(value any) []string {
	switch val := value.(type) {
	case nil:
		return nil
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	case []any:
		var res []string
		for _, v := range val {
			res = append(res, valueStrings(v)...)
		}
		return res
	case map[string]any:
		if vals, ok := val["values"]; ok {
			return valueStrings(vals)
		}
		if id, ok := val["id"]; ok {
			return valueStrings(id)
		}
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return keys
	default:
		return []string{fmt.Sprint(val)}
	}
}

func (p *Preview) templateFuncs() template.FuncMap {
	funcs := sprig.TxtFuncMap()
	for k, v := range p.funcs {
		funcs[k] = v
	}

	funcs["flag"] = flag
	funcs["datasets"] = datasets
	funcs["shellquote"] = func(args ...string) string { return shellquote.Join(args...) }

	return funcs
}

func (p *Preview) jetTemplateFuncs() map[string]jet.Func {
	funcs := make(map[string]jet.Func)
	for k, v := range p.jetFuncs {
		funcs[k] = v
	}

	funcs["flag"] = func(args jet.Arguments) reflect.Value {
		args.RequireNumOfArguments("flag", 2, 2)

		name := fmt.Sprint(args.Get(0).Interface())
		var value any
		if v := args.Get(1); v.IsValid() {
			value = v.Interface()
		}

		return reflect.ValueOf(flag(name, value))
	}

	funcs["datasets"] = func(args jet.Arguments) reflect.Value {
		args.RequireNumOfArguments("datasets", 1, 1)

		var value any
		if v := args.Get(0); v.IsValid() {
			value = v.Interface()
		}

		return reflect.ValueOf(strings.Join(datasets(value), " "))
	}

	funcs["shellquote"] = func(args jet.Arguments) reflect.Value {
		args.RequireNumOfArguments("shellquote", 1, -1)

		parts := make([]string, 0, args.NumOfArguments())
		for i := 0; i < args.NumOfArguments(); i++ {
			parts = append(parts, fmt.Sprint(args.Get(i).Interface()))
		}

		return reflect.ValueOf(shellquote.Join(parts...))
	}

	return funcs
}

func (p *Preview) renderGoTempl(data any) ([]byte, error) {
	buf := bytes.NewBuffer([]byte{})
	templ := template.New("command")
	templ.Funcs(p.templateFuncs())

	if p.cfg.CustomLeftDelimiter != "" && p.cfg.CustomRightDelimiter != "" {
		templ.Delims(p.cfg.CustomLeftDelimiter, p.cfg.CustomRightDelimiter)
	}

	templ, err := templ.Parse(p.cfg.Template)
	if err != nil {
		return nil, fmt.Errorf("parsing command template failed: %w", err)
	}

	err = templ.Execute(buf, data)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (p *Preview) renderJet(data any) ([]byte, error) {
	loader := jet.NewInMemLoader()
	loader.Set("command", p.cfg.Template)

	opts := []jet.Option{jet.WithSafeWriter(nil)}
	if p.cfg.CustomLeftDelimiter != "" && p.cfg.CustomRightDelimiter != "" {
		opts = append(opts, jet.WithDelims(p.cfg.CustomLeftDelimiter, p.cfg.CustomRightDelimiter))
	}

	set := jet.NewSet(loader, opts...)

	for k, fn := range p.jetTemplateFuncs() {
		set.AddGlobalFunc(k, fn)
	}

	t, err := set.GetTemplate("command")
	if err != nil {
		return nil, fmt.Errorf("parsing command template failed: %w", err)
	}

	buf := bytes.NewBuffer([]byte{})
	err = t.Execute(buf, nil, data)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
