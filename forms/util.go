// Copyright (c) 2023-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package forms

import (
	"bytes"
	"os"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/jedib0t/go-pretty/v6/text"
	terminal "golang.org/x/term"
)

// option is a select option as a display label and the value it selects
type option struct {
	label    string
	value    any
	selected bool
}

// optionPairs understands options as [label, value, selected] tuples, {label, value}
// objects or bare values
func optionPairs(opts []any) []option {
	res := make([]option, 0, len(opts))

	for _, o := range opts {
		switch val := o.(type) {
		case []any:
			if len(val) == 0 {
				continue
			}
			opt := option{label: valueString(val[0]), value: val[0]}
			if len(val) > 1 {
				opt.value = val[1]
			}
			if len(val) > 2 {
				opt.selected = asBool(val[2])
			}
			res = append(res, opt)

		case map[string]any:
			opt := option{label: valueString(val["label"]), value: val["value"], selected: asBool(val["selected"])}
			if opt.label == "" {
				opt.label = valueString(val["value"])
			}
			res = append(res, opt)

		default:
			res = append(res, option{label: valueString(val), value: val})
		}
	}

	return res
}

// selectedLabels finds the labels of the options current selects, falling back to the
// options the server marked as selected
func selectedLabels(opts []option, current any) []string {
	var res []string

	want := map[string]bool{}
	switch val := current.(type) {
	case nil:
	case []any:
		for _, v := range val {
			want[valueString(v)] = true
		}
	default:
		want[valueString(val)] = true
	}

	for _, o := range opts {
		if want[valueString(o.value)] {
			res = append(res, o.label)
		}
	}

	if len(res) > 0 {
		return res
	}

	for _, o := range opts {
		if o.selected {
			res = append(res, o.label)
		}
	}

	return res
}

func isTerminal() bool {
	return terminal.IsTerminal(int(os.Stdin.Fd())) && terminal.IsTerminal(int(os.Stdout.Fd()))
}

func isOneOf(val string, valid ...string) bool {
	for _, v := range valid {
		if val == v {
			return true
		}
	}
	return false
}

func renderTemplate(tmpl string, env map[string]any) (string, error) {
	if tmpl == "" {
		return "", nil
	}

	t, err := template.New("help").Funcs(sprig.TxtFuncMap()).Parse(tmpl)
	if err != nil {
		return "", err
	}

	out := bytes.NewBuffer([]byte{})

	err = t.Execute(out, env)
	if err != nil {
		return "", err
	}

	return colorMarkup(out.String()), nil
}

// colorMarkup parses a string with color markup tags and returns a colorized string.
// Supports tags like {red}text{/red}, nesting and any color of the go-pretty text package.
func colorMarkup(input string) string {
	colorMap := map[string]text.Color{
		"bold":      text.Bold,
		"black":     text.FgBlack,
		"red":       text.FgRed,
		"green":     text.FgGreen,
		"yellow":    text.FgYellow,
		"blue":      text.FgBlue,
		"magenta":   text.FgMagenta,
		"cyan":      text.FgCyan,
		"white":     text.FgWhite,
		"hiblack":   text.FgHiBlack,
		"hired":     text.FgHiRed,
		"higreen":   text.FgHiGreen,
		"hiyellow":  text.FgHiYellow,
		"hiblue":    text.FgHiBlue,
		"himagenta": text.FgHiMagenta,
		"hicyan":    text.FgHiCyan,
		"hiwhite":   text.FgHiWhite,
	}

	result := input
	for {
		tag, start, end, content, ok := innermostTag(result)
		if !ok {
			return result
		}

		if color, exists := colorMap[strings.ToLower(tag)]; exists {
			content = text.Colors{color}.Sprint(content)
		}

		result = result[:start] + content + result[end:]
	}
}

// innermostTag finds the first {tag}...{/tag} pair whose content holds no other opening tag
func innermostTag(s string) (tag string, start int, end int, content string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}

		closePos := strings.Index(s[i:], "}")
		if closePos == -1 {
			return "", 0, 0, "", false
		}
		closePos += i

		name := s[i+1 : closePos]
		if name == "" || strings.ContainsAny(name, "/{ ") {
			continue
		}

		closeTag := "{/" + name + "}"
		closeStart := strings.Index(s[closePos+1:], closeTag)
		if closeStart == -1 {
			continue
		}
		closeStart += closePos + 1

		body := s[closePos+1 : closeStart]
		if hasOpeningTag(body) {
			continue
		}

		return name, i, closeStart + len(closeTag), body, true
	}

	return "", 0, 0, "", false
}

func hasOpeningTag(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '{' && i+1 < len(s) && s[i+1] != '/' {
			return true
		}
	}

	return false
}
