// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/choria-io/fisk"
	"github.com/choria-io/formstate"
	"github.com/choria-io/formstate/forms"
	"github.com/choria-io/formstate/internal/logging"
	"github.com/choria-io/formstate/internal/preview"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

var (
	formFile       string
	runFile        string
	configFile     string
	messagesFile   string
	templateFile   string
	engineString   string
	leftDelimiter  string
	rightDelimiter string
	historyID      string
	newHistory     string
	values         map[string]string
	rejectEmpty    bool
	nested         bool
	showArgv       bool
	logLevel       string
	logFormat      string
	logFile        string
	debug          bool
	version        string

	log      formstate.Logger
	closeLog func()
)

func main() {
	values = map[string]string{}

	app := fisk.New("formstate", "Inspects, fills and submits tool and workflow forms")
	app.Version(version)

	app.Help = `
Loads tool parameter trees and workflow run descriptions in JSON or YAML format and
works with them the same way an editing client would.

Forms can be flattened, validated, filled interactively and previewed as a command
line, workflow runs are linked and assembled into an invocation payload.
`
	app.Flag("log-level", "Log level (debug, info, warn, error)").Default("warn").EnumVar(&logLevel, "debug", "info", "warn", "warning", "error")
	app.Flag("log-format", "Log format (text, json)").Default("text").EnumVar(&logFormat, "text", "json")
	app.Flag("log-file", "Also write logs to a file").PlaceHolder("FILE").StringVar(&logFile)
	app.Flag("debug", "Log at debug level").UnNegatableBoolVar(&debug)
	app.PreAction(setupLogging)

	flatten := app.Command("flatten", "Lists the active parameters of a form").Action(flattenAction)
	flatten.Arg("form", "The file holding the parameter tree").Required().ExistingFileVar(&formFile)
	flatten.Flag("value", "Sets a parameter value before flattening").PlaceHolder("PATH=VALUE").StringMapVar(&values)

	validate := app.Command("validate", "Validates the values of a form").Action(validateAction)
	validate.Arg("form", "The file holding the parameter tree").Required().ExistingFileVar(&formFile)
	validate.Flag("value", "Sets a parameter value before validating").PlaceHolder("PATH=VALUE").StringMapVar(&values)
	validate.Flag("reject-empty", "Treat empty strings as missing values").UnNegatableBoolVar(&rejectEmpty)

	errs := app.Command("errors", "Matches a server error document to the parameters of a form").Action(errorsAction)
	errs.HelpLong(`
The error document is a nested structure of messages keyed by parameter name, lists
address the instances of repeats. Messages for parameters that are not active are dropped.
`)
	errs.Arg("form", "The file holding the parameter tree").Required().ExistingFileVar(&formFile)
	errs.Arg("messages", "The file holding the error messages").Required().ExistingFileVar(&messagesFile)

	fill := app.Command("fill", "Fills a form using interactive prompts").Action(fillAction)
	fill.HelpLong(`
Every active parameter is prompted for in order, parameters of selected conditional cases
are prompted for as they become active. The shell environment is available as ENVIRONMENT
in help templates.
`)
	fill.Arg("form", "The file holding the parameter tree").Required().ExistingFileVar(&formFile)
	fill.Flag("nested", "Show the result as nested data").UnNegatableBoolVar(&nested)

	prev := app.Command("preview", "Renders the command line of a tool from its form").Action(previewAction)
	prev.Arg("form", "The file holding the parameter tree").Required().ExistingFileVar(&formFile)
	prev.Arg("template", "The file holding the command template").Required().ExistingFileVar(&templateFile)
	prev.Flag("value", "Sets a parameter value before rendering").PlaceHolder("PATH=VALUE").StringMapVar(&values)
	prev.Flag("engine", "The template engine to use (jet, go)").Default("go").EnumVar(&engineString, "jet", "go")
	prev.Flag("left", "Left delimiter").Default("{{").StringVar(&leftDelimiter)
	prev.Flag("right", "Right delimiter").Default("}}").StringVar(&rightDelimiter)
	prev.Flag("argv", "Show the individual arguments").UnNegatableBoolVar(&showArgv)

	run := app.Command("run", "Links the steps of a workflow run and assembles the invocation payload").Action(runAction)
	run.HelpLong(`
The run configuration sets step values by step index and parameter path and values for
workflow parameters by name, see formstate.Config.
`)
	run.Arg("run", "The file holding the workflow run description").Required().ExistingFileVar(&runFile)
	run.Flag("config", "The file holding the run configuration").PlaceHolder("FILE").ExistingFileVar(&configFile)
	run.Flag("history", "Runs in an existing history").PlaceHolder("ID").StringVar(&historyID)
	run.Flag("new-history", "Runs in a new history with this name").PlaceHolder("NAME").StringVar(&newHistory)

	defer func() {
		if closeLog != nil {
			closeLog()
		}
	}()

	app.MustParseWithUsage(os.Args[1:])
}

func setupLogging(_ *fisk.ParseContext) error {
	level := logging.ParseLevel(logLevel)
	if debug {
		level = slog.LevelDebug
	}

	writers := []io.Writer{os.Stderr}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return fmt.Errorf("could not open log file: %w", err)
		}
		writers = append(writers, f)
		closeLog = func() { f.Close() }
	}

	log = logging.NewPrintf(logging.NewFanoutLogger(level, logFormat, writers...))

	return nil
}

// decodeFile unmarshals path into target as YAML or JSON based on its extension
func decodeFile(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, target)
	default:
		err = json.Unmarshal(data, target)
	}
	if err != nil {
		return fmt.Errorf("could not parse %s: %w", path, err)
	}

	return nil
}

func loadStore() (*forms.Store, error) {
	var tree forms.Tree
	err := decodeFile(formFile, &tree)
	if err != nil {
		return nil, err
	}

	store := forms.NewStore(forms.WithLogger(log))
	store.CloneInputs(tree)

	if len(values) > 0 {
		params := map[string]any{}
		for k, v := range values {
			params[k] = v
		}
		store.ReplaceParams(params)
	}

	return store, nil
}

func newTable(header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row(header))

	return t
}

func compact(v any) string {
	if v == nil {
		return ""
	}

	j, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}

	return string(j)
}

func printJSON(v any) error {
	j, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(j))

	return nil
}

func flattenAction(_ *fisk.ParseContext) error {
	store, err := loadStore()
	if err != nil {
		return err
	}

	t := newTable("Path", "Type", "Value", "Flags")
	store.Index().Each(func(path string, n *forms.Node) {
		var flags []string
		if n.Optional {
			flags = append(flags, "optional")
		}
		if n.Multiple {
			flags = append(flags, "multiple")
		}
		if n.RefreshOnChange {
			flags = append(flags, "refresh")
		}
		t.AppendRow(table.Row{path, n.Type, compact(n.Value), strings.Join(flags, ", ")})
	})
	t.Render()

	return nil
}

func validateAction(_ *fisk.ParseContext) error {
	store, err := loadStore()
	if err != nil {
		return err
	}

	failure := store.Validate(rejectEmpty)
	if failure != nil {
		return fmt.Errorf("validation failed: %w", failure)
	}

	fmt.Printf("All %d active parameters are valid\n", store.Index().Len())

	return nil
}

func errorsAction(_ *fisk.ParseContext) error {
	store, err := loadStore()
	if err != nil {
		return err
	}

	var messages any
	err = decodeFile(messagesFile, &messages)
	if err != nil {
		return err
	}

	store.ApplyErrors(messages)

	matched := store.Errors()
	if len(matched) == 0 {
		fmt.Println("No messages matched an active parameter")
		return nil
	}

	t := newTable("Path", "Error")
	for _, path := range store.Index().Paths() {
		if msg, ok := matched[path]; ok {
			t.AppendRow(table.Row{path, msg})
		}
	}
	t.Render()

	return nil
}

func environment() map[string]any {
	envData := map[string]string{}
	for _, val := range os.Environ() {
		parts := strings.SplitN(val, "=", 2)
		if len(parts) != 2 {
			continue
		}
		envData[parts[0]] = parts[1]
	}

	return map[string]any{"ENVIRONMENT": envData}
}

func fillAction(_ *fisk.ParseContext) error {
	store, err := loadStore()
	if err != nil {
		return err
	}

	err = forms.Fill(store, environment())
	if err != nil {
		return err
	}

	if nested {
		return printJSON(store.Nested())
	}

	return printJSON(store.BuildFormData())
}

func previewAction(_ *fisk.ParseContext) error {
	store, err := loadStore()
	if err != nil {
		return err
	}

	tmpl, err := os.ReadFile(templateFile)
	if err != nil {
		return err
	}

	cfg := preview.Config{
		Template:             string(tmpl),
		CustomLeftDelimiter:  leftDelimiter,
		CustomRightDelimiter: rightDelimiter,
	}

	var p *preview.Preview
	if engineString == "jet" {
		p, err = preview.NewJet(cfg, nil)
	} else {
		p, err = preview.New(cfg, nil)
	}
	if err != nil {
		return err
	}
	p.Logger(log)

	if !showArgv {
		cmd, err := p.Render(store.Nested())
		if err != nil {
			return err
		}

		fmt.Println(cmd)

		return nil
	}

	argv, err := p.Argv(store.Nested())
	if err != nil {
		return err
	}

	t := newTable("#", "Argument")
	for i, arg := range argv {
		t.AppendRow(table.Row{i, arg})
	}
	t.Render()

	return nil
}

func runAction(_ *fisk.ParseContext) error {
	run := &formstate.RunData{}
	err := decodeFile(runFile, run)
	if err != nil {
		return err
	}

	cfg := formstate.Config{}
	if configFile != "" {
		err = decodeFile(configFile, &cfg)
		if err != nil {
			return err
		}
	}
	if historyID != "" {
		cfg.HistoryID = historyID
	}
	if newHistory != "" {
		cfg.NewHistoryName = newHistory
	}

	w, err := formstate.New(run, formstate.WithLogger(log))
	if err != nil {
		return err
	}

	err = w.Apply(cfg)
	if err != nil {
		return err
	}

	links := w.Links()
	steps := newTable("Step", "Index", "Type", "Title", "Feeds")
	for _, step := range w.Steps() {
		var feeds []string
		for _, target := range links[step.Position] {
			feeds = append(feeds, fmt.Sprintf("%d", target+1))
		}
		steps.AppendRow(table.Row{step.Position + 1, step.StepIndex, step.Type, step.Title(), strings.Join(feeds, ", ")})
	}
	steps.Render()

	params := w.Parameters()
	if len(params) > 0 {
		current := w.ParameterStore().BuildFormData()
		t := newTable("Parameter", "Value", "Steps")
		for _, p := range params {
			var used []string
			for _, pos := range p.Steps {
				used = append(used, fmt.Sprintf("%d", pos+1))
			}
			t.AppendRow(table.Row{p.Name, compact(current[p.Name]), strings.Join(used, ", ")})
		}
		t.Render()
	}

	payload, err := w.Submission(cfg)
	if err != nil {
		var verr *formstate.ValidationError
		if errors.As(err, &verr) {
			step, _ := w.Step(verr.Position)
			return fmt.Errorf("step %d (%s) input %s: %s", verr.Position+1, step.Title(), verr.Path, verr.Message)
		}

		return err
	}

	return printJSON(payload)
}
