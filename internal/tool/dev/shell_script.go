package dev

import (
	"context"
	"fmt"
	"strings"

	"github.com/kazz187/devguild/internal/tool"
	"github.com/kazz187/devguild/pkg/cerr"
	"github.com/kazz187/devguild/pkg/shellformat"
)

// ShellScript assembles a bash script from a command list and runs it
// through the formatter so output is consistently indented.
type ShellScript struct{}

func NewShellScript() *ShellScript { return &ShellScript{} }

func (s *ShellScript) Descriptor() tool.Descriptor {
	return tool.Descriptor{
		Name:        "shell_script",
		Description: "Generate a formatted bash script from a list of commands",
		Tags:        []string{"shell", "generator", "script"},
		Params: []tool.ParamSpec{
			{Name: "script_name", Type: tool.TypeString, Required: true, Description: "Script file name"},
			{Name: "commands", Type: tool.TypeArray, Required: true, Description: "Commands to run in order"},
			{Name: "description", Type: tool.TypeString, Description: "Comment placed under the shebang"},
			{Name: "strict", Type: tool.TypeBoolean, Description: "Prepend set -euo pipefail"},
		},
	}
}

func (s *ShellScript) Execute(_ context.Context, params map[string]any) (*tool.Result, error) {
	rawName, err := requireString(params, "script_name")
	if err != nil {
		return nil, err
	}
	name := toKebabCase(strings.TrimSuffix(rawName, ".sh")) + ".sh"

	commands := []string{}
	for _, c := range arrayParam(params, "commands") {
		if cmd, ok := c.(string); ok && strings.TrimSpace(cmd) != "" {
			commands = append(commands, cmd)
		}
	}
	if len(commands) == 0 {
		return nil, cerr.NewError(cerr.InvalidArgument, "shell_script requires at least one command", nil)
	}

	var sb strings.Builder
	sb.WriteString("#!/usr/bin/env bash\n")
	if desc := stringParam(params, "description", ""); desc != "" {
		fmt.Fprintf(&sb, "# %s\n", desc)
	}
	if boolParam(params, "strict", true) {
		sb.WriteString("set -euo pipefail\n")
	}
	sb.WriteString("\n")
	for _, cmd := range commands {
		sb.WriteString(cmd)
		sb.WriteString("\n")
	}

	formatted, err := shellformat.Format(sb.String())
	if err != nil {
		return nil, cerr.NewError(cerr.InvalidArgument, "invalid shell command", err)
	}

	return &tool.Result{
		Output: formatted,
		Meta:   map[string]any{"file": name, "commands": len(commands)},
	}, nil
}
