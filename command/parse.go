package command

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// SubcommandKey is the reserved destination key under which the selected sub-command's name is stored.
const SubcommandKey = "subcommand"

// ParsedArguments is the result of parsing CLI arguments against a command hierarchy. It is immutable: accessors
// return copies of any mutable data.
type ParsedArguments struct {
	command       *Command
	values        map[string]any
	positionals   []string
	helpRequested bool
}

// Command returns the command selected by the parsed arguments (the root command if no sub-command was given).
func (pa *ParsedArguments) Command() *Command {
	return pa.command
}

// Subcommand returns the name of the selected sub-command, or "" if no sub-command was selected.
func (pa *ParsedArguments) Subcommand() string {
	if v, ok := pa.values[SubcommandKey].(string); ok {
		return v
	}
	return ""
}

// Action returns the action bound to the selected command, or nil if it has none.
func (pa *ParsedArguments) Action() Action {
	return pa.command.action
}

// HelpRequested reports whether "-h" or "--help" was given.
func (pa *ParsedArguments) HelpRequested() bool {
	return pa.helpRequested
}

// Get returns the value stored under the given destination key.
func (pa *ParsedArguments) Get(key string) (any, bool) {
	v, ok := pa.values[key]
	if s, isSlice := v.([]string); isSlice {
		return slices.Clone(s), ok
	}
	return v, ok
}

// String returns the string stored under the given key, or "" if missing or not a string.
func (pa *ParsedArguments) String(key string) string {
	s, _ := pa.values[key].(string)
	return s
}

// Bool returns the boolean stored under the given key, or false if missing or not a boolean.
func (pa *ParsedArguments) Bool(key string) bool {
	b, _ := pa.values[key].(bool)
	return b
}

// Strings returns the ordered list stored under the given key, or nil if missing or not a list.
func (pa *ParsedArguments) Strings(key string) []string {
	s, _ := pa.values[key].([]string)
	return slices.Clone(s)
}

// Map returns a copy of all destination keys and their values.
func (pa *ParsedArguments) Map() map[string]any {
	m := maps.Clone(pa.values)
	for k, v := range m {
		if s, ok := v.([]string); ok {
			m[k] = slices.Clone(s)
		}
	}
	return m
}

// Positionals returns the positional arguments, i.e. all arguments that are neither flags, flag values, nor
// sub-command names.
func (pa *ParsedArguments) Positionals() []string {
	return slices.Clone(pa.positionals)
}

// parseLevel holds the arguments given for one command in the selected chain.
type parseLevel struct {
	cmd         *Command
	view        *flagSetView
	flags       []string
	positionals []string
}

func newParseLevel(cmd *Command) (*parseLevel, error) {
	view, err := cmd.flags.newView()
	if err != nil {
		return nil, fmt.Errorf("invalid flags for command '%s': %w", cmd.getFullName(), err)
	}
	return &parseLevel{cmd: cmd, view: view}, nil
}

// Parse parses the given CLI arguments and environment variables against this command hierarchy. The receiver must be
// the root command.
//
// Arguments are split per command level: flags given before a sub-command name are resolved by the parent, flags
// after it by the sub-command (which also accepts flags inherited from its ancestors). For example:
//
//	root -a X subcommand2 -l v1 -l v2
//
// Resolves "-a X" against "root" and "-l v1 -l v2" against "subcommand2".
func (c *Command) Parse(args []string, envVars map[string]string) (*ParsedArguments, error) {
	_, pa, err := c.parse(args, envVars)
	return pa, err
}

// parse is like Parse, but also returns the command the arguments were addressed to, even on failure.
func (c *Command) parse(args []string, envVars map[string]string) (*Command, *ParsedArguments, error) {
	if c.parent != nil {
		return c, nil, fmt.Errorf("%w: command '%s' is not a root command", ErrInvalidCommand, c.name)
	}
	if envVars == nil {
		envVars = make(map[string]string)
	}

	current, err := newParseLevel(c)
	if err != nil {
		return c, nil, err
	}
	levels := []*parseLevel{current}

	onlyPositionalArgs := false
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if onlyPositionalArgs {
			current.positionals = append(current.positionals, arg)
		} else if arg == "--" {
			onlyPositionalArgs = true
		} else if arg != "-" && strings.HasPrefix(arg, "-") {
			current.flags = append(current.flags, arg)

			// Keep a value flag and its separate value token together, so the value is never mistaken for a
			// positional argument or a sub-command name
			if !strings.Contains(arg, "=") && i+1 < len(args) {
				if mfd := current.view.lookup(strings.TrimLeft(arg, "-")); mfd != nil && mfd.HasValue {
					i++
					current.flags = append(current.flags, args[i])
				}
			}
		} else if subCmd := current.cmd.findSubCommand(arg); subCmd != nil {
			if current, err = newParseLevel(subCmd); err != nil {
				return subCmd, nil, err
			}
			levels = append(levels, current)
		} else {
			current.positionals = append(current.positionals, arg)
		}
	}
	selected := current.cmd

	// Defaults & environment variables are applied to all levels before any CLI flag, since inherited flags are shared
	// between levels
	for _, level := range levels {
		if err := level.view.applyDefaults(envVars); err != nil {
			return selected, nil, err
		}
	}

	var positionals []string
	for _, level := range levels {
		remaining, err := level.view.parse(level.flags)
		if err != nil {
			return selected, nil, err
		}
		positionals = append(positionals, remaining...)
		positionals = append(positionals, level.positionals...)
	}

	root := selected.getRoot()
	helpRequested := root.HelpConfig.Help
	if !helpRequested {
		for _, level := range levels {
			if err := level.view.verify(); err != nil {
				return selected, nil, err
			}
		}
		if len(positionals) > 0 && !selected.flags.hasPositionalsTargets() {
			return selected, nil, &ErrUnexpectedArgument{Argument: positionals[0]}
		}
	}
	current.view.applyPositionals(positionals)

	values := make(map[string]any)
	for _, level := range levels {
		for _, mfd := range level.view.merged {
			if dest := mfd.getDest(); dest != "" {
				values[dest] = mfd.flagDefs[0].getValue()
			}
		}
	}
	if selected != c {
		values[SubcommandKey] = selected.name
	}

	return selected, &ParsedArguments{
		command:       selected,
		values:        values,
		positionals:   positionals,
		helpRequested: helpRequested,
	}, nil
}
