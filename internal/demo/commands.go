package demo

import (
	"github.com/arikkfir/cliscript/command"
)

const (
	ScriptName             = "cli-script-example"
	SubcommandsScriptName  = "cli-script-example-subcommands"
	scriptShortDescription = "Script parser"
	scriptLongDescription  = "Prints the parsed arguments and the YAML configuration, then shows how to access specific configuration values."
)

// NewCommand builds the argument model of the script without sub-commands.
func NewCommand(s *Script) (*command.Command, error) {
	return command.New(command.Spec{
		Name:             ScriptName,
		ShortDescription: scriptShortDescription,
		LongDescription:  scriptLongDescription,
		Config:           s,
		Action:           command.ActionFunc(s.Main),
		Hooks:            []any{s},
	})
}

// NewCommandWithSubcommands builds the argument model of the script with "subcommand1" (which has a default action)
// and "subcommand2" (which accepts a repeated "-l" flag and has no action).
func NewCommandWithSubcommands(s *Script) (*command.Command, error) {
	root, err := command.New(command.Spec{
		Name:             SubcommandsScriptName,
		ShortDescription: scriptShortDescription,
		LongDescription:  scriptLongDescription,
		Config:           s,
		Action:           command.ActionFunc(s.Main),
		Hooks:            []any{s},
	})
	if err != nil {
		return nil, err
	}

	if _, err := command.New(command.Spec{
		Name:             "subcommand1",
		ShortDescription: "Call subcommand 1",
		Action:           command.ActionFunc(s.Subcommand1),
		Parent:           root,
	}); err != nil {
		return nil, err
	}

	if _, err := command.New(command.Spec{
		Name:             "subcommand2",
		ShortDescription: "Call subcommand 2",
		Config:           s.list,
		Parent:           root,
	}); err != nil {
		return nil, err
	}

	return root, nil
}
