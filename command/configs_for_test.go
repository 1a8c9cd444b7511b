package command

import (
	"context"
)

type RootConfig struct {
	Argument  string `name:"argument" short:"a" dest:"arg" value-name:"ARG" required:"true" desc:"Required argument."`
	B         string `name:"b" dest:"arg_b" default:"default_b" desc:"Optional argument with a default."`
	TrueFlag  bool   `short:"t" dest:"tflg" desc:"True if set."`
	FalseFlag bool   `short:"f" dest:"fflg" default:"true" desc:"False if set."`
	Retries   int    `dest:"retries" desc:"Number of retries."`
	Verbose   bool   `inherited:"true" desc:"Verbose output."`
}

type ListConfig struct {
	List []string `name:"l" dest:"arglist" value-name:"ARG" desc:"Repeatable list argument."`
}

type ArgsConfig struct {
	Args []string `args:"true"`
}

type recordingAction struct {
	calls int
	args  *ParsedArguments
	err   error
}

func (a *recordingAction) Run(_ context.Context, args *ParsedArguments) error {
	a.calls++
	a.args = args
	return a.err
}

type recordingHook struct {
	name   string
	events *[]string
	preErr error
}

func (h *recordingHook) PreRun(context.Context) error {
	*h.events = append(*h.events, "pre:"+h.name)
	return h.preErr
}

func (h *recordingHook) PostRun(_ context.Context, err error, exitCode ExitCode) error {
	*h.events = append(*h.events, "post:"+h.name)
	return nil
}

// testHierarchy is a root command with a required flag, a sub-command with an action, a sub-command with a repeated
// flag and no action, and a sub-command accepting positional arguments.
type testHierarchy struct {
	root, sub1, sub2, sub3 *Command
	rootAction, sub1Action *recordingAction
	rootConfig             *RootConfig
	listConfig             *ListConfig
	argsConfig             *ArgsConfig
}

func newTestHierarchy() *testHierarchy {
	h := &testHierarchy{
		rootAction: &recordingAction{},
		sub1Action: &recordingAction{},
		rootConfig: &RootConfig{},
		listConfig: &ListConfig{},
		argsConfig: &ArgsConfig{},
	}
	h.root = MustNew(Spec{
		Name:             "root",
		ShortDescription: "Root command",
		Config:           h.rootConfig,
		Action:           h.rootAction,
	})
	h.sub1 = MustNew(Spec{
		Name:             "subcommand1",
		ShortDescription: "Sub-command with an action",
		Action:           h.sub1Action,
		Parent:           h.root,
	})
	h.sub2 = MustNew(Spec{
		Name:             "subcommand2",
		ShortDescription: "Sub-command without an action",
		Config:           h.listConfig,
		Parent:           h.root,
	})
	h.sub3 = MustNew(Spec{
		Name:             "subcommand3",
		ShortDescription: "Sub-command with positional arguments",
		Config:           h.argsConfig,
		Action:           ActionFunc(func(context.Context, *ParsedArguments) error { return nil }),
		Parent:           h.root,
	})
	return h
}
