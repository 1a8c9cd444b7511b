package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
)

var (
	ErrInvalidCommand          = errors.New("invalid command")
	ErrCommandAlreadyHasParent = errors.New("command already has a parent")
)

// HelpConfig is a configuration added to every executed command, for automatic help screen generation.
type HelpConfig struct {
	Help bool `short:"h" dest:"-" inherited:"true" desc:"Show this help screen and exit."`
}

// Action is the behavior bound to a command. It receives the arguments parsed for the invocation.
type Action interface {
	Run(context.Context, *ParsedArguments) error
}

type ActionFunc func(context.Context, *ParsedArguments) error

func (i ActionFunc) Run(ctx context.Context, args *ParsedArguments) error {
	return i(ctx, args)
}

type PreRunHook interface {
	PreRun(context.Context) error
}

type PreRunHookFunc func(context.Context) error

func (i PreRunHookFunc) PreRun(ctx context.Context) error {
	if i != nil {
		return i(ctx)
	} else {
		return nil
	}
}

type PostRunHook interface {
	PostRun(context.Context, error, ExitCode) error
}

type PostRunHookFunc func(context.Context, error, ExitCode) error

func (i PostRunHookFunc) PostRun(ctx context.Context, err error, exitCode ExitCode) error {
	if i != nil {
		return i(ctx, err, exitCode)
	} else {
		return nil
	}
}

// Spec describes a command to create with [New].
type Spec struct {
	Name             string
	ShortDescription string
	LongDescription  string

	// Config is an optional pointer to a struct whose tagged fields become the command's flags.
	Config any

	// Action is optional; a command without an action can still be selected, but has nothing to run.
	Action Action

	// Hooks are objects implementing PreRunHook, PostRunHook or both.
	Hooks []any

	// Parent, when set, registers the new command as a sub-command of it.
	Parent *Command
}

// Command is a command instance, created by [New] and can be composed with more Command instances to form a CLI command
// hierarchy.
type Command struct {
	name             string
	shortDescription string
	longDescription  string
	config           any
	preRunHooks      []PreRunHook
	postRunHooks     []PostRunHook
	action           Action
	flags            *flagSet
	parent           *Command
	subCommands      []*Command
	HelpConfig       *HelpConfig
}

// MustNew creates a new command using [New], but will panic if it returns an error.
func MustNew(spec Spec, subCommands ...*Command) *Command {
	cmd, err := New(spec, subCommands...)
	if err != nil {
		panic(err)
	}
	return cmd
}

// New creates a new command from the given spec. The spec's config object, action and pre-run hooks are scanned for
// flag definitions via reflection. The given sub-commands are added to the new command.
func New(spec Spec, subCommands ...*Command) (*Command, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidCommand)
	} else if strings.HasPrefix(spec.Name, "-") || strings.ContainsAny(spec.Name, " \t\n") {
		return nil, fmt.Errorf("%w: illegal name '%s'", ErrInvalidCommand, spec.Name)
	} else if spec.ShortDescription == "" {
		return nil, fmt.Errorf("%w: empty short description", ErrInvalidCommand)
	}

	// Translate the any-based hooks list into pre-run and post-run hooks
	// Fail on any hook that doesn't implement at least one of them
	var preRunHooks []PreRunHook
	var postRunHooks []PostRunHook
	for i, hook := range spec.Hooks {
		var pre, post bool
		if preRunHook, ok := hook.(PreRunHook); ok {
			preRunHooks = append(preRunHooks, preRunHook)
			pre = true
		}
		if postRunHook, ok := hook.(PostRunHook); ok {
			postRunHooks = append(postRunHooks, postRunHook)
			post = true
		}
		if !pre && !post {
			return nil, fmt.Errorf("%w: hook %d (%T) is neither a PreRunHook nor a PostRunHook", ErrInvalidCommand, i, hook)
		}
	}

	// A typed nil (e.g. a nil ActionFunc) is stored as no action at all, so dispatching never calls it
	action := spec.Action
	if isNilAction(action) {
		action = nil
	}

	cmd := &Command{
		name:             spec.Name,
		shortDescription: spec.ShortDescription,
		longDescription:  spec.LongDescription,
		config:           spec.Config,
		action:           action,
		preRunHooks:      preRunHooks,
		postRunHooks:     postRunHooks,
		HelpConfig:       &HelpConfig{},
	}

	// Set nil parent
	if err := cmd.setParent(nil); err != nil {
		return nil, fmt.Errorf("failed creating command '%s': %w", spec.Name, err)
	}

	// Add sub-commands
	for _, subCmd := range subCommands {
		if err := cmd.AddSubCommand(subCmd); err != nil {
			return nil, fmt.Errorf("%w: failed adding sub-command '%s' to '%s': %w", ErrInvalidCommand, subCmd.name, spec.Name, err)
		}
	}

	if spec.Parent != nil {
		if err := spec.Parent.AddSubCommand(cmd); err != nil {
			return nil, fmt.Errorf("%w: failed adding '%s' to parent '%s': %w", ErrInvalidCommand, spec.Name, spec.Parent.name, err)
		}
	}

	return cmd, nil
}

// Name returns the name of this command.
func (c *Command) Name() string {
	return c.name
}

// Parent returns the parent command, or nil for a root command.
func (c *Command) Parent() *Command {
	return c.parent
}

// HasAction reports whether an action is bound to this command.
func (c *Command) HasAction() bool {
	return c.action != nil
}

// setParent updates the parent command of this command, and rebuilds its flag-set so that flags inherited from the
// new parent are visible.
func (c *Command) setParent(parent *Command) error {

	// Determine the parent flagSet, if any
	var parentFlags *flagSet
	if parent != nil {
		parentFlags = parent.flags
	} else if parentFlagSet, err := newFlagSet(nil, reflect.ValueOf(c).Elem().FieldByName("HelpConfig")); err != nil {
		return fmt.Errorf("failed creating Help flag set: %w", err)
	} else {
		parentFlags = parentFlagSet
	}

	// Create the flag-set
	var configObjects []reflect.Value
	if c.config != nil {
		configObjects = append(configObjects, reflect.ValueOf(c.config))
	}
	if c.action != nil && !sameObject(c.action, c.config) {
		configObjects = append(configObjects, reflect.ValueOf(c.action))
	}
	for _, hook := range c.preRunHooks {
		if !sameObject(hook, c.config) {
			configObjects = append(configObjects, reflect.ValueOf(hook))
		}
	}
	fs, err := newFlagSet(parentFlags, configObjects...)
	if err != nil {
		return fmt.Errorf("failed creating flag-set for command '%s': %w", c.name, err)
	} else if _, err := fs.getMergedFlagDefs(); err != nil {
		return fmt.Errorf("invalid flags for command '%s': %w", c.name, err)
	}
	c.parent = parent
	c.flags = fs

	// Sub-commands inherit from this command's flag-set, so theirs must be rebuilt too
	for _, subCmd := range c.subCommands {
		if err := subCmd.setParent(c); err != nil {
			return err
		}
	}
	return nil
}

// AddSubCommand will add the given command as a sub-command of this command. An error is returned if the given command
// already has another parent, or if this command already has a sub-command by the same name.
func (c *Command) AddSubCommand(cmd *Command) error {
	if cmd.parent != nil {
		return fmt.Errorf("%w: %s", ErrCommandAlreadyHasParent, cmd.parent.name)
	} else if c.findSubCommand(cmd.name) != nil {
		return fmt.Errorf("%w: duplicate sub-command name '%s'", ErrInvalidCommand, cmd.name)
	}
	if err := cmd.setParent(c); err != nil {
		return fmt.Errorf("failed setting parent for command '%s': %w", cmd.name, err)
	}
	c.subCommands = append(c.subCommands, cmd)
	return nil
}

func (c *Command) findSubCommand(name string) *Command {
	for _, subCmd := range c.subCommands {
		if subCmd.name == name {
			return subCmd
		}
	}
	return nil
}

// getFullName returns the names of all commands in this command's hierarchy, starting from the root, all the way to
// this command.
//
// For example, assuming the following command hierarchy:
//
//	cmd1 -> sub1 -> sub2 -> sub3
//
// This function would return "cmd1 sub1" for the "sub1" command.
func (c *Command) getFullName() string {
	var fullName string
	for cmd := c; cmd != nil; cmd = cmd.parent {
		if fullName != "" {
			fullName = " " + fullName
		}
		fullName = cmd.name + fullName
	}
	return fullName
}

// getChain returns the chain of commands for this command, starting from the root, all the way to this command.
func (c *Command) getChain() []*Command {
	var chain []*Command
	for cmd := c; cmd != nil; cmd = cmd.parent {
		chain = append([]*Command{cmd}, chain...)
	}
	return chain
}

func (c *Command) getRoot() *Command {
	root := c
	for root.parent != nil {
		root = root.parent
	}
	return root
}

func (c *Command) PrintHelp(w io.Writer, width int) error {
	ww, err := NewWrappingWriter(width)
	if err != nil {
		return err
	}

	prefix4 := strings.Repeat(" ", 4)
	prefix8 := strings.Repeat(" ", 8)
	fullName := c.getFullName()

	// Command name & short description
	_, _ = fmt.Fprint(ww, fullName)
	_, _ = fmt.Fprint(ww, ": ")
	_ = ww.SetLinePrefix(prefix4)
	_, _ = fmt.Fprintln(ww, c.shortDescription)
	_ = ww.SetLinePrefix("")
	_, _ = fmt.Fprintln(ww)

	// Long description if we have one
	if c.longDescription != "" {
		_, _ = fmt.Fprint(ww, "Description: ")
		_ = ww.SetLinePrefix(prefix4)
		_, _ = fmt.Fprintln(ww, c.longDescription)
		_ = ww.SetLinePrefix("")
		_, _ = fmt.Fprintln(ww)
	}

	// Usage line
	_, _ = fmt.Fprintln(ww, "Usage:")
	_ = ww.SetLinePrefix(prefix4)
	_, _ = fmt.Fprint(ww, fullName+" ")
	_ = ww.SetLinePrefix(prefix8)
	if err := c.printUsageTail(ww); err != nil {
		return err
	}
	_ = ww.SetLinePrefix("")
	_, _ = fmt.Fprintln(ww)
	_, _ = fmt.Fprintln(ww)

	// Flags
	if c.flags.hasFlags() {
		_, _ = fmt.Fprintln(ww, "Flags:")
		_ = ww.SetLinePrefix(prefix4)
		if err := c.flags.printFlagsMultiLine(ww, prefix4); err != nil {
			return err
		}
		_ = ww.SetLinePrefix("")
		_, _ = fmt.Fprintln(ww)
	}

	// Sub-commands
	if len(c.subCommands) > 0 {
		_, _ = fmt.Fprintln(ww, "Available sub-commands:")

		lenOfLongestSubCommand := 0
		for _, subCmd := range c.subCommands {
			if len(subCmd.name) > lenOfLongestSubCommand {
				lenOfLongestSubCommand = len(subCmd.name)
			}
		}
		subCommandNameDescSpacing := 10 - lenOfLongestSubCommand%10
		subCommandDescriptionCol := lenOfLongestSubCommand + subCommandNameDescSpacing

		for _, subCmd := range c.subCommands {
			_ = ww.SetLinePrefix(prefix4)
			_, _ = fmt.Fprint(ww, subCmd.name)
			_, _ = fmt.Fprint(ww, strings.Repeat(" ", subCommandDescriptionCol-len(subCmd.name)))
			_ = ww.SetLinePrefix(strings.Repeat(" ", len(prefix4)+subCommandDescriptionCol))
			_, _ = fmt.Fprintln(ww, subCmd.shortDescription)
		}
		_ = ww.SetLinePrefix("")
		_, _ = fmt.Fprintln(ww)
	}

	if _, err = w.Write([]byte(ww.String())); err != nil {
		return err
	}
	return nil
}

func (c *Command) PrintUsageLine(w io.Writer, width int) error {
	ww, err := NewWrappingWriter(width)
	if err != nil {
		return err
	}

	prefix4 := strings.Repeat(" ", 4)
	fullName := c.getFullName()

	_, _ = fmt.Fprint(ww, "Usage: ")
	_ = ww.SetLinePrefix(prefix4)
	_, _ = fmt.Fprint(ww, fullName+" ")
	if err := c.printUsageTail(ww); err != nil {
		return err
	}
	_ = ww.SetLinePrefix("")
	_, _ = fmt.Fprintln(ww)

	if _, err = w.Write([]byte(ww.String())); err != nil {
		return err
	}
	return nil
}

// printUsageTail prints everything in the usage line after the command name: flags, positionals & sub-commands.
func (c *Command) printUsageTail(w io.Writer) error {
	if err := c.flags.printFlagsSingleLine(w); err != nil {
		return err
	}
	if len(c.subCommands) > 0 {
		names := make([]string, 0, len(c.subCommands))
		for _, subCmd := range c.subCommands {
			names = append(names, subCmd.name)
		}
		_, _ = fmt.Fprintf(w, " [{%s} ...]", strings.Join(names, ","))
	}
	return nil
}
