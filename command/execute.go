package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

type ExitCode int

const (
	ExitCodeSuccess          ExitCode = 0
	ExitCodeError            ExitCode = 1
	ExitCodeMisconfiguration ExitCode = 2
)

// ExecuteWithContext parses the given CLI args and environment variables against the command hierarchy starting at
// "root", and runs the selected command with the given context after all pre-run hooks in the command chain have been
// successfully executed.
//
// Invoking with no arguments at all, or with "-h"/"--help", prints the help screen and succeeds. Usage errors print
// the error and a usage line, and return ExitCodeMisconfiguration. A selected sub-command without an action is
// reported, and is not an error.
func ExecuteWithContext(ctx context.Context, w io.Writer, root *Command, args []string, envVars map[string]string) (exitCode ExitCode) {
	exitCode = ExitCodeSuccess

	// We insist on getting the root command - so that we can infer correctly which command the user wanted to invoke
	if root.parent != nil {
		_, _ = fmt.Fprintf(w, "%s: command must be the root command\n", errors.ErrUnsupported)
		exitCode = ExitCodeError
		return
	}

	if len(args) == 0 {
		if err := root.PrintHelp(w, getTerminalWidth()); err != nil {
			_, _ = fmt.Fprintln(w, err)
			exitCode = ExitCodeError
		}
		return
	}

	cmd, parsed, err := root.parse(args, envVars)
	if err != nil {
		_, _ = fmt.Fprintln(w, err)
		if !errors.Is(err, ErrUsage) {
			exitCode = ExitCodeError
			return
		} else if err := cmd.PrintUsageLine(w, getTerminalWidth()); err != nil {
			_, _ = fmt.Fprintln(w, err)
			exitCode = ExitCodeError
			return
		}
		exitCode = ExitCodeMisconfiguration
		return
	} else if parsed.HelpRequested() {
		if err := cmd.PrintHelp(w, getTerminalWidth()); err != nil {
			_, _ = fmt.Fprintln(w, err)
			exitCode = ExitCodeError
		}
		return
	}

	// Results
	var actionError error

	// Ensure we invoke post-run hooks before we return
	chain := cmd.getChain()
	defer func() {
		for i := len(chain) - 1; i >= 0; i-- {
			c := chain[i]
			for j := len(c.postRunHooks) - 1; j >= 0; j-- {
				h := c.postRunHooks[j]
				if err := h.PostRun(ctx, actionError, exitCode); err != nil {
					_, _ = fmt.Fprintln(w, err)
					exitCode = ExitCodeError
				}
			}
		}
	}()

	// Invoke all "PreRun" hooks on the whole chain of commands (starting at the root)
	for _, c := range chain {
		for _, h := range c.preRunHooks {
			if err := h.PreRun(ctx); err != nil {
				_, _ = fmt.Fprintln(w, err)
				actionError = err
				exitCode = ExitCodeError
				return
			}
		}
	}

	result := Dispatch(ctx, parsed)
	switch result.Outcome {
	case DispatchFallthrough:
		if root.action != nil {
			if err := root.action.Run(ctx, parsed); err != nil {
				_, _ = fmt.Fprintln(w, err)
				actionError = err
				exitCode = ExitCodeError
			}
		} else if err := root.PrintHelp(w, getTerminalWidth()); err != nil {
			_, _ = fmt.Fprintln(w, err)
			actionError = err
			exitCode = ExitCodeError
		}
	case DispatchNoAction:
		_, _ = fmt.Fprintf(w, "No action bound to sub-command '%s'\n", result.Subcommand)
	case DispatchFailed:
		_, _ = fmt.Fprintln(w, result.Err)
		actionError = result.Err
		exitCode = ExitCodeError
	}
	return
}

// Execute the correct command in the given command hierarchy (starting at "root"), configured from the given
// CLI args and environment variables. The command will be executed with a context that gets canceled when an OS signal
// for termination is received, after all pre-run hooks have been successfully executed in the command hierarchy.
//
//goland:noinspection GoUnusedExportedFunction
func Execute(w io.Writer, root *Command, args []string, envVars map[string]string) ExitCode {
	ctx, cancel := SetupSignalHandler()
	defer cancel()

	return ExecuteWithContext(ctx, w, root, args, envVars)
}

// SetupSignalHandler returns a context that is canceled when SIGINT or SIGTERM is received.
func SetupSignalHandler() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
