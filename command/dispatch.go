package command

import (
	"context"
	"fmt"
)

type DispatchOutcome int

const (
	// DispatchFallthrough means no sub-command was selected; the caller should run the default top-level behavior.
	DispatchFallthrough DispatchOutcome = iota
	// DispatchSucceeded means the selected sub-command's action ran and returned no error.
	DispatchSucceeded
	// DispatchFailed means the selected sub-command's action returned an error.
	DispatchFailed
	// DispatchNoAction means the selected sub-command has no bound action. This is not an error.
	DispatchNoAction
)

func (o DispatchOutcome) String() string {
	switch o {
	case DispatchFallthrough:
		return "fallthrough"
	case DispatchSucceeded:
		return "succeeded"
	case DispatchFailed:
		return "failed"
	case DispatchNoAction:
		return "no action"
	default:
		return fmt.Sprintf("DispatchOutcome(%d)", int(o))
	}
}

type DispatchResult struct {
	Outcome    DispatchOutcome
	Subcommand string
	Err        error
}

// Dispatch routes the parsed arguments to the selected sub-command's action. The root command's own action is never
// invoked here; when no sub-command was selected, DispatchFallthrough is returned instead.
func Dispatch(ctx context.Context, args *ParsedArguments) DispatchResult {
	cmd := args.Command()
	if cmd.parent == nil {
		return DispatchResult{Outcome: DispatchFallthrough}
	}

	name := cmd.name
	if cmd.action == nil {
		return DispatchResult{Outcome: DispatchNoAction, Subcommand: name}
	}
	if err := cmd.action.Run(ctx, args); err != nil {
		return DispatchResult{Outcome: DispatchFailed, Subcommand: name, Err: err}
	}
	return DispatchResult{Outcome: DispatchSucceeded, Subcommand: name}
}
