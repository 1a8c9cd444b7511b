package command

import (
	"context"
	"errors"
	"strings"
	"testing"

	. "github.com/arikkfir/justest"
)

func TestDispatch(t *testing.T) {
	t.Parallel()

	type testCase struct {
		args               string
		sub1Error          error
		expectedOutcome    DispatchOutcome
		expectedSubcommand string
		expectedError      string
		expectedSub1Calls  int
	}
	testCases := map[string]testCase{
		"no sub-command": {
			args:            "-a X",
			expectedOutcome: DispatchFallthrough,
		},
		"sub-command with action": {
			args:               "-a X subcommand1",
			expectedOutcome:    DispatchSucceeded,
			expectedSubcommand: "subcommand1",
			expectedSub1Calls:  1,
		},
		"failing sub-command action": {
			args:               "-a X subcommand1",
			sub1Error:          errors.New("boom"),
			expectedOutcome:    DispatchFailed,
			expectedSubcommand: "subcommand1",
			expectedError:      `^boom$`,
			expectedSub1Calls:  1,
		},
		"sub-command without action": {
			args:               "-a X subcommand2 -l a -l b",
			expectedOutcome:    DispatchNoAction,
			expectedSubcommand: "subcommand2",
		},
	}
	for name, tc := range testCases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			h := newTestHierarchy()
			h.sub1Action.err = tc.sub1Error

			pa, err := h.root.Parse(strings.Split(tc.args, " "), nil)
			With(t).Verify(err).Will(BeNil()).OrFail()

			result := Dispatch(context.Background(), pa)
			With(t).Verify(result.Outcome).Will(EqualTo(tc.expectedOutcome)).OrFail()
			With(t).Verify(result.Subcommand).Will(EqualTo(tc.expectedSubcommand)).OrFail()
			if tc.expectedError != "" {
				With(t).Verify(result.Err).Will(Fail(tc.expectedError)).OrFail()
			} else {
				With(t).Verify(result.Err).Will(BeNil()).OrFail()
			}
			With(t).Verify(h.sub1Action.calls).Will(EqualTo(tc.expectedSub1Calls)).OrFail()
			With(t).Verify(h.rootAction.calls).Will(EqualTo(0)).OrFail()
			if tc.expectedSub1Calls > 0 {
				With(t).Verify(h.sub1Action.args == pa).Will(EqualTo(true)).OrFail()
			}
		})
	}
}

func TestDispatchOutcomeString(t *testing.T) {
	t.Parallel()
	With(t).Verify(DispatchFallthrough.String()).Will(EqualTo("fallthrough")).OrFail()
	With(t).Verify(DispatchSucceeded.String()).Will(EqualTo("succeeded")).OrFail()
	With(t).Verify(DispatchFailed.String()).Will(EqualTo("failed")).OrFail()
	With(t).Verify(DispatchNoAction.String()).Will(EqualTo("no action")).OrFail()
	With(t).Verify(DispatchOutcome(42).String()).Will(EqualTo("DispatchOutcome(42)")).OrFail()
}
