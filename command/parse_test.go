package command

import (
	"errors"
	"strings"
	"testing"

	. "github.com/arikkfir/justest"
)

func TestParse(t *testing.T) {
	t.Parallel()

	rootDefaults := func(overrides map[string]any) map[string]any {
		values := map[string]any{
			"arg":     "X",
			"arg_b":   "default_b",
			"tflg":    false,
			"fflg":    true,
			"retries": 0,
			"verbose": false,
		}
		for k, v := range overrides {
			values[k] = v
		}
		return values
	}

	type testCase struct {
		args                []string
		envVars             map[string]string
		expectedCommand     string
		expectedSubcommand  string
		expectedValues      map[string]any
		expectedPositionals []string
		expectedHelp        bool
		expectedError       string
	}
	testCases := map[string]testCase{
		"required flag with separate value": {
			args:            strings.Split("-a X", " "),
			expectedCommand: "root",
			expectedValues:  rootDefaults(nil),
		},
		"required flag with inline value": {
			args:            strings.Split("-a=X", " "),
			expectedCommand: "root",
			expectedValues:  rootDefaults(nil),
		},
		"long flag name": {
			args:            strings.Split("--argument X", " "),
			expectedCommand: "root",
			expectedValues:  rootDefaults(nil),
		},
		"all top-level flags": {
			args:            strings.Split("-a X -b Y -t -f --retries 3", " "),
			expectedCommand: "root",
			expectedValues:  rootDefaults(map[string]any{"arg_b": "Y", "tflg": true, "fflg": false, "retries": 3}),
		},
		"flag value looking like a sub-command name": {
			args:            strings.Split("-a subcommand1", " "),
			expectedCommand: "root",
			expectedValues:  rootDefaults(map[string]any{"arg": "subcommand1"}),
		},
		"environment variables": {
			envVars:         map[string]string{"ARGUMENT": "E", "B": "env_b", "VERBOSE": "true"},
			args:            strings.Split("-t", " "),
			expectedCommand: "root",
			expectedValues:  rootDefaults(map[string]any{"arg": "E", "arg_b": "env_b", "tflg": true, "verbose": true}),
		},
		"command line overrides environment variables": {
			envVars:         map[string]string{"ARGUMENT": "E"},
			args:            strings.Split("-a X", " "),
			expectedCommand: "root",
			expectedValues:  rootDefaults(nil),
		},
		"sub-command with action": {
			args:               strings.Split("-a X subcommand1", " "),
			expectedCommand:    "subcommand1",
			expectedSubcommand: "subcommand1",
			expectedValues:     rootDefaults(map[string]any{SubcommandKey: "subcommand1"}),
		},
		"inherited flag given to the sub-command": {
			args:               strings.Split("-a X subcommand1 --verbose", " "),
			expectedCommand:    "subcommand1",
			expectedSubcommand: "subcommand1",
			expectedValues:     rootDefaults(map[string]any{SubcommandKey: "subcommand1", "verbose": true}),
		},
		"repeated list flag": {
			args:               strings.Split("-a X subcommand2 -l a -l b", " "),
			expectedCommand:    "subcommand2",
			expectedSubcommand: "subcommand2",
			expectedValues:     rootDefaults(map[string]any{SubcommandKey: "subcommand2", "arglist": []string{"a", "b"}}),
		},
		"list values are kept verbatim": {
			args:               []string{"-a", "X", "subcommand2", "-l", "a,b", "-l", `"q"`, "-l", "", "-l", "x\ny", "-l", " padded "},
			expectedCommand:    "subcommand2",
			expectedSubcommand: "subcommand2",
			expectedValues:     rootDefaults(map[string]any{SubcommandKey: "subcommand2", "arglist": []string{"a,b", `"q"`, "", "x\ny", " padded "}}),
		},
		"list values from the environment are comma-separated": {
			envVars:            map[string]string{"L": "a,b"},
			args:               strings.Split("-a X subcommand2", " "),
			expectedCommand:    "subcommand2",
			expectedSubcommand: "subcommand2",
			expectedValues:     rootDefaults(map[string]any{SubcommandKey: "subcommand2", "arglist": []string{"a", "b"}}),
		},
		"list flag not given": {
			args:               strings.Split("-a X subcommand2", " "),
			expectedCommand:    "subcommand2",
			expectedSubcommand: "subcommand2",
			expectedValues:     rootDefaults(map[string]any{SubcommandKey: "subcommand2", "arglist": nil}),
		},
		"positionals": {
			args:                strings.Split("-a X subcommand3 p1 -- -p2", " "),
			expectedCommand:     "subcommand3",
			expectedSubcommand:  "subcommand3",
			expectedValues:      rootDefaults(map[string]any{SubcommandKey: "subcommand3"}),
			expectedPositionals: []string{"p1", "-p2"},
		},
		"help skips required flags": {
			args:            strings.Split("-h", " "),
			expectedCommand: "root",
			expectedHelp:    true,
			expectedValues:  rootDefaults(map[string]any{"arg": ""}),
		},
		"help for a sub-command": {
			args:               strings.Split("subcommand2 --help", " "),
			expectedCommand:    "subcommand2",
			expectedSubcommand: "subcommand2",
			expectedHelp:       true,
			expectedValues:     rootDefaults(map[string]any{SubcommandKey: "subcommand2", "arg": "", "arglist": nil}),
		},
		"missing required flag": {
			args:            strings.Split("-b Y", " "),
			expectedCommand: "root",
			expectedError:   `^required flag is missing: --argument$`,
		},
		"missing required flag with a sub-command": {
			args:            strings.Split("subcommand1", " "),
			expectedCommand: "subcommand1",
			expectedError:   `^required flag is missing: --argument$`,
		},
		"unknown flag": {
			args:            strings.Split("-a X -x", " "),
			expectedCommand: "root",
			expectedError:   `^unknown flag: -x$`,
		},
		"top-level flag given to a sub-command": {
			args:            strings.Split("subcommand1 -a X", " "),
			expectedCommand: "subcommand1",
			expectedError:   `^unknown flag: -a$`,
		},
		"unknown positional": {
			args:            strings.Split("-a X bogus", " "),
			expectedCommand: "root",
			expectedError:   `^unexpected argument: bogus$`,
		},
		"invalid value": {
			args:            strings.Split("-a X --retries many", " "),
			expectedCommand: "root",
			expectedError:   `^invalid value 'many' for flag '--retries': invalid syntax$`,
		},
		"toggle with explicit false value": {
			args:            strings.Split("-a X -t=false", " "),
			expectedCommand: "root",
			expectedError:   `^invalid value 'false' for flag '-t': toggle flags do not accept a value$`,
		},
		"toggle with explicit true value": {
			args:            strings.Split("-a X -f=true", " "),
			expectedCommand: "root",
			expectedError:   `^invalid value 'true' for flag '-f': toggle flags do not accept a value$`,
		},
		"inherited toggle with explicit value": {
			args:            strings.Split("-a X subcommand1 --verbose=true", " "),
			expectedCommand: "subcommand1",
			expectedError:   `^invalid value 'true' for flag '--verbose': toggle flags do not accept a value$`,
		},
		"value flag without value": {
			args:            strings.Split("-a", " "),
			expectedCommand: "root",
			expectedError:   `^flag needs an argument: -a$`,
		},
	}
	for name, tc := range testCases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			h := newTestHierarchy()

			cmd, pa, err := h.root.parse(tc.args, tc.envVars)
			With(t).Verify(cmd.Name()).Will(EqualTo(tc.expectedCommand)).OrFail()
			if tc.expectedError != "" {
				With(t).Verify(err).Will(Fail(tc.expectedError)).OrFail()
				With(t).Verify(errors.Is(err, ErrUsage)).Will(EqualTo(true)).OrFail()
				With(t).Verify(pa == nil).Will(EqualTo(true)).OrFail()
				return
			}
			With(t).Verify(err).Will(BeNil()).OrFail()
			With(t).Verify(pa.Command() == cmd).Will(EqualTo(true)).OrFail()
			With(t).Verify(pa.Subcommand()).Will(EqualTo(tc.expectedSubcommand)).OrFail()
			With(t).Verify(pa.HelpRequested()).Will(EqualTo(tc.expectedHelp)).OrFail()
			With(t).Verify(pa.Map()).Will(EqualTo(tc.expectedValues)).OrFail()
			With(t).Verify(pa.Positionals()).Will(EqualTo(tc.expectedPositionals)).OrFail()
		})
	}
}

func TestParseRequiresRootCommand(t *testing.T) {
	t.Parallel()
	h := newTestHierarchy()
	_, err := h.sub1.Parse([]string{"-h"}, nil)
	With(t).Verify(err).Will(Fail(`^invalid command: command 'subcommand1' is not a root command$`)).OrFail()
}

func TestParseUpdatesConfigStructs(t *testing.T) {
	t.Parallel()
	h := newTestHierarchy()

	_, err := h.root.Parse(strings.Split("-a X -t subcommand2 -l a,b -l c", " "), nil)
	With(t).Verify(err).Will(BeNil()).OrFail()
	With(t).Verify(*h.rootConfig).Will(EqualTo(RootConfig{Argument: "X", B: "default_b", TrueFlag: true, FalseFlag: true})).OrFail()
	With(t).Verify(h.listConfig.List).Will(EqualTo([]string{"a,b", "c"})).OrFail()

	// Parsing again resets every value first
	_, err = h.root.Parse(strings.Split("-a Y", " "), nil)
	With(t).Verify(err).Will(BeNil()).OrFail()
	With(t).Verify(*h.rootConfig).Will(EqualTo(RootConfig{Argument: "Y", B: "default_b", FalseFlag: true})).OrFail()
}

func TestParsedArgumentsAreCopies(t *testing.T) {
	t.Parallel()
	h := newTestHierarchy()

	pa, err := h.root.Parse(strings.Split("-a X subcommand2 -l a -l b", " "), nil)
	With(t).Verify(err).Will(BeNil()).OrFail()

	With(t).Verify(pa.String("arg")).Will(EqualTo("X")).OrFail()
	With(t).Verify(pa.String("missing")).Will(EqualTo("")).OrFail()
	With(t).Verify(pa.Bool("fflg")).Will(EqualTo(true)).OrFail()
	With(t).Verify(pa.Bool("arg")).Will(EqualTo(false)).OrFail()
	With(t).Verify(pa.Action() == nil).Will(EqualTo(true)).OrFail()

	list := pa.Strings("arglist")
	list[0] = "changed"
	With(t).Verify(pa.Strings("arglist")).Will(EqualTo([]string{"a", "b"})).OrFail()

	v, ok := pa.Get("arglist")
	With(t).Verify(ok).Will(EqualTo(true)).OrFail()
	v.([]string)[1] = "changed"
	With(t).Verify(pa.Map()["arglist"]).Will(EqualTo(any([]string{"a", "b"}))).OrFail()

	h.listConfig.List[0] = "changed"
	With(t).Verify(pa.Strings("arglist")).Will(EqualTo([]string{"a", "b"})).OrFail()

	_, ok = pa.Get("missing")
	With(t).Verify(ok).Will(EqualTo(false)).OrFail()
}
