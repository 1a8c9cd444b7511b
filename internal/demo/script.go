// Package demo implements the example scripts: their argument model, their default actions and the way they print
// arguments and configuration.
package demo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/arikkfir/cliscript/command"
	"github.com/arikkfir/cliscript/config"
	"github.com/arikkfir/cliscript/internal/ctxlog"
)

// ScriptArgs are the top-level flags of the example scripts.
type ScriptArgs struct {
	Argument  string `name:"argument" short:"a" dest:"arg" env:"CLI_SCRIPT_ARGUMENT" value-name:"ARGUMENT_A" required:"true" desc:"This is a standard required argument."`
	B         string `name:"b" dest:"arg_b" env:"CLI_SCRIPT_B" value-name:"ARGUMENT_B" default:"default_b" desc:"This is a standard non required argument, but it has a default value."`
	TrueFlag  bool   `short:"t" dest:"tflg" env:"CLI_SCRIPT_TRUE_FLAG" desc:"This is a flag argument. True if set, false by default."`
	FalseFlag bool   `short:"f" dest:"fflg" env:"CLI_SCRIPT_FALSE_FLAG" default:"true" desc:"This is a flag argument. False if set, true by default."`
}

// RuntimeArgs are flags accepted by every command of the example scripts.
type RuntimeArgs struct {
	ConfigPath   string `name:"config" short:"c" dest:"config" env:"CLI_SCRIPT_CONFIG" value-name:"PATH" inherited:"true" desc:"Configuration file to load, relative to the working directory (defaults to config/config.yml next to the executable's grandparent directory)."`
	StrictConfig bool   `dest:"strict_config" env:"CLI_SCRIPT_STRICT_CONFIG" inherited:"true" desc:"Fail if the configuration file cannot be read or parsed, instead of continuing with an empty configuration."`
	LogLevel     string `dest:"log_level" env:"CLI_SCRIPT_LOG_LEVEL" value-name:"LEVEL" default:"info" inherited:"true" desc:"Log level: debug, info, warn or error."`
	LogFormat    string `dest:"log_format" env:"CLI_SCRIPT_LOG_FORMAT" value-name:"FORMAT" default:"text" inherited:"true" desc:"Log format: text or json."`
}

// ListArgs are the flags of "subcommand2".
type ListArgs struct {
	ArgList []string `name:"l" dest:"arglist" env:"CLI_SCRIPT_ARGLIST" value-name:"ARG" desc:"A list of arguments; repeat the flag for each value, e.g. \"-l val1 -l val2\"."`
}

// Script holds the state of one run of an example script.
type Script struct {
	Args    ScriptArgs
	Runtime RuntimeArgs

	// Out receives the script's output; Log receives its log records.
	Out io.Writer
	Log io.Writer

	// ResolveDefaultConfigPath locates the configuration file when no --config flag is given.
	ResolveDefaultConfigPath func() (string, error)

	logger *slog.Logger
	list   *ListArgs
}

// NewScript creates a script writing its output to out and its logs to log.
func NewScript(out, log io.Writer) *Script {
	return &Script{
		Out:                      out,
		Log:                      log,
		ResolveDefaultConfigPath: config.DefaultPath,
		logger:                   slog.New(slog.NewTextHandler(log, nil)),
		list:                     &ListArgs{},
	}
}

// PreRun configures logging from the runtime flags.
func (s *Script) PreRun(ctx context.Context) error {
	logger, err := ctxlog.New(s.Runtime.LogLevel, s.Runtime.LogFormat, s.Log)
	if err != nil {
		return err
	}
	s.logger = logger
	s.logger.DebugContext(ctx, "Arguments parsed.", "argument", s.Args.Argument, "b", s.Args.B)
	return nil
}

func (s *Script) withLogger(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, s.logger)
}

// configPath returns the configuration file to load: the --config flag resolved against the working directory if
// given, otherwise the default location.
func (s *Script) configPath() (string, error) {
	if s.Runtime.ConfigPath != "" {
		p, err := filepath.Abs(s.Runtime.ConfigPath)
		if err != nil {
			return "", fmt.Errorf("failed resolving configuration path '%s': %w", s.Runtime.ConfigPath, err)
		}
		return p, nil
	}
	return s.ResolveDefaultConfigPath()
}

func (s *Script) loadConfig(ctx context.Context) (config.Document, error) {
	path, err := s.configPath()
	if err != nil {
		return nil, err
	}
	if s.Runtime.StrictConfig {
		return config.LoadStrict(path)
	}
	return config.Load(ctx, path), nil
}

// Main is the default top-level behavior: print the parsed arguments and the configuration, then show how to access
// specific configuration values.
func (s *Script) Main(ctx context.Context, args *command.ParsedArguments) error {
	ctx = s.withLogger(ctx)

	if err := PrintDict(s.Out, args.Map(), "Script kwargs"); err != nil {
		return err
	}

	doc, err := s.loadConfig(ctx)
	if err != nil {
		return err
	}
	if err := PrintDict(s.Out, doc, "Yaml configuration"); err != nil {
		return err
	}

	settings, err := doc.Settings()
	if err != nil {
		return err
	}

	_, _ = fmt.Fprint(s.Out, "\nExamples to access values :\n\n")
	exHash := settings.Example.AHash
	_, _ = fmt.Fprintf(s.Out, "config['example']['ahash'] : %v (%T)\n", exHash, exHash)
	exArr := settings.Example.AnArray
	_, _ = fmt.Fprintf(s.Out, "config['example']['anarray'] : %v, (%T)\n", exArr, exArr)
	_, _ = fmt.Fprintf(s.Out, "config['global']['projectpath'] : %s\n", settings.Global.ProjectPath)

	ctxlog.FromContext(ctx).DebugContext(ctx, "Done.")
	return nil
}

// Subcommand1 is the action bound to "subcommand1".
func (s *Script) Subcommand1(ctx context.Context, args *command.ParsedArguments) error {
	s.logger.DebugContext(ctx, "Running default sub-command action.", "subcommand", args.Subcommand())
	_, _ = fmt.Fprintln(s.Out, " --- THIS IS THE DEFAULT FUNCTION CALL ---")
	return PrintDict(s.Out, args.Map(), "function kwargs")
}

// PrintDict prints the given value as YAML under an underlined title.
func PrintDict(w io.Writer, v any, name string) error {
	dump, err := config.Dump(v)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "\n%s\n%s\n%s\n", name, strings.Repeat("-", len(name)), dump)
	return nil
}
