package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/arikkfir/cliscript/command"
	"github.com/arikkfir/cliscript/internal/demo"
)

func main() {
	// Use a minimal logger until the full one is configured by the command's pre-run hook
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
	os.Exit(int(run(os.Stdout, os.Stderr, os.Args[1:], os.Environ())))
}

func run(out, log io.Writer, args, environ []string) command.ExitCode {
	root, err := demo.NewCommand(demo.NewScript(out, log))
	if err != nil {
		_, _ = fmt.Fprintln(log, err)
		return command.ExitCodeError
	}
	return command.Execute(out, root, args, command.EnvVarsArrayToMap(environ))
}
