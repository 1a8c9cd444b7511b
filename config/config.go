// Package config locates and loads the YAML configuration file of the example scripts.
package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/arikkfir/cliscript/internal/ctxlog"
)

// RelativePath is the location of the configuration file, relative to the directory of the running executable.
const RelativePath = "../../config/config.yml"

type ErrConfigIO struct {
	Cause error
	Path  string
}

func (e *ErrConfigIO) Error() string {
	return fmt.Sprintf("failed reading configuration file '%s': %s", e.Path, e.Cause)
}

func (e *ErrConfigIO) Unwrap() error {
	return e.Cause
}

type ErrConfigParse struct {
	Cause error
	Path  string
}

func (e *ErrConfigParse) Error() string {
	return fmt.Sprintf("failed parsing configuration file '%s': %s", e.Path, e.Cause)
}

func (e *ErrConfigParse) Unwrap() error {
	return e.Cause
}

// ResolvePath returns the configuration file path for the given base directory, with all ".." segments resolved.
func ResolvePath(baseDir string) string {
	return filepath.Clean(filepath.Join(baseDir, RelativePath))
}

// DefaultPath returns the configuration file path relative to the directory of the running executable.
func DefaultPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed locating executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return ResolvePath(filepath.Dir(exe)), nil
}

// Load reads and parses the YAML file at the given path. It never fails: I/O and parse errors are logged, and an empty
// document is returned instead. Callers must therefore tolerate missing keys.
func Load(ctx context.Context, path string) Document {
	doc, err := LoadStrict(path)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("An exception occurred while reading YAML file; continuing with an empty configuration",
			"path", path,
			"error", err,
		)
		return Document{}
	}
	ctxlog.FromContext(ctx).Debug("Configuration loaded.", "path", path, "keys", len(doc))
	return doc
}

// LoadStrict is like Load, but returns an *ErrConfigIO or *ErrConfigParse error instead of an empty document.
func LoadStrict(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ErrConfigIO{Cause: err, Path: path}
	}
	defer f.Close()

	return Parse(f, path)
}

// Parse parses a YAML stream into a document. The path is only used for error messages. An empty stream yields an
// empty document.
func Parse(r io.Reader, path string) (Document, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, &ErrConfigIO{Cause: err, Path: path}
	}
	doc := Document{}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, &ErrConfigParse{Cause: err, Path: path}
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// Dump renders the given value as block-style YAML.
func Dump(v any) (string, error) {
	b, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed rendering YAML: %w", err)
	}
	return string(b), nil
}
