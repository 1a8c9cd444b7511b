package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

type ErrMissingKey struct {
	Path []string
}

func (e *ErrMissingKey) Error() string {
	return fmt.Sprintf("missing configuration key: %s", strings.Join(e.Path, "."))
}

type ErrUnexpectedType struct {
	Path     []string
	Expected string
	Actual   any
}

func (e *ErrUnexpectedType) Error() string {
	return fmt.Sprintf("configuration key '%s' is %T, expected %s", strings.Join(e.Path, "."), e.Actual, e.Expected)
}

// Document is a parsed YAML configuration: values are strings, numbers, booleans, nested maps or sequences.
type Document map[string]any

// Lookup walks the document along the given keys, returning an *ErrMissingKey error if any key is absent or a
// non-mapping value is encountered on the way.
func (d Document) Lookup(path ...string) (any, error) {
	var current any = map[string]any(d)
	for i, key := range path {
		m, ok := asMap(current)
		if !ok {
			return nil, &ErrMissingKey{Path: path[:i+1]}
		}
		v, found := m[key]
		if !found {
			return nil, &ErrMissingKey{Path: path[:i+1]}
		}
		current = v
	}
	return current, nil
}

// Map looks up a mapping value.
func (d Document) Map(path ...string) (map[string]any, error) {
	v, err := d.Lookup(path...)
	if err != nil {
		return nil, err
	}
	m, ok := asMap(v)
	if !ok {
		return nil, &ErrUnexpectedType{Path: path, Expected: "a mapping", Actual: v}
	}
	return m, nil
}

// Slice looks up a sequence value.
func (d Document) Slice(path ...string) ([]any, error) {
	v, err := d.Lookup(path...)
	if err != nil {
		return nil, err
	}
	s, ok := v.([]any)
	if !ok {
		return nil, &ErrUnexpectedType{Path: path, Expected: "a sequence", Actual: v}
	}
	return s, nil
}

// String looks up a scalar value and renders it as a string.
func (d Document) String(path ...string) (string, error) {
	v, err := d.Lookup(path...)
	if err != nil {
		return "", err
	}
	switch tv := v.(type) {
	case map[string]any, map[any]any, []any:
		return "", &ErrUnexpectedType{Path: path, Expected: "a scalar", Actual: v}
	case nil:
		return "", nil
	case string:
		return tv, nil
	default:
		return fmt.Sprint(tv), nil
	}
}

// Decode converts the document into the given typed structure (a pointer), using its "yaml" struct tags. Unknown
// keys are ignored.
func (d Document) Decode(into any) error {
	b, err := yaml.Marshal(map[string]any(d))
	if err != nil {
		return fmt.Errorf("failed encoding configuration: %w", err)
	}
	if err := yaml.Unmarshal(b, into); err != nil {
		return fmt.Errorf("failed decoding configuration into %T: %w", into, err)
	}
	return nil
}

func asMap(v any) (map[string]any, bool) {
	switch tv := v.(type) {
	case map[string]any:
		return tv, true
	case Document:
		return tv, true
	case map[any]any:
		m := make(map[string]any, len(tv))
		for k, val := range tv {
			m[fmt.Sprint(k)] = val
		}
		return m, true
	default:
		return nil, false
	}
}
