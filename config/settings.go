package config

import "fmt"

// Settings is the typed view of the keys the example scripts read.
type Settings struct {
	Global struct {
		ProjectPath string `yaml:"projectpath"`
	} `yaml:"global"`
	Example struct {
		AHash   map[string]any `yaml:"ahash"`
		AnArray []any          `yaml:"anarray"`
	} `yaml:"example"`
}

// Settings decodes the document into Settings, failing with an *ErrMissingKey error if any expected key is absent.
func (d Document) Settings() (*Settings, error) {
	for _, path := range [][]string{{"global", "projectpath"}, {"example", "ahash"}, {"example", "anarray"}} {
		if _, err := d.Lookup(path...); err != nil {
			return nil, err
		}
	}
	s := &Settings{}
	if err := d.Decode(s); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return s, nil
}
