package flow

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadDir reads every *.yaml flow file in dir, validates it and returns the
// flows keyed by id. Flows default to draft status unless the file says
// otherwise.
func LoadDir(dir string) (map[string]Flow, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("error reading directory: %w", err)
	}

	flows := make(map[string]Flow, len(files))
	for _, file := range files {
		f, err := LoadFile(file)
		if err != nil {
			return nil, err
		}
		flows[f.ID] = f
	}
	return flows, nil
}

// LoadFile reads and validates a single YAML flow file.
func LoadFile(path string) (Flow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Flow{}, fmt.Errorf("error reading flow file: %w", err)
	}

	f, err := Parse(data)
	if err != nil {
		return Flow{}, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse unmarshals a YAML flow definition and validates it.
func Parse(data []byte) (Flow, error) {
	var f Flow
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Flow{}, fmt.Errorf("error unmarshalling flow: %w", err)
	}
	if f.Status == "" {
		f.Status = StatusDraft
	}
	if err := Validate(&f); err != nil {
		return Flow{}, err
	}
	return f, nil
}
