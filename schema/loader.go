package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/hashicorp/go-version"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// SupportedVersions is the range of models file formats LoadFile accepts.
const SupportedVersions = ">= 1.0, < 2.0"

// File is the decoded form of a models file.
type File struct {
	Version string             `yaml:"version"`
	Models  []RecordDefinition `yaml:"models"`
}

// LoadFile reads a YAML models file from fs and registers every model it
// declares as a record entity.
func LoadFile(fs afero.Fs, path string, reg *Registry) (*File, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read models file: %w", err)
	}

	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	for _, m := range f.Models {
		if err := DefineRecord(reg, m); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return f, nil
}

// Parse decodes and validates a models file without registering anything.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: failed to parse models file: %w", ErrInvalidModel, err)
	}
	if err := checkVersion(f.Version); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(f.Models))
	for _, m := range f.Models {
		if m.Name == "" {
			return nil, fmt.Errorf("%w: model without a name", ErrInvalidModel)
		}
		if seen[m.Name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEntity, m.Name)
		}
		seen[m.Name] = true
	}
	return &f, nil
}

func checkVersion(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: version is missing", ErrUnsupportedVersion)
	}
	v, err := version.NewVersion(raw)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrUnsupportedVersion, raw, err)
	}
	constraints, err := version.NewConstraint(SupportedVersions)
	if err != nil {
		return err
	}
	if !constraints.Check(v) {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrUnsupportedVersion, v, SupportedVersions)
	}
	return nil
}
