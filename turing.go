package turing

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/aretw0/turing/pkg/codec"
	"github.com/aretw0/turing/pkg/domain"
	"github.com/aretw0/turing/pkg/machine"
)

// Version is the release of this module.
//
//go:embed VERSION
var Version string

// New returns a blank machine in edit mode.
func New(opts ...machine.Option) *machine.Machine {
	return machine.New(opts...)
}

// ReadFile decodes the machine file at path. The format follows the
// extension: .tm, .yaml/.yml or .json.
func ReadFile(path string) (*domain.Snapshot, error) {
	format, err := codec.FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	snap, err := codec.Decode(format, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}

// OpenFile reads the machine file at path and loads it into a new machine.
func OpenFile(path string, opts ...machine.Option) (*machine.Machine, error) {
	snap, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := machine.Open(snap, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// WriteFile encodes snap to path in the format named by its extension.
func WriteFile(path string, snap *domain.Snapshot) error {
	format, err := codec.FormatFromPath(path)
	if err != nil {
		return err
	}
	data, err := codec.Marshal(format, snap)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// SaveFile writes the current contents of m to path.
func SaveFile(path string, m *machine.Machine) error {
	return WriteFile(path, m.Save())
}
