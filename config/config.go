// Package config loads solver presets from YAML. A preset bundles the
// tunable numbers of the constrained-dynamics stack so example binaries
// and host integrations can swap them without recompiling.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/akmonengine/armature/linsolve"
)

const (
	DefaultSolver          = "colpiv-householder-qr"
	DefaultBaumgarteTau    = 0.1
	DefaultAssemblyTol     = 1e-10
	DefaultAssemblyMaxIter = 50
)

// Preset holds the solver selection and the stabilization and assembly
// tunables. Zero or missing fields fall back to the defaults installed by
// DefaultPreset.
type Preset struct {
	Solver          string    `yaml:"solver"`
	BaumgarteTau    float64   `yaml:"baumgarte_tau"`
	AssemblyTol     float64   `yaml:"assembly_tol"`
	AssemblyMaxIter int       `yaml:"assembly_max_iter"`
	Weights         []float64 `yaml:"weights"`
}

func DefaultPreset() *Preset {
	return &Preset{
		Solver:          DefaultSolver,
		BaumgarteTau:    DefaultBaumgarteTau,
		AssemblyTol:     DefaultAssemblyTol,
		AssemblyMaxIter: DefaultAssemblyMaxIter,
	}
}

// Load parses a YAML document over the default preset, so fields absent
// from the document keep their default values.
func Load(data []byte) (*Preset, error) {
	p := DefaultPreset()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, err
	}
	return p, nil
}

func LoadFile(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(data)
}

func Save(path string, p *Preset) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Method maps the preset's solver name onto a linsolve decomposition. An
// empty name selects the default; an unrecognized one reports an error
// wrapping linsolve.ErrUnknownMethod.
func (p *Preset) Method() (linsolve.Method, error) {
	switch p.Solver {
	case "", DefaultSolver:
		return linsolve.ColPivHouseholderQR, nil
	case "partial-piv-lu":
		return linsolve.PartialPivLU, nil
	case "householder-qr":
		return linsolve.HouseholderQR, nil
	}
	return 0, fmt.Errorf("config: unknown solver %q: %w", p.Solver, linsolve.ErrUnknownMethod)
}
