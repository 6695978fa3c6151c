// Package passmanager schedules internal/analysis and internal/transform
// passes over an ir.Module according to a Config.
package passmanager

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config selects which passes run and tunes their knobs.
type Config struct {
	EnableMem2Reg          bool `yaml:"enable_mem2reg"`
	EnableSROA             bool `yaml:"enable_sroa"`
	EnableCSE              bool `yaml:"enable_cse"`
	EnableADCE             bool `yaml:"enable_adce"`
	EnableSCCP             bool `yaml:"enable_sccp"`
	EnableInstCombine      bool `yaml:"enable_inst_combine"`
	EnableSimplifyCFG      bool `yaml:"enable_simplify_cfg"`
	EnableLICM             bool `yaml:"enable_licm"`
	EnableIndVarSimplify   bool `yaml:"enable_ind_var_simplify"`
	EnableLoopUnroll       bool `yaml:"enable_loop_unroll"`
	EnableTailCallElim     bool `yaml:"enable_tail_call_elim"`
	EnableInliner          bool `yaml:"enable_inliner"`
	MaxIterations          int  `yaml:"max_iterations"`
	MaxLoopUnrollCount     int  `yaml:"max_loop_unroll_count"`
	InlinerThreshold       int  `yaml:"inliner_threshold"`
}

// DefaultConfig returns the default schedule: every pass
// enabled except LoopUnroll, which is off by default.
func DefaultConfig() Config {
	return Config{
		EnableMem2Reg:        true,
		EnableSROA:           true,
		EnableCSE:            true,
		EnableADCE:           true,
		EnableSCCP:           true,
		EnableInstCombine:    true,
		EnableSimplifyCFG:    true,
		EnableLICM:           true,
		EnableIndVarSimplify: true,
		EnableLoopUnroll:     false,
		EnableTailCallElim:   true,
		EnableInliner:        true,
		MaxIterations:        10,
		MaxLoopUnrollCount:   4,
		InlinerThreshold:     80,
	}
}

// LoadConfig reads a YAML configuration file, starting from
// DefaultConfig so a partial file only overrides the fields it sets.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "passmanager: reading config %q", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "passmanager: parsing config %q", path)
	}
	if cfg.MaxIterations <= 0 {
		return cfg, errors.Errorf("passmanager: max_iterations must be positive, got %d", cfg.MaxIterations)
	}
	return cfg, nil
}
