package cli

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/soletide/hydrostat/pkg/body"
	"github.com/soletide/hydrostat/pkg/pipeline"
	"github.com/soletide/hydrostat/pkg/profile"
	"github.com/soletide/hydrostat/pkg/solve"
)

// Config is a model description loaded from a TOML file.
//
// Example:
//
//	[constraints]
//	total_mass_kg         = 4.7998e22
//	radius_m              = 1.5608e6
//	moi                   = 0.346
//	moi_uncertainty       = 0.005
//	surface_pressure_mpa  = 0.0
//	surface_temperature_k = 110.0
//
//	[[layers]]
//	name                 = "shell"
//	composition          = "seawater"
//	salinity_gkg         = 35.0
//	bottom_temperature_k = 268.0
//	free                 = true
//
//	[[layers]]
//	name        = "ocean"
//	composition = "seawater"
//	salinity_gkg = 35.0
//
//	[[layers]]
//	name         = "mantle"
//	composition  = "silicate"
//	density_kgm3 = 3300.0
//
//	[[layers]]
//	name        = "core"
//	composition = "iron"
type Config struct {
	Constraints body.BoundaryConstraints `toml:"constraints"`
	Layers      []body.LayerSpec         `toml:"layers"`
	Solver      solve.Options            `toml:"solver"`
	Assembly    profile.Options          `toml:"assembly"`
}

// LoadConfig reads and decodes a model configuration file.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parse %s: unknown key %q", path, undecoded[0].String())
	}
	return &cfg, nil
}

// PipelineOptions converts the config into pipeline options.
func (cfg *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Constraints: cfg.Constraints,
		Layers:      cfg.Layers,
		Solver:      cfg.Solver,
		Assembly:    cfg.Assembly,
	}
}
