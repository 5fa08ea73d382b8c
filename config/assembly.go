package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SideIOConfig declares one side input or output of a module definition.
type SideIOConfig struct {
	Name           string  `yaml:"name"`
	HeightFraction float64 `yaml:"height_fraction"`
	Angle          float64 `yaml:"angle,omitempty"`
	Diameter       float64 `yaml:"diameter"`
	External       bool    `yaml:"external,omitempty"`
}

// TopInletConfig declares one top inlet of a module definition.
type TopInletConfig struct {
	Name     string  `yaml:"name"`
	Style    string  `yaml:"style"`
	Diameter float64 `yaml:"diameter,omitempty"`
	Length   float64 `yaml:"length,omitempty"`
	Wall     float64 `yaml:"wall,omitempty"`
}

// ModuleDefinition describes one filter reactor to build headlessly.
// Params maps parameter store field names to values; unset fields keep
// their defaults.
type ModuleDefinition struct {
	Name      string                 `yaml:"name"`
	Params    map[string]interface{} `yaml:"params,omitempty"`
	Inputs    []SideIOConfig         `yaml:"inputs,omitempty"`
	Outputs   []SideIOConfig         `yaml:"outputs,omitempty"`
	TopInlets []TopInletConfig       `yaml:"top_inlets,omitempty"`
}

// AssemblyConfig is a batch build definition consumed by the CLI.
type AssemblyConfig struct {
	Name    string             `yaml:"name,omitempty"`
	Modules []ModuleDefinition `yaml:"modules"`
}

// LoadAssembly reads and decodes an assembly definition from disk.
func LoadAssembly(path string) (*AssemblyConfig, error) {
	if path == "" {
		return nil, fmt.Errorf("load assembly: %w", errEmptyPath)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read assembly %s: %w", path, err)
	}
	var cfg AssemblyConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal assembly %s: %w", path, err)
	}
	if len(cfg.Modules) == 0 {
		return nil, fmt.Errorf("assembly %s declares no modules", path)
	}
	seen := make(map[string]struct{}, len(cfg.Modules))
	for _, module := range cfg.Modules {
		if err := ensureIdentifier(module.Name, "module"); err != nil {
			return nil, fmt.Errorf("assembly %s: %w", path, err)
		}
		if _, ok := seen[module.Name]; ok {
			return nil, fmt.Errorf("assembly %s: duplicate module name %q", path, module.Name)
		}
		seen[module.Name] = struct{}{}
	}
	return &cfg, nil
}
