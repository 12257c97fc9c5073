package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultWheel is the scoring package wheel, relative to the base URL.
const DefaultWheel = "wheels/shui_widget_score-0.1.0-py3-none-any.whl"

// RuntimeConfig describes the Python environment a worker provisions.
type RuntimeConfig struct {
	// Interpreter bootstraps the virtual environment.
	Interpreter string `yaml:"interpreter" json:"interpreter" mapstructure:"interpreter"`
	// VenvDir holds the virtual environment. Reused when it already exists.
	VenvDir string `yaml:"venv_dir" json:"venv_dir" mapstructure:"venv_dir"`
	// Packages are installed from the package index.
	Packages []string `yaml:"packages" json:"packages" mapstructure:"packages"`
	// Wheel is the scoring package. Relative paths are resolved against the base URL.
	Wheel string `yaml:"wheel" json:"wheel" mapstructure:"wheel"`
	// IndexURL overrides pip's package index.
	IndexURL string `yaml:"index_url" json:"index_url" mapstructure:"index_url"`
	// Environment is added to every interpreter invocation.
	Environment map[string]string `yaml:"env" json:"env" mapstructure:"env"`
	// SkipInstall reuses the environment as is. Useful when it is baked into an image.
	SkipInstall bool `yaml:"skip_install" json:"skip_install" mapstructure:"skip_install"`
}

// DefaultRuntimeConfig returns the configuration used when nothing is set.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		Interpreter: "python3",
		VenvDir:     filepath.Join(".scorebridge", "venv"),
		Packages:    []string{"rdflib", "pyshacl"},
		Wheel:       DefaultWheel,
	}
}

// LoadRuntimeConfig reads a runtime configuration file (YAML or JSON) on top
// of the defaults. A missing file yields the defaults.
func LoadRuntimeConfig(path string) (RuntimeConfig, error) {
	cfg := DefaultRuntimeConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read runtime config: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}
	return cfg, nil
}
