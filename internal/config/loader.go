package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"tcrun/pkg/logging"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads the configuration file at configPath on top of the defaults.
// An empty configPath means DefaultConfigFileName in the working directory; a
// missing default file is not an error. Relative directories in the result are
// made relative to the file's directory.
func LoadConfig(configPath string) (Config, error) {
	config := GetDefaultConfig()

	explicit := configPath != ""
	if !explicit {
		configPath = DefaultConfigFileName
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			logging.Info("Config", "No %s found, using defaults", configPath)
			return config, nil
		}
		return Config{}, NewConfigurationError(configPath, "io", err.Error())
	}

	// ${VAR} references are expanded from the environment so secrets stay out of the file.
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return Config{}, NewConfigurationError(configPath, "parse", err.Error())
	}

	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration in %s: %w", configPath, err)
	}

	logging.Info("Config", "Loaded configuration from %s", configPath)
	return config, nil
}

// resolvePaths makes every relative directory relative to baseDir.
func (c *Config) resolvePaths(baseDir string) {
	for _, p := range []*string{&c.TestCaseDir, &c.RequestResourceDir, &c.DefaultAssertionDir, &c.DBValidationPath, &c.Report.Path} {
		if *p == "" || filepath.IsAbs(*p) {
			continue
		}
		*p = filepath.Join(baseDir, *p)
	}
}
