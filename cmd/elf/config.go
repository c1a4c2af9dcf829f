// Copyright (C) 2025 The Elf Authors (elf@bronze-age.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cccbr/elf/pkg/splice"
)

// Config is the CLI's config.yaml shape: a search specification plus
// output and logging options.
type Config struct {
	Search splice.SearchConfig `yaml:"search"`

	// OutputFile receives every found composition as it is emitted.
	OutputFile string `yaml:"outputFile"`

	// LogLevel: debug, info, warn or error.
	LogLevel string `yaml:"logLevel"`
}

// defaultConfig is used when no config.yaml is present; flags fill in
// the rest.
func defaultConfig() Config {
	return Config{
		Search: splice.SearchConfig{
			LeadsPerPart: 7,
			Parts:        7,
			CompsToKeep:  10,
		},
		OutputFile: "comps.lst",
		LogLevel:   "info",
	}
}

// loadConfig reads the config file if it exists.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("error reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("error parsing %s: %w", path, err)
	}
	return cfg, nil
}
