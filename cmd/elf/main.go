// Copyright (C) 2025 The Elf Authors (elf@bronze-age.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Elf searches for half-lead spliced compositions of Major from the
// command line. Search parameters come from config.yaml, overridden by
// flags.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cccbr/elf/pkg/logging"
)

var config Config

func main() {
	// Execute the root command. Cobra handles parsing the arguments.
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig("config.yaml")
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		config = cfg
		logger := logging.New(logging.Config{
			Level:   logging.ParseLevel(config.LogLevel),
			Service: "cli",
		})
		slog.SetDefault(logger.Logger)
	}
}
