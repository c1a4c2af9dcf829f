// Copyright (C) 2025 The Elf Authors (elf@bronze-age.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	methodsFlag       []string
	leadsPerPart      int
	parts             int
	tenorsTogether    bool
	nicePartEnds      bool
	optimumBalance    bool
	maxCOM            bool
	leadheadOnly      bool
	calls             int
	minScore          int
	minCOM            int
	minBalance        int
	startComp         string
	compsToKeep       int
	outputFile        string

	rootCmd = &cobra.Command{
		Use:   "elf",
		Short: "Elf, the half-lead spliced composing engine",
		Long: `Elf searches for true half-lead (and leadhead) spliced
compositions of Major, scoring them by music, changes of method and
method balance, and keeping the best it finds.`,
	}

	// --- Searching ---
	searchCmd = &cobra.Command{
		Use:   "search",
		Short: "Run a composition search from config.yaml and flags",
		Run:   runSearch, // Defined in cmd_search.go
	}

	// --- Library ---
	libraryCmd = &cobra.Command{
		Use:   "library",
		Short: "Inspect the method library",
	}
	libraryListCmd = &cobra.Command{
		Use:   "list",
		Short: "List the methods available for splicing",
		Run:   runLibraryList, // Defined in cmd_library.go
	}
	libraryShowCmd = &cobra.Command{
		Use:   "show [name or abbreviation]",
		Short: "Show one method's notation and lead",
		Args:  cobra.ExactArgs(1),
		Run:   runLibraryShow, // Defined in cmd_library.go
	}
	libraryLoadCmd = &cobra.Command{
		Use:   "load [library.zip]",
		Short: "List the contents of a zipped method library",
		Args:  cobra.ExactArgs(1),
		Run:   runLibraryLoad, // Defined in cmd_library.go
	}

	// --- Music ---
	musicCmd = &cobra.Command{
		Use:   "music",
		Short: "List the stock music definitions",
		Run:   runMusicList, // Defined in cmd_library.go
	}
)

func init() {
	searchCmd.Flags().StringSliceVarP(&methodsFlag, "methods", "m", nil, "methods to splice, by name or abbreviation")
	searchCmd.Flags().IntVarP(&leadsPerPart, "leads", "l", 0, "leads per part")
	searchCmd.Flags().IntVarP(&parts, "parts", "p", 0, "number of parts")
	searchCmd.Flags().BoolVar(&tenorsTogether, "tenors-together", false, "keep the tenors coursing")
	searchCmd.Flags().BoolVar(&nicePartEnds, "nice-part-ends", false, "only allow nice part ends")
	searchCmd.Flags().BoolVar(&optimumBalance, "atw", false, "enforce optimum half-lead method balance")
	searchCmd.Flags().BoolVar(&maxCOM, "max-com", false, "start at the maximum achievable changes of method")
	searchCmd.Flags().BoolVar(&leadheadOnly, "leadhead-only", false, "leadhead-only splicing")
	searchCmd.Flags().IntVarP(&calls, "calls", "c", 0, "0 = no calls, 1 = bobs, 2 = bobs and singles")
	searchCmd.Flags().IntVar(&minScore, "min-score", 0, "minimum composition score")
	searchCmd.Flags().IntVar(&minCOM, "min-com", 0, "minimum changes of method per part")
	searchCmd.Flags().IntVar(&minBalance, "min-balance", 0, "minimum method balance percentage")
	searchCmd.Flags().StringVar(&startComp, "start", "", "start composition seed (must be rotationally sorted)")
	searchCmd.Flags().IntVarP(&compsToKeep, "keep", "k", 0, "number of compositions to keep")
	searchCmd.Flags().StringVarP(&outputFile, "output", "o", "", "file receiving every found composition")

	libraryCmd.AddCommand(libraryListCmd, libraryShowCmd, libraryLoadCmd)
	rootCmd.AddCommand(searchCmd, libraryCmd, musicCmd)
}
