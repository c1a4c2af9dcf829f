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
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cccbr/elf/pkg/splice"
)

// runSearch builds the tables, runs the search in a worker goroutine
// and follows its progress until completion, then prints the kept
// compositions.
func runSearch(cmd *cobra.Command, args []string) {
	cfg := config.Search
	applySearchFlags(cmd, &cfg)

	library := splice.NewLibrary()
	tables := splice.NewTables()

	printTitle("Elf - half-lead spliced composing engine")
	fmt.Println(styled(styles.Muted, "building node table..."))
	start := time.Now()
	tables.BuildNodeTable()
	fmt.Println(styled(styles.Muted, fmt.Sprintf("table build took %.1fs", time.Since(start).Seconds())))

	composer, err := splice.NewSearch(library, tables, &cfg)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	keep := cfg.CompsToKeep
	if keep == 0 {
		keep = 10
	}
	collector := splice.NewCollector(keep, composer)

	var host splice.Host = collector
	outPath := config.OutputFile
	if outputFile != "" {
		outPath = outputFile
	}
	var outFile *os.File
	if outPath != "" {
		outFile, err = os.Create(outPath)
		if err != nil {
			printError(fmt.Errorf("failed to open output file: %w", err))
			os.Exit(1)
		}
		defer outFile.Close()
		host = &teeHost{collector: collector, out: outFile}
	}

	runner := splice.NewRunner(tables, composer)

	// Ctrl-C aborts cooperatively; the worker unwinds at its next check.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		fmt.Println(styled(styles.Warning, "aborting..."))
		runner.Abort()
	}()

	done := make(chan error, 1)
	go func() {
		done <- runner.Run(host)
	}()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for running := true; running; {
		select {
		case err := <-done:
			if err != nil {
				printError(err)
				os.Exit(1)
			}
			running = false
		case <-ticker.C:
			if composer.IsComposing() {
				printProgress(composer, runner.Tracker)
			}
		}
	}

	comps := collector.Comps()
	if composer.Aborted() {
		fmt.Println(styled(styles.Warning, "search aborted"))
	} else {
		printTitle(fmt.Sprintf("search complete in %s: %d comps from %d leads",
			composer.SearchTime(), composer.NComps(), composer.NNodes()))
	}
	if len(comps) == 0 {
		fmt.Println("No compositions found")
		return
	}
	for i, comp := range comps {
		fmt.Println(renderComp(comp, i+1))
		fmt.Println()
	}
	if outPath != "" {
		fmt.Println(styled(styles.Muted, "all found compositions written to "+outPath))
	}
}

// applySearchFlags overlays explicitly-set flags on the config.
func applySearchFlags(cmd *cobra.Command, cfg *splice.SearchConfig) {
	if cmd.Flags().Changed("methods") {
		cfg.Methods = methodsFlag
	}
	if cmd.Flags().Changed("leads") {
		cfg.LeadsPerPart = leadsPerPart
	}
	if cmd.Flags().Changed("parts") {
		cfg.Parts = parts
	}
	if cmd.Flags().Changed("tenors-together") {
		cfg.TenorsTogether = tenorsTogether
	}
	if cmd.Flags().Changed("nice-part-ends") {
		cfg.NicePartEnds = nicePartEnds
	}
	if cmd.Flags().Changed("atw") {
		cfg.OptimumBalance = optimumBalance
	}
	if cmd.Flags().Changed("max-com") {
		cfg.MaxCOM = maxCOM
	}
	if cmd.Flags().Changed("leadhead-only") {
		cfg.LeadheadOnly = leadheadOnly
	}
	if cmd.Flags().Changed("calls") {
		cfg.Calls = calls
	}
	if cmd.Flags().Changed("min-score") {
		cfg.MinScore = minScore
	}
	if cmd.Flags().Changed("min-com") {
		cfg.MinCOM = minCOM
	}
	if cmd.Flags().Changed("min-balance") {
		cfg.MinBalance = minBalance
	}
	if cmd.Flags().Changed("start") {
		cfg.StartComp = startComp
	}
	if cmd.Flags().Changed("keep") {
		cfg.CompsToKeep = compsToKeep
	}
}

// teeHost forwards compositions to the collector and appends each to
// the output file as it arrives.
type teeHost struct {
	collector *splice.Collector
	out       *os.File
	mu        sync.Mutex
}

func (t *teeHost) OutputComp(comp *splice.OutputComp) {
	t.collector.OutputComp(comp)
	t.mu.Lock()
	fmt.Fprintln(t.out, comp.Render(""))
	fmt.Fprintln(t.out)
	t.mu.Unlock()
}
