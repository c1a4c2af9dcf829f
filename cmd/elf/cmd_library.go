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

	"github.com/spf13/cobra"

	"github.com/cccbr/elf/pkg/splice"
)

// runLibraryList prints the methods available for splicing.
func runLibraryList(cmd *cobra.Command, args []string) {
	printTitle("Method library")
	for _, m := range splice.NewLibrary().Methods() {
		fmt.Printf("  %s  %-18s %s\n",
			styled(styles.Highlight, m.Abbrev()),
			splice.DisplayName(m.Name()),
			styled(styles.Muted, m.PN().String()))
	}
}

// runLibraryShow prints one method in detail.
func runLibraryShow(cmd *cobra.Command, args []string) {
	m := splice.NewLibrary().Find(args[0])
	if m == nil {
		printError(fmt.Errorf("no method %q in the library", args[0]))
		os.Exit(1)
	}
	printTitle(m.Name() + " Surprise Major")
	fmt.Println("  abbreviation:", styled(styles.Highlight, m.Abbrev()))
	fmt.Println("  notation:    ", m.PN().String())
	fmt.Println("  lead length: ", m.LeadLength())
	fmt.Println("  halflead:    ", m.Halflead())
	fmt.Println("  leadhead:    ", m.Leadhead())
}

// runLibraryLoad parses a zipped method library and lists its contents.
func runLibraryLoad(cmd *cobra.Command, args []string) {
	f, err := os.Open(args[0])
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer f.Close()
	entries, err := splice.ReadZippedLibrary(f)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	printTitle(fmt.Sprintf("%s: %d methods", args[0], len(entries)))
	for _, e := range entries {
		fmt.Printf("  %-18s %-4s %s\n",
			splice.DisplayName(e.Name), e.Code, styled(styles.Muted, e.Notation))
	}
}

// runMusicList prints the stock music definitions.
func runMusicList(cmd *cobra.Command, args []string) {
	printTitle("Stock music")
	for _, m := range splice.DefaultMusic() {
		fmt.Printf("  %s\n", m)
	}
	printTitle("Part-end music")
	for _, m := range splice.PartEndMusic() {
		fmt.Printf("  %s\n", m)
	}
}
