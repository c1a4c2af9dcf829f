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

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/cccbr/elf/pkg/splice"
)

// Bell-metal palette.
var (
	colorBronze     = lipgloss.Color("#B08D57")
	colorBronzeDeep = lipgloss.Color("#8C6D3F")
	colorVerdigris  = lipgloss.Color("#43B3AE")
	colorWarning    = lipgloss.Color("#F4D03F")
	colorError      = lipgloss.Color("#E74C3C")
	colorMuted      = lipgloss.Color("#6E7B8B")
)

// styles holds the pre-configured lipgloss styles used by the CLI.
var styles = struct {
	Title     lipgloss.Style
	Highlight lipgloss.Style
	Muted     lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	CompBox   lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(colorBronze),
	Highlight: lipgloss.NewStyle().Bold(true).Foreground(colorVerdigris),
	Muted:     lipgloss.NewStyle().Foreground(colorMuted),
	Warning:   lipgloss.NewStyle().Foreground(colorWarning),
	Error:     lipgloss.NewStyle().Foreground(colorError),
	CompBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBronzeDeep).
		Padding(0, 1),
}

// plainOutput is set when stdout is not a terminal; styling degrades to
// plain text so output pipes cleanly.
var plainOutput = !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd())

func styled(s lipgloss.Style, text string) string {
	if plainOutput {
		return text
	}
	return s.Render(text)
}

// printTitle prints a section heading.
func printTitle(text string) {
	fmt.Println(styled(styles.Title, text))
}

// printError prints an error line to stderr.
func printError(err error) {
	fmt.Fprintln(os.Stderr, styled(styles.Error, "error: "+err.Error()))
}

// renderComp formats one composition, numbered as the host presents it.
func renderComp(comp *splice.OutputComp, rank int) string {
	body := comp.Render(fmt.Sprintf(", gen. Elf (No. %d)", rank))
	if plainOutput {
		return body
	}
	return styles.CompBox.Render(body)
}

// printProgress prints one live status line during a search.
func printProgress(c *splice.Composer, tracker *splice.Tracker) {
	line := fmt.Sprintf("%s%%  %s  n=%d bal=%d com=%d score=%d node/s=%d",
		tracker.ProgressString(2), c.EstimateTimeLeft(),
		c.NComps(), c.BestBalance(), c.BestCOM(), c.BestScore(), c.NodesPerSec())
	fmt.Println(styled(styles.Muted, line))
}
