// Copyright (C) 2025 The Elf Authors (elf@bronze-age.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package splice

import (
	"strconv"
	"strings"

	"github.com/cccbr/elf/pkg/ring"
)

// MusicSeparator is the field separator used when serialising a music
// definition to a single line.
const MusicSeparator = '|'

// MusicWildcard matches any bell in a music pattern.
const MusicWildcard = 'x'

// Music is one music definition: a named score plus the list of row
// patterns it matches. Patterns are eight characters, bell characters or
// the 'x' wildcard.
type Music struct {
	Name     string
	Score    int
	Patterns []string
}

// NewMusic builds a definition from a user-supplied pattern string.
// Patterns are separated by commas, semicolons or spaces; short patterns
// are padded with wildcards and long ones truncated; 'l', 'O', '-', '*'
// and '.' are normalised.
func NewMusic(name string, score int, matches string) Music {
	m := Music{Name: strings.ReplaceAll(name, string(MusicSeparator), " "), Score: score}
	for _, raw := range strings.FieldsFunc(strings.TrimSpace(matches), func(r rune) bool {
		return r == ',' || r == ';' || r == ' '
	}) {
		row := raw
		if len(row) > NBells {
			row = row[:NBells]
		} else if len(row) < NBells {
			row += strings.Repeat(string(MusicWildcard), NBells-len(row))
		}
		replacer := strings.NewReplacer("l", "1", "O", "0", "-", "x", "*", "x", ".", "x")
		m.Patterns = append(m.Patterns, replacer.Replace(row))
	}
	return m
}

// String serialises the definition as name|score| followed by the
// patterns.
func (m Music) String() string {
	var sb strings.Builder
	sb.WriteString(m.Name)
	sb.WriteByte(MusicSeparator)
	sb.WriteString(strconv.Itoa(m.Score))
	sb.WriteByte(MusicSeparator)
	for _, p := range m.Patterns {
		sb.WriteByte(' ')
		sb.WriteString(p)
	}
	return sb.String()
}

// patternMatches reports whether the pattern matches the row.
func patternMatches(pattern string, row ring.Row) bool {
	for i := 0; i < NBells; i++ {
		c := pattern[i]
		if c == MusicWildcard || c == 'X' {
			continue
		}
		if c != ring.Rounds[row[i]-1] {
			return false
		}
	}
	return true
}

// RowScore totals the scores of every pattern in every definition that
// matches the row.
func RowScore(defs []Music, row ring.Row) int {
	score := 0
	for _, m := range defs {
		for _, p := range m.Patterns {
			if patternMatches(p, row) {
				score += m.Score
			}
		}
	}
	return score
}

// DefaultMusic returns the stock music definitions: rollups at both
// ends, little-bell runs, 468 combinations, queens and whittingtons.
func DefaultMusic() []Music {
	return []Music{
		{Name: "Back rollups", Score: 1, Patterns: []string{"xxxx5678", "xxxx6578", "xxxx8765"}},
		{Name: "Front rollups", Score: 1, Patterns: []string{"5678xxxx", "8765xxxx"}},
		{Name: "Little-bell", Score: 1, Patterns: []string{"2345xxxx", "5432xxxx", "xxxx2345", "xxxx5432"}},
		{Name: "468s", Score: 1, Patterns: []string{"xxxx2468", "xxxx3468"}},
		{Name: "Queens", Score: 2, Patterns: []string{"13572468"}},
		{Name: "Whittingtons", Score: 2, Patterns: []string{"12753468"}},
	}
}

// PartEndMusic returns the part-end definitions, grouped by the part
// counts they reward.
func PartEndMusic() []Music {
	return []Music{
		{Name: "1 & 3", Score: 1, Patterns: []string{"1xxx5678"}},
		{Name: "2 & 6", Score: 1, Patterns: []string{"1xxx5678", "1xxx6578", "1xxx8765", "1xxx5768", "1xxx7856"}},
		{Name: "4 & 12", Score: 1, Patterns: []string{"1xxx6857", "1xxx7586", "13524xxx", "14253xxx", "15234xxx", "13452xxx", "14532xxx", "15423xxx"}},
		{Name: "5", Score: 1, Patterns: []string{"13526478", "15634278", "16452378", "14263578"}},
		{Name: "7", Score: 1, Patterns: []string{"13527486", "15738264", "17856342", "18674523", "16482735", "14263857", "13456782", "14567823", "15678234", "16782345", "17823456", "18234567"}},
		{Name: "10", Score: 1, Patterns: []string{"13257486", "13278564", "13286745", "13264857"}},
	}
}
