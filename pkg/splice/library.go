// Copyright (C) 2025 The Elf Authors (elf@bronze-age.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package splice

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/cccbr/elf/pkg/ring"
)

// MaxDisplayName is the name length above which DisplayName shortens a
// name, to its first MaxDisplayName-1 characters followed by "...".
const MaxDisplayName = 20

// LibraryEntry is one method parsed from a library file: full name,
// leadhead code and place notation. The notation is stored with the code
// prefixed, the form the place notation parser resolves into an implied
// leadhead.
type LibraryEntry struct {
	Name     string
	Code     string
	Notation string
}

// ReadZippedLibrary unpacks a zipped method library and parses its first
// entry. Each line outside the header is "<Name> <Code> <PlaceNotation>";
// lines starting "**" are comments and a method named "Zzz" terminates
// the list.
func ReadZippedLibrary(r io.Reader) ([]LibraryEntry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read library: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open library zip: %w", err)
	}
	if len(zr.File) == 0 {
		return nil, fmt.Errorf("library zip is empty")
	}
	f, err := zr.File[0].Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open library entry: %w", err)
	}
	defer f.Close()
	text, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack library entry: %w", err)
	}
	return parseLibrary(string(text)), nil
}

// parseLibrary scans the unpacked library text line by line.
func parseLibrary(text string) []LibraryEntry {
	var entries []LibraryEntry
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		line = strings.TrimPrefix(line, "<XMP>")
		if strings.HasPrefix(line, "**") {
			continue
		}
		i := strings.IndexByte(line, ' ')
		if i < 0 {
			continue
		}
		i2 := strings.IndexByte(line[i+1:], ' ')
		if i2 < 0 {
			continue
		}
		i2 += i + 1
		name := line[:i]
		if name == "Zzz" {
			break
		}
		entries = append(entries, LibraryEntry{
			Name:     name,
			Code:     line[i+1 : i2],
			Notation: line[i+1:],
		})
	}
	return entries
}

// DisplayName truncates a method name for display.
func DisplayName(name string) string {
	if len(name) > MaxDisplayName {
		return name[:MaxDisplayName-1] + "..."
	}
	return name
}

// standardMethodDefs are the stock Surprise Major methods always
// available without loading a library.
var standardMethodDefs = []struct {
	name, abbrev, pn string
}{
	{"Cambridge", "", "x38x14x1258x36x14x58x16x78 l12"},
	{"Yorkshire", "", "x38x14x58x16x12x38x14x78 l12"},
	{"Lincolnshire", "N", "x38x14x58x16x14x58x36x78 l12"},
	{"Superlative", "", "x36x14x58x36x14x58x36x78 l12"},
	{"Pudsey", "", "x58x16x12x38x14x58x16x78 l12"},
	{"Rutland", "", "x38x14x58x16x14x38x34x18 l12"},
	{"Bristol", "", "x58x14.58x58.36.14x14.58x14x18 l18"},
	{"London", "", "38x38.14x12x38.14x14.58.16x16.58 l12"},
	{"Ashtead", "", "x58x16x56x36x34x38x14x78 l12"},
	{"Cassiobury", "O", "x58x16x12x36x12x58x14x18 l12"},
	{"Uxbridge", "", "x38x14x56x16x34x58x14x58 l12"},
	{"Belfast", "F", "34x58.14x12x38.12x14.38.16x12.38 l18"},
	{"Glasgow", "", "36x56.14.58x58.36x14x38.16x16.38 l18"},
}

// StandardMethod returns one of the stock methods by name.
func StandardMethod(name string) (*Method, error) {
	for _, def := range standardMethodDefs {
		if strings.EqualFold(def.name, name) {
			return NewMethod(def.name, def.abbrev, def.pn)
		}
	}
	return nil, fmt.Errorf("no standard method named %q", name)
}

// Library is an ordered collection of methods, kept sorted by
// abbreviation, from which search method lists are drawn.
type Library struct {
	methods []*Method
}

// NewLibrary returns a library stocked with the standard methods.
func NewLibrary() *Library {
	lib := &Library{}
	for _, def := range standardMethodDefs {
		m, err := NewMethod(def.name, def.abbrev, def.pn)
		if err != nil {
			// The stock notations are constants; failing to parse one is
			// a programming error.
			panic(fmt.Sprintf("bad standard method %s: %v", def.name, err))
		}
		lib.insert(m)
	}
	return lib
}

// Size returns the number of methods held.
func (l *Library) Size() int { return len(l.methods) }

// Methods returns the held methods in abbreviation order.
func (l *Library) Methods() []*Method { return l.methods }

// Find returns the method with the given name or abbreviation, or nil.
func (l *Library) Find(key string) *Method {
	for _, m := range l.methods {
		if strings.EqualFold(m.name, key) || m.abbrev == key {
			return m
		}
	}
	return nil
}

// Add validates and inserts a method, replacing any existing method of
// the same name. Only symmetric Major methods with the treble as hunt
// bell are accepted. Returns the added method.
func (l *Library) Add(name, abbrev, notation string) (*Method, error) {
	if name == "" {
		return nil, fmt.Errorf("the method must be given a name")
	}
	if len(abbrev) != 1 {
		return nil, fmt.Errorf("the method must be given a one-letter abbreviation")
	}
	pn, err := ring.ParsePlaceNotation(notation)
	if err != nil {
		return nil, err
	}
	if pn.HighestPlace() > NBells {
		return nil, fmt.Errorf("sorry - only Major methods are currently supported")
	}
	m, err := NewMethod(name, abbrev, notation)
	if err != nil {
		return nil, err
	}
	if !pn.IsSymmetric() {
		return nil, fmt.Errorf("method must be symmetric for half-lead splicing")
	}
	if m.leadhead.BellAt(1) != 1 {
		return nil, fmt.Errorf("the treble must be the hunt bell")
	}
	if m.halflead.BellAt(NBells) != 1 {
		return nil, fmt.Errorf("the treble must be in %dths place at the half-lead", NBells)
	}
	old := -1
	for i, existing := range l.methods {
		if existing.name == name {
			old = i
			continue
		}
		if existing.abbrev == abbrev {
			return nil, fmt.Errorf("the abbreviation %s is already used.\nAvailable abbreviations are:\n  %s",
				abbrev, l.availableAbbrevs())
		}
	}
	if old >= 0 {
		l.methods = append(l.methods[:old], l.methods[old+1:]...)
	}
	l.insert(m)
	return m, nil
}

// Remove deletes the method at index i.
func (l *Library) Remove(i int) {
	l.methods = append(l.methods[:i], l.methods[i+1:]...)
}

// insert places the method in abbreviation order.
func (l *Library) insert(m *Method) {
	i := sort.Search(len(l.methods), func(i int) bool {
		return m.abbrev < l.methods[i].abbrev
	})
	l.methods = append(l.methods, nil)
	copy(l.methods[i+1:], l.methods[i:])
	l.methods[i] = m
}

// availableAbbrevs lists the upper-case letters not yet taken.
func (l *Library) availableAbbrevs() string {
	var sb strings.Builder
	taken := map[byte]bool{}
	for _, m := range l.methods {
		taken[m.abbrev[0]] = true
	}
	for c := byte('A'); c <= 'Z'; c++ {
		if !taken[c] {
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
