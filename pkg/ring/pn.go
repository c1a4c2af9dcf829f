// Copyright (C) 2025 The Elf Authors (elf@bronze-age.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ring

import (
	"fmt"
	"strings"
)

// Change is the parsed representation of a single place notation change:
// the 0-based places held fixed, in ascending order. Initial external
// places (place 0, the lead) are always present but final external places
// may not be. An empty Change is the cross change X.
type Change []byte

// CrossChange is the shared empty change for X.
var CrossChange = Change{}

// Equal reports whether two changes hold the same places. The final
// place matters: a change specifying "n" does not match one without it.
func (c Change) Equal(o Change) bool {
	if len(c) != len(o) {
		return false
	}
	for i := range c {
		if c[i] != o[i] {
			return false
		}
	}
	return true
}

// reversed swaps a change front to back at the given stage, used for
// rotational symmetry testing. A missing final external place is added
// first so the reflection is well defined.
func (c Change) reversed(nbells int) Change {
	if len(c) == 0 {
		return c
	}
	l := len(c)
	if int(c[l-1])&1 != (nbells-1)&1 {
		c2 := make(Change, l+1)
		copy(c2, c)
		c2[l] = byte(nbells - 1)
		c = c2
		l++
	}
	out := make(Change, l)
	for i := 0; i < l; i++ {
		out[l-1-i] = byte(nbells - 1 - int(c[i]))
	}
	return out
}

// PlaceNotation is a sequence of changes parsed from a notation string in
// any of the recognised formats:
//
//   - CC library: dot-separated notation with external places given;
//     symmetric methods give the leadhead notation after the halflead,
//     separated only by whitespace.
//   - MLIB: as CC, but the leadhead notation is prefixed by "l" or "lh".
//   - MicroSiril: blocks separated by ',', prefixed '&' (symmetric) or
//     '+' (asymmetric); external places usually omitted.
//   - MicroSiril with a leadhead code ('a'..'m', or 'z' with explicit
//     leadhead notation) before the symmetric block; the code implies the
//     final leadhead change.
//
// 'x' or '-' represent the cross change; parsing is case-insensitive and
// whitespace-tolerant. Symmetric blocks are expanded during parsing, so
// one change is available for every row of a lead.
type PlaceNotation struct {
	raw     string
	changes []Change
	// Highest place made anywhere, and highest made outside the
	// half-lead change, both 0-based; used for guessing the stage.
	highestPlace           int
	highestPlaceNotHalfLead int
	containsCross          bool
}

// ParsePlaceNotation parses a notation string. It fails on characters
// with no meaning in any supported format.
func ParsePlaceNotation(pn string) (*PlaceNotation, error) {
	p := &PlaceNotation{raw: strings.TrimSpace(pn)}
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p, nil
}

// String returns the original notation string.
func (p *PlaceNotation) String() string {
	return p.raw
}

// Len returns the number of changes in the expanded notation.
func (p *PlaceNotation) Len() int {
	return len(p.changes)
}

// Change returns the parsed change at index i.
func (p *PlaceNotation) Change(i int) Change {
	return p.changes[i]
}

// HighestPlace returns the highest place made in the notation, 1-based.
func (p *PlaceNotation) HighestPlace() int {
	return p.highestPlace + 1
}

// GuessStage tries to work out the stage of the method. If the notation
// contains a cross and the highest place is odd, the external places were
// probably omitted and the guess is raised accordingly. Not necessarily
// accurate when external places are not given.
func (p *PlaceNotation) GuessStage() int {
	n := p.highestPlace + 1
	if n&1 != 0 && p.containsCross {
		n2 := p.highestPlaceNotHalfLead + 1 + 3
		if n2 < n+1 {
			n2 = n + 1
		}
		n = n2
	}
	return n
}

// IsRightPlace reports whether the lead is even length with a cross at
// every even change.
func (p *PlaceNotation) IsRightPlace() bool {
	n := p.Len()
	if n&1 != 0 {
		return false
	}
	for i := 0; i < n; i += 2 {
		if len(p.changes[i]) != 0 {
			return false
		}
	}
	return true
}

// IsSymmetric reports whether the notation is symmetric about the
// halfway point.
func (p *PlaceNotation) IsSymmetric() bool {
	l := p.Len()
	if l&1 != 0 {
		return false
	}
	for i := 0; i < l/2-1; i++ {
		if !p.changes[i].Equal(p.changes[l-i-2]) {
			return false
		}
	}
	return true
}

// IsRotationallySymmetric reports whether the notation has double-method
// symmetry; test IsSymmetric as well to see whether it is a double
// method.
func (p *PlaceNotation) IsRotationallySymmetric(nbells int) bool {
	l := p.Len()
	if l&3 != 0 {
		return false
	}
	for i := 0; i <= l/4; i++ {
		if !p.changes[i].reversed(nbells).Equal(p.changes[l/2-2-i]) {
			return false
		}
		if !p.changes[l/2+i].reversed(nbells).Equal(p.changes[l-2-i]) {
			return false
		}
	}
	// Halflead must be the reverse of the leadhead.
	return p.changes[l/2-1].reversed(nbells).Equal(p.changes[l-1])
}

// parse expands the notation string into the internal change list.
func (p *PlaceNotation) parse() error {
	pnString := p.raw
	if pnString == "" {
		return fmt.Errorf("no place notation given")
	}

	// A leadhead code prefix is rewritten into MicroSiril block form so
	// the main loop only sees blocks.
	c := pnString[0]
	if i := strings.IndexByte(pnString, ' '); i > 0 {
		if pnString[i-1] == 'z' {
			c = 'z'
		}
		if c == 'z' || (c >= 'a' && c <= 'm') {
			j := strings.LastIndexByte(pnString, '+')
			if j < 0 || len(pnString)-j > 4 {
				switch {
				case c == 'z':
					pnString = pnString[i+1:] + ", +" + pnString[:i-1]
				case i >= 1 && i <= 2:
					pnString = pnString[i+1:]
					if c <= 'f' {
						pnString += ", +2"
					} else {
						pnString += ", +1"
					}
				}
			}
		}
	}

	source := strings.ToUpper(pnString)
	var changes []Change
	var pnbuf [MaxBells]byte
	n := 0
	blockStart := 0
	blockEnded := false
	symmetric := false
	hadSeparator := true
	highestInBlock := 0
	lastHighest := 0

	for i := 0; i < len(source); i++ {
		place := strings.IndexByte(Rounds, source[i])
		switch {
		case place >= 0:
			// A run of place characters forms one change. A leading
			// even place implies a missing external place at lead.
			b := place & 1
			j := i
			for place >= 0 && i-j < MaxBells {
				pnbuf[i-j] = byte(place)
				i++
				if i >= len(source) {
					break
				}
				place = strings.IndexByte(Rounds, source[i])
			}
			change := make(Change, b+i-j)
			if b > 0 {
				change[0] = 0
			}
			copy(change[b:], pnbuf[:i-j])
			place = int(pnbuf[i-j-1])

			// A change separated from the previous one only by
			// whitespace, at the very end of the string, is a CC-format
			// leadhead: the preceding block is symmetric.
			if !hadSeparator && i >= len(source) {
				n += reflectSymmetric(blockStart, &changes)
				blockStart = n
				symmetric = false
				if lastHighest > p.highestPlaceNotHalfLead {
					p.highestPlaceNotHalfLead = lastHighest
				}
				lastHighest = 0
				highestInBlock = 0
			} else {
				lastHighest = highestInBlock
			}
			if place > highestInBlock {
				highestInBlock = place
				if place > p.highestPlace {
					p.highestPlace = place
				}
			}
			hadSeparator = false
			changes = append(changes, change)
			n++
			i--

		case source[i] == 'X' || source[i] == '-':
			changes = append(changes, CrossChange)
			n++
			p.containsCross = true
			hadSeparator = true
			lastHighest = highestInBlock

		case source[i] == '.':
			hadSeparator = true

		case source[i] == ' ' || source[i] == '\t':

		case source[i] == 'L':
			// MLIB leadhead marker: the previous block is symmetric.
			n += reflectSymmetric(blockStart, &changes)
			symmetric = false
			if i+1 < len(source) && source[i+1] == 'H' {
				i++
			}
			blockEnded = true

		case source[i] == '&':
			if symmetric {
				n += reflectSymmetric(blockStart, &changes)
			}
			symmetric = true
			blockEnded = true

		case source[i] == '+' || source[i] == ',':
			if symmetric {
				n += reflectSymmetric(blockStart, &changes)
			}
			symmetric = false
			blockEnded = true

		default:
			return fmt.Errorf("unrecognised character %q in place notation %q", source[i], p.raw)
		}

		if blockEnded {
			blockStart = n
			hadSeparator = true
			if lastHighest > p.highestPlaceNotHalfLead {
				p.highestPlaceNotHalfLead = lastHighest
			}
			lastHighest = 0
			highestInBlock = 0
			blockEnded = false
		}
	}

	if symmetric {
		n += reflectSymmetric(blockStart, &changes)
	}
	p.changes = changes
	return nil
}

// reflectSymmetric appends reflected notation from fromHere up to but
// not including the final entry, which is taken as the pivot. Returns
// the number of changes added.
func reflectSymmetric(fromHere int, changes *[]Change) int {
	n := 0
	for i := len(*changes) - 2; i >= fromHere; i-- {
		*changes = append(*changes, (*changes)[i])
		n++
	}
	return n
}
