// Copyright (C) 2025 The Elf Authors (elf@bronze-age.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cambridgePN = "x38x14x1258x36x14x58x16x78 l12"

func TestParsePlaceNotationFormats(t *testing.T) {
	t.Run("MLIB symmetric with lead marker", func(t *testing.T) {
		p, err := ParsePlaceNotation(cambridgePN)
		require.NoError(t, err)
		// 16 changes in the half-lead, reflected, plus the leadhead.
		assert.Equal(t, 32, p.Len())
		assert.True(t, p.IsSymmetric())
		assert.Equal(t, 8, p.GuessStage())
		assert.Equal(t, 8, p.HighestPlace())
		// Leadhead change is 12.
		assert.True(t, p.Change(31).Equal(Change{0, 1}))
	})

	t.Run("CC format implies leadhead after whitespace", func(t *testing.T) {
		p, err := ParsePlaceNotation("x38x14x58x16x12x38x14x78 12")
		require.NoError(t, err)
		assert.Equal(t, 32, p.Len())
		assert.True(t, p.IsSymmetric())
	})

	t.Run("MicroSiril block form", func(t *testing.T) {
		p, err := ParsePlaceNotation("&x38x14x1258x36x14x58x16x78, +12")
		require.NoError(t, err)
		assert.Equal(t, 32, p.Len())
		assert.True(t, p.IsSymmetric())
	})

	t.Run("leadhead code form", func(t *testing.T) {
		// 'b' implies a 2nds-place leadhead.
		p, err := ParsePlaceNotation("b &x38x14x1258x36x14x58x16x78")
		require.NoError(t, err)
		assert.Equal(t, 32, p.Len())
		assert.True(t, p.Change(31).Equal(Change{0, 1}))
	})

	t.Run("all four parse to the same changes", func(t *testing.T) {
		variants := []string{
			cambridgePN,
			"x38x14x1258x36x14x58x16x78 12",
			"&x38x14x1258x36x14x58x16x78, +12",
			"b &x38x14x1258x36x14x58x16x78",
		}
		base, err := ParsePlaceNotation(variants[0])
		require.NoError(t, err)
		for _, v := range variants[1:] {
			p, err := ParsePlaceNotation(v)
			require.NoError(t, err, v)
			require.Equal(t, base.Len(), p.Len(), v)
			for i := 0; i < base.Len(); i++ {
				assert.True(t, base.Change(i).Equal(p.Change(i)), "%s change %d", v, i)
			}
		}
	})

	t.Run("case and separator tolerant", func(t *testing.T) {
		a, err := ParsePlaceNotation("X38X14X58X16X12X38X14X78 L12")
		require.NoError(t, err)
		b, err := ParsePlaceNotation("-38-14-58-16-12-38-14-78 l12")
		require.NoError(t, err)
		require.Equal(t, a.Len(), b.Len())
		for i := 0; i < a.Len(); i++ {
			assert.True(t, a.Change(i).Equal(b.Change(i)))
		}
	})

	t.Run("rejects junk", func(t *testing.T) {
		_, err := ParsePlaceNotation("x38?x14")
		assert.Error(t, err)
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := ParsePlaceNotation("   ")
		assert.Error(t, err)
	})
}

func TestRoundTrip(t *testing.T) {
	// Parse, serialise, reparse: identical change sequences.
	for _, pn := range []string{
		cambridgePN,
		"x58x14.58x58.36.14x14.58x14x18 l18",
		"36x56.14.58x58.36x14x38.16x16.38 l18",
	} {
		p1, err := ParsePlaceNotation(pn)
		require.NoError(t, err)
		p2, err := ParsePlaceNotation(p1.String())
		require.NoError(t, err)
		require.Equal(t, p1.Len(), p2.Len(), pn)
		for i := 0; i < p1.Len(); i++ {
			assert.True(t, p1.Change(i).Equal(p2.Change(i)), "%s change %d", pn, i)
		}
	}
}

func TestPlaceNotationProperties(t *testing.T) {
	t.Run("right place", func(t *testing.T) {
		yorkshire, err := ParsePlaceNotation("x38x14x58x16x12x38x14x78 l12")
		require.NoError(t, err)
		assert.True(t, yorkshire.IsRightPlace())

		london, err := ParsePlaceNotation("38x38.14x12x38.14x14.58.16x16.58 l12")
		require.NoError(t, err)
		assert.False(t, london.IsRightPlace())
	})

	t.Run("rotational symmetry of a double method", func(t *testing.T) {
		bristol, err := ParsePlaceNotation("x58x14.58x58.36.14x14.58x14x18 l18")
		require.NoError(t, err)
		assert.True(t, bristol.IsRotationallySymmetric(8))

		cambridge, err := ParsePlaceNotation(cambridgePN)
		require.NoError(t, err)
		assert.False(t, cambridge.IsRotationallySymmetric(8))
	})

	t.Run("stage guess raises odd highest place with cross", func(t *testing.T) {
		// Minor notation with external places omitted.
		p, err := ParsePlaceNotation("x3x4x2x3x4x5")
		require.NoError(t, err)
		assert.Equal(t, 6, p.GuessStage())
	})

	t.Run("lead of rounds applies back to rounds", func(t *testing.T) {
		p, err := ParsePlaceNotation(cambridgePN)
		require.NoError(t, err)
		r := NewRounds(8)
		seen := map[string]bool{}
		for i := 0; i < p.Len(); i++ {
			assert.False(t, seen[r.String()], "row %s repeated", r)
			seen[r.String()] = true
			r.ApplyChange(p.Change(i))
		}
		// One lead of Cambridge ends at the 2nds-place leadhead.
		assert.Equal(t, 1, r.BellAt(1))
		assert.False(t, r.IsRounds())
	})
}
