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

func TestParseRow(t *testing.T) {
	t.Run("round trips bell characters", func(t *testing.T) {
		r, err := ParseRow("13572468")
		require.NoError(t, err)
		assert.Equal(t, "13572468", r.String())
		assert.Equal(t, 8, r.Stage())
	})

	t.Run("accepts higher stages", func(t *testing.T) {
		r, err := ParseRow("1234567890ET")
		require.NoError(t, err)
		assert.Equal(t, 12, r.Stage())
		assert.Equal(t, 12, r.BellAt(12))
	})

	t.Run("rejects invalid characters", func(t *testing.T) {
		_, err := ParseRow("1234567?")
		assert.Error(t, err)
	})

	t.Run("rejects out-of-range stages", func(t *testing.T) {
		_, err := ParseRow("12")
		assert.Error(t, err)
	})
}

func TestRowBasics(t *testing.T) {
	r := NewRounds(8)
	assert.True(t, r.IsRounds())
	assert.Equal(t, 1, r.BellAt(1))
	assert.Equal(t, 8, r.BellAt(8))
	assert.Equal(t, 0, r.BellAt(9))
	assert.Equal(t, 5, r.FindBell(5))
	assert.Equal(t, 0, r.FindBell(9))

	c := r.Clone()
	c.Swap(1, 2)
	assert.Equal(t, "21345678", c.String())
	assert.True(t, r.IsRounds(), "clone must not alias")
	assert.False(t, c.Equal(r))
}

func TestPermute(t *testing.T) {
	r, _ := ParseRow("21345678")
	perm, _ := ParseRow("87654321")
	got := r.Permuted(perm)
	assert.Equal(t, "87654312", got.String())

	t.Run("identity is a no-op", func(t *testing.T) {
		id := NewRounds(8)
		assert.Equal(t, r.String(), r.Permuted(id).String())
	})

	t.Run("PermutationTo inverts Permute", func(t *testing.T) {
		target, _ := ParseRow("15738264")
		perm := make(Row, 8)
		r := NewRounds(8)
		r.PermutationTo(target, perm)
		assert.Equal(t, target.String(), r.Permuted(perm).String())
	})
}

func TestApplyChange(t *testing.T) {
	t.Run("cross swaps every pair", func(t *testing.T) {
		r := NewRounds(8)
		r.ApplyChange(CrossChange)
		assert.Equal(t, "21436587", r.String())
	})

	t.Run("places hold still", func(t *testing.T) {
		// 14 holds first and fourth places.
		r := NewRounds(8)
		r.ApplyChange(Change{0, 3})
		assert.Equal(t, "13246587", r.String())
	})

	t.Run("malformed notation implies a place before", func(t *testing.T) {
		// A held 2nds place with no 1sts place behaves as 12.
		r := NewRounds(8)
		r.ApplyChange(Change{1})
		assert.Equal(t, "12436587", r.String())
	})
}

func TestTenorsQueries(t *testing.T) {
	home := NewRounds(8)
	assert.True(t, home.IsTenorsHome())
	assert.True(t, home.IsTenorsTogether())

	split, _ := ParseRow("17234568")
	assert.False(t, split.IsTenorsHome())
	assert.False(t, split.IsTenorsTogether())

	// Tenors coursing but not home: a plain bob leadhead.
	coursing, _ := ParseRow("13527486")
	assert.False(t, coursing.IsTenorsHome())
	assert.True(t, coursing.IsTenorsTogether())
}

func TestIsPlainBobRow(t *testing.T) {
	for _, s := range []string{"12345678", "13527486", "15738264"} {
		r, err := ParseRow(s)
		require.NoError(t, err)
		assert.True(t, r.IsPlainBobRow(), s)
	}
	for _, s := range []string{"13245678", "12345687"} {
		r, err := ParseRow(s)
		require.NoError(t, err)
		assert.False(t, r.IsPlainBobRow(), s)
	}
}

func TestNextCourseBell(t *testing.T) {
	r := NewRounds(8)
	// Evens up from 2: 2 4 6 8 7 5 3 1 2 ...
	seq := []int{4, 6, 8, 7, 5, 3, 1, 2}
	bell := 2
	for _, want := range seq {
		bell = r.nextCourseBell(bell, true)
		assert.Equal(t, want, bell)
	}
}
