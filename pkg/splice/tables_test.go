// Copyright (C) 2025 The Elf Authors (elf@bronze-age.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package splice

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cccbr/elf/pkg/ring"
)

// The node table takes a second or two to build, so every test in the
// package shares one instance and installs its own methods and music.
var (
	tablesOnce   sync.Once
	sharedTables *Tables
)

func testTables(t *testing.T) *Tables {
	t.Helper()
	tablesOnce.Do(func() {
		sharedTables = NewTables()
		sharedTables.BuildNodeTable()
	})
	require.True(t, sharedTables.IsBuilt())
	return sharedTables
}

// installMethods prepares the shared tables for the named standard
// methods.
func installMethods(t *testing.T, tables *Tables, names ...string) []*Method {
	t.Helper()
	methods := make([]*Method, 0, len(names))
	for _, name := range names {
		m, err := StandardMethod(name)
		require.NoError(t, err)
		methods = append(methods, m)
	}
	tables.SetMethods(methods)
	require.NoError(t, tables.PrepareMethods())
	tables.SetMusic(DefaultMusic())
	tables.PrepareMusic()
	tables.PrepareLeadMusic()
	return methods
}

func TestBuildNodeTable(t *testing.T) {
	tables := testTables(t)

	assert.Equal(t, NNodes, tables.NNodes())
	assert.Equal(t, NLeadheads, tables.NLeadheadNodes())

	t.Run("leadhead numbers are contiguous and unique", func(t *testing.T) {
		seen := make([]bool, NLeadheads)
		for _, node := range tables.leads {
			num := node.LeadheadNumber()
			require.GreaterOrEqual(t, num, int32(0))
			require.Less(t, num, int32(NLeadheads))
			require.False(t, seen[num], "duplicate leadhead number %d", num)
			seen[num] = true
		}
	})

	t.Run("every treble-lead row is a leadhead node", func(t *testing.T) {
		count := 0
		for _, node := range tables.nodes {
			if node.BellAt(1) == 1 {
				count++
				assert.True(t, node.IsLeadhead())
				assert.GreaterOrEqual(t, node.LeadheadNumber(), int32(0))
			} else {
				assert.Equal(t, int32(-1), node.LeadheadNumber())
			}
		}
		assert.Equal(t, NLeadheads, count)
	})

	t.Run("rounds node", func(t *testing.T) {
		rounds := tables.Rounds()
		require.NotNil(t, rounds)
		assert.True(t, rounds.IsLeadhead())
		assert.True(t, rounds.IsTenorsHome())
		assert.True(t, rounds.IsTenorsTogether())
		assert.True(t, rounds.IsNicePartEnd())
		assert.Equal(t, int32(1), rounds.NParts())
	})
}

func TestNParts(t *testing.T) {
	tables := testTables(t)
	cases := []struct {
		row    string
		nParts int32
	}{
		{"12345678", 1},
		{"21345678", 2},
		{"13527486", 7}, // plain bob leadhead: a 7-lead course
		{"12345687", 2},
		{"23145678", 3},
	}
	for _, tc := range cases {
		row, err := ring.ParseRow(tc.row)
		require.NoError(t, err)
		node := tables.Node(row)
		require.NotNil(t, node, tc.row)
		assert.Equal(t, tc.nParts, node.NParts(), tc.row)

		// Applying the row nParts times returns rounds; fewer does not.
		r := ring.NewRounds(NBells)
		for i := int32(1); i <= node.NParts(); i++ {
			r.Permute(row)
			if i < node.NParts() {
				assert.False(t, r.IsRounds(), "%s returned early at %d", tc.row, i)
			}
		}
		assert.True(t, r.IsRounds(), tc.row)
	}
}

func TestPermutationLinks(t *testing.T) {
	tables := testTables(t)
	installMethods(t, tables, "Cambridge", "Yorkshire")

	t.Run("closure over every permutation", func(t *testing.T) {
		nPerms := len(tables.pnPerms) + len(tables.lhPerms)
		for _, node := range []*Node{tables.Rounds(), tables.nodes[123], tables.nodes[40319]} {
			require.Len(t, node.perms, nPerms)
			for p := 0; p < nPerms; p++ {
				require.NotNil(t, node.Permute(p))
			}
		}
	})

	t.Run("permute then inverse returns the node", func(t *testing.T) {
		inverse := func(perm ring.Row) ring.Row {
			inv := make(ring.Row, len(perm))
			for i, b := range perm {
				inv[b-1] = byte(i + 1)
			}
			return inv
		}
		samples := []*Node{tables.Rounds(), tables.nodes[7], tables.nodes[31415]}
		for _, node := range samples {
			for p, perm := range tables.pnPerms {
				dest := node.Permute(p)
				back := dest.row.Permuted(inverse(perm))
				assert.True(t, back.Equal(node.row))
			}
		}
	})

	t.Run("pn sequence plus plain lead end equals leadhead", func(t *testing.T) {
		rounds := tables.Rounds()
		for _, composite := range tables.CompositeMethods() {
			node := rounds
			for i := 0; i < composite.leadLength-1; i++ {
				node = node.Permute(composite.pnPermNums[i])
			}
			// The final change of the lead takes the lead end to the
			// plain leadhead.
			last := node.row.Changed(composite.pn2.Change(2*composite.secondHalfLength - 1))
			assert.True(t, last.Equal(composite.leadhead), composite.abbrev)
			// And the lead-end permutation jumps there directly.
			assert.True(t, rounds.Permute(composite.leadPermNums[ring.CallPlain]).row.Equal(composite.leadhead), composite.abbrev)
		}
	})

	t.Run("prepareMethods is idempotent", func(t *testing.T) {
		before := len(tables.pnPerms)
		require.NoError(t, tables.PrepareMethods())
		assert.Equal(t, before, len(tables.pnPerms))
	})
}

func TestRegenOffsets(t *testing.T) {
	tables := testTables(t)
	installMethods(t, tables, "Cambridge")
	tables.PrepareRegenPtrs(true)

	rounds := tables.Rounds()
	assert.Equal(t, 0, rounds.RegenOffset(), "tenors home has no plain leads to run out")

	// Walking one plain lead from a tenors-home node leaves one fewer
	// lead to the next tenors-home state.
	cc := tables.CompositeMethods()[0]
	node := rounds.Permute(cc.leadPermNums[ring.CallPlain])
	if !node.IsTenorsHome() {
		want := -(7 - 1) // a 7-lead course, one lead in
		assert.Equal(t, want, node.RegenOffset())
	}

	tables.PrepareRegenPtrs(false)
	assert.Equal(t, 0, node.RegenOffset())
}

func TestLeadMusicCache(t *testing.T) {
	tables := testTables(t)
	installMethods(t, tables, "Cambridge", "Yorkshire")

	rounds := tables.Rounds()
	for _, composite := range tables.CompositeMethods() {
		// The cache must agree with a fresh count over the lead's rows.
		want := 0
		node := rounds
		for i := 0; i < composite.leadLength; i++ {
			want += int(node.Music())
			if i < composite.leadLength-1 {
				node = node.Permute(composite.pnPermNums[i])
			}
		}
		assert.Equal(t, int32(want), rounds.LeadMusic(composite.MethodIndex()), composite.abbrev)
	}
}
