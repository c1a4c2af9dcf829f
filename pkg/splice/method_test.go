// Copyright (C) 2025 The Elf Authors (elf@bronze-age.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package splice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cccbr/elf/pkg/ring"
)

func TestNewMethod(t *testing.T) {
	m, err := StandardMethod("Cambridge")
	require.NoError(t, err)

	assert.Equal(t, "Cambridge", m.Name())
	assert.Equal(t, "C", m.Abbrev())
	assert.Equal(t, 32, m.LeadLength())
	assert.Equal(t, 16, m.RowsInFirstHalf())
	assert.Equal(t, 16, m.RowsInSecondHalf())
	assert.Equal(t, 0, m.COM())

	t.Run("treble paths", func(t *testing.T) {
		assert.Equal(t, 1, m.Leadhead().BellAt(1), "treble must lead at the leadhead")
		assert.Equal(t, 1, m.Halflead().BellAt(NBells), "treble must lie behind at the halflead")
	})

	t.Run("plain course has seven leads", func(t *testing.T) {
		r := ring.NewRounds(NBells)
		leads := 0
		for {
			r = r.Permuted(m.Leadhead())
			leads++
			if r.IsRounds() {
				break
			}
			require.Less(t, leads, 8)
		}
		assert.Equal(t, 7, leads)
	})

	t.Run("default abbreviation is the first letter", func(t *testing.T) {
		y, err := StandardMethod("Yorkshire")
		require.NoError(t, err)
		assert.Equal(t, "Y", y.Abbrev())
		n, err := StandardMethod("Lincolnshire")
		require.NoError(t, err)
		assert.Equal(t, "N", n.Abbrev())
	})
}

func TestCallEnds(t *testing.T) {
	m, err := StandardMethod("Cambridge")
	require.NoError(t, err)

	plain := m.callEnds[ring.CallPlain]
	bob := m.callEnds[ring.CallBob]
	single := m.callEnds[ring.CallSingle]

	assert.True(t, plain.Equal(m.Leadhead()))
	assert.False(t, bob.Equal(plain))
	assert.False(t, single.Equal(plain))
	assert.False(t, single.Equal(bob))

	// Calls keep the treble leading.
	assert.Equal(t, 1, bob.BellAt(1))
	assert.Equal(t, 1, single.BellAt(1))
}

func TestComposite(t *testing.T) {
	cam, err := StandardMethod("Cambridge")
	require.NoError(t, err)
	yor, err := StandardMethod("Yorkshire")
	require.NoError(t, err)
	cam.setMethodIndex(0)
	yor.setMethodIndex(1)

	cy := newComposite(cam, yor, 1)
	assert.Equal(t, "CY", cy.Abbrev())
	assert.Equal(t, "Cambridge/Yorkshire", cy.Name())
	assert.Equal(t, 1, cy.COM())
	assert.Equal(t, 0, cy.index1)
	assert.Equal(t, 1, cy.index2)
	assert.Equal(t, 32, cy.LeadLength())

	cc := newComposite(cam, cam, 0)
	assert.Equal(t, 0, cc.COM())
	assert.True(t, cc.Leadhead().Equal(cam.Leadhead()),
		"same-halves composite rings the original method")

	// The composite's first half is Cambridge's: the halflead matches
	// Cambridge's halflead.
	assert.True(t, cy.Halflead().Equal(cam.Halflead()))
	assert.False(t, cy.Leadhead().Equal(cam.Leadhead()),
		"Yorkshire's second half produces a different leadhead")
}

func TestGenerateLead(t *testing.T) {
	tables := testTables(t)
	installMethods(t, tables, "Cambridge", "Yorkshire")

	rounds := tables.Rounds()
	for _, composite := range tables.CompositeMethods() {
		rows := make([]int32, composite.LeadLength())
		composite.GenerateLead(rounds, rows)
		assert.Equal(t, rounds.Number(), rows[0])
		seen := map[int32]bool{}
		for _, n := range rows {
			assert.False(t, seen[n], "%s repeats a row in its first lead", composite.abbrev)
			seen[n] = true
		}
	}
}
