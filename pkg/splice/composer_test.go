// Copyright (C) 2025 The Elf Authors (elf@bronze-age.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package splice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runWithDeadline composes on a worker goroutine, aborting if the
// search outlasts the deadline. Returns true if the search ran to
// completion unaided.
func runWithDeadline(t *testing.T, c *Composer, host Host, deadline time.Duration) bool {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Compose(host)
	}()
	timer := time.AfterFunc(deadline, c.Abort)
	defer timer.Stop()
	select {
	case <-done:
	case <-time.After(deadline + 5*time.Second):
		t.Fatal("composer did not respond to abort")
	}
	return !c.Aborted()
}

func TestOneSplicedPlainCourse(t *testing.T) {
	tables := testTables(t)
	installMethods(t, tables, "Cambridge")
	// Guarantee nonzero music so the plain course is worth emitting.
	tables.SetMusic(append(DefaultMusic(), Music{Name: "Treble lead", Score: 1, Patterns: []string{"1xxxxxxx"}}))
	tables.PrepareMusic()
	tables.PrepareLeadMusic()

	c := NewComposer(tables, 1, 7, true, true, false, false, 0)
	coll := NewCollector(10, c)
	finished := runWithDeadline(t, c, coll, 30*time.Second)
	require.True(t, finished, "a 1-spliced search must terminate almost instantly")

	comps := coll.Comps()
	require.NotEmpty(t, comps, "the plain course must be found")
	for _, comp := range comps {
		assert.Equal(t, 0, comp.COM)
		assert.GreaterOrEqual(t, comp.Music, 0)
		assert.Equal(t, 7, comp.NParts)
		assert.Equal(t, "224 1-spliced", comp.Title)
		assert.Len(t, comp.Leads, 1)
		assert.Equal(t, "CC", comp.Leads[0].Abbrev)
	}
	assert.Equal(t, coll.Comps()[0].Score, c.BestScore())
}

func TestTwoSplicedATWBalance(t *testing.T) {
	if testing.Short() {
		t.Skip("real search")
	}
	tables := testTables(t)
	installMethods(t, tables, "Cambridge", "Yorkshire")

	c := NewComposer(tables, 8, 5, true, false, true, false, 1)
	coll := NewCollector(10, c)
	runWithDeadline(t, c, coll, 10*time.Second)

	// Optimum balance over 8 leads of 2 methods forces 4+4 in each
	// half, which reports as 100%.
	for _, comp := range coll.Comps() {
		assert.Equal(t, 100, comp.Balance, comp.Title)
		assert.Equal(t, 5, comp.NParts)
		counts := map[byte]int{}
		for _, lead := range comp.Leads {
			counts[lead.Abbrev[0]]++
			counts[lead.Abbrev[1]]++
		}
		assert.Equal(t, 8, counts['C'])
		assert.Equal(t, 8, counts['Y'])
	}
}

func TestLeadheadOnlySearch(t *testing.T) {
	if testing.Short() {
		t.Skip("real search")
	}
	tables := testTables(t)
	installMethods(t, tables, "Cambridge", "Yorkshire", "Lincolnshire", "Superlative", "Uxbridge")

	c := NewComposer(tables, 8, 5, true, false, false, true, 1)
	c.SetMinCOM(5)
	c.SetMinScore(1)
	coll := NewCollector(10, c)
	runWithDeadline(t, c, coll, 10*time.Second)

	for _, comp := range coll.Comps() {
		assert.True(t, comp.LHOnly)
		assert.GreaterOrEqual(t, comp.COM, 5)
		assert.GreaterOrEqual(t, comp.Music, 1)
		for _, lead := range comp.Leads {
			assert.Len(t, lead.Abbrev, 2, "leadhead-only rings same-halves composites")
			assert.Equal(t, lead.Abbrev[0], lead.Abbrev[1])
		}
	}
}

func TestSetStartComp(t *testing.T) {
	tables := testTables(t)
	installMethods(t, tables, "Cambridge", "Yorkshire")

	t.Run("half-lead seed", func(t *testing.T) {
		c := NewComposer(tables, 8, 5, true, false, false, false, 1)
		require.NoError(t, c.SetStartComp("CC YC"))
		// Composite indices: C=0, Y=1 over 2 methods.
		assert.Equal(t, 0, c.methodIndices[0]) // C*2+C
		assert.Equal(t, 2, c.methodIndices[1]) // Y*2+C
		assert.Equal(t, 0, c.callIndices[0])
		assert.Equal(t, 0, c.callIndices[1])
	})

	t.Run("call markers", func(t *testing.T) {
		c := NewComposer(tables, 8, 5, true, false, false, false, 2)
		require.NoError(t, c.SetStartComp("CY- YCs"))
		assert.Equal(t, 1, c.methodIndices[0])
		assert.Equal(t, 1, c.callIndices[0])
		assert.Equal(t, 2, c.methodIndices[1])
		assert.Equal(t, 2, c.callIndices[1])
	})

	t.Run("leadhead-only seed", func(t *testing.T) {
		c := NewComposer(tables, 8, 5, true, false, false, true, 1)
		require.NoError(t, c.SetStartComp("C Y- C"))
		assert.Equal(t, []int{0, 1, 0}, c.methodIndices[:3])
		assert.Equal(t, []int{0, 1, 0}, c.callIndices[:3])
	})

	t.Run("unknown abbreviation", func(t *testing.T) {
		c := NewComposer(tables, 8, 5, true, false, false, false, 1)
		assert.Error(t, c.SetStartComp("CQ"))
	})
}

func TestAbortMidSearch(t *testing.T) {
	tables := testTables(t)
	installMethods(t, tables, "Cambridge", "Yorkshire")

	c := NewComposer(tables, 8, 5, false, false, false, false, 2)
	coll := NewCollector(10, c)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Compose(coll)
	}()
	time.Sleep(200 * time.Millisecond)
	c.Abort()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not exit after abort")
	}
	assert.True(t, c.Aborted())
	assert.False(t, c.IsComposing())

	// The top-K buffer stays consistent with whatever was emitted.
	comps := coll.Comps()
	assert.LessOrEqual(t, len(comps), 10)
	for i := 1; i < len(comps); i++ {
		assert.GreaterOrEqual(t, comps[i-1].Score, comps[i].Score)
	}
}

func TestPauseResume(t *testing.T) {
	tables := testTables(t)
	installMethods(t, tables, "Cambridge", "Yorkshire")

	c := NewComposer(tables, 8, 5, false, false, false, false, 2)
	coll := NewCollector(10, c)
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Compose(coll)
	}()
	time.Sleep(100 * time.Millisecond)
	c.Pause()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, ">paused<", c.EstimateTimeLeft())
	nodes := c.NNodes()
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, nodes, c.NNodes(), "no progress while paused")
	c.Resume()
	time.Sleep(100 * time.Millisecond)
	c.Abort()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not exit")
	}
}

func TestProgressRatios(t *testing.T) {
	tables := testTables(t)
	installMethods(t, tables, "Cambridge", "Yorkshire")

	c := NewComposer(tables, 8, 5, true, false, false, false, 0)
	c.composites = tables.CompositeMethods()
	c.nCompMethods = len(c.composites)
	c.calcProgressRatios()

	sum := 0.0
	for _, r := range c.progressRatios {
		assert.GreaterOrEqual(t, r, 0.0)
		sum += r
	}
	assert.InDelta(t, 1.0, sum, 1e-9, "ratios normalise to one")
	assert.Equal(t, 0.0, c.progressCumulatives[0])
	for i := 1; i < len(c.progressCumulatives); i++ {
		assert.GreaterOrEqual(t, c.progressCumulatives[i], c.progressCumulatives[i-1])
	}
}

func TestRepeatLimits(t *testing.T) {
	tables := testTables(t)
	installMethods(t, tables, "Cambridge", "Yorkshire")

	t.Run("atw limits", func(t *testing.T) {
		c := NewComposer(tables, 8, 5, true, false, true, false, 0)
		assert.Equal(t, int32(4), c.methodRepeatLimit.Load())
		assert.Equal(t, int32(2), c.maxMethodsAtRepeatLimit.Load())
	})

	t.Run("unrestricted limits", func(t *testing.T) {
		c := NewComposer(tables, 8, 5, true, false, false, false, 0)
		assert.Equal(t, int32(8), c.methodRepeatLimit.Load())
		assert.Equal(t, int32(2), c.maxMethodsAtRepeatLimit.Load())
	})

	t.Run("heuristic feedback", func(t *testing.T) {
		c := NewComposer(tables, 8, 5, true, false, false, false, 0)
		// Unbalance above nMethods pins the plain repeat limit.
		c.SetRepeatLimits(5)
		assert.Equal(t, int32(3), c.methodRepeatLimit.Load())
		assert.Equal(t, int32(2), c.maxMethodsAtRepeatLimit.Load())
		// At or below nMethods it bounds the count at the minimum.
		c.SetRepeatLimits(1)
		assert.Equal(t, int32(5), c.methodRepeatLimit.Load())
		assert.Equal(t, int32(1), c.maxMethodsAtRepeatLimit.Load())
		// Zero resets to every method allowed at the limit.
		c.SetRepeatLimits(0)
		assert.Equal(t, int32(4), c.methodRepeatLimit.Load())
		assert.Equal(t, int32(2), c.maxMethodsAtRepeatLimit.Load())
	})
}
