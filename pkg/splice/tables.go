// Copyright (C) 2025 The Elf Authors (elf@bronze-age.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package splice implements the half-lead spliced composing engine: the
// node graph over the 40320 rows of Major, the method and music tables,
// the composition buffer with its truth and rotation checks, and the
// rotationally-sorted depth-first search that enumerates, proves and
// scores compositions.
package splice

import (
	"fmt"

	"github.com/cccbr/elf/pkg/ring"
)

const (
	// NBells is the stage; the engine is hardwired to Major.
	NBells = 8
	// NNodes is 8! — one node per row.
	NNodes = 40320
	// NLeadheads is 7! — the number of rows with the treble leading.
	NLeadheads = 5040
)

// Tables calculates and holds the permutation and node tables that the
// search depends on. There are five build passes, all of which must be
// performed before a search can begin:
//
//  1. BuildNodeTable — once per process; does not depend on methods or
//     music. Creates the 40320 nodes and the separate leadhead and
//     tenors-together indexes.
//  2. PrepareMusic — whenever the music definitions change; recomputes
//     each node's per-row score.
//  3. PrepareMethods — whenever the methods change, even in order only.
//     Builds the composite method table and populates every node's
//     permutation links.
//  4. PrepareLeadMusic — whenever the methods OR the music change;
//     fills the per-composite lead-music caches on leadhead nodes.
//  5. PrepareRegenPtrs — before every search; primes the regeneration
//     offsets for the rotational sort. Too quick to track.
//
// The long passes report progress and honour aborts via the embedded
// Tracker.
type Tables struct {
	*Tracker

	methods    []*Method
	composites []*Method
	music      []Music

	byRow    map[string]*Node
	nodes    []*Node
	leads    []*Node
	ttLeads  []*Node

	pnPerms     []ring.Row
	pnPermIndex map[string]int
	lhPerms     []ring.Row
	lhPermIndex map[string]int

	methodsDirty   bool
	musicDirty     bool
	leadMusicDirty bool
	built          bool
}

// NewTables creates an empty table set with the default music.
func NewTables() *Tables {
	return &Tables{
		Tracker:        NewTracker(100, "Building tables"),
		music:          DefaultMusic(),
		pnPermIndex:    map[string]int{},
		lhPermIndex:    map[string]int{},
		methodsDirty:   true,
		musicDirty:     true,
		leadMusicDirty: true,
	}
}

// NNodes returns the number of nodes built.
func (t *Tables) NNodes() int { return len(t.nodes) }

// NLeadheadNodes returns the number of leadhead nodes.
func (t *Tables) NLeadheadNodes() int { return len(t.leads) }

// Node looks up the canonical node for a row, or nil if the table has
// not been built.
func (t *Tables) Node(row ring.Row) *Node {
	return t.byRow[string(row)]
}

// NodeByNumber returns the node with the given dense id.
func (t *Tables) NodeByNumber(num int32) *Node {
	return t.nodes[num]
}

// Rounds returns the node for rounds.
func (t *Tables) Rounds() *Node {
	return t.Node(ring.NewRounds(NBells))
}

// IsBuilt reports whether the one-time node table pass has completed.
func (t *Tables) IsBuilt() bool { return t.built }

// NMethods returns the number of single methods installed.
func (t *Tables) NMethods() int { return len(t.methods) }

// Methods returns the installed single methods.
func (t *Tables) Methods() []*Method { return t.methods }

// NCompositeMethods returns the size of the composite table.
func (t *Tables) NCompositeMethods() int { return len(t.composites) }

// CompositeMethods returns the composite method table, one entry per
// ordered pair of installed methods.
func (t *Tables) CompositeMethods() []*Method { return t.composites }

// SetMethods installs the methods to splice. The order matters: table
// entries are keyed by method index.
func (t *Tables) SetMethods(methods []*Method) {
	t.methods = methods
	t.methodsDirty = true
	t.leadMusicDirty = true
}

// SetMusic installs the music definitions.
func (t *Tables) SetMusic(defs []Music) {
	t.music = defs
	t.musicDirty = true
	t.leadMusicDirty = true
}

// addPNPerm registers a place-notation permutation, deduplicating
// globally, and returns its id.
func (t *Tables) addPNPerm(perm ring.Row) int {
	key := string(perm)
	if i, ok := t.pnPermIndex[key]; ok {
		return i
	}
	i := len(t.pnPerms)
	t.pnPerms = append(t.pnPerms, perm)
	t.pnPermIndex[key] = i
	return i
}

// addLeadheadPerm registers a lead-end permutation and returns its id,
// which must later be rebased past the place-notation perm count.
func (t *Tables) addLeadheadPerm(perm ring.Row) int {
	key := string(perm)
	if i, ok := t.lhPermIndex[key]; ok {
		return i
	}
	i := len(t.lhPerms)
	t.lhPerms = append(t.lhPerms, perm)
	t.lhPermIndex[key] = i
	return i
}

func (t *Tables) nPNPerms() int { return len(t.pnPerms) }

// BuildNodeTable performs the one-time pass creating every node by
// exhaustive generation. Leadhead and tenors-together nodes are numbered
// and indexed as they are created. Aborting leaves the tables unbuilt.
func (t *Tables) BuildNodeTable() {
	if t.byRow != nil {
		return
	}
	t.SetTotalDuration(NNodes)
	t.SetProgress(0)
	t.SetJobName("Building node table")

	t.byRow = make(map[string]*Node, NNodes)
	t.nodes = make([]*Node, 0, NNodes)
	t.leads = make([]*Node, 0, NLeadheads)
	t.ttLeads = make([]*Node, 0, 120*NBells)
	t.generateNodes(ring.NewRounds(NBells), 1)
	if t.Aborted() {
		t.byRow = nil
		t.nodes = nil
		t.leads = nil
		t.ttLeads = nil
		return
	}
	t.built = true
	t.musicDirty = false
}

// generateNodes visits every permutation of the row positions n..NBells
// by swapping, creating a node for each complete row.
func (t *Tables) generateNodes(row ring.Row, n int) {
	if t.Aborted() {
		return
	}
	if n >= NBells {
		node := newNode(row, int32(len(t.nodes)))
		node.calcMusicScore(t.music)
		t.nodes = append(t.nodes, node)
		t.byRow[string(node.row)] = node
		if node.isLeadhead {
			node.leadheadNum = int32(len(t.leads))
			t.leads = append(t.leads, node)
			if node.isTenorsTogether {
				t.ttLeads = append(t.ttLeads, node)
			}
		}
		t.SetProgress(len(t.nodes))
		return
	}
	t.generateNodes(row, n+1)
	for i := n + 1; i <= NBells; i++ {
		row.Swap(n, i)
		t.generateNodes(row, n+1)
		row.Swap(n, i)
	}
}

// PrepareMusic recomputes every node's per-row score. Must be called
// whenever the music definitions change.
func (t *Tables) PrepareMusic() {
	t.SetJobName("Preparing music")
	t.SetProgress(0)
	t.SetTotalDuration(t.NNodes())
	if t.musicDirty {
		for i, node := range t.nodes {
			if t.Aborted() {
				return
			}
			node.calcMusicScore(t.music)
			t.SetProgress(i + 1)
		}
		t.musicDirty = false
	}
	t.SetProgress(t.NNodes())
}

// PrepareMethods builds the composite method table and populates the
// node permutation links. Must be called whenever the method list
// changes — even a reorder, since the tables are keyed by method index.
func (t *Tables) PrepareMethods() error {
	t.SetJobName("Preparing methods")
	t.SetProgress(0)
	if !t.methodsDirty {
		return nil
	}
	n := len(t.methods)
	t.composites = make([]*Method, n*n)
	for i, m := range t.methods {
		m.setMethodIndex(i)
	}
	for i := 0; i < n; i++ {
		k := i * n
		for j := 0; j < n; j++ {
			t.composites[k+j] = newComposite(t.methods[i], t.methods[j], k+j)
			t.composites[k+j].calcPerms(t)
		}
	}
	for _, c := range t.composites {
		c.updateLeadPerms(t)
	}

	if err := t.populateNodeTable(); err != nil {
		return err
	}
	if t.Aborted() {
		return nil
	}
	for _, node := range t.ttLeads {
		node.calcLeadsToTenorsHome(t.composites[0])
	}
	t.methodsDirty = false
	return nil
}

// populateNodeTable resolves every node's permutation links. A missing
// destination means the table is not closed under some permutation,
// which is fatal.
func (t *Tables) populateNodeTable() error {
	t.SetTotalDuration(t.NNodes())
	t.SetProgress(0)
	for i, node := range t.nodes {
		if t.Aborted() {
			return nil
		}
		if err := node.calcPermLinks(t, t.pnPerms, t.lhPerms); err != nil {
			msg := fmt.Sprintf("fatal error building node table: %v", err)
			t.SetError(msg)
			return fmt.Errorf("%s", msg)
		}
		t.SetProgress(i + 1)
	}
	return nil
}

// PrepareLeadMusic precalculates the lead music counts on every leadhead
// node. Must be called whenever the music or the methods change. Only
// composite methods get entries; the original single methods are never
// rung by the search.
func (t *Tables) PrepareLeadMusic() {
	t.SetJobName("Building tables")
	t.SetTotalDuration(len(t.composites))
	t.SetProgress(0)
	if !t.leadMusicDirty {
		return
	}
	for m, method := range t.composites {
		if t.Aborted() {
			return
		}
		for _, lead := range t.leads {
			lead.calcLeadMusic(method)
		}
		t.SetProgress(m + 1)
	}
	t.leadMusicDirty = false
}

// PrepareRegenPtrs primes the regeneration offsets on tenors-together
// nodes. Must be called before every search; takes well under a
// millisecond.
func (t *Tables) PrepareRegenPtrs(tenorsTogether bool) {
	for _, node := range t.ttLeads {
		node.setRegenOffset(tenorsTogether)
	}
}
