// Copyright (C) 2025 The Elf Authors (elf@bronze-age.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package splice

import (
	"fmt"

	"github.com/cccbr/elf/pkg/ring"
)

// Node is the canonical handle for one of the 40320 rows on eight bells.
// It carries everything the inner search loops need as plain fields and
// array lookups: flags, the per-row music score, permutation links into
// the node table, the per-composite lead-music cache and the regeneration
// offset for the rotationally-sorted search.
type Node struct {
	row ring.Row
	num int32
	// Leadhead number, contiguous over leadhead nodes, -1 otherwise.
	leadheadNum int32
	music       int32
	// Multiplicative order of the row as a permutation: applying the row
	// to rounds nParts times returns rounds.
	nParts int32

	isLeadhead       bool
	isTenorsTogether bool
	isTenorsHome     bool
	isNicePartEnd    bool

	// perms maps a flat permutation id (place-notation perms first, then
	// leadhead perms) to the destination node.
	perms []*Node
	// leadMusic caches, per composite method index, the music of a whole
	// lead of that method rung from this leadhead.
	leadMusic []int32

	leadsToTenorsHome int32
	regenOffset       int32
}

func newNode(row ring.Row, num int32) *Node {
	n := &Node{
		row:         row.Clone(),
		num:         num,
		leadheadNum: -1,
	}
	n.isLeadhead = row.BellAt(1) == 1
	if n.isLeadhead {
		n.isTenorsTogether = row.IsTenorsTogether()
		n.isTenorsHome = row.IsTenorsHome()
		n.isNicePartEnd = row.IsPlainBobRow()
	}
	n.calcNParts()
	return n
}

// calcNParts repeatedly applies the row as a permutation to rounds until
// rounds returns; the count is the part multiplicity.
func (n *Node) calcNParts() {
	r := ring.NewRounds(n.row.Stage())
	for i := int32(1); ; i++ {
		r.Permute(n.row)
		if r.IsRounds() {
			n.nParts = i
			return
		}
	}
}

// Row returns the node's row. The returned slice must not be mutated.
func (n *Node) Row() ring.Row {
	return n.row
}

// Number returns the dense node id in [0, 40320).
func (n *Node) Number() int32 {
	return n.num
}

// LeadheadNumber returns the leadhead number in [0, 5040), or -1 for
// nodes whose row does not have the treble leading.
func (n *Node) LeadheadNumber() int32 {
	return n.leadheadNum
}

// Music returns the per-row music score.
func (n *Node) Music() int32 {
	return n.music
}

// NParts returns the part multiplicity of the row.
func (n *Node) NParts() int32 {
	return n.nParts
}

// IsLeadhead reports whether the treble leads in this row.
func (n *Node) IsLeadhead() bool {
	return n.isLeadhead
}

// IsTenorsTogether reports whether the tenors are in a coursing position.
func (n *Node) IsTenorsTogether() bool {
	return n.isTenorsTogether
}

// IsTenorsHome reports whether 7 and 8 are in their home positions.
func (n *Node) IsTenorsHome() bool {
	return n.isTenorsHome
}

// IsNicePartEnd reports whether the row qualifies as a nice part end.
func (n *Node) IsNicePartEnd() bool {
	return n.isNicePartEnd
}

// BellAt returns the bell at the given place 1..8.
func (n *Node) BellAt(place int) int {
	return n.row.BellAt(place)
}

// Permute follows the permutation link for the given flat perm id. Pure
// array lookup; the table must have been populated first.
func (n *Node) Permute(permID int) *Node {
	return n.perms[permID]
}

// LeadMusic returns the cached lead music for the given composite method
// index. Only valid on leadhead nodes after the lead-music pass.
func (n *Node) LeadMusic(methodIndex int) int32 {
	return n.leadMusic[methodIndex]
}

// RegenOffset returns the regeneration offset for the rotational sort:
// minus the number of plain leads needed from here to reach a
// tenors-home leadhead, or 0 when the sort restarts copying immediately.
func (n *Node) RegenOffset() int {
	return int(n.regenOffset)
}

// calcMusicScore recomputes the per-row music from the definitions.
func (n *Node) calcMusicScore(defs []Music) {
	n.music = int32(RowScore(defs, n.row))
}

// calcPermLinks resolves the destination node for every registered
// permutation, making Permute a pure lookup. It also resets the
// lead-music cache, whose entries depend on the method ordering.
func (n *Node) calcPermLinks(t *Tables, pnPerms, leadheadPerms []ring.Row) error {
	n.perms = make([]*Node, len(pnPerms)+len(leadheadPerms))
	scratch := make(ring.Row, n.row.Stage())
	link := func(i int, perm ring.Row) error {
		copy(scratch, n.row)
		scratch.Permute(perm)
		dest := t.Node(scratch)
		if dest == nil {
			return fmt.Errorf("node table has no entry for %s permuted by %s", n.row, perm)
		}
		n.perms[i] = dest
		return nil
	}
	for i, perm := range pnPerms {
		if err := link(i, perm); err != nil {
			return err
		}
	}
	for i, perm := range leadheadPerms {
		if err := link(len(pnPerms)+i, perm); err != nil {
			return err
		}
	}
	n.leadMusic = make([]int32, t.NCompositeMethods())
	return nil
}

// calcLeadMusic fills the lead-music cache entry for one composite.
func (n *Node) calcLeadMusic(m *Method) {
	n.leadMusic[m.methodIndex] = int32(m.LeadMusic(n))
}

// calcLeadsToTenorsHome counts the plain leads of the reference composite
// needed to bring the tenors home from this leadhead.
func (n *Node) calcLeadsToTenorsHome(m *Method) {
	count := int32(0)
	node := n
	for !node.isTenorsHome {
		node = node.Permute(m.leadPermNums[ring.CallPlain])
		count++
		if count > NLeadheads {
			// Unreachable tenors-home state; leave the walk terminated.
			count = 0
			break
		}
	}
	n.leadsToTenorsHome = count
}

// setRegenOffset primes the regeneration offset ahead of a search.
func (n *Node) setRegenOffset(tenorsTogether bool) {
	if tenorsTogether {
		n.regenOffset = -n.leadsToTenorsHome
	} else {
		n.regenOffset = 0
	}
}
