// Copyright (C) 2025 The Elf Authors (elf@bronze-age.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package splice

import "fmt"

// Lead is one lead of a composition: a starting leadhead node, the
// composite method rung, the call at the lead end, and the resulting
// last row.
type Lead struct {
	start  *Node
	method *Method
	call   int
	last   *Node
}

// set records the lead and resolves its last row through the lead-end
// permutation for the call.
func (l *Lead) set(start *Node, method *Method, call int) {
	l.start = start
	l.method = method
	l.call = call
	l.last = start.perms[method.leadPermNums[call]]
}

// Method returns the composite method rung in this lead.
func (l *Lead) Method() *Method { return l.method }

// Call returns the call made at the lead end.
func (l *Lead) Call() int { return l.call }

// LastRow returns the node of the row ending the lead.
func (l *Lead) LastRow() *Node { return l.last }

// Composition holds the leads of a spliced composition as it is
// generated, along with running changes-of-method and length counts, and
// is home to the truth, rotation and music analysis. One instance is
// reused, mutated in place, for an entire search.
type Composition struct {
	nParts       int
	leadsPerPart int
	methods      []*Method
	// tenorsHomePE is set when the tenors must also be home at the part
	// end; with neither it nor nicePartEnds set every rotation is good.
	tenorsHomePE bool
	nicePartEnds bool
	allRotsGood  bool

	coms   []int
	length []int
	leads  []*Lead

	partEnd  *Node
	firstRot int
	tables   *Tables

	truthTable []bool
	rowNumBuf  []int32

	rounds            *Node
	bestRot           int
	firstPartFalseLead int

	// Cached results of the last checked candidate.
	music     int
	balance   int
	unbalance int
}

// NewComposition allocates the reusable composition buffer for a search
// of nleads leads per part.
func NewComposition(methods []*Method, tables *Tables, nleads int, tenorsHomePE, nicePE bool) *Composition {
	c := &Composition{
		methods:      methods,
		tables:       tables,
		leadsPerPart: nleads,
		tenorsHomePE: tenorsHomePE,
		nicePartEnds: nicePE,
		allRotsGood:  !tenorsHomePE && !nicePE,
		coms:         make([]int, nleads),
		length:       make([]int, nleads),
		leads:        make([]*Lead, nleads),
		truthTable:   make([]bool, tables.NNodes()),
		rounds:       tables.Rounds(),
	}
	for i := range c.leads {
		c.leads[i] = &Lead{}
	}
	maxLead := 0
	for _, m := range methods {
		if l := m.RowsInFirstHalf() + m.RowsInSecondHalf(); l > maxLead {
			maxLead = l
		}
	}
	c.rowNumBuf = make([]int32, maxLead)
	return c
}

// NLeadsPerPart returns the number of leads in a part.
func (c *Composition) NLeadsPerPart() int { return c.leadsPerPart }

// Lead returns the lead at slot n.
func (c *Composition) Lead(n int) *Lead { return c.leads[n] }

// SetLead records a lead at slot n and returns its last row. The running
// COM count includes the boundary against the previous lead when the
// first half method differs from its second half.
func (c *Composition) SetLead(n int, start *Node, composite *Method, call int) *Node {
	lead := c.leads[n]
	lead.set(start, composite, call)
	if n == 0 {
		c.coms[n] = composite.com
		c.length[n] = composite.leadLength
	} else {
		c.coms[n] = c.coms[n-1] + composite.com
		if composite.index1 != c.leads[n-1].method.index2 {
			c.coms[n]++
		}
		c.length[n] = c.length[n-1] + composite.leadLength
	}
	return lead.last
}

// COMAt returns the changes of method up to and including the given lead
// (not counting the end-start wraparound).
func (c *Composition) COMAt(lead int) int { return c.coms[lead] }

// PartLength returns the length of the part up to and including the
// given lead.
func (c *Composition) PartLength(lead int) int { return c.length[lead] }

// COM returns the changes of method per part, including the wraparound
// boundary between the last lead and the first.
func (c *Composition) COM() int {
	n := c.leadsPerPart
	com := c.coms[n-1]
	if c.leads[0].method.index1 != c.leads[n-1].method.index2 {
		com++
	}
	return com
}

// NParts computes the part multiplicity of the current part end, caching
// the part-end node for the rotation checks that follow.
func (c *Composition) NParts() int {
	c.partEnd = c.leads[c.leadsPerPart-1].last
	c.nParts = int(c.partEnd.nParts)
	return c.nParts
}

// BestRot returns the rotation holding the best music found by the last
// CalcMusicRots call.
func (c *Composition) BestRot() int { return c.bestRot }

// FirstPartFalseLead returns the lead at which the composition went
// false in the first part, or -1. Used to backtrack the search past
// false prefixes.
func (c *Composition) FirstPartFalseLead() int { return c.firstPartFalseLead }

// CheckRots reports whether at least one rotation of the composition has
// an acceptable part end, recording the first such rotation.
func (c *Composition) CheckRots() bool {
	if c.allRotsGood {
		c.firstRot = 0
		return true
	}
	if (!c.tenorsHomePE || c.partEnd.isTenorsHome) && (!c.nicePartEnds || c.partEnd.isNicePartEnd) {
		c.firstRot = 0
		return true
	}
	for c.firstRot = 1; c.firstRot < c.leadsPerPart; c.firstRot++ {
		if c.isGoodRotPartEnd(c.firstRot) {
			return true
		}
	}
	return false
}

// isGoodRotPartEnd reports whether the rotation starting from lead rot
// has an acceptable part end. rot must be greater than zero and at least
// one of the part-end policies must be in force.
func (c *Composition) isGoodRotPartEnd(rot int) bool {
	// Fast tenors-home test: the bells occupying 7ths and 8ths place at
	// the rotation's starting row must be fixed points of the unrotated
	// part end.
	if c.tenorsHomePE {
		rotStart := c.leads[rot-1].last
		bellInSevenths := rotStart.BellAt(NBells - 1)
		bellInEighths := rotStart.BellAt(NBells)
		if c.partEnd.BellAt(bellInSevenths) != bellInSevenths || c.partEnd.BellAt(bellInEighths) != bellInEighths {
			return false
		}
	}
	// Nice part ends need the actual rotated part end. Stepping through
	// every lead with permutation numbers beats computing a permutation
	// from the intermediate row.
	if c.nicePartEnds {
		partEnd := c.rounds
		j := rot
		for i := 0; i < c.leadsPerPart; i++ {
			lead := c.leads[j]
			partEnd = partEnd.perms[lead.method.leadPermNums[lead.call]]
			if j++; j >= c.leadsPerPart {
				j = 0
			}
		}
		return partEnd.isNicePartEnd
	}
	return true
}

// CalcMusicRots checks all acceptable rotations for music. As soon as a
// rotation beats minMusic the composition is proved; a false first part
// returns -1 so the search can backtrack, any other falseness or an
// all-rotations miss returns 0, otherwise the best rotation's music.
func (c *Composition) CalcMusicRots(minMusic int) int {
	c.nParts = int(c.leads[c.leadsPerPart-1].last.nParts)
	c.music = 0
	rot := c.firstRot
	music := c.calcMusic(rot)
	for {
		if music > minMusic {
			// Prove at the first rotation with good music; if the
			// composition is false there is no point scoring the rest.
			if c.music == 0 && !c.IsTrue() {
				if c.firstPartFalseLead >= 0 {
					return -1
				}
				return 0
			}
			if music > c.music {
				c.music = music
				c.bestRot = rot
			}
		}
		if c.allRotsGood {
			if rot++; rot >= c.leadsPerPart {
				return c.music
			}
		} else {
			for {
				if rot++; rot >= c.leadsPerPart {
					return c.music
				}
				if c.isGoodRotPartEnd(rot) {
					break
				}
			}
		}
		music = c.calcMusic(rot)
	}
}

// calcMusic totals the music of the whole composition rung from the
// given rotation, one lead-music lookup per lead.
func (c *Composition) calcMusic(rot int) int {
	music := 0
	node := c.rounds
	j := rot
	for part := 0; part < c.nParts; part++ {
		for i := 0; i < c.leadsPerPart; i++ {
			lead := c.leads[j]
			method := lead.method
			music += int(node.leadMusic[method.methodIndex])
			node = node.perms[method.leadPermNums[lead.call]]
			if j++; j >= c.leadsPerPart {
				j = 0
			}
		}
	}
	return music
}

// Music returns the music of the best rotation found by CalcMusicRots.
func (c *Composition) Music() int { return c.music }

// SetBalance records the method balance of the current candidate; called
// by the composer whenever a candidate is checked.
func (c *Composition) SetBalance(balance, unbalanceCount int) {
	c.balance = balance
	c.unbalance = unbalanceCount
}

// Balance returns the balance recorded by SetBalance.
func (c *Composition) Balance() int { return c.balance }

// UnbalanceCount returns the unbalance count recorded by SetBalance.
func (c *Composition) UnbalanceCount() int { return c.unbalance }

// IsTrue proves the composition. By symmetry of the part-end group only
// one more than half the parts need be generated. A repeat in the first
// part is recorded so the search can prune the false prefix.
func (c *Composition) IsTrue() bool {
	clear(c.truthTable)
	node := c.rounds
	partsToCheck := (c.nParts + 2) / 2
	rows := c.rowNumBuf
	c.firstPartFalseLead = -1
	for part := 0; part < partsToCheck; part++ {
		for i := 0; i < c.leadsPerPart; i++ {
			lead := c.leads[i]
			method := lead.method
			method.GenerateLead(node, rows)
			for k := method.leadLength - 1; k >= 0; k-- {
				nodeNum := rows[k]
				if c.truthTable[nodeNum] {
					if part == 0 {
						c.firstPartFalseLead = i
					}
					return false
				}
				c.truthTable[nodeNum] = true
			}
			node = node.perms[method.leadPermNums[lead.call]]
		}
	}
	return true
}

// BuildOutput produces an immutable snapshot of the best rotation of the
// current composition.
func (c *Composition) BuildOutput(score int, lhOnly bool) *OutputComp {
	length := 0
	for i := 0; i < c.leadsPerPart; i++ {
		length += c.leads[i].method.leadLength
	}
	length *= c.nParts
	title := fmt.Sprintf("%d %d-spliced", length, len(c.methods))
	return newOutputComp(title, c, score, c.rounds, lhOnly)
}
