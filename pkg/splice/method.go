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

// NCallTypes is the number of call kinds: plain, bob, single.
const NCallTypes = 3

// The assumed calls: a 4th's-place bob and a 1234 single.
var (
	bobChange    = mustChange("14")
	singleChange = mustChange("1234")
)

func mustChange(pn string) ring.Change {
	p, err := ring.ParsePlaceNotation(pn)
	if err != nil {
		panic(err)
	}
	return p.Change(0)
}

// Method holds a method's name, abbreviation, place notation and
// leadhead, together with the table permutation numbers that let the
// search generate leads and count music without touching rows.
//
// A composite method carries the first-half place notation of one method
// and the second half of another, with a two-letter abbreviation such as
// "CY". The search only ever rings composites; the original single
// methods exist to be combined.
type Method struct {
	methodIndex int
	// Single-method indices of the two halves; equal for non-composites.
	index1 int
	index2 int

	name   string
	abbrev string
	pn     *ring.PlaceNotation
	pn2    *ring.PlaceNotation

	firstHalfLength  int
	secondHalfLength int
	leadLength       int

	halflead ring.Row
	leadhead ring.Row
	// Rows reached from the halflead by the plain, bobbed and singled
	// lead ends.
	callEnds [NCallTypes]ring.Row

	// Table permutation ids for each change of the lead, and for the
	// three lead ends. Lead-end ids are only valid after
	// updateLeadPerms has rebased them past the place-notation perms.
	pnPermNums   []int
	leadPermNums [NCallTypes]int

	// com is 1 when the two halves are different methods.
	com int
}

// NewMethod parses a symmetric place notation and builds a method. The
// abbreviation should be a single letter; pass the empty string to
// default to the first letter of the name.
func NewMethod(name, abbrev, notation string) (*Method, error) {
	if abbrev == "" {
		if name == "" {
			return nil, fmt.Errorf("the method must be given a name")
		}
		abbrev = name[:1]
	}
	pn, err := ring.ParsePlaceNotation(notation)
	if err != nil {
		return nil, err
	}
	m := &Method{name: name, abbrev: abbrev}
	m.init(pn, pn)
	return m, nil
}

// newComposite builds the composite with m1's first half and m2's second
// half. The method indices of m1 and m2 must already be set.
func newComposite(m1, m2 *Method, index int) *Method {
	m := &Method{
		methodIndex: index,
		index1:      m1.methodIndex,
		index2:      m2.methodIndex,
		name:        m1.name + "/" + m2.name,
		abbrev:      m1.abbrev + m2.abbrev,
	}
	if m.index1 != m.index2 {
		m.com = 1
	}
	m.init(m1.pn, m2.pn)
	return m
}

// init derives the halflead, leadhead and call-end rows by ringing the
// lead from rounds.
func (m *Method) init(pn1, pn2 *ring.PlaceNotation) {
	m.pn = pn1
	m.pn2 = pn2
	m.firstHalfLength = pn1.Len() / 2
	m.secondHalfLength = pn2.Len() / 2
	m.leadLength = m.firstHalfLength + m.secondHalfLength

	r := ring.NewRounds(NBells)
	for i := 0; i < m.firstHalfLength; i++ {
		r = r.Changed(pn1.Change(i))
	}
	m.halflead = r
	for i := 0; i < m.secondHalfLength-1; i++ {
		r = r.Changed(pn2.Change(i + m.secondHalfLength))
	}
	leadEnd := pn2.Change(2*m.secondHalfLength - 1)
	m.leadhead = r.Changed(leadEnd)
	m.callEnds[ring.CallPlain] = r.Changed(leadEnd)
	m.callEnds[ring.CallBob] = r.Changed(bobChange)
	m.callEnds[ring.CallSingle] = r.Changed(singleChange)
}

// Name returns the full method name (both names for composites).
func (m *Method) Name() string { return m.name }

// Abbrev returns the abbreviation, one letter per half.
func (m *Method) Abbrev() string { return m.abbrev }

// PN returns the first-half place notation.
func (m *Method) PN() *ring.PlaceNotation { return m.pn }

// MethodIndex returns the index within the method or composite table.
func (m *Method) MethodIndex() int { return m.methodIndex }

// setMethodIndex numbers a single (non-composite) method.
func (m *Method) setMethodIndex(i int) {
	m.methodIndex = i
	m.index1 = i
	m.index2 = i
}

// LeadLength returns the number of rows in one lead.
func (m *Method) LeadLength() int { return m.leadLength }

// RowsInFirstHalf returns the first half-lead length.
func (m *Method) RowsInFirstHalf() int { return m.firstHalfLength }

// RowsInSecondHalf returns the second half-lead length.
func (m *Method) RowsInSecondHalf() int { return m.secondHalfLength }

// Leadhead returns the plain leadhead row.
func (m *Method) Leadhead() ring.Row { return m.leadhead }

// Halflead returns the halflead row.
func (m *Method) Halflead() ring.Row { return m.halflead }

// COM returns 1 if the composite is made of two different half-leads.
func (m *Method) COM() int { return m.com }

// LeadPermNum returns the table id of the lead-end permutation for the
// given call.
func (m *Method) LeadPermNum(call int) int { return m.leadPermNums[call] }

// Equal treats methods with equal names as the same method.
func (m *Method) Equal(o *Method) bool {
	return o != nil && m.name == o.name
}

// LeadMusic counts the music in one lead rung from the given leadhead,
// up to but not including the following leadhead.
func (m *Method) LeadMusic(start *Node) int {
	score := int(start.music)
	r := start
	for i := 0; i < m.leadLength-1; i++ {
		r = r.perms[m.pnPermNums[i]]
		score += int(r.music)
	}
	return score
}

// GenerateLead fills rowNums with the node numbers of an entire lead
// from the given leadhead up to the lead end.
func (m *Method) GenerateLead(start *Node, rowNums []int32) {
	r := start
	rowNums[0] = r.num
	for i := 0; i < m.leadLength-1; {
		r = r.perms[m.pnPermNums[i]]
		i++
		rowNums[i] = r.num
	}
}

// calcPerms registers this method's place-notation and lead-end
// permutations with the tables. The lead-end ids assigned here are
// temporary: updateLeadPerms must rebase them once every method has
// registered.
func (m *Method) calcPerms(t *Tables) {
	m.pnPermNums = make([]int, m.leadLength)
	rounds := ring.NewRounds(NBells)
	for i := 0; i < m.firstHalfLength; i++ {
		m.pnPermNums[i] = t.addPNPerm(rounds.Changed(m.pn.Change(i)))
	}
	for i := 0; i < m.secondHalfLength; i++ {
		m.pnPermNums[i+m.firstHalfLength] = t.addPNPerm(rounds.Changed(m.pn2.Change(i + m.secondHalfLength)))
	}
	for i := 0; i < NCallTypes; i++ {
		m.leadPermNums[i] = t.addLeadheadPerm(m.callEnds[i])
	}
}

// updateLeadPerms rebases the lead-end ids past the place-notation
// perms so both live in the one flat id space.
func (m *Method) updateLeadPerms(t *Tables) {
	inc := t.nPNPerms()
	for i := 0; i < NCallTypes; i++ {
		m.leadPermNums[i] += inc
	}
}
