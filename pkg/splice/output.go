// Copyright (C) 2025 The Elf Authors (elf@bronze-age.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package splice

import (
	"fmt"
	"strings"
	"sync"
)

// Host receives compositions from a running search. OutputComp is called
// from the composing goroutine for every true composition meeting the
// current score minimums.
type Host interface {
	OutputComp(comp *OutputComp)
}

// OutputLead is one lead of an output composition: the row ending the
// lead, the method abbreviation and the call.
type OutputLead struct {
	Row    string `json:"row"`
	Abbrev string `json:"abbrev"`
	Call   int    `json:"call"`
}

// OutputComp is an immutable snapshot of a found composition, taken at
// its best rotation.
type OutputComp struct {
	Title     string       `json:"title"`
	Leads     []OutputLead `json:"leads"`
	NParts    int          `json:"parts"`
	Music     int          `json:"music"`
	Score     int          `json:"score"`
	COM       int          `json:"com"`
	Balance   int          `json:"balance"`
	Unbalance int          `json:"-"`
	LHOnly    bool         `json:"lhOnly"`
}

// newOutputComp builds the snapshot by ringing the best rotation of the
// composition from the given start node.
func newOutputComp(title string, comp *Composition, score int, start *Node, lhOnly bool) *OutputComp {
	o := &OutputComp{
		Title:     title,
		NParts:    comp.nParts,
		Music:     comp.Music(),
		Score:     score,
		COM:       comp.COM(),
		Balance:   comp.Balance(),
		Unbalance: comp.UnbalanceCount(),
		LHOnly:    lhOnly,
	}
	n := comp.NLeadsPerPart()
	o.Leads = make([]OutputLead, n)
	j := comp.BestRot()
	for i := 0; i < n; i++ {
		compLead := comp.Lead(j)
		last := start.perms[compLead.method.leadPermNums[compLead.call]]
		o.Leads[i] = OutputLead{
			Row:    last.row.String(),
			Abbrev: compLead.method.abbrev,
			Call:   compLead.call,
		}
		start = last
		if j++; j >= n {
			j = 0
		}
	}
	return o
}

// CallMarker returns the textual marker for a call: nothing for plain,
// "-" for a bob, "s" for a single.
func CallMarker(call int) string {
	switch call {
	case 1:
		return "-"
	case 2:
		return "s"
	}
	return ""
}

// Render formats the composition in the traditional layout: title, a
// bell-position header, one line per lead, then the part count and the
// music, COM and balance footer. Leadhead-only compositions show one
// letter per lead, matching the seed syntax; half-lead compositions
// show the two-letter composite code.
func (o *OutputComp) Render(titleExtra string) string {
	var sb strings.Builder
	sb.WriteString(o.Title)
	sb.WriteString(titleExtra)
	sb.WriteString("\n 2345678\n")
	for _, lead := range o.Leads {
		abbrev := lead.Abbrev
		if o.LHOnly {
			abbrev = abbrev[:1]
		}
		fmt.Fprintf(&sb, " %s  %s%s\n", lead.Row[1:], abbrev, CallMarker(lead.Call))
	}
	if o.NParts > 1 {
		fmt.Fprintf(&sb, "%d part\n", o.NParts)
	}
	fmt.Fprintf(&sb, "Music = %d COM = %d Balance = %d%%", o.Music, o.COM*o.NParts, o.Balance)
	return sb.String()
}

// Collector keeps the best K compositions by score and feeds tightened
// minimums back into the composer: once the buffer is full, only
// compositions good enough to displace the current worst are worth the
// composer's time, so the minimum score, COM, balance and the repeat
// limits all ratchet up as better compositions arrive.
//
// Safe for concurrent use; the composing goroutine inserts while monitor
// goroutines snapshot.
type Collector struct {
	mu       sync.Mutex
	keep     int
	comps    []*OutputComp
	composer *Composer
	changed  bool
}

// NewCollector creates a collector keeping the top keep compositions and
// tuning the given composer.
func NewCollector(keep int, composer *Composer) *Collector {
	if keep < 1 {
		keep = 1
	}
	return &Collector{keep: keep, composer: composer}
}

// OutputComp inserts a composition into the sorted buffer, evicting the
// worst and retuning the composer's minimums when the buffer is full.
func (c *Collector) OutputComp(latest *OutputComp) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ncomps := len(c.comps)
	for i, comp := range c.comps {
		if latest.Score <= comp.Score {
			continue
		}
		c.comps = append(c.comps[:i], append([]*OutputComp{latest}, c.comps[i:]...)...)
		if ncomps >= c.keep {
			c.comps = c.comps[:c.keep]
			c.tightenLocked()
		}
		c.changed = true
		return
	}
	if ncomps < c.keep {
		c.comps = append(c.comps, latest)
		c.changed = true
	}
}

// tightenLocked pushes the worst kept composition's statistics back into
// the composer as new minimums.
func (c *Collector) tightenLocked() {
	if c.composer == nil {
		return
	}
	minScore := int(^uint(0) >> 1)
	minCOM := minScore
	minBalance := minScore
	maxUnbalance := 0
	for _, comp := range c.comps {
		if comp.Score < minScore {
			minScore = comp.Score
		}
		if comp.COM < minCOM {
			minCOM = comp.COM
		}
		if comp.Balance < minBalance {
			minBalance = comp.Balance
		}
		if comp.Unbalance > maxUnbalance {
			maxUnbalance = comp.Unbalance
		}
	}
	c.composer.SetMinScore(minScore)
	c.composer.SetMinCOM(minCOM)
	c.composer.SetMinBalance(minBalance)
	c.composer.SetRepeatLimits(maxUnbalance)
}

// Comps returns a snapshot of the kept compositions, best first.
func (c *Collector) Comps() []*OutputComp {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*OutputComp, len(c.comps))
	copy(out, c.comps)
	return out
}

// TakeChanged reports whether the buffer changed since the last call,
// clearing the flag.
func (c *Collector) TakeChanged() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := c.changed
	c.changed = false
	return ch
}
