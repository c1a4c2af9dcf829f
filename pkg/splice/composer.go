// Copyright (C) 2025 The Elf Authors (elf@bronze-age.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package splice

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cccbr/elf/pkg/ring"
)

const (
	// CheckFreq is the number of leads generated between time and abort
	// checks in the inner loop.
	CheckFreq = 2000

	displayInterval = 500 * time.Millisecond
	totalDuration   = 1000000
)

// Composer runs the inner search loops which find and score
// compositions, working with a single reusable Composition instance for
// statistics, truth and music checking. It embeds a Tracker so a hosting
// application can monitor progress and pause or abort the search from
// another goroutine.
//
// There are three specialised variants of the inner loop — half-lead
// with no calls, half-lead with calls, and leadhead-only — selected by
// the search parameters. The state is shared; only the hot loop differs,
// and the loop body never dispatches through an interface.
//
// Much of this code is a direct transcription of a heavily tuned search
// and should not be reshaped without benchmarking across a range of
// searches. The rotationally-sorted enumeration in particular couples
// the method iteration order to the regeneration offsets: reordering one
// without the other loses compositions.
type Composer struct {
	*Tracker

	tables    *Tables
	composing atomic.Bool

	// The original methods to splice; these do not have perms built.
	methods  []*Method
	nMethods int
	// Composite methods (nMethods squared) — these do have perms built.
	composites []*Method
	// Pointers into the composite table for the leadhead-only search.
	lhOnlyMethods []*Method
	nCompMethods  int

	leadsPerPart   int
	nParts         int
	lhSpliced      bool
	tenorsTogether bool
	nicePartEnds   bool
	// 0 for no calls, 1 for bobs only, 2 for bobs and singles.
	allowCalls    int
	minPartLength int
	maxPartLength int

	// Score minimums and repeat limits are retuned asynchronously by the
	// output collector while the search runs, so they are atomics read
	// afresh at every use.
	minScore                atomic.Int32
	minBalance              atomic.Int32
	minCOM                  atomic.Int32
	methodRepeatLimit       atomic.Int32
	maxMethodsAtRepeatLimit atomic.Int32

	comScore     int
	balanceScore int

	comp   *Composition
	host   Host
	rounds *Node

	// Search state: one composite method index and one call per lead.
	methodIndices []int
	callIndices   []int
	// Index tables turning a composite index into its half indices.
	firstHalfIndex  []int
	secondHalfIndex []int
	// Per-method occurrence counts in each half of the part.
	firstHalfCounts  []int
	secondHalfCounts []int
	nFirstAtMax      int
	nSecondAtMax     int
	// Scratch for the balance calculator.
	methodCounts []int

	progressRatios      []float64
	progressCumulatives []float64

	regenPtr int
	counter  int

	// Worker-only timing state.
	startTime    time.Time
	lastTime     time.Time
	lastNodes    int64
	compsChecked int64
	lastComps    int64

	// Shared with the monitor goroutine.
	statsMu         sync.Mutex
	initialProgress float64
	initialTime     time.Time

	searchTime atomic.Int64 // seconds; set when the search finishes

	nodesSearched atomic.Int64
	nComps        atomic.Int32
	nodesPerSec   atomic.Int32
	compsPerSec   atomic.Int32
	bestScore     atomic.Int32
	bestMusic     atomic.Int32
	bestCOM       atomic.Int32
	bestBalance   atomic.Int32

	// Leadhead truth bitmap for the composition being built.
	truthTable []bool
}

// NewComposer constructs a composer over tables whose node table has
// been built; the method and music passes may still be pending.
// Parameters: the number
// of leads per part and of parts; tenorsTogether to keep the tenors
// coursing at every leadhead (for 7 parts and above this keeps one
// coursing pair together per part rather than forcing the tenors home at
// the part end); nicePartEnds to restrict part ends; atw to enforce
// optimum half-lead balance; lhOnly for leadhead-only splicing (which
// forces calls on); calls 0..2.
func NewComposer(tables *Tables, leadsPerPart, nParts int, tenorsTogether, nicePartEnds, atw, lhOnly bool, calls int) *Composer {
	c := &Composer{
		Tracker:        NewTracker(100, "Composing..."),
		tables:         tables,
		methods:        tables.Methods(),
		leadsPerPart:   leadsPerPart,
		nParts:         nParts,
		tenorsTogether: tenorsTogether,
		nicePartEnds:   nicePartEnds,
		comScore:       2,
		balanceScore:   1,
		maxPartLength:  math.MaxInt,
	}
	c.nMethods = len(c.methods)
	if lhOnly {
		c.lhSpliced = true
		if calls < 1 {
			calls = 1
		}
	}
	c.allowCalls = calls
	// Whether the tenors must be home at the part end: true for
	// tenors-together under 7 parts; above that a different coursing
	// pair can be unaffected in each part.
	tenorsHomePE := tenorsTogether && nParts <= 6
	c.comp = NewComposition(c.methods, tables, leadsPerPart, tenorsHomePE, nicePartEnds)
	c.methodIndices = make([]int, leadsPerPart+1)
	c.callIndices = make([]int, leadsPerPart+1)
	c.firstHalfCounts = make([]int, c.nMethods)
	c.secondHalfCounts = make([]int, c.nMethods)
	c.methodCounts = make([]int, c.nMethods)
	c.minBalance.Store(1)
	c.initRepeatLimits(atw)
	c.rounds = tables.Rounds()
	c.truthTable = make([]bool, tables.NLeadheadNodes())
	return c
}

// initRepeatLimits sets the method repeat-count limits; with atw set it
// enforces perfect method balance in both first and second half-leads.
func (c *Composer) initRepeatLimits(atw bool) {
	if atw {
		limit := c.leadsPerPart / c.nMethods
		atLimit := c.leadsPerPart % c.nMethods
		if atLimit == 0 {
			atLimit = c.nMethods
		} else {
			limit++
		}
		c.methodRepeatLimit.Store(int32(limit))
		c.maxMethodsAtRepeatLimit.Store(int32(atLimit))
	} else {
		c.methodRepeatLimit.Store(int32(c.leadsPerPart))
		c.maxMethodsAtRepeatLimit.Store(int32(c.nMethods))
	}
}

// SetRepeatLimits derives repeat limits from an "unbalance" count so
// that only compositions with a method balance good enough for the
// current top-K are considered. May be called while composing to
// tighten the search.
func (c *Composer) SetRepeatLimits(unbalance int) {
	if unbalance > c.nMethods {
		c.methodRepeatLimit.Store(int32(unbalance - c.nMethods))
		c.maxMethodsAtRepeatLimit.Store(int32(c.nMethods))
	} else {
		limit := c.leadsPerPart / c.nMethods
		atLimit := unbalance
		if unbalance == 0 {
			atLimit = c.nMethods
		} else {
			limit++
		}
		c.methodRepeatLimit.Store(int32(limit))
		c.maxMethodsAtRepeatLimit.Store(int32(atLimit))
	}
}

// SetAllowCalls selects calls: 0 none (the default), 1 bobs, 2 bobs and
// singles. 4th's place bobs and 1234 singles are assumed.
func (c *Composer) SetAllowCalls(calls int) { c.allowCalls = calls }

// SetCOMScore sets the points awarded per change of method per part.
func (c *Composer) SetCOMScore(score int) { c.comScore = score }

// SetBalanceScore sets the points awarded per balance percentage point.
func (c *Composer) SetBalanceScore(score int) { c.balanceScore = score }

// SetMinPartLength bounds the part length from below; only meaningful
// when methods of different lead lengths are present.
func (c *Composer) SetMinPartLength(n int) { c.minPartLength = n }

// SetMaxPartLength bounds the part length from above.
func (c *Composer) SetMaxPartLength(n int) { c.maxPartLength = n }

// SetMinScore sets the minimum score a composition must achieve to be
// output. Safe to call while composing to tighten the search.
func (c *Composer) SetMinScore(min int) { c.minScore.Store(int32(min)) }

// SetMinBalance sets the minimum method balance 0-100. Safe to call
// while composing.
func (c *Composer) SetMinBalance(min int) { c.minBalance.Store(int32(min)) }

// SetMinCOM sets the minimum changes of method per part. Safe to call
// while composing.
func (c *Composer) SetMinCOM(min int) { c.minCOM.Store(int32(min)) }

// IsComposing reports whether a search is underway or paused.
func (c *Composer) IsComposing() bool { return c.composing.Load() }

// IsLHSpliced reports whether this is a leadhead-only search.
func (c *Composer) IsLHSpliced() bool { return c.lhSpliced }

// NComps returns the number of true compositions found so far.
func (c *Composer) NComps() int { return int(c.nComps.Load()) }

// NNodes returns the total number of leads searched.
func (c *Composer) NNodes() int64 { return c.nodesSearched.Load() }

// NodesPerSec returns an instantaneous leads-per-second measure.
func (c *Composer) NodesPerSec() int { return int(c.nodesPerSec.Load()) }

// CompsPerSec returns an instantaneous compositions-checked-per-second
// measure. Only compositions with good part ends meeting the COM and
// balance minimums are checked.
func (c *Composer) CompsPerSec() int { return int(c.compsPerSec.Load()) }

// BestScore returns the best composition score found so far.
func (c *Composer) BestScore() int { return int(c.bestScore.Load()) }

// BestMusic returns the best music count found so far; not necessarily
// from the highest-scoring composition.
func (c *Composer) BestMusic() int { return int(c.bestMusic.Load()) }

// BestCOM returns the highest changes of method per part found so far.
func (c *Composer) BestCOM() int { return int(c.bestCOM.Load()) }

// BestBalance returns the best method balance found so far. 0% means a
// method was missing; 100% means every method appears equally often in
// both half-lead positions.
func (c *Composer) BestBalance() int { return int(c.bestBalance.Load()) }

// SearchTime formats the total search time as h:mm:ss. Only valid once
// the search has finished.
func (c *Composer) SearchTime() string {
	secs := c.searchTime.Load()
	mins := secs / 60
	secs -= mins * 60
	hours := mins / 60
	mins -= hours * 60
	return fmt.Sprintf("%d:%02d:%02d", hours, mins, secs)
}

// EstimateTimeLeft estimates the time until completion, in hours and
// minutes. Returns "forever" when no measurable progress has been made
// and ">paused<" while paused.
func (c *Composer) EstimateTimeLeft() string {
	if c.Paused() {
		return ">paused<"
	}
	c.statsMu.Lock()
	initialProgress := c.initialProgress
	initialTime := c.initialTime
	c.statsMu.Unlock()
	if initialProgress < 0.0 {
		return ""
	}
	proportionDone := (c.Progress() - initialProgress) / (100.0 - initialProgress)
	if proportionDone == 0.0 {
		return "forever"
	}
	elapsed := time.Since(initialTime).Seconds()
	total := elapsed / proportionDone
	minsLeft := (int64(total-elapsed) + 30) / 60
	hours := minsLeft / 60
	minsLeft %= 60
	return fmt.Sprintf("%dh%02d", hours, minsLeft)
}

// SetStartComp seeds the search with a start composition, one token per
// lead: "XY" with an optional "-" or "s" suffix for half-lead splicing,
// "X" with the same suffixes for leadhead-only. Missing leads are
// padded. The seed must itself be rotationally sorted — it must not
// contain any infix that sorts below the whole — as the engine does not
// re-sort it.
func (c *Composer) SetStartComp(comp string) error {
	i := 0
	for _, lead := range strings.Fields(comp) {
		if i > c.leadsPerPart {
			break
		}
		j := 0
		m1, err := c.findMethod(lead[j])
		if err != nil {
			return err
		}
		j++
		if !c.lhSpliced && len(lead) > 1 {
			m2, err := c.findMethod(lead[j])
			if err != nil {
				return err
			}
			j++
			c.methodIndices[i] = m1*c.nMethods + m2
		} else {
			c.methodIndices[i] = m1
		}
		if len(lead) > j {
			switch lead[j] {
			case '-':
				c.callIndices[i] = ring.CallBob
			case 's':
				c.callIndices[i] = ring.CallSingle
			}
		}
		i++
	}
	return nil
}

// findMethod looks up a method index from its abbreviation character.
func (c *Composer) findMethod(abbrev byte) (int, error) {
	for i, m := range c.methods {
		if m.abbrev == string(abbrev) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no method with abbreviation %q", string(abbrev))
}

// Compose runs the search, sending found compositions to the host. The
// tables must be fully populated with the current methods and music.
func (c *Composer) Compose(host Host) {
	c.composing.Store(true)
	defer c.composing.Store(false)
	c.SetTotalDuration(totalDuration)
	c.SetProgress(0)
	c.SetJobName("Composing")
	slog.Info("composing starts",
		"leads_per_part", c.leadsPerPart, "parts", c.nParts,
		"methods", c.nMethods, "calls", c.allowCalls, "lh_only", c.lhSpliced)

	c.host = host
	c.tables.PrepareRegenPtrs(c.tenorsTogether)
	c.composites = c.tables.CompositeMethods()
	if c.lhSpliced {
		c.nCompMethods = c.nMethods
	} else {
		c.nCompMethods = len(c.composites)
		// Index tables turning a composite index into the single-method
		// first and second half indices.
		c.firstHalfIndex = make([]int, c.nCompMethods)
		c.secondHalfIndex = make([]int, c.nCompMethods)
		for i := 0; i < c.nCompMethods; i++ {
			c.firstHalfIndex[i] = i / c.nMethods
			c.secondHalfIndex[i] = i % c.nMethods
		}
	}

	c.calcProgressRatios()

	clear(c.truthTable)
	if c.nParts > 1 {
		c.truthTable[c.rounds.leadheadNum] = true
	}

	c.nComps.Store(0)
	c.bestScore.Store(0)
	c.bestBalance.Store(0)
	c.bestCOM.Store(0)
	c.bestMusic.Store(0)
	c.nodesPerSec.Store(0)
	c.compsPerSec.Store(0)
	c.nodesSearched.Store(0)
	c.statsMu.Lock()
	c.initialProgress = -1.0
	c.statsMu.Unlock()
	c.lastTime = time.Now()
	c.startTime = c.lastTime
	c.lastNodes = 0
	c.compsChecked = 0
	c.lastComps = 0
	c.counter = 0
	// Negative so any start comp is consumed before regeneration begins.
	c.regenPtr = -c.leadsPerPart

	switch {
	case c.lhSpliced:
		c.composeLH()
	case c.allowCalls > 0:
		c.composeCalls()
	default:
		c.composePlain()
	}

	c.nodesSearched.Add(int64(c.counter))
	c.searchTime.Store(int64(time.Since(c.startTime).Seconds()))
	if !c.Aborted() {
		slog.Info("search complete",
			"found", c.nComps.Load(), "balance", c.bestBalance.Load(),
			"com", c.bestCOM.Load(), "score", c.bestScore.Load(),
			"time", c.SearchTime(), "nodes", c.nodesSearched.Load())
	}
}

// composePlain is the half-lead no-calls inner loop.
func (c *Composer) composePlain() {
	start := c.rounds
	minCOMConstant := int(c.minCOM.Load()) + 1 - 2*c.leadsPerPart
	i := 0

	for {
		if i >= c.leadsPerPart {
			// Reached the end of the part. The part multiplicity must be
			// right, and rotational-sort candidates whose last backtrack
			// was not an integral division of the part are rejected as
			// non-lowest postfixes.
			regenMod := c.regenPtr - 1
			j := c.leadsPerPart - 1
			if c.isLengthGood() && (regenMod <= 0 || regenMod*2 >= c.leadsPerPart) && c.comp.NParts() == c.nParts {
				j = c.checkComp()
			}
			for {
				i--
				c.truthTable[c.comp.leads[i].last.leadheadNum] = false
				index := c.methodIndices[i]
				c.reduceMethodCounts(c.firstHalfIndex[index], c.secondHalfIndex[index])
				if i <= j {
					break
				}
			}
		} else {
			// Generate a new lead; every CheckFreq leads drop out to
			// update stats and look at the pause and abort flags.
			if c.counter++; c.counter >= CheckFreq {
				if c.checkStats() {
					break
				}
			}

			index := c.methodIndices[i]
			one := c.firstHalfIndex[index]
			two := c.secondHalfIndex[index]
			limit := int(c.methodRepeatLimit.Load())
			if c.firstHalfCounts[one] >= limit {
				// Too many of the first halflead method already: skip
				// every remaining second-half choice of this first half
				// by forcing a backtrack off the last one.
				c.methodIndices[i] += c.nMethods - two - 1
			} else if c.secondHalfCounts[two] < limit {
				// Both halves within the allowed maximums; check whether
				// either is now at maximum with too many methods there.
				c.firstHalfCounts[one]++
				if c.firstHalfCounts[one] >= limit {
					c.nFirstAtMax++
				}
				if c.nFirstAtMax > int(c.maxMethodsAtRepeatLimit.Load()) {
					c.firstHalfCounts[one]--
					c.nFirstAtMax--
					c.methodIndices[i] += c.nMethods - two - 1
				} else {
					c.secondHalfCounts[two]++
					if c.secondHalfCounts[two] >= limit {
						c.nSecondAtMax++
					}
					if c.nSecondAtMax > int(c.maxMethodsAtRepeatLimit.Load()) {
						c.secondHalfCounts[two]--
						c.nSecondAtMax--
					} else {
						// Both methods allowed: add the lead (this also
						// updates the running COM count).
						next := c.comp.SetLead(i, start, c.composites[index], 0)
						leadNum := next.leadheadNum
						if !c.truthTable[leadNum] && (!c.tenorsTogether || next.isTenorsTogether) {
							// Prune branches where the minimum COM is no
							// longer achievable.
							if c.comp.coms[i] >= 2*i+minCOMConstant {
								start = next
								c.truthTable[leadNum] = true
								i++
								// Use the regen pointer to copy the next
								// method from the start of the
								// composition. While it is negative we
								// are running out plain leads to a
								// course end; below -100 means a
								// backtrack has just happened and the
								// exact count must be fetched from the
								// node.
								if c.regenPtr < 0 {
									if c.regenPtr < -100 {
										c.regenPtr = start.RegenOffset()
										if c.regenPtr >= 0 {
											c.methodIndices[i] = c.methodIndices[c.regenPtr]
										}
									}
								} else {
									c.methodIndices[i] = c.methodIndices[c.regenPtr]
								}
								c.regenPtr++
								continue
							}
							c.reduceMethodCounts(one, two)
							// With differing halves the COM bound must
							// have been violated by the first half
							// against the previous lead, so skip its
							// remaining second halves too.
							if one != two {
								c.methodIndices[i] += c.nMethods - two - 1
							}
						} else {
							c.reduceMethodCounts(one, two)
						}
					}
				}
			}
		}
		i = c.backtrackPlain(i)
		if i > 0 {
			start = c.comp.leads[i-1].last
		} else if i == 0 {
			start = c.rounds
		} else {
			break
		}
		c.regenPtr = -1000
	}
}

// backtrackPlain advances the method choice at slot i, carrying
// exhausted slots upwards. Returns -1 when slot 0 exhausts.
func (c *Composer) backtrackPlain(i int) int {
	c.methodIndices[i]++
	if c.methodIndices[i] >= c.nCompMethods {
		c.methodIndices[i] = 0
		if i == 0 {
			return -1
		}
		i--
		c.truthTable[c.comp.leads[i].last.leadheadNum] = false
		index := c.methodIndices[i]
		c.reduceMethodCounts(c.firstHalfIndex[index], c.secondHalfIndex[index])
		i = c.backtrackPlain(i)
	}
	return i
}

// reduceMethodCounts undoes one occurrence of each half's method,
// maintaining the at-limit counters.
func (c *Composer) reduceMethodCounts(one, two int) {
	limit := int(c.methodRepeatLimit.Load())
	if c.firstHalfCounts[one] >= limit {
		c.nFirstAtMax--
	}
	c.firstHalfCounts[one]--
	if c.secondHalfCounts[two] >= limit {
		c.nSecondAtMax--
	}
	c.secondHalfCounts[two]--
}

// isLengthGood checks the part length bounds; only valid at a part end.
func (c *Composer) isLengthGood() bool {
	partLen := c.comp.length[c.leadsPerPart-1]
	return partLen >= c.minPartLength && partLen <= c.maxPartLength
}

// calcMethodBalance scores the method balance of the current composition
// 0-100. For half-lead compositions the figure combines (2:1) the
// overall method distribution with the worse half's distribution; for
// leadhead-only it is the plain distribution. Any missing method scores
// 0. Side effect: records the balance on the Composition.
func (c *Composer) calcMethodBalance() int {
	if c.lhSpliced {
		balance := c.calcMethodDistribution(c.firstHalfCounts, float64(c.leadsPerPart))
		if balance > 0 {
			minRep := 1 + c.leadsPerPart/c.nMethods
			unbalance := c.calcUnbalance(c.firstHalfCounts, minRep)
			c.comp.SetBalance(balance, unbalance)
		}
		return balance
	}

	// Overall distribution first: the sum of the two half-lead counts.
	for i := c.nMethods - 1; i >= 0; i-- {
		c.methodCounts[i] = c.firstHalfCounts[i] + c.secondHalfCounts[i]
	}
	balance := c.calcMethodDistribution(c.methodCounts, float64(c.leadsPerPart)*2)
	if balance > 0 {
		// The half-lead distributions are measured as unbalance counts
		// so the value can feed straight back into the repeat-limit
		// pruner; the worse half governs.
		minRep := 1 + c.leadsPerPart/c.nMethods
		unbalance := c.calcUnbalance(c.firstHalfCounts, minRep)
		if u2 := c.calcUnbalance(c.secondHalfCounts, minRep); u2 > unbalance {
			unbalance = u2
		}
		minAtMinRep := c.leadsPerPart % c.nMethods
		balMax := c.leadsPerPart - minRep + c.nMethods - minAtMinRep
		halfLeadBalance := c.leadsPerPart + c.nMethods - unbalance
		if unbalance <= c.nMethods {
			halfLeadBalance -= minRep
		}
		// balMax degenerates to zero for single-method searches, where
		// the half-lead distribution carries no information.
		if balMax > 0 {
			balance = balance*67/100 + halfLeadBalance*33/balMax
		}
		c.comp.SetBalance(balance, unbalance)
	}
	return balance
}

// calcMethodDistribution measures overall distribution as the product of
// each method's deviation from the optimum count, 0 if any is missing.
func (c *Composer) calcMethodDistribution(methodCounts []int, maxMethods float64) int {
	perfect := maxMethods / float64(c.nMethods)
	balance := 1.0
	for i := c.nMethods - 1; i >= 0; i-- {
		count := methodCounts[i]
		if count == 0 {
			balance = 0.0
			break
		}
		score := perfect - float64(count)
		if score < 0 {
			score = -score
		}
		balance *= 1.0 - score/maxMethods
	}
	return int(balance * 100.0)
}

// calcUnbalance returns an unbalance value from the counts: higher is
// worse. If no method exceeds the minimum possible repeat count, the
// value is the number of methods at that count; otherwise it is
// nMethods plus the repeat count of the most common method, which always
// sorts above the first kind.
func (c *Composer) calcUnbalance(counts []int, minRep int) int {
	max := 0
	nAtMax := 0
	for i := len(counts) - 1; i >= 0; i-- {
		count := counts[i]
		if count > 0 {
			if count == max {
				nAtMax++
			} else if count > max {
				max = count
				nAtMax = 1
			}
		}
	}
	switch {
	case max < minRep:
		return 0
	case max == minRep:
		return nAtMax
	default:
		return c.nMethods + max
	}
}

// checkComp checks a candidate for balance, COM, rotations, music and
// truth, outputting it if it survives with a sufficient score. Returns
// the lead to backtrack to: normally leadsPerPart-1, further when the
// composition was false in its first part.
func (c *Composer) checkComp() int {
	balance := c.calcMethodBalance()
	com := c.comp.COM()
	if balance >= int(c.minBalance.Load()) && com >= int(c.minCOM.Load()) && c.comp.CheckRots() {
		c.compsChecked++
		score := com*c.comScore + balance*c.balanceScore
		minMusic := int(c.minScore.Load()) - score
		music := c.comp.CalcMusicRots(minMusic)
		if music > 0 {
			score += music
			if int32(score) > c.bestScore.Load() {
				c.bestScore.Store(int32(score))
			}
			if int32(music) > c.bestMusic.Load() {
				c.bestMusic.Store(int32(music))
			}
			if int32(balance) > c.bestBalance.Load() {
				c.bestBalance.Store(int32(balance))
			}
			if int32(com) > c.bestCOM.Load() {
				c.bestCOM.Store(int32(com))
			}
			c.nComps.Add(1)
			c.host.OutputComp(c.comp.BuildOutput(score, c.lhSpliced))
		} else if music < 0 {
			// False in the first part: backtrack to the repeating lead.
			return c.comp.FirstPartFalseLead()
		}
	}
	return c.leadsPerPart - 1
}

// checkStats flushes the node counter, parks while paused, and every
// display interval refreshes the published statistics. Returns true if
// the search should stop.
func (c *Composer) checkStats() bool {
	c.nodesSearched.Add(int64(c.counter))
	c.counter = 0
	if c.Paused() {
		pauseStart := time.Now()
		c.WaitForResume()
		c.statsMu.Lock()
		c.initialTime = c.initialTime.Add(time.Since(pauseStart))
		c.statsMu.Unlock()
		c.lastTime = time.Now()
	}
	if c.Aborted() {
		return true
	}
	dur := time.Since(c.lastTime)
	if dur > displayInterval {
		c.SetProgress(int(c.composingProgress() * totalDuration))
		nodes := c.nodesSearched.Load()
		c.nodesPerSec.Store(int32((nodes - c.lastNodes) * 1000 / dur.Milliseconds()))
		c.lastNodes = nodes
		// Compositions checked, not true compositions.
		c.compsPerSec.Store(int32((c.compsChecked - c.lastComps) * 1000 / dur.Milliseconds()))
		c.lastComps = c.compsChecked
		c.lastTime = time.Now()
		c.statsMu.Lock()
		if c.initialProgress < 0.0 {
			c.initialProgress = c.Progress()
			c.initialTime = c.lastTime
		}
		c.statsMu.Unlock()
	}
	return false
}

// composingProgress folds the current search state into a fraction
// 0..1. The first slot is scaled asymmetrically through the precomputed
// ratio tables to compensate for the rotational sort.
func (c *Composer) composingProgress() float64 {
	j := c.methodIndices[0]
	scale := c.progressRatios[j]
	progress := c.progressCumulatives[j]
	scale /= float64(c.allowCalls + 1)
	progress += float64(c.callIndices[0]) * scale

	for j = 1; j < c.leadsPerPart; j++ {
		scale /= float64(c.nCompMethods)
		progress += float64(c.methodIndices[j]) * scale
		scale /= float64(c.allowCalls + 1)
		progress += float64(c.callIndices[j]) * scale
		if scale*totalDuration <= 1.0 {
			break
		}
	}
	return progress
}

// calcProgressRatios precomputes the first-slot progress ratios. Under
// the rotational sort, progress speeds up exponentially as the first
// node's possibilities are exhausted; the ratio table makes the reported
// fraction advance roughly uniformly.
func (c *Composer) calcProgressRatios() {
	c.progressRatios = make([]float64, c.nCompMethods)
	c.progressCumulatives = make([]float64, c.nCompMethods)
	// 1-spliced is a special case: an ordinary linear scale.
	if c.nCompMethods == 1 {
		c.progressRatios[0] = 1.0
		return
	}
	n := float64(c.leadsPerPart - 1)
	var i int
	// Series of ratios n^(i+1)/n^i.
	for i = 0; i < c.nCompMethods-1; i++ {
		x := float64(c.nCompMethods - i - 1)
		scale := 1.0 + (n/x + n*(n-1)/(2*x*x))
		c.progressRatios[i] = 1.0 - 1.0/scale
	}
	c.progressRatios[i] = c.progressRatios[i-1]

	// Collapse subsequent ratios across boundary-sized groups.
	boundary := c.nMethods
	if c.tenorsTogether {
		boundary = c.nCompMethods
	} else if c.lhSpliced {
		boundary = 1
	}
	scale := 1.0
	for i = 0; i < c.nCompMethods; i += boundary {
		var j int
		for j = 0; j < boundary/2; j++ {
			c.progressRatios[i+j], c.progressRatios[i+boundary-j-1] =
				c.progressRatios[i+boundary-j-1], c.progressRatios[i+j]
		}
		for j = 0; j < boundary; j++ {
			c.progressRatios[i+j] *= scale
		}
		scale *= c.progressRatios[i+j-1]
	}

	total := 0.0
	for i = 0; i < c.nCompMethods; i++ {
		total += c.progressRatios[i]
	}

	// Normalise to 0..1 and accumulate the cumulative totals.
	cum := total
	for i = c.nCompMethods - 1; i >= 0; i-- {
		cum -= c.progressRatios[i]
		c.progressCumulatives[i] = cum / total
		c.progressRatios[i] /= total
	}
	c.progressCumulatives[0] = 0.0
}
