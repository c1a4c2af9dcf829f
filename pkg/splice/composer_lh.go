// Copyright (C) 2025 The Elf Authors (elf@bronze-age.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package splice

// composeLH is the leadhead-only inner loop: methods change only at the
// leadhead, so each lead rings one of the N same-halves composites and
// only a single method-count array is maintained.
func (c *Composer) composeLH() {
	// The LH-only method table indexes methods 0..n-1 into the composite
	// table at 0, n+1, 2n+2, ... — the same-halves diagonal.
	c.lhOnlyMethods = make([]*Method, c.nMethods)
	for j := 0; j < c.nMethods; j++ {
		c.lhOnlyMethods[j] = c.composites[j*c.nMethods+j]
	}

	start := c.rounds
	minCOMConstant := int(c.minCOM.Load()) - c.leadsPerPart
	i := 0

	for {
		if i >= c.leadsPerPart {
			regenMod := c.regenPtr - 1
			j := c.leadsPerPart - 1
			if c.isLengthGood() && (regenMod <= 0 || regenMod*2 >= c.leadsPerPart) && c.comp.NParts() == c.nParts {
				j = c.checkComp()
			}
			for {
				i--
				c.truthTable[c.comp.leads[i].last.leadheadNum] = false
				c.reduceMethodCountLH(i)
				if i <= j {
					break
				}
			}
		} else {
			if c.counter++; c.counter >= CheckFreq {
				if c.checkStats() {
					break
				}
			}

			one := c.methodIndices[i]
			limit := int(c.methodRepeatLimit.Load())
			if c.firstHalfCounts[one] >= limit {
				c.callIndices[i] = c.allowCalls
			} else {
				c.firstHalfCounts[one]++
				if c.firstHalfCounts[one] >= limit {
					c.nFirstAtMax++
				}
				if c.nFirstAtMax > int(c.maxMethodsAtRepeatLimit.Load()) {
					c.firstHalfCounts[one]--
					c.nFirstAtMax--
					c.callIndices[i] = c.allowCalls
				} else {
					next := c.comp.SetLead(i, start, c.lhOnlyMethods[one], c.callIndices[i])
					leadNum := next.leadheadNum
					if !c.truthTable[leadNum] && (!c.tenorsTogether || next.isTenorsTogether) {
						if c.comp.coms[i] >= i+minCOMConstant {
							start = next
							c.truthTable[leadNum] = true
							i++
							if c.regenPtr < 0 {
								if c.regenPtr < -100 {
									c.regenPtr = start.RegenOffset()
									if c.regenPtr >= 0 {
										c.methodIndices[i] = c.methodIndices[c.regenPtr]
										c.callIndices[i] = c.callIndices[c.regenPtr]
									}
								}
							} else {
								c.methodIndices[i] = c.methodIndices[c.regenPtr]
								c.callIndices[i] = c.callIndices[c.regenPtr]
							}
							c.regenPtr++
							continue
						}
						c.callIndices[i] = c.allowCalls
						c.reduceMethodCountLH(i)
					} else {
						c.reduceMethodCountLH(i)
					}
				}
			}
		}
		i = c.backtrackLH(i)
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

// backtrackLH advances the call then the method at slot i. A rotational
// search never needs to start on any method but the first, so exhausting
// the calls at slot 0 ends the search.
func (c *Composer) backtrackLH(i int) int {
	c.callIndices[i]++
	if c.callIndices[i] > c.allowCalls {
		if i == 0 {
			return -1
		}
		c.callIndices[i] = 0
		c.methodIndices[i]++
		if c.methodIndices[i] >= c.nCompMethods {
			c.methodIndices[i] = 0
			i--
			c.truthTable[c.comp.leads[i].last.leadheadNum] = false
			c.reduceMethodCountLH(i)
			i = c.backtrackLH(i)
		}
	}
	return i
}

// reduceMethodCountLH undoes one occurrence of the method at slot i.
func (c *Composer) reduceMethodCountLH(i int) {
	one := c.methodIndices[i]
	if c.firstHalfCounts[one] >= int(c.methodRepeatLimit.Load()) {
		c.nFirstAtMax--
	}
	c.firstHalfCounts[one]--
}
