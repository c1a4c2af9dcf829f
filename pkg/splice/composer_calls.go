// Copyright (C) 2025 The Elf Authors (elf@bronze-age.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package splice

// composeCalls is the half-lead with-calls inner loop. Identical in
// structure to composePlain with the call dimension added: each slot
// exhausts its calls before advancing the composite method, and every
// enumeration skip pins the slot's call to the last allowed one so the
// following backtrack carries into the method choice.
func (c *Composer) composeCalls() {
	start := c.rounds
	minCOMConstant := int(c.minCOM.Load()) + 1 - 2*c.leadsPerPart
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
				index := c.methodIndices[i]
				c.reduceMethodCounts(c.firstHalfIndex[index], c.secondHalfIndex[index])
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

			index := c.methodIndices[i]
			one := c.firstHalfIndex[index]
			two := c.secondHalfIndex[index]
			limit := int(c.methodRepeatLimit.Load())
			if c.firstHalfCounts[one] >= limit {
				c.methodIndices[i] += c.nMethods - two - 1
				c.callIndices[i] = c.allowCalls
			} else if c.secondHalfCounts[two] < limit {
				c.firstHalfCounts[one]++
				if c.firstHalfCounts[one] >= limit {
					c.nFirstAtMax++
				}
				if c.nFirstAtMax > int(c.maxMethodsAtRepeatLimit.Load()) {
					c.firstHalfCounts[one]--
					c.nFirstAtMax--
					c.methodIndices[i] += c.nMethods - two - 1
					c.callIndices[i] = c.allowCalls
				} else {
					c.secondHalfCounts[two]++
					if c.secondHalfCounts[two] >= limit {
						c.nSecondAtMax++
					}
					if c.nSecondAtMax > int(c.maxMethodsAtRepeatLimit.Load()) {
						c.secondHalfCounts[two]--
						c.nSecondAtMax--
						c.callIndices[i] = c.allowCalls
					} else {
						next := c.comp.SetLead(i, start, c.composites[index], c.callIndices[i])
						leadNum := next.leadheadNum
						if !c.truthTable[leadNum] && (!c.tenorsTogether || next.isTenorsTogether) {
							if c.comp.coms[i] >= 2*i+minCOMConstant {
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
							c.reduceMethodCounts(one, two)
							if one != two {
								c.methodIndices[i] += c.nMethods - two - 1
							}
							c.callIndices[i] = c.allowCalls
						} else {
							c.reduceMethodCounts(one, two)
						}
					}
				}
			}
		}
		i = c.backtrackCalls(i)
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

// backtrackCalls advances the call at slot i, then the method, carrying
// exhausted slots upwards. Returns -1 when slot 0 exhausts.
func (c *Composer) backtrackCalls(i int) int {
	c.callIndices[i]++
	if c.callIndices[i] > c.allowCalls {
		c.callIndices[i] = 0
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
			i = c.backtrackCalls(i)
		}
	}
	return i
}
