// elSAGE: a read-context evidence engine for variant calling.
// Copyright (c) 2020 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elprep/blob/master/LICENSE.txt>.

package evidence

import (
	"sort"
)

// Phaser collects the positive and negative support of reads over
// the counters of a partition, and clusters them into local phase
// sets. Groups are kept ordered by their minimum position.
type Phaser struct {
	positions    []int32
	minReadCount int
	groups       []*PhasedGroup
	currentIndex int
}

// NewPhaser creates a phaser for the given counters, which must be
// indexed by their position in the slice.
func NewPhaser(counters []*Counter, minReadCount int) *Phaser {
	positions := make([]int32, len(counters))
	for i, c := range counters {
		positions[i] = c.Position()
	}
	return &Phaser{positions: positions, minReadCount: minReadCount}
}

// Groups returns the current groups.
func (p *Phaser) Groups() []*PhasedGroup {
	return p.groups
}

// Add records the support of a single read. Positives must not be
// empty.
func (p *Phaser) Add(positives, negatives []int) {
	g := newPhasedGroup(len(p.positions), p.positions, positives, negatives)
	index := p.currentIndex
	if index > len(p.groups) {
		index = len(p.groups)
	}
	for index > 0 && p.groups[index-1].MinPos >= g.MinPos {
		index--
	}
	for index < len(p.groups) && p.groups[index].MinPos < g.MinPos {
		index++
	}
	p.currentIndex = index
	for ; index < len(p.groups) && p.groups[index].MinPos == g.MinPos; index++ {
		if existing := p.groups[index]; existing.exactMatch(g.MinPos, g.MaxPos, g.Positives) {
			existing.ReadCount++
			existing.Negatives.InPlaceUnion(g.Negatives)
			return
		}
	}
	p.groups = append(p.groups, nil)
	copy(p.groups[index+1:], p.groups[index:])
	p.groups[index] = g
}

// Finish merges the groups and returns those that qualify as phase
// sets: at least two variants, and enough reads.
func (p *Phaser) Finish() []*PhasedGroup {
	p.absorbSubsets()
	p.mergeExtensions()
	p.mergeCovered()
	p.mergeExtensions()
	var result []*PhasedGroup
	for _, g := range p.groups {
		if g.PositiveCount() >= 2 && g.Total() >= float64(p.minReadCount) {
			result = append(result, g)
		}
	}
	return result
}

func (p *Phaser) bySize() []*PhasedGroup {
	groups := append([]*PhasedGroup(nil), p.groups...)
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].PositiveCount() < groups[j].PositiveCount()
	})
	return groups
}

func (p *Phaser) removeAll(removed map[*PhasedGroup]bool) {
	if len(removed) == 0 {
		return
	}
	kept := p.groups[:0]
	for _, g := range p.groups {
		if !removed[g] {
			kept = append(kept, g)
		}
	}
	for i := len(kept); i < len(p.groups); i++ {
		p.groups[i] = nil
	}
	p.groups = kept
	p.resort()
}

func (p *Phaser) resort() {
	sort.SliceStable(p.groups, func(i, j int) bool {
		return p.groups[i].MinPos < p.groups[j].MinPos
	})
	p.currentIndex = 0
}

// absorbSubsets folds each group into the single larger group that
// covers it. Single-variant groups that no group covers are dropped.
func (p *Phaser) absorbSubsets() {
	groups := p.bySize()
	removed := make(map[*PhasedGroup]bool)
	for i, g := range groups {
		var superset *PhasedGroup
		count := 0
		for _, h := range groups[i+1:] {
			if !removed[h] && h.PositiveCount() > g.PositiveCount() && h.covers(g) {
				superset = h
				count++
			}
		}
		switch {
		case count == 1:
			superset.Allocated += g.Total()
			removed[g] = true
		case count == 0 && g.PositiveCount() == 1:
			removed[g] = true
		}
	}
	p.removeAll(removed)
}

// extension returns the only group that overlaps g without conflict
// and extends it in a single direction, if there is exactly one.
func (p *Phaser) extension(g *PhasedGroup) *PhasedGroup {
	var result *PhasedGroup
	for _, h := range p.groups {
		if h == g || g.conflicts(h) || g.Positives.IntersectionCardinality(h.Positives) == 0 ||
			g.Positives.IsSuperSet(h.Positives) || h.Positives.IsSuperSet(g.Positives) {
			continue
		}
		lower := h.MinPos < g.MinPos && h.MaxPos <= g.MaxPos
		upper := h.MaxPos > g.MaxPos && h.MinPos >= g.MinPos
		if lower || upper {
			if result != nil {
				return nil
			}
			result = h
		}
	}
	return result
}

// mergeExtensions repeatedly merges a group with its single extension.
// The reads of both groups support the merged group.
func (p *Phaser) mergeExtensions() {
	for merged := true; merged; {
		merged = false
		for _, g := range p.groups {
			if h := p.extension(g); h != nil {
				g.union(h, p.positions)
				g.ReadCount += h.ReadCount
				g.Allocated += h.Allocated
				p.removeAll(map[*PhasedGroup]bool{h: true})
				merged = true
				break
			}
		}
	}
}

// mergeCovered folds each group into the groups that cover it. A group
// with identical positives adds its reads; otherwise the reads are
// allocated to the covering groups in proportion to their totals.
func (p *Phaser) mergeCovered() {
	groups := p.bySize()
	removed := make(map[*PhasedGroup]bool)
	for i, g := range groups {
		var covering []*PhasedGroup
		var equal *PhasedGroup
		for _, h := range groups[i+1:] {
			if removed[h] || !h.covers(g) {
				continue
			}
			if equal == nil && h.Positives.Equal(g.Positives) {
				equal = h
			}
			covering = append(covering, h)
		}
		switch {
		case equal != nil:
			equal.ReadCount += g.ReadCount
			equal.Allocated += g.Allocated
			equal.Negatives.InPlaceUnion(g.Negatives)
		case len(covering) > 0:
			total := 0.0
			for _, h := range covering {
				total += h.Total()
			}
			for _, h := range covering {
				share := 1 / float64(len(covering))
				if total > 0 {
					share = h.Total() / total
				}
				h.Allocated += g.Total() * share
			}
		default:
			continue
		}
		removed[g] = true
	}
	p.removeAll(removed)
}
