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
	"github.com/bits-and-blooms/bitset"
)

// PhasedGroup is a set of variants that reads support jointly
// (Positives), together with variants the same reads contradict
// (Negatives). Sets hold counter indices.
type PhasedGroup struct {
	Positives, Negatives *bitset.BitSet
	MinPos, MaxPos       int32
	ReadCount            int
	Allocated            float64
}

func newPhasedGroup(size int, positions []int32, positives, negatives []int) *PhasedGroup {
	g := &PhasedGroup{
		Positives: bitset.New(uint(size)),
		Negatives: bitset.New(uint(size)),
		ReadCount: 1,
	}
	for _, i := range positives {
		g.Positives.Set(uint(i))
	}
	for _, i := range negatives {
		g.Negatives.Set(uint(i))
	}
	g.updateBounds(positions)
	return g
}

func (g *PhasedGroup) updateBounds(positions []int32) {
	first := true
	for i, ok := g.Positives.NextSet(0); ok; i, ok = g.Positives.NextSet(i + 1) {
		pos := positions[i]
		if first || pos < g.MinPos {
			g.MinPos = pos
		}
		if first || pos > g.MaxPos {
			g.MaxPos = pos
		}
		first = false
	}
}

// Total is the unique plus allocated read count.
func (g *PhasedGroup) Total() float64 {
	return float64(g.ReadCount) + g.Allocated
}

// PositiveCount is the number of variants in the group.
func (g *PhasedGroup) PositiveCount() int {
	return int(g.Positives.Count())
}

// Indices returns the counter indices of the positives.
func (g *PhasedGroup) Indices() (indices []int) {
	for i, ok := g.Positives.NextSet(0); ok; i, ok = g.Positives.NextSet(i + 1) {
		indices = append(indices, int(i))
	}
	return
}

func (g *PhasedGroup) exactMatch(minPos, maxPos int32, positives *bitset.BitSet) bool {
	return g.MinPos == minPos && g.MaxPos == maxPos && g.Positives.Equal(positives)
}

// conflicts is true when one group contradicts a variant the other
// supports.
func (g *PhasedGroup) conflicts(other *PhasedGroup) bool {
	return g.Positives.IntersectionCardinality(other.Negatives) > 0 ||
		g.Negatives.IntersectionCardinality(other.Positives) > 0
}

// covers is true when other's positives are a subset of g's, and the
// two groups do not conflict.
func (g *PhasedGroup) covers(other *PhasedGroup) bool {
	return g.Positives.IsSuperSet(other.Positives) && !g.conflicts(other)
}

func (g *PhasedGroup) union(other *PhasedGroup, positions []int32) {
	g.Positives.InPlaceUnion(other.Positives)
	g.Negatives.InPlaceUnion(other.Negatives)
	g.updateBounds(positions)
}
