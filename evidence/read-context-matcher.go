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
	"github.com/exascience/elsage/sam"
	"github.com/exascience/elsage/variant"
)

// MatchType is the outcome of comparing a read against a read
// context.
type MatchType uint8

const (
	NoMatch MatchType = iota
	FullMatch
	PartialMatch
	CoreMatch
	RefMatch
)

var matchTypeNames = [...]string{"NONE", "FULL", "PARTIAL", "CORE", "REF"}

func (t MatchType) String() string {
	return matchTypeNames[t]
}

// haplotype is one side of a read context: the alt bases, or the
// reference bases of the same region.
type haplotype struct {
	bases                          []byte
	index, alleleEnd               int
	leftCore, rightCore            int
	leftFlank, rightFlank          int
	tolerateLowQualityCoreMismatch bool
	// rightSideOnly restricts partial matches to the right side. The
	// allele of an indel is its anchor base, so only the right core
	// tells the indel apart from the reference.
	rightSideOnly bool
}

// ReadContextMatcher classifies reads against the alt and ref
// haplotypes of a read context.
type ReadContextMatcher struct {
	alt, ref       haplotype
	minBaseQuality byte
}

// NewReadContextMatcher creates a matcher. Flank mismatches are
// tolerated when the read base quality is below minBaseQuality.
func NewReadContextMatcher(ctx *variant.ReadContext, isSNV bool, minBaseQuality byte) *ReadContextMatcher {
	tolerant := isSNV && ctx.Microhomology == ""
	indel := ctx.AltLength != ctx.RefLength
	return &ReadContextMatcher{
		alt: haplotype{
			bases:                          ctx.Bases,
			index:                          ctx.Index,
			alleleEnd:                      ctx.AltEndIndex(),
			leftCore:                       ctx.LeftCoreIndex,
			rightCore:                      ctx.RightCoreIndex,
			leftFlank:                      ctx.LeftFlankIndex,
			rightFlank:                     ctx.RightFlankIndex,
			tolerateLowQualityCoreMismatch: tolerant,
			rightSideOnly:                  indel,
		},
		ref: haplotype{
			bases:                          ctx.RefBases,
			index:                          ctx.Index,
			alleleEnd:                      ctx.RefEndIndex(),
			leftCore:                       ctx.LeftCoreIndex,
			rightCore:                      ctx.RefRightCoreIndex,
			leftFlank:                      ctx.LeftFlankIndex,
			rightFlank:                     len(ctx.RefBases) - 1,
			tolerateLowQualityCoreMismatch: tolerant,
			rightSideOnly:                  indel,
		},
		minBaseQuality: minBaseQuality,
	}
}

// Match classifies the read, given the read index of the variant
// position as determined by ResolveRawContext.
func (m *ReadContextMatcher) Match(aln *sam.Alignment, readIndex int) MatchType {
	if readIndex < 0 || readIndex >= len(aln.SEQ) {
		return NoMatch
	}
	altAllele := m.alt.allele(aln, readIndex)
	refAllele := m.ref.allele(aln, readIndex)
	if !altAllele && !refAllele {
		return NoMatch
	}
	if altAllele {
		if match := m.alt.match(aln, readIndex, m.minBaseQuality); match != NoMatch {
			return match
		}
	}
	if refAllele {
		if match := m.ref.match(aln, readIndex, m.minBaseQuality); match != NoMatch {
			return RefMatch
		}
	}
	return NoMatch
}

func (h *haplotype) allele(aln *sam.Alignment, readIndex int) bool {
	end := readIndex + h.alleleEnd - h.index
	if end >= len(aln.SEQ) {
		return false
	}
	for k, ri := h.index, readIndex; ri <= end; k, ri = k+1, ri+1 {
		if h.bases[k] != aln.SEQ[ri] {
			return false
		}
	}
	return true
}

type rangeMatch uint8

const (
	rangeMismatch rangeMatch = iota
	rangeMatched
	// rangeTruncated means the covered bases match, but the read ends
	// before the range does.
	rangeTruncated
	// rangeUncovered means the read covers none of the range.
	rangeUncovered
)

// matchRange compares bases[from..to] against the read. A mismatching
// base fails unless tolerant and of low quality.
func (h *haplotype) matchRange(aln *sam.Alignment, readIndex, from, to int, tolerant bool, minBaseQuality byte) rangeMatch {
	covered := 0
	offset := readIndex - h.index
	for k := from; k <= to; k++ {
		ri := k + offset
		if ri < 0 || ri >= len(aln.SEQ) {
			continue
		}
		if h.bases[k] != aln.SEQ[ri] && (!tolerant || aln.QUAL[ri] >= minBaseQuality) {
			return rangeMismatch
		}
		covered++
	}
	switch {
	case covered > to-from:
		return rangeMatched
	case covered > 0:
		return rangeTruncated
	}
	return rangeUncovered
}

// match requires the allele to match exactly. With both cores
// matching, a flank that matches completely makes a full match, a
// flank that matches up to the end of the read a partial one, and no
// flank at all a core match. With only one core matching, that side's
// flank must match for a partial match.
func (h *haplotype) match(aln *sam.Alignment, readIndex int, minBaseQuality byte) MatchType {
	if h.matchRange(aln, readIndex, h.index, h.alleleEnd, false, minBaseQuality) != rangeMatched {
		return NoMatch
	}
	tolerant := h.tolerateLowQualityCoreMismatch
	matchesLeft := h.matchRange(aln, readIndex, h.leftCore, h.index-1, tolerant, minBaseQuality) == rangeMatched
	matchesRight := h.matchRange(aln, readIndex, h.alleleEnd+1, h.rightCore, tolerant, minBaseQuality) == rangeMatched
	if !matchesLeft && !matchesRight {
		return NoMatch
	}
	leftFlank := h.matchRange(aln, readIndex, h.leftFlank, h.leftCore-1, true, minBaseQuality)
	rightFlank := h.matchRange(aln, readIndex, h.rightCore+1, h.rightFlank, true, minBaseQuality)
	switch {
	case matchesLeft && matchesRight:
		switch {
		case leftFlank == rangeMatched || rightFlank == rangeMatched:
			return FullMatch
		case leftFlank == rangeTruncated || rightFlank == rangeTruncated:
			return PartialMatch
		}
		return CoreMatch
	case matchesLeft:
		if !h.rightSideOnly && leftFlank == rangeMatched {
			return PartialMatch
		}
	case rightFlank == rangeMatched:
		return PartialMatch
	}
	return NoMatch
}
