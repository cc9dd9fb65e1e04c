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

// ArtefactSuppressor caps the base quality of reads next to long
// homopolymers. Forward reads are capped by a homopolymer that ends
// right before the variant, reverse reads by one that starts right
// after the alt allele.
type ArtefactSuppressor struct {
	forwardOffset, reverseOffset int
	forward, reverse             bool
}

// NewArtefactSuppressor inspects the read context for homopolymers of
// at least minLength bases adjacent to the alt allele.
func NewArtefactSuppressor(ctx *variant.ReadContext, minLength int) *ArtefactSuppressor {
	suppressor := &ArtefactSuppressor{}
	if length := variant.HomopolymerLengthLeftOf(ctx.Bases, ctx.Index); length >= minLength {
		suppressor.forward = true
		suppressor.forwardOffset = (ctx.Index - length - 1) - ctx.Index
	}
	altEnd := ctx.AltEndIndex()
	if length := variant.HomopolymerLengthRightOf(ctx.Bases, altEnd); length >= minLength {
		suppressor.reverse = true
		suppressor.reverseOffset = (altEnd + length + 1) - ctx.Index
	}
	return suppressor
}

// Active is true when any cap applies.
func (suppressor *ArtefactSuppressor) Active() bool {
	return suppressor.forward || suppressor.reverse
}

// ApplicableBaseQualityCap returns the quality of the first read base
// past the homopolymer, seen from the variant at readIndex, for the
// strand of the read.
func (suppressor *ArtefactSuppressor) ApplicableBaseQualityCap(aln *sam.Alignment, readIndex int) (byte, bool) {
	var offset int
	if aln.IsReversed() {
		if !suppressor.reverse {
			return 0, false
		}
		offset = suppressor.reverseOffset
	} else {
		if !suppressor.forward {
			return 0, false
		}
		offset = suppressor.forwardOffset
	}
	index := readIndex + offset
	if index < 0 || index >= len(aln.QUAL) {
		return 0, false
	}
	return aln.QUAL[index], true
}
