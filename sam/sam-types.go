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

package sam

import (
	"fmt"

	"github.com/exascience/elsage/utils"
)

// Alignment is a decoded alignment record as delivered by a read
// source. SEQ holds uppercase ASCII bases, QUAL holds phred values
// without an ASCII offset, one per base.
//
// Records are owned by the read source for the duration of one
// callback. Use Copy when a record has to outlive that callback.
type Alignment struct {
	QNAME string
	FLAG  uint16
	RNAME string
	POS   int32
	MAPQ  byte
	CIGAR []CigarOperation
	RNEXT string
	PNEXT int32
	TLEN  int32
	SEQ   []byte
	QUAL  []byte
	TAGS  utils.SmallMap
	Temps utils.SmallMap
}

var (
	// NM is the edit distance tag.
	NM = utils.Intern("NM")

	// MateCoordinates marks records synthesized from two overlapping
	// mates. The value is a FragmentCoordinates.
	MateCoordinates = utils.Intern("MATE_COORDINATES")
)

// FragmentCoordinates records the original alignment intervals of
// two mates that were combined into a single record.
type FragmentCoordinates struct {
	FirstStart, FirstEnd   int32
	SecondStart, SecondEnd int32
}

// NewAlignment allocates a new alignment with empty tag maps.
func NewAlignment() *Alignment {
	return &Alignment{
		TAGS:  make(utils.SmallMap, 0, 4),
		Temps: make(utils.SmallMap, 0, 2),
	}
}

// Copy returns a deep copy of the bases, qualities and CIGAR of the
// alignment, so that it can be retained after the read source reuses
// its buffers.
func (aln *Alignment) Copy() *Alignment {
	result := *aln
	result.CIGAR = append([]CigarOperation(nil), aln.CIGAR...)
	result.SEQ = append([]byte(nil), aln.SEQ...)
	result.QUAL = append([]byte(nil), aln.QUAL...)
	result.TAGS = append(utils.SmallMap(nil), aln.TAGS...)
	result.Temps = append(utils.SmallMap(nil), aln.Temps...)
	return &result
}

// NMTag returns the value of the NM tag, if present.
func (aln *Alignment) NMTag() (int32, bool) {
	value, ok := aln.TAGS.Get(NM)
	if !ok {
		return 0, false
	}
	switch v := value.(type) {
	case int32:
		return v, true
	case int:
		return int32(v), true
	case int64:
		return int32(v), true
	}
	return 0, false
}

// Fragment returns the original mate coordinates when the alignment
// is a combined fragment record.
func (aln *Alignment) Fragment() (FragmentCoordinates, bool) {
	value, ok := aln.Temps.Get(MateCoordinates)
	if !ok {
		return FragmentCoordinates{}, false
	}
	return value.(FragmentCoordinates), true
}

// SetFragment tags the alignment with the original mate coordinates.
func (aln *Alignment) SetFragment(coords FragmentCoordinates) {
	aln.Temps.Set(MateCoordinates, coords)
}

// String returns a short description for log messages.
func (aln *Alignment) String() string {
	return fmt.Sprintf("%v %v:%v-%v %v", aln.QNAME, aln.RNAME, aln.POS, aln.End(), CigarString(aln.CIGAR))
}

// Flag bits of the SAM format.
const (
	Multiple      = 0x1
	Proper        = 0x2
	Unmapped      = 0x4
	NextUnmapped  = 0x8
	Reversed      = 0x10
	NextReversed  = 0x20
	First         = 0x40
	Last          = 0x80
	Secondary     = 0x100
	QCFailed      = 0x200
	Duplicate     = 0x400
	Supplementary = 0x800
)

func (aln *Alignment) IsMultiple() bool     { return aln.FLAG&Multiple != 0 }
func (aln *Alignment) IsProper() bool       { return aln.FLAG&Proper != 0 }
func (aln *Alignment) IsNextUnmapped() bool { return aln.FLAG&NextUnmapped != 0 }
func (aln *Alignment) IsReversed() bool     { return aln.FLAG&Reversed != 0 }

// FlagNotAny is true when none of the given flag bits are set.
func (aln *Alignment) FlagNotAny(flag uint16) bool { return aln.FLAG&flag == 0 }

// IsImproperPair is true for paired reads that the aligner did not
// mark as properly paired.
func (aln *Alignment) IsImproperPair() bool {
	return aln.IsMultiple() && !aln.IsProper()
}

// IsMateOf is true when aln and other are the first and last segment
// of a template, in either order.
func (aln *Alignment) IsMateOf(other *Alignment) bool {
	const segments = First | Last
	a, b := aln.FLAG&segments, other.FLAG&segments
	return (a == First && b == Last) || (a == Last && b == First)
}

// MateContig returns the contig of the mate, resolving "=".
func (aln *Alignment) MateContig() string {
	if aln.RNEXT == "=" {
		return aln.RNAME
	}
	return aln.RNEXT
}
