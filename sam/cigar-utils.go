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
	"strconv"

	htssam "github.com/biogo/hts/sam"
)

// CigarOperation is one element of a CIGAR string. Operation is the
// uppercase SAM operator character.
type CigarOperation struct {
	Length    int32
	Operation byte
}

// ConsumesReadBases is true for M, I, S, = and X.
func ConsumesReadBases(operation byte) bool {
	switch operation {
	case 'M', 'I', 'S', '=', 'X':
		return true
	}
	return false
}

// ConsumesReferenceBases is true for M, D, N, = and X.
func ConsumesReferenceBases(operation byte) bool {
	switch operation {
	case 'M', 'D', 'N', '=', 'X':
		return true
	}
	return false
}

// AppendHtsCigar appends the operations of a decoded BAM or SAM
// CIGAR to dst.
func AppendHtsCigar(dst []CigarOperation, cigar htssam.Cigar) []CigarOperation {
	for _, op := range cigar {
		dst = append(dst, CigarOperation{
			Length:    int32(op.Len()),
			Operation: op.Type().String()[0],
		})
	}
	return dst
}

// ParseCigar scans a CIGAR string. "*" yields an empty CIGAR.
func ParseCigar(cigar string) ([]CigarOperation, error) {
	ops, err := htssam.ParseCigar([]byte(cigar))
	if err != nil {
		return nil, err
	}
	return AppendHtsCigar(make([]CigarOperation, 0, len(ops)), ops), nil
}

// End returns the 1-based position of the last reference base
// covered by the alignment.
func (aln *Alignment) End() int32 {
	end := aln.POS - 1
	for _, op := range aln.CIGAR {
		if ConsumesReferenceBases(op.Operation) {
			end += op.Length
		}
	}
	return end
}

// ReadLength sums the lengths of all CIGAR operations that consume
// read bases.
func ReadLength(cigar []CigarOperation) (length int32) {
	for _, op := range cigar {
		if ConsumesReadBases(op.Operation) {
			length += op.Length
		}
	}
	return
}

// softClip returns the length of the soft clip at the edge of the
// alignment that next walks towards, skipping hard clips.
func softClip(cigar []CigarOperation, next func(int) int, i int) int32 {
	for ; i >= 0 && i < len(cigar); i = next(i) {
		switch cigar[i].Operation {
		case 'H':
		case 'S':
			return cigar[i].Length
		default:
			return 0
		}
	}
	return 0
}

// LeadingSoftClip is the soft clip length at the start of the CIGAR.
func LeadingSoftClip(cigar []CigarOperation) int32 {
	return softClip(cigar, func(i int) int { return i + 1 }, 0)
}

// TrailingSoftClip is the soft clip length at the end of the CIGAR.
func TrailingSoftClip(cigar []CigarOperation) int32 {
	return softClip(cigar, func(i int) int { return i - 1 }, len(cigar)-1)
}

// UnclippedStart is the alignment start extended by the leading soft
// clip.
func (aln *Alignment) UnclippedStart() int32 {
	return aln.POS - LeadingSoftClip(aln.CIGAR)
}

// UnclippedEnd is the alignment end extended by the trailing soft
// clip.
func (aln *Alignment) UnclippedEnd() int32 {
	return aln.End() + TrailingSoftClip(aln.CIGAR)
}

// NetIndelLength sums insertions positively, and deletions and
// skipped regions negatively.
func NetIndelLength(cigar []CigarOperation) (length int32) {
	for _, op := range cigar {
		switch op.Operation {
		case 'I':
			length += op.Length
		case 'D', 'N':
			length -= op.Length
		}
	}
	return
}

// TotalIndelLength sums the lengths of all insertions and deletions.
func TotalIndelLength(cigar []CigarOperation) (length int32) {
	for _, op := range cigar {
		if op.Operation == 'I' || op.Operation == 'D' {
			length += op.Length
		}
	}
	return
}

// AppendCigarOperation appends an operation, merging it with the
// last element when the operators agree.
func AppendCigarOperation(cigar []CigarOperation, operation byte, length int32) []CigarOperation {
	if length <= 0 {
		return cigar
	}
	if n := len(cigar); n > 0 && cigar[n-1].Operation == operation {
		cigar[n-1].Length += length
		return cigar
	}
	return append(cigar, CigarOperation{Length: length, Operation: operation})
}

// CigarString formats a CIGAR.
func CigarString(cigar []CigarOperation) string {
	if len(cigar) == 0 {
		return "*"
	}
	out := make([]byte, 0, 4*len(cigar))
	for _, op := range cigar {
		out = strconv.AppendInt(out, int64(op.Length), 10)
		out = append(out, op.Operation)
	}
	return string(out)
}
