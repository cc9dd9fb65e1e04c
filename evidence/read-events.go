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

// ReadEvents counts the mismatches of aln against the reference plus
// one per insertion or deletion. Without a reference, or for contigs
// the reference does not know, the NM tag is used instead.
func ReadEvents(aln *sam.Alignment, ref variant.Reference) int {
	if ref != nil {
		if bases, ok := ref.Bases(aln.RNAME, aln.POS, aln.End()); ok && int32(len(bases)) == aln.End()-aln.POS+1 {
			return countReadEvents(aln, bases)
		}
	}
	if nm, ok := aln.NMTag(); ok {
		return int(nm)
	}
	return 0
}

func countReadEvents(aln *sam.Alignment, refBases []byte) (events int) {
	readIndex, refIndex := 0, 0
	for _, op := range aln.CIGAR {
		length := int(op.Length)
		switch op.Operation {
		case 'M', '=', 'X':
			for i := 0; i < length; i++ {
				if b := aln.SEQ[readIndex+i]; b != refBases[refIndex+i] && b != 'N' && refBases[refIndex+i] != 'N' {
					events++
				}
			}
			readIndex += length
			refIndex += length
		case 'I':
			events++
			readIndex += length
		case 'D':
			events++
			refIndex += length
		case 'N':
			refIndex += length
		case 'S':
			readIndex += length
		}
	}
	return events
}
