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

package fragment

import (
	"log"

	"github.com/exascience/elsage/sam"
	"github.com/exascience/elsage/utils"
)

// position describes what a record has at one reference position.
// Soft clipped bases get the positions they would have if aligned.
// Insertions are attached to their anchor position.
type position struct {
	op                        byte
	readIndex                 int
	insertIndex, insertLength int
}

func layout(aln *sam.Alignment) (start int32, positions []position) {
	start = aln.UnclippedStart()
	readIndex := 0
	for _, op := range aln.CIGAR {
		length := int(op.Length)
		switch op.Operation {
		case 'S':
			for i := 0; i < length; i++ {
				positions = append(positions, position{op: 'S', readIndex: readIndex + i})
			}
			readIndex += length
		case 'M', '=', 'X':
			for i := 0; i < length; i++ {
				positions = append(positions, position{op: 'M', readIndex: readIndex + i})
			}
			readIndex += length
		case 'I':
			if len(positions) == 0 {
				log.Panicf("insertion without anchor base in %v", aln)
			}
			last := &positions[len(positions)-1]
			last.insertIndex, last.insertLength = readIndex, length
			readIndex += length
		case 'D', 'N':
			for i := 0; i < length; i++ {
				positions = append(positions, position{op: op.Operation, readIndex: -1})
			}
		}
	}
	return
}

func positionAt(positions []position, start, pos int32) position {
	if index := pos - start; index >= 0 && int(index) < len(positions) {
		return positions[index]
	}
	return position{}
}

func isBase(op byte) bool { return op == 'M' || op == 'S' }

// combinedOperation returns the operation of the combined record at a
// position, or false when the mates disagree.
func combinedOperation(op1, op2 byte, aligned bool) (byte, bool) {
	var op byte
	switch {
	case op1 == 0:
		op = op2
	case op2 == 0:
		op = op1
	case isBase(op1) && isBase(op2):
		op = 'M'
	case op1 == op2:
		op = op1
	default:
		return 0, false
	}
	if isBase(op) {
		if aligned {
			return 'M', true
		}
		return 'S', true
	}
	return op, true
}

// CombinedBaseAndQual chooses the consensus of two overlapping bases.
// Agreeing bases keep the higher quality. For disagreeing bases the
// higher quality base wins, with the difference of both qualities as
// its quality.
func CombinedBaseAndQual(base1, qual1, base2, qual2 byte) (byte, byte) {
	if base1 == base2 {
		if qual1 >= qual2 {
			return base1, qual1
		}
		return base1, qual2
	}
	if qual1 >= qual2 {
		return base1, qual1 - qual2
	}
	return base2, qual2 - qual1
}

type combiner struct {
	first, second *sam.Alignment
	cigar         []sam.CigarOperation
	seq, qual     []byte
	mismatches    int
}

func (c *combiner) appendBase(p1, p2 position) {
	switch {
	case isBase(p1.op) && isBase(p2.op):
		b1, q1 := c.first.SEQ[p1.readIndex], c.first.QUAL[p1.readIndex]
		b2, q2 := c.second.SEQ[p2.readIndex], c.second.QUAL[p2.readIndex]
		if b1 != b2 {
			c.mismatches++
		}
		b, q := CombinedBaseAndQual(b1, q1, b2, q2)
		c.seq, c.qual = append(c.seq, b), append(c.qual, q)
	case isBase(p1.op):
		c.seq = append(c.seq, c.first.SEQ[p1.readIndex])
		c.qual = append(c.qual, c.first.QUAL[p1.readIndex])
	default:
		c.seq = append(c.seq, c.second.SEQ[p2.readIndex])
		c.qual = append(c.qual, c.second.QUAL[p2.readIndex])
	}
}

func (c *combiner) appendInsertion(aln *sam.Alignment, p position) {
	c.cigar = sam.AppendCigarOperation(c.cigar, 'I', int32(p.insertLength))
	c.seq = append(c.seq, aln.SEQ[p.insertIndex:p.insertIndex+p.insertLength]...)
	c.qual = append(c.qual, aln.QUAL[p.insertIndex:p.insertIndex+p.insertLength]...)
}

// spansWithoutInsertion is true when a record aligns both pos and
// pos+1 but has no insertion between them.
func spansWithoutInsertion(positions []position, start, pos int32) bool {
	here, next := positionAt(positions, start, pos), positionAt(positions, start, pos+1)
	return here.op != 0 && here.op != 'S' && next.op != 0 && next.op != 'S' && here.insertLength == 0
}

func combine(first, second *sam.Alignment, maxBaseMismatches int) (*sam.Alignment, Reason, bool) {
	start1, positions1 := layout(first)
	start2, positions2 := layout(second)
	start := minInt32(start1, start2)
	end := maxInt32(start1+int32(len(positions1))-1, start2+int32(len(positions2))-1)
	firstEnd, secondEnd := first.End(), second.End()
	alignedStart := minInt32(first.POS, second.POS)
	alignedEnd := maxInt32(firstEnd, secondEnd)

	c := &combiner{
		first:  first,
		second: second,
		seq:    make([]byte, 0, len(first.SEQ)+len(second.SEQ)),
		qual:   make([]byte, 0, len(first.SEQ)+len(second.SEQ)),
	}
	for pos := start; pos <= end; pos++ {
		p1, p2 := positionAt(positions1, start1, pos), positionAt(positions2, start2, pos)
		op, ok := combinedOperation(p1.op, p2.op, pos >= alignedStart && pos <= alignedEnd)
		if !ok {
			return nil, CigarMismatch, false
		}
		switch op {
		case 0:
			log.Panicf("gap at position %v while combining %v and %v", pos, first, second)
		case 'M', 'S':
			c.cigar = sam.AppendCigarOperation(c.cigar, op, 1)
			c.appendBase(p1, p2)
		default:
			c.cigar = sam.AppendCigarOperation(c.cigar, op, 1)
		}
		switch {
		case p1.insertLength > 0 && p2.insertLength > 0:
			if p1.insertLength != p2.insertLength {
				return nil, CigarMismatch, false
			}
			c.cigar = sam.AppendCigarOperation(c.cigar, 'I', int32(p1.insertLength))
			for i := 0; i < p1.insertLength; i++ {
				c.appendBase(position{op: 'M', readIndex: p1.insertIndex + i}, position{op: 'M', readIndex: p2.insertIndex + i})
			}
		case p1.insertLength > 0:
			if spansWithoutInsertion(positions2, start2, pos) {
				return nil, CigarMismatch, false
			}
			c.appendInsertion(first, p1)
		case p2.insertLength > 0:
			if spansWithoutInsertion(positions1, start1, pos) {
				return nil, CigarMismatch, false
			}
			c.appendInsertion(second, p2)
		}
		if c.mismatches >= maxBaseMismatches {
			return nil, BaseMismatch, false
		}
	}

	result := &sam.Alignment{
		QNAME: first.QNAME,
		FLAG:  first.FLAG,
		RNAME: first.RNAME,
		POS:   alignedStart,
		MAPQ:  first.MAPQ,
		CIGAR: c.cigar,
		RNEXT: first.RNEXT,
		PNEXT: first.PNEXT,
		TLEN:  first.TLEN,
		SEQ:   c.seq,
		QUAL:  c.qual,
		TAGS:  append(utils.SmallMap(nil), first.TAGS...),
		Temps: make(utils.SmallMap, 0, 1),
	}
	result.SetFragment(sam.FragmentCoordinates{
		FirstStart:  first.POS,
		FirstEnd:    firstEnd,
		SecondStart: second.POS,
		SecondEnd:   secondEnd,
	})
	return result, 0, true
}
