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

// Package fragment merges overlapping mates of a read pair into a
// single consensus record.
package fragment

import (
	"fmt"
	"log"

	"github.com/exascience/elsage/sam"
)

// Reason tells why two mates could not be combined.
type Reason uint8

const (
	NoOverlap Reason = iota
	NoOverlapCigarDiff
	CigarMismatch
	BaseMismatch
	Exception
	reasonCount
)

var reasonNames = [...]string{"NO_OVERLAP", "NO_OVERLAP_CIGAR_DIFF", "CIGAR_MISMATCH", "BASE_MISMATCH", "EXCEPTION"}

func (reason Reason) String() string {
	return reasonNames[reason]
}

// Result is either Combined or Unsynced.
type Result interface {
	isResult()
}

// Combined holds the consensus record of two mates.
type Combined struct {
	Alignment *sam.Alignment
}

// Unsynced holds the reason why two mates were not combined.
type Unsynced struct {
	Reason Reason
}

func (Combined) isResult() {}
func (Unsynced) isResult() {}

// Retained returns the mates that should still be processed after a
// failed synchronization. After a CIGAR mismatch the mate with the
// shorter total indel length is kept, favoring the first on ties.
// After a base mismatch only the first mate is kept.
func (u Unsynced) Retained(first, second *sam.Alignment) []*sam.Alignment {
	switch u.Reason {
	case CigarMismatch:
		if sam.TotalIndelLength(second.CIGAR) < sam.TotalIndelLength(first.CIGAR) {
			return []*sam.Alignment{second}
		}
		return []*sam.Alignment{first}
	case BaseMismatch:
		return []*sam.Alignment{first}
	default:
		return []*sam.Alignment{first, second}
	}
}

// Stats counts synchronization outcomes.
type Stats struct {
	Combined int
	Unsynced [reasonCount]int
}

// Add records a result.
func (stats *Stats) Add(result Result) {
	switch r := result.(type) {
	case Combined:
		stats.Combined++
	case Unsynced:
		stats.Unsynced[r.Reason]++
	}
}

// Merge adds the counts of other.
func (stats *Stats) Merge(other *Stats) {
	stats.Combined += other.Combined
	for i, n := range other.Unsynced {
		stats.Unsynced[i] += n
	}
}

func (stats *Stats) String() string {
	return fmt.Sprintf("combined %d, no overlap %d, soft clip overlap %d, cigar mismatch %d, base mismatch %d, exceptions %d",
		stats.Combined, stats.Unsynced[NoOverlap], stats.Unsynced[NoOverlapCigarDiff],
		stats.Unsynced[CigarMismatch], stats.Unsynced[BaseMismatch], stats.Unsynced[Exception])
}

// Synchronizer combines overlapping mates.
type Synchronizer struct {
	MaxBaseMismatches int
}

// TrySync attempts to combine two mates into a single record. The
// mates are not modified.
func (s Synchronizer) TrySync(first, second *sam.Alignment) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("failed to combine mates %v and %v: %v", first, second, r)
			result = Unsynced{Reason: Exception}
		}
	}()
	if first.RNAME != second.RNAME {
		return Unsynced{Reason: NoOverlap}
	}
	firstEnd, secondEnd := first.End(), second.End()
	if firstEnd < second.POS || secondEnd < first.POS {
		if first.UnclippedEnd() >= second.UnclippedStart() && second.UnclippedEnd() >= first.UnclippedStart() {
			return Unsynced{Reason: NoOverlapCigarDiff}
		}
		return Unsynced{Reason: NoOverlap}
	}
	if indelsConflict(first, second) {
		return Unsynced{Reason: CigarMismatch}
	}
	combined, reason, ok := combine(first, second, s.MaxBaseMismatches)
	if !ok {
		return Unsynced{Reason: reason}
	}
	return Combined{Alignment: combined}
}

// indelSpan returns the reference interval affected by the indels of
// aln, starting at the anchor base.
func indelSpan(aln *sam.Alignment) (start, end int32, ok bool) {
	refPos := aln.POS
	for _, op := range aln.CIGAR {
		switch op.Operation {
		case 'I':
			if !ok {
				start = refPos - 1
			}
			end, ok = refPos, true
		case 'D', 'N':
			if !ok {
				start = refPos - 1
			}
			end, ok = refPos+op.Length, true
			refPos += op.Length
		case 'M', '=', 'X':
			refPos += op.Length
		}
	}
	return
}

// indelsConflict is true when the mates disagree on their net indel
// length and the indels of either mate lie in the region both mates
// align to.
func indelsConflict(first, second *sam.Alignment) bool {
	if sam.NetIndelLength(first.CIGAR) == sam.NetIndelLength(second.CIGAR) {
		return false
	}
	overlapStart := maxInt32(first.POS, second.POS)
	overlapEnd := minInt32(first.End(), second.End())
	for _, aln := range [2]*sam.Alignment{first, second} {
		if start, end, ok := indelSpan(aln); ok && start <= overlapEnd && end >= overlapStart {
			return true
		}
	}
	return false
}

func minInt32(x, y int32) int32 {
	if x < y {
		return x
	}
	return y
}

func maxInt32(x, y int32) int32 {
	if x > y {
		return x
	}
	return y
}
