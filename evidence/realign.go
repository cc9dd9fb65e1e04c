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
	"github.com/exascience/elsage/variant"
)

// RealignedType is the outcome of trying to explain a read through
// repeat jitter.
type RealignedType uint8

const (
	RealignedNone RealignedType = iota
	RealignedExact
	RealignedShortened
	RealignedLengthened
)

var realignedTypeNames = [...]string{"NONE", "EXACT", "SHORTENED", "LENGTHENED"}

func (t RealignedType) String() string {
	return realignedTypeNames[t]
}

// Realigned is the result of a realignment attempt. RepeatCount is
// the number of repeat units observed in the read for shortened and
// lengthened results.
type Realigned struct {
	Type        RealignedType
	RepeatCount int
}

var realignedNone = Realigned{Type: RealignedNone}

const (
	// MinJitterRepeatCount is the minimum number of copies of a
	// repeat in the read context for jitter to be considered.
	MinJitterRepeatCount = 4

	minRealignMatchLength = 1
)

// NeedsRealignment is true for read contexts where a failed match can
// be explained by jitter.
func NeedsRealignment(v *variant.Variant, ctx *variant.ReadContext) bool {
	return v.IsIndel() || ctx.MaxRepeatCount() >= MinJitterRepeatCount
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Realign slides the full read context window over the read around
// the expected start, as derived from readIndex, the read index of the
// variant position. An exact match at any offset wins; otherwise the
// first shortened or lengthened match is returned.
func Realign(ctx *variant.ReadContext, readIndex int, readBases []byte) Realigned {
	expectedStart := readIndex - ctx.Index
	maxDistance := maxInt(abs(ctx.IndelLength())+ctx.CoreLength(), variant.MaxRepeatUnitLength)
	result := realignedNone
	for distance := 0; distance <= maxDistance; distance++ {
		for _, offset := range [2]int{-distance, distance} {
			if distance == 0 && offset > 0 {
				continue
			}
			realigned := realignAt(ctx, expectedStart+offset, readBases)
			switch realigned.Type {
			case RealignedExact:
				return realigned
			case RealignedShortened, RealignedLengthened:
				if result.Type == RealignedNone {
					result = realigned
				}
			}
		}
	}
	return result
}

func matchesAt(window, read []byte, start int) bool {
	if start < 0 || start+len(window) > len(read) {
		return false
	}
	for i, b := range window {
		if read[start+i] != b {
			return false
		}
	}
	return true
}

func realignAt(ctx *variant.ReadContext, start int, read []byte) Realigned {
	if start < 0 || start >= len(read) {
		return realignedNone
	}
	window := ctx.Bases
	matched := 0
	for matched < len(window) && start+matched < len(read) && window[matched] == read[start+matched] {
		matched++
	}
	if matched == len(window) {
		return Realigned{Type: RealignedExact}
	}
	if matched < minRealignMatchLength || start+matched >= len(read) {
		return realignedNone
	}
	for _, repeat := range ctx.Repeats {
		unit := len(repeat.Unit)
		if repeat.Count < MinJitterRepeatCount || matched < repeat.StartIndex || matched > repeat.EndIndex+unit {
			continue
		}
		shortened := make([]byte, 0, len(window))
		shortened = append(append(shortened, window[:repeat.EndIndex-unit]...), window[repeat.EndIndex:]...)
		if matchesAt(shortened, read, start) {
			return Realigned{Type: RealignedShortened, RepeatCount: repeat.Count - 1}
		}
		lengthened := make([]byte, 0, len(window)+unit)
		lengthened = append(append(append(lengthened, window[:repeat.EndIndex]...), repeat.Unit...), window[repeat.EndIndex:]...)
		if matchesAt(lengthened, read, start) {
			return Realigned{Type: RealignedLengthened, RepeatCount: repeat.Count + 1}
		}
	}
	return realignedNone
}
