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
	"bytes"

	"github.com/exascience/elsage/sam"
	"github.com/exascience/elsage/variant"
)

// RawContextType classifies how an alignment covers a variant
// position, independent of any read context.
type RawContextType uint8

const (
	// RawInvalid means no CIGAR element touches the variant.
	RawInvalid RawContextType = iota
	RawAligned
	RawDeleted
	RawSkipped
	RawSoftClip
	RawLowQualSoftClip
)

var rawContextTypeNames = [...]string{"INVALID", "ALIGNED", "DELETED", "SKIPPED", "SOFT_CLIP", "LOW_QUAL"}

func (t RawContextType) String() string {
	return rawContextTypeNames[t]
}

// RawContext is the result of resolving a variant against the CIGAR
// of a single alignment. ReadIndex is the read index of the variant
// position (of the anchor base for indels), or -1 when invalid.
type RawContext struct {
	ReadIndex    int
	Type         RawContextType
	DepthSupport bool
	AltSupport   bool
	RefSupport   bool
	BaseQuality  int
}

var invalidRawContext = RawContext{ReadIndex: -1, Type: RawInvalid}

// Valid is true when the context has a usable read index.
func (raw RawContext) Valid() bool {
	return raw.Type != RawInvalid && raw.ReadIndex >= 0
}

// SoftClipPolicy determines when soft clipped bases are considered too
// noisy to provide evidence.
type SoftClipPolicy struct {
	MinLength           int
	MinHighQualFraction float64
	MinBaseQuality      byte
}

// IsLowQuality reports whether the given clip qualities are too poor
// to be used. Clips shorter than MinLength are never low quality.
func (policy SoftClipPolicy) IsLowQuality(quals []byte) bool {
	if len(quals) < policy.MinLength || len(quals) == 0 {
		return false
	}
	highQual := 0
	for _, q := range quals {
		if q >= policy.MinBaseQuality {
			highQual++
		}
	}
	return float64(highQual) < policy.MinHighQualFraction*float64(len(quals))
}

func (policy SoftClipPolicy) softClipContext(aln *sam.Alignment, readIndex int, clipStart, clipEnd int) RawContext {
	if policy.IsLowQuality(aln.QUAL[clipStart:clipEnd]) {
		return RawContext{ReadIndex: readIndex, Type: RawLowQualSoftClip}
	}
	return RawContext{ReadIndex: readIndex, Type: RawSoftClip}
}

func minQuality(quals []byte) int {
	if len(quals) == 0 {
		return 0
	}
	result := quals[0]
	for _, q := range quals[1:] {
		if q < result {
			result = q
		}
	}
	return int(result)
}

func nextOperation(cigar []sam.CigarOperation, i int) byte {
	for j := i + 1; j < len(cigar); j++ {
		if op := cigar[j].Operation; op != 'H' && op != 'P' {
			return op
		}
	}
	return 0
}

// ResolveRawContext walks the CIGAR of aln to find the read index and
// raw classification of the variant position. The first CIGAR element
// that touches the variant determines the result.
func ResolveRawContext(v *variant.Variant, aln *sam.Alignment, policy SoftClipPolicy) RawContext {
	var (
		readIndex int
		refPos    = aln.POS
		cigar     = aln.CIGAR
		seenMatch bool
	)
	for i, op := range cigar {
		length := int(op.Length)
		switch op.Operation {
		case 'H', 'P':
		case 'S':
			if !seenMatch {
				if v.Pos < aln.POS && v.Pos >= aln.POS-op.Length {
					index := readIndex + length - int(aln.POS-v.Pos)
					return policy.softClipContext(aln, index, readIndex, readIndex+length)
				}
			} else if v.Pos >= refPos && v.Pos < refPos+op.Length {
				index := readIndex + int(v.Pos-refPos)
				return policy.softClipContext(aln, index, readIndex, readIndex+length)
			}
			readIndex += length
		case 'M', '=', 'X':
			seenMatch = true
			end := refPos + op.Length - 1
			if v.Pos >= refPos && v.Pos <= end {
				index := readIndex + int(v.Pos-refPos)
				if raw, ok := resolveAlignedBlock(v, aln, index, v.Pos < end, nextOperation(cigar, i)); ok {
					return raw
				}
			}
			readIndex += length
			refPos += op.Length
		case 'I':
			if seenMatch && refPos-1 == v.Pos {
				raw := RawContext{ReadIndex: readIndex - 1, Type: RawAligned, DepthSupport: true}
				if v.IsInsert() && length == len(v.Alt)-len(v.Ref) &&
					bytes.Equal(aln.SEQ[readIndex:readIndex+length], []byte(v.Alt[len(v.Ref):])) {
					raw.AltSupport = true
					raw.BaseQuality = minQuality(aln.QUAL[readIndex-1 : readIndex+length])
				}
				return raw
			}
			readIndex += length
		case 'D', 'N':
			if seenMatch && refPos-1 == v.Pos {
				raw := RawContext{ReadIndex: readIndex - 1, Type: RawAligned, DepthSupport: true}
				if op.Operation == 'D' && v.IsDelete() && length == len(v.Ref)-len(v.Alt) {
					raw.AltSupport = true
					raw.BaseQuality = minQuality(aln.QUAL[readIndex-1 : minInt(readIndex+1, len(aln.QUAL))])
				}
				return raw
			}
			if v.Pos >= refPos && v.Pos < refPos+op.Length {
				if op.Operation == 'N' {
					return RawContext{ReadIndex: -1, Type: RawSkipped}
				}
				return RawContext{ReadIndex: readIndex, Type: RawDeleted, DepthSupport: true}
			}
			refPos += op.Length
		}
	}
	return invalidRawContext
}

// resolveAlignedBlock classifies a variant that falls inside an
// aligned block. An indel anchored on the last base of the block is
// left to the following insertion or deletion element.
func resolveAlignedBlock(v *variant.Variant, aln *sam.Alignment, index int, inside bool, next byte) (RawContext, bool) {
	raw := RawContext{ReadIndex: index, Type: RawAligned, DepthSupport: true}
	if v.IsIndel() {
		if !inside && (next == 'I' || next == 'D' || next == 'N') {
			return raw, false
		}
		if inside {
			raw.RefSupport = true
			raw.BaseQuality = int(aln.QUAL[index])
		}
		return raw, true
	}
	end := index + len(v.Ref)
	if end > len(aln.SEQ) {
		return raw, true
	}
	switch bases := aln.SEQ[index:end]; {
	case string(bases) == v.Alt:
		raw.AltSupport = true
		raw.BaseQuality = minQuality(aln.QUAL[index:end])
	case string(bases) == v.Ref:
		raw.RefSupport = true
		raw.BaseQuality = minQuality(aln.QUAL[index:end])
	}
	return raw, true
}

func minInt(x, y int) int {
	if x < y {
		return x
	}
	return y
}

func maxInt(x, y int) int {
	if x > y {
		return x
	}
	return y
}
