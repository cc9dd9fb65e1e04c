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

package variant

import (
	"fmt"
)

// Reference provides reference bases for 1-based, inclusive
// intervals. Intervals that extend past the contig are clipped.
type Reference interface {
	Bases(contig string, start, end int32) ([]byte, bool)
}

const (
	// DefaultFlankSize is the number of bases on either side of the
	// core.
	DefaultFlankSize = 10

	// DefaultCoreExtension is the number of bases the core extends
	// beyond the alt allele on either side.
	DefaultCoreExtension = 2

	contextReferencePadding = 100
	minCoreRepeatCount      = 2
)

/*
ReadContext is the sequence context that defines support for a
variant. Bases holds the alternate haplotype: a left flank, a core
that spans the alt allele, and a right flank. RefBases holds the
reference haplotype of the same region, aligned at the same left edge.

Index is the position of the first alt base (the variant position)
within Bases. All other indices are inclusive and relative to Bases;
RefRightCoreIndex is relative to RefBases.

A ReadContext is immutable once constructed and is shared by all
counters of its variant.
*/
type ReadContext struct {
	Position int32

	Bases []byte
	Index int

	LeftCoreIndex, RightCoreIndex   int
	LeftFlankIndex, RightFlankIndex int

	RefBases          []byte
	RefRightCoreIndex int

	AltLength, RefLength int

	Microhomology string
	Repeats       []Repeat
}

// CoreLength is the number of bases in the core.
func (ctx *ReadContext) CoreLength() int {
	return ctx.RightCoreIndex - ctx.LeftCoreIndex + 1
}

// AltEndIndex is the index of the last alt base.
func (ctx *ReadContext) AltEndIndex() int {
	return ctx.Index + ctx.AltLength - 1
}

// RefEndIndex is the index of the last ref base within RefBases.
func (ctx *ReadContext) RefEndIndex() int {
	return ctx.Index + ctx.RefLength - 1
}

// LeftCoreLength is the number of core bases before the variant.
func (ctx *ReadContext) LeftCoreLength() int {
	return ctx.Index - ctx.LeftCoreIndex
}

// RightCoreLength is the number of core bases after the alt allele.
func (ctx *ReadContext) RightCoreLength() int {
	return ctx.RightCoreIndex - ctx.AltEndIndex()
}

// IndelLength is positive for insertions and negative for deletions.
func (ctx *ReadContext) IndelLength() int {
	return ctx.AltLength - ctx.RefLength
}

// MaxRepeatCount returns the largest copy count among the repeats
// of the context, or 0 if there are none.
func (ctx *ReadContext) MaxRepeatCount() (count int) {
	for _, r := range ctx.Repeats {
		if r.Count > count {
			count = r.Count
		}
	}
	return
}

func (ctx *ReadContext) String() string {
	return fmt.Sprintf("%s[%s]%s",
		ctx.Bases[ctx.LeftFlankIndex:ctx.LeftCoreIndex],
		ctx.Bases[ctx.LeftCoreIndex:ctx.RightCoreIndex+1],
		ctx.Bases[ctx.RightCoreIndex+1:ctx.RightFlankIndex+1])
}

// Validate checks the index bookkeeping of a read context.
func (ctx *ReadContext) Validate() error {
	switch {
	case ctx.AltLength < 1 || ctx.RefLength < 1:
		return fmt.Errorf("read context %v has empty alleles", ctx.Position)
	case ctx.LeftFlankIndex < 0 || ctx.RightFlankIndex >= len(ctx.Bases):
		return fmt.Errorf("read context %v has flanks outside its bases", ctx.Position)
	case ctx.LeftFlankIndex > ctx.LeftCoreIndex || ctx.LeftCoreIndex > ctx.Index:
		return fmt.Errorf("read context %v has an invalid left core", ctx.Position)
	case ctx.AltEndIndex() > ctx.RightCoreIndex || ctx.RightCoreIndex > ctx.RightFlankIndex:
		return fmt.Errorf("read context %v has an invalid right core", ctx.Position)
	case ctx.RefRightCoreIndex >= len(ctx.RefBases) || ctx.RefEndIndex() > ctx.RefRightCoreIndex:
		return fmt.Errorf("read context %v has an invalid reference core", ctx.Position)
	}
	return nil
}

func commonPrefixLength(a, b []byte) (n int) {
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return
}

// NewReadContext derives the read context of a variant from the
// reference. The core spans the alt allele extended by coreExtension
// bases on either side; for indels it additionally covers the
// microhomology and any repeat touching the allele, plus the core
// extension beyond the repeat, so that repeat jitter falls inside the
// core.
func NewReadContext(v *Variant, ref Reference, flankSize, coreExtension int) (*ReadContext, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	refAllele, ok := ref.Bases(v.Chrom, v.Pos, v.End())
	if !ok || len(refAllele) != len(v.Ref) {
		return nil, fmt.Errorf("variant %v lies outside reference contig %v", v, v.Chrom)
	}
	if string(refAllele) != v.Ref {
		return nil, fmt.Errorf("variant %v does not match reference bases %s", v, refAllele)
	}
	left, _ := ref.Bases(v.Chrom, v.Pos-contextReferencePadding, v.Pos-1)
	right, _ := ref.Bases(v.Chrom, v.End()+1, v.End()+contextReferencePadding)

	haplotype := make([]byte, 0, len(left)+len(v.Alt)+len(right))
	haplotype = append(append(append(haplotype, left...), v.Alt...), right...)
	refHaplotype := make([]byte, 0, len(left)+len(v.Ref)+len(right))
	refHaplotype = append(append(append(refHaplotype, left...), v.Ref...), right...)

	index := len(left)
	altEnd := index + len(v.Alt) - 1
	leftCore := index - coreExtension
	rightCore := altEnd + coreExtension

	var microhomology []byte
	if v.IsIndel() {
		if v.IsDelete() {
			deleted := []byte(v.Ref[1:])
			microhomology = deleted[:commonPrefixLength(deleted, right)]
		} else {
			inserted := []byte(v.Alt[1:])
			microhomology = inserted[:commonPrefixLength(inserted, right)]
		}
		rightCore += len(microhomology)
		repeatExtension := maxInt(1, coreExtension)
		for _, r := range FindRepeats(haplotype, minCoreRepeatCount) {
			if r.StartIndex <= altEnd+1 && r.EndIndex >= index {
				leftCore = minInt(leftCore, r.StartIndex-repeatExtension)
				rightCore = maxInt(rightCore, r.EndIndex-1+repeatExtension)
			}
		}
	}

	leftCore = maxInt(0, leftCore)
	rightCore = minInt(len(haplotype)-1, rightCore)
	leftFlank := maxInt(0, leftCore-flankSize)
	rightFlank := minInt(len(haplotype)-1, rightCore+flankSize)

	indelLength := len(v.Alt) - len(v.Ref)
	bases := append([]byte(nil), haplotype[leftFlank:rightFlank+1]...)
	refBases := append([]byte(nil), refHaplotype[leftFlank:rightFlank+1-indelLength]...)

	ctx := &ReadContext{
		Position:          v.Pos,
		Bases:             bases,
		Index:             index - leftFlank,
		LeftCoreIndex:     leftCore - leftFlank,
		RightCoreIndex:    rightCore - leftFlank,
		LeftFlankIndex:    0,
		RightFlankIndex:   rightFlank - leftFlank,
		RefBases:          refBases,
		RefRightCoreIndex: rightCore - leftFlank - indelLength,
		AltLength:         len(v.Alt),
		RefLength:         len(v.Ref),
		Microhomology:     string(microhomology),
		Repeats:           FindRepeats(bases, minCoreRepeatCount),
	}
	if err := ctx.Validate(); err != nil {
		return nil, fmt.Errorf("%w, for variant %v", err, v)
	}
	return ctx, nil
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
