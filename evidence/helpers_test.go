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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/exascience/elsage/config"
	"github.com/exascience/elsage/fasta"
	"github.com/exascience/elsage/sam"
	"github.com/exascience/elsage/variant"
)

const (
	uniqueReference      = "TGCATGCAAGTCCGATCGTAGCTTACGGATCCATGCAAGT"
	repeatReference      = "GATCCGTAGCTGAGC" + "ACACACAC" + "GTCTGAGCTTGAACGTAGCT"
	strReference         = "GATCCGTAGCTGAGC" + "ACACACACACAC" + "GTCTGAGCTTGAACGTAGCT"
	homopolymerReference = "GCTTCGATGCAC" + "AAAAAAAA" + "G" + "TCAGCTAGCATGCCTAGGAC"
)

func testReference() fasta.Fasta {
	return fasta.Fasta{
		"unique":      []byte(uniqueReference),
		"repeat":      []byte(repeatReference),
		"str":         []byte(strReference),
		"homopolymer": []byte(homopolymerReference),
	}
}

// substitute replaces the bases starting at the 1-based position pos.
func substitute(bases string, pos int32, replacement string) string {
	return bases[:pos-1] + replacement + bases[int(pos)-1+len(replacement):]
}

// deleteBases removes length bases following the 1-based position pos.
func deleteBases(bases string, pos int32, length int) string {
	return bases[:pos] + bases[int(pos)+length:]
}

// insertBases inserts bases after the 1-based position pos.
func insertBases(bases string, pos int32, inserted string) string {
	return bases[:pos] + inserted + bases[pos:]
}

func mustParseCigar(cigar string) []sam.CigarOperation {
	ops, err := sam.ParseCigar(cigar)
	if err != nil {
		panic(err)
	}
	return ops
}

func newRead(name string, flag uint16, contig string, pos int32, cigar, seq string, qual byte) *sam.Alignment {
	aln := sam.NewAlignment()
	aln.QNAME = name
	aln.FLAG = flag
	aln.RNAME = contig
	aln.POS = pos
	aln.MAPQ = 60
	aln.CIGAR = mustParseCigar(cigar)
	aln.RNEXT = "*"
	aln.SEQ = []byte(seq)
	aln.QUAL = bytes.Repeat([]byte{qual}, len(seq))
	return aln
}

func newCandidate(t *testing.T, cfg *config.Config, v *variant.Variant) *Candidate {
	candidates, err := NewCandidates([]*variant.Variant{v}, testReference(), cfg)
	require.NoError(t, err)
	return candidates[0]
}

func newTestCounter(t *testing.T, cfg *config.Config, v *variant.Variant) *Counter {
	return NewCounter(0, newCandidate(t, cfg, v), cfg, nil)
}

var (
	uniqueSNV      = &variant.Variant{Chrom: "unique", Pos: 20, Ref: "A", Alt: "T"}
	uniqueSNV2     = &variant.Variant{Chrom: "unique", Pos: 30, Ref: "T", Alt: "A"}
	repeatDelete   = &variant.Variant{Chrom: "repeat", Pos: 15, Ref: "CAC", Alt: "C"}
	repeatInsert   = &variant.Variant{Chrom: "repeat", Pos: 15, Ref: "C", Alt: "CAC"}
	strDelete      = &variant.Variant{Chrom: "str", Pos: 15, Ref: "CAC", Alt: "C"}
	homopolymerSNV = &variant.Variant{Chrom: "homopolymer", Pos: 21, Ref: "G", Alt: "T"}
)

// uniqueAltRead is a forward read over the whole unique contig that
// carries uniqueSNV.
func uniqueAltRead(name string) *sam.Alignment {
	return newRead(name, 0, "unique", 1, "40M", substitute(uniqueReference, 20, "T"), 30)
}

func uniqueRefRead(name string) *sam.Alignment {
	return newRead(name, 0, "unique", 1, "40M", uniqueReference, 30)
}

// counts summarizes the tallies of a counter for comparisons.
func counts(c *Counter) []int {
	return []int{
		c.Full, c.Partial, c.Core, c.Realigned, c.Alt, c.Ref, c.Total,
		c.FullQuality, c.PartialQuality, c.CoreQuality, c.RealignedQuality, c.AltQuality, c.RefQuality, c.TotalQuality,
		c.RawDepth, c.RawAltSupport, c.RawRefSupport, c.RawAltBaseQuality, c.RawRefBaseQuality,
		c.ForwardSupport, c.ReverseSupport, c.ImproperPairs,
		c.Jitter.Shortened, c.Jitter.Lengthened,
	}
}
