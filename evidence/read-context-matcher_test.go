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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exascience/elsage/config"
	"github.com/exascience/elsage/variant"
)

func newTestMatcher(t *testing.T, v *variant.Variant) *ReadContextMatcher {
	c := newCandidate(t, config.Default(), v)
	return NewReadContextMatcher(c.Context, v.IsSNV(), 10)
}

func TestMatchSNV(t *testing.T) {
	m := newTestMatcher(t, uniqueSNV)
	alt := substitute(uniqueReference, 20, "T")

	tests := []struct {
		name      string
		seq       string
		readIndex int
		expected  MatchType
	}{
		{"alt", alt, 19, FullMatch},
		{"ref", uniqueReference, 19, RefMatch},
		{"other allele", substitute(uniqueReference, 20, "G"), 19, NoMatch},
		{"right core mismatch", substitute(alt, 22, "A"), 19, PartialMatch},
		{"left core mismatch", substitute(alt, 18, "C"), 19, PartialMatch},
		{"core and flank mismatch", substitute(substitute(alt, 22, "A"), 10, "C"), 19, NoMatch},
		{"both cores mismatch", substitute(substitute(alt, 18, "C"), 22, "A"), 19, NoMatch},
		{"flank mismatches", substitute(substitute(alt, 10, "A"), 30, "C"), 19, CoreMatch},
		{"partial", alt[13:26], 6, PartialMatch},
		{"core only", alt[17:22], 2, CoreMatch},
		{"clipped start", alt[15:], 4, FullMatch},
		{"index out of range", alt, 40, NoMatch},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			aln := newRead("r", 0, "unique", 1, "40M", test.seq, 30)
			assert.Equal(t, test.expected, m.Match(aln, test.readIndex))
		})
	}
}

func TestMatchLowQualityCoreMismatch(t *testing.T) {
	m := newTestMatcher(t, uniqueSNV)
	aln := newRead("r", 0, "unique", 1, "40M", substitute(substitute(uniqueReference, 20, "T"), 22, "A"), 30)
	assert.Equal(t, PartialMatch, m.Match(aln, 19))
	aln.QUAL[21] = 5
	assert.Equal(t, FullMatch, m.Match(aln, 19))

	// indels never tolerate core mismatches
	indel := newTestMatcher(t, strDelete)
	seq := deleteBases(strReference, 15, 2)
	aln = newRead("r", 0, "str", 1, "15M2D30M", substitute(seq, 17, "T"), 30)
	aln.QUAL[16] = 5
	assert.Equal(t, NoMatch, indel.Match(aln, 14))
}

func TestMatchRepeatDeletion(t *testing.T) {
	m := newTestMatcher(t, strDelete)

	alt := deleteBases(strReference, 15, 2)
	aln := newRead("alt", 0, "str", 1, "15M2D30M", alt, 30)
	assert.Equal(t, FullMatch, m.Match(aln, 14))

	aln = newRead("ref", 0, "str", 1, "47M", strReference, 30)
	assert.Equal(t, RefMatch, m.Match(aln, 14))

	jittered := deleteBases(strReference, 15, 4)
	aln = newRead("jitter", 0, "str", 1, "15M4D28M", jittered, 30)
	assert.Equal(t, NoMatch, m.Match(aln, 14))
}

func TestMatchTypeString(t *testing.T) {
	assert.Equal(t, "FULL", FullMatch.String())
	assert.Equal(t, "PARTIAL", PartialMatch.String())
	assert.Equal(t, "CORE", CoreMatch.String())
	assert.Equal(t, "REF", RefMatch.String())
	assert.Equal(t, "NONE", NoMatch.String())
}

func TestMatchRangeStates(t *testing.T) {
	c := newCandidate(t, config.Default(), uniqueSNV)
	require.Equal(t, 12, c.Context.Index)
	m := NewReadContextMatcher(c.Context, true, 10)
	aln := newRead("r", 0, "unique", 1, "5M", "GTTGC", 30)

	assert.Equal(t, rangeMatched, m.alt.matchRange(aln, 2, 10, 14, false, 10))
	assert.Equal(t, rangeTruncated, m.alt.matchRange(aln, 2, 12, 20, false, 10))
	assert.Equal(t, rangeUncovered, m.alt.matchRange(aln, 2, 20, 24, false, 10))
	assert.Equal(t, rangeMatched, m.alt.matchRange(aln, 2, 0, -1, false, 10))
	aln.SEQ[0] = 'A'
	assert.Equal(t, rangeMismatch, m.alt.matchRange(aln, 2, 10, 14, false, 10))
}
