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
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exascience/elsage/config"
	"github.com/exascience/elsage/intervals"
	"github.com/exascience/elsage/sam"
	"github.com/exascience/elsage/variant"
)

type memorySource struct {
	reads  map[string][]*sam.Alignment
	closed *atomic.Int32
}

func (s *memorySource) ForEachAlignment(contig string, start, end int32, f func(aln *sam.Alignment)) error {
	for _, aln := range s.reads[contig] {
		if aln.POS <= end && aln.End() >= start {
			f(aln)
		}
	}
	return nil
}

func (s *memorySource) Close() error {
	s.closed.Add(1)
	return nil
}

func testCandidates(t *testing.T, variants ...*variant.Variant) []*Candidate {
	candidates, err := NewCandidates(variants, testReference(), config.Default())
	require.NoError(t, err)
	return candidates
}

func TestPlanPartitions(t *testing.T) {
	candidates := testCandidates(t, repeatInsert, uniqueSNV2, uniqueSNV)

	partitions := PlanPartitions(candidates, 5, 10)
	require.Len(t, partitions, 2)
	assert.Equal(t, "repeat", partitions[0].Contig)
	assert.Equal(t, intervals.Interval{Start: 10, End: 20}, partitions[0].Region)
	assert.Equal(t, "unique", partitions[1].Contig)
	assert.Equal(t, intervals.Interval{Start: 15, End: 35}, partitions[1].Region)
	require.Len(t, partitions[1].Candidates, 2)
	assert.Equal(t, int32(20), partitions[1].Candidates[0].Variant.Pos)
	assert.Equal(t, "unique:15-35", partitions[1].String())

	partitions = PlanPartitions(candidates, 2, 10)
	require.Len(t, partitions, 3)
	assert.Equal(t, intervals.Interval{Start: 18, End: 22}, partitions[1].Region)
	assert.Equal(t, intervals.Interval{Start: 28, End: 32}, partitions[2].Region)

	partitions = PlanPartitions(candidates, 5, 1)
	require.Len(t, partitions, 3)
	assert.Equal(t, intervals.Interval{Start: 15, End: 25}, partitions[1].Region)
	assert.Equal(t, intervals.Interval{Start: 25, End: 35}, partitions[2].Region)

	assert.Empty(t, PlanPartitions(nil, 5, 10))
}

func TestPlanPartitionsClipsAtContigStart(t *testing.T) {
	v := &variant.Variant{Chrom: "unique", Pos: 2, Ref: "G", Alt: "A"}
	partitions := PlanPartitions(testCandidates(t, v), 500, 10)
	require.Len(t, partitions, 1)
	assert.Equal(t, intervals.Interval{Start: 1, End: 502}, partitions[0].Region)
}

func TestRunPartitions(t *testing.T) {
	cfg := config.Default()
	candidates := testCandidates(t, repeatInsert, uniqueSNV, uniqueSNV2)
	partitions := PlanPartitions(candidates, 5, 10)

	var closed atomic.Int32
	source := &memorySource{
		reads: map[string][]*sam.Alignment{
			"unique": {
				newRead("a", 0, "unique", 1, "40M", doubleAlt, 30),
				newRead("b", 0, "unique", 1, "40M", doubleAlt, 30),
				newRead("c", 0, "unique", 1, "40M", uniqueReference, 30),
			},
			"repeat": {
				newRead("d", 0, "repeat", 1, "15M2I28M", insertBases(repeatReference, 15, "AC"), 30),
			},
		},
		closed: &closed,
	}
	var ids PhaseSetIDs
	results, err := RunPartitions(partitions, func() (ReadSource, error) { return source, nil }, cfg, testReference(), nil, &ids)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Positive(t, closed.Load())

	repeat := results[0].Counters
	require.Len(t, repeat, 1)
	assert.Equal(t, 1, repeat[0].Full)
	assert.Empty(t, repeat[0].LocalPhaseSets)

	unique := results[1].Counters
	require.Len(t, unique, 2)
	for _, c := range unique {
		assert.Equal(t, 2, c.Full)
		assert.Equal(t, 1, c.Ref)
		require.Len(t, c.LocalPhaseSets, 1)
		assert.Equal(t, LocalPhaseSet{ID: 1, ReadCount: 2}, c.LocalPhaseSets[0])
	}
}

func TestRunPartitionsOpenError(t *testing.T) {
	errOpen := errors.New("cannot open reads")
	partitions := PlanPartitions(testCandidates(t, uniqueSNV), 5, 10)
	_, err := RunPartitions(partitions, func() (ReadSource, error) { return nil, errOpen }, config.Default(), testReference(), nil, &PhaseSetIDs{})
	assert.ErrorIs(t, err, errOpen)
}
