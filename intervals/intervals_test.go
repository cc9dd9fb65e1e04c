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

package intervals

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exascience/elsage/bed"
)

func makeLargeIntervalsSlice() (result []Interval) {
	result = make([]Interval, 0x30000)
	result[0].Start = 1
	result[0].End = 4
	for i := 1; i < len(result); i++ {
		if rand.Intn(100) < 20 {
			result[i].Start = result[i-1].End - 1
		} else {
			result[i].Start = result[i-1].End + 1
		}
		result[i].End = result[i].Start + 3
	}
	return result
}

func checkFlattened(t *testing.T, intervals []Interval) {
	require.NotEmpty(t, intervals)
	assert.LessOrEqual(t, intervals[0].Start, intervals[0].End)
	for i := 1; i < len(intervals); i++ {
		interval := intervals[i]
		if interval.Start > interval.End || interval.Start <= intervals[i-1].End {
			t.Fatalf("intervals %v and %v are not flattened", intervals[i-1], interval)
		}
	}
}

func testFlatten(t *testing.T, flatten func([]Interval) []Interval) {
	assert.Empty(t, flatten(nil))
	assert.Equal(t, []Interval{{2, 4}}, flatten([]Interval{{2, 3}, {3, 4}}))
	assert.Equal(t, []Interval{{2, 3}, {4, 5}}, flatten([]Interval{{2, 3}, {4, 5}}))
	assert.Equal(t, []Interval{{2, 6}}, flatten([]Interval{{2, 4}, {3, 5}, {4, 6}}))
	assert.Equal(t, []Interval{{2, 6}, {7, 9}}, flatten([]Interval{{2, 4}, {3, 5}, {4, 6}, {7, 9}}))
	assert.Equal(t, []Interval{{2, 4}, {5, 7}}, flatten([]Interval{{2, 3}, {3, 4}, {5, 6}, {6, 7}}))
	assert.Equal(t, []Interval{{2, 7}}, flatten([]Interval{{2, 3}, {2, 5}, {2, 4}, {2, 3}, {2, 6}, {2, 7}}))
	checkFlattened(t, flatten(makeLargeIntervalsSlice()))
}

func TestFlatten(t *testing.T) {
	testFlatten(t, Flatten)
}

func TestParallelFlatten(t *testing.T) {
	testFlatten(t, ParallelFlatten)
}

func TestParallelSortByStart(t *testing.T) {
	intervals := makeLargeIntervalsSlice()
	rand.Shuffle(len(intervals), func(i, j int) {
		intervals[i], intervals[j] = intervals[j], intervals[i]
	})
	ParallelSortByStart(intervals)
	for i := 1; i < len(intervals); i++ {
		if intervals[i-1].Start > intervals[i].Start {
			t.Fatalf("intervals not sorted at index %v", i)
		}
	}
	checkFlattened(t, ParallelFlatten(intervals))
}

func BenchmarkFlatten(b *testing.B) {
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		intervals := makeLargeIntervalsSlice()
		b.StartTimer()
		_ = Flatten(intervals)
	}
}

func BenchmarkParallelFlatten(b *testing.B) {
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		intervals := makeLargeIntervalsSlice()
		b.StartTimer()
		_ = ParallelFlatten(intervals)
	}
}

func TestInterval(t *testing.T) {
	interval := Interval{Start: 10, End: 12}
	assert.Equal(t, int32(3), interval.Length())
	assert.True(t, interval.Contains(10))
	assert.True(t, interval.Contains(12))
	assert.False(t, interval.Contains(9))
	assert.False(t, interval.Contains(13))
}

func TestOverlap(t *testing.T) {
	intervals := []Interval{{2, 4}, {6, 8}}
	assert.False(t, Overlap(nil, 2, 3))
	assert.False(t, Overlap([]Interval{{1, 3}, {7, 8}}, 4, 6))
	assert.False(t, Overlap(intervals, 5, 5))
	for _, query := range [][2]int32{{1, 3}, {2, 3}, {2, 5}, {2, 6}, {3, 7}, {5, 7}, {6, 8}, {6, 9}, {5, 9}, {1, 10}, {4, 4}, {8, 8}} {
		assert.True(t, Overlap(intervals, query[0], query[1]), "query %v", query)
	}
}

func TestFromBed(t *testing.T) {
	regions, err := bed.Read(strings.NewReader(
		"track name=targets\n" +
			"chr1\t100\t200\texon1\n" +
			"chr1\t150\t250\n" +
			"chr1\t250\t300\n" +
			"chr2\t0\t10\n"))
	require.NoError(t, err)
	targets := FromBed(regions)
	assert.Equal(t, []Interval{{101, 250}, {251, 300}}, targets["chr1"])
	assert.Equal(t, []Interval{{1, 10}}, targets["chr2"])
	assert.True(t, Overlap(targets["chr1"], 101, 101))
	assert.False(t, Overlap(targets["chr1"], 100, 100))
	assert.False(t, Overlap(targets["chr1"], 301, 305))
}
