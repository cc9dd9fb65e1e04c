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

// Package intervals provides sorted, flattened sets of 1-based,
// inclusive genomic intervals.
package intervals

import (
	"sort"

	"github.com/exascience/pargo/parallel"
	psort "github.com/exascience/pargo/sort"

	"github.com/exascience/elsage/bed"
)

// Interval is a 1-based, inclusive range of positions.
type Interval struct {
	Start, End int32
}

// Length is the number of positions in the interval.
func (interval Interval) Length() int32 {
	return interval.End - interval.Start + 1
}

// Contains is true when pos lies within the interval.
func (interval Interval) Contains(pos int32) bool {
	return interval.Start <= pos && pos <= interval.End
}

// SortByStart sorts a slice of Interval by Start position.
func SortByStart(intervals []Interval) {
	sort.SliceStable(intervals, func(i, j int) bool {
		return intervals[i].Start < intervals[j].Start
	})
}

type stableIntervalSorter []Interval

func (s stableIntervalSorter) SequentialSort(i, j int) {
	SortByStart(s[i:j])
}

func (s stableIntervalSorter) NewTemp() psort.StableSorter {
	return stableIntervalSorter(make([]Interval, len(s)))
}

func (s stableIntervalSorter) Len() int {
	return len(s)
}

func (s stableIntervalSorter) Less(i, j int) bool {
	return s[i].Start < s[j].Start
}

func (s stableIntervalSorter) Assign(source psort.StableSorter) func(i, j, len int) {
	dst, src := s, source.(stableIntervalSorter)
	return func(i, j, len int) {
		copy(dst[i:i+len], src[j:j+len])
	}
}

// ParallelSortByStart sorts a slice of Interval by Start position
// using a parallel stable sort.
func ParallelSortByStart(intervals []Interval) {
	psort.StableSort(stableIntervalSorter(intervals))
}

// Extend grows interval1 to cover interval2 if they overlap, and
// reports whether they do. interval2.Start must not be smaller than
// interval1.Start.
func (interval1 *Interval) Extend(interval2 Interval) bool {
	if interval2.Start > interval1.End {
		return false
	}
	if interval2.End > interval1.End {
		interval1.End = interval2.End
	}
	return true
}

// Flatten merges overlapping intervals. The argument must be sorted
// by Start; the result is sorted, free of overlaps, and shares memory
// with the argument.
func Flatten(intervals []Interval) []Interval {
	for i, n := 0, len(intervals)-1; i < n; i++ {
		if intervals[i].Extend(intervals[i+1]) {
			n++
			for j := i + 1; j < n; j++ {
				if !intervals[i].Extend(intervals[j]) {
					i++
					intervals[i] = intervals[j]
				}
			}
			return intervals[:i+1]
		}
	}
	return intervals
}

const parallelFlattenGrainSize = 0x1000

// ParallelFlatten is like Flatten, using a parallel divide and
// conquer algorithm.
func ParallelFlatten(intervals []Interval) []Interval {
	if len(intervals) < parallelFlattenGrainSize {
		return Flatten(intervals)
	}
	half := len(intervals) >> 1
	left, right := intervals[:half], intervals[half:]
	parallel.Do(
		func() { left = ParallelFlatten(left) },
		func() { right = ParallelFlatten(right) },
	)
	for len(right) > 0 && left[len(left)-1].Extend(right[0]) {
		right = right[1:]
	}
	return append(left, right...)
}

// Overlap determines whether [start, end] overlaps any of the
// intervals, which must be flattened.
func Overlap(intervals []Interval, start, end int32) bool {
	for left, right := 0, len(intervals)-1; left <= right; {
		mid := (left + right) / 2
		if interval := intervals[mid]; interval.Start > end {
			right = mid - 1
		} else if interval.End < start {
			left = mid + 1
		} else {
			return true
		}
	}
	return false
}

// FromBed converts BED regions into flattened intervals per contig.
func FromBed(regions *bed.Bed) map[string][]Interval {
	result := make(map[string][]Interval, len(regions.Regions))
	for contig, list := range regions.Regions {
		intervals := make([]Interval, 0, len(list))
		for _, region := range list {
			intervals = append(intervals, Interval{Start: region.Start + 1, End: region.End})
		}
		SortByStart(intervals)
		result[contig] = Flatten(intervals)
	}
	return result
}

// FromBedFile parses a BED file into flattened intervals per contig.
func FromBedFile(filename string) (map[string][]Interval, error) {
	regions, err := bed.ParseBed(filename)
	if err != nil {
		return nil, err
	}
	return FromBed(regions), nil
}
