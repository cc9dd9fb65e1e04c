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
	"fmt"
	"log"
	"sort"

	"github.com/exascience/pargo/parallel"

	"github.com/exascience/elsage/config"
	"github.com/exascience/elsage/fragment"
	"github.com/exascience/elsage/intervals"
	"github.com/exascience/elsage/sam"
	"github.com/exascience/elsage/variant"
)

// ReadSource delivers the alignments overlapping a region, in
// coordinate order. Alignments are only valid during the callback.
type ReadSource interface {
	ForEachAlignment(contig string, start, end int32, f func(aln *sam.Alignment)) error
	Close() error
}

// Partition is a contiguous region of a contig together with the
// candidates that lie in it.
type Partition struct {
	Contig     string
	Region     intervals.Interval
	Candidates []*Candidate
}

func (p *Partition) String() string {
	return fmt.Sprintf("%v:%v-%v", p.Contig, p.Region.Start, p.Region.End)
}

// PlanPartitions groups candidates into partitions. Candidates whose
// padded extents overlap end up in the same region, and regions are
// split so that no partition holds more than maxCandidates
// candidates. Partitions are ordered by contig, in order of first
// appearance, then by position.
func PlanPartitions(candidates []*Candidate, padding int32, maxCandidates int) []*Partition {
	var contigs []string
	byContig := make(map[string][]*Candidate)
	for _, c := range candidates {
		contig := c.Variant.Chrom
		if _, ok := byContig[contig]; !ok {
			contigs = append(contigs, contig)
		}
		byContig[contig] = append(byContig[contig], c)
	}
	var partitions []*Partition
	for _, contig := range contigs {
		list := byContig[contig]
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Variant.Pos < list[j].Variant.Pos
		})
		extents := make([]intervals.Interval, len(list))
		for i, c := range list {
			extents[i] = intervals.Interval{Start: maxInt32(1, c.Variant.Pos-padding), End: c.Variant.End() + padding}
		}
		intervals.ParallelSortByStart(extents)
		regions := intervals.ParallelFlatten(extents)
		next := 0
		for _, region := range regions {
			var inRegion []*Candidate
			for next < len(list) && region.Contains(list[next].Variant.Pos) {
				inRegion = append(inRegion, list[next])
				next++
			}
			partitions = append(partitions, splitPartition(contig, inRegion, padding, maxCandidates)...)
		}
	}
	return partitions
}

func splitPartition(contig string, candidates []*Candidate, padding int32, maxCandidates int) (partitions []*Partition) {
	for len(candidates) > 0 {
		n := minInt(len(candidates), maxCandidates)
		chunk := candidates[:n]
		candidates = candidates[n:]
		region := intervals.Interval{Start: maxInt32(1, chunk[0].Variant.Pos-padding)}
		for _, c := range chunk {
			if end := c.Variant.End() + padding; end > region.End {
				region.End = end
			}
		}
		partitions = append(partitions, &Partition{Contig: contig, Region: region, Candidates: chunk})
	}
	return
}

// PartitionResult holds the counters of a completed partition, and
// the phase set groups that still need ids.
type PartitionResult struct {
	Partition *Partition
	Counters  []*Counter
	Groups    []*PhasedGroup
	Stats     fragment.Stats
	Err       error
}

// Run processes all alignments of a single partition.
func (p *Partition) Run(source ReadSource, cfg *config.Config, ref variant.Reference, recalibration Recalibration) *PartitionResult {
	driver := NewDriver(p.Candidates, cfg, ref, recalibration)
	err := source.ForEachAlignment(p.Contig, p.Region.Start, p.Region.End, driver.Process)
	driver.Finish()
	return &PartitionResult{
		Partition: p,
		Counters:  driver.Counters,
		Groups:    driver.Phaser.Finish(),
		Stats:     driver.Stats,
		Err:       err,
	}
}

// RunPartitions processes partitions in parallel. Each worker opens
// its own read source. Phase set ids are issued afterwards, in
// partition order.
func RunPartitions(
	partitions []*Partition,
	openSource func() (ReadSource, error),
	cfg *config.Config,
	ref variant.Reference,
	recalibration Recalibration,
	ids *PhaseSetIDs,
) ([]*PartitionResult, error) {
	results := make([]*PartitionResult, len(partitions))
	parallel.Range(0, len(partitions), 0, func(low, high int) {
		source, err := openSource()
		if err != nil {
			for i := low; i < high; i++ {
				results[i] = &PartitionResult{Partition: partitions[i], Err: err}
			}
			return
		}
		defer func() {
			if err := source.Close(); err != nil {
				log.Printf("error closing read source: %v", err)
			}
		}()
		for i := low; i < high; i++ {
			results[i] = partitions[i].Run(source, cfg, ref, recalibration)
		}
	})
	var stats fragment.Stats
	for _, result := range results {
		if result.Err != nil {
			return nil, fmt.Errorf("%w, in partition %v", result.Err, result.Partition)
		}
		AssignPhaseSets(result.Groups, result.Counters, ids)
		stats.Merge(&result.Stats)
	}
	log.Printf("processed %v partitions, fragments: %v", len(partitions), &stats)
	return results, nil
}

func maxInt32(x, y int32) int32 {
	if x > y {
		return x
	}
	return y
}
