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
	"log"
	"sort"

	"github.com/exascience/elsage/config"
	"github.com/exascience/elsage/fragment"
	"github.com/exascience/elsage/sam"
	"github.com/exascience/elsage/variant"
)

// Driver routes the alignments of one partition to the counters of
// the variants they overlap. Alignments must be delivered in
// non-decreasing order of position.
type Driver struct {
	Counters []*Counter
	Phaser   *Phaser
	Stats    fragment.Stats

	reference          variant.Reference
	maxDeleteLength    int32
	lastCandidateIndex int
	lastPosition       int32

	syncFragments bool
	synchronizer  fragment.Synchronizer
	mates         map[string]*sam.Alignment

	positives, negatives []int
}

// NewDriver creates a driver with one fresh counter per candidate.
// The reference is used to count read events; it may be nil.
func NewDriver(candidates []*Candidate, cfg *config.Config, ref variant.Reference, recalibration Recalibration) *Driver {
	sorted := append([]*Candidate(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Variant.Pos < sorted[j].Variant.Pos
	})
	counters := make([]*Counter, len(sorted))
	var maxDeleteLength int32
	for i, candidate := range sorted {
		counters[i] = NewCounter(i, candidate, cfg, recalibration)
		if length := -candidate.Variant.IndelLength(); length > maxDeleteLength {
			maxDeleteLength = length
		}
	}
	return &Driver{
		Counters:           counters,
		Phaser:             NewPhaser(counters, cfg.MinPhaseSetReadCount),
		reference:          ref,
		maxDeleteLength:    maxDeleteLength,
		lastCandidateIndex: -1,
		syncFragments:      cfg.SyncFragments,
		synchronizer:       fragment.Synchronizer{MaxBaseMismatches: cfg.MaxFragmentBaseMismatches},
		mates:              make(map[string]*sam.Alignment),
	}
}

// Supplementary records repeat bases of their primary record, which
// would count the same template twice.
const skipFlags = sam.Unmapped | sam.Secondary | sam.QCFailed | sam.Duplicate | sam.Supplementary

// Process handles a single alignment. The alignment is copied when it
// has to be retained until its mate arrives.
func (d *Driver) Process(aln *sam.Alignment) {
	if !aln.FlagNotAny(skipFlags) || len(aln.CIGAR) == 0 || len(aln.SEQ) == 0 {
		return
	}
	if aln.POS < d.lastPosition {
		log.Panicf("alignment %v delivered out of order, after position %v", aln, d.lastPosition)
	}
	d.lastPosition = aln.POS
	if d.syncFragments && aln.IsMultiple() && !aln.IsNextUnmapped() {
		if mate, ok := d.mates[aln.QNAME]; ok {
			if mate.IsMateOf(aln) {
				delete(d.mates, aln.QNAME)
				d.processFragment(mate, aln)
			} else {
				d.dispatch(aln)
			}
			return
		}
		if aln.MateContig() == aln.RNAME && aln.PNEXT >= aln.POS && aln.PNEXT <= aln.End() {
			d.mates[aln.QNAME] = aln.Copy()
			return
		}
	}
	d.dispatch(aln)
}

func (d *Driver) processFragment(first, second *sam.Alignment) {
	result := d.synchronizer.TrySync(first, second)
	d.Stats.Add(result)
	switch r := result.(type) {
	case fragment.Combined:
		d.dispatch(r.Alignment)
	case fragment.Unsynced:
		if r.Reason == fragment.BaseMismatch || r.Reason == fragment.Exception {
			log.Printf("mates not combined (%v): %v and %v", r.Reason, first, second)
		}
		for _, aln := range r.Retained(first, second) {
			d.dispatch(aln)
		}
	}
}

// Finish dispatches the mates that are still waiting for their
// partner, in order of position.
func (d *Driver) Finish() {
	pending := make([]*sam.Alignment, 0, len(d.mates))
	for _, aln := range d.mates {
		pending = append(pending, aln)
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].POS != pending[j].POS {
			return pending[i].POS < pending[j].POS
		}
		return pending[i].QNAME < pending[j].QNAME
	})
	for _, aln := range pending {
		d.dispatch(aln)
	}
	d.mates = make(map[string]*sam.Alignment)
}

func (d *Driver) dispatch(aln *sam.Alignment) {
	start := aln.UnclippedStart() - d.maxDeleteLength
	end := aln.UnclippedEnd() + d.maxDeleteLength
	counters := d.Counters
	for d.lastCandidateIndex+1 < len(counters) && counters[d.lastCandidateIndex+1].Position() < start {
		d.lastCandidateIndex++
	}

	events := -1
	d.positives, d.negatives = d.positives[:0], d.negatives[:0]
	for i := d.lastCandidateIndex; i >= 0 && counters[i].Position() >= start; i-- {
		d.offer(counters[i], aln, &events)
	}
	for i := d.lastCandidateIndex + 1; i < len(counters) && counters[i].Position() <= end; i++ {
		d.offer(counters[i], aln, &events)
	}
	if len(d.positives) > 0 {
		d.Phaser.Add(d.positives, d.negatives)
	}
}

func (d *Driver) offer(c *Counter, aln *sam.Alignment, events *int) {
	switch d.process(c, aln, events) {
	case Support:
		d.positives = append(d.positives, c.Index)
	case Reference:
		d.negatives = append(d.negatives, c.Index)
	}
}

// process recovers from faults caused by malformed records, so that a
// single read never aborts a partition.
func (d *Driver) process(c *Counter, aln *sam.Alignment, events *int) (match ReadMatch) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("dropping read %v for variant %v: %v", aln, c.Variant(), r)
			match = Unrelated
		}
	}()
	if *events < 0 {
		*events = ReadEvents(aln, d.reference)
	}
	return c.Process(aln, *events)
}
