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

	"github.com/exascience/elsage/config"
	"github.com/exascience/elsage/sam"
	"github.com/exascience/elsage/variant"
)

// ReadMatch is the outcome of offering a read to a counter.
type ReadMatch uint8

const (
	// Unrelated reads do not inform the variant.
	Unrelated ReadMatch = iota
	// Support means the read carries the variant.
	Support
	// Reference means the read carries the reference allele.
	Reference
)

// Candidate is a variant together with its read context. Candidates
// are shared by all counters of a variant.
type Candidate struct {
	Variant *variant.Variant
	Context *variant.ReadContext
}

// NewCandidates builds the read contexts of all variants. An error
// indicates a variant that does not agree with the reference.
func NewCandidates(variants []*variant.Variant, ref variant.Reference, cfg *config.Config) ([]*Candidate, error) {
	candidates := make([]*Candidate, 0, len(variants))
	for _, v := range variants {
		ctx, err := variant.NewReadContext(v, ref, cfg.FlankSize, cfg.CoreExtension)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, &Candidate{Variant: v, Context: ctx})
	}
	return candidates, nil
}

// LocalPhaseSet is a phase set a counter takes part in.
type LocalPhaseSet struct {
	ID        int
	ReadCount int
	Allocated float64
}

func (lps LocalPhaseSet) String() string {
	return fmt.Sprintf("%d:%d:%.1f", lps.ID, lps.ReadCount, lps.Allocated)
}

// Counter aggregates the evidence of one sample for one variant. A
// counter belongs to a single partition and is not safe for
// concurrent use.
type Counter struct {
	Index     int
	Candidate *Candidate

	Full, Partial, Core, Realigned, Alt, Ref, Total int

	FullQuality, PartialQuality, CoreQuality, RealignedQuality int
	AltQuality, RefQuality, TotalQuality                       int

	RawDepth, RawAltSupport, RawRefSupport int
	RawAltBaseQuality, RawRefBaseQuality   int

	ForwardSupport, ReverseSupport int
	ImproperPairs                  int

	Jitter         Jitter
	LocalPhaseSets []LocalPhaseSet

	maxCoverage      int
	minMapQuality    byte
	softClipPolicy   SoftClipPolicy
	jitterPolicy     JitterPolicy
	matcher          *ReadContextMatcher
	suppressor       *ArtefactSuppressor
	quality          *QualityCalculator
	needsRealignment bool
}

// NewCounter creates an empty counter for a candidate.
func NewCounter(index int, candidate *Candidate, cfg *config.Config, recalibration Recalibration) *Counter {
	v, ctx := candidate.Variant, candidate.Context
	minMapQuality := byte(cfg.MinMapQuality)
	if v.Tier == variant.Hotspot {
		minMapQuality = 0
	}
	return &Counter{
		Index:         index,
		Candidate:     candidate,
		maxCoverage:   cfg.MaxCoverage(v.Tier),
		minMapQuality: minMapQuality,
		softClipPolicy: SoftClipPolicy{
			MinLength:           cfg.SoftClipMinLength,
			MinHighQualFraction: cfg.SoftClipMinHighQualFraction,
			MinBaseQuality:      byte(cfg.SoftClipMinBaseQuality),
		},
		jitterPolicy: JitterPolicy{
			Penalty:        cfg.JitterPenalty,
			MinRepeatCount: cfg.JitterMinRepeatCount,
		},
		matcher:          NewReadContextMatcher(ctx, v.IsSNV(), byte(cfg.MinMatchBaseQuality)),
		suppressor:       NewArtefactSuppressor(ctx, cfg.HomopolymerLength),
		quality:          NewQualityCalculator(cfg, recalibration),
		needsRealignment: NeedsRealignment(v, ctx),
	}
}

// Variant returns the variant of the counter.
func (c *Counter) Variant() *variant.Variant {
	return c.Candidate.Variant
}

// Position returns the variant position.
func (c *Counter) Position() int32 {
	return c.Candidate.Variant.Pos
}

// Saturated is true once the counter stopped accepting reads.
func (c *Counter) Saturated() bool {
	return c.Total >= c.maxCoverage
}

// TumorQuality is the summed quality of full and partial support,
// reduced by the accumulated jitter penalty, and never negative.
func (c *Counter) TumorQuality() int {
	return maxInt(0, c.FullQuality+c.PartialQuality-int(c.Jitter.Penalty))
}

// StrandBias is the fraction of supporting reads on the forward
// strand, or 0.5 without support.
func (c *Counter) StrandBias() float64 {
	if support := c.ForwardSupport + c.ReverseSupport; support > 0 {
		return float64(c.ForwardSupport) / float64(support)
	}
	return 0.5
}

// AddLocalPhaseSet records the membership of a phase set.
func (c *Counter) AddLocalPhaseSet(id, readCount int, allocated float64) {
	c.LocalPhaseSets = append(c.LocalPhaseSets, LocalPhaseSet{ID: id, ReadCount: readCount, Allocated: allocated})
}

func (c *Counter) coreCovered(aln *sam.Alignment, readIndex int) bool {
	ctx := c.Candidate.Context
	return readIndex-ctx.LeftCoreLength() >= 0 && readIndex+ctx.RightCoreIndex-ctx.Index < len(aln.SEQ)
}

func (c *Counter) updateRaw(raw RawContext) {
	if raw.DepthSupport {
		c.RawDepth++
	}
	if raw.AltSupport {
		c.RawAltSupport++
		c.RawAltBaseQuality += raw.BaseQuality
	}
	if raw.RefSupport {
		c.RawRefSupport++
		c.RawRefBaseQuality += raw.BaseQuality
	}
}

func (c *Counter) support(aln *sam.Alignment, quality int) {
	c.Total++
	c.TotalQuality += quality
	if aln.IsReversed() {
		c.ReverseSupport++
	} else {
		c.ForwardSupport++
	}
	if aln.IsImproperPair() {
		c.ImproperPairs++
	}
}

// Process offers a single read to the counter. Events is the number
// of mismatches and indels of the read, as computed by ReadEvents.
func (c *Counter) Process(aln *sam.Alignment, events int) ReadMatch {
	if c.Saturated() || aln.MAPQ < c.minMapQuality {
		return Unrelated
	}
	v, ctx := c.Candidate.Variant, c.Candidate.Context

	raw := ResolveRawContext(v, aln, c.softClipPolicy)
	c.updateRaw(raw)
	if !raw.Valid() || raw.Type == RawLowQualSoftClip || !c.coreCovered(aln, raw.ReadIndex) {
		return Unrelated
	}
	readIndex := raw.ReadIndex

	baseQuality := c.quality.BaseQuality(v, ctx, aln, readIndex)
	if c.suppressor.Active() {
		if limit, ok := c.suppressor.ApplicableBaseQualityCap(aln, readIndex); ok && int(limit) < baseQuality {
			baseQuality = int(limit)
		}
	}
	quality := c.quality.ReadQuality(baseQuality, aln, events)

	if raw.Type != RawDeleted {
		switch c.matcher.Match(aln, readIndex) {
		case FullMatch:
			c.Full++
			c.FullQuality += quality
			c.support(aln, quality)
			return Support
		case PartialMatch:
			c.Partial++
			c.PartialQuality += quality
			c.support(aln, quality)
			return Support
		case CoreMatch:
			c.Core++
			c.CoreQuality += quality
			c.support(aln, quality)
			return Support
		case RefMatch:
			c.Ref++
			c.RefQuality += quality
			c.Total++
			c.TotalQuality += quality
			return Reference
		}
	}

	realigned := realignedNone
	if c.needsRealignment {
		realigned = Realign(ctx, readIndex, aln.SEQ)
	}
	switch realigned.Type {
	case RealignedExact:
		c.Realigned++
		c.RealignedQuality += quality
		c.support(aln, quality)
		return Support
	case RealignedShortened, RealignedLengthened:
		c.Jitter.Update(realigned, c.jitterPolicy)
	case RealignedNone:
		if raw.Type == RawSoftClip {
			return Unrelated
		}
	}

	switch {
	case raw.AltSupport:
		c.Alt++
		c.AltQuality += quality
		c.Total++
		c.TotalQuality += quality
	case raw.RefSupport:
		c.Ref++
		c.RefQuality += quality
		c.Total++
		c.TotalQuality += quality
		return Reference
	}
	return Unrelated
}
