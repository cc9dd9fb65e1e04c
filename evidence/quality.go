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
	"github.com/exascience/elsage/config"
	"github.com/exascience/elsage/sam"
	"github.com/exascience/elsage/variant"
)

// Recalibration maps a raw base quality to a recalibrated quality.
// The offset is the position of the base within the alt allele.
type Recalibration interface {
	Recalibrate(offset int, rawQuality byte) float64
}

// IdentityRecalibration leaves base qualities unchanged.
type IdentityRecalibration struct{}

// Recalibrate implements Recalibration.
func (IdentityRecalibration) Recalibrate(_ int, rawQuality byte) float64 {
	return float64(rawQuality)
}

type qualityKey struct {
	offset  int
	quality byte
}

// QualityCalculator computes the quality a single read contributes to
// a counter. Each counter owns its own calculator, so the
// recalibration cache is never shared.
type QualityCalculator struct {
	recalibration Recalibration
	cache         map[qualityKey]float64

	baseQualFixedPenalty int
	mapQualFixedPenalty  int
	readEventsPenalty    int
	improperPairPenalty  int
}

// NewQualityCalculator creates a calculator with the penalties of cfg.
func NewQualityCalculator(cfg *config.Config, recalibration Recalibration) *QualityCalculator {
	if recalibration == nil {
		recalibration = IdentityRecalibration{}
	}
	return &QualityCalculator{
		recalibration:        recalibration,
		cache:                make(map[qualityKey]float64),
		baseQualFixedPenalty: cfg.BaseQualFixedPenalty,
		mapQualFixedPenalty:  cfg.MapQualFixedPenalty,
		readEventsPenalty:    cfg.ReadEventsPenalty,
		improperPairPenalty:  cfg.ImproperPairPenalty,
	}
}

func (calc *QualityCalculator) recalibrated(offset int, rawQuality byte) float64 {
	key := qualityKey{offset, rawQuality}
	if q, ok := calc.cache[key]; ok {
		return q
	}
	q := calc.recalibration.Recalibrate(offset, rawQuality)
	calc.cache[key] = q
	return q
}

// BaseQuality is the minimum recalibrated quality over the alt bases
// for substitutions, and the mean raw quality over the covered core
// for indels.
func (calc *QualityCalculator) BaseQuality(v *variant.Variant, ctx *variant.ReadContext, aln *sam.Alignment, readIndex int) int {
	if !v.IsIndel() {
		result := -1.0
		for offset := 0; offset < len(v.Alt); offset++ {
			ri := readIndex + offset
			if ri >= len(aln.QUAL) {
				break
			}
			if q := calc.recalibrated(offset, aln.QUAL[ri]); result < 0 || q < result {
				result = q
			}
		}
		if result < 0 {
			return 0
		}
		return int(result)
	}
	from := maxInt(0, readIndex-ctx.LeftCoreLength())
	to := minInt(len(aln.QUAL)-1, readIndex+ctx.RightCoreIndex-ctx.Index)
	if to < from {
		return 0
	}
	sum := 0
	for ri := from; ri <= to; ri++ {
		sum += int(aln.QUAL[ri])
	}
	return sum / (to - from + 1)
}

// ReadQuality combines the base quality with the mapping quality,
// penalized for read events beyond the first and improper pairing.
// The result is never negative.
func (calc *QualityCalculator) ReadQuality(baseQuality int, aln *sam.Alignment, events int) int {
	mapQuality := int(aln.MAPQ) - calc.mapQualFixedPenalty - calc.readEventsPenalty*maxInt(0, events-1)
	if aln.IsImproperPair() {
		mapQuality -= calc.improperPairPenalty
	}
	return maxInt(0, minInt(baseQuality-calc.baseQualFixedPenalty, mapQuality))
}
