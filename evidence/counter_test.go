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

	"github.com/exascience/elsage/config"
	"github.com/exascience/elsage/sam"
	"github.com/exascience/elsage/variant"
)

func TestCounterFullSupport(t *testing.T) {
	c := newTestCounter(t, config.Default(), uniqueSNV)

	assert.Equal(t, Support, c.Process(uniqueAltRead("alt"), 1))
	assert.Equal(t, 1, c.Full)
	assert.Equal(t, 18, c.FullQuality)
	assert.Equal(t, 1, c.Total)
	assert.Equal(t, 18, c.TotalQuality)
	assert.Equal(t, 1, c.RawDepth)
	assert.Equal(t, 1, c.RawAltSupport)
	assert.Equal(t, 30, c.RawAltBaseQuality)
	assert.Equal(t, 1, c.ForwardSupport)
	assert.Equal(t, 18, c.TumorQuality())

	assert.Equal(t, Reference, c.Process(uniqueRefRead("ref"), 0))
	assert.Equal(t, 1, c.Ref)
	assert.Equal(t, 18, c.RefQuality)
	assert.Equal(t, 2, c.Total)
	assert.Equal(t, 1, c.RawRefSupport)
	assert.Equal(t, 2, c.RawDepth)
	assert.Equal(t, 1.0, c.StrandBias())
}

func TestCounterMapQuality(t *testing.T) {
	cfg := config.Default()
	low := uniqueAltRead("low")
	low.MAPQ = 5

	c := newTestCounter(t, cfg, uniqueSNV)
	assert.Equal(t, Unrelated, c.Process(low, 1))
	assert.Equal(t, 0, c.RawDepth)
	assert.Equal(t, 0, c.Total)

	hotspot := *uniqueSNV
	hotspot.Tier = variant.Hotspot
	c = newTestCounter(t, cfg, &hotspot)
	assert.Equal(t, Support, c.Process(low, 1))
	assert.Equal(t, 1, c.Full)
	assert.Equal(t, 0, c.FullQuality)
}

func TestCounterDeletedRead(t *testing.T) {
	c := newTestCounter(t, config.Default(), uniqueSNV)
	aln := newRead("del", 0, "unique", 1, "17M3D20M", uniqueReference[:17]+uniqueReference[20:], 30)
	assert.Equal(t, Unrelated, c.Process(aln, 1))
	assert.Equal(t, 1, c.RawDepth)
	assert.Equal(t, 0, c.Total)
}

func TestCounterSaturation(t *testing.T) {
	cfg := config.Default()
	cfg.MaxReadDepth = 2
	c := newTestCounter(t, cfg, uniqueSNV)
	for i := 0; i < 2; i++ {
		assert.Equal(t, Support, c.Process(uniqueAltRead("alt"), 1))
	}
	assert.True(t, c.Saturated())
	assert.Equal(t, Unrelated, c.Process(uniqueAltRead("alt"), 1))
	assert.Equal(t, 2, c.Full)
	assert.Equal(t, 2, c.RawDepth)
}

func TestCounterTotals(t *testing.T) {
	cfg := config.Default()
	alt := substitute(uniqueReference, 20, "T")
	reads := []*sam.Alignment{
		uniqueAltRead("full"),
		uniqueRefRead("ref"),
		newRead("partial", 0, "unique", 14, "13M", alt[13:26], 30),
		newRead("core", 0, "unique", 18, "5M", alt[17:22], 30),
		newRead("flanks", sam.Reversed, "unique", 1, "40M", substitute(substitute(alt, 10, "A"), 30, "C"), 30),
		newRead("mismatch", 0, "unique", 1, "40M", substitute(alt, 22, "A"), 30),
		newRead("soft clip", 0, "unique", 21, "5S20M", alt[15:35], 30),
	}
	forward := newTestCounter(t, cfg, uniqueSNV)
	for _, aln := range reads {
		forward.Process(aln, 1)
	}
	backward := newTestCounter(t, cfg, uniqueSNV)
	for i := len(reads) - 1; i >= 0; i-- {
		backward.Process(reads[i], 1)
	}
	assert.Equal(t, counts(forward), counts(backward))

	c := forward
	assert.Equal(t, 2, c.Full)
	assert.Equal(t, 2, c.Partial)
	assert.Equal(t, 2, c.Core)
	assert.Equal(t, 0, c.Alt)
	assert.Equal(t, 1, c.Ref)
	assert.Equal(t, 0, c.Realigned)
	assert.Equal(t, c.Full+c.Partial+c.Core+c.Realigned+c.Alt+c.Ref, c.Total)
	assert.Equal(t, c.FullQuality+c.PartialQuality+c.CoreQuality+c.RealignedQuality+c.AltQuality+c.RefQuality, c.TotalQuality)
	assert.Equal(t, 5, c.ForwardSupport)
	assert.Equal(t, 1, c.ReverseSupport)
	assert.Equal(t, 6, c.RawDepth)
	assert.Equal(t, 5, c.RawAltSupport)
	assert.Equal(t, 1, c.RawRefSupport)
}

func TestCounterStrandQuality(t *testing.T) {
	c := newTestCounter(t, config.Default(), homopolymerSNV)
	seq := substitute(homopolymerReference, 21, "T")

	forward := newRead("f", 0, "homopolymer", 1, "41M", seq, 37)
	forward.QUAL[11] = 20
	reverse := newRead("r", sam.Reversed, "homopolymer", 1, "41M", seq, 37)
	reverse.QUAL[11] = 20

	assert.Equal(t, Support, c.Process(forward, 1))
	assert.Equal(t, 8, c.FullQuality)
	assert.Equal(t, Support, c.Process(reverse, 1))
	assert.Equal(t, 8+25, c.FullQuality)
	assert.Equal(t, 0.5, c.StrandBias())
}

func TestCounterJitter(t *testing.T) {
	c := newTestCounter(t, config.Default(), strDelete)
	alt := deleteBases(strReference, 15, 2)
	jittered := deleteBases(strReference, 15, 4)

	for i := 0; i < 2; i++ {
		assert.Equal(t, Support, c.Process(newRead("alt", 0, "str", 1, "15M2D30M", alt, 30), 1))
	}
	assert.Equal(t, 2, c.Full)
	assert.Equal(t, 36, c.FullQuality)
	assert.Equal(t, 36, c.TumorQuality())

	assert.Equal(t, Unrelated, c.Process(newRead("jitter", 0, "str", 1, "15M4D28M", jittered, 30), 1))
	assert.Equal(t, 1, c.Jitter.Shortened)
	assert.Equal(t, 0, c.Jitter.Lengthened)
	assert.Equal(t, 0.25, c.Jitter.Penalty)
	assert.Equal(t, 2, c.Total)

	for i := 0; i < 3; i++ {
		c.Process(newRead("jitter", 0, "str", 1, "15M4D28M", jittered, 30), 1)
	}
	assert.Equal(t, 4, c.Jitter.Shortened)
	assert.Equal(t, 1.0, c.Jitter.Penalty)
	assert.Equal(t, 35, c.TumorQuality())

	assert.Equal(t, Reference, c.Process(newRead("ref", 0, "str", 1, "47M", strReference, 30), 1))
	assert.Equal(t, 1, c.Ref)
}

func TestCounterRealignedInsertion(t *testing.T) {
	c := newTestCounter(t, config.Default(), repeatInsert)
	alt := insertBases(repeatReference, 15, "AC")

	// an unreported leading base shifts the read by one position
	aln := newRead("shifted", 0, "repeat", 1, "46M", "G"+alt, 30)
	assert.Equal(t, Support, c.Process(aln, 1))
	assert.Equal(t, 1, c.Realigned)
	assert.Equal(t, 1, c.Total)
}

func TestLocalPhaseSetString(t *testing.T) {
	assert.Equal(t, "1:3:1.0", LocalPhaseSet{ID: 1, ReadCount: 3, Allocated: 1}.String())
	assert.Equal(t, "12:2:0.3", LocalPhaseSet{ID: 12, ReadCount: 2, Allocated: 0.3}.String())
}
