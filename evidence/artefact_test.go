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
	"github.com/exascience/elsage/sam"
)

func TestArtefactSuppressor(t *testing.T) {
	ctx := newCandidate(t, config.Default(), homopolymerSNV).Context
	require.Equal(t, "GCACAAAAAAAATTCAGCTAGCATG", string(ctx.Bases))
	require.Equal(t, 12, ctx.Index)

	suppressor := NewArtefactSuppressor(ctx, 8)
	assert.True(t, suppressor.Active())

	seq := substitute(homopolymerReference, 21, "T")
	forward := newRead("f", 0, "homopolymer", 1, "41M", seq, 30)
	forward.QUAL[11] = 15
	limit, ok := suppressor.ApplicableBaseQualityCap(forward, 20)
	assert.True(t, ok)
	assert.Equal(t, byte(15), limit)

	_, ok = suppressor.ApplicableBaseQualityCap(forward, 5)
	assert.False(t, ok)

	reverse := newRead("r", sam.Reversed, "homopolymer", 1, "41M", seq, 30)
	_, ok = suppressor.ApplicableBaseQualityCap(reverse, 20)
	assert.False(t, ok)

	assert.False(t, NewArtefactSuppressor(ctx, 9).Active())
	assert.False(t, NewArtefactSuppressor(newCandidate(t, config.Default(), uniqueSNV).Context, 8).Active())
}

func TestArtefactCapsCounterQuality(t *testing.T) {
	cfg := config.Default()
	seq := substitute(homopolymerReference, 21, "T")

	c := newTestCounter(t, cfg, homopolymerSNV)
	forward := newRead("f", 0, "homopolymer", 1, "41M", seq, 30)
	forward.QUAL[11] = 15
	assert.Equal(t, Support, c.Process(forward, 1))
	assert.Equal(t, 1, c.Full)
	assert.Equal(t, 3, c.FullQuality)

	reverse := newRead("r", sam.Reversed, "homopolymer", 1, "41M", seq, 30)
	reverse.QUAL[11] = 15
	assert.Equal(t, Support, c.Process(reverse, 1))
	assert.Equal(t, 2, c.Full)
	assert.Equal(t, 21, c.FullQuality)
}
