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

package variant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindRepeats(t *testing.T) {
	assert.Equal(t, []Repeat{
		{StartIndex: 0, EndIndex: 3, Unit: []byte("A"), Count: 3},
		{StartIndex: 6, EndIndex: 10, Unit: []byte("T"), Count: 4},
	}, FindRepeats([]byte("AAACAGTTTT"), 2))

	assert.Equal(t, []Repeat{
		{StartIndex: 3, EndIndex: 9, Unit: []byte("AC"), Count: 3},
	}, FindRepeats([]byte("GATACACACAGT"), 3))

	repeats := FindRepeats([]byte("GATACACACAGT"), 3)
	assert.Equal(t, 6, repeats[0].Length())

	assert.Empty(t, FindRepeats([]byte("NNNNNN"), 2))
	assert.Empty(t, FindRepeats([]byte("ACGT"), 2))
	assert.Empty(t, FindRepeats(nil, 2))
}

func TestFindRepeatsPrimitiveUnits(t *testing.T) {
	// AA is not a primitive unit, so the run is only reported once.
	repeats := FindRepeats([]byte("AAAAAA"), 2)
	assert.Equal(t, []Repeat{{StartIndex: 0, EndIndex: 6, Unit: []byte("A"), Count: 6}}, repeats)
}

func TestHomopolymerLength(t *testing.T) {
	bases := []byte("CAAAAGTTTC")
	assert.Equal(t, 4, HomopolymerLengthLeftOf(bases, 5))
	assert.Equal(t, 1, HomopolymerLengthLeftOf(bases, 1))
	assert.Equal(t, 0, HomopolymerLengthLeftOf(bases, 0))
	assert.Equal(t, 3, HomopolymerLengthRightOf(bases, 5))
	assert.Equal(t, 4, HomopolymerLengthRightOf(bases, 0))
	assert.Equal(t, 0, HomopolymerLengthRightOf(bases, 9))
}
