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

package utils

import (
	"strconv"
	"testing"

	"github.com/exascience/pargo/parallel"
	"github.com/stretchr/testify/assert"
)

func TestIntern(t *testing.T) {
	symbols := make([]Symbol, 64)
	parallel.Range(0, len(symbols), 0, func(low, high int) {
		for i := low; i < high; i++ {
			symbols[i] = Intern("tag" + strconv.Itoa(i%4))
		}
	})
	for i, s := range symbols {
		assert.Equal(t, "tag"+strconv.Itoa(i%4), *s)
		assert.True(t, s == symbols[i%4])
	}
	assert.False(t, Intern("NM") == Intern("MD"))
}

func TestSmallMap(t *testing.T) {
	nm, md := Intern("NM"), Intern("MD")
	var m SmallMap
	_, ok := m.Get(nm)
	assert.False(t, ok)

	m.Set(nm, int32(1))
	m.Set(md, "10A5")
	m.Set(nm, int32(2))
	assert.Len(t, m, 2)
	value, ok := m.Get(nm)
	assert.True(t, ok)
	assert.Equal(t, int32(2), value)
	value, _ = m.Get(md)
	assert.Equal(t, "10A5", value)
}
