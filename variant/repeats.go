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

import "bytes"

// MaxRepeatUnitLength is the longest repeat unit that is detected.
const MaxRepeatUnitLength = 5

// Repeat is a maximal tandem repeat of a primitive unit within a
// byte sequence, covering [StartIndex, EndIndex).
type Repeat struct {
	StartIndex, EndIndex int
	Unit                 []byte
	Count                int
}

// Length is the number of bases covered by the repeat.
func (r Repeat) Length() int { return r.EndIndex - r.StartIndex }

func isPrimitive(unit []byte) bool {
	n := len(unit)
	for sub := 1; sub < n; sub++ {
		if n%sub != 0 {
			continue
		}
		composite := true
		for i := sub; i < n; i++ {
			if unit[i] != unit[i-sub] {
				composite = false
				break
			}
		}
		if composite {
			return false
		}
	}
	return true
}

// FindRepeats returns all maximal tandem repeats with unit lengths
// between 1 and MaxRepeatUnitLength and at least minCount copies.
// Repeats are ordered by unit length, then by start index.
func FindRepeats(bases []byte, minCount int) (repeats []Repeat) {
	n := len(bases)
	for unitLength := 1; unitLength <= MaxRepeatUnitLength; unitLength++ {
		for i := 0; i+unitLength*minCount <= n; {
			unit := bases[i : i+unitLength]
			if !isPrimitive(unit) || bytes.IndexByte(unit, 'N') >= 0 {
				i++
				continue
			}
			j := i + unitLength
			for j+unitLength <= n && bytes.Equal(bases[j:j+unitLength], unit) {
				j += unitLength
			}
			if count := (j - i) / unitLength; count >= minCount {
				repeats = append(repeats, Repeat{
					StartIndex: i,
					EndIndex:   j,
					Unit:       append([]byte(nil), unit...),
					Count:      count,
				})
				i = j - unitLength + 1
			} else {
				i++
			}
		}
	}
	return repeats
}

// HomopolymerLengthLeftOf returns the length of the run of identical
// bases that ends at index-1.
func HomopolymerLengthLeftOf(bases []byte, index int) int {
	if index <= 0 || index > len(bases) {
		return 0
	}
	base := bases[index-1]
	length := 0
	for i := index - 1; i >= 0 && bases[i] == base; i-- {
		length++
	}
	return length
}

// HomopolymerLengthRightOf returns the length of the run of identical
// bases that starts at index+1.
func HomopolymerLengthRightOf(bases []byte, index int) int {
	if index < -1 || index+1 >= len(bases) {
		return 0
	}
	base := bases[index+1]
	length := 0
	for i := index + 1; i < len(bases) && bases[i] == base; i++ {
		length++
	}
	return length
}
