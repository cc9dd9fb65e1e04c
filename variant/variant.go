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

// Package variant describes candidate variants and the read contexts
// that define what it means for a read to support them.
package variant

import (
	"fmt"
	"strings"
)

// Tier is the confidence tier of a candidate, as assigned by
// candidate generation. Tiers select coverage limits and whether the
// mapping quality filter applies.
type Tier uint8

const (
	LowConfidence Tier = iota
	HighConfidence
	Panel
	Hotspot
)

var tierNames = [...]string{"LOW_CONFIDENCE", "HIGH_CONFIDENCE", "PANEL", "HOTSPOT"}

func (tier Tier) String() string {
	if int(tier) < len(tierNames) {
		return tierNames[tier]
	}
	return fmt.Sprintf("Tier(%d)", tier)
}

// ParseTier parses the name of a tier, case-insensitively.
func ParseTier(s string) (Tier, error) {
	for i, name := range tierNames {
		if strings.EqualFold(s, name) {
			return Tier(i), nil
		}
	}
	return LowConfidence, fmt.Errorf("unknown variant tier %v", s)
}

// Variant is a single substitution, insertion or deletion, with VCF
// conventions: Pos is 1-based, and indels share their first (anchor)
// base between Ref and Alt.
type Variant struct {
	Chrom    string
	Pos      int32
	Ref, Alt string
	Tier     Tier
}

func (v *Variant) String() string {
	return fmt.Sprintf("%v:%v %v>%v", v.Chrom, v.Pos, v.Ref, v.Alt)
}

// IsIndel is true when Ref and Alt differ in length.
func (v *Variant) IsIndel() bool { return len(v.Ref) != len(v.Alt) }

// IsInsert is true when Alt is longer than Ref.
func (v *Variant) IsInsert() bool { return len(v.Alt) > len(v.Ref) }

// IsDelete is true when Ref is longer than Alt.
func (v *Variant) IsDelete() bool { return len(v.Ref) > len(v.Alt) }

// IsSNV is true for single base substitutions.
func (v *Variant) IsSNV() bool { return len(v.Ref) == 1 && len(v.Alt) == 1 }

// IsMNV is true for multi-base substitutions.
func (v *Variant) IsMNV() bool { return len(v.Ref) > 1 && len(v.Ref) == len(v.Alt) }

// IndelLength is positive for insertions, negative for deletions.
func (v *Variant) IndelLength() int32 { return int32(len(v.Alt) - len(v.Ref)) }

// End is the position of the last reference base spanned by Ref.
func (v *Variant) End() int32 { return v.Pos + int32(len(v.Ref)) - 1 }

// Validate checks that the alleles are non-empty and use the
// A/C/G/T/N alphabet.
func (v *Variant) Validate() error {
	if v.Pos < 1 {
		return fmt.Errorf("variant %v has invalid position", v)
	}
	if len(v.Ref) == 0 || len(v.Alt) == 0 {
		return fmt.Errorf("variant %v has an empty allele", v)
	}
	for _, allele := range []string{v.Ref, v.Alt} {
		for i := 0; i < len(allele); i++ {
			switch allele[i] {
			case 'A', 'C', 'G', 'T', 'N':
			default:
				return fmt.Errorf("variant %v has invalid base %c", v, allele[i])
			}
		}
	}
	if v.IsIndel() && v.Ref[0] != v.Alt[0] {
		return fmt.Errorf("indel %v does not share its anchor base", v)
	}
	return nil
}
