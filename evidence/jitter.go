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

// JitterPolicy converts realignment outcomes into quality penalties.
type JitterPolicy struct {
	Penalty        float64
	MinRepeatCount int
}

// PenaltyFor returns the penalty for a jittered read with the given
// repeat count.
func (policy JitterPolicy) PenaltyFor(repeatCount int) float64 {
	return policy.Penalty * float64(maxInt(0, repeatCount-policy.MinRepeatCount))
}

// Jitter summarizes the jittered reads of a counter.
type Jitter struct {
	Shortened, Lengthened int
	Penalty               float64
}

// Update records a shortened or lengthened realignment. Other
// outcomes are ignored.
func (jitter *Jitter) Update(realigned Realigned, policy JitterPolicy) {
	switch realigned.Type {
	case RealignedShortened:
		jitter.Shortened++
	case RealignedLengthened:
		jitter.Lengthened++
	default:
		return
	}
	jitter.Penalty += policy.PenaltyFor(realigned.RepeatCount)
}
