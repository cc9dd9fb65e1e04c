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

import "sync/atomic"

// PhaseSetIDs issues phase set ids, starting at 1. It is shared by all
// partitions of a run and safe for concurrent use.
type PhaseSetIDs struct {
	last atomic.Int64
}

// NextID returns a new id.
func (ids *PhaseSetIDs) NextID() int {
	return int(ids.last.Add(1))
}

// AssignPhaseSets issues an id to every group and records it on the
// counters of the group's variants.
func AssignPhaseSets(groups []*PhasedGroup, counters []*Counter, ids *PhaseSetIDs) {
	for _, g := range groups {
		id := ids.NextID()
		for _, i := range g.Indices() {
			counters[i].AddLocalPhaseSet(id, g.ReadCount, g.Allocated)
		}
	}
}
