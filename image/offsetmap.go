// Copyright (c) 2025 Niema Moshiri and The Zaparoo Project.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of odie.
//
// odie is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// odie is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with odie.  If not, see <https://www.gnu.org/licenses/>.

package image

import "sort"

// OffsetMap maps a track sequence number to its starting LBA. Entries are
// kept dense and monotonic on track sequence; lookups that need "which
// track holds this LBA" use sort.Search on the backing slice rather than a
// linear scan.
type OffsetMap struct {
	sequences []int
	startLBAs []int
}

// newOffsetMap builds an OffsetMap from tracks already sorted by Sequence.
func newOffsetMap(tracks []Track) OffsetMap {
	om := OffsetMap{
		sequences: make([]int, len(tracks)),
		startLBAs: make([]int, len(tracks)),
	}
	for i, t := range tracks {
		om.sequences[i] = t.Sequence
		om.startLBAs[i] = t.StartLBA
	}
	return om
}

// StartLBA returns the starting LBA registered for a track sequence, and
// whether that sequence is present.
func (om OffsetMap) StartLBA(sequence int) (int, bool) {
	i := sort.SearchInts(om.sequences, sequence)
	if i == len(om.sequences) || om.sequences[i] != sequence {
		return 0, false
	}
	return om.startLBAs[i], true
}

// Sequences returns the track sequence numbers in ascending order.
func (om OffsetMap) Sequences() []int {
	out := make([]int, len(om.sequences))
	copy(out, om.sequences)
	return out
}

// Len reports the number of entries in the map.
func (om OffsetMap) Len() int {
	return len(om.sequences)
}
