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

import (
	"fmt"
	"sort"
)

// Builder accumulates a container parser's per-track output and turns it
// into a frozen Layout. A Builder is used once: Build seals it, and any
// further call on a built Builder panics as a programmer error.
type Builder struct {
	format     Format
	tracks     []Track
	trackFlags map[int]byte
	diskTags   map[DiskTag][]byte
	built      bool
}

// NewBuilder starts a Layout build for the given container format.
func NewBuilder(format Format) *Builder {
	return &Builder{
		format:     format,
		trackFlags: map[int]byte{},
		diskTags:   map[DiskTag][]byte{},
	}
}

// AddTrack registers one parsed track. Order of calls does not matter;
// Build sorts by Sequence.
func (b *Builder) AddTrack(t Track) *Builder {
	b.panicIfBuilt()
	b.tracks = append(b.tracks, t)
	return b
}

// SetTrackFlag records the CONTROL nibble for a track sequence.
func (b *Builder) SetTrackFlag(sequence int, control byte) *Builder {
	b.panicIfBuilt()
	b.trackFlags[sequence] = control
	return b
}

// SetDiskTag attaches container-level metadata (CD-TEXT, Full TOC, ...).
func (b *Builder) SetDiskTag(tag DiskTag, data []byte) *Builder {
	b.panicIfBuilt()
	b.diskTags[tag] = data
	return b
}

func (b *Builder) panicIfBuilt() {
	if b.built {
		panic("image: Builder used after Build: layouts are immutable once frozen")
	}
}

// Build performs the five duties of §4.4: sort, seal sessions, derive
// Partitions and OffsetMap, classify MediaType, and freeze the result.
func (b *Builder) Build() (*Layout, error) {
	b.panicIfBuilt()
	if len(b.tracks) == 0 {
		return nil, fmt.Errorf("image: cannot build a layout with no tracks")
	}

	tracks := make([]Track, len(b.tracks))
	copy(tracks, b.tracks)
	sort.Slice(tracks, func(i, j int) bool { return tracks[i].Sequence < tracks[j].Sequence })

	seenSeq := map[int]bool{}
	for _, t := range tracks {
		if seenSeq[t.Sequence] {
			return nil, fmt.Errorf("image: duplicate track sequence %d", t.Sequence)
		}
		seenSeq[t.Sequence] = true
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}

	sessions, err := sealSessions(tracks)
	if err != nil {
		return nil, err
	}

	partitions := make([]Partition, len(tracks))
	for i, t := range tracks {
		partitions[i] = partitionFromTrack(t)
	}

	b.built = true
	return &Layout{
		Format:     b.format,
		tracks:     tracks,
		sessions:   sessions,
		partitions: partitions,
		offsetMap:  newOffsetMap(tracks),
		media:      ClassifyMediaType(tracks),
		trackFlags: b.trackFlags,
		diskTags:   b.diskTags,
		frozen:     true,
	}, nil
}

// sealSessions groups sequence-sorted tracks into sessions, verifying that
// each session's tracks form one contiguous run (no interleaving between
// sessions) and deriving start/end track and sector bounds.
func sealSessions(tracks []Track) ([]Session, error) {
	var sessions []Session
	var cur *Session
	seenSessions := map[int]bool{}

	for _, t := range tracks {
		if cur == nil || cur.Sequence != t.Session {
			if cur != nil {
				sessions = append(sessions, *cur)
			}
			if seenSessions[t.Session] {
				return nil, fmt.Errorf("image: session %d tracks are not contiguous", t.Session)
			}
			seenSessions[t.Session] = true
			cur = &Session{
				Sequence:    t.Session,
				StartTrack:  t.Sequence,
				EndTrack:    t.Sequence,
				StartSector: t.StartLBA,
				EndSector:   t.EndLBA,
			}
			continue
		}
		cur.EndTrack = t.Sequence
		cur.EndSector = t.EndLBA
	}
	if cur != nil {
		sessions = append(sessions, *cur)
	}
	return sessions, nil
}
