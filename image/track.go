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

// Package image holds the canonical, container-agnostic disc model that every
// format parser produces and the extraction engine consumes: Track, Session,
// Partition, OffsetMap, TrackFlags and MediaType.
//
// Grounded on chd.Track (odie's own chd package, adapted from the
// CHT2/CHTR/CHCD metadata decoder) generalized to all six container
// formats, plus the Track/Session split used throughout the disc-detection
// code this package descends from.
package image

import (
	"fmt"

	"github.com/discimage/odie/sector"
)

// Track is a contiguous LBA range within one session.
type Track struct {
	Sequence           int // 1..99
	Session            int // >=1
	Type               sector.TrackType
	RawBytesPerSector  int
	UserBytesPerSector int
	StartLBA           int
	EndLBA             int // inclusive
	FileOffset         int64

	// StreamID indexes the opened image's backing data streams (most
	// containers have exactly one; DiscJuggler/CloneCD-with-.sub and CHD
	// may split user data and subchannel across two).
	StreamID int

	SubchannelType       sector.SubchannelType
	SubchannelFileOffset int64
	SubchannelStreamID   int

	// Control is the 4-bit CONTROL nibble: bit0 preemphasis, bit1 digital
	// copy permitted, bit2 data/audio, bit3 quadraphonic (§3, §4.2).
	Control byte

	// Scrambled marks a data track whose raw sectors are stored
	// ECMA-130-scrambled on the backing stream (CloneCD's DataTracksScrambled
	// mode). The extraction engine descrambles each raw sector before
	// slicing out any tag from it.
	Scrambled bool
}

// Stride is the number of bytes on the data stream consumed per sector,
// including subchannel padding only when the subchannel shares the track's
// main data stream (SubchannelStreamID == StreamID); a subchannel living on
// its own dedicated stream (e.g. CloneCD's .sub) has its own stride and
// never widens this one.
func (t Track) Stride() int64 {
	if t.SubchannelType != sector.SubchannelNone && t.SubchannelStreamID == t.StreamID {
		return int64(t.RawBytesPerSector) + int64(sector.SubchannelPadding(t.SubchannelType))
	}
	return int64(t.RawBytesPerSector)
}

// Length is the number of sectors in the track.
func (t Track) Length() int {
	return t.EndLBA - t.StartLBA + 1
}

// Contains reports whether lba falls within [StartLBA, EndLBA].
func (t Track) Contains(lba int) bool {
	return lba >= t.StartLBA && lba <= t.EndLBA
}

// OffsetOf returns the data-stream byte offset at which absolute LBA lba
// begins: file_offset + (lba - start_lba) * stride.
func (t Track) OffsetOf(lba int) int64 {
	return t.FileOffset + int64(lba-t.StartLBA)*t.Stride()
}

// Validate checks the Track-level invariants.
func (t Track) Validate() error {
	if t.EndLBA < t.StartLBA {
		return fmt.Errorf("track %d: end_lba %d < start_lba %d", t.Sequence, t.EndLBA, t.StartLBA)
	}
	if t.RawBytesPerSector < t.UserBytesPerSector {
		return fmt.Errorf("track %d: raw_bytes_per_sector %d < user_bytes_per_sector %d",
			t.Sequence, t.RawBytesPerSector, t.UserBytesPerSector)
	}
	if t.Type == sector.TypeAudio {
		if t.UserBytesPerSector != sector.RawBytesCD || t.RawBytesPerSector != sector.RawBytesCD {
			return fmt.Errorf("track %d: audio track must be %d/%d bytes per sector",
				t.Sequence, sector.RawBytesCD, sector.RawBytesCD)
		}
	}
	return nil
}

// Session groups a contiguous run of tracks.
type Session struct {
	Sequence    int
	StartTrack  int
	EndTrack    int
	StartSector int
	EndSector   int
}

// Partition is a 1:1 projection of a Track for downstream consumers that
// expect a generic partition-scheme view rather than CD semantics.
type Partition struct {
	Description string
	Sequence    int
	Start       int
	Length      int
	Offset      int64
	SizeInBytes int64
	TypeTag     string
}

// partitionFromTrack derives a Partition 1:1 from a Track.
func partitionFromTrack(t Track) Partition {
	return Partition{
		Description: fmt.Sprintf("Track %d", t.Sequence),
		Sequence:    t.Sequence,
		Start:       t.StartLBA,
		Length:      t.Length(),
		Offset:      t.FileOffset,
		SizeInBytes: int64(t.Length()) * int64(t.UserBytesPerSector),
		TypeTag:     t.Type.String(),
	}
}
