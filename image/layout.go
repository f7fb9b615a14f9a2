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

// Format tags which container parser produced a Layout: a closed variant
// rather than a per-format subclass, so every parser returns the same
// Layout value and the extraction engine downstream never branches on
// container kind.
type Format int

const (
	FormatCloneCD Format = iota
	FormatDiscJuggler
	FormatCDRWin
	FormatBlindWrite
	FormatDiskCopy
	FormatIMD
	FormatCHD
)

// String implements fmt.Stringer.
func (f Format) String() string {
	switch f {
	case FormatCloneCD:
		return "CloneCD"
	case FormatDiscJuggler:
		return "DiscJuggler"
	case FormatCDRWin:
		return "CDRWin"
	case FormatBlindWrite:
		return "BlindWrite4"
	case FormatDiskCopy:
		return "DiskCopy42"
	case FormatIMD:
		return "IMD"
	case FormatCHD:
		return "CHD"
	default:
		return "Unknown"
	}
}

// DiskTag identifies a piece of container-level (not per-sector) metadata
// that ReadDiskTag can be asked for.
type DiskTag int

const (
	DiskTagCDText DiskTag = iota
	DiskTagFullTOC
	DiskTagCDMCN
	DiskTagCDATIP
)

// Layout is the canonical, frozen disc model a container parser produces
// and the extraction/verification engines consume. It is
// the common value every `formats/*` parser builds via Builder; nothing
// downstream of Open ever needs to know which parser produced it.
type Layout struct {
	Format Format

	tracks     []Track
	sessions   []Session
	partitions []Partition
	offsetMap  OffsetMap
	media      MediaType
	trackFlags map[int]byte
	diskTags   map[DiskTag][]byte

	frozen bool
}

// Tracks returns the ordered, immutable track list.
func (l *Layout) Tracks() []Track {
	out := make([]Track, len(l.tracks))
	copy(out, l.tracks)
	return out
}

// Sessions returns the ordered, immutable session list.
func (l *Layout) Sessions() []Session {
	out := make([]Session, len(l.sessions))
	copy(out, l.sessions)
	return out
}

// Partitions returns the 1:1 track projection.
func (l *Layout) Partitions() []Partition {
	out := make([]Partition, len(l.partitions))
	copy(out, l.partitions)
	return out
}

// OffsetMap returns the track-sequence to start-LBA map.
func (l *Layout) OffsetMap() OffsetMap {
	return l.offsetMap
}

// MediaType returns the classified media type.
func (l *Layout) MediaType() MediaType {
	return l.media
}

// TrackFlags returns the CONTROL nibble stored for a track sequence.
func (l *Layout) TrackFlags(sequence int) (byte, bool) {
	b, ok := l.trackFlags[sequence]
	return b, ok
}

// DiskTag returns container-level metadata previously attached by the
// parser (CD-TEXT, Full TOC, MCN, ATIP), or ok=false if the container
// never carried that tag.
func (l *Layout) DiskTag(tag DiskTag) ([]byte, bool) {
	b, ok := l.diskTags[tag]
	return b, ok
}

// TrackBySequence returns the track with the given sequence number.
func (l *Layout) TrackBySequence(sequence int) (Track, bool) {
	for _, t := range l.tracks {
		if t.Sequence == sequence {
			return t, true
		}
	}
	return Track{}, false
}

// SessionTracks returns every track belonging to a session sequence.
func (l *Layout) SessionTracks(session int) []Track {
	var out []Track
	for _, t := range l.tracks {
		if t.Session == session {
			out = append(out, t)
		}
	}
	return out
}

// TrackContaining returns the track whose [StartLBA, EndLBA] contains lba,
// via binary search on the offset map's dense, monotonic start-LBA ordering.
func (l *Layout) TrackContaining(lba int) (Track, bool) {
	lo, hi := 0, len(l.tracks)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		t := l.tracks[mid]
		switch {
		case lba < t.StartLBA:
			hi = mid - 1
		case lba > t.EndLBA:
			lo = mid + 1
		default:
			return t, true
		}
	}
	return Track{}, false
}
