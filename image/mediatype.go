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

import "github.com/discimage/odie/sector"

// MediaType classifies a disc by the composition of its track list (§4.5).
type MediaType int

const (
	MediaCDDA MediaType = iota
	MediaCDPLUS
	MediaCDROMXA
	MediaCDROM
	MediaCD
)

// String implements fmt.Stringer.
func (m MediaType) String() string {
	switch m {
	case MediaCDDA:
		return "CDDA"
	case MediaCDPLUS:
		return "CDPLUS"
	case MediaCDROMXA:
		return "CDROMXA"
	case MediaCDROM:
		return "CDROM"
	case MediaCD:
		return "CD"
	default:
		return "Unknown"
	}
}

// ClassifyMediaType applies the §4.5 composition rule to an ordered,
// non-empty track list. It is deterministic and idempotent: calling it twice
// on the same (type, session) tuples yields the same result.
func ClassifyMediaType(tracks []Track) MediaType {
	if len(tracks) == 0 {
		return MediaCDROM
	}

	firstAudio := tracks[0].Type == sector.TypeAudio
	firstData := !firstAudio

	var data, audio, mode2 bool
	sessions := map[int]bool{}
	for i, t := range tracks {
		sessions[t.Session] = true
		if t.Type.IsMode2() {
			mode2 = true
		}
		if i == 0 {
			continue
		}
		if t.Type == sector.TypeAudio {
			audio = true
		} else {
			data = true
		}
	}

	switch {
	case !data && !firstData:
		return MediaCDDA
	case firstAudio && data && len(sessions) > 1 && mode2:
		return MediaCDPLUS
	case (firstData && audio) || mode2:
		return MediaCDROMXA
	case !audio:
		return MediaCDROM
	default:
		return MediaCD
	}
}
