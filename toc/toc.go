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

// Package toc models a CD Full TOC: an ordered list of track-data
// descriptors plus its interpretation and binary serialization rules.
// Generalized from CHD's own CHT2/CHCD track-table decoder to the Red Book
// Full TOC wire format used by CloneCD and CDRWin descriptors.
package toc

import (
	"fmt"

	"github.com/discimage/odie/sector"
)

// entrySize is the on-wire size of one Full TOC descriptor: session,
// ADR/CONTROL, TNO, POINT, Min, Sec, Frame, Zero, PMIN, PSEC, PFRAME.
const entrySize = 11

// headerSize is the 4-byte Full TOC response header: data_length (BE16),
// first_session, last_session.
const headerSize = 4

// Point values with fixed meanings, independent of track number.
const (
	PointFirstTrack = 0x01
	PointLastTrack  = 0x63
	PointDiscType   = 0xA0
	PointLeadOut    = 0xA2
	PointATIP       = 0xC0
)

// Entry is one Full TOC track-data descriptor.
type Entry struct {
	Session byte
	ADR     byte
	Control byte
	TNO     byte
	Point   byte
	Min     byte
	Sec     byte
	Frame   byte
	Zero    byte
	PMin    byte
	PSec    byte
	PFrame  byte
}

// PMSF returns the entry's (PMIN, PSEC, PFRAME) as an MSF address.
func (e Entry) PMSF() sector.MSF {
	return sector.MSF{Min: int(e.PMin), Sec: int(e.PSec), Frame: int(e.PFrame)}
}

// IsTrackStart reports whether e describes a normal track start (ADR 1 or
// 4, POINT in 0x01..0x63), returning the track sequence and its start LBA.
func (e Entry) IsTrackStart() (sequence, startLBA int, ok bool) {
	if (e.ADR != 1 && e.ADR != 4) || e.Point < PointFirstTrack || e.Point > PointLastTrack {
		return 0, 0, false
	}
	return int(e.Point), e.PMSF().LBA(), true
}

// IsDiscType reports whether e carries the disc type in PSEC (ADR 1 or 4,
// POINT 0xA0).
func (e Entry) IsDiscType() (discType byte, ok bool) {
	if (e.ADR != 1 && e.ADR != 4) || e.Point != PointDiscType {
		return 0, false
	}
	return e.PSec, true
}

// IsLeadOut reports whether e marks the lead-out start (ADR 1 or 4,
// POINT 0xA2), returning its start LBA.
func (e Entry) IsLeadOut() (startLBA int, ok bool) {
	if (e.ADR != 1 && e.ADR != 4) || e.Point != PointLeadOut {
		return 0, false
	}
	return e.PMSF().LBA(), true
}

// ATIPFingerprint reports whether e carries an ATIP manufacturer
// fingerprint (ADR 5, POINT 0xC0, PMIN 97), returning (PSEC, 10*(PFRAME/10)).
func (e Entry) ATIPFingerprint() (psec, frameDecade byte, ok bool) {
	if e.ADR != 5 || e.Point != PointATIP || e.PMin != 97 {
		return 0, 0, false
	}
	return e.PSec, (e.PFrame / 10) * 10, true
}

// DiscID reports whether e carries a disc ID (ADR 6), returning the 24-bit
// (Min<<16)|(Sec<<8)|Frame value.
func (e Entry) DiscID() (id uint32, ok bool) {
	if e.ADR != 6 {
		return 0, false
	}
	v := (uint32(e.Min) << 16) | (uint32(e.Sec) << 8) | uint32(e.Frame)
	return v & 0xFFFFFF, true
}

// TOC is a complete Full TOC: its session extremes plus the ordered
// descriptor list.
type TOC struct {
	FirstSession byte
	LastSession  byte
	Entries      []Entry
}

// Marshal serializes t to the canonical wire layout: a 4-byte header
// (data_length_be16, first_session, last_session) followed by one
// 11-byte record per entry. data_length counts everything after itself,
// i.e. 2 (session bytes) + 11*len(Entries).
func Marshal(t TOC) []byte {
	dataLength := 2 + entrySize*len(t.Entries)
	buf := make([]byte, headerSize+entrySize*len(t.Entries))
	buf[0] = byte(dataLength >> 8)
	buf[1] = byte(dataLength)
	buf[2] = t.FirstSession
	buf[3] = t.LastSession

	for i, e := range t.Entries {
		off := headerSize + i*entrySize
		buf[off+0] = e.Session
		buf[off+1] = (e.ADR << 4) | (e.Control & 0x0F)
		buf[off+2] = e.TNO
		buf[off+3] = e.Point
		buf[off+4] = e.Min
		buf[off+5] = e.Sec
		buf[off+6] = e.Frame
		buf[off+7] = e.Zero
		buf[off+8] = e.PMin
		buf[off+9] = e.PSec
		buf[off+10] = e.PFrame
	}
	return buf
}

// Unmarshal parses the canonical wire layout produced by Marshal.
func Unmarshal(buf []byte) (TOC, error) {
	if len(buf) < headerSize {
		return TOC{}, fmt.Errorf("toc: buffer too short for header: %d bytes", len(buf))
	}
	dataLength := int(buf[0])<<8 | int(buf[1])
	remaining := len(buf) - headerSize
	if dataLength-2 != remaining {
		return TOC{}, fmt.Errorf("toc: data_length %d does not match buffer size %d", dataLength, remaining+2)
	}
	if remaining%entrySize != 0 {
		return TOC{}, fmt.Errorf("toc: entry region %d is not a multiple of %d bytes", remaining, entrySize)
	}

	t := TOC{
		FirstSession: buf[2],
		LastSession:  buf[3],
		Entries:      make([]Entry, remaining/entrySize),
	}
	for i := range t.Entries {
		off := headerSize + i*entrySize
		rec := buf[off : off+entrySize]
		t.Entries[i] = Entry{
			Session: rec[0],
			ADR:     rec[1] >> 4,
			Control: rec[1] & 0x0F,
			TNO:     rec[2],
			Point:   rec[3],
			Min:     rec[4],
			Sec:     rec[5],
			Frame:   rec[6],
			Zero:    rec[7],
			PMin:    rec[8],
			PSec:    rec[9],
			PFrame:  rec[10],
		}
	}
	return t, nil
}
