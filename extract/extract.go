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

// Package extract implements the sector extraction engine: the handful of
// read operations every container, once reduced to an image.Layout plus its
// backing byte streams, supports identically.
//
// Grounded on chd.sectorReader (chd/chd.go), generalized from one
// hunk-addressed stream to the Source abstraction's per-track streams.
package extract

import (
	"fmt"
	"io"

	"github.com/discimage/odie/errs"
	"github.com/discimage/odie/image"
	"github.com/discimage/odie/sector"
)

// Source supplies the byte streams backing a Layout's tracks. Most
// containers have exactly one data stream shared by every track
// (StreamID 0); CloneCD-with-.sub and DiscJuggler raw+Q16 containers add a
// second stream for subchannel bytes.
type Source interface {
	Stream(id int) (io.ReaderAt, error)
}

// Engine binds a frozen Layout to its backing Source and implements the
// read/verify operations of §4.6 and §4.7.
type Engine struct {
	Layout *image.Layout
	Source Source
}

// New binds a Layout to the streams that back it.
func New(layout *image.Layout, source Source) *Engine {
	return &Engine{Layout: layout, Source: source}
}

// resolve finds the track containing lba, or returns ErrOutOfRange.
func (e *Engine) resolve(lba int) (image.Track, error) {
	t, ok := e.Layout.TrackContaining(lba)
	if !ok {
		return image.Track{}, fmt.Errorf("%w: lba %d is not within any track", errs.ErrOutOfRange, lba)
	}
	return t, nil
}

// readSpan reads `size` bytes at `(offset bytes into raw sector k of track)`
// from the track's backing stream, per the §4.6 extraction algorithm:
// byte span = [file_offset + k*stride + offset, size). Scrambled tracks
// (CloneCD's DataTracksScrambled) are read a whole raw sector at a time and
// descrambled before the requested span is sliced out, since the ECMA-130
// XOR mask runs across the entire 2352-byte sector.
func (e *Engine) readSpan(t image.Track, k int, offset, size int) ([]byte, error) {
	stream, err := e.Source.Stream(t.StreamID)
	if err != nil {
		return nil, errs.NewIoError(err)
	}
	base := t.FileOffset + int64(k)*t.Stride()
	if t.Scrambled {
		raw := make([]byte, t.RawBytesPerSector)
		if _, err := io.ReadFull(io.NewSectionReader(stream, base, int64(len(raw))), raw); err != nil {
			return nil, errs.NewIoError(err)
		}
		sector.Descramble(raw)
		if offset < 0 || offset+size > len(raw) {
			return nil, fmt.Errorf("%w: span [%d:%d) exceeds raw sector size %d",
				errs.ErrOutOfRange, offset, offset+size, len(raw))
		}
		buf := make([]byte, size)
		copy(buf, raw[offset:offset+size])
		return buf, nil
	}
	pos := base + int64(offset)
	buf := make([]byte, size)
	if _, err := io.ReadFull(io.NewSectionReader(stream, pos, int64(size)), buf); err != nil {
		return nil, errs.NewIoError(err)
	}
	return buf, nil
}

// ReadSector returns the cooked user-data payload at an absolute LBA,
// resolving the containing track via the offset map.
func (e *Engine) ReadSector(lba int) ([]byte, error) {
	t, err := e.resolve(lba)
	if err != nil {
		return nil, err
	}
	return e.ReadSectorInTrack(lba-t.StartLBA, t)
}

// ReadSectorInTrack reads one sector at a track-relative LBA, bypassing
// offset-map resolution.
func (e *Engine) ReadSectorInTrack(relativeLBA int, t image.Track) ([]byte, error) {
	if relativeLBA < 0 || t.StartLBA+relativeLBA > t.EndLBA {
		return nil, fmt.Errorf("%w: relative lba %d outside track %d", errs.ErrOutOfRange, relativeLBA, t.Sequence)
	}
	offset := 0
	if t.RawBytesPerSector >= sector.RawBytesCD {
		// Raw sectors carry sync/header (and a Mode 2 sub-header) ahead of
		// the user data; cooked sectors hold user data at offset 0.
		if layout, err := sector.Geometry(t.Type, sector.TagUserData); err == nil {
			offset = layout.Offset
		}
	}
	return e.readSpan(t, relativeLBA, offset, t.UserBytesPerSector)
}

// ReadSectors returns count consecutive sectors' cooked user data starting
// at an absolute LBA. Reads never cross a track boundary.
func (e *Engine) ReadSectors(lba, count int) ([]byte, error) {
	t, err := e.resolve(lba)
	if err != nil {
		return nil, err
	}
	if lba+count-1 > t.EndLBA {
		return nil, fmt.Errorf("%w: read of %d sectors from lba %d crosses track %d's end",
			errs.ErrOutOfRange, count, lba, t.Sequence)
	}
	size := t.UserBytesPerSector
	k := lba - t.StartLBA

	if !t.Scrambled && int64(t.Stride()) == int64(size) {
		stream, err := e.Source.Stream(t.StreamID)
		if err != nil {
			return nil, errs.NewIoError(err)
		}
		pos := t.FileOffset + int64(k)*t.Stride()
		buf := make([]byte, size*count)
		if _, err := io.ReadFull(io.NewSectionReader(stream, pos, int64(len(buf))), buf); err != nil {
			return nil, errs.NewIoError(err)
		}
		return buf, nil
	}

	buf := make([]byte, 0, size*count)
	for i := 0; i < count; i++ {
		chunk, err := e.ReadSectorInTrack(k+i, t)
		if err != nil {
			return nil, err
		}
		buf = append(buf, chunk...)
	}
	return buf, nil
}

// ReadSectorLong returns the full raw sector (2352 bytes for CD tracks) at
// an absolute LBA.
func (e *Engine) ReadSectorLong(lba int) ([]byte, error) {
	t, err := e.resolve(lba)
	if err != nil {
		return nil, err
	}
	return e.readSpan(t, lba-t.StartLBA, 0, t.RawBytesPerSector)
}

// ReadSectorTag returns one tagged substructure (Sync, Header, SubHeader,
// UserData, EDC, ECC, ECC_P, ECC_Q) of the sector at an absolute LBA, per
// the Sector Geometry table.
func (e *Engine) ReadSectorTag(lba int, tag sector.Tag) ([]byte, error) {
	t, err := e.resolve(lba)
	if err != nil {
		return nil, err
	}
	return e.ReadSectorTagInTrack(lba-t.StartLBA, t, tag)
}

// ReadSectorTagInTrack reads a tagged substructure at a track-relative LBA.
func (e *Engine) ReadSectorTagInTrack(relativeLBA int, t image.Track, tag sector.Tag) ([]byte, error) {
	if tag == sector.TagTrackFlags {
		control, ok := e.Layout.TrackFlags(t.Sequence)
		if !ok {
			return nil, fmt.Errorf("%w: no track flags recorded for track %d", errs.ErrNotPresent, t.Sequence)
		}
		return []byte{control}, nil
	}
	if tag == sector.TagSubchannel {
		return e.readSubchannel(relativeLBA, t)
	}

	if t.RawBytesPerSector < sector.RawBytesCD {
		// Cooked tracks carry only user data, at offset 0; Sync, Header,
		// SubHeader, EDC and ECC were stripped when the sector was cooked.
		if tag != sector.TagUserData {
			return nil, fmt.Errorf("%w: track %d stores cooked %d-byte sectors and has no %s",
				errs.ErrUnsupportedTag, t.Sequence, t.RawBytesPerSector, tag)
		}
		return e.readSpan(t, relativeLBA, 0, t.UserBytesPerSector)
	}

	layout, err := sector.Geometry(t.Type, tag)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnsupportedTag, err)
	}
	return e.readSpan(t, relativeLBA, layout.Offset, layout.Size)
}

// readSubchannel resolves subchannel bytes either from a dedicated stream
// (the common case, e.g. CloneCD's .sub) or from bytes interleaved after
// the raw sector on the same stream. Q16-only subchannel reconstruction is
// explicitly out of scope.
func (e *Engine) readSubchannel(relativeLBA int, t image.Track) ([]byte, error) {
	if t.SubchannelType == sector.SubchannelNone {
		return nil, fmt.Errorf("%w: track %d carries no subchannel", errs.ErrUnsupportedTag, t.Sequence)
	}
	if t.SubchannelType == sector.SubchannelQ16Interleaved {
		return nil, fmt.Errorf("%w: Q16 subchannel reconstruction", errs.ErrNotYetImplemented)
	}

	if t.SubchannelFileOffset != 0 || t.SubchannelStreamID != t.StreamID {
		stream, err := e.Source.Stream(t.SubchannelStreamID)
		if err != nil {
			return nil, errs.NewIoError(err)
		}
		pos := t.SubchannelFileOffset + int64(relativeLBA)*sector.SubchannelSize
		buf := make([]byte, sector.SubchannelSize)
		if _, err := io.ReadFull(io.NewSectionReader(stream, pos, sector.SubchannelSize), buf); err != nil {
			return nil, errs.NewIoError(err)
		}
		return buf, nil
	}
	return e.readSpan(t, relativeLBA, t.RawBytesPerSector, sector.SubchannelSize)
}
