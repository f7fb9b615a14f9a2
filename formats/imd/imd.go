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

// Package imd parses Dave Dunfield's ImageDisk (.imd) container: an ASCII
// comment header terminated by 0x1A, followed by a stream of per-track
// records (mode, cylinder, head, sectors-per-track, sector-size code,
// sector numbering map, optional cylinder/head maps) each followed by one
// typed data blob per sector.
//
// Grounded on formats/discjuggler's footerReader cursor idiom (sequential
// field reads with explicit error propagation, no backtracking) adapted to
// a forward-only stream instead of a backward-addressed footer.
package imd

import (
	"bytes"
	"fmt"
	"io"

	ibinary "github.com/discimage/odie/internal/binary"

	"github.com/discimage/odie/errs"
	"github.com/discimage/odie/extract"
	"github.com/discimage/odie/filter"
	"github.com/discimage/odie/image"
	"github.com/discimage/odie/sector"
)

// sectorDataType is the 1-byte tag preceding each sector's payload.
type sectorDataType byte

const (
	sectorUnavailable        sectorDataType = 0
	sectorNormal             sectorDataType = 1
	sectorCompressed         sectorDataType = 2
	sectorDeleted            sectorDataType = 3
	sectorCompressedDeleted  sectorDataType = 4
	sectorNormalError        sectorDataType = 5
	sectorCompressedError    sectorDataType = 6
	sectorDeletedError       sectorDataType = 7
	sectorCompressedDelError sectorDataType = 8
)

// sectorSizeFor decodes the track header's size code n into bytes: 128<<n,
// per the ImageDisk specification's fixed size table.
func sectorSizeFor(n byte) (int, bool) {
	if n > 6 {
		return 0, false
	}
	return 128 << n, true
}

// Parser implements odie.Parser for .imd images.
type Parser struct{}

// Probe reports whether primary begins with the "IMD " ASCII marker every
// ImageDisk comment header starts with.
func (Parser) Probe(primary filter.Filter) (bool, error) {
	stream, err := primary.DataForkStream()
	if err != nil {
		return false, errs.NewIoError(err)
	}
	buf := make([]byte, 4)
	n, _ := stream.ReadAt(buf, 0)
	return n == 4 && string(buf) == "IMD ", nil
}

// Parse fully decodes an .imd stream into a flat sequence of Data tracks,
// materializing the decoded (fill-expanded) sector bytes into an in-memory
// buffer: ImageDisk's per-sector compression means track data is not a
// fixed-stride slice of the source file the way every other container's
// is, so the extraction engine reads through a synthesized linear buffer
// instead of FileOffset arithmetic into the original stream.
func (Parser) Parse(primary filter.Filter, _ filter.Resolver) (*image.Layout, extract.Source, error) {
	stream, err := primary.DataForkStream()
	if err != nil {
		return nil, nil, errs.NewIoError(err)
	}
	length, err := primary.Length()
	if err != nil {
		return nil, nil, errs.NewIoError(err)
	}

	r := io.NewSectionReader(stream, 0, length)
	cursor, err := skipCommentHeader(r)
	if err != nil {
		return nil, nil, err
	}

	var buf bytes.Buffer
	var tracks []image.Track
	lba := 0
	sequence := 1

	for {
		hdr := make([]byte, 5)
		_, err := io.ReadFull(r, hdr)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", errs.NewIoError(err), err)
		}
		cursor += 5

		head := hdr[2]
		spt := int(hdr[3])
		sizeCode := hdr[4]
		sectorSize, ok := sectorSizeFor(sizeCode)
		if !ok {
			return nil, nil, fmt.Errorf("%w: sector size code %d out of range", errs.NewMalformedError("imd", cursor), sizeCode)
		}

		idMap := make([]byte, spt)
		if _, err := io.ReadFull(r, idMap); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", errs.NewIoError(err), err)
		}
		cursor += int64(spt)

		if head&0x80 != 0 {
			skip := make([]byte, spt)
			if _, err := io.ReadFull(r, skip); err != nil {
				return nil, nil, fmt.Errorf("%w: %v", errs.NewIoError(err), err)
			}
			cursor += int64(spt)
		}
		if head&0x40 != 0 {
			skip := make([]byte, spt)
			if _, err := io.ReadFull(r, skip); err != nil {
				return nil, nil, fmt.Errorf("%w: %v", errs.NewIoError(err), err)
			}
			cursor += int64(spt)
		}

		trackStartLBA := lba
		trackStartOffset := int64(buf.Len())

		for i := 0; i < spt; i++ {
			tag, err := ibinary.ReadUint8At(r, cursor)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %v", errs.NewIoError(err), err)
			}
			if _, err := r.Seek(cursor+1, io.SeekStart); err != nil {
				return nil, nil, fmt.Errorf("%w: %v", errs.NewIoError(err), err)
			}
			cursor++

			switch sectorDataType(tag) {
			case sectorUnavailable:
				buf.Write(make([]byte, sectorSize))
			case sectorNormal, sectorDeleted, sectorNormalError, sectorDeletedError:
				payload := make([]byte, sectorSize)
				if _, err := io.ReadFull(r, payload); err != nil {
					return nil, nil, fmt.Errorf("%w: %v", errs.NewIoError(err), err)
				}
				cursor += int64(sectorSize)
				buf.Write(payload)
			case sectorCompressed, sectorCompressedDeleted, sectorCompressedError, sectorCompressedDelError:
				fill := make([]byte, 1)
				if _, err := io.ReadFull(r, fill); err != nil {
					return nil, nil, fmt.Errorf("%w: %v", errs.NewIoError(err), err)
				}
				cursor++
				filled := bytes.Repeat(fill, sectorSize)
				buf.Write(filled)
			default:
				return nil, nil, fmt.Errorf("%w: unknown sector data type %d", errs.NewMalformedError("imd", cursor-1), tag)
			}
			lba++
		}

		tr := image.Track{
			Sequence:           sequence,
			Session:            1,
			Type:               sector.TypeData,
			RawBytesPerSector:  sectorSize,
			UserBytesPerSector: sectorSize,
			StartLBA:           trackStartLBA,
			EndLBA:             lba - 1,
			FileOffset:         trackStartOffset,
			StreamID:           0,
		}
		if err := tr.Validate(); err != nil {
			return nil, nil, err
		}
		tracks = append(tracks, tr)
		sequence++
	}

	if len(tracks) == 0 {
		return nil, nil, fmt.Errorf("%w: no tracks decoded from .imd stream", errs.ErrNotRecognized)
	}

	builder := image.NewBuilder(image.FormatIMD)
	for _, t := range tracks {
		builder.AddTrack(t)
	}
	layout, err := builder.Build()
	if err != nil {
		return nil, nil, err
	}
	return layout, &source{data: buf.Bytes()}, nil
}

// skipCommentHeader advances past the ASCII comment header every .imd
// stream begins with, which ends at the first 0x1A (Ctrl-Z) byte.
func skipCommentHeader(r *io.SectionReader) (int64, error) {
	var cursor int64
	b := make([]byte, 1)
	for {
		n, err := r.ReadAt(b, cursor)
		if n == 0 || err != nil {
			if err == io.EOF {
				return 0, fmt.Errorf("%w: no 0x1A terminator found in .imd comment header", errs.ErrNotRecognized)
			}
			return 0, fmt.Errorf("%w: %v", errs.NewIoError(err), err)
		}
		cursor++
		if b[0] == 0x1A {
			if _, err := r.Seek(cursor, io.SeekStart); err != nil {
				return 0, fmt.Errorf("%w: %v", errs.NewIoError(err), err)
			}
			return cursor, nil
		}
	}
}

// byteReaderAt implements io.ReaderAt over an in-memory buffer: the
// decoded, fill-expanded track data this parser materializes.
type byteReaderAt struct {
	data []byte
}

func (b *byteReaderAt) ReadAt(dst []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(dst, b.data[off:])
	if n < len(dst) {
		return n, io.EOF
	}
	return n, nil
}

// source binds the extraction engine's single stream to the decoded
// in-memory track buffer.
type source struct {
	data []byte
}

func (s *source) Stream(id int) (io.ReaderAt, error) {
	if id != 0 {
		return nil, fmt.Errorf("imd: unknown stream %d", id)
	}
	return &byteReaderAt{data: s.data}, nil
}
