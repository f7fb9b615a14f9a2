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

// Package diskcopy parses Apple DiskCopy 4.2 images: a fixed 0x54-byte
// (84-byte) header followed by a data area and, on the Filter's resource
// fork, a parallel tag area. The header layout is:
//
//	0x00  64 bytes  Pascal disk name (1-byte length + up to 63 bytes)
//	0x40  4 bytes   dataSize, big-endian
//	0x44  4 bytes   tagSize, big-endian
//	0x48  4 bytes   dataChecksum, big-endian
//	0x4C  4 bytes   tagChecksum, big-endian
//	0x50  1 byte    diskFormat (0=400K, 1=800K, 2=720K, 3=1440K, 4=Twiggy 871K)
//	0x51  1 byte    formatByte (0x12 GCR or 0x22 MFM, by convention)
//	0x52  2 bytes   privateWord, must be 0x0100
//
// Grounded on internal/binary's ReadAt-family field readers (shared with
// discjuggler's footer walk) for the fixed-offset header decode.
package diskcopy

import (
	"encoding/binary"
	"fmt"
	"io"

	ibinary "github.com/discimage/odie/internal/binary"

	"github.com/discimage/odie/errs"
	"github.com/discimage/odie/extract"
	"github.com/discimage/odie/filter"
	"github.com/discimage/odie/image"
	"github.com/discimage/odie/sector"
)

const (
	headerSize  = 0x54
	privateWord = 0x0100
	sectorBytes = 512
)

// diskFormatName names the standard 3.5"/5.25" Macintosh geometries;
// Twiggy (format 4, the Lisa's 871 KiB drive) uses a variable
// sectors-per-track layout that this parser does not reconstruct; it is
// exposed as a single flat Data track of 512-byte sectors like every other
// format here, which is enough for sector-level random access but not for
// emulating the original variable-geometry track table.
func diskFormatName(b byte) string {
	switch b {
	case 0:
		return "400K"
	case 1:
		return "800K"
	case 2:
		return "720K"
	case 3:
		return "1440K"
	case 4:
		return "Twiggy871K"
	default:
		return "unknown"
	}
}

type header struct {
	diskName     string
	dataSize     uint32
	tagSize      uint32
	dataChecksum uint32
	tagChecksum  uint32
	diskFormat   byte
	formatByte   byte
}

func readHeader(stream io.ReaderAt) (header, error) {
	buf, err := ibinary.ReadBytesAt(stream, 0, headerSize)
	if err != nil {
		return header{}, fmt.Errorf("%w: %v", errs.NewIoError(err), err)
	}

	nameLen := int(buf[0])
	if nameLen > 63 {
		return header{}, fmt.Errorf("%w: disk name length %d exceeds 63", errs.NewMalformedError("diskcopy", 0), nameLen)
	}
	priv := binary.BigEndian.Uint16(buf[0x52:0x54])
	if priv != privateWord {
		return header{}, fmt.Errorf("%w: private word 0x%04X, want 0x%04X", errs.ErrNotRecognized, priv, privateWord)
	}

	h := header{
		diskName:     ibinary.CleanString(buf[1 : 1+nameLen]),
		dataSize:     binary.BigEndian.Uint32(buf[0x40:0x44]),
		tagSize:      binary.BigEndian.Uint32(buf[0x44:0x48]),
		dataChecksum: binary.BigEndian.Uint32(buf[0x48:0x4C]),
		tagChecksum:  binary.BigEndian.Uint32(buf[0x4C:0x50]),
		diskFormat:   buf[0x50],
		formatByte:   buf[0x51],
	}
	return h, nil
}

// Parser implements odie.Parser for Apple DiskCopy 4.2 images.
type Parser struct{}

// Probe reads the fixed header and checks the private-word magic plus a
// plausible dataSize/tagSize relationship (tagSize, when present, must be
// an integral 12-bytes-per-sector multiple of dataSize/512).
func (Parser) Probe(primary filter.Filter) (bool, error) {
	stream, err := primary.DataForkStream()
	if err != nil {
		return false, errs.NewIoError(err)
	}
	h, err := readHeader(stream)
	if err != nil {
		return false, nil
	}
	if h.dataSize == 0 || h.dataSize%sectorBytes != 0 {
		return false, nil
	}
	if h.tagSize != 0 && h.tagSize != (h.dataSize/sectorBytes)*12 {
		return false, nil
	}
	return true, nil
}

// Parse fully decodes a DiskCopy 4.2 header into a single flat Data track.
func (Parser) Parse(primary filter.Filter, _ filter.Resolver) (*image.Layout, extract.Source, error) {
	stream, err := primary.DataForkStream()
	if err != nil {
		return nil, nil, errs.NewIoError(err)
	}
	h, err := readHeader(stream)
	if err != nil {
		return nil, nil, err
	}
	if h.dataSize == 0 || h.dataSize%sectorBytes != 0 {
		return nil, nil, fmt.Errorf("%w: dataSize %d is not a multiple of %d", errs.NewMalformedError("diskcopy", 0x40), h.dataSize, sectorBytes)
	}

	sectorCount := int(h.dataSize / sectorBytes)
	tr := image.Track{
		Sequence:           1,
		Session:            1,
		Type:               sector.TypeData,
		RawBytesPerSector:  sectorBytes,
		UserBytesPerSector: sectorBytes,
		StartLBA:           0,
		EndLBA:             sectorCount - 1,
		FileOffset:         headerSize,
		StreamID:           0,
	}
	if err := tr.Validate(); err != nil {
		return nil, nil, err
	}

	builder := image.NewBuilder(image.FormatDiskCopy)
	builder.AddTrack(tr)
	builder.SetDiskTag(image.DiskTagCDMCN, []byte(fmt.Sprintf("%s (%s)", h.diskName, diskFormatName(h.diskFormat))))

	layout, err := builder.Build()
	if err != nil {
		return nil, nil, err
	}
	return layout, &source{data: stream}, nil
}

// source binds the extraction engine's single stream directly to the
// DiskCopy file's data fork: the track's FileOffset already skips the
// 0x54-byte header.
type source struct {
	data io.ReaderAt
}

func (s *source) Stream(id int) (io.ReaderAt, error) {
	if id != 0 {
		return nil, fmt.Errorf("diskcopy: unknown stream %d", id)
	}
	return s.data, nil
}
