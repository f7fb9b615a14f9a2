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

// Package blindwrite parses the BlindWrite 4 container (.b5t/.b6t
// descriptor plus a single referenced image file): a fixed 19-byte
// signature, a format version byte, a length-prefixed image filename, and
// a Full TOC blob in the same wire layout the toc package already
// marshals/unmarshals for CloneCD.
//
// Grounded on formats/clonecd's toc.Entry-driven track builder (the same
// data-track sector-classification walk), generalized from CloneCD's
// text descriptor to a binary one read through internal/binary.
package blindwrite

import (
	"fmt"
	"io"
	"sort"
	"strings"

	ibinary "github.com/discimage/odie/internal/binary"

	"github.com/discimage/odie/errs"
	"github.com/discimage/odie/extract"
	"github.com/discimage/odie/filter"
	"github.com/discimage/odie/image"
	"github.com/discimage/odie/sector"
	"github.com/discimage/odie/toc"
)

// signature is the fixed 19-byte descriptor magic every .b5t/.b6t file
// begins with.
var signature = []byte("BLINDWRITE4 TOCFILE")

// supportedVersion is the only descriptor version this parser accepts; any
// other version is rejected with a fatal UnsupportedVersionError.
const supportedVersion = 4

// Parser implements odie.Parser for BlindWrite 4 images.
type Parser struct{}

// Probe reports whether primary begins with the 19-byte BlindWrite 4 magic.
func (Parser) Probe(primary filter.Filter) (bool, error) {
	stream, err := primary.DataForkStream()
	if err != nil {
		return false, errs.NewIoError(err)
	}
	buf := make([]byte, len(signature))
	n, _ := stream.ReadAt(buf, 0)
	return n == len(signature) && string(buf) == string(signature), nil
}

// Parse fully decodes a BlindWrite 4 descriptor, resolving its referenced
// image file through resolver, into a Layout and extraction Source.
func (Parser) Parse(primary filter.Filter, resolver filter.Resolver) (*image.Layout, extract.Source, error) {
	stream, err := primary.DataForkStream()
	if err != nil {
		return nil, nil, errs.NewIoError(err)
	}

	cursor := int64(len(signature))
	version, err := ibinary.ReadUint8At(stream, cursor)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errs.NewIoError(err), err)
	}
	cursor++
	if version != supportedVersion {
		return nil, nil, errs.NewUnsupportedVersionError(fmt.Sprintf("%d", version), true)
	}

	nameLen, err := ibinary.ReadUint8At(stream, cursor)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errs.NewIoError(err), err)
	}
	cursor++
	imgName, err := ibinary.ReadStringAt(stream, cursor, int(nameLen))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errs.NewIoError(err), err)
	}
	cursor += int64(nameLen)
	if strings.TrimSpace(imgName) == "" {
		return nil, nil, fmt.Errorf("%w: empty image filename", errs.NewMalformedError("bwt", cursor))
	}

	tocHeader, err := ibinary.ReadBytesAt(stream, cursor, 4)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errs.NewIoError(err), err)
	}
	dataLength := int(tocHeader[0])<<8 | int(tocHeader[1])
	entryRegion := dataLength - 2
	if entryRegion < 0 || entryRegion%11 != 0 {
		return nil, nil, fmt.Errorf("%w: implausible TOC data_length %d", errs.NewMalformedError("bwt", cursor), dataLength)
	}
	tocBlob, err := ibinary.ReadBytesAt(stream, cursor, 4+entryRegion)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errs.NewIoError(err), err)
	}
	cursor += int64(len(tocBlob))
	t, err := toc.Unmarshal(tocBlob)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errs.NewMalformedError("bwt toc", cursor), err)
	}

	var cdText []byte
	if cdTextLen, err := ibinary.ReadUint32LEAt(stream, cursor); err == nil && cdTextLen > 0 {
		cursor += 4
		if blob, err := ibinary.ReadBytesAt(stream, cursor, int(cdTextLen)); err == nil {
			cdText = blob
		}
	}

	imgFilter, err := resolver.Get(imgName)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: resolving %s: %v", errs.NewIoError(err), imgName, err)
	}
	imgStream, err := imgFilter.DataForkStream()
	if err != nil {
		_ = imgFilter.Close()
		return nil, nil, errs.NewIoError(err)
	}

	tracks, err := tracksFromTOC(t, imgStream)
	if err != nil {
		_ = imgFilter.Close()
		return nil, nil, err
	}

	builder := image.NewBuilder(image.FormatBlindWrite)
	for _, tr := range tracks {
		builder.AddTrack(tr)
	}
	for _, e := range t.Entries {
		if seq, _, ok := e.IsTrackStart(); ok {
			builder.SetTrackFlag(seq, e.Control)
		}
	}
	if cdText != nil {
		builder.SetDiskTag(image.DiskTagCDText, cdText)
	}
	builder.SetDiskTag(image.DiskTagFullTOC, toc.Marshal(t))

	layout, err := builder.Build()
	if err != nil {
		_ = imgFilter.Close()
		return nil, nil, err
	}
	return layout, &source{data: imgStream, imgFile: imgFilter}, nil
}

// tracksFromTOC mirrors formats/clonecd's TOC-to-Track walk: every raw
// data track's mode is sniffed from its first sector, since BlindWrite's
// TOC carries only Red Book addressing, not sector shape.
func tracksFromTOC(t toc.TOC, img io.ReaderAt) ([]image.Track, error) {
	type start struct {
		sequence, startLBA, session int
	}
	var starts []start
	leadOut := -1

	for _, e := range t.Entries {
		if seq, lba, ok := e.IsTrackStart(); ok {
			starts = append(starts, start{sequence: seq, startLBA: lba, session: int(e.Session)})
		}
		if lba, ok := e.IsLeadOut(); ok {
			leadOut = lba
		}
	}
	if len(starts) == 0 {
		return nil, fmt.Errorf("%w: no track-start entries in TOC", errs.NewMalformedError("bwt", 0))
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].sequence < starts[j].sequence })

	var tracks []image.Track
	for i, s := range starts {
		endLBA := leadOut - 1
		if i+1 < len(starts) {
			endLBA = starts[i+1].startLBA - 1
		}

		raw := make([]byte, sector.RawBytesCD)
		offset := int64(s.startLBA+sector.PregapLBA) * sector.RawBytesCD
		n, _ := img.ReadAt(raw, offset)

		trackType := sector.TypeAudio
		if n >= 16 && sector.HasSyncMark(raw) {
			trackType = sector.ClassifySector(raw)
		}

		tr := image.Track{
			Sequence:           s.sequence,
			Session:            s.session,
			Type:               trackType,
			RawBytesPerSector:  sector.RawBytesCD,
			UserBytesPerSector: sector.UserBytesFor(trackType),
			StartLBA:           s.startLBA,
			EndLBA:             endLBA,
			FileOffset:         offset,
			StreamID:           0,
		}
		if err := tr.Validate(); err != nil {
			return nil, err
		}
		tracks = append(tracks, tr)
	}
	return tracks, nil
}

// source binds the extraction engine's single stream to the referenced
// image file and owns the sibling Filter the image facade closes alongside
// the primary .b5t/.b6t descriptor.
type source struct {
	data    io.ReaderAt
	imgFile filter.Filter
}

func (s *source) Stream(id int) (io.ReaderAt, error) {
	if id != 0 {
		return nil, fmt.Errorf("blindwrite: unknown stream %d", id)
	}
	return s.data, nil
}

func (s *source) Close() error {
	if s.imgFile != nil {
		return s.imgFile.Close()
	}
	return nil
}
