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

// Package chd adapts the MAME CHD container (compressed hunks of data) to
// the common formats.Parser contract: it reads the CHT2/CHTR/CHCD track
// metadata the odie/chd package already decodes and turns it into an
// image.Layout backed by chd.CHD.RawSectorReader as the lone extraction
// stream. Track boundaries are derived from chd.Track's own StartFrame,
// Pregap and Postgap fields rather than recomputed independently, so a
// multi-track CHD's pregaps land exactly where the metadata decoder already
// placed them.
//
// Grounded on odie's own chd package (chd.CHD, chd.Track, chd.Header),
// generalized here the way formats/clonecd turns toc.Entry into image.Track.
package chd

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	innerchd "github.com/discimage/odie/chd"
	"github.com/discimage/odie/errs"
	"github.com/discimage/odie/extract"
	"github.com/discimage/odie/filter"
	"github.com/discimage/odie/image"
	"github.com/discimage/odie/sector"
)

// chdMagic is the 8-byte "MComprHD" signature every CHD file begins with.
var chdMagic = []byte("MComprHD")

// Parser implements odie.Parser for CHD images.
type Parser struct{}

// Probe reports whether primary begins with the CHD magic.
func (Parser) Probe(primary filter.Filter) (bool, error) {
	stream, err := primary.DataForkStream()
	if err != nil {
		return false, errs.NewIoError(err)
	}
	buf := make([]byte, len(chdMagic))
	n, _ := stream.ReadAt(buf, 0)
	return n == len(chdMagic) && bytes.Equal(buf, chdMagic), nil
}

// Parse fully decodes a CHD file into a Layout and extraction Source.
//
// CHD files are opened by path rather than streamed through a Filter,
// because the hunk map and codec pipeline in the kept chd package seek
// widely across the file and assume direct *os.File access; resolver is
// unused since a CHD carries no sibling files.
func (Parser) Parse(primary filter.Filter, _ filter.Resolver) (*image.Layout, extract.Source, error) {
	dir, name := primary.BasePath(), primary.Filename()
	if dir == "" || name == "" {
		return nil, nil, fmt.Errorf("%w: CHD requires a filesystem path", errs.ErrNotRecognized)
	}
	path := filepath.Join(dir, name)

	c, err := innerchd.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errs.NewIoError(err), err)
	}

	tracks, err := tracksFromCHD(c)
	if err != nil {
		_ = c.Close()
		return nil, nil, err
	}

	builder := image.NewBuilder(image.FormatCHD)
	for _, tr := range tracks {
		builder.AddTrack(tr)
		control := byte(0)
		if tr.Type != sector.TypeAudio {
			control = 0x04
		}
		builder.SetTrackFlag(tr.Sequence, control)
	}

	layout, err := builder.Build()
	if err != nil {
		_ = c.Close()
		return nil, nil, err
	}

	return layout, &source{chd: c, raw: c.RawSectorReader()}, nil
}

// tracksFromCHD turns the chd package's flat Track list into image.Track
// values addressed against RawSectorReader's 2352-byte raw-sector stream.
func tracksFromCHD(c *innerchd.CHD) ([]image.Track, error) {
	chdTracks := c.Tracks()
	if len(chdTracks) == 0 {
		return nil, fmt.Errorf("%w: CHD carries no CHT2/CHTR/CHCD track metadata", errs.ErrNotRecognized)
	}

	raw := c.RawSectorReader()
	var out []image.Track
	for _, ct := range chdTracks {
		trackType := trackTypeOf(raw, ct)

		// ct.StartFrame is the cumulative frame count through the end of the
		// *previous* track's postgap (chd/metadata.go sets it before adding
		// this track's own pregap), so this track's actual data begins
		// ct.Pregap frames past it, not at ct.StartFrame itself.
		startLBA := ct.StartFrame + ct.Pregap
		endLBA := startLBA + ct.Frames - 1

		// RawSectorReader always hands back a flat, subchannel-stripped
		// 2352-byte-per-sector stream (it truncates each hunk's unit to
		// rawSectorSize regardless of ct.SubSize), so subchannel bytes are
		// never reachable through this Source; tracks are built without one.
		tr := image.Track{
			Sequence:           ct.Number,
			Session:            1,
			Type:               trackType,
			RawBytesPerSector:  sector.RawBytesCD,
			UserBytesPerSector: sector.UserBytesFor(trackType),
			StartLBA:           startLBA,
			EndLBA:             endLBA,
			FileOffset:         int64(startLBA) * sector.RawBytesCD,
			StreamID:           0,
			SubchannelType:     sector.SubchannelNone,
		}
		if err := tr.Validate(); err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, nil
}

// trackTypeOf classifies a chd.Track's sector shape. AUDIO maps directly;
// the *_RAW and FORM1/FORM2 CHT2 spellings are unambiguous; MODE2_FORM_MIX
// and any other raw Mode 2 spelling are resolved by reading the track's
// first sector, the same way formats/clonecd classifies CloneCD tracks
// whose .ccd descriptor is silent on sub-mode.
func trackTypeOf(raw io.ReaderAt, ct innerchd.Track) sector.TrackType {
	upper := strings.ToUpper(ct.Type)
	switch {
	case upper == "AUDIO":
		return sector.TypeAudio
	case strings.Contains(upper, "MODE1"):
		return sector.TypeCdMode1
	case upper == "MODE2_FORM1":
		return sector.TypeCdMode2Form1
	case upper == "MODE2_FORM2":
		return sector.TypeCdMode2Form2
	}

	buf := make([]byte, sector.RawBytesCD)
	n, err := raw.ReadAt(buf, int64(ct.StartFrame+ct.Pregap)*sector.RawBytesCD)
	if err != nil && n < 16 {
		return sector.TypeCdMode2Formless
	}
	if !sector.HasSyncMark(buf) {
		return sector.TypeCdMode2Formless
	}
	return sector.ClassifySector(buf)
}

// source binds the extraction engine's single stream to a CHD's raw
// 2352-byte sector reader, and closes the underlying *chd.CHD on Close.
type source struct {
	chd *innerchd.CHD
	raw io.ReaderAt
}

func (s *source) Stream(id int) (io.ReaderAt, error) {
	if id != 0 {
		return nil, fmt.Errorf("chd: unknown stream %d", id)
	}
	return s.raw, nil
}

func (s *source) Close() error {
	return s.chd.Close()
}
