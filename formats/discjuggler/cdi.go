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

// Package discjuggler parses DiscJuggler's .cdi single-file container: a
// binary footer at the end of the file, keyed by a trailing little-endian
// length, describing every session/track/index in the image.
//
// Grounded on the byte-level footer layout and on internal/binary's
// ReadAt-family helpers (shared with odie's own chd package) for the
// position-tracking, error-wrapped field reads a format this dense needs.
package discjuggler

import (
	"fmt"
	"io"

	ibinary "github.com/discimage/odie/internal/binary"

	"github.com/discimage/odie/errs"
	"github.com/discimage/odie/extract"
	"github.com/discimage/odie/filter"
	"github.com/discimage/odie/image"
	"github.com/discimage/odie/sector"
)

// sessionHeaderPrefix is the fixed byte pattern every 15-byte session header
// must match. matchesSessionHeader compares every byte except byte 1, the
// session's track count, which varies.
var sessionHeaderPrefix = [15]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0xFF, 0xFF}

// Parser implements odie.Parser for DiscJuggler .cdi images.
type Parser struct{}

// Probe attempts a full footer parse and reports success; DiscJuggler
// carries no fixed magic, so probing and parsing are the same walk.
func (Parser) Probe(primary filter.Filter) (bool, error) {
	stream, err := primary.DataForkStream()
	if err != nil {
		return false, errs.NewIoError(err)
	}
	length, err := primary.Length()
	if err != nil {
		return false, errs.NewIoError(err)
	}
	_, _, err = parseFooter(stream, length)
	return err == nil, nil
}

// Parse fully decodes a .cdi footer into a Layout and extraction Source.
func (Parser) Parse(primary filter.Filter, _ filter.Resolver) (*image.Layout, extract.Source, error) {
	stream, err := primary.DataForkStream()
	if err != nil {
		return nil, nil, errs.NewIoError(err)
	}
	length, err := primary.Length()
	if err != nil {
		return nil, nil, errs.NewIoError(err)
	}

	tracks, cdText, err := parseFooter(stream, length)
	if err != nil {
		return nil, nil, err
	}

	builder := image.NewBuilder(image.FormatDiscJuggler)
	for _, t := range tracks {
		builder.AddTrack(t.Track)
		builder.SetTrackFlag(t.Track.Sequence, t.Control)
	}
	if cdText != nil {
		builder.SetDiskTag(image.DiskTagCDText, cdText)
	}

	layout, err := builder.Build()
	if err != nil {
		return nil, nil, err
	}
	return layout, &source{data: stream}, nil
}

// rawTrack pairs a built image.Track with the CONTROL nibble the footer
// stores separately, the way toc.Entry carries it for CloneCD.
type rawTrack struct {
	image.Track
	Control byte
}

// readModeGeometry maps the footer's readMode field to stride and subchannel
// shape, per the source's Sector Geometry crossing table.
func readModeGeometry(readMode uint32) (rawBytes int, subType sector.SubchannelType, ok bool) {
	switch readMode {
	case 0:
		return 2048, sector.SubchannelNone, true
	case 1:
		return 2336, sector.SubchannelNone, true
	case 2:
		return 2352, sector.SubchannelNone, true
	case 3:
		return 2352, sector.SubchannelQ16Interleaved, true
	case 4:
		return 2352, sector.SubchannelRawInterleaved, true
	default:
		return 0, sector.SubchannelNone, false
	}
}

// trackTypeFor maps trackMode plus a data track's sub-mode (sniffed from the
// first sector) onto the canonical TrackType, enforcing the (trackMode,
// readMode) rejection table.
func trackTypeFor(trackMode, readMode uint32, first []byte) (sector.TrackType, error) {
	switch trackMode {
	case 0: // Audio
		if readMode == 0 || readMode == 1 {
			return 0, fmt.Errorf("%w: audio track cannot use readMode %d", errs.NewMalformedError("cdi", 0), readMode)
		}
		return sector.TypeAudio, nil
	case 1: // Mode1/DVD
		if readMode == 1 {
			return 0, fmt.Errorf("%w: Mode1 track cannot use readMode 1", errs.NewMalformedError("cdi", 0))
		}
		return sector.TypeCdMode1, nil
	case 2: // Mode2
		if readMode == 0 {
			return 0, fmt.Errorf("%w: Mode2 track cannot use readMode 0", errs.NewMalformedError("cdi", 0))
		}
		if len(first) >= 16 && sector.HasSyncMark(first) {
			return sector.ClassifyMode2(first), nil
		}
		return sector.TypeCdMode2Formless, nil
	default:
		return 0, fmt.Errorf("%w: unknown trackMode %d", errs.NewMalformedError("cdi", 0), trackMode)
	}
}

// footerReader walks the file backward from its trailing length prefix,
// tracking a forward cursor the way the original footer format is addressed
// (offsets are always relative to the footer's start).
type footerReader struct {
	r      io.ReaderAt
	base   int64 // absolute file offset the footer begins at
	cursor int64 // offset relative to base
}

func (f *footerReader) skip(n int64) { f.cursor += n }

func (f *footerReader) bytes(n int) ([]byte, error) {
	buf, err := ibinary.ReadBytesAt(f.r, f.base+f.cursor, n)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.NewIoError(err), err)
	}
	f.cursor += int64(n)
	return buf, nil
}

func (f *footerReader) u8() (byte, error) {
	b, err := f.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (f *footerReader) u16le() (uint16, error) {
	v, err := ibinary.ReadUint16LEAt(f.r, f.base+f.cursor)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errs.NewIoError(err), err)
	}
	f.cursor += 2
	return v, nil
}

func (f *footerReader) u32le() (uint32, error) {
	v, err := ibinary.ReadUint32LEAt(f.r, f.base+f.cursor)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errs.NewIoError(err), err)
	}
	f.cursor += 4
	return v, nil
}

func (f *footerReader) lengthPrefixedString() (string, error) {
	n, err := f.u8()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	b, err := f.bytes(int(n))
	if err != nil {
		return "", err
	}
	return ibinary.CleanString(b), nil
}

// parseFooter parses the whole .cdi footer starting from the trailing
// 4-byte length prefix, per §4.3.2.
func parseFooter(r io.ReaderAt, fileLen int64) ([]rawTrack, []byte, error) {
	if fileLen < 4 {
		return nil, nil, fmt.Errorf("%w: file too short for a DiscJuggler footer", errs.ErrNotRecognized)
	}
	footerLen, err := ibinary.ReadUint32LEAt(r, fileLen-4)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errs.NewIoError(err), err)
	}
	if int64(footerLen) <= 0 || int64(footerLen) > fileLen {
		return nil, nil, fmt.Errorf("%w: implausible footer length %d", errs.ErrNotRecognized, footerLen)
	}

	fr := &footerReader{r: r, base: fileLen - int64(footerLen)}

	sessionCount, err := fr.u8()
	if err != nil {
		return nil, nil, err
	}
	if sessionCount == 0 || sessionCount > 99 {
		return nil, nil, fmt.Errorf("%w: session count %d out of range", errs.ErrNotRecognized, sessionCount)
	}

	var tracks []rawTrack
	lba := 0
	sequence := 0
	lastSessionTrack := 0

	for s := 0; s <= int(sessionCount); s++ { // S+1 iterations: the extra is lead-out
		hdr, err := fr.bytes(15)
		if err != nil {
			return nil, nil, err
		}
		if !matchesSessionHeader(hdr) {
			return nil, nil, fmt.Errorf("%w: session %d header mismatch", errs.NewMalformedError("cdi", fr.base+fr.cursor-15), s)
		}
		trackCount := int(hdr[1])

		for t := 0; t < trackCount; t++ {
			fr.skip(16)
			nameLen, err := fr.u8()
			if err != nil {
				return nil, nil, err
			}
			fr.skip(int64(nameLen))
			fr.skip(29)
			if _, err := fr.u16le(); err != nil { // medium type
				return nil, nil, err
			}
			indexCount, err := fr.u16le()
			if err != nil {
				return nil, nil, err
			}
			fr.skip(4 * int64(indexCount))
			groupCount, err := fr.u32le()
			if err != nil {
				return nil, nil, err
			}
			for g := uint32(0); g < groupCount; g++ {
				for blk := 0; blk < 18; blk++ {
					n, err := fr.u8()
					if err != nil {
						return nil, nil, err
					}
					if n > 0 {
						if _, err := fr.bytes(int(n)); err != nil {
							return nil, nil, err
						}
					}
				}
			}
			fr.skip(2)
			trackMode, err := fr.u32le()
			if err != nil {
				return nil, nil, err
			}
			fr.skip(4)
			if _, err := fr.u32le(); err != nil { // session number
				return nil, nil, err
			}
			trackSeqRaw, err := fr.u32le()
			if err != nil {
				return nil, nil, err
			}
			startLBA, err := fr.u32le()
			if err != nil {
				return nil, nil, err
			}
			trackLength, err := fr.u32le()
			if err != nil {
				return nil, nil, err
			}
			fr.skip(16)
			readMode, err := fr.u32le()
			if err != nil {
				return nil, nil, err
			}
			control, err := fr.u32le()
			if err != nil {
				return nil, nil, err
			}
			fr.skip(9)
			if _, err := fr.bytes(12); err != nil { // ISRC
				return nil, nil, err
			}
			if _, err := fr.u32le(); err != nil { // ISRC validity
				return nil, nil, err
			}
			fr.skip(87)
			if _, err := fr.u8(); err != nil { // sessionType
				return nil, nil, err
			}
			fr.skip(5)
			if _, err := fr.u8(); err != nil { // trackFollows
				return nil, nil, err
			}
			fr.skip(1)
			if _, err := fr.u32le(); err != nil { // endAddress
				return nil, nil, err
			}

			if s == int(sessionCount) {
				continue // the lead-out/epilogue session carries no real tracks
			}

			rawBytes, subType, ok := readModeGeometry(readMode)
			if !ok {
				return nil, nil, fmt.Errorf("%w: unknown readMode %d", errs.NewMalformedError("cdi", 0), readMode)
			}

			fileOffset := int64(lba) * (int64(rawBytes) + int64(sector.SubchannelPadding(subType)))
			if sequence == 0 {
				fileOffset += 150 * (int64(rawBytes) + int64(sector.SubchannelPadding(subType)))
			}

			first := make([]byte, rawBytes)
			_, _ = r.ReadAt(first, fileOffset)

			trackType, err := trackTypeFor(trackMode, readMode, first)
			if err != nil {
				return nil, nil, err
			}

			sequence = int(trackSeqRaw) + lastSessionTrack + 1
			tr := image.Track{
				Sequence:           sequence,
				Session:            s + 1,
				Type:               trackType,
				RawBytesPerSector:  rawBytes,
				UserBytesPerSector: sector.UserBytesFor(trackType),
				StartLBA:           int(startLBA),
				EndLBA:             int(startLBA) + int(trackLength) - 1,
				FileOffset:         fileOffset,
				StreamID:           0,
				SubchannelType:     subType,
			}
			if subType != sector.SubchannelNone {
				tr.SubchannelStreamID = 0
			}
			if err := tr.Validate(); err != nil {
				return nil, nil, err
			}
			tracks = append(tracks, rawTrack{Track: tr, Control: byte(control)})
			lba = tr.EndLBA + 1
		}
		lastSessionTrack += trackCount
	}

	if len(tracks) == 0 {
		return nil, nil, fmt.Errorf("%w: no tracks decoded from footer", errs.ErrNotRecognized)
	}

	fr.skip(16)
	if _, err := fr.lengthPrefixedString(); err != nil { // image filename
		return nil, nil, err
	}
	fr.skip(29)
	if _, err := fr.u16le(); err != nil { // medium type
		return nil, nil, err
	}
	if _, err := fr.u32le(); err != nil { // disc size
		return nil, nil, err
	}
	if _, err := fr.lengthPrefixedString(); err != nil { // volume ID
		return nil, nil, err
	}
	fr.skip(9)
	if _, err := fr.bytes(13); err != nil { // MCN
		return nil, nil, err
	}
	if _, err := fr.u32le(); err != nil { // MCN validity
		return nil, nil, err
	}
	cdTextLen, err := fr.u32le()
	if err != nil {
		return nil, nil, err
	}
	var cdText []byte
	if cdTextLen > 0 {
		cdText, err = fr.bytes(int(cdTextLen))
		if err != nil {
			return nil, nil, err
		}
	}

	return tracks, cdText, nil
}

func matchesSessionHeader(hdr []byte) bool {
	if len(hdr) != 15 {
		return false
	}
	for i, want := range sessionHeaderPrefix {
		if i == 1 { // track count, variable
			continue
		}
		if hdr[i] != want {
			return false
		}
	}
	return true
}

// source binds the extraction engine's single stream to the .cdi file
// itself: every track's FileOffset already addresses directly into it.
type source struct {
	data io.ReaderAt
}

func (s *source) Stream(id int) (io.ReaderAt, error) {
	if id != 0 {
		return nil, fmt.Errorf("discjuggler: unknown stream %d", id)
	}
	return s.data, nil
}
