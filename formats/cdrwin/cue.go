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

// Package cdrwin parses the CDRWin container: a text cue sheet (.cue)
// referencing one or more binary data files (.bin, .wav, ...), each holding
// a run of consecutively-numbered tracks addressed by MSF INDEX markers.
//
// Grounded on the hand-rolled line-oriented scanners used elsewhere in this
// module (the same bufio.Scanner idiom formats/clonecd uses for its
// [Section] descriptor); see DESIGN.md for why no cue-sheet parsing library
// was used instead.
package cdrwin

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/discimage/odie/errs"
	"github.com/discimage/odie/extract"
	"github.com/discimage/odie/filter"
	"github.com/discimage/odie/image"
	"github.com/discimage/odie/sector"
)

// cueTrackMode maps a cue sheet's TRACK mode token to a TrackType and the
// raw/user byte sizes CDRWin associates with it.
func cueTrackMode(mode string) (sector.TrackType, int, bool) {
	switch strings.ToUpper(mode) {
	case "AUDIO":
		return sector.TypeAudio, sector.RawBytesCD, true
	case "MODE1/2048":
		return sector.TypeCdMode1, sector.UserBytesMode1, true
	case "MODE1/2352":
		return sector.TypeCdMode1, sector.RawBytesCD, true
	case "MODE2/2336":
		return sector.TypeCdMode2Formless, sector.UserBytesMode2Formless, true
	case "MODE2/2352":
		return sector.TypeCdMode2Formless, sector.RawBytesCD, true
	default:
		return 0, 0, false
	}
}

// cueTrack accumulates one TRACK block's parsed state while scanning.
type cueTrack struct {
	number    int
	mode      string
	fileIndex int
	index1    sector.MSF
	hasIndex1 bool
	pregap    *sector.MSF
	flags     byte
}

// cueFile is one FILE directive and the tracks it precedes.
type cueFile struct {
	name string
}

// Parser implements odie.Parser for CDRWin .cue/.bin images.
type Parser struct{}

// Probe reports whether the first 512 bytes of primary's text contain both a
// FILE and a TRACK directive.
func (Parser) Probe(primary filter.Filter) (bool, error) {
	stream, err := primary.DataForkStream()
	if err != nil {
		return false, errs.NewIoError(err)
	}
	buf := make([]byte, 512)
	n, _ := stream.ReadAt(buf, 0)
	text := strings.ToUpper(string(buf[:n]))
	return strings.Contains(text, "FILE ") && strings.Contains(text, "TRACK "), nil
}

// Parse fully decodes a .cue sheet, resolving every FILE sibling through
// resolver, into a Layout and a multi-file extraction Source.
func (Parser) Parse(primary filter.Filter, resolver filter.Resolver) (*image.Layout, extract.Source, error) {
	stream, err := primary.DataForkStream()
	if err != nil {
		return nil, nil, errs.NewIoError(err)
	}
	length, err := primary.Length()
	if err != nil {
		return nil, nil, errs.NewIoError(err)
	}

	files, tracks, err := parseCue(io.NewSectionReader(stream, 0, length))
	if err != nil {
		return nil, nil, err
	}
	if len(tracks) == 0 {
		return nil, nil, fmt.Errorf("%w: cue sheet declares no tracks", errs.ErrNotRecognized)
	}

	src := &source{}
	fileLengths := make([]int64, len(files))
	for i, f := range files {
		ff, err := resolver.Get(f.name)
		if err != nil {
			_ = src.Close()
			return nil, nil, fmt.Errorf("%w: resolving %s: %v", errs.NewIoError(err), f.name, err)
		}
		st, err := ff.DataForkStream()
		if err != nil {
			_ = src.Close()
			return nil, nil, errs.NewIoError(err)
		}
		l, err := ff.Length()
		if err != nil {
			_ = src.Close()
			return nil, nil, errs.NewIoError(err)
		}
		fileLengths[i] = l
		src.files = append(src.files, ff)
		src.streams = append(src.streams, st)
	}

	imgTracks, err := tracksFromCue(tracks, fileLengths)
	if err != nil {
		_ = src.Close()
		return nil, nil, err
	}

	builder := image.NewBuilder(image.FormatCDRWin)
	for _, t := range imgTracks {
		builder.AddTrack(t.Track)
		builder.SetTrackFlag(t.Track.Sequence, t.Control)
	}

	layout, err := builder.Build()
	if err != nil {
		_ = src.Close()
		return nil, nil, err
	}
	return layout, src, nil
}

type rawTrack struct {
	image.Track
	Control byte
}

// tracksFromCue converts the flat (file, track, index1) scan into
// image.Track values: LBA is contiguous across the whole cue sheet (one
// running counter, per CDRWin convention), and each track's FileOffset is
// its INDEX 01 MSF converted into a byte offset within its own FILE.
func tracksFromCue(tracks []cueTrack, fileLengths []int64) ([]rawTrack, error) {
	var out []rawTrack
	lba := 0
	for i, ct := range tracks {
		trackType, rawBytes, ok := cueTrackMode(ct.mode)
		if !ok {
			return nil, fmt.Errorf("%w: unknown cue TRACK mode %q", errs.NewMalformedError("cue", 0), ct.mode)
		}
		if !ct.hasIndex1 {
			return nil, fmt.Errorf("%w: track %d has no INDEX 01", errs.NewMalformedError("cue", 0), ct.number)
		}

		length := 0
		if i+1 < len(tracks) && tracks[i+1].fileIndex == ct.fileIndex {
			length = (tracks[i+1].index1.LBA() + sector.PregapLBA) - (ct.index1.LBA() + sector.PregapLBA)
		} else if ct.fileIndex < len(fileLengths) {
			remaining := fileLengths[ct.fileIndex] - int64(ct.index1.LBA()+sector.PregapLBA)*int64(rawBytes)
			length = int(remaining / int64(rawBytes))
		}
		if length <= 0 {
			return nil, fmt.Errorf("%w: track %d has non-positive length", errs.NewMalformedError("cue", 0), ct.number)
		}

		tr := image.Track{
			Sequence:           ct.number,
			Session:            1,
			Type:               trackType,
			RawBytesPerSector:  sector.RawBytesCD,
			UserBytesPerSector: userBytesFor(trackType, rawBytes),
			StartLBA:           lba,
			EndLBA:             lba + length - 1,
			FileOffset:         int64(ct.index1.LBA()+sector.PregapLBA) * int64(rawBytes),
			StreamID:           ct.fileIndex,
		}
		tr.RawBytesPerSector = rawBytes
		if err := tr.Validate(); err != nil {
			return nil, err
		}
		out = append(out, rawTrack{Track: tr, Control: ct.flags})
		lba = tr.EndLBA + 1
	}
	return out, nil
}

func userBytesFor(t sector.TrackType, rawBytes int) int {
	if rawBytes == sector.RawBytesCD {
		return sector.UserBytesFor(t)
	}
	return rawBytes
}

// parseCue scans the cue sheet text into an ordered file list and a flat
// track list tagged with the index of the FILE each belongs to.
func parseCue(r io.Reader) ([]cueFile, []cueTrack, error) {
	var files []cueFile
	var tracks []cueTrack
	var cur *cueTrack

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := splitCueLine(line)
		if len(fields) == 0 {
			continue
		}
		switch strings.ToUpper(fields[0]) {
		case "FILE":
			if len(fields) < 2 {
				continue
			}
			files = append(files, cueFile{name: fields[1]})
		case "TRACK":
			if cur != nil {
				tracks = append(tracks, *cur)
			}
			num := 0
			if len(fields) >= 2 {
				num, _ = strconv.Atoi(fields[1])
			}
			mode := ""
			if len(fields) >= 3 {
				mode = fields[2]
			}
			cur = &cueTrack{number: num, mode: mode, fileIndex: len(files) - 1}
		case "INDEX":
			if cur == nil || len(fields) < 3 {
				continue
			}
			n, _ := strconv.Atoi(fields[1])
			msf, err := parseMSF(fields[2])
			if err != nil {
				return nil, nil, err
			}
			if n == 1 {
				cur.index1 = msf
				cur.hasIndex1 = true
			} else if n == 0 {
				cur.pregap = &msf
			}
		case "FLAGS":
			if cur == nil {
				continue
			}
			for _, f := range fields[1:] {
				switch strings.ToUpper(f) {
				case "DCP":
					cur.flags |= 0x02
				case "4CH":
					cur.flags |= 0x08
				case "PRE":
					cur.flags |= 0x01
				}
			}
		}
	}
	if cur != nil {
		tracks = append(tracks, *cur)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errs.NewIoError(err), err)
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("%w: cue sheet has no FILE directive", errs.ErrNotRecognized)
	}
	return files, tracks, nil
}

// splitCueLine tokenizes a cue-sheet line, respecting double-quoted
// filenames that may contain spaces.
func splitCueLine(line string) []string {
	var out []string
	var cur strings.Builder
	inQuotes := false
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ' ' && !inQuotes:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

// parseMSF parses an "MM:SS:FF" cue-sheet timestamp into an MSF value.
func parseMSF(s string) (sector.MSF, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return sector.MSF{}, fmt.Errorf("%w: malformed MSF %q", errs.NewMalformedError("cue", 0), s)
	}
	m, err1 := strconv.Atoi(parts[0])
	sec, err2 := strconv.Atoi(parts[1])
	f, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return sector.MSF{}, fmt.Errorf("%w: malformed MSF %q", errs.NewMalformedError("cue", 0), s)
	}
	return sector.MSF{Min: m, Sec: sec, Frame: f}, nil
}

// source binds each FILE directive's stream to its StreamID, and closes the
// sibling Filters the resolver opened.
type source struct {
	files   []filter.Filter
	streams []io.ReaderAt
}

func (s *source) Stream(id int) (io.ReaderAt, error) {
	if id < 0 || id >= len(s.streams) {
		return nil, fmt.Errorf("cdrwin: unknown stream %d", id)
	}
	return s.streams[id], nil
}

func (s *source) Close() error {
	var err error
	for _, f := range s.files {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
