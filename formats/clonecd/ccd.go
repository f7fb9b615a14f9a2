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

// Package clonecd parses the CloneCD container: a plain-text .ccd
// descriptor in INI-like [Section]/Key=value form, a raw .img of
// (possibly scrambled) 2352-byte sectors, and an optional deinterleaved
// 96-byte-per-sector .sub.
//
// Grounded on the hand-rolled cue-sheet line scanner this module's
// disc-detection code descends from, generalized to sectioned key=value
// text; see DESIGN.md for why no INI library was used instead.
package clonecd

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/discimage/odie/errs"
	"github.com/discimage/odie/extract"
	"github.com/discimage/odie/filter"
	"github.com/discimage/odie/image"
	"github.com/discimage/odie/sector"
	"github.com/discimage/odie/toc"
)

// document is a parsed .ccd file: an ordered section list keyed by the
// header text exactly as written ("Disc", "Entry 3", "TRACK 1", ...).
type document struct {
	order    []string
	sections map[string]map[string]string
}

func parseDocument(r io.Reader) (*document, error) {
	doc := &document{sections: map[string]map[string]string{}}
	var current string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			current = strings.TrimSuffix(strings.TrimPrefix(line, "["), "]")
			if _, ok := doc.sections[current]; !ok {
				doc.sections[current] = map[string]string{}
				doc.order = append(doc.order, current)
			}
			continue
		}
		if current == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		doc.sections[current][strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.NewIoError(err), err)
	}
	if len(doc.sections) == 0 {
		return nil, fmt.Errorf("%w: empty or unrecognized descriptor", errs.ErrNotRecognized)
	}
	return doc, nil
}

func (d *document) entrySections() []string {
	var out []string
	for _, name := range d.order {
		if strings.HasPrefix(name, "Entry ") {
			out = append(out, name)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ni, _ := strconv.Atoi(strings.TrimPrefix(out[i], "Entry "))
		nj, _ := strconv.Atoi(strings.TrimPrefix(out[j], "Entry "))
		return ni < nj
	})
	return out
}

func atoiField(fields map[string]string, key string, base int) (int, bool) {
	v, ok := fields[key]
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(v, base, 64)
	if err != nil {
		return 0, false
	}
	return int(n), true
}

// Parser implements odie.Parser for CloneCD images.
type Parser struct{}

// Probe reports whether the first 256 bytes of primary's text contain a
// [CloneCD] or [Disc] section header.
func (Parser) Probe(primary filter.Filter) (bool, error) {
	stream, err := primary.DataForkStream()
	if err != nil {
		return false, errs.NewIoError(err)
	}
	buf := make([]byte, 256)
	n, _ := stream.ReadAt(buf, 0)
	text := strings.ToLower(string(buf[:n]))
	return strings.Contains(text, "[clonecd]") || strings.Contains(text, "[disc]"), nil
}

// Parse fully decodes a .ccd descriptor (resolving its .img and optional
// .sub siblings through resolver) into a Layout and extraction Source.
func (Parser) Parse(primary filter.Filter, resolver filter.Resolver) (*image.Layout, extract.Source, error) {
	stream, err := primary.DataForkStream()
	if err != nil {
		return nil, nil, errs.NewIoError(err)
	}
	length, err := primary.Length()
	if err != nil {
		return nil, nil, errs.NewIoError(err)
	}
	doc, err := parseDocument(io.NewSectionReader(stream, 0, length))
	if err != nil {
		return nil, nil, err
	}

	if cc, ok := doc.sections["CloneCD"]; ok {
		if v := cc["Version"]; v != "" && v != "2" && v != "3" {
			return nil, nil, errs.NewUnsupportedVersionError(v, false)
		}
	}

	discTracksScrambled := false
	if disc, ok := doc.sections["Disc"]; ok {
		if n, ok := atoiField(disc, "DataTracksScrambled", 10); ok {
			discTracksScrambled = n != 0
		}
	}

	entries, err := buildEntries(doc)
	if err != nil {
		return nil, nil, err
	}
	t := toc.TOC{Entries: entries, FirstSession: 1, LastSession: 1}
	for _, e := range entries {
		if e.Session > t.LastSession {
			t.LastSession = e.Session
		}
	}

	base := strings.TrimSuffix(primary.Filename(), ".ccd")
	imgName := base + ".img"
	imgFilter, err := resolver.Get(imgName)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: resolving %s: %v", errs.NewIoError(err), imgName, err)
	}
	imgStream, err := imgFilter.DataForkStream()
	if err != nil {
		return nil, nil, errs.NewIoError(err)
	}

	var subStream io.ReaderAt
	subFilter, subErr := resolver.Get(base + ".sub")
	hasSub := subErr == nil
	if hasSub {
		subStream, err = subFilter.DataForkStream()
		if err != nil {
			hasSub = false
		}
	}

	tracks, err := tracksFromTOC(t, imgStream, hasSub, discTracksScrambled)
	if err != nil {
		return nil, nil, err
	}

	builder := image.NewBuilder(image.FormatCloneCD)
	for _, tr := range tracks {
		builder.AddTrack(tr)
	}
	for _, e := range entries {
		if seq, _, ok := e.IsTrackStart(); ok {
			builder.SetTrackFlag(seq, e.Control)
		}
	}
	if cdtext := buildCDText(doc); cdtext != nil {
		builder.SetDiskTag(image.DiskTagCDText, cdtext)
	}
	builder.SetDiskTag(image.DiskTagFullTOC, toc.Marshal(t))

	layout, err := builder.Build()
	if err != nil {
		return nil, nil, err
	}

	src := &source{data: imgStream, sub: subStream, imgFile: imgFilter}
	if hasSub {
		src.subFile = subFilter
	}
	return layout, src, nil
}

// buildEntries converts every [Entry N] section into a toc.Entry.
func buildEntries(doc *document) ([]toc.Entry, error) {
	var out []toc.Entry
	for _, name := range doc.entrySections() {
		f := doc.sections[name]
		session, _ := atoiField(f, "Session", 10)
		point, _ := atoiField(f, "Point", 16)
		adr, _ := atoiField(f, "ADR", 10)
		control, _ := atoiField(f, "Control", 10)
		trackNo, _ := atoiField(f, "TrackNo", 10)
		aMin, _ := atoiField(f, "AMin", 10)
		aSec, _ := atoiField(f, "ASec", 10)
		aFrame, _ := atoiField(f, "AFrame", 10)
		zero, _ := atoiField(f, "Zero", 10)
		pMin, _ := atoiField(f, "PMin", 10)
		pSec, _ := atoiField(f, "PSec", 10)
		pFrame, _ := atoiField(f, "PFrame", 10)

		if session == 0 {
			return nil, fmt.Errorf("%w: %s missing Session", errs.NewMalformedError(name, 0), name)
		}

		out = append(out, toc.Entry{
			Session: byte(session),
			ADR:     byte(adr),
			Control: byte(control),
			TNO:     byte(trackNo),
			Point:   byte(point),
			Min:     byte(aMin),
			Sec:     byte(aSec),
			Frame:   byte(aFrame),
			Zero:    byte(zero),
			PMin:    byte(pMin),
			PSec:    byte(pSec),
			PFrame:  byte(pFrame),
		})
	}
	return out, nil
}

// buildCDText concatenates [CDText] Entry N=xx xx xx... hex lines into one blob.
func buildCDText(doc *document) []byte {
	cdt, ok := doc.sections["CDText"]
	if !ok {
		return nil
	}
	n, ok := atoiField(cdt, "Entries", 10)
	if !ok || n <= 0 {
		return nil
	}
	var out []byte
	for i := 0; i < n; i++ {
		line, ok := cdt[fmt.Sprintf("Entry %d", i)]
		if !ok {
			continue
		}
		for _, tok := range strings.Fields(line) {
			b, err := strconv.ParseUint(tok, 16, 8)
			if err == nil {
				out = append(out, byte(b))
			}
		}
	}
	return out
}

// tracksFromTOC turns the toc.Entry list into image.Track values, reading
// each data track's first raw sector to classify its mode per §4.3.1.
func tracksFromTOC(t toc.TOC, img io.ReaderAt, hasSub, scrambled bool) ([]image.Track, error) {
	type start struct {
		sequence, startLBA int
		session            int
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
		return nil, fmt.Errorf("%w: no track-start entries in TOC", errs.NewMalformedError("ccd", 0))
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
		if n >= 16 {
			probe := make([]byte, sector.RawBytesCD)
			copy(probe, raw)
			if scrambled && sector.HasSyncMark(probe) {
				sector.Descramble(probe)
			}
			if sector.HasSyncMark(probe) {
				trackType = sector.ClassifySector(probe)
			}
		}

		subType := sector.SubchannelNone
		if hasSub {
			subType = sector.SubchannelRawInterleaved
		}

		tr := image.Track{
			Sequence:           s.sequence,
			Session:            s.session,
			Type:               trackType,
			RawBytesPerSector:  sector.RawBytesCD,
			UserBytesPerSector: sector.UserBytesFor(trackType),
			StartLBA:           s.startLBA,
			EndLBA:             endLBA,
			FileOffset:         int64(s.startLBA+sector.PregapLBA) * sector.RawBytesCD,
			StreamID:           0,
			SubchannelType:     subType,
			Scrambled:          scrambled && trackType != sector.TypeAudio,
		}
		if hasSub {
			tr.SubchannelStreamID = 1
			tr.SubchannelFileOffset = int64(s.startLBA+sector.PregapLBA) * sector.SubchannelSize
		}
		if err := tr.Validate(); err != nil {
			return nil, err
		}
		tracks = append(tracks, tr)
	}
	return tracks, nil
}
