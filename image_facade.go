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

// Package odie is the root package: it exposes the Image facade that binds
// a container probe/parse result (image.Layout), the Sector Extraction
// Engine (extract.Engine) and the Verification Engine (verify package)
// behind a single upward-facing interface.
package odie

import (
	"fmt"
	"io"

	"github.com/discimage/odie/errs"
	"github.com/discimage/odie/extract"
	"github.com/discimage/odie/filter"
	"github.com/discimage/odie/image"
	"github.com/discimage/odie/sector"
	"github.com/discimage/odie/verify"
)

// Parser is implemented by every formats/* package: Probe inspects a
// primary Filter (plus a Resolver for any sibling files it needs) and,
// if it recognizes the container, returns a frozen Layout and the stream
// set that backs it.
type Parser interface {
	// Probe reports whether primary looks like this parser's container,
	// without fully decoding it.
	Probe(primary filter.Filter) (bool, error)
	// Parse fully decodes primary (resolving siblings via resolver) into a
	// Layout plus the Source the extraction engine should read through.
	Parse(primary filter.Filter, resolver filter.Resolver) (*image.Layout, extract.Source, error)
}

// Image is one open optical-disc image: a decoded Layout bound to its
// backing streams, ready for sector extraction and verification.
type Image struct {
	layout *image.Layout
	engine *extract.Engine
	source extract.Source
	filter filter.Filter
}

// Identify reports whether filter looks like a container p recognizes,
// without fully parsing it.
func Identify(p Parser, f filter.Filter) (bool, error) {
	return p.Probe(f)
}

// Open fully parses f (a primary container descriptor, e.g. a .ccd, .cue,
// .cdi or CHD file) via parser p, resolving any sibling files through
// resolver, and returns a ready-to-use Image.
func Open(p Parser, f filter.Filter, resolver filter.Resolver) (*Image, error) {
	layout, source, err := p.Parse(f, resolver)
	if err != nil {
		return nil, err
	}
	return &Image{
		layout: layout,
		engine: extract.New(layout, source),
		source: source,
		filter: f,
	}, nil
}

// OpenPath opens path with filter.Get (probing compression and archive
// wrapping transparently, per §6) and parses it with parser p.
func OpenPath(p Parser, path string) (*Image, error) {
	f, err := filter.Get(path)
	if err != nil {
		return nil, NewIoError(err)
	}
	resolver, err := filter.GetResolver(path)
	if err != nil {
		_ = f.Close()
		return nil, NewIoError(err)
	}
	img, err := Open(p, f, resolver)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return img, nil
}

// Close releases the image's primary filter. Sibling filters opened by the
// parser through a Resolver are owned by the parser's Source and are
// closed, if the concrete Source implements io.Closer, here too.
func (img *Image) Close() error {
	err := img.filter.Close()
	if closer, ok := img.source.(io.Closer); ok {
		if cerr := closer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Tracks returns the ordered track list.
func (img *Image) Tracks() []image.Track { return img.layout.Tracks() }

// Sessions returns the ordered session list.
func (img *Image) Sessions() []image.Session { return img.layout.Sessions() }

// Partitions returns the 1:1 track-to-partition projection.
func (img *Image) Partitions() []image.Partition { return img.layout.Partitions() }

// Info returns the classified media type and container format.
func (img *Image) Info() (image.MediaType, image.Format) {
	return img.layout.MediaType(), img.layout.Format
}

// GetSessionTracks returns every track belonging to a session.
func (img *Image) GetSessionTracks(session int) []image.Track {
	return img.layout.SessionTracks(session)
}

// ReadDiskTag returns container-level metadata (CD-TEXT, Full TOC, MCN,
// ATIP), failing NotPresent when the container never carried it.
func (img *Image) ReadDiskTag(tag image.DiskTag) ([]byte, error) {
	b, ok := img.layout.DiskTag(tag)
	if !ok {
		return nil, fmt.Errorf("%w: disk tag %d", errs.ErrNotPresent, tag)
	}
	return b, nil
}

// ReadSector returns cooked user data at an absolute LBA.
func (img *Image) ReadSector(lba int) ([]byte, error) { return img.engine.ReadSector(lba) }

// ReadSectors returns cooked user data for count consecutive sectors
// starting at an absolute LBA; fails OutOfRange if the read would cross a
// track boundary.
func (img *Image) ReadSectors(lba, count int) ([]byte, error) {
	return img.engine.ReadSectors(lba, count)
}

// ReadSectorInTrack reads one sector at a track-relative LBA, bypassing
// offset-map resolution.
func (img *Image) ReadSectorInTrack(relativeLBA int, t image.Track) ([]byte, error) {
	return img.engine.ReadSectorInTrack(relativeLBA, t)
}

// ReadSectorLong returns the full raw sector at an absolute LBA.
func (img *Image) ReadSectorLong(lba int) ([]byte, error) { return img.engine.ReadSectorLong(lba) }

// ReadSectorTag returns one tagged substructure of the sector at an
// absolute LBA.
func (img *Image) ReadSectorTag(lba int, tag sector.Tag) ([]byte, error) {
	return img.engine.ReadSectorTag(lba, tag)
}

// VerifySector validates the EDC/ECC of the raw sector at an absolute LBA,
// returning a tri-state: nil when the track's type carries no checkable
// redundancy (Audio, Mode2Formless).
func (img *Image) VerifySector(lba int) (*bool, error) {
	t, ok := img.layout.TrackContaining(lba)
	if !ok {
		return nil, fmt.Errorf("%w: lba %d is not within any track", errs.ErrOutOfRange, lba)
	}
	raw, err := img.engine.ReadSectorLong(lba)
	if err != nil {
		return nil, err
	}
	ok2, applicable := verify.CheckSector(raw, t.Type)
	if !applicable {
		return nil, nil
	}
	return &ok2, nil
}

// VerifySectors validates count consecutive sectors starting at lba,
// returning a tri-state over the whole range: nil if every sector in range
// is inapplicable, false if any sector fails, true if every applicable
// sector passes. failing receives the LBAs that failed; unknown receives
// the LBAs that were inapplicable.
func (img *Image) VerifySectors(lba, count int, failing, unknown *[]int) (*bool, error) {
	var anyApplicable, allOK bool
	allOK = true
	for i := 0; i < count; i++ {
		cur := lba + i
		result, err := img.VerifySector(cur)
		if err != nil {
			return nil, err
		}
		if result == nil {
			if unknown != nil {
				*unknown = append(*unknown, cur)
			}
			continue
		}
		anyApplicable = true
		if !*result {
			allOK = false
			if failing != nil {
				*failing = append(*failing, cur)
			}
		}
	}
	if !anyApplicable {
		return nil, nil
	}
	return &allOK, nil
}

// VerifyMediaImage computes the preferred available whole-image digest
// (SHA-1 > MD5 > CRC32) over each distinct backing stream and compares it
// to digests, returning a tri-state: nil if no supported digest was
// supplied to compare against.
func (img *Image) VerifyMediaImage(streams []verify.Stream, digests []verify.Digests, aborted func() bool) (*bool, error) {
	return verify.VerifyMediaImage(streams, digests, aborted)
}
