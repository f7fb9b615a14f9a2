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

package filter

import (
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

// compressionKind identifies a stream wrapper FiltersList.Get transparently
// unwraps before handing a parser its container bytes.
type compressionKind int

const (
	compressionNone compressionKind = iota
	compressionGzip
	compressionBzip2
	compressionXz
	compressionLzip
)

// detectCompression classifies path by extension, matching the probe set
// FiltersList is documented to support: gzip, bzip2, xz, lzip.
func detectCompression(path string) compressionKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".gzip":
		return compressionGzip
	case ".bz2", ".bzip2":
		return compressionBzip2
	case ".xz":
		return compressionXz
	case ".lz":
		return compressionLzip
	default:
		return compressionNone
	}
}

// uncompressedName strips the compression suffix so the inner container's
// real filename (e.g. "image.cdi" out of "image.cdi.gz") is what parsers
// see and probe against.
func uncompressedName(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// openCompressed decompresses path fully into memory and returns a Filter
// over the inner, uncompressed container. Unlike plain files, compressed
// sources cannot offer random access without first materializing: this
// mirrors the buffering the archive package already does for archive
// members (archive.bufferFile).
func openCompressed(path string, kind compressionKind) (Filter, error) {
	raw, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("filter: open %s: %w", path, err)
	}
	defer func() { _ = raw.Close() }()

	info, err := raw.Stat()
	if err != nil {
		return nil, fmt.Errorf("filter: stat %s: %w", path, err)
	}

	var r io.Reader
	switch kind {
	case compressionGzip:
		gr, err := gzip.NewReader(raw)
		if err != nil {
			return nil, fmt.Errorf("filter: gzip %s: %w", path, err)
		}
		defer func() { _ = gr.Close() }()
		r = gr
	case compressionBzip2:
		r = bzip2.NewReader(raw)
	case compressionXz:
		xr, err := xz.NewReader(raw)
		if err != nil {
			return nil, fmt.Errorf("filter: xz %s: %w", path, err)
		}
		r = xr
	case compressionLzip:
		lr, err := newLzipReader(raw)
		if err != nil {
			return nil, fmt.Errorf("filter: lzip %s: %w", path, err)
		}
		r = lr
	default:
		return nil, fmt.Errorf("filter: %s is not a recognized compressed stream", path)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("filter: decompress %s: %w", path, err)
	}

	return newBufferFilter(filepath.Base(uncompressedName(path)), filepath.Dir(path), data, info.ModTime()), nil
}
