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
	"fmt"
	"io"
	"time"
)

// byteReaderAt implements io.ReaderAt over an in-memory buffer, for
// sources that can only be read as a stream (gzip/bzip2/xz/lzip, or an
// archive member) but that the core needs random access to.
type byteReaderAt struct {
	data []byte
}

func (b *byteReaderAt) ReadAt(dst []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("filter: negative offset %d", off)
	}
	if off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(dst, b.data[off:])
	if n < len(dst) {
		return n, io.EOF
	}
	return n, nil
}

// bufferFilter is a Filter whose contents are already fully materialized in
// memory: the outcome of decompressing a gzip/bzip2/xz/lzip stream or
// buffering an archive member.
type bufferFilter struct {
	name     string
	baseDir  string
	data     []byte
	modified time.Time
}

func newBufferFilter(name, baseDir string, data []byte, modified time.Time) Filter {
	return &bufferFilter{name: name, baseDir: baseDir, data: data, modified: modified}
}

func (b *bufferFilter) DataForkStream() (io.ReaderAt, error) {
	return &byteReaderAt{data: b.data}, nil
}

func (b *bufferFilter) ResourceForkStream() (io.ReaderAt, bool, error) {
	return nil, false, nil
}

func (b *bufferFilter) Filename() string                  { return b.name }
func (b *bufferFilter) BasePath() string                  { return b.baseDir }
func (b *bufferFilter) Length() (int64, error)             { return int64(len(b.data)), nil }
func (b *bufferFilter) CreationTime() (time.Time, error)   { return b.modified, nil }
func (b *bufferFilter) LastWriteTime() (time.Time, error)  { return b.modified, nil }
func (b *bufferFilter) Close() error                       { return nil }
