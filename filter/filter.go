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

// Package filter provides the byte-addressable stream abstraction that
// every container parser reads through: a Filter wraps one logical file,
// transparently unwrapping compression and archive containers so parsers
// never special-case them, and a Resolver lets a parser that opened one
// file (e.g. a .ccd descriptor) ask for a sibling (its .img/.sub) without
// knowing whether that sibling lives on a plain filesystem or inside the
// same archive.
//
// Grounded on pkg/fileio (gzip-aware OpenFile) and the archive (ZIP/7z/RAR)
// packages this module descends from, generalized to gzip, bzip2, xz, lzip
// and the three archive wrappers.
package filter

import (
	"io"
	"time"
)

// Filter is a seekable, byte-addressable view of one logical file.
type Filter interface {
	// DataForkStream returns the primary, randomly-addressable byte stream.
	DataForkStream() (io.ReaderAt, error)
	// ResourceForkStream returns the secondary stream used only by
	// DiskCopy 4.2's tag data; ok is false for every other container.
	ResourceForkStream() (io.ReaderAt, bool, error)
	Filename() string
	BasePath() string
	Length() (int64, error)
	CreationTime() (time.Time, error)
	LastWriteTime() (time.Time, error)
	Close() error
}

// Resolver opens a Filter for a name relative to whatever container a
// parser's primary Filter came from: a sibling path on a plain filesystem,
// or another member of the same archive.
type Resolver interface {
	Get(name string) (Filter, error)
}
