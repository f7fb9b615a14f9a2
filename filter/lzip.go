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
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ulikunitz/xz/lzma"
)

// lzipMagic is the 4-byte "LZIP" signature at the start of every member.
var lzipMagic = [4]byte{'L', 'Z', 'I', 'P'}

// lzmaUnknownSize is the classic LZMA header's all-ones uncompressed-size
// field, signaling that the stream is terminated by an end-of-stream marker
// rather than a known length. lzip streams always end this way.
const lzmaUnknownSize = 0xFFFFFFFFFFFFFFFF

// lzipPropsByte encodes lzip's fixed LZMA properties (lc=3, lp=0, pb=2) the
// same way CHD's own LZMA codec does: lc + lp*9 + pb*45.
const lzipPropsByte = 0x5D

// newLzipReader decodes the first (and, for odie's purposes, only) member
// of an lzip (.lz) stream. lzip wraps a headerless LZMA1 stream behind a
// 6-byte header carrying the format version and a coded dictionary size; it
// carries neither a properties byte nor an uncompressed-size field of its
// own, so both are synthesized into a classic 13-byte LZMA header before
// handing the body to lzma.NewReader, the same construction the kept CHD
// LZMA codec uses for MAME's equally headerless raw streams.
func newLzipReader(r io.Reader) (io.Reader, error) {
	var header [6]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("filter: lzip header: %w", err)
	}
	if header[0] != lzipMagic[0] || header[1] != lzipMagic[1] || header[2] != lzipMagic[2] || header[3] != lzipMagic[3] {
		return nil, fmt.Errorf("filter: not an lzip stream")
	}

	coded := header[5]
	const minDictSize = 1 << 12
	dictSize := uint32(1) << (coded & 0x1F)
	dictSize -= (dictSize / 16) * uint32((coded>>5)&0x07)
	if dictSize < minDictSize {
		dictSize = minDictSize
	}

	synthetic := make([]byte, 13)
	synthetic[0] = lzipPropsByte
	binary.LittleEndian.PutUint32(synthetic[1:5], dictSize)
	binary.LittleEndian.PutUint64(synthetic[5:13], lzmaUnknownSize)

	return lzma.NewReader(io.MultiReader(bytes.NewReader(synthetic), r))
}
