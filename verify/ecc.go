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

package verify

import "sync"

// GF(256) tables for the CD L-EC Reed-Solomon P/Q parity, built from the
// field's doubling operation under the primitive polynomial 0x11D.
var (
	gfTablesOnce sync.Once
	eccFLUT      [256]byte
	eccBLUT      [256]byte
)

func buildGFTables() {
	for i := 0; i < 256; i++ {
		j := i << 1
		if i&0x80 != 0 {
			j ^= 0x11D
		}
		eccFLUT[i] = byte(j)
		eccBLUT[byte(i)^byte(j)] = byte(i)
	}
}

// eccComputeBlock computes one interleaved parity block (P or Q) over src,
// which must be exactly majorCount*minorCount bytes long, writing
// majorCount*2 parity bytes to dest.
func eccComputeBlock(src []byte, majorCount, minorCount, majorMult, minorInc int, dest []byte) {
	gfTablesOnce.Do(buildGFTables)
	size := majorCount * minorCount
	for major := 0; major < majorCount; major++ {
		index := (major>>1)*majorMult + (major & 1)
		var eccA, eccB byte
		for minor := 0; minor < minorCount; minor++ {
			temp := src[index]
			index += minorInc
			if index >= size {
				index -= size
			}
			eccA ^= temp
			eccB ^= temp
			eccA = eccFLUT[eccA]
		}
		eccA = eccBLUT[eccFLUT[eccA]^eccB]
		dest[major] = eccA
		dest[major+majorCount] = eccA ^ eccB
	}
}

// computeECC computes the 276-byte P+Q parity for a 2064-byte L-EC input
// block (header/zero-address + sub-structure + data + EDC + reserved).
func computeECC(d2064 []byte) []byte {
	p := make([]byte, 172)
	eccComputeBlock(d2064, 86, 24, 2, 86, p)

	dp := make([]byte, 2236)
	copy(dp, d2064)
	copy(dp[2064:], p)

	q := make([]byte, 104)
	eccComputeBlock(dp, 52, 43, 86, 88, q)

	return append(p, q...)
}
