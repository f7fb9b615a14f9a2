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

// edcTableOnce/edcTable hold the CD EDC's reversed CRC-32 lookup table,
// built once on first use from the polynomial 0xD8018001.
var (
	edcTableOnce sync.Once
	edcTable     [256]uint32
)

func buildEDCTable() {
	for i := 0; i < 256; i++ {
		v := uint32(i)
		for bit := 0; bit < 8; bit++ {
			if v&1 != 0 {
				v = (v >> 1) ^ 0xD8018001
			} else {
				v >>= 1
			}
		}
		edcTable[i] = v
	}
}

// edcUpdate folds src into a running CD EDC accumulator.
func edcUpdate(edc uint32, src []byte) uint32 {
	edcTableOnce.Do(buildEDCTable)
	for _, b := range src {
		edc = (edc >> 8) ^ edcTable[byte(edc)^b]
	}
	return edc
}

// edcBytes returns the little-endian 4-byte encoding of a CD EDC value, as
// stored in a sector's EDC field.
func edcBytes(edc uint32) [4]byte {
	return [4]byte{byte(edc), byte(edc >> 8), byte(edc >> 16), byte(edc >> 24)}
}
