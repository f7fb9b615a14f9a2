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

import "github.com/discimage/odie/sector"

// CheckSector validates the EDC (and, where present, ECC P/Q) of a raw
// 2352-byte CD sector against its own stored redundancy.
// ok is meaningless when applicable is false: Audio and any shape whose
// geometry carries no EDC/ECC (e.g. Mode2Formless) are not checkable.
func CheckSector(raw []byte, trackType sector.TrackType) (ok bool, applicable bool) {
	switch trackType {
	case sector.TypeCdMode1:
		return checkMode1(raw), true
	case sector.TypeCdMode2Form1:
		return checkMode2Form1(raw), true
	case sector.TypeCdMode2Form2:
		return checkMode2Form2EDCOnly(raw), true
	default:
		return false, false
	}
}

func checkMode1(raw []byte) bool {
	if len(raw) < sector.RawBytesCD {
		return false
	}
	edc := edcUpdate(0, raw[0:2064])
	want := edcBytes(edc)
	if raw[2064] != want[0] || raw[2065] != want[1] || raw[2066] != want[2] || raw[2067] != want[3] {
		return false
	}

	d := raw[12:2076]
	ecc := computeECC(d)
	for i, b := range ecc {
		if raw[2076+i] != b {
			return false
		}
	}
	return true
}

func checkMode2Form1(raw []byte) bool {
	if len(raw) < sector.RawBytesCD {
		return false
	}
	edc := edcUpdate(0, raw[16:2072])
	want := edcBytes(edc)
	if raw[2072] != want[0] || raw[2073] != want[1] || raw[2074] != want[2] || raw[2075] != want[3] {
		return false
	}

	d := make([]byte, 2064)
	copy(d[4:], raw[16:2076])
	ecc := computeECC(d)
	for i, b := range ecc {
		if raw[2076+i] != b {
			return false
		}
	}
	return true
}

// checkMode2Form2EDCOnly validates Form 2's EDC; Form 2 carries no ECC.
func checkMode2Form2EDCOnly(raw []byte) bool {
	if len(raw) < sector.RawBytesCD {
		return false
	}
	edc := edcUpdate(0, raw[16:2348])
	want := edcBytes(edc)
	return raw[2348] == want[0] && raw[2349] == want[1] && raw[2350] == want[2] && raw[2351] == want[3]
}

// EncodeMode1 fills in a raw Mode 1 sector's EDC and ECC fields in place
// from its header and user data, for constructing synthetic fixtures.
func EncodeMode1(raw []byte) {
	edc := edcUpdate(0, raw[0:2064])
	b := edcBytes(edc)
	copy(raw[2064:2068], b[:])
	for i := 2068; i < 2076; i++ {
		raw[i] = 0
	}
	ecc := computeECC(raw[12:2076])
	copy(raw[2076:2352], ecc)
}

// EncodeMode2Form1 fills in a raw Mode 2 Form 1 sector's EDC and ECC
// fields in place from its sub-header and user data.
func EncodeMode2Form1(raw []byte) {
	edc := edcUpdate(0, raw[16:2072])
	b := edcBytes(edc)
	copy(raw[2072:2076], b[:])
	d := make([]byte, 2064)
	copy(d[4:], raw[16:2076])
	ecc := computeECC(d)
	copy(raw[2076:2352], ecc)
}

// EncodeMode2Form2 fills in a raw Mode 2 Form 2 sector's EDC field.
func EncodeMode2Form2(raw []byte) {
	edc := edcUpdate(0, raw[16:2348])
	b := edcBytes(edc)
	copy(raw[2348:2352], b[:])
}
